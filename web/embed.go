// Package web holds the embedded page templates and static assets.
package web

import "embed"

// TemplatesFS holds the layout, section and fragment templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS is served under /static/.
//
//go:embed static/*
var StaticFS embed.FS

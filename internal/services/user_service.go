package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"kanisafin/internal/access"
	"kanisafin/internal/amqp"
	"kanisafin/internal/core"
	applog "kanisafin/internal/log"
)

// Login authenticates by email and password. Every failure, including a
// blank field, is reported as core.ErrInvalidCredentials.
func (s *RecordService) Login(ctx context.Context, email, password string) (core.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return core.User{}, core.ErrInvalidCredentials
	}
	u, err := s.gw.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, core.ErrInvalidCredentials) {
			slog.WarnContext(ctx, "Login rejected", applog.FieldComponent, applog.ComponentAuth)
			return core.User{}, core.ErrInvalidCredentials
		}
		return core.User{}, fmt.Errorf("authenticate: %w", err)
	}
	slog.InfoContext(ctx, "User signed in",
		applog.FieldComponent, applog.ComponentAuth,
		applog.FieldUserID, u.ID,
		applog.FieldRole, string(u.Role))
	return u, nil
}

// ChangePassword replaces the actor's own password.
func (s *RecordService) ChangePassword(ctx context.Context, actor core.User, password, confirm string) error {
	if err := core.ValidatePasswordChange(password, confirm); err != nil {
		return err
	}
	if err := s.gw.ChangePassword(ctx, actor.ID, password); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	slog.InfoContext(ctx, "Password changed",
		applog.FieldComponent, applog.ComponentAuth,
		applog.FieldUserID, actor.ID)
	return nil
}

func (s *RecordService) ListUsers(ctx context.Context, actor core.User) ([]core.User, error) {
	if err := authorize(actor, access.ManageUsers); err != nil {
		return nil, err
	}
	users, err := s.gw.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// CreateUser provisions an account that must change its password on first login.
func (s *RecordService) CreateUser(ctx context.Context, actor core.User, nu core.NewUser) (string, error) {
	if err := authorize(actor, access.ManageUsers); err != nil {
		return "", err
	}
	nu.Email = strings.TrimSpace(nu.Email)
	nu.FullName = strings.TrimSpace(nu.FullName)
	if err := nu.Validate(); err != nil {
		return "", err
	}
	id, err := s.gw.CreateUser(ctx, nu)
	if err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}
	s.publish(ctx, amqp.NewRecordEvent(amqp.OpCreated, amqp.EntityUser, id, actor.ID, core.Money{}).
		WithDetail(core.Date{}, nu.Email))
	return id, nil
}

func (s *RecordService) DeleteUser(ctx context.Context, actor core.User, id string) error {
	if err := authorize(actor, access.ManageUsers); err != nil {
		return err
	}
	if id == actor.ID {
		return ErrSelfDelete
	}
	if err := s.gw.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	s.publish(ctx, amqp.NewRecordEvent(amqp.OpDeleted, amqp.EntityUser, id, actor.ID, core.Money{}))
	return nil
}

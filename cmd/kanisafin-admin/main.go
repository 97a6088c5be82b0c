// Command kanisafin-admin manages accounts and the schema of the SQLite
// database without going through the web interface.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"kanisafin/internal/cli"
	"kanisafin/internal/config"
	"kanisafin/internal/core"
	applog "kanisafin/internal/log"
	"kanisafin/internal/storage"
)

const usage = `usage: kanisafin-admin <command> [flags]

commands:
  migrate                                   apply schema migrations
  schema-version                            print the applied migration version
  list-users                                print every account
  create-user -email -name -role -password  add an account
  reset-password -email -password           replace an account's password
`

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "migrate":
		var sv storage.SchemaVersion
		sv, err = storage.RunMigrations(cfg.SQLiteDBPath)
		if err == nil {
			logger.Info("Migrations applied", "path", cfg.SQLiteDBPath, "version", sv.Version, "dirty", sv.Dirty)
		}
	case "schema-version":
		var sv storage.SchemaVersion
		sv, err = storage.CurrentSchema(cfg.SQLiteDBPath)
		if err == nil {
			fmt.Printf("%d dirty=%t\n", sv.Version, sv.Dirty)
		}
	case "list-users":
		repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
		defer repo.Close()
		err = listUsers(ctx, repo)
	case "create-user":
		repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
		defer repo.Close()
		err = createUser(ctx, logger, repo, args)
	case "reset-password":
		repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
		defer repo.Close()
		err = resetPassword(ctx, logger, repo, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("Command failed", "command", cmd, applog.FieldError, err)
		os.Exit(1)
	}
}

func listUsers(ctx context.Context, repo *storage.SQLiteRepository) error {
	users, err := repo.ListUsers(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tROLE\tTEMPORARY PASSWORD")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%v\n", u.ID, u.Email, u.FullName, u.Role, u.MustChangePassword)
	}
	return tw.Flush()
}

func createUser(ctx context.Context, logger *applog.Logger, repo *storage.SQLiteRepository, args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	email := fs.String("email", "", "login email")
	name := fs.String("name", "", "full name")
	role := fs.String("role", string(core.RoleAccountant), "admin, accountant, mzee_wa_kanisa or pastor")
	password := fs.String("password", "", "temporary password, changed at first login")
	if err := fs.Parse(args); err != nil {
		return err
	}

	r, err := core.ParseRole(*role)
	if err != nil {
		return err
	}
	id, err := repo.CreateUser(ctx, core.NewUser{
		Email:    *email,
		FullName: *name,
		Role:     r,
		Password: *password,
	})
	if err != nil {
		return err
	}
	logger.Info("User created", applog.FieldUserID, id, "role", r)
	return nil
}

func resetPassword(ctx context.Context, logger *applog.Logger, repo *storage.SQLiteRepository, args []string) error {
	fs := flag.NewFlagSet("reset-password", flag.ContinueOnError)
	email := fs.String("email", "", "login email")
	password := fs.String("password", "", "new password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	users, err := repo.ListUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		if strings.EqualFold(u.Email, strings.TrimSpace(*email)) {
			if err := repo.ChangePassword(ctx, u.ID, *password); err != nil {
				return err
			}
			logger.Info("Password reset", applog.FieldUserID, u.ID)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", core.ErrNotFound, *email)
}

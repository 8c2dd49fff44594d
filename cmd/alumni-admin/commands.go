package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/jnv-alumni-api/internal/models"
	"github.com/noah-isme/jnv-alumni-api/internal/repository"
	"github.com/noah-isme/jnv-alumni-api/internal/service"
	"github.com/noah-isme/jnv-alumni-api/pkg/config"
	"github.com/noah-isme/jnv-alumni-api/pkg/database"
	"github.com/noah-isme/jnv-alumni-api/pkg/export"
	"github.com/noah-isme/jnv-alumni-api/pkg/logger"
)

// env is shared by every subcommand once PersistentPreRunE has connected.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sqlx.DB
}

func newRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "alumni-admin",
		Short:         "Operator tasks for the alumni service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.open()
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			e.close()
		},
	}
	root.AddCommand(newMigrateCmd(e), newSetRoleCmd(e), newExportCmd(e))
	return root
}

func (e *env) open() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	e.cfg, e.logger, e.db = cfg, logr, db
	return nil
}

func (e *env) close() {
	if e.db != nil {
		_ = e.db.Close()
	}
	if e.logger != nil {
		_ = e.logger.Sync()
	}
}

func newMigrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			applied, err := database.Migrate(cmd.Context(), e.db, e.logger)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s): %s\n", len(applied), strings.Join(applied, ", "))
			return nil
		},
	}
}

func newSetRoleCmd(e *env) *cobra.Command {
	var email, id string
	cmd := &cobra.Command{
		Use:   "set-role ROLE",
		Short: "Assign a user role to a record, e.g. to bootstrap the first Admin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, ok := models.ParseUserRole(args[0])
			if !ok {
				return fmt.Errorf("unknown role %q", args[0])
			}
			if (email == "") == (id == "") {
				return fmt.Errorf("exactly one of --email or --id is required")
			}

			ctx := cmd.Context()
			users := repository.NewUserRepository(e.db)
			if email != "" {
				account, err := users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
				if err != nil {
					return fmt.Errorf("find account %s: %w", email, err)
				}
				id = account.ID
			}

			alumni := service.NewAlumniService(repository.NewAlumniRepository(e.db), users, nil, nil, nil, nil, e.logger)
			record, err := alumni.AssignRole(ctx, id, role)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) is now %s\n", record.FullName, record.ID, record.UserRole)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&id, "id", "", "record id")
	return cmd
}

func newExportCmd(e *env) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the approved directory to a CSV or PDF file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			directory := service.NewDirectoryService(repository.NewAlumniRepository(e.db), nil, nil, 0, e.cfg.Directory.PageSize, e.logger)
			file, rows, err := directory.Render(cmd.Context(), f)
			if err != nil {
				return err
			}
			path := out
			if path == "" {
				path = file.Filename
			}
			if err := writeFile(path, file.Payload); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d record(s) to %s\n", rows, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", string(export.FormatCSV), "csv or pdf")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output path (defaults to a dated file name)")
	return cmd
}

func writeFile(path string, payload []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return os.WriteFile(path, payload, 0o644)
}


package main

import (
	"errors"
	"fmt"
	"io"

	"chirper/internal/bootstrap"
	"chirper/internal/database"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the SQL schema migrations",
	}
	cmd.AddCommand(newMigrateUpCmd(), newMigrateDownCmd(), newMigrateStatusCmd())
	return cmd
}

func migrator(cmd *cobra.Command) (*database.Migrator, func(), error) {
	ctx := cmd.Context()
	_, rt, err := loadRuntime(ctx, bootstrap.Options{SkipSchema: true})
	if err != nil {
		return nil, nil, err
	}
	if err := database.EnsureLedger(ctx, rt.DB); err != nil {
		rt.Close()
		return nil, nil, err
	}
	migrations, err := database.EmbeddedMigrations()
	if err != nil {
		rt.Close()
		return nil, nil, err
	}
	return database.NewMigrator(database.NewMigrationStore(rt.DB), migrations), rt.Close, nil
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, done, err := migrator(cmd)
			if err != nil {
				return err
			}
			defer done()

			applied, err := m.Up(cmd.Context())
			if err != nil {
				return fmt.Errorf("sql migrations failed: %w", err)
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				return nil
			}
			for _, v := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %06d\n", v)
			}
			return nil
		},
	}
}

func newMigrateDownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Revert the most recently applied migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, done, err := migrator(cmd)
			if err != nil {
				return err
			}
			defer done()

			mig, err := m.Down(cmd.Context())
			if errors.Is(err, database.ErrNothingToRollBack) {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to roll back")
				return nil
			}
			if err != nil {
				return fmt.Errorf("rollback failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %s\n", mig)
			return nil
		},
	}
}

// statusReport is the printable form of database.SchemaStatus.
type statusReport struct {
	Mode        string   `yaml:"mode" json:"mode"`
	Environment string   `yaml:"environment" json:"environment"`
	Driver      string   `yaml:"driver" json:"driver"`
	RunSQL      bool     `yaml:"run_sql" json:"run_sql"`
	RunAuto     bool     `yaml:"run_auto" json:"run_auto"`
	Applied     []int    `yaml:"applied" json:"applied"`
	Pending     []string `yaml:"pending" json:"pending"`
}

func newStatusReport(s *database.SchemaStatus) statusReport {
	r := statusReport{
		Mode:        s.Mode,
		Environment: s.Environment,
		Driver:      s.Driver,
		RunSQL:      s.WillRunSQL,
		RunAuto:     s.WillRunAutoMigrate,
		Applied:     append([]int{}, s.AppliedVersions...),
		Pending:     []string{},
	}
	for _, m := range s.PendingMigrations {
		r.Pending = append(r.Pending, m.String())
	}
	return r
}

func writeStatus(w io.Writer, r statusReport, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		if _, err := fmt.Fprintf(w, "mode=%s env=%s driver=%s run_sql=%t run_auto=%t applied=%d pending=%d\n",
			r.Mode, r.Environment, r.Driver, r.RunSQL, r.RunAuto, len(r.Applied), len(r.Pending)); err != nil {
			return err
		}
		for _, p := range r.Pending {
			if _, err := fmt.Fprintf(w, "pending: %s\n", p); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func newMigrateStatusCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the schema policy and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, rt, err := loadRuntime(cmd.Context(), bootstrap.Options{SkipSchema: true})
			if err != nil {
				return err
			}
			defer rt.Close()

			status, err := database.GetSchemaStatus(cmd.Context(), rt.DB, cfg)
			if err != nil {
				return fmt.Errorf("schema status failed: %w", err)
			}
			return writeStatus(cmd.OutOrStdout(), newStatusReport(status), output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or yaml")
	return cmd
}

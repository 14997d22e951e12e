package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/i474232898/forecast-crud/internal/entity"
)

type migrator interface {
	Migrate(ctx context.Context) error
}

func (c *Commands) newDBCmd() *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the relational copy of the forecasts (DATABASE_URL)",
	}
	dbCmd.AddCommand(
		c.newDBMigrateCmd(),
		c.newDBListCmd(),
		c.newDBSyncCmd(),
	)
	return dbCmd
}

// repository returns the injected repository or opens Postgres.
func (c *Commands) repository(ctx context.Context) (entity.Repository, func(), error) {
	if c.repo != nil {
		return c.repo, func() {}, nil
	}
	if c.cfg.DatabaseURL == "" {
		return nil, nil, errors.New("DATABASE_URL is not set")
	}

	db, err := sql.Open("pgx", c.cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			c.lggr.Warnw("close database", "err", err)
		}
	}
	return entity.NewSQLRepository(db), closeDB, nil
}

func (c *Commands) newDBMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the weatherforecast table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, done, err := c.repository(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			m, ok := repo.(migrator)
			if !ok {
				c.lggr.Info("repository needs no migration")
				return nil
			}
			if err := m.Migrate(cmd.Context()); err != nil {
				return err
			}
			c.lggr.Info("weatherforecast table ready")
			return nil
		},
	}
}

func (c *Commands) newDBListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored weather forecast rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, done, err := c.repository(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			rows, err := repo.List(cmd.Context())
			if err != nil {
				return err
			}
			return c.renderRows(cmd.OutOrStdout(), rows)
		},
	}
}

func (c *Commands) newDBSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Insert every forecast of the user as a new row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			v, err := c.openView(ctx)
			if err != nil {
				return err
			}
			repo, done, err := c.repository(ctx)
			if err != nil {
				return err
			}
			defer done()

			n := 0
			for _, rec := range v.Forecasts() {
				w := entity.FromRecord(rec)
				if err := repo.Create(ctx, &w); err != nil {
					return fmt.Errorf("sync forecast %s: %w", rec.Name, err)
				}
				n++
			}
			c.lggr.Infow("synced forecasts", "count", n)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "synced %d forecasts\n", n)
			return err
		},
	}
}

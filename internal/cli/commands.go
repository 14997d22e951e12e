// Package cli wires the forecast view to cobra commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/i474232898/forecast-crud/internal/config"
	"github.com/i474232898/forecast-crud/internal/crud"
	"github.com/i474232898/forecast-crud/internal/entity"
	"github.com/i474232898/forecast-crud/internal/forecast"
	"github.com/i474232898/forecast-crud/internal/scheduler"
	"github.com/i474232898/forecast-crud/internal/session"
)

var (
	ErrOperationFailed = errors.New("operation failed")

	validFormats = []string{"table", "json"}
)

// Commands holds what every command needs.
type Commands struct {
	cfg   *config.AppConfig
	lggr  *zap.SugaredLogger
	store crud.Store
	gen   *forecast.Generator
	repo  entity.Repository

	output string
}

type Option func(*Commands)

// WithGenerator replaces the sample data generator.
func WithGenerator(g *forecast.Generator) Option {
	return func(c *Commands) { c.gen = g }
}

// WithRepository replaces the Postgres repository used by the db commands.
func WithRepository(r entity.Repository) Option {
	return func(c *Commands) { c.repo = r }
}

func New(cfg *config.AppConfig, lggr *zap.SugaredLogger, store crud.Store, opts ...Option) *Commands {
	if lggr == nil {
		lggr = zap.NewNop().Sugar()
	}
	c := &Commands{cfg: cfg, lggr: lggr, store: store}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewRootCmd builds the command tree. Flags default to the loaded config.
func (c *Commands) NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "forecast-crud",
		Short:         "Manage weather forecasts stored in a Firebase Realtime Database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c.output = strings.ToLower(c.output)
			if !slices.Contains(validFormats, c.output) {
				return fmt.Errorf("invalid output format '%s'", c.output)
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfg.BaseURL, "base-url", c.cfg.BaseURL, "Realtime Database URL")
	pf.StringVar(&c.cfg.Resource, "resource", c.cfg.Resource, "Resource name; data lives under <resource>Owner/<user>")
	pf.StringVar(&c.cfg.UserID, "user", c.cfg.UserID, "User id (taken from the token when empty)")
	pf.StringVar(&c.cfg.IDToken, "token", c.cfg.IDToken, "Firebase ID token")
	pf.StringVarP(&c.output, "output", "o", "table", "Output format: table or json")

	root.AddCommand(
		c.newListCmd(),
		c.newCreateCmd(),
		c.newUpdateCmd(),
		c.newDeleteCmd(),
		c.newWatchCmd(),
		c.newDBCmd(),
	)
	return root
}

// openView resolves the session and loads the user's forecasts.
func (c *Commands) openView(ctx context.Context) (*crud.View, error) {
	s, err := session.Resolve(c.cfg.UserID, c.cfg.IDToken)
	if err != nil {
		return nil, err
	}

	opts := []crud.Option{
		crud.WithResource(c.cfg.Resource),
		crud.WithLogger(c.lggr.Named("crud")),
	}
	if c.gen != nil {
		opts = append(opts, crud.WithGenerator(c.gen))
	}
	v := crud.NewView(c.store, c.cfg.BaseURL, opts...)
	if err := failure(v.Initialize(ctx, s)); err != nil {
		return nil, err
	}
	return v, nil
}

// failure turns the first failing message into an error.
func failure(msgs []crud.Message) error {
	for _, m := range msgs {
		if crud.Failed([]crud.Message{m}) {
			return fmt.Errorf("%w: %s", ErrOperationFailed, m.Text)
		}
	}
	return nil
}

func (c *Commands) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the user's forecasts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := c.openView(cmd.Context())
			if err != nil {
				return err
			}
			return c.renderForecasts(cmd.OutOrStdout(), v.Forecasts())
		},
	}
}

// recordFlags are the editable fields of a forecast.
type recordFlags struct {
	generate    bool
	city        string
	date        string
	temp        int
	description string
}

func (f *recordFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.generate, "generate", false, "Fill the record with sample data first")
	cmd.Flags().StringVar(&f.city, "city", "", "City")
	cmd.Flags().StringVar(&f.date, "date", "", "Forecast date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&f.temp, "temp", 0, "Temperature in Celsius")
	cmd.Flags().StringVar(&f.description, "description", "", "Short description")
}

// apply edits the selected record. Explicit flags win over generated values.
func (f *recordFlags) apply(cmd *cobra.Command, v *crud.View) error {
	if f.generate {
		if err := failure(v.GenerateSampleData()); err != nil {
			return err
		}
	}

	r := v.Selected()
	fl := cmd.Flags()
	if fl.Changed("city") {
		r.City = f.city
	}
	if fl.Changed("date") {
		d, err := forecast.ParseDate(f.date)
		if err != nil {
			return err
		}
		r.Date = d
	}
	if fl.Changed("temp") {
		r.TemperatureCelsius = f.temp
	}
	if fl.Changed("description") {
		r.Description = f.description
	}
	return nil
}

func (f *recordFlags) changed(cmd *cobra.Command) bool {
	if f.generate {
		return true
	}
	for _, name := range []string{"city", "date", "temp", "description"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

func (c *Commands) newCreateCmd() *cobra.Command {
	var flags recordFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a forecast",
		Example: `  forecast-crud create --generate
  forecast-crud create --city Regina --date 2026-10-20 --temp 4 --description Windy`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !flags.changed(cmd) {
				return errors.New("nothing to create: pass --generate or field flags")
			}
			v, err := c.openView(cmd.Context())
			if err != nil {
				return err
			}

			v.OpenNew()
			if err := flags.apply(cmd, v); err != nil {
				return err
			}
			if err := failure(v.Save(cmd.Context())); err != nil {
				return err
			}
			return c.renderForecasts(cmd.OutOrStdout(), v.Forecasts())
		},
	}
	flags.register(cmd)
	return cmd
}

func (c *Commands) newUpdateCmd() *cobra.Command {
	var flags recordFlags
	cmd := &cobra.Command{
		Use:   "update <key>",
		Short: "Overwrite fields of an existing forecast",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !flags.changed(cmd) {
				return errors.New("nothing to update: pass --generate or field flags")
			}
			v, err := c.openView(cmd.Context())
			if err != nil {
				return err
			}

			if err := failure(v.Select(args[0])); err != nil {
				return err
			}
			if err := flags.apply(cmd, v); err != nil {
				return err
			}
			if err := failure(v.Save(cmd.Context())); err != nil {
				return err
			}
			return c.renderForecasts(cmd.OutOrStdout(), v.Forecasts())
		},
	}
	flags.register(cmd)
	return cmd
}

func (c *Commands) newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <key>",
		Aliases: []string{"rm"},
		Short:   "Delete a forecast",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := c.openView(cmd.Context())
			if err != nil {
				return err
			}
			if err := failure(v.Select(args[0])); err != nil {
				return err
			}
			if err := failure(v.Delete(cmd.Context())); err != nil {
				return err
			}
			return c.renderForecasts(cmd.OutOrStdout(), v.Forecasts())
		},
	}
}

func (c *Commands) newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the forecast list every WATCH_INTERVAL until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			v, err := c.openView(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			sched := scheduler.New(v, c.cfg.WatchInterval, c.lggr.Named("scheduler"))
			sched.OnRefresh = func(msgs []crud.Message) {
				if crud.Failed(msgs) {
					return
				}
				if err := c.renderForecasts(out, v.Forecasts()); err != nil {
					c.lggr.Errorw("render forecasts", "err", err)
				}
			}
			if err := sched.Start(); err != nil {
				return err
			}
			defer sched.Stop()

			<-ctx.Done()
			return nil
		},
	}
}

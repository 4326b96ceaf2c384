package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tigerroll/eventgen/pkg/generator/adapter/database"
	"github.com/tigerroll/eventgen/pkg/generator/component/cleaner"
	"github.com/tigerroll/eventgen/pkg/generator/component/migration"
	"github.com/tigerroll/eventgen/pkg/generator/core/config"
	"github.com/tigerroll/eventgen/pkg/generator/core/domain/model"
	core "github.com/tigerroll/eventgen/pkg/generator/core/scheduler"
	"github.com/tigerroll/eventgen/pkg/generator/engine/coordinator"
	inframetrics "github.com/tigerroll/eventgen/pkg/generator/infrastructure/metrics"
	"github.com/tigerroll/eventgen/pkg/generator/infrastructure/scheduler"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/logger"
)

// NewRootCommand creates the eventgen command tree.
func NewRootCommand(o Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "eventgen",
		Short:         "Generate test venues, organizers, events and uploads",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&o.ConfigPath, "config", "", "YAML configuration file (default: built-in)")
	cmd.PersistentFlags().StringVar(&o.EnvFilePath, "env-file", o.EnvFilePath, ".env file loaded before the configuration")

	generate, _ := newGenerateCommand(&o)
	cmd.AddCommand(generate)
	cmd.AddCommand(newWorkerCommand(&o))
	cmd.AddCommand(newDeleteCommand(&o))
	cmd.AddCommand(newMigrateCommand(&o))
	return cmd
}

type generateFlags struct {
	counts        map[model.EntityKind]*int
	fromDate      string
	toDate        string
	featured      bool
	virtual       bool
	recurring     bool
	recurringType string
	categories    []string
	tags          []string
	contentLength int
	rsvp          bool
	ticket        bool
	fast          bool
}

// request builds the GenerationRequest; fastDefault applies when the
// --fast-occurrences-insert flag was not given.
func (f *generateFlags) request(fastSet, fastDefault bool) *model.GenerationRequest {
	fast := fastDefault
	if fastSet {
		fast = f.fast
	}
	req := model.NewGenerationRequest()
	for _, kind := range model.Kinds() {
		q := model.EntityQuantity{Quantity: *f.counts[kind]}
		if kind == model.KindEvent {
			q.FromDate = f.fromDate
			q.ToDate = f.toDate
			q.Featured = f.featured
			q.Virtual = f.virtual
			q.Recurring = f.recurring
			q.RecurringType = model.RecurrenceType(strings.ToLower(f.recurringType))
			q.EventCategory = f.categories
			q.EventTag = f.tags
			q.ContentLength = f.contentLength
			q.RSVP = f.rsvp
			q.Ticket = f.ticket
			q.FastOccurrencesInsert = fast
		}
		req.Set(kind, q)
	}
	return req
}

func newGenerateCommand(o *Options) (*cobra.Command, *generateFlags) {
	f := &generateFlags{counts: map[model.EntityKind]*int{}}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Create records, slicing large requests into batches",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var (
				cfg        *config.Config
				coord      *coordinator.BatchCoordinator
				schedulers *scheduler.Schedulers
				dispatcher *scheduler.Dispatcher
			)
			app, err := start(ctx, *o, &cfg, &coord, &schedulers, &dispatcher)
			if err != nil {
				return err
			}
			defer stop(app)

			req := f.request(cmd.Flags().Changed("fast-occurrences-insert"), cfg.EventGen.Generator.FastOccurrencesInsert)
			if req.IsEmpty() {
				return errors.New("nothing to generate: set at least one of --organizers, --venues, --events, --uploads")
			}
			result, err := coord.Process(ctx, req)
			if err != nil {
				return err
			}
			continuations, err := schedulers.Settle(ctx, dispatcher)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Request %s: first batch created %d records", req.ID, result.Slice.Total())
			switch {
			case continuations > 0:
				fmt.Fprintf(out, ", %d more batches ran in-process.\n", continuations)
			case result.Requeued:
				fmt.Fprintf(out, ", the rest was handed to the '%s' scheduler.\n", cfg.EventGen.Scheduler.Type)
			default:
				fmt.Fprintln(out, ".")
			}
			return nil
		},
	}
	flags := cmd.Flags()
	for _, kind := range model.Kinds() {
		f.counts[kind] = flags.Int(kind.String(), 0, "number of "+kind.String()+" to create")
	}
	flags.StringVar(&f.fromDate, "from-date", model.DefaultFromDate, "earliest event start (e.g. \"-1 month\", \"2024-05-01\")")
	flags.StringVar(&f.toDate, "to-date", model.DefaultToDate, "latest event start")
	flags.BoolVar(&f.featured, "featured", false, "mark events as featured")
	flags.BoolVar(&f.virtual, "virtual", false, "make events virtual")
	flags.BoolVar(&f.recurring, "recurring", false, "make events recurring")
	flags.StringVar(&f.recurringType, "recurring-type", string(model.RecurrenceAll), "all, daily, weekly, monthly or yearly")
	flags.StringSliceVar(&f.categories, "category", nil, "event category names")
	flags.StringSliceVar(&f.tags, "tag", nil, "event tag names")
	flags.IntVar(&f.contentLength, "content-length", 0, "description paragraphs (0 picks at random)")
	flags.BoolVar(&f.rsvp, "rsvp", false, "attach RSVP details")
	flags.BoolVar(&f.ticket, "ticket", false, "attach ticket details")
	flags.BoolVar(&f.fast, "fast-occurrences-insert", false, "clone recurring occurrences in one transaction (default from configuration)")
	return cmd, f
}

func newWorkerCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume queued batches from Redis and serve the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var (
				cfg        *config.Config
				coord      *coordinator.BatchCoordinator
				schedulers *scheduler.Schedulers
				dispatcher *scheduler.Dispatcher
				active     core.Scheduler
				prom       *inframetrics.PrometheusRecorder
			)
			app, err := start(ctx, *o, &cfg, &coord, &schedulers, &dispatcher, &active, &prom)
			if err != nil {
				return err
			}
			defer stop(app)

			if schedulers.Redis == nil {
				return fmt.Errorf("the worker needs the redis or auto scheduler, configured: '%s'", cfg.EventGen.Scheduler.Type)
			}
			server := &http.Server{
				Addr:              cfg.EventGen.Metrics.ListenAddress,
				Handler:           NewRouter(active, prom.GetRegistry()),
				ReadHeaderTimeout: 10 * time.Second,
			}
			go func() {
				logger.Infof("HTTP listening on %s.", server.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Errorf("HTTP server failed: %v", err)
				}
			}()

			pollTimeout := time.Duration(cfg.EventGen.Scheduler.Redis.PollTimeoutSeconds) * time.Second
			runErr := scheduler.NewWorker(schedulers.Redis, dispatcher, pollTimeout).Run(ctx)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Warnf("HTTP shutdown: %v", err)
			}
			return runErr
		},
	}
}

func newDeleteCommand(o *Options) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove generated content (--all removes every venue, organizer, event and event category)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var c *cleaner.Cleaner
			app, err := start(ctx, *o, &c)
			if err != nil {
				return err
			}
			defer stop(app)

			run := c.ClearGenerated
			if all {
				run = c.ClearAll
			}
			report, err := run(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, kind := range model.Kinds() {
				if n, ok := report.Records[kind]; ok {
					fmt.Fprintf(out, "%-11s %d\n", kind.String()+":", n)
				}
			}
			fmt.Fprintf(out, "%-11s %d\n", "terms:", report.Terms)
			if report.Files > 0 {
				fmt.Fprintf(out, "%-11s %d\n", "files:", report.Files)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "delete all content, not only generated records")
	return cmd
}

func newMigrateCommand(o *Options) *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the content schema to the configured database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var (
				cfg      *config.Config
				resolver database.DBConnectionResolver
			)
			app, err := start(ctx, *o, &cfg, &resolver)
			if err != nil {
				return err
			}
			defer stop(app)

			conn, err := resolver.ResolveDBConnection(ctx, cfg.EventGen.Infrastructure.ContentDBRef)
			if err != nil {
				return err
			}
			m := migration.NewMigrator(conn)
			if down {
				return m.Down(ctx)
			}
			return m.Up(ctx)
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "revert every applied migration")
	return cmd
}

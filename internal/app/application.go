// Package app wires the eventgen commands to the generator packages.
package app

import (
	"context"
	"os"
	"strings"
	"time"

	"go.uber.org/fx"

	"github.com/tigerroll/eventgen/pkg/generator/adapter/database"
	gormadapter "github.com/tigerroll/eventgen/pkg/generator/adapter/database/gorm"
	"github.com/tigerroll/eventgen/pkg/generator/adapter/database/gorm/mysql"
	"github.com/tigerroll/eventgen/pkg/generator/adapter/database/gorm/postgres"
	"github.com/tigerroll/eventgen/pkg/generator/adapter/database/gorm/sqlite"
	"github.com/tigerroll/eventgen/pkg/generator/adapter/storage"
	"github.com/tigerroll/eventgen/pkg/generator/adapter/storage/gcs"
	"github.com/tigerroll/eventgen/pkg/generator/adapter/storage/local"
	"github.com/tigerroll/eventgen/pkg/generator/component/cleaner"
	"github.com/tigerroll/eventgen/pkg/generator/component/creator"
	"github.com/tigerroll/eventgen/pkg/generator/core/config"
	"github.com/tigerroll/eventgen/pkg/generator/engine/coordinator"
	"github.com/tigerroll/eventgen/pkg/generator/engine/occurrence"
	inframetrics "github.com/tigerroll/eventgen/pkg/generator/infrastructure/metrics"
	sqlrepo "github.com/tigerroll/eventgen/pkg/generator/infrastructure/repository/sql"
	"github.com/tigerroll/eventgen/pkg/generator/infrastructure/scheduler"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/exception"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/logger"
)

const stopTimeout = 15 * time.Second

// Options are the process-level inputs shared by every command.
type Options struct {
	EnvFilePath    string
	ConfigPath     string
	EmbeddedConfig config.EmbeddedConfig
}

func (o Options) configData() (config.EmbeddedConfig, error) {
	if o.ConfigPath == "" {
		return o.EmbeddedConfig, nil
	}
	data, err := os.ReadFile(o.ConfigPath)
	if err != nil {
		return nil, exception.NewValidationError("app", "failed to read config file "+o.ConfigPath, err)
	}
	return data, nil
}

// dbProviders maps DB_ADAPTORS names to their provider modules.
var dbProviders = map[string]fx.Option{
	sqlite.ProviderType:   sqlite.Module,
	mysql.ProviderType:    mysql.Module,
	postgres.ProviderType: postgres.Module,
}

// dbProviderOptions selects DB providers from the comma-separated DB_ADAPTORS
// variable. All of them are registered when it is unset.
func dbProviderOptions() []fx.Option {
	names := os.Getenv("DB_ADAPTORS")
	if names == "" {
		names = strings.Join([]string{sqlite.ProviderType, mysql.ProviderType, postgres.ProviderType}, ",")
	}
	var options []fx.Option
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		module, ok := dbProviders[name]
		if !ok {
			logger.Warnf("DB provider '%s' is not supported. Skipping.", name)
			continue
		}
		options = append(options, module)
	}
	return options
}

// modules is the full generator graph.
func modules(o Options, data config.EmbeddedConfig) fx.Option {
	return fx.Options(
		fx.Supply(
			data,
			fx.Annotate(o.EnvFilePath, fx.ResultTags(`name:"envFilePath"`)),
		),
		logger.Module,
		config.Module,

		fx.Options(dbProviderOptions()...),
		database.Module,
		gormadapter.Module,
		sqlrepo.Module,

		storage.Module,
		local.Module,
		gcs.Module,

		inframetrics.Module,
		scheduler.Module,

		occurrence.Module,
		creator.Module,
		coordinator.Module,
		cleaner.Module,
	)
}

// start builds and starts the graph, filling targets as fx.Populate does.
func start(ctx context.Context, o Options, targets ...interface{}) (*fx.App, error) {
	data, err := o.configData()
	if err != nil {
		return nil, err
	}
	app := fx.New(modules(o, data), fx.Populate(targets...))
	if err := app.Err(); err != nil {
		return nil, err
	}
	if err := app.Start(ctx); err != nil {
		return nil, err
	}
	return app, nil
}

func stop(app *fx.App) {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := app.Stop(ctx); err != nil {
		logger.Warnf("Shutdown finished with errors: %v", err)
	}
}

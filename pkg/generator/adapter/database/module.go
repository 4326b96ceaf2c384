package database

import (
	"context"

	"go.uber.org/fx"
)

// Module provides the connection resolver and closes its connections on stop.
var Module = fx.Options(
	fx.Provide(NewDefaultDBConnectionResolver),
	fx.Provide(func(r *DefaultDBConnectionResolver) DBConnectionResolver { return r }),
	fx.Invoke(func(lc fx.Lifecycle, r *DefaultDBConnectionResolver) {
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return r.CloseAll() }})
	}),
)

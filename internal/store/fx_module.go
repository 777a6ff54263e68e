package store

import (
	"context"
	"database/sql"

	"go.uber.org/fx"
)

// Module provides the database handle and the tiered store.
var Module = fx.Module("store",
	fx.Provide(Open),
	fx.Provide(New),
	fx.Invoke(func(lc fx.Lifecycle, db *sql.DB) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return db.Close()
			},
		})
	}),
)

// Package postgres implements the domain store interfaces over a pgx
// connection pool. Uniqueness invariants (one subscription per user, one
// owner per device id, unique username/email) are delegated to database
// constraints so they hold across processes, not just within one.
package postgres

import (
	"embed"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationsFS exposes the embedded schema migrations for pg.Migrate.
func MigrationsFS() embed.FS { return migrationsFS }

// MigrationsDir is the path of the migrations inside MigrationsFS.
const MigrationsDir = "migrations"

// Storage bundles the store implementations sharing one pool.
type Storage struct {
	Users         *UserStore
	Subscriptions *SubscriptionStore
	Devices       *DeviceStore
	Metrics       *MetricsStore
}

// New creates all stores over the given pool.
func New(pool *pgxpool.Pool) *Storage {
	return &Storage{
		Users:         NewUserStore(pool),
		Subscriptions: NewSubscriptionStore(pool),
		Devices:       NewDeviceStore(pool),
		Metrics:       NewMetricsStore(pool),
	}
}

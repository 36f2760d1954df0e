package orderlens

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Backend holds the store and cache opened from a Config.
type Backend struct {
	Store   Store
	Cache   CacheBackend
	closers []func() error
}

// Open connects the configured store and cache backend and creates their
// tables or indexes when missing.
func Open(ctx context.Context, cfg Config) (*Backend, error) {
	b := &Backend{}
	level, _ := cfg.Level()
	var sqliteDB *gorm.DB

	switch cfg.Driver {
	case DriverMemory:
		b.Store = NewMemoryStore()
	case DriverSQLite:
		db, err := b.openSQLite(cfg.DSN, level)
		if err != nil {
			return nil, b.abort(err)
		}
		store := NewGormStore(db)
		if err := store.Migrate(ctx); err != nil {
			return nil, b.abort(err)
		}
		sqliteDB = db
		b.Store = store
	case DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			return nil, b.abort(errors.Wrap(err, "connect postgres"))
		}
		b.closers = append(b.closers, func() error { pool.Close(); return nil })
		store := NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, b.abort(err)
		}
		b.Store = store
	case DriverMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.DSN))
		if err != nil {
			return nil, b.abort(errors.Wrap(err, "connect mongo"))
		}
		b.closers = append(b.closers, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return client.Disconnect(ctx)
		})
		store := NewMongoStore(client.Database(cfg.MongoDatabase))
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, b.abort(err)
		}
		b.Store = store
	default:
		return nil, errors.Errorf("unknown driver %q", cfg.Driver)
	}

	switch cfg.CacheBackend {
	case CacheBackendSQL:
		db := sqliteDB
		if db == nil || cfg.CacheDSN != "" {
			var err error
			if db, err = b.openSQLite(cfg.cacheDSN(), level); err != nil {
				return nil, b.abort(err)
			}
		}
		cache := NewGormCache(db, nil)
		if err := cache.Migrate(ctx); err != nil {
			return nil, b.abort(err)
		}
		b.Cache = cache
	default:
		b.Cache = NewMemoryCache(nil)
	}
	return b, nil
}

func (b *Backend) openSQLite(dsn string, level slog.Level) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormLogger(level)})
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	b.closers = append(b.closers, sqlDB.Close)
	return db, nil
}

// StartSweeper runs the cache sweeper in the background until ctx is done,
// when the cache backend supports it.
func (b *Backend) StartSweeper(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	s, ok := b.Cache.(Sweeper)
	if !ok || interval <= 0 {
		return
	}
	go RunSweeper(ctx, s, interval, func(err error) {
		logger.Warn("cache sweep failed", "error", err)
	})
}

// Close releases every connection in reverse order of opening.
func (b *Backend) Close() error {
	var result *multierror.Error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	b.closers = nil
	return result.ErrorOrNil()
}

func (b *Backend) abort(err error) error {
	if cerr := b.Close(); cerr != nil {
		return multierror.Append(err, cerr)
	}
	return err
}

// gormLogger keeps gorm quiet unless debug logging is on.
func gormLogger(level slog.Level) gormlogger.Interface {
	lvl := gormlogger.Warn
	switch {
	case level <= slog.LevelDebug:
		lvl = gormlogger.Info
	case level >= slog.LevelError:
		lvl = gormlogger.Error
	}
	return gormlogger.New(log.New(os.Stderr, "gorm ", log.LstdFlags), gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  lvl,
		IgnoreRecordNotFoundError: true,
	})
}

// NewLogger builds the text logger used by the binaries.
func NewLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

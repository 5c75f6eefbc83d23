// Package gormw provides a wrapped gorm.
package gormw

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	zlog "github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	glog "gorm.io/gorm/logger"

	"github.com/charleshuang3/invitegate/internal/models"
)

var (
	logger = zlog.With().Str("component", "db").Logger()

	postgresDSNRE = regexp.MustCompile(`^postgres(ql)?://`)
)

const (
	sqliteBusyTimeoutMS = "5000"
)

type DB struct {
	*gorm.DB
}

type Config struct {
	// DSN the Data Source Name.
	DSN string `yaml:"dsn" env:"INVITEGATE_DB_DSN"`

	// Disable automatic ping.
	DisableAutomaticPing bool `yaml:"disable_automatic_ping"`

	// Max DB open connections.
	MaxOpenConns int `yaml:"max_open_conns"`

	// Max DB idle connections.
	MaxIdleConns int `yaml:"max_idle_conns"`

	LogLevel glog.LogLevel `yaml:"log_level"`

	// DisablePrepareStmt turns off the prepared statement cache. The cache
	// keeps a goroutine alive after Close.
	DisablePrepareStmt bool `yaml:"disable_prepare_stmt"`
}

func (cfg *Config) isMemory() bool {
	return cfg.DSN == ":memory:" || strings.Contains(cfg.DSN, "mode=memory")
}

// sqliteDSN makes writers of a file DB wait for the lock instead of failing
// with SQLITE_BUSY.
func (cfg *Config) sqliteDSN() string {
	if cfg.isMemory() || strings.Contains(cfg.DSN, "busy_timeout") {
		return cfg.DSN
	}
	sep := "?"
	if strings.Contains(cfg.DSN, "?") {
		sep = "&"
	}
	return cfg.DSN + sep + "_pragma=busy_timeout(" + sqliteBusyTimeoutMS + ")"
}

func (cfg *Config) applyDefaults() {
	if cfg.DSN == "" {
		// use sqlite DB memory mode by default.
		cfg.DSN = ":memory:"
		logger.Warn().Msg("Using in-memory sqlite DB, should not be used in production")
	}

	if cfg.isMemory() {
		// every sqlite connection gets its own memory DB.
		cfg.MaxOpenConns = 1
	}

	if cfg.MaxIdleConns <= 0 {
		// golang's default.
		cfg.MaxIdleConns = 2
	}

	if cfg.LogLevel < glog.Silent || cfg.LogLevel > glog.Info {
		// INFO by default.
		cfg.LogLevel = glog.Info
	}
}

func Open(cfg *Config) (*DB, error) {
	cfg.applyDefaults()

	var dialector gorm.Dialector
	// We try to parse it as postgresql, otherwise
	// fallback to sqlite.
	if postgresDSNRE.MatchString(cfg.DSN) || len(strings.Fields(cfg.DSN)) >= 3 {
		dialector = postgres.New(postgres.Config{
			DSN: cfg.DSN,
		})
	} else {
		dialector = sqlite.Open(cfg.sqliteDSN())
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: glog.New(
			&logger,
			glog.Config{
				SlowThreshold: 100 * time.Millisecond,
				LogLevel:      cfg.LogLevel,
				// not found is an expected answer for invitation lookups
				IgnoreRecordNotFoundError: true,
				ParameterizedQueries:      false,
				Colorful:                  false,
			},
		),
		PrepareStmt:          !cfg.DisablePrepareStmt,
		DisableAutomaticPing: cfg.DisableAutomaticPing,
	})
	if err != nil {
		return nil, err
	}

	if sqlDB, err := db.DB(); err == nil /* ignore error */ {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	return &DB{db}, nil
}

// Migrate calls gorm.DB AutoMigrate() with all models in this project.
func (db *DB) Migrate() error {
	return db.AutoMigrate(
		&models.User{},
		&models.Invitation{},
		&models.Redemption{},
	)
}

// Tx runs fn in a transaction bound to ctx. fn must only use the given tx,
// the pool may hold a single connection.
func (db *DB) Tx(ctx context.Context, fn func(tx *DB) error) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&DB{tx})
	})
}

// Close releases the underlying connection pool.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ctx returns a session of db bound to ctx.
func (db *DB) Ctx(ctx context.Context) *DB {
	return &DB{db.WithContext(ctx)}
}

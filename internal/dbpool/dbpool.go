// Package dbpool wraps a *gorm.DB's underlying connection pool with the
// acquire/release/retry contract the resilient driver wrappers component
// requires: a bounded pool, a background health sweep, and exponential
// backoff on connection-class failures.
//
// Grounded on the teacher's internal/database.initializePostgresDB (same
// SetMaxIdleConns/SetMaxOpenConns/Ping shape), extended with the explicit
// Acquire/Release/WithRetry API spec.md's resilient driver wrappers
// component names.
package dbpool

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"discogsography/internal/apperr"
	"discogsography/internal/config"
	"discogsography/pkg/logger"
)

const (
	maxIdleConns    = 10
	maxOpenConns    = 50
	connMaxLifetime = time.Hour
	healthInterval  = 30 * time.Second
	maxAttempts     = 5
	baseBackoff     = 100 * time.Millisecond
)

// Pool owns one *gorm.DB and the background health sweep over its
// underlying *sql.DB.
type Pool struct {
	DB     *gorm.DB
	log    logger.Logger
	cancel context.CancelFunc
}

// Conn is a scoped handle returned by Acquire. Release MUST be called on
// every exit path, including panics, so callers typically `defer conn.Release()`
// immediately after a successful Acquire.
type Conn struct {
	pool *Pool
}

// New opens the pool and starts its health sweep goroutine.
func New(cfg config.Config) (*Pool, error) {
	log := logger.New("dbpool").Function("New")

	if cfg.PostgresHost == "" || cfg.PostgresDatabase == "" || cfg.PostgresUser == "" {
		return nil, log.Err("invalid postgres configuration", fmt.Errorf("host, database and user are required"))
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDatabase)

	gLogger := gormLogger.New(
		slog.NewLogLogger(slog.Default().Handler(), slog.LevelError),
		gormLogger.Config{
			SlowThreshold:             10 * time.Second,
			LogLevel:                  gormLogger.Silent,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                  gLogger,
		PrepareStmt:             true,
		SkipDefaultTransaction:  true,
	})
	if err != nil {
		return nil, log.Err("failed to open postgres", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, log.Err("failed to get sql.DB from gorm", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, log.Err("failed to ping postgres", err)
	}

	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{DB: db, log: log, cancel: cancel}
	go p.healthSweep(ctx, sqlDB)

	log.Info("postgres pool initialized", "host", cfg.PostgresHost, "database", cfg.PostgresDatabase)
	return p, nil
}

func (p *Pool) healthSweep(ctx context.Context, sqlDB interface{ PingContext(context.Context) error }) {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := sqlDB.PingContext(pingCtx); err != nil {
				p.log.Warn("postgres health sweep ping failed", "error", err)
			}
			cancel()
		}
	}
}

// Acquire returns a scoped Conn. The underlying *gorm.DB is already pooled
// by database/sql, so Acquire's job is to bind the caller's context and
// hand back a handle whose Release is a well-defined no-op point for
// future instrumentation (query count, in-flight gauge).
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	if p == nil || p.DB == nil {
		return nil, apperr.ServiceUnavailable("database not initialized")
	}
	return &Conn{pool: p}, nil
}

// Release is a no-op today; it exists so the acquire-path contract ("every
// acquire is scoped, release on all exit paths is mandatory") holds even
// though GORM's pool does not require an explicit handle-back.
func (c *Conn) Release() {}

// WithContext returns the pool's *gorm.DB bound to ctx, ready for query
// methods that want context-aware cancellation.
func (c *Conn) WithContext(ctx context.Context) *gorm.DB {
	return c.pool.DB.WithContext(ctx)
}

// WithRetry retries fn with exponential backoff on connection-class errors,
// returning a transient apperr.AppError once the attempt budget is
// exhausted. fn should return a plain error; WithRetry classifies it.
func (p *Pool) WithRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := baseBackoff * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return lastErr
		}
		p.log.Warn("transient postgres error, retrying", "attempt", attempt+1, "error", lastErr)
	}

	return apperr.ServiceUnavailable("database unavailable after retry budget exhausted")
}

// isTransient classifies connection-class failures (closed connections,
// network errors, driver-reported bad connections) as retryable. Anything
// else — constraint violations, syntax errors, auth failures — is fatal
// and surfaces immediately. Mirrors internal/graphdriver.isTransient's
// allow-list shape: default false, only recognized connection-class errors
// retry.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// Close stops the health sweep and closes the underlying connection.
func (p *Pool) Close() error {
	if p.cancel != nil {
		p.cancel()
	}
	sqlDB, err := p.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

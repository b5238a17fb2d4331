// Package graphdriver wraps a single neo4j.DriverWithContext with the same
// acquire/retry contract dbpool gives the relational store: session
// acquisition is scoped, transient failures retry with exponential
// backoff, fatal failures (auth, malformed query) surface immediately.
//
// Grounded on other_examples/manifests/evalgo-org-eve's neo4j-go-driver/v5
// dependency and the teacher's dbpool-style retry/backoff shape applied to
// neo4j.ExecuteQuery/session semantics.
package graphdriver

import (
	"context"
	"errors"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"

	"discogsography/internal/apperr"
	"discogsography/internal/config"
	"discogsography/pkg/logger"
)

const (
	maxAttempts = 5
	baseBackoff = 100 * time.Millisecond
)

type Driver struct {
	driver neo4j.DriverWithContext
	log    logger.Logger
}

func New(cfg config.Config) (*Driver, error) {
	log := logger.New("graphdriver").Function("New")

	if cfg.GraphAddress == "" {
		return nil, log.Err("invalid graph configuration", errors.New("graph address is required"))
	}

	driver, err := neo4j.NewDriverWithContext(
		cfg.GraphAddress,
		neo4j.BasicAuth(cfg.GraphUser, cfg.GraphPassword, ""),
	)
	if err != nil {
		return nil, log.Err("failed to create neo4j driver", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, log.Err("failed to verify neo4j connectivity", err)
	}

	log.Info("graph driver initialized", "address", cfg.GraphAddress)
	return &Driver{driver: driver, log: log}, nil
}

// Session opens a scoped session with the given access mode. Callers MUST
// close it; the idiomatic pattern is `defer session.Close(ctx)`.
func (d *Driver) Session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return d.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode})
}

// WithRetry runs fn inside a managed transaction with exponential backoff
// retry on the documented transient error categories (SessionExpired,
// ServiceUnavailable, NotALeader, the TransientError family). Anything
// else — ClientError.Security.*, syntax errors — is fatal and returned
// immediately.
func (d *Driver) WithRetry(ctx context.Context, mode neo4j.AccessMode, fn func(tx neo4j.ManagedTransaction) (any, error)) (any, error) {
	session := d.Session(ctx, mode)
	defer session.Close(ctx)

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := baseBackoff * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		var result any
		var txErr error
		if mode == neo4j.AccessModeRead {
			result, txErr = session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
				return fn(tx)
			})
		} else {
			result, txErr = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
				return fn(tx)
			})
		}

		if txErr == nil {
			return result, nil
		}
		lastErr = txErr
		if !isTransient(txErr) {
			return nil, txErr
		}
		d.log.Warn("transient graph error, retrying", "attempt", attempt+1, "error", txErr)
	}

	unavailable := apperr.ServiceUnavailable("graph store unavailable after retry budget exhausted")
	unavailable.Cause = lastErr
	return nil, unavailable
}

// isTransient classifies the documented retryable categories. It favors
// neo4j.IsRetryable where available and falls back to inspecting the
// Neo4jError code for the documented category prefixes.
func isTransient(err error) bool {
	if neo4j.IsRetryable(err) {
		return true
	}

	var neoErr *db.Neo4jError
	if errors.As(err, &neoErr) {
		switch neoErr.Code {
		case "Neo.TransientError.Transaction.LockClientStopped",
			"Neo.ClientError.Cluster.NotALeader",
			"Neo.TransientError.General.DatabaseUnavailable":
			return true
		}
		if len(neoErr.Code) >= len("Neo.TransientError") && neoErr.Code[:len("Neo.TransientError")] == "Neo.TransientError" {
			return true
		}
	}
	return false
}

func (d *Driver) Close(ctx context.Context) error {
	return d.driver.Close(ctx)
}

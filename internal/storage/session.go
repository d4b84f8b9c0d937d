// Package storage implements the wide-column storage adapter (C1): a thin
// wrapper over gocql exposing the two primitives spec.md §4.1 names,
// select and insert, plus one typed wrapper per persisted table.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/gocql/gocql"

	"permanode/internal/apperr"
	"permanode/internal/config"
	"permanode/internal/logging"
	"permanode/internal/retry"
)

// Session owns the driver connection and the retrier shared by every
// typed table wrapper.
type Session struct {
	cql     *gocql.Session
	retrier *retry.Retrier
	log     *logging.EnhancedLogger
}

// Connect opens a gocql session against cfg.Hosts and returns a Session
// wired with the configured retry budget.
func Connect(cfg config.StorageConfig) (*Session, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = parseConsistency(cfg.Consistency)
	cluster.Timeout = cfg.Timeout
	cluster.ConnectTimeout = cfg.ConnectTimeout
	if cfg.NumConns > 0 {
		cluster.NumConns = cfg.NumConns
	}
	if cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}

	cqlSession, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("storage: connect: %w", err)
	}

	attempts := cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 3
	}
	// RetryAttempts counts retries after the first try, so the retrier's
	// attempt budget is one more.
	retryCfg := retry.ExponentialBackoff(attempts + 1)
	retryCfg.RetryIf = isTransient

	return &Session{
		cql:     cqlSession,
		retrier: retry.New(retryCfg),
		log:     logging.StorageLogger,
	}, nil
}

// Close releases the underlying driver connection.
func (s *Session) Close() {
	s.cql.Close()
}

// Ping verifies the keyspace is reachable, for the /<ks>/info health check.
func (s *Session) Ping(ctx context.Context) error {
	return s.cql.Query("SELECT now() FROM system.local").WithContext(ctx).Consistency(gocql.One).Exec()
}

func parseConsistency(name string) gocql.Consistency {
	switch name {
	case "QUORUM":
		return gocql.Quorum
	case "LOCAL_QUORUM":
		return gocql.LocalQuorum
	case "ALL":
		return gocql.All
	default:
		return gocql.One
	}
}

// isTransient classifies gocql errors as retryable; anything else (a
// decode failure, a malformed statement) is not worth retrying.
func isTransient(err error) bool {
	if errors.Is(err, gocql.ErrTimeoutNoResponse) || errors.Is(err, gocql.ErrConnectionClosed) ||
		errors.Is(err, gocql.ErrNoConnections) || errors.Is(err, gocql.ErrUnavailable) {
		return true
	}
	var reqErr gocql.RequestError
	if errors.As(err, &reqErr) {
		return true
	}
	return false
}

// classify maps a raw gocql error onto the apperr taxonomy. gocql.ErrNotFound
// only ever surfaces from Query.Scan, not from iterator-based selects, but
// insert-side callers route through it too for a single error shape.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gocql.ErrNotFound) {
		return apperr.New(apperr.NoResults, "no matching rows")
	}
	return apperr.Wrap(apperr.Other, "storage operation failed", err)
}

// Scanner consumes one page's worth of rows off iter, returning the decoded
// records in storage order.
type Scanner[T any] func(iter *gocql.Iter) ([]T, error)

// SelectPage runs one bounded, paging-state-aware select at consistency
// ONE, retrying transient failures up to the configured attempt budget.
// It is the generic primitive every typed table wrapper's Fetch method
// calls into.
func SelectPage[T any](ctx context.Context, s *Session, stmt string, args []interface{}, pagingState []byte, pageSize int, scan Scanner[T]) ([]T, []byte, error) {
	var rows []T
	var next []byte

	result := s.retrier.Do(ctx, func(ctx context.Context) error {
		q := s.cql.Query(stmt, args...).WithContext(ctx).Consistency(gocql.One)
		if pageSize > 0 {
			q = q.PageSize(pageSize)
		}
		if pagingState != nil {
			q = q.PageState(pagingState)
		}
		iter := q.Iter()

		decoded, scanErr := scan(iter)
		if scanErr != nil {
			_ = iter.Close()
			return fmt.Errorf("storage: scan: %w", scanErr)
		}
		rows = decoded
		next = iter.PageState()
		if closeErr := iter.Close(); closeErr != nil {
			return closeErr
		}
		return nil
	})

	if result.Err != nil {
		return nil, nil, classify(result.Err)
	}
	if len(rows) == 0 {
		return nil, nil, apperr.New(apperr.NoResults, "no matching rows")
	}
	return rows, next, nil
}

// Insert fires a fire-and-forget write at consistency ONE. Collector
// fan-out inserts call this directly and log-and-swallow its error, per
// spec.md §7's pipeline propagation policy; it is never retried beyond
// this adapter's own budget.
func Insert(ctx context.Context, s *Session, stmt string, args ...interface{}) error {
	result := s.retrier.Do(ctx, func(ctx context.Context) error {
		return s.cql.Query(stmt, args...).WithContext(ctx).Consistency(gocql.One).Exec()
	})
	return classify(result.Err)
}

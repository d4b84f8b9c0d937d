package storage

import (
	"context"
	"fmt"

	"github.com/gocql/gocql"

	"permanode/internal/apperr"
	"permanode/internal/retry"
	"permanode/pkg/types"
)

// analyticsBatchSize is the chunk width get_analytics splits its requested
// milestone range into, per spec.md §4.4.
const analyticsBatchSize = 5000

// AnalyticsTable wraps the `analytics` table: one row per chunk of
// analyticsBatchSize milestones, holding a precomputed message count.
// Reads use their own retrier (1 retry) rather than the session default (3),
// since a slow analytics scan shouldn't tie up the same budget as a
// latency-sensitive point lookup.
type AnalyticsTable struct {
	sess    *Session
	retrier *retry.Retrier
}

func NewAnalyticsTable(sess *Session) *AnalyticsTable {
	cfg := retry.ExponentialBackoff(2)
	cfg.RetryIf = isTransient
	return &AnalyticsTable{sess: sess, retrier: retry.New(cfg)}
}

// FetchRange chunks [start, end) into analyticsBatchSize-wide windows and
// fetches each chunk's row, skipping chunks with no recorded activity.
func (t *AnalyticsTable) FetchRange(ctx context.Context, keyspace string, start, end uint32) ([]types.AnalyticsRange, error) {
	if end <= start {
		return nil, apperr.New(apperr.BadParse, "analytics range end must be greater than start")
	}

	var out []types.AnalyticsRange
	for chunkStart := start; chunkStart < end; chunkStart += analyticsBatchSize {
		chunkEnd := chunkStart + analyticsBatchSize
		if chunkEnd > end {
			chunkEnd = end
		}

		var count uint64
		found := false
		result := t.retrier.Do(ctx, func(ctx context.Context) error {
			const stmt = `SELECT count FROM analytics WHERE keyspace = ? AND chunk_start = ?`
			err := t.sess.cql.Query(stmt, keyspace, chunkStart).WithContext(ctx).Consistency(gocql.One).Scan(&count)
			if err != nil {
				if err == gocql.ErrNotFound {
					found = false
					return nil
				}
				return err
			}
			found = true
			return nil
		})
		if result.Err != nil {
			return nil, apperr.Wrap(apperr.Other, fmt.Sprintf("analytics chunk [%d,%d) fetch failed", chunkStart, chunkEnd), result.Err)
		}
		if !found {
			continue
		}
		out = append(out, types.AnalyticsRange{Start: chunkStart, End: chunkEnd, Count: count})
	}
	return out, nil
}

// RecordChunk upserts a chunk's running message count. Nothing in this
// module calls it; the collector does not write analytics rows.
func (t *AnalyticsTable) RecordChunk(ctx context.Context, keyspace string, chunkStart uint32, count uint64) error {
	const stmt = `INSERT INTO analytics (keyspace, chunk_start, count) VALUES (?, ?, ?)`
	return Insert(ctx, t.sess, stmt, keyspace, chunkStart, count)
}

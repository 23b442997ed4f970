package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-txlookup/internal/model"
)

const appendResultsQuery = `
INSERT INTO ` + Table + ` (
	txid,
	block_height,
	block_time_unix,
	block_time_utc_iso,
	block_hash,
	api_source,
	error,
	inserted_at
) VALUES`

// Append stores results. Rows of one call get increasing inserted_at values so
// Load returns them in append order.
func (r *Repository) Append(ctx context.Context, results []model.Result) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("append_results", err, start)
	}()

	if len(results) == 0 {
		return nil
	}

	batch, err := r.conn.PrepareBatch(ctx, appendResultsQuery)
	if err != nil {
		return fmt.Errorf("prepare results batch: %w", err)
	}

	base := start.UTC()
	for i, result := range results {
		if err = batch.Append(
			string(result.Key),
			result.BlockHeight,
			result.BlockTimeUnix,
			result.BlockTimeISO,
			result.BlockHash,
			string(result.Source),
			result.Error,
			base.Add(time.Duration(i)*time.Microsecond),
		); err != nil {
			return fmt.Errorf("append result %s: %w", result.Key, err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("insert results: %w", err)
	}
	return nil
}

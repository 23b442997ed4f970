package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/goodnatureofminers/blockinsight7000-txlookup/internal/model"
)

const loadResultsQuery = `
SELECT
	txid,
	block_height,
	block_time_unix,
	block_time_utc_iso,
	block_hash,
	api_source,
	error
FROM ` + Table + `
ORDER BY inserted_at, txid`

// Load reads every stored result in append order.
func (r *Repository) Load(ctx context.Context) (snapshot *model.Snapshot, err error) {
	start := time.Now()
	defer func() {
		r.metrics.Observe("load_results", err, start)
	}()

	rows, err := r.conn.Query(ctx, loadResultsQuery)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close rows: %w", closeErr)
		}
	}()

	var results []model.Result
	for rows.Next() {
		var (
			txid   string
			source string
			result model.Result
		)
		if err = rows.Scan(
			&txid,
			&result.BlockHeight,
			&result.BlockTimeUnix,
			&result.BlockTimeISO,
			&result.BlockHash,
			&source,
			&result.Error,
		); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		result.Key = model.NormalizeKey(txid)
		result.Source = model.Backend(source)
		results = append(results, result)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}

	return model.NewSnapshot(results), nil
}

package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig defines the parameters for a bulk upsert operation.
type UpsertConfig struct {
	Table        string   // target table (e.g., "geocode_cache")
	Columns      []string // all columns being inserted
	ConflictKeys []string // columns forming the unique constraint
	UpdateCols   []string // columns to update on conflict; nil = all non-conflict columns
}

// BulkUpsert performs a bulk upsert via a temp table and INSERT ... ON CONFLICT:
// COPY the rows into a temp table shaped like the target, then merge them
// with a single INSERT ... ON CONFLICT (keys) DO UPDATE. Last write wins on
// duplicate keys: rows sharing a conflict key are collapsed to the last one
// before the COPY, since ON CONFLICT DO UPDATE rejects a statement that
// touches the same constrained row twice (error 21000).
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	if len(cfg.Columns) == 0 {
		return 0, eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return 0, eris.New("db: upsert: no conflict keys specified")
	}

	keyIdx, err := columnIndexes(cfg.Columns, cfg.ConflictKeys)
	if err != nil {
		return 0, err
	}
	rows = dedupeRows(rows, keyIdx)

	updateCols := cfg.UpdateCols
	if updateCols == nil {
		conflictSet := make(map[string]bool, len(cfg.ConflictKeys))
		for _, k := range cfg.ConflictKeys {
			conflictSet[k] = true
		}
		for _, c := range cfg.Columns {
			if !conflictSet[c] {
				updateCols = append(updateCols, c)
			}
		}
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tempTable := "_tmp_upsert_" + cfg.Table

	createSQL := fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		pgx.Identifier{tempTable}.Sanitize(),
		pgx.Identifier{cfg.Table}.Sanitize(),
	)
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: create temp table for %s", cfg.Table)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{tempTable}, cfg.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: COPY into temp table for %s", cfg.Table)
	}

	colList := quoteAndJoin(cfg.Columns)
	conflictList := quoteAndJoin(cfg.ConflictKeys)

	var setClauses []string
	for _, col := range updateCols {
		setClauses = append(setClauses, fmt.Sprintf("%s = EXCLUDED.%s", pgx.Identifier{col}.Sanitize(), pgx.Identifier{col}.Sanitize()))
	}

	upsertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) DO UPDATE SET %s",
		pgx.Identifier{cfg.Table}.Sanitize(),
		colList,
		colList,
		pgx.Identifier{tempTable}.Sanitize(),
		conflictList,
		strings.Join(setClauses, ", "),
	)

	tag, err := tx.Exec(ctx, upsertSQL)
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: INSERT ON CONFLICT for %s", cfg.Table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}

	return tag.RowsAffected(), nil
}

// columnIndexes maps each conflict key to its position in the column list.
func columnIndexes(columns, keys []string) ([]int, error) {
	idx := make([]int, 0, len(keys))
	for _, k := range keys {
		found := -1
		for i, c := range columns {
			if c == k {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, eris.Errorf("db: upsert: conflict key %q not in columns", k)
		}
		idx = append(idx, found)
	}
	return idx, nil
}

// dedupeRows collapses rows sharing a conflict-key tuple, keeping the last
// occurrence's values at the first occurrence's position.
func dedupeRows(rows [][]any, keyIdx []int) [][]any {
	seen := make(map[string]int, len(rows))
	out := rows[:0:0]
	for _, row := range rows {
		key := rowKey(row, keyIdx)
		if pos, ok := seen[key]; ok {
			out[pos] = row
			continue
		}
		seen[key] = len(out)
		out = append(out, row)
	}
	return out
}

func rowKey(row []any, keyIdx []int) string {
	var b strings.Builder
	for _, i := range keyIdx {
		fmt.Fprintf(&b, "%v\x00", row[i])
	}
	return b.String()
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/skucrawler/skucrawler/internal/util"
	"github.com/skucrawler/skucrawler/pkg/catalog"
)

// maxBindParams keeps a bulk statement under SQLite's variable limit.
// 100 rows is the preferred chunk; wide tables get smaller chunks.
const (
	maxBindParams = 30000
	maxChunkRows  = 100
)

// Session is one stage's transaction. All writes of a stage go through a
// single session and become visible atomically on Commit; a failure
// mid-upsert leaves the database in the pre-stage state.
type Session struct {
	tx  *sql.Tx
	scd bool
	now time.Time
	log *slog.Logger
}

// Begin opens a stage transaction. The session timestamp is taken once so
// every row written by the stage carries the same observation time.
func (s *Store) Begin(ctx context.Context) (*Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	return &Session{tx: tx, scd: s.scd, now: time.Now().UTC(), log: s.log}, nil
}

// Now returns the session's observation timestamp.
func (sess *Session) Now() time.Time { return sess.now }

// Commit commits the stage.
func (sess *Session) Commit() error {
	if err := sess.tx.Commit(); err != nil {
		return fmt.Errorf("committing stage: %w", err)
	}
	return nil
}

// Rollback aborts the stage. Safe to call after Commit.
func (sess *Session) Rollback() {
	_ = sess.tx.Rollback()
}

// MarkInactive tombstones all rows of a vendor matching the optional
// predicate: status goes INACTIVE and observed_at advances. Rows are
// never deleted. Returns the number of rows touched.
func (sess *Session) MarkInactive(t *catalog.Table, vendorID, predicate string, args ...any) (int64, error) {
	q := fmt.Sprintf("UPDATE %s SET status = ?, observed_at = ? WHERE vendor_id = ?", t.Name)
	qargs := []any{string(catalog.StatusInactive), formatTime(sess.now), vendorID}
	if predicate != "" {
		q += " AND " + predicate
		qargs = append(qargs, args...)
	}
	res, err := sess.tx.Exec(q, qargs...)
	if err != nil {
		return 0, fmt.Errorf("marking %s rows inactive: %w", t.Name, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Upsert inserts or updates records by their table's composite key, in
// chunks. Duplicate keys within one pull collapse to the last occurrence
// because a single statement cannot update the same row twice. Records with a zero Status come back ACTIVE; records
// with a zero observation time get the session timestamp.
func (sess *Session) Upsert(records []catalog.Record) error {
	if len(records) == 0 {
		return nil
	}
	t := records[0].Table()

	deduped, err := dedupeByKey(t, records)
	if err != nil {
		return err
	}

	cols := t.ColumnNames()
	attrs := t.Attributes()

	chunkRows := maxBindParams / len(cols)
	if chunkRows > maxChunkRows {
		chunkRows = maxChunkRows
	}

	var set []string
	for _, a := range attrs {
		set = append(set, fmt.Sprintf("%s = excluded.%s", a, a))
	}
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"

	for _, chunk := range util.Chunk(deduped, chunkRows) {
		// The update is guarded so observed_at never goes backwards per
		// key, e.g. when a re-harvested benchmark run is older than the
		// score already stored.
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s ON CONFLICT (%s) DO UPDATE SET %s WHERE excluded.observed_at >= %s.observed_at",
			t.Name,
			strings.Join(cols, ", "),
			strings.TrimSuffix(strings.Repeat(placeholder+", ", len(chunk)), ", "),
			strings.Join(t.PK, ", "),
			strings.Join(set, ", "),
			t.Name,
		)
		args := make([]any, 0, len(chunk)*len(cols))
		for _, r := range chunk {
			vals, err := sess.rowArgs(t, r)
			if err != nil {
				return err
			}
			args = append(args, vals...)
		}
		if _, err := sess.tx.Exec(q, args...); err != nil {
			return fmt.Errorf("upserting %d rows into %s: %w", len(chunk), t.Name, err)
		}
	}
	return nil
}

// DuplicateToSCD appends the vendor's current live rows to the SCD
// companion. The companion's primary key includes observed_at, so rows
// already captured by earlier pulls conflict and are left untouched:
// SCD tables only ever grow.
func (sess *Session) DuplicateToSCD(t *catalog.Table, vendorID string) error {
	if !sess.scd || !t.SCD {
		return nil
	}
	cols := strings.Join(t.ColumnNames(), ", ")
	q := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s WHERE vendor_id = ? ON CONFLICT DO NOTHING",
		t.SCDName(), cols, cols, t.Name)
	if _, err := sess.tx.Exec(q, vendorID); err != nil {
		return fmt.Errorf("duplicating %s rows to %s: %w", t.Name, t.SCDName(), err)
	}
	return nil
}

func dedupeByKey(t *catalog.Table, records []catalog.Record) ([]catalog.Record, error) {
	seen := make(map[string]int, len(records))
	out := make([]catalog.Record, 0, len(records))
	for _, r := range records {
		vals, err := catalog.Values(r)
		if err != nil {
			return nil, err
		}
		pk := make([]any, len(t.PK))
		for i, k := range t.PK {
			pk[i] = vals[k]
		}
		key, err := util.JSONHash(pk)
		if err != nil {
			return nil, err
		}
		if i, dup := seen[key]; dup {
			out[i] = r // last occurrence wins
			continue
		}
		seen[key] = len(out)
		out = append(out, r)
	}
	return out, nil
}

// rowArgs serializes a record into bind arguments in column order.
func (sess *Session) rowArgs(t *catalog.Table, r catalog.Record) ([]any, error) {
	vals, err := catalog.Values(r)
	if err != nil {
		return nil, err
	}

	if s, _ := vals["status"].(string); s == "" {
		vals["status"] = string(catalog.StatusActive)
	}
	// Records normally carry no observation time and get the session
	// timestamp; the benchmark harvester supplies the framework run's own
	// end time, which arrives RFC3339-encoded and is normalized here.
	if ts, _ := vals["observed_at"].(string); ts == "" || strings.HasPrefix(ts, "0001-01-01") {
		vals["observed_at"] = formatTime(sess.now)
	} else if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		vals["observed_at"] = formatTime(parsed)
	}

	args := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		v, err := bindValue(c, vals[c.Name])
		if err != nil {
			return nil, fmt.Errorf("column %s.%s: %w", t.Name, c.Name, err)
		}
		args[i] = v
	}
	return args, nil
}

func bindValue(c catalog.Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if c.Type == catalog.TypeJSON {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("serializing JSON value: %w", err)
		}
		return string(raw), nil
	}
	return v, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// timeLayout stores timestamps without timezone, in UTC, with enough
// precision that two pulls in the same process get distinct values.
const timeLayout = "2006-01-02T15:04:05.999999"

// parseTime reads a stored observed_at value back.
func parseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(timeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/skucrawler/skucrawler/pkg/catalog"
)

// Query reads rows of a table back into typed records. The row's column
// map is rebuilt into the record's JSON form: stored JSON text is decoded,
// booleans are widened from SQLite integers, and timestamps get their UTC
// marker back so time.Time can parse them.
func Query[T any, PT interface {
	*T
	catalog.Record
}](ctx context.Context, s *Store, where string, args ...any) ([]*T, error) {
	t := PT(new(T)).Table()

	q := fmt.Sprintf("SELECT %s FROM %s", strings.Join(t.ColumnNames(), ", "), t.Name)
	if where != "" {
		q += " WHERE " + where
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", t.Name, err)
	}
	defer rows.Close()

	var out []*T
	for rows.Next() {
		raw := make([]any, len(t.Columns))
		ptrs := make([]any, len(t.Columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", t.Name, err)
		}

		m := make(map[string]any, len(t.Columns))
		for i, c := range t.Columns {
			v, err := normalizeValue(c, raw[i])
			if err != nil {
				return nil, fmt.Errorf("column %s.%s: %w", t.Name, c.Name, err)
			}
			if c.Type == catalog.TypeTimestamp {
				if ts, ok := v.(string); ok {
					parsed, err := parseTime(ts)
					if err != nil {
						return nil, err
					}
					v = parsed.Format(time.RFC3339Nano)
				}
			}
			m[c.Name] = v
		}

		encoded, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("re-encoding %s row: %w", t.Name, err)
		}
		rec := new(T)
		if err := json.Unmarshal(encoded, rec); err != nil {
			return nil, fmt.Errorf("decoding %s row: %w", t.Name, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LoadRegions returns all of a vendor's regions, for the pipeline to hand
// to region-dependent stages.
func (s *Store) LoadRegions(ctx context.Context, vendorID string) ([]*catalog.Region, error) {
	return Query[catalog.Region](ctx, s, "vendor_id = ?", vendorID)
}

// LoadServers returns all of a vendor's servers.
func (s *Store) LoadServers(ctx context.Context, vendorID string) ([]*catalog.Server, error) {
	return Query[catalog.Server](ctx, s, "vendor_id = ?", vendorID)
}

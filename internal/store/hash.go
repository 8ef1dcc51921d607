package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/skucrawler/skucrawler/internal/util"
	"github.com/skucrawler/skucrawler/pkg/catalog"
)

// HashLevel selects the granularity of a content hash.
type HashLevel string

const (
	HashLevelDatabase HashLevel = "DATABASE"
	HashLevelTable    HashLevel = "TABLE"
	HashLevelRow      HashLevel = "ROW"
)

// DefaultHashIgnore is the column set skipped by change-detection hashes:
// observed_at advances on every pull even when nothing else changed.
var DefaultHashIgnore = []string{"observed_at"}

// HashRows returns a map keyed by the JSON-serialized primary key of each
// row of a table to the SHA-1 of its canonical-JSON attributes, skipping
// the ignored columns. The result is independent of insertion order.
func (s *Store) HashRows(t *catalog.Table, tableName string, ignored []string) (map[string]string, error) {
	rows, err := s.tableRows(t, tableName)
	if err != nil {
		return nil, err
	}

	pkSet := make(map[string]bool, len(t.PK))
	for _, k := range t.PK {
		pkSet[k] = true
	}
	skip := make(map[string]bool, len(ignored))
	for _, k := range ignored {
		skip[k] = true
	}

	out := make(map[string]string, len(rows))
	for _, row := range rows {
		pk := make([]any, len(t.PK))
		for i, k := range t.PK {
			pk[i] = row[k]
		}
		key, err := json.Marshal(pk)
		if err != nil {
			return nil, fmt.Errorf("serializing %s primary key: %w", tableName, err)
		}
		attrs := make(map[string]any, len(row))
		for k, v := range row {
			if !pkSet[k] && !skip[k] {
				attrs[k] = v
			}
		}
		h, err := util.JSONHash(attrs)
		if err != nil {
			return nil, fmt.Errorf("hashing %s row: %w", tableName, err)
		}
		out[string(key)] = h
	}
	return out, nil
}

// HashTables hashes every table (live and SCD) to a single digest each.
func (s *Store) HashTables(ignored []string) (map[string]string, error) {
	out := make(map[string]string)
	for _, t := range catalog.Tables() {
		names := []string{t.Name}
		if t.SCD {
			names = append(names, t.SCDName())
		}
		for _, name := range names {
			rowHashes, err := s.HashRows(t, name, ignored)
			if err != nil {
				return nil, err
			}
			h, err := util.JSONHash(rowHashes)
			if err != nil {
				return nil, err
			}
			out[name] = h
		}
	}
	return out, nil
}

// HashDatabase reduces the whole database to one deterministic digest,
// stable across row insertion order for a fixed snapshot.
func (s *Store) HashDatabase(ignored []string) (string, error) {
	tables, err := s.HashTables(ignored)
	if err != nil {
		return "", err
	}
	return util.JSONHash(tables)
}

// tableRows reads all rows of a table into normalized column maps:
// []byte becomes string, BOOLEAN becomes bool, JSON columns are decoded
// so their digest does not depend on formatting.
func (s *Store) tableRows(t *catalog.Table, tableName string) ([]map[string]any, error) {
	cols := t.ColumnNames()
	q := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), tableName)
	rows, err := s.db.Query(q)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", tableName, err)
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", tableName, err)
		}
		m := make(map[string]any, len(cols))
		for i, c := range t.Columns {
			v, err := normalizeValue(c, raw[i])
			if err != nil {
				return nil, fmt.Errorf("column %s.%s: %w", tableName, c.Name, err)
			}
			m[c.Name] = v
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func normalizeValue(c catalog.Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	switch c.Type {
	case catalog.TypeJSON:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected JSON text, got %T", v)
		}
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil, fmt.Errorf("decoding stored JSON: %w", err)
		}
		return decoded, nil
	case catalog.TypeBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case int64:
			return b != 0, nil
		}
	}
	return v, nil
}

package catalog

import "github.com/skucrawler/skucrawler/internal/util"

// Hash digests a record's non-key attributes into a stable hex SHA-1 over
// canonical JSON, used for change detection. observed_at is skipped by
// default; pass ignored columns to skip more.
func Hash(r Record, ignored ...string) (string, error) {
	vals, err := Values(r)
	if err != nil {
		return "", err
	}
	skip := map[string]bool{"observed_at": true}
	for _, k := range ignored {
		skip[k] = true
	}
	for _, k := range r.Table().PrimaryKeys() {
		skip[k] = true
	}
	attrs := make(map[string]any, len(vals))
	for k, v := range vals {
		if !skip[k] {
			attrs[k] = v
		}
	}
	return util.JSONHash(attrs)
}

package sqlite

import (
	"fmt"
	"net/url"
	"path/filepath"
)

// Config contains SQLite-specific connection options.
type Config struct {
	Path string
}

// FromMap creates a Config from a generic config map.
func FromMap(config map[string]any) (*Config, error) {
	path, ok := config["path"].(string)
	if !ok || path == "" {
		return nil, fmt.Errorf("path is required")
	}
	return &Config{Path: path}, nil
}

// dsn builds a mattn/go-sqlite3 URI. Read-only handles open the file in
// ro mode with query_only set, so a missing file fails instead of being
// created and any write is refused by SQLite itself.
func (c *Config) dsn(readOnly bool) string {
	params := url.Values{}
	params.Set("_busy_timeout", "5000")
	params.Set("_foreign_keys", "on")
	if readOnly {
		params.Set("mode", "ro")
		params.Set("_query_only", "true")
	}
	return "file:" + c.Path + "?" + params.Encode()
}

// poolKey identifies the pool in the connection manager. Read and write
// handles never share a pool.
func (c *Config) poolKey(readOnly bool) string {
	mode := "rw"
	if readOnly {
		mode = "ro"
	}
	abs, err := filepath.Abs(c.Path)
	if err != nil {
		abs = c.Path
	}
	return "sqlite:" + mode + ":" + abs
}

// quoteIdentifier wraps name in double quotes, doubling embedded quotes.
func quoteIdentifier(name string) string {
	out := make([]byte, 0, len(name)+2)
	out = append(out, '"')
	for i := 0; i < len(name); i++ {
		if name[i] == '"' {
			out = append(out, '"')
		}
		out = append(out, name[i])
	}
	return string(append(out, '"'))
}

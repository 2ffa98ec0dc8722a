package mysql

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Config contains MySQL-specific connection options.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	TLS      string // "false", "true", "skip-verify", "preferred"
}

// DefaultPort returns the default MySQL port.
func DefaultPort() int {
	return 3306
}

// FromMap creates a Config from a generic config map.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{Port: DefaultPort(), TLS: "preferred"}

	if host, ok := config["host"].(string); ok && host != "" {
		cfg.Host = host
	} else {
		return nil, fmt.Errorf("host is required")
	}

	switch port := config["port"].(type) {
	case float64: // JSON numbers are float64
		cfg.Port = int(port)
	case int:
		cfg.Port = port
	}

	if user, ok := config["user"].(string); ok && user != "" {
		cfg.User = user
	} else {
		return nil, fmt.Errorf("user is required")
	}
	cfg.Password, _ = config["password"].(string)

	if database, ok := config["database"].(string); ok && database != "" {
		cfg.Database = database
	} else {
		return nil, fmt.Errorf("database is required")
	}

	if sslMode, ok := config["ssl_mode"].(string); ok && sslMode != "" {
		switch strings.ToLower(sslMode) {
		case "disable":
			cfg.TLS = "false"
		case "require":
			cfg.TLS = "skip-verify"
		case "verify-ca", "verify-full":
			cfg.TLS = "true"
		}
	}

	return cfg, nil
}

// dsn renders the config through the driver's own formatter so passwords
// with special characters need no manual escaping.
func (c *Config) dsn() string {
	mc := mysql.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = c.Host + ":" + strconv.Itoa(c.Port)
	mc.DBName = c.Database
	mc.TLSConfig = c.TLS
	mc.ParseTime = true
	mc.Timeout = 30 * time.Second
	return mc.FormatDSN()
}

func (c *Config) poolKey() string {
	return fmt.Sprintf("mysql:%s@%s:%d/%s", c.User, c.Host, c.Port, c.Database)
}

// quoteIdentifier wraps name in backticks, doubling embedded backticks.
func quoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

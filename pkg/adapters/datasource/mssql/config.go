package mssql

import (
	"fmt"
	"net/url"
	"strconv"
)

// Config contains SQL Server-specific connection options.
type Config struct {
	Host     string
	Port     int
	Database string
	Schema   string // only this schema is discovered; default "dbo"

	// AuthMethod is "sql" (username/password) or "service_principal" (Azure AD).
	AuthMethod string

	Username string
	Password string

	TenantID     string
	ClientID     string
	ClientSecret string

	Encrypt                bool
	TrustServerCertificate bool
	ConnectionTimeout      int
}

// DefaultPort returns the default SQL Server port.
func DefaultPort() int {
	return 1433
}

// DefaultConnectionTimeout returns the default connection timeout in seconds.
func DefaultConnectionTimeout() int {
	return 30
}

// FromMap creates a Config from a generic config map and auto-detects the auth method.
func FromMap(config map[string]any) (*Config, error) {
	cfg := &Config{
		Port:              DefaultPort(),
		Schema:            "dbo",
		Encrypt:           true,
		ConnectionTimeout: DefaultConnectionTimeout(),
	}

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

	if database, ok := config["database"].(string); ok && database != "" {
		cfg.Database = database
	} else {
		return nil, fmt.Errorf("database is required")
	}

	if schema, ok := config["schema"].(string); ok && schema != "" {
		cfg.Schema = schema
	}

	if encrypt, ok := config["encrypt"].(bool); ok {
		cfg.Encrypt = encrypt
	} else if sslMode, ok := config["ssl_mode"].(string); ok && sslMode == "disable" {
		cfg.Encrypt = false
	}

	if trust, ok := config["trust_server_certificate"].(bool); ok {
		cfg.TrustServerCertificate = trust
	}

	switch timeout := config["connection_timeout"].(type) {
	case float64:
		cfg.ConnectionTimeout = int(timeout)
	case int:
		cfg.ConnectionTimeout = timeout
	}

	// Priority: explicit auth_method > client_id > user
	if authMethod, ok := config["auth_method"].(string); ok && authMethod != "" {
		cfg.AuthMethod = authMethod
	} else if _, hasClientID := config["client_id"].(string); hasClientID {
		cfg.AuthMethod = "service_principal"
	} else {
		cfg.AuthMethod = "sql"
	}

	switch cfg.AuthMethod {
	case "sql":
		if user, ok := config["user"].(string); ok && user != "" {
			cfg.Username = user
		} else if username, ok := config["username"].(string); ok && username != "" {
			cfg.Username = username
		} else {
			return nil, fmt.Errorf("user is required for SQL authentication")
		}
		cfg.Password, _ = config["password"].(string)

	case "service_principal":
		cfg.TenantID, _ = config["tenant_id"].(string)
		cfg.ClientID, _ = config["client_id"].(string)
		cfg.ClientSecret, _ = config["client_secret"].(string)
		if cfg.TenantID == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
			return nil, fmt.Errorf("tenant_id, client_id and client_secret are required for service principal authentication")
		}

	default:
		return nil, fmt.Errorf("invalid auth method: %s (must be sql or service_principal)", cfg.AuthMethod)
	}

	return cfg, nil
}

// driverAndDSN returns the database/sql driver name and connection URL.
// Service principals go through the azuresql driver, which handles the token exchange.
func (c *Config) driverAndDSN() (string, string) {
	query := url.Values{}
	query.Add("database", c.Database)
	query.Add("encrypt", strconv.FormatBool(c.Encrypt))
	query.Add("app name", "ekaya-ask")
	if c.TrustServerCertificate {
		query.Add("TrustServerCertificate", "true")
	}
	if c.ConnectionTimeout > 0 {
		query.Add("connection timeout", strconv.Itoa(c.ConnectionTimeout))
	}

	u := url.URL{Scheme: "sqlserver", Host: c.Host + ":" + strconv.Itoa(c.Port)}
	driver := "sqlserver"

	if c.AuthMethod == "service_principal" {
		query.Add("fedauth", "ActiveDirectoryServicePrincipal")
		query.Add("user id", c.ClientID+"@"+c.TenantID)
		query.Add("password", c.ClientSecret)
		driver = "azuresql"
	} else {
		u.User = url.UserPassword(c.Username, c.Password)
	}

	u.RawQuery = query.Encode()
	return driver, u.String()
}

func (c *Config) poolKey() string {
	user := c.Username
	if c.AuthMethod == "service_principal" {
		user = c.ClientID
	}
	return fmt.Sprintf("mssql:%s@%s:%d/%s", user, c.Host, c.Port, c.Database)
}

package testhelpers

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresTestImage is the stock image integration tests run against.
const PostgresTestImage = "postgres:16-alpine"

// TestDB holds a shared PostgreSQL container seeded with the sales fixture.
type TestDB struct {
	Container testcontainers.Container
	Pool      *pgxpool.Pool
	ConnStr   string
	Host      string
	Port      int
	User      string
	Password  string
	Database  string
}

// AdapterConfig returns the map the postgres adapter factories parse.
func (db *TestDB) AdapterConfig() map[string]any {
	return map[string]any{
		"host":     db.Host,
		"port":     db.Port,
		"user":     db.User,
		"password": db.Password,
		"database": db.Database,
		"ssl_mode": "disable",
	}
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB returns a shared PostgreSQL container for integration tests.
// The container is created once and reused across all tests in the run.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = setupTestDB()
	})

	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}

	return sharedTestDB
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	db := &TestDB{User: "ekaya", Password: "test_password", Database: "test_data"}

	req := testcontainers.ContainerRequest{
		Image:        PostgresTestImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       db.Database,
			"POSTGRES_USER":     db.User,
			"POSTGRES_PASSWORD": db.Password,
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}
	db.Container = container

	db.Host, err = container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}
	db.Port, err = strconv.Atoi(port.Port())
	if err != nil {
		return nil, fmt.Errorf("failed to parse container port: %w", err)
	}

	db.ConnStr = fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		db.User, db.Password, db.Host, db.Port, db.Database)

	db.Pool, err = pgxpool.New(ctx, db.ConnStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection with retry
	for i := 0; i < 10; i++ {
		if err = db.Pool.Ping(ctx); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to ping test database: %w", err)
	}

	if _, err := db.Pool.Exec(ctx, salesDDL); err != nil {
		return nil, fmt.Errorf("failed to create sales fixture: %w", err)
	}
	for _, r := range SalesRows {
		if _, err := db.Pool.Exec(ctx, `INSERT INTO sales (product, week, units) VALUES ($1, $2, $3)`, r.Product, r.Week, r.Units); err != nil {
			return nil, fmt.Errorf("failed to seed sales fixture: %w", err)
		}
	}

	return db, nil
}

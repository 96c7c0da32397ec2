// Package testutils provides common testing utilities and infrastructure setup
package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/cartwise/v3/internal/infrastructure/config"
	"github.com/cartwise/v3/internal/infrastructure/persistence/migrations"
	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// TestDatabase provides a containerized facts store with cleanup
type TestDatabase struct {
	Container testcontainers.Container
	DB        *sql.DB
	GormDB    *gorm.DB
	PgxPool   *pgxpool.Pool
	DSN       string
	t         *testing.T
}

// DatabaseConfig holds test database configuration
type DatabaseConfig struct {
	Image    string
	Database string
	Username string
	Password string
	Port     string
}

// DefaultDatabaseConfig returns the default test database configuration
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Image:    "postgres:15-alpine",
		Database: "cartwise_test",
		Username: "test_user",
		Password: "test_password",
		Port:     "5432",
	}
}

// SetupTestDatabase creates a new facts store using testcontainers
func SetupTestDatabase(t *testing.T) *TestDatabase {
	return SetupTestDatabaseWithConfig(t, DefaultDatabaseConfig())
}

// SetupTestDatabaseWithConfig creates a facts store with custom configuration
func SetupTestDatabaseWithConfig(t *testing.T, cfg DatabaseConfig) *TestDatabase {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        cfg.Image,
				ExposedPorts: []string{cfg.Port + "/tcp"},
				Env: map[string]string{
					"POSTGRES_DB":               cfg.Database,
					"POSTGRES_USER":             cfg.Username,
					"POSTGRES_PASSWORD":         cfg.Password,
					"POSTGRES_HOST_AUTH_METHOD": "trust",
				},
				WaitingFor: wait.ForAll(
					wait.ForLog("database system is ready to accept connections").
						WithOccurrence(2).
						WithStartupTimeout(60*time.Second),
					wait.ForSQL(nat.Port(cfg.Port+"/tcp"), "pgx", func(host string, port nat.Port) string {
						return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
							cfg.Username, cfg.Password, host, port.Port(), cfg.Database)
					}),
				),
				Tmpfs: map[string]string{
					"/var/lib/postgresql/data": "rw,noexec,nosuid,size=1024m",
				},
			},
			Started: true,
		})
	require.NoError(t, err, "Failed to start postgres container")

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, nat.Port(cfg.Port))
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.Username, cfg.Password, host, port.Port(), cfg.Database)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err, "Failed to parse pool config")

	// Limit connections for tests
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	require.NoError(t, err, "Failed to create pgx pool")

	// database/sql view over the same pool, for migrations and raw SQL
	db := stdlib.OpenDBFromPool(pool)
	require.NoError(t, db.Ping(), "Failed to ping test database")

	gormDB, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err, "Failed to create GORM connection")

	testDB := &TestDatabase{
		Container: container,
		DB:        db,
		GormDB:    gormDB,
		PgxPool:   pool,
		DSN:       dsn,
		t:         t,
	}

	t.Cleanup(func() {
		testDB.Cleanup()
	})

	return testDB
}

// RunMigrations applies the embedded facts store migrations
func (td *TestDatabase) RunMigrations() error {
	migrator, err := migrations.New(td.DB, zap.NewNop())
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := migrator.Up(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// SeedRecalls inserts recall rows used by repository and API tests
func (td *TestDatabase) SeedRecalls() error {
	_, err := td.DB.Exec(`
		INSERT INTO recall_facts (key, status, updated_at)
		VALUES
			('romaine lettuce', 'recalled', NOW()),
			('sunrise farms', 'recalled', NOW()),
			('basmati rice', 'safe', NOW())
		ON CONFLICT (key) DO UPDATE SET status = EXCLUDED.status
	`)
	if err != nil {
		return fmt.Errorf("failed to seed recall facts: %w", err)
	}
	return nil
}

// TruncateFacts removes all rows from the facts tables. Note that this
// also drops the residue reference rows the migrations seeded.
func (td *TestDatabase) TruncateFacts() error {
	for _, table := range []string{"recall_facts", "residue_facts"} {
		if _, err := td.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}
	return nil
}

// Cleanup closes all connections and stops the container
func (td *TestDatabase) Cleanup() {
	ctx := context.Background()

	if td.GormDB != nil {
		if sqlDB, err := td.GormDB.DB(); err == nil {
			sqlDB.Close()
		}
	}

	if td.DB != nil {
		td.DB.Close()
	}

	if td.PgxPool != nil {
		td.PgxPool.Close()
	}

	if td.Container != nil {
		if err := td.Container.Terminate(ctx); err != nil {
			td.t.Logf("Failed to terminate postgres container: %v", err)
		}
	}
}

// TestDBSuite provides a test suite with facts store setup
type TestDBSuite struct {
	DB     *TestDatabase
	Logger *zap.Logger
	Config *config.Config
}

// SetupSuite initializes the test suite
func (suite *TestDBSuite) SetupSuite(t *testing.T) {
	suite.Logger = zap.NewNop()

	suite.Config = &config.Config{
		Database: config.DatabaseConfig{
			Driver:          "postgres",
			Host:            "localhost",
			Port:            5432,
			Database:        "cartwise_test",
			Username:        "test_user",
			Password:        "test_password",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
		},
		Auth: config.AuthConfig{
			JWTSecret:  "test-secret-key-for-testing-only",
			TokenTTL:   time.Hour,
			BCryptCost: 4, // Lower cost for faster tests
		},
	}

	suite.DB = SetupTestDatabase(t)
	err := suite.DB.RunMigrations()
	require.NoError(t, err, "Failed to run migrations")
}

// TearDownTest cleans up after each test
func (suite *TestDBSuite) TearDownTest() {
	if suite.DB != nil {
		suite.DB.TruncateFacts()
	}
}

// DatabaseHelper provides helper methods for facts store testing
type DatabaseHelper struct {
	db *TestDatabase
}

// NewDatabaseHelper creates a new database helper
func NewDatabaseHelper(db *TestDatabase) *DatabaseHelper {
	return &DatabaseHelper{db: db}
}

// InsertRecall upserts one recall row
func (h *DatabaseHelper) InsertRecall(key, status string) error {
	_, err := h.db.DB.Exec(`
		INSERT INTO recall_facts (key, status, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET status = EXCLUDED.status, updated_at = NOW()
	`, key, status)
	return err
}

// InsertResidue upserts one residue row
func (h *DatabaseHelper) InsertResidue(key, category string) error {
	_, err := h.db.DB.Exec(`
		INSERT INTO residue_facts (ingredient_key, category, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (ingredient_key) DO UPDATE SET category = EXCLUDED.category, updated_at = NOW()
	`, key, category)
	return err
}

// CountRecords counts records in a table
func (h *DatabaseHelper) CountRecords(table string) (int, error) {
	var count int
	err := h.db.DB.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count)
	return count, err
}

// RecordExists checks if a record exists with given conditions
func (h *DatabaseHelper) RecordExists(table, whereClause string, args ...interface{}) (bool, error) {
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s)", table, whereClause)
	err := h.db.DB.QueryRow(query, args...).Scan(&exists)
	return exists, err
}

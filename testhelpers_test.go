package mysqlmcp_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	mysqlmcp "github.com/Wang4XD/MySQL-MCP-Server"
)

const (
	testImage    = "mysql:8.4"
	testDatabase = "gateway_test"
	testUser     = "gateway"
	testPassword = "gateway_pw"
)

// testDB holds the shared MySQL container for integration tests. The
// container is started once and reused across every test in the run; each
// test isolates itself through uniquely named tables instead of a
// dedicated database.
type testDB struct {
	container testcontainers.Container
	admin     *sqlx.DB // root connection for DDL and seed data
	dsn       string   // application DSN pointing at testDatabase
}

var (
	sharedDB     *testDB
	sharedDBOnce sync.Once
	sharedDBErr  error
)

// getTestDB returns the shared MySQL container, starting it on first use.
// Skipped in short mode because it requires Docker.
func getTestDB(t *testing.T) *testDB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode (requires Docker)")
	}

	sharedDBOnce.Do(func() {
		sharedDB, sharedDBErr = startTestDB()
	})
	if sharedDBErr != nil {
		t.Fatalf("failed to start test database: %v", sharedDBErr)
	}
	return sharedDB
}

func startTestDB() (*testDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        testImage,
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "root_pw",
			"MYSQL_DATABASE":      testDatabase,
			"MYSQL_USER":          testUser,
			"MYSQL_PASSWORD":      testPassword,
		},
		// mysqld logs the line once for the init-phase server and once for
		// the real one; only the second means the port is live.
		WaitingFor: wait.ForLog("ready for connections").
			WithOccurrence(2).
			WithStartupTimeout(120 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "3306")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	adminDSN := fmt.Sprintf("root:root_pw@tcp(%s:%s)/%s?parseTime=true", host, port.Port(), testDatabase)
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s", testUser, testPassword, host, port.Port(), testDatabase)

	var admin *sqlx.DB
	for i := 0; i < 10; i++ {
		admin, err = sqlx.ConnectContext(ctx, "mysql", adminDSN)
		if err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect as root: %w", err)
	}

	return &testDB{container: container, admin: admin, dsn: dsn}, nil
}

// mustExec runs DDL or seed SQL through the root connection, outside the
// gateway's read-only pipeline.
func mustExec(t *testing.T, db *testDB, statements ...string) {
	t.Helper()
	for _, stmt := range statements {
		if _, err := db.admin.Exec(stmt); err != nil {
			t.Fatalf("setup statement failed: %v\nstatement: %s", err, stmt)
		}
	}
}

// dropOnCleanup drops the given tables when the test finishes, children
// before parents so foreign keys do not block the drop.
func dropOnCleanup(t *testing.T, db *testDB, tables ...string) {
	t.Helper()
	t.Cleanup(func() {
		for _, table := range tables {
			_, _ = db.admin.Exec("DROP TABLE IF EXISTS `" + table + "`")
		}
	})
}

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

func defaultConfig() mysqlmcp.Config {
	return mysqlmcp.Config{
		Pool: mysqlmcp.PoolConfig{MaxConns: 5},
		Query: mysqlmcp.QueryConfig{
			DefaultTimeoutSeconds:    30,
			ReflectTimeoutSeconds:    10,
			StatisticsTimeoutSeconds: 60,
		},
	}
}

// newTestInstance creates an engine connected to the shared container.
func newTestInstance(t *testing.T, config mysqlmcp.Config) *mysqlmcp.MySQLMcp {
	t.Helper()
	db := getTestDB(t)
	ctx := context.Background()
	m, err := mysqlmcp.New(ctx, db.dsn, config, testLogger())
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	t.Cleanup(func() { _ = m.Close(ctx) })
	return m
}

// newTestInstanceWithHooks creates an engine with command hooks attached.
func newTestInstanceWithHooks(t *testing.T, config mysqlmcp.Config, hooks mysqlmcp.ServerHooksConfig) *mysqlmcp.MySQLMcp {
	t.Helper()
	db := getTestDB(t)
	ctx := context.Background()
	m, err := mysqlmcp.New(ctx, db.dsn, config, testLogger(), mysqlmcp.WithServerHooks(hooks))
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	t.Cleanup(func() { _ = m.Close(ctx) })
	return m
}

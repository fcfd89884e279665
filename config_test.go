package mysqlmcp_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	mysqlmcp "github.com/Wang4XD/MySQL-MCP-Server"
)

// dummyDSN parses cleanly, so tests that expect a validation panic never
// reach the network.
const dummyDSN = "user:pass@tcp(localhost:3306)/testdb"

func configTestLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

// validConfig returns a minimal valid Config.
func validConfig() mysqlmcp.Config {
	return mysqlmcp.Config{
		Pool: mysqlmcp.PoolConfig{MaxConns: 5},
		Query: mysqlmcp.QueryConfig{
			DefaultTimeoutSeconds:    30,
			ReflectTimeoutSeconds:    10,
			StatisticsTimeoutSeconds: 60,
		},
	}
}

// expectPanic calls f and asserts that it panics with a message containing substr.
func expectPanic(t *testing.T, substr string, f func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic containing %q, but no panic occurred", substr)
		}
		msg := ""
		switch v := r.(type) {
		case string:
			msg = v
		case error:
			msg = v.Error()
		default:
			t.Fatalf("expected panic string/error containing %q, got %T: %v", substr, r, r)
		}
		if !strings.Contains(msg, substr) {
			t.Fatalf("expected panic containing %q, got %q", substr, msg)
		}
	}()
	f()
}

// expectNoPanic calls f and asserts that it does NOT panic.
func expectNoPanic(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("unexpected panic: %v", r)
		}
	}()
	f()
}

func TestConfigValidation_EmptyDSN(t *testing.T) {
	t.Parallel()
	expectPanic(t, "dsn must be non-empty", func() {
		mysqlmcp.New(context.Background(), "", validConfig(), configTestLogger())
	})
}

func TestConfigValidation_ZeroMaxConns(t *testing.T) {
	t.Parallel()
	config := validConfig()
	config.Pool.MaxConns = 0

	expectPanic(t, "pool.max_conns", func() {
		mysqlmcp.New(context.Background(), dummyDSN, config, configTestLogger())
	})
}

func TestConfigValidation_NegativeMaxIdleConns(t *testing.T) {
	t.Parallel()
	config := validConfig()
	config.Pool.MaxIdleConns = -1

	expectPanic(t, "pool.max_idle_conns", func() {
		mysqlmcp.New(context.Background(), dummyDSN, config, configTestLogger())
	})
}

func TestConfigValidation_ZeroDefaultTimeout(t *testing.T) {
	t.Parallel()
	config := validConfig()
	config.Query.DefaultTimeoutSeconds = 0

	expectPanic(t, "default_timeout_seconds", func() {
		mysqlmcp.New(context.Background(), dummyDSN, config, configTestLogger())
	})
}

func TestConfigValidation_ZeroReflectTimeout(t *testing.T) {
	t.Parallel()
	config := validConfig()
	config.Query.ReflectTimeoutSeconds = 0

	expectPanic(t, "reflect_timeout_seconds", func() {
		mysqlmcp.New(context.Background(), dummyDSN, config, configTestLogger())
	})
}

func TestConfigValidation_ZeroStatisticsTimeout(t *testing.T) {
	t.Parallel()
	config := validConfig()
	config.Query.StatisticsTimeoutSeconds = 0

	expectPanic(t, "statistics_timeout_seconds", func() {
		mysqlmcp.New(context.Background(), dummyDSN, config, configTestLogger())
	})
}

func TestConfigValidation_NegativeTimeout(t *testing.T) {
	t.Parallel()
	config := validConfig()
	config.Query.DefaultTimeoutSeconds = -1

	expectPanic(t, "default_timeout_seconds", func() {
		mysqlmcp.New(context.Background(), dummyDSN, config, configTestLogger())
	})
}

func TestConfigValidation_NegativeDefaultRowLimit(t *testing.T) {
	t.Parallel()
	config := validConfig()
	config.Guard.DefaultRowLimit = -1

	expectPanic(t, "guard.default_row_limit", func() {
		mysqlmcp.New(context.Background(), dummyDSN, config, configTestLogger())
	})
}

func TestConfigValidation_NegativeMaxSQLLength(t *testing.T) {
	t.Parallel()
	config := validConfig()
	config.Guard.MaxSQLLength = -1

	expectPanic(t, "guard.max_sql_length", func() {
		mysqlmcp.New(context.Background(), dummyDSN, config, configTestLogger())
	})
}

func TestConfigValidation_NegativeMaxResultLength(t *testing.T) {
	t.Parallel()
	config := validConfig()
	config.Query.MaxResultLength = -1

	expectPanic(t, "query.max_result_length", func() {
		mysqlmcp.New(context.Background(), dummyDSN, config, configTestLogger())
	})
}

func TestConfigValidation_InvalidSanitizationRegex(t *testing.T) {
	t.Parallel()
	config := validConfig()
	config.Sanitization = []mysqlmcp.SanitizationRule{
		{Pattern: "[invalid(regex", Replacement: "***"},
	}

	expectPanic(t, "regex", func() {
		mysqlmcp.New(context.Background(), dummyDSN, config, configTestLogger())
	})
}

func TestConfigValidation_InvalidErrorPromptRegex(t *testing.T) {
	t.Parallel()
	config := validConfig()
	config.ErrorPrompts = []mysqlmcp.ErrorPromptRule{
		{Pattern: "[invalid(regex", Message: "help"},
	}

	expectPanic(t, "regex", func() {
		mysqlmcp.New(context.Background(), dummyDSN, config, configTestLogger())
	})
}

func TestConfigValidation_TimeoutRuleZeroSeconds(t *testing.T) {
	t.Parallel()
	config := validConfig()
	config.Query.TimeoutRules = []mysqlmcp.TimeoutRule{
		{Pattern: "(?i)slow", TimeoutSeconds: 0},
	}

	expectPanic(t, "timeout_rule", func() {
		mysqlmcp.New(context.Background(), dummyDSN, config, configTestLogger())
	})
}

func TestConfigValidation_DSNWithoutDatabase(t *testing.T) {
	t.Parallel()
	expectPanic(t, "must name a database", func() {
		mysqlmcp.New(context.Background(), "user:pass@tcp(localhost:3306)/", validConfig(), configTestLogger())
	})
}

func TestConfigValidation_UnparseableDSNReturnsError(t *testing.T) {
	t.Parallel()
	expectNoPanic(t, func() {
		_, err := mysqlmcp.New(context.Background(), "://not a dsn", validConfig(), configTestLogger())
		if err == nil {
			t.Error("expected error for unparseable DSN")
		}
	})
}

func TestConfigValidation_InvalidConnMaxLifetime(t *testing.T) {
	t.Parallel()
	config := validConfig()
	config.Pool.ConnMaxLifetime = "not-a-duration"

	expectPanic(t, "conn_max_lifetime", func() {
		mysqlmcp.New(context.Background(), dummyDSN, config, configTestLogger())
	})
}

func TestConfigValidation_InvalidConnMaxIdleTime(t *testing.T) {
	t.Parallel()
	config := validConfig()
	config.Pool.ConnMaxIdleTime = "soon"

	expectPanic(t, "conn_max_idle_time", func() {
		mysqlmcp.New(context.Background(), dummyDSN, config, configTestLogger())
	})
}

func TestConfigValidation_ZeroHookDefaultTimeout(t *testing.T) {
	t.Parallel()
	config := validConfig()
	config.DefaultHookTimeoutSeconds = 0
	config.BeforeQueryHooks = []mysqlmcp.BeforeQueryHookEntry{
		{Name: "test", Hook: passthroughHook{}},
	}

	expectPanic(t, "default_hook_timeout_seconds", func() {
		mysqlmcp.New(context.Background(), dummyDSN, config, configTestLogger())
	})
}

func TestConfigValidation_NegativeHookTimeout(t *testing.T) {
	t.Parallel()
	config := validConfig()
	config.DefaultHookTimeoutSeconds = 5
	config.BeforeQueryHooks = []mysqlmcp.BeforeQueryHookEntry{
		{Name: "bad", Timeout: -1 * time.Second, Hook: passthroughHook{}},
	}

	expectPanic(t, "negative timeout", func() {
		mysqlmcp.New(context.Background(), dummyDSN, config, configTestLogger())
	})
}

func TestConfigValidation_NilHook(t *testing.T) {
	t.Parallel()
	config := validConfig()
	config.DefaultHookTimeoutSeconds = 5
	config.BeforeQueryHooks = []mysqlmcp.BeforeQueryHookEntry{
		{Name: "nil_hook", Hook: nil},
	}

	expectPanic(t, "nil Hook", func() {
		mysqlmcp.New(context.Background(), dummyDSN, config, configTestLogger())
	})
}

func TestConfigValidation_GoAndCommandHooksMutuallyExclusive(t *testing.T) {
	t.Parallel()
	config := validConfig()
	config.DefaultHookTimeoutSeconds = 5
	config.BeforeQueryHooks = []mysqlmcp.BeforeQueryHookEntry{
		{Name: "go_hook", Hook: passthroughHook{}},
	}

	expectPanic(t, "mutually exclusive", func() {
		mysqlmcp.New(context.Background(), dummyDSN, config, configTestLogger(),
			mysqlmcp.WithServerHooks(mysqlmcp.ServerHooksConfig{
				BeforeQuery: []mysqlmcp.HookEntry{
					{Pattern: ".*", Command: "/bin/true"},
				},
			}))
	})
}

func TestConfigValidation_CommandHooksRequireDefaultTimeout(t *testing.T) {
	t.Parallel()
	config := validConfig()
	config.DefaultHookTimeoutSeconds = 0

	expectPanic(t, "default_hook_timeout_seconds", func() {
		mysqlmcp.New(context.Background(), dummyDSN, config, configTestLogger(),
			mysqlmcp.WithServerHooks(mysqlmcp.ServerHooksConfig{
				BeforeQuery: []mysqlmcp.HookEntry{
					{Pattern: ".*", Command: "/bin/true"},
				},
			}))
	})
}

func TestConfigValidation_CommandHookInvalidRegex(t *testing.T) {
	t.Parallel()
	config := validConfig()
	config.DefaultHookTimeoutSeconds = 5

	expectPanic(t, "invalid regex", func() {
		mysqlmcp.New(context.Background(), dummyDSN, config, configTestLogger(),
			mysqlmcp.WithServerHooks(mysqlmcp.ServerHooksConfig{
				BeforeQuery: []mysqlmcp.HookEntry{
					{Pattern: "[invalid", Command: "/bin/true"},
				},
			}))
	})
}

func TestConfigValidation_HookDefaultTimeoutNotRequiredWithoutHooks(t *testing.T) {
	t.Parallel()
	// No hooks configured, DefaultHookTimeoutSeconds omitted. New must not
	// panic; it will return a connection error for the dummy DSN instead.
	config := validConfig()
	config.DefaultHookTimeoutSeconds = 0

	expectNoPanic(t, func() {
		mysqlmcp.New(context.Background(), dummyDSN, config, configTestLogger())
	})
}

func TestConfigValidation_HookTimeoutFallbackAccepted(t *testing.T) {
	t.Parallel()
	// A per-hook timeout of 0 falls back to the default; the config is
	// valid. The fallback behavior itself is covered by the hook unit tests.
	config := validConfig()
	config.DefaultHookTimeoutSeconds = 10
	config.BeforeQueryHooks = []mysqlmcp.BeforeQueryHookEntry{
		{Name: "test", Hook: passthroughHook{}},
	}

	expectNoPanic(t, func() {
		mysqlmcp.New(context.Background(), dummyDSN, config, configTestLogger())
	})
}

func TestConfigYAML_FieldMapping(t *testing.T) {
	t.Parallel()
	configYAML := `
connection:
  host: db.internal
  port: 3307
  user: reporting
  database: orders
server:
  transport: http
  port: 9000
  health_check_enabled: true
  health_check_path: /livez
logging:
  level: debug
  format: text
  output: stderr
pool:
  max_conns: 20
  max_idle_conns: 5
  conn_max_lifetime: 1h
guard:
  default_row_limit: 50
  max_sql_length: 50000
query:
  default_timeout_seconds: 15
  reflect_timeout_seconds: 5
  statistics_timeout_seconds: 30
  max_result_length: 80000
  timeout_rules:
    - pattern: "(?i)join"
      timeout_seconds: 120
read_only_session: true
timezone: UTC
default_hook_timeout_seconds: 3
error_prompts:
  - pattern: "(?i)access denied"
    message: Check the grants.
sanitization:
  - pattern: '\d{16}'
    replacement: "[CARD]"
    description: mask card numbers
server_hooks:
  before_query:
    - pattern: "(?i)orders"
      command: /usr/local/bin/audit
      args: ["--log", "--json"]
      timeout_seconds: 5
`

	var config mysqlmcp.ServerConfig
	if err := yaml.Unmarshal([]byte(configYAML), &config); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if config.Connection.Host != "db.internal" || config.Connection.Port != 3307 {
		t.Errorf("connection = %+v", config.Connection)
	}
	if config.Connection.Database != "orders" {
		t.Errorf("connection.database = %q, want orders", config.Connection.Database)
	}
	if config.Server.Transport != "http" || config.Server.Port != 9000 {
		t.Errorf("server = %+v", config.Server)
	}
	if config.Server.HealthCheckPath != "/livez" {
		t.Errorf("server.health_check_path = %q", config.Server.HealthCheckPath)
	}
	if config.Logging.Level != "debug" || config.Logging.Format != "text" {
		t.Errorf("logging = %+v", config.Logging)
	}
	if config.Pool.MaxConns != 20 || config.Pool.ConnMaxLifetime != "1h" {
		t.Errorf("pool = %+v", config.Pool)
	}
	if config.Guard.DefaultRowLimit != 50 || config.Guard.MaxSQLLength != 50000 {
		t.Errorf("guard = %+v", config.Guard)
	}
	if config.Query.DefaultTimeoutSeconds != 15 || config.Query.StatisticsTimeoutSeconds != 30 {
		t.Errorf("query = %+v", config.Query)
	}
	if len(config.Query.TimeoutRules) != 1 || config.Query.TimeoutRules[0].TimeoutSeconds != 120 {
		t.Errorf("timeout_rules = %+v", config.Query.TimeoutRules)
	}
	if !config.ReadOnlySession {
		t.Error("read_only_session = false, want true")
	}
	if config.Timezone != "UTC" {
		t.Errorf("timezone = %q, want UTC", config.Timezone)
	}
	if config.DefaultHookTimeoutSeconds != 3 {
		t.Errorf("default_hook_timeout_seconds = %d, want 3", config.DefaultHookTimeoutSeconds)
	}
	if len(config.ErrorPrompts) != 1 || config.ErrorPrompts[0].Message != "Check the grants." {
		t.Errorf("error_prompts = %+v", config.ErrorPrompts)
	}
	if len(config.Sanitization) != 1 || config.Sanitization[0].Replacement != "[CARD]" {
		t.Errorf("sanitization = %+v", config.Sanitization)
	}
	if len(config.ServerHooks.BeforeQuery) != 1 {
		t.Fatalf("server_hooks.before_query = %+v, want 1 entry", config.ServerHooks.BeforeQuery)
	}
	hook := config.ServerHooks.BeforeQuery[0]
	if hook.Command != "/usr/local/bin/audit" || hook.TimeoutSeconds != 5 {
		t.Errorf("server_hooks.before_query[0] = %+v", hook)
	}
	if len(hook.Args) != 2 || hook.Args[0] != "--log" || hook.Args[1] != "--json" {
		t.Errorf("server_hooks.before_query[0].args = %v", hook.Args)
	}
}

func TestConfigYAML_PasswordNeverSerialized(t *testing.T) {
	t.Parallel()
	config := mysqlmcp.ServerConfig{}
	config.Connection.Host = "localhost"
	config.Connection.Password = "super-secret"

	data, err := yaml.Marshal(config)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if strings.Contains(string(data), "super-secret") {
		t.Fatalf("password leaked into YAML output:\n%s", data)
	}
}

// passthroughHook is the smallest valid Go hook.
type passthroughHook struct{}

func (passthroughHook) Run(_ context.Context, query string) (string, error) {
	return query, nil
}

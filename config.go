package mysqlmcp

import (
	"context"
	"time"
)

// Config is the base configuration used by library mode via New().
// Environment variables override YAML values for fields that carry both
// tags; secrets only ever come from the environment.
type Config struct {
	Pool         PoolConfig         `yaml:"pool"`
	Guard        GuardConfig        `yaml:"guard"`
	Query        QueryConfig        `yaml:"query"`
	ErrorPrompts []ErrorPromptRule  `yaml:"error_prompts"`
	Sanitization []SanitizationRule `yaml:"sanitization"`

	// ReadOnlySession sets transaction_read_only=1 on every pooled session,
	// so the server itself rejects writes that slip past the textual guard.
	ReadOnlySession bool `yaml:"read_only_session" env:"DB_READ_ONLY_SESSION" env-default:"true"`

	// Timezone sets the session time_zone variable when non-empty,
	// e.g. "UTC" or "+00:00".
	Timezone string `yaml:"timezone" env:"DB_TIMEZONE" env-default:""`

	// DefaultHookTimeoutSeconds bounds each before-query hook that does not
	// carry its own timeout. Required when hooks are configured.
	DefaultHookTimeoutSeconds int `yaml:"default_hook_timeout_seconds" env:"HOOK_DEFAULT_TIMEOUT_SECONDS" env-default:"0"`

	// Library mode: Go function hooks (not serializable).
	// Mutually exclusive with ServerConfig.ServerHooks.
	BeforeQueryHooks []BeforeQueryHookEntry `yaml:"-"`
}

// ServerConfig embeds Config and adds server-only fields for CLI mode.
type ServerConfig struct {
	Config      `yaml:",inline"`
	Connection  ConnectionConfig  `yaml:"connection"`
	Server      ServerSettings    `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	ServerHooks ServerHooksConfig `yaml:"server_hooks"`
}

// ServerHooksConfig declares external command hooks for CLI mode. Each
// entry names a program that receives the SQL on stdin and answers with
// a JSON verdict on stdout. Mutually exclusive with Config.BeforeQueryHooks.
type ServerHooksConfig struct {
	BeforeQuery []HookEntry `yaml:"before_query"`
}

// HookEntry configures one external command hook.
type HookEntry struct {
	// Pattern gates the hook: it only runs when the regex matches the
	// current SQL. Empty matches everything.
	Pattern string `yaml:"pattern"`
	// Command is the program path. Args are passed verbatim, there is no
	// shell interpretation.
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	// TimeoutSeconds bounds this hook; 0 falls back to
	// Config.DefaultHookTimeoutSeconds.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// ConnectionConfig holds database connection parameters used by CLI mode.
// The password is environment-only and never written to the config file.
type ConnectionConfig struct {
	Host     string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"DB_PORT" env-default:"3306"`
	User     string `yaml:"user" env:"DB_USER" env-default:""`
	Password string `yaml:"-" env:"DB_PASSWORD"`
	Database string `yaml:"database" env:"DB_NAME" env-default:""`
}

// PoolConfig holds connection pool settings. Duration fields use Go
// duration syntax ("30m", "1h").
type PoolConfig struct {
	MaxConns        int    `yaml:"max_conns" env:"DB_POOL_MAX_CONNS" env-default:"10"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_POOL_MAX_IDLE_CONNS" env-default:"2"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_POOL_CONN_MAX_LIFETIME" env-default:"30m"`
	ConnMaxIdleTime string `yaml:"conn_max_idle_time" env:"DB_POOL_CONN_MAX_IDLE_TIME" env-default:""`
}

// GuardConfig holds read-only guard settings.
type GuardConfig struct {
	// DefaultRowLimit is appended as "LIMIT n" to SELECTs that carry no
	// LIMIT clause when the caller did not pick a bound. Defaults to 100.
	DefaultRowLimit int `yaml:"default_row_limit" env:"GUARD_DEFAULT_ROW_LIMIT" env-default:"0"`
	// MaxSQLLength rejects statements longer than this many bytes.
	// Defaults to 100000.
	MaxSQLLength int `yaml:"max_sql_length" env:"GUARD_MAX_SQL_LENGTH" env-default:"0"`
}

// QueryConfig holds execution settings applied at the MCP transport layer.
type QueryConfig struct {
	// DefaultTimeoutSeconds bounds execute_query calls unless a TimeoutRule
	// matches the SQL.
	DefaultTimeoutSeconds int `yaml:"default_timeout_seconds" env:"QUERY_DEFAULT_TIMEOUT_SECONDS" env-default:"30"`
	// ReflectTimeoutSeconds bounds the schema reflection tools
	// (list_tables, describe_table, list_relationships, describe_database).
	ReflectTimeoutSeconds int `yaml:"reflect_timeout_seconds" env:"QUERY_REFLECT_TIMEOUT_SECONDS" env-default:"10"`
	// StatisticsTimeoutSeconds bounds table_statistics, which runs one
	// aggregate per column.
	StatisticsTimeoutSeconds int `yaml:"statistics_timeout_seconds" env:"QUERY_STATISTICS_TIMEOUT_SECONDS" env-default:"60"`
	// MaxResultLength truncates query output beyond this many characters.
	// Defaults to 100000.
	MaxResultLength int           `yaml:"max_result_length" env:"QUERY_MAX_RESULT_LENGTH" env-default:"0"`
	TimeoutRules    []TimeoutRule `yaml:"timeout_rules"`
}

// TimeoutRule maps a SQL pattern to a specific timeout duration.
type TimeoutRule struct {
	Pattern        string `yaml:"pattern"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// ErrorPromptRule maps an error message pattern to a guidance message
// appended to relayed execution errors.
type ErrorPromptRule struct {
	Pattern string `yaml:"pattern"`
	Message string `yaml:"message"`
}

// SanitizationRule defines a regex-based replacement applied to result
// cell values before they leave the gateway.
type SanitizationRule struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
	Description string `yaml:"description"`
}

// ServerSettings holds transport settings for CLI mode.
type ServerSettings struct {
	// Transport is "stdio" (default) or "http".
	Transport string `yaml:"transport" env:"SERVER_TRANSPORT" env-default:"stdio"`
	// Port is the HTTP listen port when Transport is "http".
	Port               int    `yaml:"port" env:"SERVER_PORT" env-default:"8372"`
	HealthCheckEnabled bool   `yaml:"health_check_enabled" env:"SERVER_HEALTH_CHECK_ENABLED" env-default:"true"`
	HealthCheckPath    string `yaml:"health_check_path" env:"SERVER_HEALTH_CHECK_PATH" env-default:"/healthz"`
}

// LoggingConfig holds logging settings for CLI mode.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`   // debug, info, warn, error
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"` // json, text
	Output string `yaml:"output" env:"LOG_OUTPUT" env-default:"stderr"` // stderr, stdout, or file path
}

// BeforeQueryHook can inspect and modify validated queries before
// execution. Returning an error vetoes the query.
type BeforeQueryHook interface {
	Run(ctx context.Context, query string) (string, error)
}

// BeforeQueryHookEntry wraps a BeforeQueryHook with metadata.
type BeforeQueryHookEntry struct {
	Name    string
	Timeout time.Duration
	Hook    BeforeQueryHook
}

package mysqlmcp

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/Wang4XD/MySQL-MCP-Server/internal/errprompt"
	"github.com/Wang4XD/MySQL-MCP-Server/internal/guard"
	"github.com/Wang4XD/MySQL-MCP-Server/internal/hooks"
	"github.com/Wang4XD/MySQL-MCP-Server/internal/sanitize"
	"github.com/Wang4XD/MySQL-MCP-Server/internal/timeout"
)

// MySQLMcp is the core engine providing the Query, ListTables,
// DescribeTable, ListRelationships, DescribeDatabase, and TableStatistics
// operations. All exported methods are safe for concurrent use from
// multiple goroutines; each operation holds one pool slot for its full
// duration and releases it on every exit path.
type MySQLMcp struct {
	config      Config
	db          *sqlx.DB
	schema      string // database name from the DSN, used in catalog lookups
	semaphore   chan struct{}
	guard       *guard.Guard
	cmdHooks    *hooks.Runner          // command-based hooks (CLI mode)
	beforeHooks []BeforeQueryHookEntry // Go function hooks (library mode)
	sanitizer   *sanitize.Sanitizer
	errPrompts  *errprompt.Matcher
	timeouts    *timeout.Manager
	logger      zerolog.Logger

	closeOnce sync.Once
}

// Option is a functional option for New().
type Option func(*options)

type options struct {
	serverHooks *ServerHooksConfig
}

// WithServerHooks passes command-based hook configuration to the engine.
// Mutually exclusive with Config.BeforeQueryHooks (Go hooks).
func WithServerHooks(h ServerHooksConfig) Option {
	return func(o *options) {
		o.serverHooks = &h
	}
}

// New creates a new MySQLMcp instance. dsn is a go-sql-driver DSN (must
// include credentials and a database name); Config.Connection fields are
// ignored in library mode; the CLI is responsible for building the DSN.
//
// New panics on invalid config and returns an error only for runtime
// failures. The pool is pinged before New returns, so an unreachable
// database fails here (wrapping ErrConnect) rather than on the first
// operation.
func New(ctx context.Context, dsn string, config Config, logger zerolog.Logger, opts ...Option) (*MySQLMcp, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	// --- Config validation (panics on invalid config) ---

	if dsn == "" {
		panic("mysqlmcp: dsn must be non-empty")
	}
	if config.Pool.MaxConns <= 0 {
		panic("mysqlmcp: pool.max_conns must be > 0")
	}
	if config.Pool.MaxIdleConns < 0 {
		panic("mysqlmcp: pool.max_idle_conns must be >= 0")
	}
	if config.Query.DefaultTimeoutSeconds <= 0 {
		panic("mysqlmcp: query.default_timeout_seconds must be > 0")
	}
	if config.Query.ReflectTimeoutSeconds <= 0 {
		panic("mysqlmcp: query.reflect_timeout_seconds must be > 0")
	}
	if config.Query.StatisticsTimeoutSeconds <= 0 {
		panic("mysqlmcp: query.statistics_timeout_seconds must be > 0")
	}

	// Apply defaults for zero values
	if config.Guard.DefaultRowLimit == 0 {
		config.Guard.DefaultRowLimit = 100
	}
	if config.Guard.MaxSQLLength == 0 {
		config.Guard.MaxSQLLength = 100000
	}
	if config.Query.MaxResultLength == 0 {
		config.Query.MaxResultLength = 100000
	}
	if config.Guard.DefaultRowLimit < 0 {
		panic("mysqlmcp: guard.default_row_limit must be > 0")
	}
	if config.Guard.MaxSQLLength < 0 {
		panic("mysqlmcp: guard.max_sql_length must be > 0")
	}
	if config.Query.MaxResultLength < 0 {
		panic("mysqlmcp: query.max_result_length must be > 0")
	}

	// Go hooks and command hooks are mutually exclusive.
	hasGoHooks := len(config.BeforeQueryHooks) > 0
	hasCmdHooks := o.serverHooks != nil && len(o.serverHooks.BeforeQuery) > 0
	if hasGoHooks && hasCmdHooks {
		panic("mysqlmcp: Go hooks (Config.BeforeQueryHooks) and command hooks (WithServerHooks) are mutually exclusive")
	}

	if hasGoHooks && config.DefaultHookTimeoutSeconds <= 0 {
		panic("mysqlmcp: default_hook_timeout_seconds must be > 0 when hooks are configured")
	}
	for _, entry := range config.BeforeQueryHooks {
		if entry.Timeout < 0 {
			panic(fmt.Sprintf("mysqlmcp: before_query hook %q has negative timeout", entry.Name))
		}
		if entry.Hook == nil {
			panic(fmt.Sprintf("mysqlmcp: before_query hook %q has nil Hook", entry.Name))
		}
	}
	for _, rule := range config.Query.TimeoutRules {
		if rule.TimeoutSeconds <= 0 {
			panic(fmt.Sprintf("mysqlmcp: timeout_rule with pattern %q has timeout_seconds <= 0", rule.Pattern))
		}
	}

	// --- Initialize internal components ---
	// Everything that can panic on bad config is built here, before any
	// network I/O, so an invalid config always fails the same way no
	// matter whether the database is reachable.

	san, err := sanitize.New(mapSanitizationRules(config.Sanitization))
	if err != nil {
		panic(fmt.Sprintf("mysqlmcp: %v", err))
	}
	matcher, err := errprompt.New(mapErrorPromptRules(config.ErrorPrompts))
	if err != nil {
		panic(fmt.Sprintf("mysqlmcp: %v", err))
	}

	timeoutRules := make([]timeout.Rule, len(config.Query.TimeoutRules))
	for i, r := range config.Query.TimeoutRules {
		timeoutRules[i] = timeout.Rule{
			Pattern: r.Pattern,
			Timeout: time.Duration(r.TimeoutSeconds) * time.Second,
		}
	}
	tmgr := timeout.NewManager(timeout.Config{
		DefaultTimeout: time.Duration(config.Query.DefaultTimeoutSeconds) * time.Second,
		Rules:          timeoutRules,
	})

	// NewRunner panics on a zero default timeout or an invalid pattern.
	var cmdHooks *hooks.Runner
	if hasCmdHooks {
		entries := make([]hooks.Entry, len(o.serverHooks.BeforeQuery))
		for i, e := range o.serverHooks.BeforeQuery {
			entries[i] = hooks.Entry{
				Pattern: e.Pattern,
				Command: e.Command,
				Args:    e.Args,
				Timeout: time.Duration(e.TimeoutSeconds) * time.Second,
			}
		}
		cmdHooks = hooks.NewRunner(hooks.Config{
			DefaultTimeout: time.Duration(config.DefaultHookTimeoutSeconds) * time.Second,
			BeforeQuery:    entries,
		}, logger)
	}

	// --- Configure the driver ---

	dsnConfig, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	if dsnConfig.DBName == "" {
		panic("mysqlmcp: dsn must name a database")
	}

	// The gateway depends on time.Time scanning and on single-statement
	// semantics, so these are forced regardless of the caller's DSN.
	dsnConfig.ParseTime = true
	dsnConfig.MultiStatements = false

	if config.ReadOnlySession || config.Timezone != "" {
		if dsnConfig.Params == nil {
			dsnConfig.Params = make(map[string]string)
		}
		if config.ReadOnlySession {
			dsnConfig.Params["transaction_read_only"] = "1"
		}
		if config.Timezone != "" {
			escaped := strings.ReplaceAll(config.Timezone, "'", "''")
			dsnConfig.Params["time_zone"] = "'" + escaped + "'"
		}
	}

	// --- Open and configure the pool ---

	db, err := sqlx.Open("mysql", dsnConfig.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open connection pool: %w", err)
	}
	db.SetMaxOpenConns(config.Pool.MaxConns)
	db.SetMaxIdleConns(config.Pool.MaxIdleConns)

	if config.Pool.ConnMaxLifetime != "" {
		d, err := time.ParseDuration(config.Pool.ConnMaxLifetime)
		if err != nil {
			panic(fmt.Sprintf("mysqlmcp: invalid pool.conn_max_lifetime %q: %v", config.Pool.ConnMaxLifetime, err))
		}
		db.SetConnMaxLifetime(d)
	}
	if config.Pool.ConnMaxIdleTime != "" {
		d, err := time.ParseDuration(config.Pool.ConnMaxIdleTime)
		if err != nil {
			panic(fmt.Sprintf("mysqlmcp: invalid pool.conn_max_idle_time %q: %v", config.Pool.ConnMaxIdleTime, err))
		}
		db.SetConnMaxIdleTime(d)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}

	return &MySQLMcp{
		config:      config,
		db:          db,
		schema:      dsnConfig.DBName,
		semaphore:   make(chan struct{}, config.Pool.MaxConns),
		guard:       guard.NewGuard(guard.Config{DefaultLimit: config.Guard.DefaultRowLimit, MaxSQLLength: config.Guard.MaxSQLLength}),
		cmdHooks:    cmdHooks,
		beforeHooks: config.BeforeQueryHooks,
		sanitizer:   san,
		errPrompts:  matcher,
		timeouts:    tmgr,
		logger:      logger,
	}, nil
}

// newWithDB builds an engine around an existing database handle. Used by
// tests to run the pipeline against a stub connection; skips the DSN and
// ping steps of New but applies the same defaults and component wiring.
func newWithDB(db *sqlx.DB, schema string, config Config, logger zerolog.Logger) *MySQLMcp {
	if config.Pool.MaxConns <= 0 {
		config.Pool.MaxConns = 1
	}
	if config.Guard.DefaultRowLimit == 0 {
		config.Guard.DefaultRowLimit = 100
	}
	if config.Guard.MaxSQLLength == 0 {
		config.Guard.MaxSQLLength = 100000
	}
	if config.Query.MaxResultLength == 0 {
		config.Query.MaxResultLength = 100000
	}
	if config.Query.DefaultTimeoutSeconds == 0 {
		config.Query.DefaultTimeoutSeconds = 30
	}

	san, err := sanitize.New(mapSanitizationRules(config.Sanitization))
	if err != nil {
		panic(fmt.Sprintf("mysqlmcp: %v", err))
	}
	matcher, err := errprompt.New(mapErrorPromptRules(config.ErrorPrompts))
	if err != nil {
		panic(fmt.Sprintf("mysqlmcp: %v", err))
	}

	return &MySQLMcp{
		config:      config,
		db:          db,
		schema:      schema,
		semaphore:   make(chan struct{}, config.Pool.MaxConns),
		guard:       guard.NewGuard(guard.Config{DefaultLimit: config.Guard.DefaultRowLimit, MaxSQLLength: config.Guard.MaxSQLLength}),
		beforeHooks: config.BeforeQueryHooks,
		sanitizer:   san,
		errPrompts:  matcher,
		timeouts: timeout.NewManager(timeout.Config{
			DefaultTimeout: time.Duration(config.Query.DefaultTimeoutSeconds) * time.Second,
		}),
		logger: logger,
	}
}

// acquireSlot blocks until a pool slot is free, or until ctx is done.
// The returned release function must be deferred by the caller.
func (m *MySQLMcp) acquireSlot(ctx context.Context, op string) (func(), error) {
	select {
	case m.semaphore <- struct{}{}:
		return func() { <-m.semaphore }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: failed to acquire connection slot: all %d slots are in use, context cancelled while waiting: %w", op, cap(m.semaphore), ctx.Err())
	}
}

// Ping verifies the database is reachable on an existing engine. Used by
// the doctor subcommand and the serve startup probe.
func (m *MySQLMcp) Ping(ctx context.Context) error {
	if err := m.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrConnect, err)
	}
	return nil
}

// Close waits for in-flight operations to release their slots, then closes
// the connection pool. If ctx is cancelled while waiting, the pool is
// closed anyway and the context error is returned. Close is idempotent;
// calls after the first return nil.
func (m *MySQLMcp) Close(ctx context.Context) error {
	var closeErr error
	m.closeOnce.Do(func() {
		var drainErr error
	drain:
		for i := 0; i < cap(m.semaphore); i++ {
			select {
			case m.semaphore <- struct{}{}:
			case <-ctx.Done():
				drainErr = fmt.Errorf("shutdown interrupted while waiting for in-flight operations: %w", ctx.Err())
				break drain
			}
		}
		if err := m.db.Close(); err != nil && drainErr == nil {
			drainErr = fmt.Errorf("failed to close connection pool: %w", err)
		}
		closeErr = drainErr
	})
	return closeErr
}

// mapSanitizationRules converts mysqlmcp SanitizationRules to internal
// sanitize.Rules.
func mapSanitizationRules(rules []SanitizationRule) []sanitize.Rule {
	result := make([]sanitize.Rule, len(rules))
	for i, r := range rules {
		result[i] = sanitize.Rule{
			Pattern:     r.Pattern,
			Replacement: r.Replacement,
		}
	}
	return result
}

// mapErrorPromptRules converts mysqlmcp ErrorPromptRules to internal
// errprompt.Rules.
func mapErrorPromptRules(rules []ErrorPromptRule) []errprompt.Rule {
	result := make([]errprompt.Rule, len(rules))
	for i, r := range rules {
		result[i] = errprompt.Rule{
			Pattern: r.Pattern,
			Message: r.Message,
		}
	}
	return result
}

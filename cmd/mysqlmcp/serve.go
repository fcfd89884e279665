package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	mysqlmcp "github.com/Wang4XD/MySQL-MCP-Server"
	"github.com/Wang4XD/MySQL-MCP-Server/internal/meta"

	"github.com/go-sql-driver/mysql"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

func runServe() error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML configuration file")
	fs.Parse(os.Args[2:])

	ctx := context.Background()

	// 1. Load ServerConfig
	serverConfig, err := loadServerConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	transport := serverConfig.Server.Transport
	if transport != "stdio" && transport != "http" {
		return fmt.Errorf("unknown server.transport %q (expected stdio or http)", transport)
	}
	if transport == "stdio" && serverConfig.Logging.Output == "stdout" {
		return fmt.Errorf("logging.output cannot be stdout with the stdio transport: stdout carries the MCP protocol stream")
	}

	// 2. Resolve the DSN
	dsn := resolveDSN(serverConfig)

	// 3. Setup logger
	logger := setupLogger(serverConfig.Logging)

	// 4. Create MySQLMcp instance
	var opts []mysqlmcp.Option
	if len(serverConfig.ServerHooks.BeforeQuery) > 0 {
		opts = append(opts, mysqlmcp.WithServerHooks(serverConfig.ServerHooks))
	}
	mysqlMcp, err := mysqlmcp.New(ctx, dsn, serverConfig.Config, logger, opts...)
	if err != nil {
		return fmt.Errorf("failed to create MySQLMcp: %w", err)
	}
	defer mysqlMcp.Close(ctx)

	// 5. Test database connection
	logger.Info().Msg("testing database connection")
	if err := mysqlMcp.Ping(ctx); err != nil {
		logger.Error().Err(err).Msg("database connection test failed")
		return fmt.Errorf("database connection test failed: %w", err)
	}
	logger.Info().Msg("database connection test successful")

	// 6. Create MCP server with initialize lifecycle logging
	hooks := &server.Hooks{}
	hooks.AddAfterInitialize(func(ctx context.Context, id any, req *mcp.InitializeRequest, result *mcp.InitializeResult) {
		clientName := req.Params.ClientInfo.Name
		clientVersion := req.Params.ClientInfo.Version
		logger.Info().
			Str("client_name", clientName).
			Str("client_version", clientVersion).
			Msg("AI agent connected (MCP initialize)")
	})

	mcpServer := server.NewMCPServer("mysqlmcp", meta.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, true),
		server.WithPromptCapabilities(true),
		server.WithHooks(hooks),
	)

	mysqlmcp.RegisterMCPTools(mcpServer, mysqlMcp)
	mysqlmcp.RegisterMCPResources(mcpServer, mysqlMcp)
	mysqlmcp.RegisterMCPPrompts(mcpServer)

	// 7. Serve on the configured transport
	if transport == "stdio" {
		logger.Info().Msg("starting mysqlmcp server on stdio")
		return server.ServeStdio(mcpServer)
	}
	return serveHTTP(serverConfig, mcpServer, logger)
}

// serveHTTP runs the streamable HTTP transport with an optional health
// check endpoint.
func serveHTTP(serverConfig *mysqlmcp.ServerConfig, mcpServer *server.MCPServer, logger zerolog.Logger) error {
	if serverConfig.Server.Port <= 0 {
		panic("mysqlmcp: server.port must be > 0")
	}

	addr := fmt.Sprintf(":%d", serverConfig.Server.Port)
	mux := http.NewServeMux()

	// Health check endpoint (process liveness only, not DB connectivity)
	if serverConfig.Server.HealthCheckEnabled {
		if serverConfig.Server.HealthCheckPath == "" {
			panic("mysqlmcp: health_check_path must be set when health_check_enabled is true")
		}
		mux.HandleFunc(serverConfig.Server.HealthCheckPath, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})
	}

	httpSrv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	streamableServer := server.NewStreamableHTTPServer(mcpServer,
		server.WithEndpointPath("/mcp"),
		server.WithStateLess(true),
		server.WithStreamableHTTPServer(httpSrv),
	)

	// Start() does NOT register the MCP handler when a custom *http.Server
	// is provided via WithStreamableHTTPServer, so register it by hand.
	mux.Handle("/mcp", streamableServer)

	logger.Info().Int("port", serverConfig.Server.Port).Msg("starting mysqlmcp server")
	return streamableServer.Start(addr)
}

// loadServerConfig loads configuration in three layers: a .env file into
// the process environment, an optional YAML config file, and environment
// variable overrides on top. The YAML path comes from --config, then
// MYSQLMCP_CONFIG, then the default path when that file exists.
func loadServerConfig(configPath string) (*mysqlmcp.ServerConfig, error) {
	// A missing .env file is fine; when present its variables take part
	// in the env overrides below.
	_ = godotenv.Load()

	if configPath == "" {
		configPath = os.Getenv("MYSQLMCP_CONFIG")
	}
	if configPath == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			configPath = defaultConfigPath
		}
	}

	var config mysqlmcp.ServerConfig
	if configPath == "" {
		if err := cleanenv.ReadEnv(&config); err != nil {
			return nil, fmt.Errorf("failed to load config from environment: %w", err)
		}
		return &config, nil
	}
	if err := cleanenv.ReadConfig(configPath, &config); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	return &config, nil
}

// resolveDSN builds the driver DSN for the configured connection. A full
// DSN in MYSQLMCP_DSN wins; otherwise the DSN is assembled from
// ConnectionConfig, prompting for missing credentials when stdin is a
// terminal.
func resolveDSN(serverConfig *mysqlmcp.ServerConfig) string {
	if dsn := os.Getenv("MYSQLMCP_DSN"); dsn != "" {
		return dsn
	}

	conn := serverConfig.Connection
	if conn.User == "" && isTTY(os.Stdin.Fd()) {
		conn.User = promptInput("Username: ")
	}
	if conn.Password == "" && isTTY(os.Stdin.Fd()) {
		conn.Password = promptPassword("Password: ")
	}
	return buildDSN(conn)
}

// buildDSN formats a go-sql-driver DSN from connection settings.
func buildDSN(conn mysqlmcp.ConnectionConfig) string {
	dsnConfig := mysql.NewConfig()
	dsnConfig.User = conn.User
	dsnConfig.Passwd = conn.Password
	dsnConfig.Net = "tcp"
	dsnConfig.Addr = fmt.Sprintf("%s:%d", conn.Host, conn.Port)
	dsnConfig.DBName = conn.Database
	return dsnConfig.FormatDSN()
}

func setupLogger(config mysqlmcp.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(config.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	var output io.Writer = os.Stderr
	if config.Output == "stdout" {
		output = os.Stdout
	} else if config.Output != "" && config.Output != "stderr" {
		f, err := os.OpenFile(config.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			output = f
		}
	}

	if config.Format == "text" {
		output = zerolog.ConsoleWriter{Out: output}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

func promptInput(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	var input string
	fmt.Scanln(&input)
	return input
}

func promptPassword(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr) // newline after password input
	if err != nil {
		return ""
	}
	return string(password)
}

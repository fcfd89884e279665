package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	mysqlmcp "github.com/Wang4XD/MySQL-MCP-Server"
	"github.com/Wang4XD/MySQL-MCP-Server/internal/meta"

	"github.com/jmoiron/sqlx"
	"gopkg.in/yaml.v3"
)

func runDoctor() error {
	fs := flag.NewFlagSet("doctor", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML configuration file")
	fs.Parse(os.Args[2:])

	useColor := isTTY(os.Stderr.Fd())
	return doctor(os.Stderr, useColor, *configPath)
}

func doctor(w io.Writer, useColor bool, configPath string) error {
	printBanner(w, useColor)
	fmt.Fprintf(w, "mysqlmcp %s\n\n", meta.Version)

	// Load and validate config
	config, ok := doctorValidateConfig(w, useColor, configPath)
	if !ok {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Fix the issues above and run 'mysqlmcp doctor' again.")
		return nil
	}

	fmt.Fprintln(w)
	printConfigDump(w, useColor, config)

	fmt.Fprintln(w)
	doctorPing(w, useColor, config)

	// Print agent connection snippets
	fmt.Fprintln(w)
	printAgentSnippets(w, useColor, config)
	return nil
}

// doctorValidateConfig loads and validates the configuration, printing
// check results. Returns the parsed config and true if all checks passed.
func doctorValidateConfig(w io.Writer, useColor bool, configPath string) (*mysqlmcp.ServerConfig, bool) {
	allPassed := true

	config, err := loadServerConfig(configPath)
	if err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Configuration loads: %v", err))
		return nil, false
	}
	printCheck(w, useColor, true, "Configuration loads")

	// Check 1: connection.database is set
	if config.Connection.Database == "" {
		printCheck(w, useColor, false, "connection.database is set")
		allPassed = false
	} else {
		printCheck(w, useColor, true, fmt.Sprintf("connection.database is set (%s)", config.Connection.Database))
	}

	// Check 2: transport is a known value
	switch config.Server.Transport {
	case "stdio", "http":
		printCheck(w, useColor, true, fmt.Sprintf("server.transport is valid (%s)", config.Server.Transport))
	default:
		printCheck(w, useColor, false, fmt.Sprintf("server.transport is stdio or http (got %q)", config.Server.Transport))
		allPassed = false
	}

	// Check 3: stdout logging conflicts with the stdio protocol stream
	if config.Server.Transport == "stdio" && config.Logging.Output == "stdout" {
		printCheck(w, useColor, false, "logging.output is not stdout with the stdio transport")
		allPassed = false
	}

	// Check 4: HTTP transport settings
	if config.Server.Transport == "http" {
		if config.Server.Port <= 0 {
			printCheck(w, useColor, false, "server.port is > 0")
			allPassed = false
		} else {
			printCheck(w, useColor, true, fmt.Sprintf("server.port is > 0 (%d)", config.Server.Port))
		}
		if config.Server.HealthCheckEnabled && config.Server.HealthCheckPath == "" {
			printCheck(w, useColor, false, "health_check_path is set (required when health_check_enabled)")
			allPassed = false
		}
	}

	// Check 5: pool durations parse
	durations := []struct {
		field string
		value string
	}{
		{"pool.conn_max_lifetime", config.Pool.ConnMaxLifetime},
		{"pool.conn_max_idle_time", config.Pool.ConnMaxIdleTime},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			printCheck(w, useColor, false, fmt.Sprintf("%s is a valid duration: %v", d.field, err))
			allPassed = false
		}
	}

	// Check 6: regex patterns compile
	regexOK := true

	for i, rule := range config.ErrorPrompts {
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			printCheck(w, useColor, false, fmt.Sprintf("error_prompts[%d] regex compiles: %v", i, err))
			regexOK = false
			allPassed = false
		}
	}

	for i, rule := range config.Sanitization {
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			printCheck(w, useColor, false, fmt.Sprintf("sanitization[%d] regex compiles: %v", i, err))
			regexOK = false
			allPassed = false
		}
	}

	for i, rule := range config.Query.TimeoutRules {
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			printCheck(w, useColor, false, fmt.Sprintf("query.timeout_rules[%d] regex compiles: %v", i, err))
			regexOK = false
			allPassed = false
		}
	}

	for i, hook := range config.ServerHooks.BeforeQuery {
		if _, err := regexp.Compile(hook.Pattern); err != nil {
			printCheck(w, useColor, false, fmt.Sprintf("server_hooks.before_query[%d] regex compiles: %v", i, err))
			regexOK = false
			allPassed = false
		}
	}

	if regexOK {
		printCheck(w, useColor, true, "All regex patterns compile")
	}

	// Check 7: hook commands and default timeout
	if len(config.ServerHooks.BeforeQuery) > 0 {
		for i, hook := range config.ServerHooks.BeforeQuery {
			if hook.Command == "" {
				printCheck(w, useColor, false, fmt.Sprintf("server_hooks.before_query[%d].command is set", i))
				allPassed = false
			}
		}
		if config.DefaultHookTimeoutSeconds <= 0 {
			printCheck(w, useColor, false, "default_hook_timeout_seconds is > 0 (required when hooks are configured)")
			allPassed = false
		} else {
			printCheck(w, useColor, true, fmt.Sprintf("default_hook_timeout_seconds is > 0 (%d)", config.DefaultHookTimeoutSeconds))
		}
	}

	return config, allPassed
}

// printConfigDump prints the resolved configuration as YAML. Fields
// tagged yaml:"-" (the password among them) never appear here.
func printConfigDump(w io.Writer, useColor bool, config *mysqlmcp.ServerConfig) {
	printHeading(w, useColor, "Resolved Configuration")
	fmt.Fprintln(w)

	data, err := yaml.Marshal(config)
	if err != nil {
		fmt.Fprintf(w, "  failed to render config: %v\n", err)
		return
	}
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		fmt.Fprintf(w, "  %s\n", line)
	}
	fmt.Fprintf(w, "  dsn: %s\n", maskDSN(config.Connection))
}

// doctorPing opens a short-lived pool and checks database connectivity.
func doctorPing(w io.Writer, useColor bool, config *mysqlmcp.ServerConfig) {
	printHeading(w, useColor, "Connectivity")
	fmt.Fprintln(w)

	label := maskDSN(config.Connection)
	if os.Getenv("MYSQLMCP_DSN") != "" {
		label = "MYSQLMCP_DSN from environment"
	}

	dsn := resolveDSN(config)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "mysql", dsn)
	if err != nil {
		printCheck(w, useColor, false, fmt.Sprintf("Database reachable (%s): %v", label, err))
		return
	}
	defer db.Close()
	printCheck(w, useColor, true, fmt.Sprintf("Database reachable (%s)", label))
}

// maskDSN renders the connection DSN with the password replaced.
func maskDSN(conn mysqlmcp.ConnectionConfig) string {
	if conn.Password != "" {
		conn.Password = "****"
	}
	return buildDSN(conn)
}

// printCheck prints a colored ✓ or ✗ check line.
func printCheck(w io.Writer, useColor bool, pass bool, msg string) {
	if pass {
		if useColor {
			fmt.Fprintf(w, "  \033[32m✓\033[0m %s\n", msg)
		} else {
			fmt.Fprintf(w, "  ✓ %s\n", msg)
		}
	} else {
		if useColor {
			fmt.Fprintf(w, "  \033[31m✗\033[0m %s\n", msg)
		} else {
			fmt.Fprintf(w, "  ✗ %s\n", msg)
		}
	}
}

// printHeading prints a bold cyan section heading.
func printHeading(w io.Writer, useColor bool, title string) {
	if useColor {
		fmt.Fprintf(w, "\033[1;36m%s\033[0m\n", title)
	} else {
		fmt.Fprintln(w, title)
	}
}

// printSubheading prints a bold, indented subsection title.
func printSubheading(w io.Writer, useColor bool, title string) {
	if useColor {
		fmt.Fprintf(w, "  \033[1m%s\033[0m\n", title)
	} else {
		fmt.Fprintf(w, "  %s\n", title)
	}
}

// printAgentSnippets prints MCP connection config snippets for various AI
// agents, covering both the stdio and the HTTP transport.
func printAgentSnippets(w io.Writer, useColor bool, config *mysqlmcp.ServerConfig) {
	port := config.Server.Port
	url := fmt.Sprintf("http://localhost:%d/mcp", port)

	printHeading(w, useColor, "Agent Connection Snippets")
	fmt.Fprintln(w)

	// Claude Code
	printSubheading(w, useColor, "Claude Code (stdio)")
	fmt.Fprintf(w, "  Run this command to add the server:\n\n")
	fmt.Fprintf(w, "    claude mcp add mysql -- mysqlmcp serve\n\n")
	fmt.Fprintf(w, "  Or add to .mcp.json (project scope):\n\n")
	fmt.Fprint(w, `  {
    "mcpServers": {
      "mysql": {
        "command": "mysqlmcp",
        "args": ["serve"]
      }
    }
  }
`)
	fmt.Fprintln(w)

	printSubheading(w, useColor, "Claude Code (HTTP)")
	fmt.Fprintf(w, "  Run this command to add the server:\n\n")
	fmt.Fprintf(w, "    claude mcp add --transport http mysql %s\n\n", url)
	fmt.Fprintf(w, "  Or add to .mcp.json (project scope):\n\n")
	fmt.Fprintf(w, `  {
    "mcpServers": {
      "mysql": {
        "type": "http",
        "url": "%s"
      }
    }
  }
`, url)
	fmt.Fprintln(w)

	// Copilot CLI
	printSubheading(w, useColor, "Copilot CLI (~/.copilot/mcp-config.json)")
	fmt.Fprintf(w, `  {
    "mcpServers": {
      "mysql": {
        "type": "http",
        "url": "%s"
      }
    }
  }
`, url)
	fmt.Fprintln(w)

	// Gemini CLI
	printSubheading(w, useColor, "Gemini CLI (~/.gemini/settings.json)")
	fmt.Fprintf(w, `  {
    "mcpServers": {
      "mysql": {
        "httpUrl": "%s"
      }
    }
  }
`, url)
	fmt.Fprintln(w)

	// OpenCode
	printSubheading(w, useColor, "OpenCode (opencode.json)")
	fmt.Fprintf(w, `  {
    "mcp": {
      "mysql": {
        "type": "remote",
        "url": "%s"
      }
    }
  }
`, url)
	fmt.Fprintln(w)

	// Cursor
	printSubheading(w, useColor, "Cursor (.cursor/mcp.json)")
	fmt.Fprint(w, `  {
    "mcpServers": {
      "mysql": {
        "command": "mysqlmcp",
        "args": ["serve"]
      }
    }
  }
`)
	fmt.Fprintln(w)

	// Windsurf
	printSubheading(w, useColor, "Windsurf (~/.codeium/windsurf/mcp_config.json)")
	fmt.Fprintf(w, `  {
    "mcpServers": {
      "mysql": {
        "serverUrl": "%s"
      }
    }
  }
`, url)
}

package main

import (
	"fmt"
	"os"
)

// defaultConfigPath is where configure writes and serve/doctor look when
// neither --config nor MYSQLMCP_CONFIG is given.
const defaultConfigPath = ".mysqlmcp/config.yaml"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "configure":
		if err := runConfigure(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "doctor":
		if err := runDoctor(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("mysqlmcp — MySQL MCP Server")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  mysqlmcp serve       Start the MCP server (stdio or HTTP)")
	fmt.Println("  mysqlmcp configure   Run interactive configuration wizard")
	fmt.Println("  mysqlmcp doctor      Check configuration and print agent snippets")
	fmt.Println("  mysqlmcp --help      Show this help message")
}

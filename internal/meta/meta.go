// Package meta holds build metadata shared by the CLI and the MCP server
// registration.
package meta

// Version is the release version reported to MCP clients and printed by
// the doctor subcommand. Bumped manually on release.
const Version = "1.0.0"

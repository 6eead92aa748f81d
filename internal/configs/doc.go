// Package configs manages coffer's configuration and file locations.
//
// Configuration is stored in TOML format at $XDG_CONFIG_HOME/coffer/config.toml:
//
//	[storage]
//	driver = "bolt"        # bolt | memory
//	path = ""              # default <data dir>/coffer.db
//	prefix = "financeTracker_"
//
//	[security]
//	iterations = 100000
//	max_attempts = 3
//
//	[display]
//	currency = "USD"
//
//	[installation]
//	id = "<uuid>"
//
// A missing file means defaults. The installation id is generated on first
// run by Ensure and written back.
//
// # Paths
//
// ResolvePaths picks the config file and the data directory. Explicit
// values (the --config and --data-dir flags) win, then the COFFER_CONFIG and
// COFFER_DATA_DIR environment variables, then the XDG locations. The data
// directory holds the bolt database and the audit trail.
package configs

// Package config loads runtime configuration for evidencectl.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c/-config or EVIDENCE_CONFIG.
//  3. EVIDENCE_SERVER and EVIDENCE_TOKEN environment variables.
//  4. Command-line flags of the cobra commands.
//
// # JSON schema
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "timeout": "2m",
//	  "token": "eyJ..."
//	}
package config

// Package config provides configuration loading for the dashboard server.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//  1. Environment variables (highest priority)
//  2. A YAML configuration file
//  3. Default values from struct tags (lowest priority)
//
// # Environment Variables
//
// All environment variables use the NETDASH_ prefix followed by the section
// and field name:
//
//	NETDASH_SERVER_PORT=8501
//	NETDASH_LOGGING_LEVEL=debug
//	NETDASH_SESSION_IDLE_TTL=2h
//	NETDASH_UPLOAD_SEPARATOR=;
//	NETDASH_TELEMETRY_TRACE_EXPORTER=stdout
//
// # Configuration File
//
// The file is looked up at NETDASH_CONFIG_FILE, then config.yaml and
// configs/config.yaml in the working directory:
//
//	server:
//	  port: 8501
//	session:
//	  idle_ttl: 2h
//	  max_sessions: 200
//	upload:
//	  max_file_bytes: 209715200
//	  separator: ";"
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return fmt.Errorf("failed to load configuration: %w", err)
//	}
//
// Tests use Default() to obtain a complete configuration without touching
// the environment.
package config

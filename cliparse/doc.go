// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

An optional .env file can be loaded first; it never overrides variables that
are already set:

	_ = cliparse.LoadDotEnv(".env")

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: connection string (required)
  - DatabaseType: sqlite or postgres (default: sqlite)
  - JWTSecret: bearer token signing secret (required)
  - RedisURL: poll cache, empty disables caching
  - LogLevel: debug, info, warn or error (default: info)

# CLI Flags

	-p            Server port
	-d            Database URL
	-t            Database type
	--redis       Redis URL
	--log-level   Log level
	--jwt-secret  Token secret

# Environment Variables

Flags fall back to environment variables:

	PORT          → -p
	DATABASE_URL  → -d
	DATABASE_TYPE → -t
	REDIS_URL     → --redis
	LOG_LEVEL     → --log-level
	JWT_SECRET    → --jwt-secret

CLI flags take precedence over environment variables.
*/
package cliparse

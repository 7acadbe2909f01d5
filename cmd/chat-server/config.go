package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

type appConfig struct {
	listenAddr  string
	dbPath      string
	logFormat   string
	logLevel    string
	metricsAddr string
	outBuf      int
	taskQueue   int
	maxClients  int
	mdnsEnable  bool
	mdnsName    string
}

// registerFlags binds the configuration surface to the command.
func (c *appConfig) registerFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&c.listenAddr, "listen", "127.0.0.1:11111", "TCP listen address")
	f.StringVar(&c.dbPath, "db", "chat.db", "SQLite database path")
	f.StringVar(&c.logFormat, "log-format", "text", "Log format: text|json")
	f.StringVar(&c.logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	f.StringVar(&c.metricsAddr, "metrics-addr", "", "Metrics HTTP listen address (e.g., :9100); empty disables")
	f.IntVar(&c.outBuf, "out-buffer", 128, "Per-client outbound queue (messages)")
	f.IntVar(&c.taskQueue, "task-queue", 1024, "Central dispatcher queue (tasks)")
	f.IntVar(&c.maxClients, "max-clients", 0, "Maximum simultaneous clients (0 = unlimited)")
	f.BoolVar(&c.mdnsEnable, "mdns-enable", false, "Enable mDNS/Avahi advertisement")
	f.StringVar(&c.mdnsName, "mdns-name", "", "mDNS instance name (default chat-server-<hostname>)")
}

// finish applies environment overrides and validates; flag values that were
// explicitly set win over the environment.
func (c *appConfig) finish(cmd *cobra.Command) error {
	if err := c.applyEnvOverrides(cmd); err != nil {
		return fmt.Errorf("environment override error: %w", err)
	}
	if err := c.validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	return nil
}

// validate performs basic semantic validation of the parsed configuration.
// It does not attempt to open listeners or the database, only value checks.
func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	if c.listenAddr == "" {
		return errors.New("listen address must not be empty")
	}
	if c.dbPath == "" {
		return errors.New("db path must not be empty")
	}
	if c.outBuf <= 0 {
		return fmt.Errorf("out-buffer must be > 0 (got %d)", c.outBuf)
	}
	if c.taskQueue <= 0 {
		return fmt.Errorf("task-queue must be > 0 (got %d)", c.taskQueue)
	}
	if c.maxClients < 0 {
		return errors.New("max-clients must be >= 0")
	}
	return nil
}

// applyEnvOverrides maps CHAT_SERVER_* environment variables to config
// fields unless a corresponding flag was explicitly set. Empty values are
// ignored.
func (c *appConfig) applyEnvOverrides(cmd *cobra.Command) error {
	var firstErr error
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }
	str := func(flag, env string, dst *string) {
		if cmd.Flags().Changed(flag) {
			return
		}
		if v, ok := get(env); ok && v != "" {
			*dst = v
		}
	}
	num := func(flag, env string, dst *int) {
		if cmd.Flags().Changed(flag) {
			return
		}
		if v, ok := get(env); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			} else if firstErr == nil {
				firstErr = fmt.Errorf("invalid %s: %w", env, err)
			}
		}
	}
	str("listen", "CHAT_SERVER_LISTEN", &c.listenAddr)
	str("db", "CHAT_SERVER_DB", &c.dbPath)
	str("log-format", "CHAT_SERVER_LOG_FORMAT", &c.logFormat)
	str("log-level", "CHAT_SERVER_LOG_LEVEL", &c.logLevel)
	str("metrics-addr", "CHAT_SERVER_METRICS_ADDR", &c.metricsAddr)
	str("mdns-name", "CHAT_SERVER_MDNS_NAME", &c.mdnsName)
	num("out-buffer", "CHAT_SERVER_OUT_BUFFER", &c.outBuf)
	num("task-queue", "CHAT_SERVER_TASK_QUEUE", &c.taskQueue)
	num("max-clients", "CHAT_SERVER_MAX_CLIENTS", &c.maxClients)
	if !cmd.Flags().Changed("mdns-enable") {
		if v, ok := get("CHAT_SERVER_MDNS_ENABLE"); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err == nil {
				c.mdnsEnable = b
			} else if firstErr == nil {
				firstErr = fmt.Errorf("invalid CHAT_SERVER_MDNS_ENABLE: %w", err)
			}
		}
	}
	return firstErr
}

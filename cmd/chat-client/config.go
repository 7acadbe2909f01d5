package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chatrelay/go-chat-relay/internal/client"
	"github.com/chatrelay/go-chat-relay/internal/logging"
)

type appConfig struct {
	addr      string
	fileDir   string
	imageDir  string
	savePNG   bool
	logFormat string
	logLevel  string
}

func (c *appConfig) registerFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&c.addr, "addr", client.DefaultAddr, "Server address")
	f.StringVar(&c.fileDir, "file-dir", "files", "Directory for received files")
	f.StringVar(&c.imageDir, "image-dir", "images", "Directory for received images")
	f.BoolVar(&c.savePNG, "save-png", true, "Convert received images to PNG before saving")
	f.StringVar(&c.logFormat, "log-format", "text", "Log format: text|json")
	f.StringVar(&c.logLevel, "log-level", "warn", "Log level: debug|info|warn|error")
}

// finish applies CHAT_CLIENT_* environment overrides (flag wins) and
// validates the result.
func (c *appConfig) finish(cmd *cobra.Command) error {
	str := func(flag, env string, dst *string) {
		if cmd.Flags().Changed(flag) {
			return
		}
		if v, ok := os.LookupEnv(env); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("addr", "CHAT_CLIENT_ADDR", &c.addr)
	str("file-dir", "CHAT_CLIENT_FILE_DIR", &c.fileDir)
	str("image-dir", "CHAT_CLIENT_IMAGE_DIR", &c.imageDir)
	str("log-format", "CHAT_CLIENT_LOG_FORMAT", &c.logFormat)
	str("log-level", "CHAT_CLIENT_LOG_LEVEL", &c.logLevel)
	if !cmd.Flags().Changed("save-png") {
		if v, ok := os.LookupEnv("CHAT_CLIENT_SAVE_PNG"); ok && strings.TrimSpace(v) != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("invalid CHAT_CLIENT_SAVE_PNG: %w", err)
			}
			c.savePNG = b
		}
	}
	return c.validate()
}

func (c *appConfig) validate() error {
	if c.addr == "" {
		return errors.New("addr must not be empty")
	}
	if c.fileDir == "" || c.imageDir == "" {
		return errors.New("file-dir and image-dir must not be empty")
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	if _, err := logging.ParseLevel(c.logLevel); err != nil {
		return err
	}
	return nil
}

func setupLogger(format, level string) *slog.Logger {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		lvl = slog.LevelWarn
	}
	l := logging.New(format, lvl, os.Stderr).With("app", "chat-client")
	logging.Set(l)
	return l
}

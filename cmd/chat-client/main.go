package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chatrelay/go-chat-relay/internal/client"
)

// Build metadata injected via -ldflags at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cfg := &appConfig{}
	rootCmd := &cobra.Command{
		Use:           "chat-client",
		Short:         "Terminal chat client",
		Long:          "chat-client connects to a chat relay server, sends text, file and image messages typed on stdin and saves payloads received from other users.",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.finish(cmd); err != nil {
				return err
			}
			return run(cfg)
		},
	}
	cfg.registerFlags(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(cfg *appConfig) error {
	l := setupLogger(cfg.logFormat, cfg.logLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return client.Run(ctx, client.Config{
		Addr:     cfg.addr,
		FileDir:  cfg.fileDir,
		ImageDir: cfg.imageDir,
		SavePNG:  cfg.savePNG,
		Logger:   l,
	})
}

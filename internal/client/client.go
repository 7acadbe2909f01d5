// Package client implements the terminal chat client: it connects to the
// relay, authenticates, sends payloads typed on stdin and renders or saves
// payloads received from peers.
//
// Three cooperating tasks mirror the protocol's structure: a stdin parser on
// a dedicated goroutine (stdin reads block and cannot be cancelled), a send
// task consuming parsed commands, and a receive task draining the server
// stream. The receive task exits first (quit or server disconnect); the send
// task follows when its input channel closes.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync/atomic"

	"github.com/chatrelay/go-chat-relay/internal/logging"
	"github.com/chatrelay/go-chat-relay/internal/message"
	"github.com/chatrelay/go-chat-relay/internal/wire"
)

// DefaultAddr is the relay endpoint clients connect to when none is given.
const DefaultAddr = "127.0.0.1:11111"

// Config carries the client's runtime settings.
type Config struct {
	// Addr is the server endpoint.
	Addr string
	// FileDir receives file payloads; ImageDir image payloads.
	FileDir  string
	ImageDir string
	// SavePNG re-encodes received images to PNG instead of keeping the
	// native format.
	SavePNG bool

	Logger *slog.Logger
	Input  io.Reader
	Out    io.Writer
	ErrOut io.Writer
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.Logger == nil {
		c.Logger = logging.L()
	}
	if c.Input == nil {
		c.Input = os.Stdin
	}
	if c.Out == nil {
		c.Out = os.Stdout
	}
	if c.ErrOut == nil {
		c.ErrOut = os.Stderr
	}
}

// Run connects to the server and relays between stdin and the socket until
// a .quit command, stdin EOF, or server disconnect. It returns nil on a
// local quit and an error when the connection fails.
func Run(ctx context.Context, cfg Config) error {
	cfg.applyDefaults()
	conn, err := net.Dial("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("connection to the server at %s failed, make sure it is running: %w", cfg.Addr, err)
	}
	defer conn.Close()
	cfg.Logger.Info("connected", "addr", cfg.Addr)

	cmds := make(chan Command, 128)
	quit := make(chan struct{})
	var quitting atomic.Bool

	go parseInput(cfg, cmds)
	go func() {
		// Only a drained input channel is a clean quit; a connection that
		// died under the send loop still fails the run.
		if err := sendLoop(cfg, conn, cmds); err == nil {
			quitting.Store(true)
		}
		close(quit)
		_ = conn.Close()
	}()
	go func() {
		select {
		case <-ctx.Done():
			quitting.Store(true)
			_ = conn.Close()
		case <-quit:
		}
	}()

	if err := receiveLoop(cfg, conn); err != nil {
		if quitting.Load() {
			return nil
		}
		return fmt.Errorf("receiving from the server failed: %w", err)
	}
	return nil
}

// parseInput reads lines from the input, parses them and forwards commands
// until a quit command or EOF; parse errors are reported and skipped.
func parseInput(cfg Config, cmds chan<- Command) {
	defer close(cmds)
	scanner := bufio.NewScanner(cfg.Input)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		cmd, err := ParseCommand(scanner.Text())
		if err != nil {
			fmt.Fprintln(cfg.ErrOut, err)
			continue
		}
		if cmd.Kind == CmdQuit {
			return
		}
		cmds <- cmd
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(cfg.ErrOut, "reading input failed: %v\n", err)
	}
}

// sendLoop builds and sends one message per command. Local payload-loading
// failures drop the command with a note; the session continues. It returns
// nil when the command channel is exhausted and the disconnect error when
// the connection died underneath it.
func sendLoop(cfg Config, conn net.Conn, cmds <-chan Command) error {
	for cmd := range cmds {
		msg, err := buildMsg(cmd)
		if err != nil {
			fmt.Fprintln(cfg.ErrOut, err)
			continue
		}
		if err := wire.WriteMsg(conn, msg); err != nil {
			if errors.Is(err, wire.ErrDisconnected) {
				return err
			}
			fmt.Fprintf(cfg.ErrOut, "sending the message failed: %v\n", err)
		}
	}
	return nil
}

// buildMsg turns a parsed command into a wire message, loading file and
// image payloads from disk.
func buildMsg(cmd Command) (*message.ClientMsg, error) {
	switch cmd.Kind {
	case CmdText:
		return message.ToAll(message.TextData(cmd.Text)), nil
	case CmdLogIn:
		return message.LogIn(message.User(cmd.User), cmd.Password), nil
	case CmdSignUp:
		return message.SignUp(message.User(cmd.User), cmd.Password), nil
	case CmdFile:
		f, err := message.FileFromPath(cmd.Path)
		if err != nil {
			return nil, fmt.Errorf("loading file %q failed: %w", cmd.Path, err)
		}
		return message.ToAll(message.FileData(f)), nil
	case CmdImage:
		img, err := message.ImageFromPath(cmd.Path)
		if err != nil {
			return nil, fmt.Errorf("loading image %q failed: %w", cmd.Path, err)
		}
		return message.ToAll(message.ImageData(img)), nil
	default:
		return nil, fmt.Errorf("unsupported command %d", cmd.Kind)
	}
}

// receiveLoop drains server messages until the stream ends.
func receiveLoop(cfg Config, conn net.Conn) error {
	for {
		var msg message.ServerMsg
		if err := wire.ReadMsg(conn, &msg); err != nil {
			return err
		}
		processMsg(cfg, &msg)
	}
}

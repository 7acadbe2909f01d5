package client

import (
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatrelay/go-chat-relay/internal/hub"
	"github.com/chatrelay/go-chat-relay/internal/message"
	"github.com/chatrelay/go-chat-relay/internal/server"
	"github.com/chatrelay/go-chat-relay/internal/store"
	"github.com/chatrelay/go-chat-relay/internal/wire"
)

// syncBuffer lets the test poll output written by the client's goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitForOutput(t *testing.T, b *syncBuffer, substr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(b.String(), substr) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("output never contained %q, have:\n%s", substr, b.String())
}

func startRelay(t *testing.T, ctx context.Context) *server.Server {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	srv := server.NewServer(
		server.WithListenAddr("127.0.0.1:0"),
		server.WithHub(hub.New()),
		server.WithStore(st),
	)
	go func() { _ = srv.Serve(ctx) }()
	select {
	case <-srv.Ready():
	case <-time.After(time.Second):
		t.Fatalf("server not ready")
	}
	return srv
}

func TestRunEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv := startRelay(t, ctx)

	inR, inW := io.Pipe()
	out, errOut := &syncBuffer{}, &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{
			Addr:     srv.Addr(),
			FileDir:  filepath.Join(t.TempDir(), "files"),
			ImageDir: filepath.Join(t.TempDir(), "images"),
			Input:    inR,
			Out:      out,
			ErrOut:   errOut,
		})
	}()

	_, err := io.WriteString(inW, ".signup alice pw\n")
	require.NoError(t, err)
	waitForOutput(t, out, "Welcome!")

	// A peer joins over the raw wire and broadcasts.
	peer, err := (&net.Dialer{Timeout: time.Second}).DialContext(ctx, "tcp", srv.Addr())
	require.NoError(t, err)
	defer peer.Close()
	require.NoError(t, wire.WriteMsg(peer, message.SignUp("bob", "pw")))
	var reply message.ServerMsg
	require.NoError(t, wire.ReadMsg(peer, &reply))
	require.Equal(t, message.ServerAuthenticated, reply.Kind)
	require.NoError(t, wire.WriteMsg(peer, message.ToAll(message.TextData("hi alice"))))
	waitForOutput(t, out, "bob: hi alice")

	// Unknown command is reported locally, nothing is sent.
	_, err = io.WriteString(inW, ".dance\n")
	require.NoError(t, err)
	waitForOutput(t, errOut, "not supported")

	_, err = io.WriteString(inW, ".quit\n")
	require.NoError(t, err)
	select {
	case runErr := <-done:
		assert.NoError(t, runErr)
	case <-time.After(2 * time.Second):
		t.Fatalf("client did not exit after .quit")
	}
}

func TestSendLoopReportsDisconnect(t *testing.T) {
	a, b := net.Pipe()
	require.NoError(t, b.Close())
	require.NoError(t, a.Close())
	cmds := make(chan Command, 1)
	cmds <- Command{Kind: CmdText, Text: "hi"}
	close(cmds)
	err := sendLoop(Config{ErrOut: io.Discard}, a, cmds)
	assert.ErrorIs(t, err, wire.ErrDisconnected)
}

func TestSendLoopInputExhausted(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	cmds := make(chan Command)
	close(cmds)
	assert.NoError(t, sendLoop(Config{ErrOut: io.Discard}, a, cmds))
}

func TestRunServerDisconnectIsError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv := startRelay(t, ctx)

	inR, inW := io.Pipe()
	defer inW.Close()
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{
			Addr:   srv.Addr(),
			Input:  inR,
			Out:    out,
			ErrOut: io.Discard,
		})
	}()

	_, err := io.WriteString(inW, ".signup eve pw\n")
	require.NoError(t, err)
	waitForOutput(t, out, "Welcome!")

	// The server goes away without a local quit: the run must fail.
	sdCtx, sdCancel := context.WithTimeout(context.Background(), time.Second)
	defer sdCancel()
	require.NoError(t, srv.Shutdown(sdCtx))

	select {
	case runErr := <-done:
		assert.Error(t, runErr)
	case <-time.After(2 * time.Second):
		t.Fatalf("client did not exit after server shutdown")
	}
}

func TestRunDialFailure(t *testing.T) {
	err := Run(context.Background(), Config{
		Addr:  "127.0.0.1:1", // nothing listens here
		Input: strings.NewReader(""),
		Out:   io.Discard, ErrOut: io.Discard,
	})
	assert.Error(t, err)
}

func TestProcessMsgTextAndAuth(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cfg := Config{Out: out, ErrOut: errOut}

	processMsg(cfg, message.Authenticated())
	processMsg(cfg, message.DataFrom(message.TextData("hello"), "carol"))
	assert.Equal(t, "Welcome!\ncarol: hello\n", out.String())
	assert.Empty(t, errOut.String())
}

func TestProcessMsgSavesFile(t *testing.T) {
	out := &bytes.Buffer{}
	dir := filepath.Join(t.TempDir(), "files")
	cfg := Config{Out: out, ErrOut: io.Discard, FileDir: dir}

	f := &message.File{Name: "doc.txt", Bytes: []byte("body")}
	processMsg(cfg, message.DataFrom(message.FileData(f), "carol"))

	assert.Contains(t, out.String(), `Received "doc.txt" from carol`)
	saved, err := os.ReadFile(filepath.Join(dir, "doc.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("body"), saved)
}

func TestProcessErrLines(t *testing.T) {
	cases := []struct {
		serr message.ServerErr
		want string
	}{
		{message.ServerErr{Kind: message.ErrWrongPassword}, "Given password is not correct"},
		{message.ServerErr{Kind: message.ErrWrongUser}, "user does not exist"},
		{message.ServerErr{Kind: message.ErrUsernameTaken}, "already taken"},
		{message.ServerErr{Kind: message.ErrAlreadyAuthenticated}, "already authenticated"},
	}
	for _, tc := range cases {
		errOut := &bytes.Buffer{}
		processMsg(Config{Out: io.Discard, ErrOut: errOut}, message.ErrorMsg(tc.serr))
		assert.Contains(t, errOut.String(), tc.want)
	}
}

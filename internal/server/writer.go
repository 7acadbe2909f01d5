package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/chatrelay/go-chat-relay/internal/hub"
	"github.com/chatrelay/go-chat-relay/internal/metrics"
	"github.com/chatrelay/go-chat-relay/internal/wire"
)

// startWriter launches the goroutine draining one client's outbound channel
// onto its connection. A disconnected peer ends the writer; other write
// errors are logged and the writer keeps going (the bounded channel caps the
// backlog either way).
func (s *Server) startWriter(ctxDone <-chan struct{}, conn net.Conn, cl *hub.Client, logger *slog.Logger) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() { _ = conn.Close() }()
		for {
			select {
			case msg := <-cl.Out:
				if err := wire.WriteMsg(conn, msg); err != nil {
					if errors.Is(err, wire.ErrDisconnected) {
						return
					}
					wrap := fmt.Errorf("%w: %v", ErrConnWrite, err)
					metrics.IncError(mapErrToMetric(wrap))
					logger.Warn("send_failed", "user", string(cl.User), "error", wrap)
				}
			case <-cl.Closed:
				// Drain what the dispatcher already queued, best effort.
				for {
					select {
					case msg := <-cl.Out:
						if err := wire.WriteMsg(conn, msg); err != nil {
							return
						}
					default:
						return
					}
				}
			case <-ctxDone:
				return
			}
		}
	}()
}

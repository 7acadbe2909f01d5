package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/chatrelay/go-chat-relay/internal/hub"
	"github.com/chatrelay/go-chat-relay/internal/message"
	"github.com/chatrelay/go-chat-relay/internal/metrics"
	"github.com/chatrelay/go-chat-relay/internal/wire"
)

// readLoop consumes framed messages from an authenticated connection,
// records broadcasts and enqueues dispatcher tasks. Its exit removes the hub
// entry, which closes the writer's channel and ends the session.
func (s *Server) readLoop(ctx context.Context, conn net.Conn, cl *hub.Client, logger *slog.Logger) {
	defer func() {
		s.Hub.Remove(cl)
		_ = conn.Close()
		s.totalDisconnected.Add(1)
		logger.Info("connection_out", "user", string(cl.User))
	}()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		var msg message.ClientMsg
		if err := wire.ReadMsg(conn, &msg); err != nil {
			if errors.Is(err, wire.ErrDisconnected) {
				return
			}
			wrap := fmt.Errorf("%w: %v", ErrConnRead, err)
			metrics.IncError(mapErrToMetric(wrap))
			logger.Warn("receive_failed", "error", wrap)
			s.enqueue(sendErrTask(cl.Addr, message.ReceiveMsgErr(err.Error())))
			continue
		}
		switch msg.Kind {
		case message.ClientToAll:
			metrics.IncReceived(msg.Data.Kind.String())
			// Record first so the audit row precedes any delivery; a store
			// failure must not block the broadcast.
			if err := s.Store.RecordBroadcast(ctx, cl.User, *msg.Data); err != nil {
				metrics.IncRecordFailure()
				logger.Warn("record_broadcast_failed", "user", string(cl.User), "error", err)
			}
			s.enqueue(broadcastTask(cl.Addr, cl.User, *msg.Data))
		case message.ClientAuth:
			s.enqueue(sendErrTask(cl.Addr, message.ServerErr{Kind: message.ErrAlreadyAuthenticated}))
		}
	}
}

// enqueue puts a task on the central queue. The queue is bounded; the send
// blocks until the dispatcher catches up, preserving per-source order.
func (s *Server) enqueue(t task) {
	s.tasks <- t
}

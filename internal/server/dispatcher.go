package server

import (
	"context"

	"github.com/chatrelay/go-chat-relay/internal/message"
	"github.com/chatrelay/go-chat-relay/internal/metrics"
)

// dispatch is the central dispatcher: the single goroutine that drains the
// task queue. It performs fan-out for broadcasts and routes targeted errors.
// Per-source ordering holds because each reader is single-threaded and the
// queue is FIFO; sends onto full outbound channels drop rather than block.
// On cancellation it finishes whatever the readers already queued before
// returning.
func (s *Server) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case t := <-s.tasks:
					s.runTask(t)
				default:
					return
				}
			}
		case t := <-s.tasks:
			s.runTask(t)
		}
	}
}

func (s *Server) runTask(t task) {
	switch t.kind {
	case taskBroadcast:
		s.totalBroadcasts.Add(1)
		metrics.IncBroadcast()
		fanout := s.Hub.Broadcast(t.from, message.DataFrom(t.data, t.user))
		metrics.AddDelivered(fanout)
		s.logger.Info("broadcast", "from", string(t.user), "kind", t.data.Kind.String(), "fanout", fanout)
	case taskSendErr:
		// Dropped silently when the client already went away.
		s.Hub.SendTo(t.to, message.ErrorMsg(t.serr))
	}
}

package server

import (
	"context"
	"errors"
	"net"

	"github.com/chatrelay/go-chat-relay/internal/message"
	"github.com/chatrelay/go-chat-relay/internal/metrics"
	"github.com/chatrelay/go-chat-relay/internal/store"
	"github.com/chatrelay/go-chat-relay/internal/wire"
)

// authenticate runs the handshake state machine on a freshly accepted
// connection. The connection stays Greeted until a log-in or sign-up
// succeeds; known failures are reported back and the loop continues (there
// is no retry limit — the peer gives up by disconnecting). Transport and
// store-internal errors end the handshake and the connection.
func (s *Server) authenticate(ctx context.Context, conn net.Conn) (message.User, error) {
	for {
		var msg message.ClientMsg
		if err := wire.ReadMsg(conn, &msg); err != nil {
			metrics.IncAuthFailure(metrics.ReasonTransport)
			return "", err
		}
		if msg.Kind != message.ClientAuth {
			metrics.IncAuthFailure(metrics.ReasonNotAuth)
			if err := wire.WriteMsg(conn, message.ErrorMsg(message.NotAuthenticatedErr(&msg))); err != nil {
				return "", err
			}
			continue
		}
		creds := msg.Auth.Credentials
		var authErr error
		switch msg.Auth.Kind {
		case message.AuthLogIn:
			authErr = s.Store.LogIn(ctx, creds)
		case message.AuthSignUp:
			authErr = s.Store.SignUp(ctx, creds)
		}
		if authErr == nil {
			if err := wire.WriteMsg(conn, message.Authenticated()); err != nil {
				return "", err
			}
			return creds.User, nil
		}
		serr, reason, retryable := classifyAuthErr(authErr)
		metrics.IncAuthFailure(reason)
		if !retryable {
			// Store-internal failure: close the connection, keep serving.
			return "", authErr
		}
		if err := wire.WriteMsg(conn, message.ErrorMsg(serr)); err != nil {
			return "", err
		}
	}
}

// classifyAuthErr maps store errors to the protocol error sent back to the
// peer. Unknown (internal) errors are not retryable.
func classifyAuthErr(err error) (message.ServerErr, string, bool) {
	switch {
	case errors.Is(err, store.ErrUserNotFound):
		return message.ServerErr{Kind: message.ErrWrongUser}, metrics.ReasonWrongUser, true
	case errors.Is(err, store.ErrWrongPassword):
		return message.ServerErr{Kind: message.ErrWrongPassword}, metrics.ReasonWrongPassword, true
	case errors.Is(err, store.ErrUsernameTaken):
		return message.ServerErr{Kind: message.ErrUsernameTaken}, metrics.ReasonUsernameTaken, true
	default:
		return message.ServerErr{}, metrics.ReasonStore, false
	}
}

package message

import "fmt"

// ServerErrKind tags the variants of a protocol error reported by the server.
type ServerErrKind uint8

const (
	// ErrReceiveMsg reports that reading a message from the client failed.
	ErrReceiveMsg ServerErrKind = iota + 1
	// ErrSendMsgTo reports that relaying a message to a peer failed.
	ErrSendMsgTo
	// ErrNotAuthenticated rejects a message sent before authentication.
	ErrNotAuthenticated
	// ErrAlreadyAuthenticated rejects a second Auth on a live session.
	ErrAlreadyAuthenticated
	// ErrWrongUser reports a log-in for a user that does not exist.
	ErrWrongUser
	// ErrWrongPassword reports a log-in with an incorrect password.
	ErrWrongPassword
	// ErrUsernameTaken reports a sign-up for a name already in use.
	ErrUsernameTaken
)

// ServerErr is a protocol error the server delivers to a client. Detail
// carries the receive failure text for ErrReceiveMsg, Attempted the rejected
// message for ErrNotAuthenticated, and To the target peer for ErrSendMsgTo.
type ServerErr struct {
	Kind      ServerErrKind `cbor:"1,keyasint"`
	Detail    string        `cbor:"2,keyasint,omitempty"`
	Attempted *ClientMsg    `cbor:"3,keyasint,omitempty"`
	To        User          `cbor:"4,keyasint,omitempty"`
}

// ReceiveMsgErr reports a failed message read with its cause text.
func ReceiveMsgErr(detail string) ServerErr {
	return ServerErr{Kind: ErrReceiveMsg, Detail: detail}
}

// SendMsgToErr reports a failed relay toward the named peer.
func SendMsgToErr(to User) ServerErr {
	return ServerErr{Kind: ErrSendMsgTo, To: to}
}

// NotAuthenticatedErr rejects the given pre-authentication message.
func NotAuthenticatedErr(attempted *ClientMsg) ServerErr {
	return ServerErr{Kind: ErrNotAuthenticated, Attempted: attempted}
}

// Validate checks the union shape of the error.
func (e *ServerErr) Validate() error {
	switch e.Kind {
	case ErrReceiveMsg, ErrSendMsgTo, ErrAlreadyAuthenticated, ErrWrongUser, ErrWrongPassword, ErrUsernameTaken:
	case ErrNotAuthenticated:
		if e.Attempted == nil {
			return fmt.Errorf("server err: not-authenticated without attempted message")
		}
		return e.Attempted.Validate()
	default:
		return fmt.Errorf("server err: unknown kind %d", e.Kind)
	}
	return nil
}

func (e ServerErr) String() string {
	switch e.Kind {
	case ErrReceiveMsg:
		return fmt.Sprintf("ReceiveMsg(%s)", e.Detail)
	case ErrSendMsgTo:
		return fmt.Sprintf("SendMsgTo(%s)", e.To)
	case ErrNotAuthenticated:
		return fmt.Sprintf("NotAuthenticated(%s)", e.Attempted)
	case ErrAlreadyAuthenticated:
		return "AlreadyAuthenticated"
	case ErrWrongUser:
		return "WrongUser"
	case ErrWrongPassword:
		return "WrongPassword"
	case ErrUsernameTaken:
		return "UsernameTaken"
	default:
		return fmt.Sprintf("ServerErr(%d)", e.Kind)
	}
}

package wire

import "errors"

// Sentinel errors used for wrapping so callers can classify via errors.Is.
var (
	// ErrDisconnected reports that the peer went away, cleanly before a
	// frame or mid-frame.
	ErrDisconnected = errors.New("stream_disconnected")
	// ErrReceive reports a read failure other than disconnection,
	// including refused frames (zero or oversized length prefix).
	ErrReceive = errors.New("receive_bytes")
	// ErrSend reports a write failure other than disconnection.
	ErrSend = errors.New("send_bytes")
	// ErrEncode reports a message serialization failure.
	ErrEncode = errors.New("serialize_msg")
	// ErrDecode reports a message deserialization failure.
	ErrDecode = errors.New("deserialize_msg")
)

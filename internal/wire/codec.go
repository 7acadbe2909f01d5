// Package wire implements the framed binary protocol between chat client and
// server: a 4-byte big-endian length prefix followed by the CBOR encoding of
// one tagged-union message. The codec is stateless and safe for concurrent
// use; each connection side serializes its own reads and writes.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/fxamacker/cbor/v2"
)

// MaxFrameLen bounds a single frame's payload. Frames above it are consumed
// and refused with ErrReceive, leaving the stream on the next frame boundary.
const MaxFrameLen = 16 << 20

// Validator is implemented by messages that can check their union shape
// after decoding.
type Validator interface {
	Validate() error
}

// Encode serializes a message to its wire payload. It fails only on values
// not constructible via the message package's constructors.
func Encode(msg any) ([]byte, error) {
	b, err := cbor.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return b, nil
}

// Decode deserializes a wire payload into msg and validates its shape.
// An empty payload is not a valid message.
func Decode(data []byte, msg any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty payload", ErrDecode)
	}
	if err := cbor.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if v, ok := msg.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
	}
	return nil
}

// ReadFrame reads exactly one length-prefixed frame payload from r. EOF
// before the prefix is a clean disconnect; EOF after any byte has been read
// is still reported as ErrDisconnected.
func ReadFrame(r io.Reader) ([]byte, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, mapReadErr(err)
	}
	n := binary.BigEndian.Uint32(prefix[:])
	if n > MaxFrameLen {
		// Discard the refused payload so the next read starts on a frame
		// boundary instead of inside it.
		if _, err := io.CopyN(io.Discard, r, int64(n)); err != nil {
			return nil, mapReadErr(err)
		}
		return nil, fmt.Errorf("%w: frame of %d bytes exceeds limit %d", ErrReceive, n, MaxFrameLen)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, mapReadErr(err)
	}
	return payload, nil
}

// WriteFrame writes the length prefix and payload as a single write so a
// frame never straddles two syscalls on an unbuffered conn.
func WriteFrame(w io.Writer, payload []byte) error {
	buf := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[4:], payload)
	if _, err := w.Write(buf); err != nil {
		return mapWriteErr(err)
	}
	if f, ok := w.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return mapWriteErr(err)
		}
	}
	return nil
}

// ReadMsg reads one framed message from r into msg.
func ReadMsg(r io.Reader, msg any) error {
	payload, err := ReadFrame(r)
	if err != nil {
		return err
	}
	return Decode(payload, msg)
}

// WriteMsg frames and writes one message to w.
func WriteMsg(w io.Writer, msg any) error {
	payload, err := Encode(msg)
	if err != nil {
		return err
	}
	return WriteFrame(w, payload)
}

func mapReadErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) || errors.Is(err, syscall.ECONNRESET) {
		return fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	return fmt.Errorf("%w: %v", ErrReceive, err)
}

func mapWriteErr(err error) error {
	if errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	return fmt.Errorf("%w: %v", ErrSend, err)
}

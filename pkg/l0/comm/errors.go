package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrNotOpen indicates the session is not open (or already closed).
	ErrNotOpen = errors.New("not open")
	// ErrConnectionFailed indicates the port can't be opened after all attempts.
	ErrConnectionFailed = errors.New("connection failed")
	// ErrIO indicates a read or write failure on an open port.
	ErrIO = errors.New("io error")
	// ErrPayloadTooLarge indicates the payload doesn't fit in a single frame.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrLengthMismatch indicates the declared payload length doesn't match
	// the size of the decoded frame.
	ErrLengthMismatch = errors.New("length mismatch")
	// ErrChecksumMismatch indicates the checksum of a frame is incorrect.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrQueueOverflow indicates a decoded packet was lost because the
	// ready queue is full.
	ErrQueueOverflow = errors.New("queue overflow")
	// ErrEventOverflow indicates a packet matching no request was lost
	// because events are not consumed.
	ErrEventOverflow = errors.New("event overflow")
	// ErrBufferOverflow indicates receive buffer exceeds the limit without
	// a delimiter and was discarded.
	ErrBufferOverflow = errors.New("receive buffer overflow")
	// ErrNoReply indicates no reply received from peer.
	// This happens when a reply is received for a latter command, and all
	// previous commands fail with this error.
	ErrNoReply = errors.New("no reply")
)

// DecodeError is returned when COBS stuffing of a frame is malformed.
type DecodeError struct {
	Offset int
	Reason string
}

// Error implements error.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("frame decode error at %d: %s", e.Offset, e.Reason)
}

// ChecksumError reports the checksum carried by a frame and the computed one.
type ChecksumError struct {
	Expected uint16
	Actual   uint16
}

// Error implements error.
func (e *ChecksumError) Error() string {
	return fmt.Sprintf("checksum mismatch: frame %04x, computed %04x", e.Actual, e.Expected)
}

// Is makes errors.Is(err, ErrChecksumMismatch) work.
func (e *ChecksumError) Is(target error) bool {
	return target == ErrChecksumMismatch
}

// ConnectionError is returned when Open gives up.
type ConnectionError struct {
	Path     string
	Attempts int
	Err      error
}

// Error implements error.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("open %s failed after %d attempt(s): %v", e.Path, e.Attempts, e.Err)
}

// Is makes errors.Is(err, ErrConnectionFailed) work.
func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnectionFailed
}

// Unwrap returns the error of the last attempt.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IOError wraps read/write failures of an open port.
type IOError struct {
	Op  string
	Err error
}

// Error implements error.
func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Is makes errors.Is(err, ErrIO) work.
func (e *IOError) Is(target error) bool {
	return target == ErrIO
}

// Unwrap returns the underlying error.
func (e *IOError) Unwrap() error {
	return e.Err
}

package stream

import (
	"fmt"

	"github.com/ssargent/intblob/pkg/codec"
)

// DefaultBufferSize is the bufio size used when a config leaves it unset
const DefaultBufferSize = 64 * 1024

// EncoderConfig holds configuration for the encoder
type EncoderConfig struct {
	Name       string          // Blob name in the store
	Codec      *codec.IntCodec // Record width and byte order (nil = default)
	BufferSize int             // Write buffer size
}

// DecoderConfig holds configuration for the decoder
type DecoderConfig struct {
	Name       string          // Blob name in the store
	Codec      *codec.IntCodec // Must match the encoder's codec
	BufferSize int             // Read buffer size
}

// Iterator provides streaming access to decoded values
type Iterator interface {
	Next() bool
	Value() int64
	// Err returns nil after a clean end of stream.
	Err() error
	Close() error
}

// ErrorKind classifies stream failures
type ErrorKind int

const (
	KindOpen ErrorKind = iota + 1
	KindTruncated
)

func (k ErrorKind) String() string {
	switch k {
	case KindOpen:
		return "open failure"
	case KindTruncated:
		return "truncated record"
	default:
		return "unknown"
	}
}

// Errors
var (
	ErrOpenFailure     = &StreamError{Kind: KindOpen}
	ErrTruncatedRecord = &StreamError{Kind: KindTruncated}
)

// StreamError represents an encoder or decoder failure
type StreamError struct {
	Kind     ErrorKind
	Name     string // Blob name
	Offset   int64  // Byte offset where the failure was detected
	Trailing int    // Bytes of the partial record (KindTruncated)
	Err      error  // Underlying cause
}

func (e *StreamError) Error() string {
	switch {
	case e.Kind == KindTruncated:
		return fmt.Sprintf("%s: %s: %d trailing bytes at offset %d", e.Kind, e.Name, e.Trailing, e.Offset)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Name, e.Err)
	case e.Name != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Name)
	default:
		return e.Kind.String()
	}
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// Is matches any StreamError of the same kind
func (e *StreamError) Is(target error) bool {
	t, ok := target.(*StreamError)
	return ok && t.Kind == e.Kind
}

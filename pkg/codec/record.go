package codec

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	// DefaultWidth is the record width of the public contract: 4 bytes.
	DefaultWidth = 4
)

// DefaultByteOrder is the byte order of the public contract.
var DefaultByteOrder binary.ByteOrder = binary.LittleEndian

// Errors
var (
	ErrInvalidWidth  = errors.New("record width must be 1, 2, 4 or 8 bytes")
	ErrOutOfRange    = errors.New("value does not fit record width")
	ErrShortBuffer   = errors.New("buffer shorter than record width")
	ErrTrailingBytes = errors.New("trailing bytes shorter than one record")
	ErrByteOrder     = errors.New("unknown byte order")
)

// IntCodec converts signed integers to and from fixed-width records
type IntCodec struct {
	width int
	order binary.ByteOrder
}

// NewIntCodec creates a codec for the given width and byte order
func NewIntCodec(width int, order binary.ByteOrder) (*IntCodec, error) {
	switch width {
	case 1, 2, 4, 8:
	default:
		return nil, errors.Wrapf(ErrInvalidWidth, "width %d", width)
	}
	if order == nil {
		order = DefaultByteOrder
	}
	return &IntCodec{width: width, order: order}, nil
}

// DefaultCodec returns the 4-byte little-endian codec
func DefaultCodec() *IntCodec {
	return &IntCodec{width: DefaultWidth, order: DefaultByteOrder}
}

// ParseByteOrder maps a configuration string to a byte order
func ParseByteOrder(s string) (binary.ByteOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "little", "le", "little-endian":
		return binary.LittleEndian, nil
	case "big", "be", "big-endian":
		return binary.BigEndian, nil
	case "native":
		return binary.NativeEndian, nil
	default:
		return nil, errors.Wrapf(ErrByteOrder, "%q", s)
	}
}

// Width returns the record width in bytes
func (c *IntCodec) Width() int {
	return c.width
}

// ByteOrder returns the byte order used for every record
func (c *IntCodec) ByteOrder() binary.ByteOrder {
	return c.order
}

// Min returns the smallest value a record can hold
func (c *IntCodec) Min() int64 {
	if c.width == 8 {
		return math.MinInt64
	}
	return -1 << (uint(c.width)*8 - 1)
}

// Max returns the largest value a record can hold
func (c *IntCodec) Max() int64 {
	if c.width == 8 {
		return math.MaxInt64
	}
	return 1<<(uint(c.width)*8-1) - 1
}

// Fits reports whether v can be stored without loss
func (c *IntCodec) Fits(v int64) bool {
	return v >= c.Min() && v <= c.Max()
}

// EncodedLen returns the blob length of n records
func (c *IntCodec) EncodedLen(n int) int {
	return n * c.width
}

// Put writes v into the first Width() bytes of dst
func (c *IntCodec) Put(dst []byte, v int64) error {
	if len(dst) < c.width {
		return errors.Wrapf(ErrShortBuffer, "%d < %d", len(dst), c.width)
	}
	if !c.Fits(v) {
		return errors.Wrapf(ErrOutOfRange, "%d outside [%d, %d]", v, c.Min(), c.Max())
	}

	switch c.width {
	case 1:
		dst[0] = byte(int8(v))
	case 2:
		c.order.PutUint16(dst, uint16(int16(v)))
	case 4:
		c.order.PutUint32(dst, uint32(int32(v)))
	case 8:
		c.order.PutUint64(dst, uint64(v))
	}
	return nil
}

// Value decodes the first Width() bytes of src with sign extension
func (c *IntCodec) Value(src []byte) (int64, error) {
	if len(src) < c.width {
		return 0, errors.Wrapf(ErrShortBuffer, "%d < %d", len(src), c.width)
	}

	switch c.width {
	case 1:
		return int64(int8(src[0])), nil
	case 2:
		return int64(int16(c.order.Uint16(src))), nil
	case 4:
		return int64(int32(c.order.Uint32(src))), nil
	default:
		return int64(c.order.Uint64(src)), nil
	}
}

// Validate checks that every value fits the record width
func (c *IntCodec) Validate(values []int64) error {
	for i, v := range values {
		if !c.Fits(v) {
			return errors.Wrapf(ErrOutOfRange, "record %d: %d outside [%d, %d]", i, v, c.Min(), c.Max())
		}
	}
	return nil
}

// Encode serializes values into a record stream
// Format: [v0(width)][v1(width)]...[vN-1(width)], no header or separators
func (c *IntCodec) Encode(values []int64) ([]byte, error) {
	if err := c.Validate(values); err != nil {
		return nil, err
	}

	buf := make([]byte, c.EncodedLen(len(values)))
	for i, v := range values {
		// range already checked
		_ = c.Put(buf[i*c.width:], v)
	}

	return buf, nil
}

// Decode deserializes a record stream. When data ends in a partial record the
// complete prefix is returned together with ErrTrailingBytes.
func (c *IntCodec) Decode(data []byte) ([]int64, error) {
	n := len(data) / c.width
	values := make([]int64, 0, n)

	for off := 0; off+c.width <= len(data); off += c.width {
		v, err := c.Value(data[off:])
		if err != nil {
			return values, err
		}
		values = append(values, v)
	}

	if rem := len(data) % c.width; rem != 0 {
		return values, errors.Wrapf(ErrTrailingBytes, "%d bytes after %d records", rem, n)
	}

	return values, nil
}

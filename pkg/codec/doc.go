// Package codec provides fixed-width integer record serialization for intblob.
//
// The codec package implements the record layout shared by the stream
// encoder and decoder. A blob is nothing but records laid end to end.
//
// # Record Format
//
// Every record is one signed two's-complement integer of a fixed width:
//
//	[v0(W)][v1(W)]...[vN-1(W)]
//
// There is no header, length prefix or separator. The number of records is
// len(blob) / W and a well-formed blob length is always a multiple of W.
//
// The default contract is W = 4 bytes, little-endian. Widths of 1, 2 and 8
// bytes and big-endian or native byte order can be selected at configuration
// time. Neither the width nor the byte order is stored in the blob, so the
// writer and the reader must agree on both out of band. A reader configured
// differently from the writer decodes garbage without noticing.
//
// # Usage
//
//	c := codec.DefaultCodec()
//
//	data, err := c.Encode([]int64{100, 200, 300})
//	if err != nil {
//	    return err // a value did not fit the width
//	}
//
//	values, err := c.Decode(data)
//	if errors.Is(err, codec.ErrTrailingBytes) {
//	    // values holds the complete records before the partial one
//	}
//
// # Error Handling
//
//   - ErrInvalidWidth: unsupported record width
//   - ErrOutOfRange: a value does not fit the configured width
//   - ErrShortBuffer: fewer than W bytes passed to Put or Value
//   - ErrTrailingBytes: data ends with a partial record
//
// # Thread Safety
//
// IntCodec values are immutable and safe for concurrent use.
package codec

package stream

import (
	"bufio"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/ssargent/intblob/pkg/blobstore"
	"github.com/ssargent/intblob/pkg/codec"
)

// Decoder provides sequential access to the records of a blob
type Decoder struct {
	source io.ReadCloser
	reader *bufio.Reader
	codec  *codec.IntCodec
	config DecoderConfig
	chunk  []byte
	offset int64
	count  int64
}

// NewDecoder opens the blob for reading
func NewDecoder(store blobstore.Store, config DecoderConfig) (*Decoder, error) {
	if config.Codec == nil {
		config.Codec = codec.DefaultCodec()
	}
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultBufferSize
	}

	source, err := store.Open(config.Name)
	if err != nil {
		return nil, &StreamError{Kind: KindOpen, Name: config.Name, Err: err}
	}

	return &Decoder{
		source: source,
		reader: bufio.NewReaderSize(source, config.BufferSize),
		codec:  config.Codec,
		config: config,
		chunk:  make([]byte, config.Codec.Width()),
	}, nil
}

// ReadNext reads the next record. It returns io.EOF when the blob ends on a
// record boundary and a KindTruncated StreamError when it ends mid-record.
func (d *Decoder) ReadNext() (int64, error) {
	// Attempt the full width first, then classify what came back
	n, err := io.ReadFull(d.reader, d.chunk)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		return 0, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return 0, &StreamError{
			Kind:     KindTruncated,
			Name:     d.config.Name,
			Offset:   d.offset,
			Trailing: n,
		}
	default:
		return 0, errors.Wrapf(err, "read %s at offset %d", d.config.Name, d.offset)
	}

	d.offset += int64(n)

	v, err := d.codec.Value(d.chunk)
	if err != nil {
		return 0, err
	}
	d.count++

	return v, nil
}

// Offset returns the byte offset of the next record
func (d *Decoder) Offset() int64 {
	return d.offset
}

// Count returns the number of records decoded so far
func (d *Decoder) Count() int64 {
	return d.count
}

// Name returns the blob name
func (d *Decoder) Name() string {
	return d.config.Name
}

// Iterator returns a streaming iterator for values
func (d *Decoder) Iterator() Iterator {
	return &valueIterator{decoder: d}
}

// Close closes the decoder
func (d *Decoder) Close() error {
	return d.source.Close()
}

// valueIterator implements Iterator for streaming access
type valueIterator struct {
	decoder *Decoder
	value   int64
	err     error
	done    bool
}

func (it *valueIterator) Next() bool {
	if it.done {
		return false
	}

	v, err := it.decoder.ReadNext()
	if err != nil {
		it.done = true
		if !errors.Is(err, io.EOF) {
			it.err = err
		}
		return false
	}

	it.value = v
	return true
}

func (it *valueIterator) Value() int64 {
	return it.value
}

func (it *valueIterator) Err() error {
	return it.err
}

func (it *valueIterator) Close() error {
	// Don't close the underlying decoder as it's owned by the caller
	return nil
}

package stream

import (
	"bufio"

	"github.com/cockroachdb/errors"

	"github.com/ssargent/intblob/pkg/blobstore"
	"github.com/ssargent/intblob/pkg/codec"
)

// Encoder writes fixed-width records to a blob
type Encoder struct {
	dest    blobstore.Writer
	writer  *bufio.Writer
	codec   *codec.IntCodec
	config  EncoderConfig
	scratch []byte
	count   int64
	offset  int64 // Bytes written so far
	closed  bool
}

// NewEncoder opens the destination blob for exclusive writing, discarding
// its prior contents. Open problems surface here, before any write.
func NewEncoder(store blobstore.Store, config EncoderConfig) (*Encoder, error) {
	if config.Codec == nil {
		config.Codec = codec.DefaultCodec()
	}
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultBufferSize
	}

	dest, err := store.Create(config.Name)
	if err != nil {
		return nil, &StreamError{Kind: KindOpen, Name: config.Name, Err: err}
	}

	return &Encoder{
		dest:    dest,
		writer:  bufio.NewWriterSize(dest, config.BufferSize),
		codec:   config.Codec,
		config:  config,
		scratch: make([]byte, config.Codec.Width()),
	}, nil
}

// Write appends one record
func (e *Encoder) Write(v int64) error {
	if e.closed {
		return errors.Newf("encoder for %s is closed", e.config.Name)
	}

	if err := e.codec.Put(e.scratch, v); err != nil {
		return errors.Wrapf(err, "record %d", e.count)
	}

	n, err := e.writer.Write(e.scratch)
	e.offset += int64(n)
	if err != nil {
		return errors.Wrapf(err, "write record %d", e.count)
	}

	e.count++
	return nil
}

// WriteAll appends values in order
func (e *Encoder) WriteAll(values []int64) error {
	for _, v := range values {
		if err := e.Write(v); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes buffered records, syncs the blob to its medium and closes it
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	if err := e.writer.Flush(); err != nil {
		if closeErr := e.dest.Close(); closeErr != nil {
			err = errors.CombineErrors(err, closeErr)
		}
		return errors.Wrapf(err, "flush %s", e.config.Name)
	}

	if err := e.dest.Sync(); err != nil {
		if closeErr := e.dest.Close(); closeErr != nil {
			err = errors.CombineErrors(err, closeErr)
		}
		return errors.Wrapf(err, "sync %s", e.config.Name)
	}

	return errors.Wrapf(e.dest.Close(), "close %s", e.config.Name)
}

// Count returns the number of records written
func (e *Encoder) Count() int64 {
	return e.count
}

// Size returns the number of bytes written
func (e *Encoder) Size() int64 {
	return e.offset
}

// Name returns the blob name
func (e *Encoder) Name() string {
	return e.config.Name
}

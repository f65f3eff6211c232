package stream

import (
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/ssargent/intblob/pkg/blobstore"
	"github.com/ssargent/intblob/pkg/codec"
	"github.com/ssargent/intblob/pkg/metrics"
)

// Stream runs encode and decode operations against a blob store
type Stream struct {
	store      blobstore.Store
	codec      *codec.IntCodec
	logger     *zap.Logger
	metrics    *metrics.Metrics
	bufferSize int
}

// Option configures a Stream
type Option func(*Stream)

// WithCodec sets the record width and byte order
func WithCodec(c *codec.IntCodec) Option {
	return func(s *Stream) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Stream) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics enables metric collection
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Stream) {
		s.metrics = m
	}
}

// WithBufferSize sets the read and write buffer size
func WithBufferSize(size int) Option {
	return func(s *Stream) {
		if size > 0 {
			s.bufferSize = size
		}
	}
}

// New creates a stream over store
func New(store blobstore.Store, options ...Option) *Stream {
	s := &Stream{
		store:      store,
		codec:      codec.DefaultCodec(),
		logger:     zap.NewNop(),
		bufferSize: DefaultBufferSize,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Codec returns the codec shared by the encoder and decoder
func (s *Stream) Codec() *codec.IntCodec {
	return s.codec
}

// EncodeResult describes a completed encode
type EncodeResult struct {
	RunID   string
	Name    string
	Records int64
	Bytes   int64
}

// Encode writes values to the named blob, replacing its contents. Every
// value is checked against the record width before the blob is opened.
func (s *Stream) Encode(name string, values []int64) (*EncodeResult, error) {
	start := time.Now()
	log, id := s.runLogger(metrics.OpEncode, name)

	if err := s.codec.Validate(values); err != nil {
		s.fail(log, metrics.OpEncode, err, 0, start)
		return nil, err
	}

	enc, err := NewEncoder(s.store, EncoderConfig{
		Name:       name,
		Codec:      s.codec,
		BufferSize: s.bufferSize,
	})
	if err != nil {
		s.fail(log, metrics.OpEncode, err, 0, start)
		return nil, err
	}

	if err := enc.WriteAll(values); err != nil {
		if closeErr := enc.Close(); closeErr != nil {
			err = errors.CombineErrors(err, closeErr)
		}
		s.fail(log, metrics.OpEncode, err, 0, start)
		return nil, err
	}

	if err := enc.Close(); err != nil {
		s.fail(log, metrics.OpEncode, err, 0, start)
		return nil, err
	}

	result := &EncodeResult{
		RunID:   id,
		Name:    name,
		Records: enc.Count(),
		Bytes:   enc.Size(),
	}
	s.metrics.RecordSuccess(metrics.OpEncode, result.Records, result.Bytes, time.Since(start))
	log.Info("blob encoded",
		zap.Int64("records", result.Records),
		zap.Int64("bytes", result.Bytes),
		zap.Duration("elapsed", time.Since(start)),
	)

	return result, nil
}

// Decode reads every record of the named blob. On an open failure the
// returned slice is nil. On a truncated record the complete prefix is
// returned together with the error.
func (s *Stream) Decode(name string) ([]int64, error) {
	start := time.Now()
	log, _ := s.runLogger(metrics.OpDecode, name)

	dec, err := s.decoder(name)
	if err != nil {
		s.fail(log, metrics.OpDecode, err, 0, start)
		return nil, err
	}
	defer dec.Close()

	values := make([]int64, 0)
	for {
		v, err := dec.ReadNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.fail(log, metrics.OpDecode, err, dec.Count(), start)
			return values, err
		}
		values = append(values, v)
	}

	s.metrics.RecordSuccess(metrics.OpDecode, dec.Count(), dec.Offset(), time.Since(start))
	log.Info("blob decoded",
		zap.Int64("records", dec.Count()),
		zap.Int64("bytes", dec.Offset()),
		zap.Duration("elapsed", time.Since(start)),
	)

	return values, nil
}

// Iterate opens the named blob for lazy decoding. Closing the iterator
// closes the blob. Calling Iterate again replays the blob from the start.
func (s *Stream) Iterate(name string) (Iterator, error) {
	start := time.Now()
	log, _ := s.runLogger(metrics.OpDecode, name)

	dec, err := s.decoder(name)
	if err != nil {
		s.fail(log, metrics.OpDecode, err, 0, start)
		return nil, err
	}

	return &ownedIterator{
		valueIterator: valueIterator{decoder: dec},
		stream:        s,
		log:           log,
		start:         start,
	}, nil
}

// Inspection summarizes a blob without decoding it
type Inspection struct {
	Name      string
	Bytes     int64
	Records   int64
	Trailing  int64 // Bytes past the last complete record
	Width     int
	ByteOrder string
}

// Truncated reports whether the blob ends in a partial record
func (i *Inspection) Truncated() bool {
	return i.Trailing != 0
}

// Inspect reports the size and record count of the named blob
func (s *Stream) Inspect(name string) (*Inspection, error) {
	start := time.Now()
	log, _ := s.runLogger(metrics.OpInspect, name)

	size, err := s.store.Stat(name)
	if err != nil {
		err = &StreamError{Kind: KindOpen, Name: name, Err: err}
		s.fail(log, metrics.OpInspect, err, 0, start)
		return nil, err
	}

	width := int64(s.codec.Width())
	insp := &Inspection{
		Name:      name,
		Bytes:     size,
		Records:   size / width,
		Trailing:  size % width,
		Width:     s.codec.Width(),
		ByteOrder: s.codec.ByteOrder().String(),
	}

	s.metrics.RecordSuccess(metrics.OpInspect, 0, 0, time.Since(start))
	log.Debug("blob inspected",
		zap.Int64("bytes", insp.Bytes),
		zap.Int64("records", insp.Records),
		zap.Int64("trailing", insp.Trailing),
	)

	return insp, nil
}

func (s *Stream) decoder(name string) (*Decoder, error) {
	return NewDecoder(s.store, DecoderConfig{
		Name:       name,
		Codec:      s.codec,
		BufferSize: s.bufferSize,
	})
}

// runLogger tags every line of one operation with a fresh run ID
func (s *Stream) runLogger(op, name string) (*zap.Logger, string) {
	id := ksuid.New().String()
	return s.logger.With(
		zap.String("run_id", id),
		zap.String("op", op),
		zap.String("blob", name),
		zap.Int("width", s.codec.Width()),
	), id
}

func (s *Stream) fail(log *zap.Logger, op string, err error, records int64, start time.Time) {
	kind := "error"
	var se *StreamError
	if errors.As(err, &se) {
		kind = se.Kind.String()
	}

	s.metrics.RecordFailure(op, kind, records, time.Since(start))
	log.Error("stream operation failed",
		zap.String("kind", kind),
		zap.Int64("records", records),
		zap.Error(err),
	)
}

// ownedIterator closes its decoder and reports the outcome when done
type ownedIterator struct {
	valueIterator
	stream   *Stream
	log      *zap.Logger
	start    time.Time
	reported bool
}

func (it *ownedIterator) Next() bool {
	if it.valueIterator.Next() {
		return true
	}
	it.report()
	return false
}

func (it *ownedIterator) report() {
	if it.reported {
		return
	}
	it.reported = true

	dec := it.decoder
	if it.err != nil {
		it.stream.fail(it.log, metrics.OpDecode, it.err, dec.Count(), it.start)
		return
	}
	it.stream.metrics.RecordSuccess(metrics.OpDecode, dec.Count(), dec.Offset(), time.Since(it.start))

	msg := "blob decoded"
	if !it.done {
		msg = "blob decode stopped early"
	}
	it.log.Info(msg,
		zap.Int64("records", dec.Count()),
		zap.Int64("bytes", dec.Offset()),
	)
}

// Close reports runs the caller abandoned before the end, then closes the blob
func (it *ownedIterator) Close() error {
	it.report()
	return it.decoder.Close()
}

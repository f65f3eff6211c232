package stream

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ssargent/intblob/pkg/blobstore"
	"github.com/ssargent/intblob/pkg/codec"
	"github.com/ssargent/intblob/pkg/metrics"
)

type storeFactory struct {
	name string
	open func(t *testing.T) blobstore.Store
}

func storeFactories() []storeFactory {
	return []storeFactory{
		{
			name: "file",
			open: func(t *testing.T) blobstore.Store {
				return blobstore.NewFileStore(t.TempDir())
			},
		},
		{
			name: "pebble",
			open: func(t *testing.T) blobstore.Store {
				s, err := blobstore.NewPebbleStore(filepath.Join(t.TempDir(), "db"))
				require.NoError(t, err)
				t.Cleanup(func() { s.Close() })
				return s
			},
		},
	}
}

// appendRaw rewrites a blob with extra bytes through the store itself
func appendRaw(t *testing.T, store blobstore.Store, name string, extra []byte) {
	t.Helper()

	r, err := store.Open(name)
	require.NoError(t, err)
	buf := make([]byte, 0, 64)
	chunk := make([]byte, 64)
	for {
		n, err := r.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if err != nil {
			break
		}
	}
	require.NoError(t, r.Close())

	w, err := store.Create(name)
	require.NoError(t, err)
	_, err = w.Write(append(buf, extra...))
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func TestStream_RoundTrip(t *testing.T) {
	sequences := []struct {
		name   string
		width  int
		values []int64
	}{
		{"reference", 4, []int64{100, 200, 300}},
		{"empty", 4, []int64{}},
		{"negative and zero", 4, []int64{-5, 0, -2147483648, 7}},
		{"int32 extremes", 4, []int64{math.MinInt32, math.MaxInt32}},
		{"int8 extremes", 1, []int64{math.MinInt8, math.MaxInt8, 0, -1}},
		{"int16 extremes", 2, []int64{math.MinInt16, math.MaxInt16}},
		{"int64 extremes", 8, []int64{math.MinInt64, math.MaxInt64, 0}},
	}

	for _, factory := range storeFactories() {
		for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
			for _, seq := range sequences {
				t.Run(factory.name+"/"+order.String()+"/"+seq.name, func(t *testing.T) {
					c, err := codec.NewIntCodec(seq.width, order)
					require.NoError(t, err)

					store := factory.open(t)
					s := New(store, WithCodec(c))

					result, err := s.Encode("data.dat", seq.values)
					require.NoError(t, err)
					assert.Equal(t, int64(len(seq.values)), result.Records)
					assert.Equal(t, int64(len(seq.values)*seq.width), result.Bytes)
					assert.NotEmpty(t, result.RunID)

					size, err := store.Stat("data.dat")
					require.NoError(t, err)
					assert.Equal(t, int64(len(seq.values)*seq.width), size)

					decoded, err := s.Decode("data.dat")
					require.NoError(t, err)
					assert.Equal(t, seq.values, decoded)
				})
			}
		}
	}
}

func TestStream_ReferenceScenario(t *testing.T) {
	store := blobstore.NewFileStore(t.TempDir())
	s := New(store)

	_, err := s.Encode("data.dat", []int64{100, 200, 300})
	require.NoError(t, err)

	size, err := store.Stat("data.dat")
	require.NoError(t, err)
	assert.Equal(t, int64(12), size)

	values, err := s.Decode("data.dat")
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 200, 300}, values)
}

func TestStream_CleanEmpty(t *testing.T) {
	for _, factory := range storeFactories() {
		t.Run(factory.name, func(t *testing.T) {
			s := New(factory.open(t))

			_, err := s.Encode("empty.dat", nil)
			require.NoError(t, err)

			values, err := s.Decode("empty.dat")
			require.NoError(t, err)
			assert.NotNil(t, values)
			assert.Empty(t, values)
		})
	}
}

func TestStream_TruncationDetection(t *testing.T) {
	for _, factory := range storeFactories() {
		for _, width := range []int{2, 4, 8} {
			for extra := 1; extra < width; extra++ {
				t.Run(fmt.Sprintf("%s/w%d/extra%d", factory.name, width, extra), func(t *testing.T) {
					c, err := codec.NewIntCodec(width, nil)
					require.NoError(t, err)

					store := factory.open(t)
					s := New(store, WithCodec(c))

					_, err = s.Encode("data.dat", []int64{100, -200, 300})
					require.NoError(t, err)
					appendRaw(t, store, "data.dat", make([]byte, extra))

					values, err := s.Decode("data.dat")
					assert.ErrorIs(t, err, ErrTruncatedRecord)
					// Complete prefix only, never a fabricated final record
					assert.Equal(t, []int64{100, -200, 300}, values)

					var se *StreamError
					require.ErrorAs(t, err, &se)
					assert.Equal(t, extra, se.Trailing)
					assert.Equal(t, int64(3*width), se.Offset)
				})
			}
		}
	}
}

func TestStream_OpenFailure(t *testing.T) {
	for _, factory := range storeFactories() {
		t.Run(factory.name, func(t *testing.T) {
			s := New(factory.open(t))

			values, err := s.Decode("missing.dat")
			assert.ErrorIs(t, err, ErrOpenFailure)
			assert.Nil(t, values)

			it, err := s.Iterate("missing.dat")
			assert.ErrorIs(t, err, ErrOpenFailure)
			assert.Nil(t, it)

			insp, err := s.Inspect("missing.dat")
			assert.ErrorIs(t, err, ErrOpenFailure)
			assert.Nil(t, insp)
		})
	}
}

func TestStream_OpenFailureDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "data.dat"), 0750))

	s := New(blobstore.NewFileStore(dir))

	values, err := s.Decode("data.dat")
	assert.ErrorIs(t, err, ErrOpenFailure)
	assert.ErrorIs(t, err, blobstore.ErrBadName)
	assert.Nil(t, values)

	it, err := s.Iterate("data.dat")
	assert.ErrorIs(t, err, ErrOpenFailure)
	assert.Nil(t, it)

	insp, err := s.Inspect("data.dat")
	assert.ErrorIs(t, err, ErrOpenFailure)
	assert.Nil(t, insp)
}

func TestStream_DecodeIdempotent(t *testing.T) {
	for _, factory := range storeFactories() {
		t.Run(factory.name, func(t *testing.T) {
			s := New(factory.open(t))

			_, err := s.Encode("data.dat", []int64{3, 1, 4, 1, 5, 9, 2, 6})
			require.NoError(t, err)

			first, err := s.Decode("data.dat")
			require.NoError(t, err)
			second, err := s.Decode("data.dat")
			require.NoError(t, err)

			assert.Equal(t, first, second)
		})
	}
}

func TestStream_EncodeRejectsBeforeOpen(t *testing.T) {
	c, err := codec.NewIntCodec(2, nil)
	require.NoError(t, err)

	store := blobstore.NewFileStore(t.TempDir())
	s := New(store, WithCodec(c))

	_, err = s.Encode("data.dat", []int64{1, 70000})
	assert.ErrorIs(t, err, codec.ErrOutOfRange)

	// Nothing was created
	_, err = store.Stat("data.dat")
	assert.ErrorIs(t, err, blobstore.ErrNotExist)
}

func TestStream_EncodeReplaces(t *testing.T) {
	s := New(blobstore.NewFileStore(t.TempDir()))

	_, err := s.Encode("data.dat", []int64{1, 2, 3, 4, 5})
	require.NoError(t, err)
	_, err = s.Encode("data.dat", []int64{9})
	require.NoError(t, err)

	values, err := s.Decode("data.dat")
	require.NoError(t, err)
	assert.Equal(t, []int64{9}, values)
}

func TestStream_Iterate(t *testing.T) {
	s := New(blobstore.NewFileStore(t.TempDir()))

	_, err := s.Encode("data.dat", []int64{10, -20, 30})
	require.NoError(t, err)

	// Each Iterate call replays the blob from the start
	for pass := 0; pass < 2; pass++ {
		it, err := s.Iterate("data.dat")
		require.NoError(t, err)

		var got []int64
		for it.Next() {
			got = append(got, it.Value())
		}
		assert.NoError(t, it.Err())
		assert.Equal(t, []int64{10, -20, 30}, got)
		require.NoError(t, it.Close())
	}
}

func TestStream_IterateStoppedEarly(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	m := metrics.NewMetrics()

	s := New(blobstore.NewFileStore(t.TempDir()), WithLogger(zap.New(core)), WithMetrics(m))

	_, err := s.Encode("data.dat", []int64{10, 20, 30})
	require.NoError(t, err)

	it, err := s.Iterate("data.dat")
	require.NoError(t, err)
	require.True(t, it.Next())
	assert.Equal(t, int64(10), it.Value())
	require.NoError(t, it.Close())

	stopped := logs.FilterMessage("blob decode stopped early").All()
	require.Len(t, stopped, 1)
	assert.Equal(t, int64(1), stopped[0].ContextMap()["records"])
	assert.Equal(t, int64(4), stopped[0].ContextMap()["bytes"])

	// Both the encode and the abandoned decode are counted
	count, err := testutil.GatherAndCount(m.Registry(), "intblob_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStream_IterateReportsOnce(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	s := New(blobstore.NewFileStore(t.TempDir()), WithLogger(zap.New(core)))

	_, err := s.Encode("data.dat", []int64{1, 2})
	require.NoError(t, err)

	it, err := s.Iterate("data.dat")
	require.NoError(t, err)
	for it.Next() {
	}
	require.NoError(t, it.Err())
	require.NoError(t, it.Close())

	assert.Len(t, logs.FilterMessage("blob decoded").All(), 1)
	assert.Empty(t, logs.FilterMessage("blob decode stopped early").All())
}

func TestStream_Inspect(t *testing.T) {
	store := blobstore.NewFileStore(t.TempDir())
	s := New(store)

	_, err := s.Encode("data.dat", []int64{100, 200, 300})
	require.NoError(t, err)

	insp, err := s.Inspect("data.dat")
	require.NoError(t, err)
	assert.Equal(t, int64(12), insp.Bytes)
	assert.Equal(t, int64(3), insp.Records)
	assert.False(t, insp.Truncated())
	assert.Equal(t, 4, insp.Width)
	assert.Equal(t, "LittleEndian", insp.ByteOrder)

	appendRaw(t, store, "data.dat", []byte{1, 2})

	insp, err = s.Inspect("data.dat")
	require.NoError(t, err)
	assert.True(t, insp.Truncated())
	assert.Equal(t, int64(2), insp.Trailing)
	assert.Equal(t, int64(3), insp.Records)
}

func TestStream_LoggingAndMetrics(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	m := metrics.NewMetrics()

	store := blobstore.NewFileStore(t.TempDir())
	s := New(store, WithLogger(zap.New(core)), WithMetrics(m), WithBufferSize(8))

	_, err := s.Encode("data.dat", []int64{1, 2, 3})
	require.NoError(t, err)
	_, err = s.Decode("data.dat")
	require.NoError(t, err)
	_, err = s.Decode("missing.dat")
	require.Error(t, err)

	encoded := logs.FilterMessage("blob encoded").All()
	require.Len(t, encoded, 1)
	fields := encoded[0].ContextMap()
	assert.Equal(t, "encode", fields["op"])
	assert.Equal(t, "data.dat", fields["blob"])
	assert.Equal(t, int64(3), fields["records"])
	assert.Len(t, fields["run_id"], 27)

	failed := logs.FilterMessage("stream operation failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "open failure", failed[0].ContextMap()["kind"])

	// Run IDs are unique per operation
	decoded := logs.FilterMessage("blob decoded").All()
	require.Len(t, decoded, 1)
	assert.NotEqual(t, fields["run_id"], decoded[0].ContextMap()["run_id"])

	registry := m.Registry()
	count, err := testutil.GatherAndCount(registry, "intblob_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

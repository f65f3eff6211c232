// Package di provides dependency injection container
package di

import (
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/ssargent/intblob/pkg/blobstore"
	"github.com/ssargent/intblob/pkg/config"
	"github.com/ssargent/intblob/pkg/logging"
	"github.com/ssargent/intblob/pkg/metrics"
	"github.com/ssargent/intblob/pkg/stream"
)

// pebbleDirName is the database directory below data_dir for the pebble backend
const pebbleDirName = "blobs.pebble"

// Container holds all the dependencies for the application
type Container struct {
	config  *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	store   blobstore.Store
	stream  *stream.Stream
}

// NewContainer builds logger, metrics, blob store and stream from config
func NewContainer(cfg *config.Config) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	c := &Container{
		config:  cfg,
		logger:  logger,
		metrics: metrics.NewMetrics(),
	}

	if err := c.openStore(); err != nil {
		_ = logger.Sync()
		return nil, err
	}

	recordCodec, err := cfg.Codec()
	if err != nil {
		c.store.Close()
		return nil, err
	}

	c.stream = stream.New(c.store,
		stream.WithCodec(recordCodec),
		stream.WithLogger(logger),
		stream.WithMetrics(c.metrics),
		stream.WithBufferSize(cfg.BufferSize),
	)

	return c, nil
}

func (c *Container) openStore() error {
	switch strings.ToLower(c.config.Backend) {
	case config.BackendPebble:
		s, err := blobstore.NewPebbleStore(filepath.Join(c.config.DataDir, pebbleDirName))
		if err != nil {
			return err
		}
		c.store = s
	default:
		c.store = blobstore.NewFileStore(c.config.DataDir)
	}

	c.logger.Debug("blob store ready",
		zap.String("backend", c.config.Backend),
		zap.String("data_dir", c.config.DataDir),
	)
	return nil
}

// Config returns the resolved configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the shared logger
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Metrics returns the metrics collector
func (c *Container) Metrics() *metrics.Metrics {
	return c.metrics
}

// Store returns the blob store
func (c *Container) Store() blobstore.Store {
	return c.store
}

// Stream returns the stream service
func (c *Container) Stream() *stream.Stream {
	return c.stream
}

// Close releases the store, exports metrics when configured and flushes logs
func (c *Container) Close() error {
	var err error
	if c.store != nil {
		err = errors.CombineErrors(err, c.store.Close())
	}
	if textfile := c.config.Metrics.Textfile; textfile != "" {
		err = errors.CombineErrors(err, errors.Wrapf(c.metrics.WriteTextfile(textfile), "write metrics to %s", textfile))
	}
	// Sync on stderr fails with EINVAL on some platforms; nothing to report
	_ = c.logger.Sync()
	return err
}

package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dd0wney/cluso-pathbench/pkg/logging"
	"github.com/dd0wney/cluso-pathbench/pkg/metrics"
)

const (
	tierMemory = "memory"
	tierDisk   = "disk"

	fileExt = ".sz"
)

// DefaultSize is the number of entries kept in memory when none is given.
const DefaultSize = 16

// Cache is safe for concurrent use. A Cache with an empty directory keeps
// entries in memory only.
type Cache struct {
	dir     string
	mem     *lru.Cache[Fingerprint, []byte]
	logger  logging.Logger
	metrics *metrics.Registry
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger for disk diagnostics.
func WithLogger(l logging.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithMetrics records lookups on r.
func WithMetrics(r *metrics.Registry) Option {
	return func(c *Cache) { c.metrics = r }
}

// New creates a cache holding size entries in memory and persisting to dir.
func New(dir string, size int, opts ...Option) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	mem, err := lru.New[Fingerprint, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
		}
	}
	c := &Cache{dir: dir, mem: mem}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrDefault(c.logger).With(logging.Component("cache"))
	return c, nil
}

func (c *Cache) path(fp Fingerprint) string {
	return filepath.Join(c.dir, fp.String()+fileExt)
}

// Get returns the bytes stored under fp.
func (c *Cache) Get(fp Fingerprint) ([]byte, bool) {
	if data, ok := c.mem.Get(fp); ok {
		c.metrics.RecordCacheLookup(tierMemory, true)
		return data, true
	}
	c.metrics.RecordCacheLookup(tierMemory, false)
	if c.dir == "" {
		return nil, false
	}

	compressed, err := os.ReadFile(c.path(fp))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("cache read failed", logging.Path(c.path(fp)), logging.Error(err))
		}
		c.metrics.RecordCacheLookup(tierDisk, false)
		return nil, false
	}
	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		c.logger.Warn("corrupt cache entry", logging.Path(c.path(fp)), logging.Error(err))
		c.metrics.RecordCacheLookup(tierDisk, false)
		return nil, false
	}
	c.metrics.RecordCacheLookup(tierDisk, true)
	c.mem.Add(fp, data)
	return data, true
}

// Put stores data under fp in memory and, when a directory is set, on disk.
func (c *Cache) Put(fp Fingerprint, data []byte) error {
	c.mem.Add(fp, data)
	if c.dir == "" {
		return nil
	}

	tmp, err := os.CreateTemp(c.dir, fp.String()+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	if _, err := tmp.Write(snappy.Encode(nil, data)); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path(fp)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to commit cache file: %w", err)
	}
	return nil
}

// GetJSON decodes the entry under fp into v. It reports false when there is
// no usable entry.
func (c *Cache) GetJSON(fp Fingerprint, v any) bool {
	data, ok := c.Get(fp)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		c.logger.Warn("undecodable cache entry", logging.String("fingerprint", fp.String()), logging.Error(err))
		c.mem.Remove(fp)
		return false
	}
	return true
}

// PutJSON encodes v and stores it under fp.
func (c *Cache) PutJSON(fp Fingerprint, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	return c.Put(fp, data)
}

// Len returns the number of entries held in memory.
func (c *Cache) Len() int {
	return c.mem.Len()
}

// Purge drops every in-memory entry. Files on disk are kept.
func (c *Cache) Purge() {
	c.mem.Purge()
}

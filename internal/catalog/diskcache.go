package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"cexplorer/internal/api"
)

// bump when payload changes shape
const diskCacheSchemaVersion uint16 = 1

// DiskCache keeps catalog listings on disk between runs, one MessagePack file
// per service and listing. Safe for concurrent use.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
	log *zap.Logger
}

type payload struct {
	Schema    uint16
	BaseURL   string
	Key       string
	FetchedAt time.Time

	Languages []api.Language
	Compilers []api.CompilerInfo
	Libraries []api.Library
}

// DefaultCacheDir returns $XDG_CACHE_HOME/<app> or ~/.cache/<app>.
func DefaultCacheDir(app string) (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, app), nil
}

// OpenDiskCache creates dir if needed and returns a cache rooted there.
func OpenDiskCache(dir string, log *zap.Logger) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &DiskCache{dir: dir, log: log}, nil
}

// Dir returns the cache root.
func (c *DiskCache) Dir() string { return c.dir }

func (c *DiskCache) pathFor(baseURL, key string) string {
	sum := sha256.Sum256([]byte(baseURL + "\x00" + key))
	return filepath.Join(c.dir, "catalog", hex.EncodeToString(sum[:])+".mp")
}

func (c *DiskCache) put(p *payload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.pathFor(p.BaseURL, p.Key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			c.log.Warn("failed to remove temp file", zap.String("path", f.Name()), zap.Error(rmErr))
		}
	}()

	p.Schema = diskCacheSchemaVersion
	if err := msgpack.NewEncoder(f).Encode(p); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// atomic replace
	return os.Rename(f.Name(), path)
}

// get reports false for missing entries and entries of another schema.
func (c *DiskCache) get(baseURL, key string) (*payload, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(baseURL, key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var p payload
	if err := msgpack.NewDecoder(f).Decode(&p); err != nil {
		return nil, false, err
	}
	if p.Schema != diskCacheSchemaVersion || p.BaseURL != baseURL || p.Key != key {
		return nil, false, nil
	}
	return &p, true, nil
}

// DropAll removes every cached listing.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(filepath.Join(c.dir, "catalog"))
}

// Package cache stores compiled programs in SQLite, keyed by the sha256 of
// their source text.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dibashthapa/jsbytecode/pkg/bytecode"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"
)

var log = commonlog.GetLogger("lox.cache")

// ErrNotFound indicates the requested program is not cached.
var ErrNotFound = errors.New("program not found")

// Cache is a content-addressed program store. It is safe for concurrent
// use.
type Cache struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex

	hits   int
	misses int
}

// Open opens or creates the cache database at dbPath. Use ":memory:" for
// an in-memory cache.
func Open(dbPath string) (*Cache, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating cache directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Create table if needed
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		hash TEXT PRIMARY KEY,
		program BLOB NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	log.Debugf("opened compile cache %s", dbPath)
	return &Cache{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Path returns the database path the cache was opened with.
func (c *Cache) Path() string {
	return c.dbPath
}

// Key returns the cache key for a source text.
func Key(src string) string {
	sum := sha256.Sum256([]byte(src))
	return hex.EncodeToString(sum[:])
}

// Get returns the program compiled from src, or ErrNotFound.
func (c *Cache) Get(src string) (*bytecode.Program, error) {
	key := Key(src)

	var data []byte
	err := c.db.QueryRow("SELECT program FROM programs WHERE hash = ?", key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.count(false)
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying program: %w", err)
	}

	prog, err := bytecode.UnmarshalProgram(data)
	if err != nil {
		// A stale or corrupt entry is treated as a miss.
		log.Warningf("dropping unreadable cache entry %s: %s", key[:12], err)
		c.count(false)
		return nil, ErrNotFound
	}
	c.count(true)
	return prog, nil
}

// Put stores the program compiled from src, replacing any previous entry.
func (c *Cache) Put(src string, prog *bytecode.Program) error {
	data, err := bytecode.MarshalProgram(prog)
	if err != nil {
		return err
	}

	_, err = c.db.Exec(
		"INSERT OR REPLACE INTO programs (hash, program, created_at) VALUES (?, ?, ?)",
		Key(src), data, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("saving program: %w", err)
	}
	return nil
}

// GetOrCompile returns the cached program for src, or calls compile and
// stores its result.
func (c *Cache) GetOrCompile(src string, compile func() (*bytecode.Program, error)) (*bytecode.Program, error) {
	prog, err := c.Get(src)
	if err == nil {
		log.Debugf("cache hit %s", Key(src)[:12])
		return prog, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	prog, err = compile()
	if err != nil {
		return nil, err
	}
	if err := c.Put(src, prog); err != nil {
		return nil, err
	}
	log.Debugf("cache store %s", Key(src)[:12])
	return prog, nil
}

// Len returns the number of cached programs.
func (c *Cache) Len() (int, error) {
	var n int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM programs").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting programs: %w", err)
	}
	return n, nil
}

// Prune deletes entries created before the given time and returns how many
// were removed.
func (c *Cache) Prune(before time.Time) (int64, error) {
	res, err := c.db.Exec("DELETE FROM programs WHERE created_at < ?", before.Unix())
	if err != nil {
		return 0, fmt.Errorf("pruning programs: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns the hit and miss counts since the cache was opened.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *Cache) count(hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}

package proxy

import (
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	_ "modernc.org/sqlite"
)

const createCacheTableSQL = `CREATE TABLE IF NOT EXISTS proxies (
	source_path  TEXT PRIMARY KEY,
	content_hash TEXT NOT NULL,
	mtime_unix   INTEGER NOT NULL,
	proxy_path   TEXT NOT NULL
)`

const selectProxySQL = `SELECT content_hash, mtime_unix, proxy_path FROM proxies WHERE source_path = ?`

const upsertProxySQL = `INSERT INTO proxies (source_path, content_hash, mtime_unix, proxy_path)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(source_path) DO UPDATE SET
		content_hash = excluded.content_hash,
		mtime_unix   = excluded.mtime_unix,
		proxy_path   = excluded.proxy_path`

// Cache records which proxy was built from which source content, so a source
// file replaced in place invalidates its proxy instead of silently reusing a
// stale one.
type Cache struct {
	db *sql.DB
}

// OpenCache opens (creating if necessary) the proxy cache database
func OpenCache(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening proxy cache: %w", err)
	}

	if _, err := db.Exec(createCacheTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating proxy cache schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close releases the underlying database handle
func (c *Cache) Close() error {
	return c.db.Close()
}

// Fingerprint identifies the content of a source file
type Fingerprint struct {
	Hash  string
	Mtime int64
}

// FingerprintFile hashes a file's content and records its mtime
func FingerprintFile(path string) (Fingerprint, error) {
	f, err := os.Open(path)
	if err != nil {
		return Fingerprint{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Fingerprint{}, err
	}

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return Fingerprint{}, fmt.Errorf("hashing %s: %w", path, err)
	}

	return Fingerprint{
		Hash:  fmt.Sprintf("%016x", h.Sum64()),
		Mtime: info.ModTime().Unix(),
	}, nil
}

// Lookup reports whether the cached proxy for sourcePath was built from
// content matching fp
func (c *Cache) Lookup(sourcePath string, fp Fingerprint) (proxyPath string, fresh bool, err error) {
	var hash string
	var mtime int64
	err = c.db.QueryRow(selectProxySQL, sourcePath).Scan(&hash, &mtime, &proxyPath)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select proxy cache entry: %w", err)
	}

	return proxyPath, hash == fp.Hash && mtime == fp.Mtime, nil
}

// Record stores or replaces the cache entry for sourcePath
func (c *Cache) Record(sourcePath string, fp Fingerprint, proxyPath string) error {
	if _, err := c.db.Exec(upsertProxySQL, sourcePath, fp.Hash, fp.Mtime, proxyPath); err != nil {
		return fmt.Errorf("upsert proxy cache entry: %w", err)
	}
	return nil
}

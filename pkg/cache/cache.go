// Package cache stores graph and assembly results keyed by a fingerprint of
// the inputs that produced them.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillgraph/pkg/logger"
	"github.com/jingkaihe/skillgraph/pkg/types/catalog"
)

// Kind separates cached result types sharing the same fingerprint space
type Kind string

// Cached result kinds
const (
	KindGraph    Kind = "graph"
	KindAssembly Kind = "assembly"
)

// Cache is a SQLite-backed result cache
type Cache struct {
	db  *sqlx.DB
	now func() time.Time
}

// New creates a cache on an opened and migrated database
func New(db *sqlx.DB) *Cache {
	return &Cache{db: db, now: time.Now}
}

type fingerprintEntry struct {
	ID           string        `json:"id"`
	Stage        catalog.Stage `json:"stage"`
	Inputs       []string      `json:"inputs"`
	Artifacts    []string      `json:"artifacts"`
	Capabilities []string      `json:"capabilities"`
}

// Fingerprint hashes the tag sets of the catalog together with any extra
// inputs (plan, locks, feedback). Entry order and tag order do not affect
// the result.
func Fingerprint(entries []catalog.Entry, extras ...any) (string, error) {
	canonical := make([]fingerprintEntry, 0, len(entries))
	for _, e := range entries {
		canonical = append(canonical, fingerprintEntry{
			ID:           e.ID,
			Stage:        e.Stage,
			Inputs:       catalog.Union(e.Inputs),
			Artifacts:    catalog.Union(e.Artifacts),
			Capabilities: catalog.Union(e.Capabilities),
		})
	}
	sort.Slice(canonical, func(i, j int) bool { return canonical[i].ID < canonical[j].ID })

	h := sha256.New()
	enc := json.NewEncoder(h)
	if err := enc.Encode(canonical); err != nil {
		return "", errors.Wrap(err, "failed to encode catalog")
	}
	for i, extra := range extras {
		if err := enc.Encode(extra); err != nil {
			return "", errors.Wrapf(err, "failed to encode fingerprint input %d", i)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Get decodes the cached payload into out. It reports false on a miss.
func (c *Cache) Get(ctx context.Context, kind Kind, fingerprint string, out any) (bool, error) {
	var payload string
	err := c.db.GetContext(ctx, &payload,
		"SELECT payload FROM result_cache WHERE kind = ? AND fingerprint = ?", kind, fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to read cache entry")
	}

	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return false, errors.Wrap(err, "failed to decode cache entry")
	}
	logger.G(ctx).WithField("kind", kind).WithField("fingerprint", fingerprint).Debug("cache hit")
	return true, nil
}

// Put stores value under (kind, fingerprint), replacing any previous entry
func (c *Cache) Put(ctx context.Context, kind Kind, fingerprint string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "failed to encode cache entry")
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO result_cache (kind, fingerprint, payload, created_at) VALUES (?, ?, ?, ?)`,
		kind, fingerprint, string(payload), c.now().UTC())
	if err != nil {
		return errors.Wrap(err, "failed to write cache entry")
	}
	return nil
}

// Purge removes entries older than maxAge and returns how many were removed
func (c *Cache) Purge(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := c.now().UTC().Add(-maxAge)
	res, err := c.db.ExecContext(ctx, "DELETE FROM result_cache WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "failed to purge cache")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to count purged cache entries")
	}
	return n, nil
}

// Count returns the number of cached entries of a kind, or of every kind when kind is empty
func (c *Cache) Count(ctx context.Context, kind Kind) (int, error) {
	var n int
	var err error
	if kind == "" {
		err = c.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM result_cache")
	} else {
		err = c.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM result_cache WHERE kind = ?", kind)
	}
	if err != nil {
		return 0, errors.Wrap(err, "failed to count cache entries")
	}
	return n, nil
}

// Package probe detects store versions over the wire.
//
// Version detection is the only I/O in the compile path and happens before
// compilation: the detected versions are written into the catalog, which
// the compiler then reads. Results are cached per connection identity.
package probe

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/roach88/pushdown/internal/catalog"
	"github.com/roach88/pushdown/internal/conn"
	"github.com/roach88/pushdown/internal/dialect"
)

// VersionQuery reads the store's own version. The plain MySQL version
// (SELECT VERSION()) reports wire-protocol compatibility, not the store
// release, so it cannot be used for capability gating.
const VersionQuery = "SELECT @@memsql_version"

// DefaultCacheSize bounds the number of identities whose version is kept.
const DefaultCacheSize = 128

// Opener opens a database handle for an identity.
type Opener func(id conn.Identity) (*sql.DB, error)

// Prober detects and caches store versions. It is safe for concurrent use.
type Prober struct {
	open    Opener
	cache   *lru.Cache[string, dialect.Version]
	logger  *slog.Logger
	timeout time.Duration
}

// Option configures a Prober.
type Option func(*Prober)

// WithOpener replaces the MySQL opener, e.g. with a sqlmock-backed one.
func WithOpener(o Opener) Option {
	return func(p *Prober) {
		p.open = o
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Prober) {
		p.logger = l
	}
}

// WithTimeout bounds each probe. Zero means no bound beyond the caller's
// context.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		p.timeout = d
	}
}

// New creates a Prober caching up to size versions.
func New(size int, opts ...Option) (*Prober, error) {
	cache, err := lru.New[string, dialect.Version](size)
	if err != nil {
		return nil, fmt.Errorf("create version cache: %w", err)
	}
	p := &Prober{
		open:    OpenMySQL,
		cache:   cache,
		logger:  slog.Default(),
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// OpenMySQL opens a handle to id's first endpoint through the MySQL driver.
// Other endpoints of the same identity serve the same store and version.
func OpenMySQL(id conn.Identity) (*sql.DB, error) {
	if len(id.Endpoints) == 0 {
		return nil, errors.New("identity has no endpoints")
	}
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = id.Endpoints[0]
	cfg.User = id.User
	cfg.Passwd = id.Password
	cfg.DBName = id.Database
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector for %s: %w", id, err)
	}
	return sql.OpenDB(connector), nil
}

// Version returns the store version behind id, probing on a cache miss.
func (p *Prober) Version(ctx context.Context, id conn.Identity) (dialect.Version, error) {
	key := id.Fingerprint()
	if v, ok := p.cache.Get(key); ok {
		return v, nil
	}

	db, err := p.open(id)
	if err != nil {
		return dialect.Version{}, fmt.Errorf("open %s: %w", id, err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			p.logger.Debug("error closing probe connection", "identity", id.String(), "error", closeErr)
		}
	}()

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	v, err := Detect(ctx, db)
	if err != nil {
		return dialect.Version{}, fmt.Errorf("probe %s: %w", id, err)
	}
	p.cache.Add(key, v)
	p.logger.Info("store version detected", "identity", id.String(), "version", v.String())
	return v, nil
}

// Detect runs VersionQuery on db and parses the result.
func Detect(ctx context.Context, db *sql.DB) (dialect.Version, error) {
	var raw string
	if err := db.QueryRowContext(ctx, VersionQuery).Scan(&raw); err != nil {
		return dialect.Version{}, fmt.Errorf("query version: %w", err)
	}
	v, err := dialect.ParseVersion(raw)
	if err != nil {
		return dialect.Version{}, fmt.Errorf("parse version %q: %w", raw, err)
	}
	return v, nil
}

// Fill probes every catalog connection whose version is unknown and
// records the result. Connections with a declared version are not probed.
func (p *Prober) Fill(ctx context.Context, cat *catalog.Catalog) error {
	for _, cn := range cat.Connections() {
		if !cn.Version.IsZero() {
			continue
		}
		v, err := p.Version(ctx, cn.Identity)
		if err != nil {
			return fmt.Errorf("connection %q: %w", cn.Name, err)
		}
		if err := cat.SetVersion(cn.Name, v); err != nil {
			return err
		}
	}
	return nil
}

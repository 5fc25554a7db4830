package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-sql-driver/mysql"   // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver

	"github.com/okian/asinrank/internal/config"
	"github.com/okian/asinrank/internal/domain/model"
	"github.com/okian/asinrank/pkg/logger"
	"github.com/okian/asinrank/pkg/metrics"
)

const tableName = "asin_data"

const selectColumns = "id, asin, category1_name, category1_rank, category2_name, category2_rank, observed_at"

// SQLStore is a Store backed by SQLite, MySQL or PostgreSQL.
type SQLStore struct {
	db      *sql.DB
	backend string
	dsn     string
	log     logger.Logger
	closed  atomic.Bool

	maxOpenConns    int
	connMaxLifetime time.Duration
	skipMigrations  bool
}

var _ Store = (*SQLStore)(nil)

// Open connects to backend using dsn, applies pending migrations and
// returns a ready store.
func Open(ctx context.Context, backend, dsn string, opts ...Option) (*SQLStore, error) {
	s := &SQLStore{
		backend:         strings.ToLower(strings.TrimSpace(backend)),
		maxOpenConns:    10,
		connMaxLifetime: 30 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Named("repository")
	}

	driverName, normalized, err := driverFor(s.backend, dsn)
	if err != nil {
		return nil, err
	}
	s.dsn = normalized

	db, err := sql.Open(driverName, normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, s.backend, err)
	}
	if s.backend == config.BackendSQLite {
		// One connection avoids "database is locked" and keeps :memory: databases shared.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(s.maxOpenConns)
		db.SetConnMaxLifetime(s.connMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping %s: %w", ErrOpen, s.backend, err)
	}
	s.db = db

	if !s.skipMigrations {
		if err := s.migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	s.log.Info(ctx, "store opened", logger.String("backend", s.backend))
	return s, nil
}

// driverFor maps a backend name to its database/sql driver and normalizes the DSN.
func driverFor(backend, dsn string) (driver, normalized string, err error) {
	switch backend {
	case config.BackendSQLite:
		if dsn == "" {
			dsn = ":memory:"
		}
		return "sqlite3", dsn, nil
	case config.BackendMySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return "", "", fmt.Errorf("%w: mysql dsn: %w", ErrOpen, err)
		}
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		return "mysql", cfg.FormatDSN(), nil
	case config.BackendPostgres:
		return "pgx", dsn, nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedBackend, backend)
	}
}

// placeholder returns the n-th (1-based) bind parameter for the backend.
func (s *SQLStore) placeholder(n int) string {
	if s.backend == config.BackendPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// formatTime stores SQLite timestamps as sortable RFC3339 text.
func (s *SQLStore) formatTime(t time.Time) any {
	t = t.UTC()
	if s.backend == config.BackendSQLite {
		return t.Format(time.RFC3339Nano)
	}
	return t
}

func nullableRank(rank *int) any {
	if rank == nil {
		return nil
	}
	return int64(*rank)
}

// Append implements Store.
func (s *SQLStore) Append(ctx context.Context, obs model.RankObservation) (model.RankObservation, error) {
	const op = "append"
	if s.closed.Load() {
		return model.RankObservation{}, ErrClosed
	}
	start := time.Now()
	defer func() { metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000) }()

	if obs.Timestamp.IsZero() {
		obs.Timestamp = time.Now()
	}
	obs.Timestamp = obs.Timestamp.UTC()

	ph := make([]string, 6)
	for i := range ph {
		ph[i] = s.placeholder(i + 1)
	}
	query := fmt.Sprintf(
		`INSERT INTO %s (asin, category1_name, category1_rank, category2_name, category2_rank, observed_at) VALUES (%s)`,
		tableName, strings.Join(ph, ", "),
	)
	args := []any{
		obs.ASIN,
		obs.Category1.Name, nullableRank(obs.Category1.Rank),
		obs.Category2.Name, nullableRank(obs.Category2.Rank),
		s.formatTime(obs.Timestamp),
	}

	var err error
	if s.backend == config.BackendPostgres {
		err = s.db.QueryRowContext(ctx, query+" RETURNING id", args...).Scan(&obs.ID)
	} else {
		var res sql.Result
		res, err = s.db.ExecContext(ctx, query, args...)
		if err == nil {
			obs.ID, err = res.LastInsertId()
		}
	}
	if err != nil {
		metrics.RecordStoreError(op)
		return model.RankObservation{}, fmt.Errorf("insert observation: %w", err)
	}
	return obs, nil
}

// ListByASIN implements Store.
func (s *SQLStore) ListByASIN(ctx context.Context, asin string) ([]model.RankObservation, error) {
	const op = "list"
	if s.closed.Load() {
		return nil, ErrClosed
	}
	start := time.Now()
	defer func() { metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000) }()

	// MySQL's default collation is case-insensitive; BINARY forces an exact match.
	cond := "asin = " + s.placeholder(1)
	if s.backend == config.BackendMySQL {
		cond = "asin = BINARY " + s.placeholder(1)
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY id ASC`, selectColumns, tableName, cond)

	rows, err := s.db.QueryContext(ctx, query, asin)
	if err != nil {
		metrics.RecordStoreError(op)
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.RankObservation{}
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			metrics.RecordStoreError(op)
			return nil, err
		}
		out = append(out, obs)
	}
	if err := rows.Err(); err != nil {
		metrics.RecordStoreError(op)
		return nil, fmt.Errorf("iterate observations: %w", err)
	}
	return out, nil
}

func scanObservation(rows *sql.Rows) (model.RankObservation, error) {
	var (
		obs          model.RankObservation
		name1, name2 sql.NullString
		rank1, rank2 sql.NullInt64
		ts           any
	)
	if err := rows.Scan(&obs.ID, &obs.ASIN, &name1, &rank1, &name2, &rank2, &ts); err != nil {
		return model.RankObservation{}, fmt.Errorf("scan observation: %w", err)
	}
	obs.Category1 = model.Category{Name: name1.String, Rank: rankFrom(rank1)}
	obs.Category2 = model.Category{Name: name2.String, Rank: rankFrom(rank2)}

	t, err := parseTime(ts)
	if err != nil {
		return model.RankObservation{}, err
	}
	obs.Timestamp = t
	return obs, nil
}

func rankFrom(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	return model.RankOf(int(v.Int64))
}

// parseTime accepts the representations the three drivers hand back.
func parseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return parseTimeText(t)
	case []byte:
		return parseTimeText(string(t))
	default:
		return time.Time{}, fmt.Errorf("scan observation: unexpected timestamp type %T", v)
	}
}

func parseTimeText(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05.999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("scan observation: unparseable timestamp %q", s)
}

// Count implements Store.
func (s *SQLStore) Count(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+tableName).Scan(&n); err != nil {
		metrics.RecordStoreError("count")
		return 0, fmt.Errorf("count observations: %w", err)
	}
	return n, nil
}

// Ping implements Store.
func (s *SQLStore) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := s.db.PingContext(ctx); err != nil {
		metrics.RecordStoreError("ping")
		return fmt.Errorf("ping %s: %w", s.backend, err)
	}
	return nil
}

// Close releases the connection pool. Further calls return ErrClosed.
func (s *SQLStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	if err := s.db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("close %s: %w", s.backend, err)
	}
	return nil
}

// Backend returns the configured backend name.
func (s *SQLStore) Backend() string { return s.backend }

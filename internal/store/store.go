package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/synthmind/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	sqlCreateTable = `
        CREATE TABLE IF NOT EXISTS test_sessions (
            id                UUID PRIMARY KEY,
            target_url        TEXT NOT NULL DEFAULT '',
            repo_url          TEXT NOT NULL DEFAULT '',
            metrics           JSONB NOT NULL,
            chart_series      JSONB NOT NULL,
            health_series     JSONB NOT NULL,
            github            JSONB NOT NULL,
            browser_audit     JSONB NOT NULL,
            business_insights JSONB NOT NULL,
            narrative_message TEXT NOT NULL,
            transcript        JSONB NOT NULL DEFAULT '[]'::jsonb,
            created_at        TIMESTAMPTZ NOT NULL
        );
    `
	sqlInsertSession = `
        INSERT INTO test_sessions (id, target_url, repo_url, metrics, chart_series, health_series,
            github, browser_audit, business_insights, narrative_message, transcript, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
    `
	sqlSelectSession = `
        SELECT id, target_url, repo_url, metrics, chart_series, health_series,
            github, browser_audit, business_insights, narrative_message, transcript, created_at
        FROM test_sessions
        WHERE id = $1;
    `
	sqlAppendTranscript = `
        UPDATE test_sessions
        SET transcript = transcript || $2::jsonb
        WHERE id = $1;
    `
)

// Store provides a PostgreSQL implementation of schemas.SessionStore. Each
// session is one row; analytical fields are JSONB columns written once.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

var _ schemas.SessionStore = (*Store)(nil)

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// Open connects a pool to url, verifies it and creates the sessions table.
// The returned close function releases the pool.
func Open(ctx context.Context, url string, logger *zap.Logger) (*Store, func(), error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	s, err := New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return s, pool.Close, nil
}

// EnsureSchema creates the sessions table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, sqlCreateTable); err != nil {
		return fmt.Errorf("failed to create test_sessions table: %w", err)
	}
	return nil
}

// Create inserts session. An existing id is a storage error; sessions are never overwritten.
func (s *Store) Create(ctx context.Context, session *schemas.TestSession) error {
	cols, err := encodeColumns(session)
	if err != nil {
		return fmt.Errorf("%w: %v", schemas.ErrStorage, err)
	}

	createdAt := session.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.pool.Exec(ctx, sqlInsertSession,
		session.ID, session.TargetURL, session.RepoURL,
		cols.metrics, cols.chart, cols.health,
		cols.github, cols.audit, cols.insights,
		session.NarrativeMessage, cols.transcript,
		createdAt.UTC(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: session %s already exists", schemas.ErrStorage, session.ID)
		}
		return fmt.Errorf("%w: failed to insert session: %v", schemas.ErrStorage, err)
	}
	s.log.Debug("Session persisted.", zap.String("session_id", session.ID))
	return nil
}

// Get loads a session by id.
func (s *Store) Get(ctx context.Context, id string) (*schemas.TestSession, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	var (
		session schemas.TestSession
		raw     rawColumns
	)
	err := s.pool.QueryRow(ctx, sqlSelectSession, id).Scan(
		&session.ID, &session.TargetURL, &session.RepoURL,
		&raw.metrics, &raw.chart, &raw.health,
		&raw.github, &raw.audit, &raw.insights,
		&session.NarrativeMessage, &raw.transcript,
		&session.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", schemas.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query session: %v", schemas.ErrStorage, err)
	}
	if err := raw.decode(&session); err != nil {
		return nil, fmt.Errorf("%w: session %s has a corrupt column: %v", schemas.ErrStorage, id, err)
	}
	return &session, nil
}

// AppendTranscript appends msg to the session's transcript.
func (s *Store) AppendTranscript(ctx context.Context, id string, msg schemas.ChatMessage) error {
	if err := checkID(id); err != nil {
		return err
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	entry, err := json.Marshal([]schemas.ChatMessage{msg})
	if err != nil {
		return fmt.Errorf("%w: %v", schemas.ErrStorage, err)
	}

	tag, err := s.pool.Exec(ctx, sqlAppendTranscript, id, entry)
	if err != nil {
		return fmt.Errorf("%w: failed to append transcript: %v", schemas.ErrStorage, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", schemas.ErrNotFound, id)
	}
	return nil
}

// checkID rejects ids the UUID column can never hold, so they read as
// missing instead of failing the query.
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", schemas.ErrNotFound, id)
	}
	return nil
}

// rawColumns holds the JSONB columns of one row.
type rawColumns struct {
	metrics, chart, health  []byte
	github, audit, insights []byte
	transcript              []byte
}

func encodeColumns(s *schemas.TestSession) (rawColumns, error) {
	var (
		c   rawColumns
		err error
	)
	transcript := s.Transcript
	if transcript == nil {
		transcript = []schemas.ChatMessage{}
	}
	fields := []struct {
		dst *[]byte
		src any
	}{
		{&c.metrics, s.Metrics},
		{&c.chart, s.ChartSeries},
		{&c.health, s.HealthSeries},
		{&c.github, s.Github},
		{&c.audit, s.BrowserAudit},
		{&c.insights, s.BusinessInsights},
		{&c.transcript, transcript},
	}
	for _, f := range fields {
		if *f.dst, err = json.Marshal(f.src); err != nil {
			return c, err
		}
	}
	return c, nil
}

func (c rawColumns) decode(s *schemas.TestSession) error {
	fields := []struct {
		src []byte
		dst any
	}{
		{c.metrics, &s.Metrics},
		{c.chart, &s.ChartSeries},
		{c.health, &s.HealthSeries},
		{c.github, &s.Github},
		{c.audit, &s.BrowserAudit},
		{c.insights, &s.BusinessInsights},
		{c.transcript, &s.Transcript},
	}
	for _, f := range fields {
		if len(f.src) == 0 {
			continue
		}
		if err := json.Unmarshal(f.src, f.dst); err != nil {
			return err
		}
	}
	return nil
}

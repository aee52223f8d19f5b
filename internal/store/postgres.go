package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/netrasec/jaal/internal/intel"
)

// Postgres is the durable Store implementation backed by a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

// NewPostgres connects to the database and verifies the connection.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Migrate creates the schema if it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id                  TEXT PRIMARY KEY,
			category            TEXT NOT NULL DEFAULT 'unknown',
			channel             TEXT NOT NULL DEFAULT 'sms',
			started_at          TIMESTAMPTZ NOT NULL,
			ended_at            TIMESTAMPTZ,
			threat_level        INT NOT NULL DEFAULT 0,
			fatigue_score       INT NOT NULL DEFAULT 0,
			turn_count          INT NOT NULL DEFAULT 0,
			persona_type        TEXT NOT NULL DEFAULT 'neutral',
			ever_engaged        BOOLEAN NOT NULL DEFAULT FALSE,
			callback_sent       BOOLEAN NOT NULL DEFAULT FALSE,
			time_wasted_seconds INT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id              UUID PRIMARY KEY,
			session_id      TEXT NOT NULL REFERENCES sessions(id),
			sender          TEXT NOT NULL,
			text            TEXT NOT NULL,
			ts              TIMESTAMPTZ NOT NULL,
			latency_seconds DOUBLE PRECISION NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS intelligence (
			id           UUID PRIMARY KEY,
			session_id   TEXT NOT NULL REFERENCES sessions(id),
			type         TEXT NOT NULL,
			value        TEXT NOT NULL,
			confidence   DOUBLE PRECISION NOT NULL DEFAULT 0,
			extracted_at TIMESTAMPTZ NOT NULL,
			UNIQUE (session_id, type, value)
		)`,
		`CREATE TABLE IF NOT EXISTS fatigue_events (
			id         UUID PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id),
			event_type TEXT NOT NULL,
			ts         TIMESTAMPTZ NOT NULL,
			weight     INT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages (session_id, ts)`,
		`CREATE INDEX IF NOT EXISTS idx_fatigue_session ON fatigue_events (session_id)`,
	}
	for _, stmt := range ddl {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (p *Postgres) GetSession(ctx context.Context, id string) (*Session, error) {
	var s Session
	err := p.pool.QueryRow(ctx, `
		SELECT id, category, channel, started_at, ended_at, threat_level,
		       fatigue_score, turn_count, persona_type, ever_engaged,
		       callback_sent, time_wasted_seconds
		FROM sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.Category, &s.Channel, &s.StartedAt, &s.EndedAt,
		&s.ThreatLevel, &s.FatigueScore, &s.TurnCount, &s.PersonaType,
		&s.EverEngaged, &s.CallbackSent, &s.TimeWastedSeconds)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &s, nil
}

func (p *Postgres) CreateSession(ctx context.Context, s *Session) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO sessions (id, category, channel, started_at, ended_at,
			threat_level, fatigue_score, turn_count, persona_type,
			ever_engaged, callback_sent, time_wasted_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		s.ID, s.Category, s.Channel, s.StartedAt, s.EndedAt,
		s.ThreatLevel, s.FatigueScore, s.TurnCount, s.PersonaType,
		s.EverEngaged, s.CallbackSent, s.TimeWastedSeconds,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (p *Postgres) UpdateSession(ctx context.Context, s *Session) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE sessions SET category = $2, channel = $3, ended_at = $4,
			threat_level = $5, fatigue_score = $6, turn_count = $7,
			persona_type = $8, ever_engaged = $9, callback_sent = $10,
			time_wasted_seconds = $11
		WHERE id = $1`,
		s.ID, s.Category, s.Channel, s.EndedAt, s.ThreatLevel,
		s.FatigueScore, s.TurnCount, s.PersonaType, s.EverEngaged,
		s.CallbackSent, s.TimeWastedSeconds,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

func (p *Postgres) AppendMessage(ctx context.Context, m Message) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO messages (id, session_id, sender, text, ts, latency_seconds)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.SessionID, m.Sender, m.Text, m.Timestamp, m.LatencySeconds,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (p *Postgres) Messages(ctx context.Context, sessionID string) ([]Message, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, session_id, sender, text, ts, latency_seconds
		FROM messages WHERE session_id = $1 ORDER BY ts, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Sender, &m.Text, &m.Timestamp, &m.LatencySeconds); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return out, nil
}

func (p *Postgres) InsertItem(ctx context.Context, it Item) (bool, error) {
	tag, err := p.pool.Exec(ctx, `
		INSERT INTO intelligence (id, session_id, type, value, confidence, extracted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id, type, value) DO NOTHING`,
		it.ID, it.SessionID, string(it.Type), it.Value, it.Confidence, it.ExtractedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert intelligence: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (p *Postgres) Items(ctx context.Context, sessionID string) ([]Item, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, session_id, type, value, confidence, extracted_at
		FROM intelligence WHERE session_id = $1 ORDER BY extracted_at, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query intelligence: %w", err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		var it Item
		var typ string
		if err := rows.Scan(&it.ID, &it.SessionID, &typ, &it.Value, &it.Confidence, &it.ExtractedAt); err != nil {
			return nil, fmt.Errorf("scan intelligence: %w", err)
		}
		it.Type = intel.ItemType(typ)
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate intelligence: %w", err)
	}
	return out, nil
}

func (p *Postgres) AppendFatigueEvent(ctx context.Context, ev FatigueEvent) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO fatigue_events (id, session_id, event_type, ts, weight)
		VALUES ($1, $2, $3, $4, $5)`,
		ev.ID, ev.SessionID, ev.EventType, ev.Timestamp, ev.Weight,
	)
	if err != nil {
		return fmt.Errorf("insert fatigue event: %w", err)
	}
	return nil
}

func (p *Postgres) FatigueWeightSum(ctx context.Context, sessionID string) (int, error) {
	var total int
	err := p.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(weight), 0) FROM fatigue_events WHERE session_id = $1`,
		sessionID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum fatigue weights: %w", err)
	}
	return total, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

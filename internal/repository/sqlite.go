package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/xiaot623/gogo/agentcore/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS turns (
			turn_id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			status TEXT NOT NULL,
			requests INTEGER NOT NULL DEFAULT 1,
			started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			ended_at DATETIME,
			elapsed_ms INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_project ON turns(project_id, started_at)`,
		`CREATE TABLE IF NOT EXISTS events (
			event_id TEXT PRIMARY KEY,
			turn_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			type TEXT NOT NULL,
			payload TEXT,
			FOREIGN KEY (turn_id) REFERENCES turns(turn_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_turn ON events(turn_id, ts)`,
		`CREATE TABLE IF NOT EXISTS checkpoints (
			token TEXT PRIMARY KEY,
			turn_id TEXT NOT NULL,
			project_id TEXT NOT NULL,
			blob BLOB NOT NULL,
			digest TEXT NOT NULL,
			size_bytes INTEGER NOT NULL,
			created_at_ms INTEGER NOT NULL,
			expires_at_ms INTEGER NOT NULL,
			consumed_at_ms INTEGER,
			FOREIGN KEY (turn_id) REFERENCES turns(turn_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_checkpoints_expiry ON checkpoints(expires_at_ms)`,
		`CREATE TABLE IF NOT EXISTS tool_results (
			call_id TEXT PRIMARY KEY,
			turn_id TEXT NOT NULL,
			project_id TEXT NOT NULL,
			tool_name TEXT NOT NULL,
			success INTEGER NOT NULL,
			result TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (turn_id) REFERENCES turns(turn_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tool_results_turn ON tool_results(turn_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateTurn creates a new turn.
func (s *SQLiteStore) CreateTurn(ctx context.Context, turn *domain.Turn) error {
	requests := turn.Requests
	if requests == 0 {
		requests = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (turn_id, project_id, status, requests, started_at, elapsed_ms) VALUES (?, ?, ?, ?, ?, ?)`,
		turn.TurnID, turn.ProjectID, turn.Status, requests, turn.StartedAt, turn.ElapsedMs)
	return err
}

// GetTurn retrieves a turn by ID. It returns nil when the turn is unknown.
func (s *SQLiteStore) GetTurn(ctx context.Context, turnID string) (*domain.Turn, error) {
	var turn domain.Turn
	var endedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT turn_id, project_id, status, requests, started_at, ended_at, elapsed_ms FROM turns WHERE turn_id = ?`,
		turnID).Scan(&turn.TurnID, &turn.ProjectID, &turn.Status, &turn.Requests, &turn.StartedAt, &endedAt, &turn.ElapsedMs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if endedAt.Valid {
		turn.EndedAt = &endedAt.Time
	}
	return &turn, nil
}

// MarkTurnResumed records another request joining the turn.
func (s *SQLiteStore) MarkTurnResumed(ctx context.Context, turnID string, status domain.TurnState) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE turns SET status = ?, requests = requests + 1, ended_at = NULL WHERE turn_id = ?`,
		status, turnID)
	return err
}

// UpdateTurnCompleted records the state a request left the turn in.
func (s *SQLiteStore) UpdateTurnCompleted(ctx context.Context, turnID string, status domain.TurnState, elapsedMs int64) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`UPDATE turns SET status = ?, ended_at = ?, elapsed_ms = ? WHERE turn_id = ?`,
		status, now, elapsedMs, turnID)
	return err
}

// CreateEvent creates a new event.
func (s *SQLiteStore) CreateEvent(ctx context.Context, event *domain.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (event_id, turn_id, ts, type, payload) VALUES (?, ?, ?, ?, ?)`,
		event.EventID, event.TurnID, event.Ts, event.Type, nullStringBytes(event.Payload))
	return err
}

// GetEvents retrieves events for a turn.
func (s *SQLiteStore) GetEvents(ctx context.Context, turnID string, afterTs int64, types []string, limit int) ([]domain.Event, error) {
	query := `SELECT event_id, turn_id, ts, type, payload FROM events WHERE turn_id = ?`
	args := []interface{}{turnID}

	if afterTs > 0 {
		query += ` AND ts > ?`
		args = append(args, afterTs)
	}

	if len(types) > 0 {
		placeholders := make([]string, len(types))
		for i, t := range types {
			placeholders[i] = "?"
			args = append(args, t)
		}
		query += fmt.Sprintf(" AND type IN (%s)", strings.Join(placeholders, ","))
	}

	query += ` ORDER BY ts ASC, rowid ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var event domain.Event
		var payload sql.NullString
		if err := rows.Scan(&event.EventID, &event.TurnID, &event.Ts, &event.Type, &payload); err != nil {
			return nil, err
		}
		if payload.Valid {
			event.Payload = json.RawMessage(payload.String)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// SaveCheckpoint stores an encoded continuation state.
func (s *SQLiteStore) SaveCheckpoint(ctx context.Context, cp *domain.CheckpointRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (token, turn_id, project_id, blob, digest, size_bytes, created_at_ms, expires_at_ms) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		cp.Token, cp.TurnID, cp.ProjectID, cp.Blob, cp.Digest, len(cp.Blob), cp.CreatedAt.UnixMilli(), cp.ExpiresAt.UnixMilli())
	return err
}

const checkpointColumns = `token, turn_id, project_id, blob, digest, size_bytes, created_at_ms, expires_at_ms, consumed_at_ms`

func scanCheckpoint(row interface{ Scan(...any) error }) (*domain.CheckpointRecord, error) {
	var cp domain.CheckpointRecord
	var createdMs, expiresMs int64
	var consumedMs sql.NullInt64
	if err := row.Scan(&cp.Token, &cp.TurnID, &cp.ProjectID, &cp.Blob, &cp.Digest, &cp.SizeBytes, &createdMs, &expiresMs, &consumedMs); err != nil {
		return nil, err
	}
	cp.CreatedAt = time.UnixMilli(createdMs).UTC()
	cp.ExpiresAt = time.UnixMilli(expiresMs).UTC()
	if consumedMs.Valid {
		t := time.UnixMilli(consumedMs.Int64).UTC()
		cp.ConsumedAt = &t
	}
	return &cp, nil
}

// GetCheckpoint retrieves a checkpoint by token. It returns nil when the
// token is unknown.
func (s *SQLiteStore) GetCheckpoint(ctx context.Context, token string) (*domain.CheckpointRecord, error) {
	cp, err := scanCheckpoint(s.db.QueryRowContext(ctx,
		`SELECT `+checkpointColumns+` FROM checkpoints WHERE token = ?`, token))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return cp, err
}

// ConsumeCheckpoint marks a checkpoint used and returns it. A token can be
// consumed once; later attempts fail with ErrCheckpointConsumed.
func (s *SQLiteStore) ConsumeCheckpoint(ctx context.Context, token string, now time.Time) (*domain.CheckpointRecord, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE checkpoints SET consumed_at_ms = ? WHERE token = ? AND consumed_at_ms IS NULL AND expires_at_ms > ?`,
		now.UnixMilli(), token, now.UnixMilli())
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	cp, err := s.GetCheckpoint(ctx, token)
	if err != nil {
		return nil, err
	}
	switch {
	case cp == nil:
		return nil, ErrCheckpointNotFound
	case affected > 0:
		return cp, nil
	case cp.ConsumedAt != nil:
		return nil, ErrCheckpointConsumed
	default:
		return nil, ErrCheckpointExpired
	}
}

// ListExpiredCheckpoints returns checkpoints whose TTL passed before now.
func (s *SQLiteStore) ListExpiredCheckpoints(ctx context.Context, now time.Time, limit int) ([]domain.CheckpointRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+checkpointColumns+` FROM checkpoints WHERE expires_at_ms <= ? ORDER BY expires_at_ms ASC LIMIT ?`,
		now.UnixMilli(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CheckpointRecord
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *cp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteCheckpoint removes a checkpoint and reports whether it existed.
func (s *SQLiteStore) DeleteCheckpoint(ctx context.Context, token string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE token = ?`, token)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// SaveToolResult records a tool result once per call id. It reports false
// when the call id was already recorded; the first record wins.
func (s *SQLiteStore) SaveToolResult(ctx context.Context, rec *domain.ToolResultRecord) (bool, error) {
	result, err := json.Marshal(rec.Result)
	if err != nil {
		return false, fmt.Errorf("failed to marshal tool result: %w", err)
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO tool_results (call_id, turn_id, project_id, tool_name, success, result, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.CallID, rec.TurnID, rec.ProjectID, rec.ToolName, rec.Success, string(result), createdAt)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// GetToolResult retrieves the recorded result of a call. It returns nil when
// the call was never recorded.
func (s *SQLiteStore) GetToolResult(ctx context.Context, callID string) (*domain.ToolResultRecord, error) {
	var rec domain.ToolResultRecord
	var result string
	err := s.db.QueryRowContext(ctx,
		`SELECT call_id, turn_id, project_id, tool_name, success, result, created_at FROM tool_results WHERE call_id = ?`,
		callID).Scan(&rec.CallID, &rec.TurnID, &rec.ProjectID, &rec.ToolName, &rec.Success, &result, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(result), &rec.Result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tool result: %w", err)
	}
	return &rec, nil
}

// ListToolResults returns a turn's recorded results in completion order.
func (s *SQLiteStore) ListToolResults(ctx context.Context, turnID string) ([]domain.ToolResultRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT call_id, turn_id, project_id, tool_name, success, result, created_at FROM tool_results WHERE turn_id = ? ORDER BY rowid ASC`,
		turnID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ToolResultRecord
	for rows.Next() {
		var rec domain.ToolResultRecord
		var result string
		if err := rows.Scan(&rec.CallID, &rec.TurnID, &rec.ProjectID, &rec.ToolName, &rec.Success, &result, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(result), &rec.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tool result: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullStringBytes(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

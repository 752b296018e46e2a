package adapters

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	_ "github.com/tursodatabase/go-libsql"

	ports "github.com/ZanzyTHEbar/form-agent/formagent/survey/ports"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// LibSQLTranscriptStore implements TranscriptStore on libsql.
type LibSQLTranscriptStore struct {
	db     *sql.DB
	ownsDB bool
}

// NewLibSQLTranscriptStore wraps an open database whose schema is already
// migrated (see Migrate).
func NewLibSQLTranscriptStore(db *sql.DB) *LibSQLTranscriptStore {
	return &LibSQLTranscriptStore{db: db}
}

// OpenLibSQLTranscriptStore opens dsn, runs migrations and returns a store that
// closes the database on Close. A plain file path is opened as an embedded
// database, creating its directory when needed.
func OpenLibSQLTranscriptStore(ctx context.Context, dsn string) (*LibSQLTranscriptStore, error) {
	url, err := libsqlURL(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("libsql", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open libsql connection: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &LibSQLTranscriptStore{db: db, ownsDB: true}, nil
}

// Migrate brings the transcript schema up to date.
func Migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectTurso, db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to run goose migrations: %w", err)
	}
	return nil
}

func libsqlURL(dsn string) (string, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return "", fmt.Errorf("transcript dsn is empty")
	}
	if strings.Contains(dsn, ":") {
		return dsn, nil
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("could not create database directory %s: %w", dir, err)
	}
	return "file:" + dsn, nil
}

// SaveTurn stores one transcript entry. Saving the same run and sequence
// number again replaces the entry.
func (s *LibSQLTranscriptStore) SaveTurn(ctx context.Context, turn ports.Turn) error {
	turnJSON, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO transcript_turns (run_id, seq, user_id, role, turn_data, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query, turn.RunID, turn.Seq, turn.UserID, turn.Role, string(turnJSON), turn.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save turn: %w", err)
	}
	return nil
}

// LoadTranscript returns every turn of a run in sequence order.
func (s *LibSQLTranscriptStore) LoadTranscript(ctx context.Context, runID string) ([]ports.Turn, error) {
	query := `
		SELECT turn_data FROM transcript_turns
		WHERE run_id = ?
		ORDER BY seq ASC
	`
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []ports.Turn
	for rows.Next() {
		var turnJSON string
		if err := rows.Scan(&turnJSON); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}

		var turn ports.Turn
		if err := json.Unmarshal([]byte(turnJSON), &turn); err != nil {
			return nil, fmt.Errorf("failed to unmarshal turn: %w", err)
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating turns: %w", err)
	}
	return turns, nil
}

// Close closes the database if the store opened it.
func (s *LibSQLTranscriptStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

var _ ports.TranscriptStore = (*LibSQLTranscriptStore)(nil)

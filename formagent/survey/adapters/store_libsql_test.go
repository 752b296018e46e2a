package adapters

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ports "github.com/ZanzyTHEbar/form-agent/formagent/survey/ports"
)

func newTestStore(t *testing.T) *LibSQLTranscriptStore {
	t.Helper()
	db, err := sql.Open("libsql", "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(context.Background(), db))
	_, err = db.Exec("DELETE FROM transcript_turns")
	require.NoError(t, err)
	return NewLibSQLTranscriptStore(db)
}

func TestLibSQLTranscriptStore_SaveAndLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	turns := []ports.Turn{
		{RunID: "run-1", UserID: "u1", Seq: 1, Role: ports.RoleUser, Content: "Ada", CreatedAt: at},
		{RunID: "run-1", UserID: "u1", Seq: 0, Role: ports.RoleAssistant, Content: "What is your name?", CreatedAt: at},
		{
			RunID: "run-1", UserID: "u1", Seq: 2, Role: ports.RoleAssistant, CreatedAt: at,
			ToolCalls: []ports.ToolCall{{ID: "call_1", Name: "record_answer", Args: json.RawMessage(`{"name":"name","value":"Ada"}`)}},
		},
		{RunID: "run-2", UserID: "u2", Seq: 0, Role: ports.RoleAssistant, Content: "What is your name?", CreatedAt: at},
	}
	for _, turn := range turns {
		require.NoError(t, store.SaveTurn(ctx, turn))
	}

	got, err := store.LoadTranscript(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 0, got[0].Seq)
	assert.Equal(t, "What is your name?", got[0].Content)
	assert.Equal(t, "Ada", got[1].Content)
	require.Len(t, got[2].ToolCalls, 1)
	assert.Equal(t, "call_1", got[2].ToolCalls[0].ID)
	assert.True(t, got[0].CreatedAt.Equal(at))

	other, err := store.LoadTranscript(ctx, "run-2")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestLibSQLTranscriptStore_ReplaceSameSeq(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveTurn(ctx, ports.Turn{RunID: "run-3", Seq: 0, Role: ports.RoleUser, Content: "first"}))
	require.NoError(t, store.SaveTurn(ctx, ports.Turn{RunID: "run-3", Seq: 0, Role: ports.RoleUser, Content: "second"}))

	got, err := store.LoadTranscript(ctx, "run-3")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "second", got[0].Content)
}

func TestLibSQLTranscriptStore_UnknownRun(t *testing.T) {
	store := newTestStore(t)

	got, err := store.LoadTranscript(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOpenLibSQLTranscriptStore_FilePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "transcripts.db")

	store, err := OpenLibSQLTranscriptStore(context.Background(), path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveTurn(context.Background(), ports.Turn{RunID: "r", Seq: 0, Role: ports.RoleUser, Content: "hi"}))
	got, err := store.LoadTranscript(context.Background(), "r")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestOpenLibSQLTranscriptStore_EmptyDSN(t *testing.T) {
	_, err := OpenLibSQLTranscriptStore(context.Background(), " ")
	assert.Error(t, err)
}

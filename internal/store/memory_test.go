package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/synthmind/api/schemas"
)

func TestMemory_RoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	session := sampleSession()

	require.NoError(t, m.Create(ctx, session))

	got, err := m.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.True(t, session.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, session.Metrics.TotalRequests, got.Metrics.TotalRequests)

	got.NarrativeMessage = "mutated"
	again, err := m.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "**SynthMind AI Verdict**", again.NarrativeMessage, "callers must not alias stored state")
}

func TestMemory_CreateNeverOverwrites(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	session := sampleSession()
	require.NoError(t, m.Create(ctx, session))

	session.NarrativeMessage = "second"
	assert.ErrorIs(t, m.Create(ctx, session), schemas.ErrStorage)

	got, err := m.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "**SynthMind AI Verdict**", got.NarrativeMessage)
}

func TestMemory_AppendTranscript(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	session := sampleSession()
	require.NoError(t, m.Create(ctx, session))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, m.AppendTranscript(ctx, session.ID, schemas.ChatMessage{Role: schemas.RoleUser, Content: "hi"}))
		}()
	}
	wg.Wait()

	got, err := m.Get(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, got.Transcript, 11)
	assert.Equal(t, schemas.RoleAssistant, got.Transcript[0].Role)
	assert.False(t, got.Transcript[10].CreatedAt.IsZero())
}

func TestMemory_NotFound(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, "missing")
	assert.ErrorIs(t, err, schemas.ErrNotFound)
	assert.ErrorIs(t, m.AppendTranscript(ctx, "missing", schemas.ChatMessage{}), schemas.ErrNotFound)
}

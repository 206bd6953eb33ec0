package chat

import (
	"context"
	"errors"
	"testing"
)

type fakeTurnReader struct {
	turns     []Turn
	err       error
	lastLimit int
}

func (f *fakeTurnReader) Recent(ctx context.Context, ownerID int64, limit int) ([]Turn, error) {
	f.lastLimit = limit
	return f.turns, f.err
}

func TestHistoryLoadExcludesCurrentTurn(t *testing.T) {
	reader := &fakeTurnReader{turns: []Turn{
		{ID: 1, Text: "old question"},
		{ID: 2, Text: "old answer"},
		{ID: 3, Text: "the message being processed"},
	}}
	loader := NewHistoryLoader(reader, testLogger())

	turns := loader.Load(context.Background(), 7, 20, 3)
	if len(turns) != 2 {
		t.Fatalf("expected current turn filtered out, got %d turns", len(turns))
	}
	for _, turn := range turns {
		if turn.ID == 3 {
			t.Error("current turn leaked into history")
		}
	}
}

func TestHistoryLoadDefaultsLimit(t *testing.T) {
	reader := &fakeTurnReader{}
	loader := NewHistoryLoader(reader, testLogger())

	loader.Load(context.Background(), 7, 0, 0)
	if reader.lastLimit != defaultHistoryLimit {
		t.Errorf("expected default limit %d, got %d", defaultHistoryLimit, reader.lastLimit)
	}
}

func TestHistoryLoadDegradesToEmptyOnError(t *testing.T) {
	reader := &fakeTurnReader{err: errors.New("db down")}
	loader := NewHistoryLoader(reader, testLogger())

	turns := loader.Load(context.Background(), 7, 20, 0)
	if turns != nil {
		t.Errorf("expected empty history on read failure, got %+v", turns)
	}
}

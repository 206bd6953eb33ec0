package chat

import (
	"context"

	"healthworks/api_assistant/pkg/logging"
)

const defaultHistoryLimit = 20

// TurnReader is the read side of the message store.
type TurnReader interface {
	Recent(ctx context.Context, ownerID int64, limit int) ([]Turn, error)
}

// HistoryLoader fetches recent conversation context. History is best effort:
// a failed read degrades to an empty history so the chat can still proceed.
type HistoryLoader struct {
	store  TurnReader
	logger logging.Logger
}

// NewHistoryLoader creates a history loader.
func NewHistoryLoader(store TurnReader, logger logging.Logger) *HistoryLoader {
	return &HistoryLoader{store: store, logger: logger}
}

// Load returns up to limit turns oldest-first, excluding the turn with
// excludeID (the caller's just-persisted current message). limit <= 0
// selects the default.
func (l *HistoryLoader) Load(ctx context.Context, ownerID int64, limit int, excludeID int64) []Turn {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	turns, err := l.store.Recent(ctx, ownerID, limit)
	if err != nil {
		l.logger.WithField("owner_id", ownerID).WithError(err).
			Warn("Failed to load conversation history, continuing without it")
		historyLoadFailures.Inc()
		return nil
	}

	if excludeID == 0 {
		return turns
	}
	filtered := make([]Turn, 0, len(turns))
	for _, turn := range turns {
		if turn.ID == excludeID {
			continue
		}
		filtered = append(filtered, turn)
	}
	return filtered
}

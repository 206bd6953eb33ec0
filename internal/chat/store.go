package chat

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Sender types for stored chat turns.
const (
	SenderUser = "User"
	SenderBot  = "Bot"
)

// Turn is one persisted chat message.
type Turn struct {
	ID        int64     `json:"messageId"`
	OwnerID   int64     `json:"ownerId"`
	Text      string    `json:"text"`
	Sender    string    `json:"sender"`
	Intent    string    `json:"intent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// MessageStore persists chat turns in PostgreSQL.
type MessageStore struct {
	db *sql.DB
}

// NewMessageStore creates a message store.
func NewMessageStore(db *sql.DB) *MessageStore {
	return &MessageStore{db: db}
}

// Insert appends a turn and returns its id. Intent may be empty.
func (s *MessageStore) Insert(ctx context.Context, ownerID int64, text, sender, intent string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO chat_messages (user_id, message_text, sender_type, timestamp, intent)
		VALUES ($1, $2, $3, NOW(), NULLIF($4, ''))
		RETURNING message_id`,
		ownerID, text, sender, intent).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert chat message: %w", err)
	}
	return id, nil
}

// Recent returns the owner's latest turns in chronological order. The inner
// query selects the newest rows, the outer one restores oldest-first order.
func (s *MessageStore) Recent(ctx context.Context, ownerID int64, limit int) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT message_id, user_id, message_text, sender_type, intent, timestamp FROM (
			SELECT message_id, user_id, message_text, sender_type, intent, timestamp
			FROM chat_messages
			WHERE user_id = $1
			ORDER BY timestamp DESC
			LIMIT $2
		) recent
		ORDER BY timestamp ASC`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var (
			turn   Turn
			intent sql.NullString
		)
		if err := rows.Scan(&turn.ID, &turn.OwnerID, &turn.Text, &turn.Sender, &intent, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		turn.Intent = intent.String
		turns = append(turns, turn)
	}
	return turns, rows.Err()
}

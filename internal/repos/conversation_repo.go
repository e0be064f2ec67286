package repos

import (
	"github.com/jmoiron/sqlx"

	"sokojumla/internal/domain"
)

type ConversationRepo struct{ db *sqlx.DB }

func NewConversationRepo(db *sqlx.DB) *ConversationRepo { return &ConversationRepo{db: db} }

// Append writes one turn. The transcript is append-only; rows are never
// updated or deleted.
func (r *ConversationRepo) Append(turn domain.ConversationTurn) error {
	_, err := r.db.Exec(`
	  INSERT INTO conversation_turns(id, session_id, sender, text, requires_confirmation, created_at)
	  VALUES(?, ?, ?, ?, ?, ?)
	`, turn.ID, turn.SessionID, turn.Sender, turn.Text, turn.RequiresConfirmation, turn.CreatedAt)
	return err
}

func (r *ConversationRepo) History(sessionID string, limit int) ([]domain.ConversationTurn, error) {
	if limit <= 0 {
		limit = 200
	}
	var out []domain.ConversationTurn
	err := r.db.Select(&out, `
	  SELECT id, session_id, sender, text, requires_confirmation, created_at
	  FROM conversation_turns
	  WHERE session_id = ?
	  ORDER BY created_at, rowid
	  LIMIT ?
	`, sessionID, limit)
	return out, err
}

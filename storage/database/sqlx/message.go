// Package sqlxrepos implements the read-heavy repositories with plain SQL over sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/message"
)

const messageColumns = `"id", "sender_id", "receiver_id", "content", "timestamp", "is_read"`

type messageRepository struct {
	db *sqlx.DB
}

var _ message.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *sqlx.DB) *messageRepository {
	return &messageRepository{db: db}
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (repo messageRepository) CreateMessage(ctx context.Context, msg message.Message) (message.Message, error) {
	msg.ID = uuid.New().String()
	_, err := repo.db.NamedExecContext(ctx,
		`INSERT INTO "message" (`+messageColumns+`) VALUES (:id, :sender_id, :receiver_id, :content, :timestamp, :is_read)`,
		msg)
	if err != nil {
		return message.Message{}, errors.Wrap(err, "inserting message")
	}
	return msg, nil
}

func (repo messageRepository) QueryMessages(ctx context.Context, userID, withID string) ([]message.Message, error) {
	msgs := make([]message.Message, 0)
	if !validID(userID) || (withID != "" && !validID(withID)) {
		return msgs, nil
	}

	query := `SELECT ` + messageColumns + ` FROM "message" WHERE ("sender_id" = $1 OR "receiver_id" = $1)`
	args := []interface{}{userID}
	if withID != "" {
		query += ` AND ("sender_id" = $2 OR "receiver_id" = $2)`
		args = append(args, withID)
	}
	query += ` ORDER BY "timestamp" ASC, "id" ASC`

	if err := repo.db.SelectContext(ctx, &msgs, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying messages")
	}
	return msgs, nil
}

func (repo messageRepository) GetMessage(ctx context.Context, id string) (message.Message, error) {
	if !validID(id) {
		return message.Message{}, message.ErrNotFound
	}
	var msg message.Message
	if err := repo.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM "message" WHERE "id" = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return message.Message{}, message.ErrNotFound
		}
		return message.Message{}, errors.Wrap(err, "finding message")
	}
	return msg, nil
}

func (repo messageRepository) MarkRead(ctx context.Context, id string) (message.Message, error) {
	if !validID(id) {
		return message.Message{}, message.ErrNotFound
	}
	var msg message.Message
	err := repo.db.GetContext(ctx, &msg,
		`UPDATE "message" SET "is_read" = TRUE WHERE "id" = $1 RETURNING `+messageColumns, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return message.Message{}, message.ErrNotFound
		}
		return message.Message{}, errors.Wrap(err, "marking message read")
	}
	return msg, nil
}

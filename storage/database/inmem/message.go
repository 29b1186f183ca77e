package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/darasa/core/message"
)

type messageRepository struct {
	db *DB
}

var _ message.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *DB) *messageRepository {
	return &messageRepository{db: db}
}

func (repo *messageRepository) CreateMessage(_ context.Context, msg message.Message) (message.Message, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	msg.ID = newID()
	repo.db.messages[msg.ID] = &msg
	return msg, nil
}

func (repo *messageRepository) QueryMessages(_ context.Context, userID, withID string) ([]message.Message, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	msgs := make([]message.Message, 0)
	for _, msg := range repo.db.messages {
		var other string
		switch userID {
		case msg.SenderID:
			other = msg.ReceiverID
		case msg.ReceiverID:
			other = msg.SenderID
		default:
			continue
		}
		if withID != "" && other != withID {
			continue
		}
		msgs = append(msgs, *msg)
	}
	sort.Slice(msgs, func(i, j int) bool {
		// oldest first
		return newer(msgs[j].Timestamp, msgs[i].Timestamp, msgs[j].ID, msgs[i].ID)
	})
	return msgs, nil
}

func (repo *messageRepository) GetMessage(_ context.Context, id string) (message.Message, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if msg, ok := repo.db.messages[id]; ok {
		return *msg, nil
	}
	return message.Message{}, message.ErrNotFound
}

func (repo *messageRepository) MarkRead(_ context.Context, id string) (message.Message, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	msg, ok := repo.db.messages[id]
	if !ok {
		return message.Message{}, message.ErrNotFound
	}
	msg.IsRead = true
	return *msg, nil
}

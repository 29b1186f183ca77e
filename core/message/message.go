// Package message implements direct messages between users.
package message

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/access"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("message not found")
	ErrReceiverNotFound = errors.New("receiver not found")
	ErrSelfMessage      = errors.New("cannot send a message to yourself")
	ErrNotReceiver      = core.NewPermissionError("only the receiver can mark a message as read")
)

type Message struct {
	ID         string    `json:"id" db:"id"`
	SenderID   string    `json:"sender_id" db:"sender_id"`
	ReceiverID string    `json:"receiver_id" db:"receiver_id"`
	Content    string    `json:"content" db:"content"`
	Timestamp  time.Time `json:"timestamp" db:"timestamp"` // UTC
	IsRead     bool      `json:"is_read" db:"is_read"`
}

type NewMessage struct {
	ReceiverID string `json:"receiver_id" validate:"required,uuid"`
	Content    string `json:"content" validate:"required,notblank"`
}

func (nm *NewMessage) Validate(validate *validator.Validate) error {
	nm.ReceiverID = core.CleanString(nm.ReceiverID, true /* lower */)
	nm.Content = core.CleanString(nm.Content)
	return validate.Struct(nm)
}

type QueryFilter struct {
	With string `query:"with"`
}

func (qf *QueryFilter) Clean() {
	qf.With = core.CleanString(qf.With, true /* lower */)
}

type (
	Repository interface {
		CreateMessage(ctx context.Context, msg Message) (Message, error)
		// QueryMessages returns the messages sent or received by `userID`, oldest first,
		// optionally narrowed to the conversation with `withID`.
		QueryMessages(ctx context.Context, userID, withID string) ([]Message, error)
		GetMessage(ctx context.Context, id string) (Message, error)
		MarkRead(ctx context.Context, id string) (Message, error)
	}

	// UserChecker tells whether a user exists.
	UserChecker interface {
		UserExists(ctx context.Context, id string) (bool, error)
	}

	Service struct {
		repo  Repository
		users UserChecker
	}
)

func NewService(repo Repository, users UserChecker) *Service {
	return &Service{repo: repo, users: users}
}

func (svc *Service) Send(ctx context.Context, ident access.Identity, nm NewMessage) (Message, error) {
	if err := ident.Validate(); err != nil {
		return Message{}, err
	}
	if nm.ReceiverID == ident.UserID {
		return Message{}, core.NewValidationError(ErrSelfMessage, core.FieldError{Field: "receiver_id", Error: ErrSelfMessage.Error()})
	}
	exists, err := svc.users.UserExists(ctx, nm.ReceiverID)
	if err != nil {
		return Message{}, errors.Wrap(err, "checking receiver")
	}
	if !exists {
		return Message{}, core.NewValidationError(ErrReceiverNotFound, core.FieldError{Field: "receiver_id", Error: ErrReceiverNotFound.Error()})
	}

	msg, err := svc.repo.CreateMessage(ctx, Message{
		SenderID:   ident.UserID,
		ReceiverID: nm.ReceiverID,
		Content:    nm.Content,
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		return Message{}, errors.Wrap(err, "creating message")
	}
	return msg, nil
}

func (svc *Service) Query(ctx context.Context, ident access.Identity, filter QueryFilter) ([]Message, error) {
	if err := ident.Validate(); err != nil {
		return nil, err
	}
	return svc.repo.QueryMessages(ctx, ident.UserID, filter.With)
}

// MarkRead flags a received message as read. Messages the caller is not part of are NotFound.
func (svc *Service) MarkRead(ctx context.Context, ident access.Identity, id string) (Message, error) {
	if err := ident.Validate(); err != nil {
		return Message{}, err
	}
	msg, err := svc.repo.GetMessage(ctx, id)
	if err != nil {
		return Message{}, err
	}
	switch ident.UserID {
	case msg.ReceiverID:
	case msg.SenderID:
		return Message{}, ErrNotReceiver
	default:
		return Message{}, ErrNotFound
	}
	if msg.IsRead {
		return msg, nil
	}
	return svc.repo.MarkRead(ctx, msg.ID)
}

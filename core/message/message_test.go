package message_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/access"
	"github.com/trezcool/darasa/core/message"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/storage/database/inmem"
	"github.com/trezcool/darasa/tests"
)

type userChecker struct {
	repo user.Repository
}

func (uc userChecker) UserExists(ctx context.Context, id string) (bool, error) {
	_, err := uc.repo.GetUser(ctx, user.GetFilter{ID: id})
	if core.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

func TestService(t *testing.T) {
	ctx := context.Background()
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	svc := message.NewService(inmemdb.NewMessageRepository(db), userChecker{usrRepo})

	alice := testutil.CreateUser(t, usrRepo, "Alice", "alice@test.cd", "", access.Student, true)
	bob := testutil.CreateUser(t, usrRepo, "Bob", "bob@test.cd", "", access.Teacher, true)
	carol := testutil.CreateUser(t, usrRepo, "Carol", "carol@test.cd", "", access.Student, true)

	t.Run("send", func(t *testing.T) {
		tests := []struct {
			name     string
			receiver string
			wantErr  bool
		}{
			{name: "self", receiver: alice.ID, wantErr: true},
			{name: "unknown receiver", receiver: "6b1a2c9e-1f0e-4a5d-9c3b-2f1e0d9c8b7a", wantErr: true},
			{name: "ok", receiver: bob.ID},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				msg, err := svc.Send(ctx, alice.Identity(), message.NewMessage{ReceiverID: tt.receiver, Content: "hi"})
				if tt.wantErr {
					_, ok := err.(*core.ValidationError)
					assert.True(t, ok, "got %v", err)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, alice.ID, msg.SenderID)
				assert.False(t, msg.IsRead)
			})
		}
	})

	_, err := svc.Send(ctx, carol.Identity(), message.NewMessage{ReceiverID: alice.ID, Content: "yo"})
	require.NoError(t, err)

	all, err := svc.Query(ctx, alice.Identity(), message.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	withBob, err := svc.Query(ctx, alice.Identity(), message.QueryFilter{With: bob.ID})
	require.NoError(t, err)
	require.Len(t, withBob, 1)
	msg := withBob[0]

	t.Run("mark read", func(t *testing.T) {
		_, err := svc.MarkRead(ctx, alice.Identity(), msg.ID)
		assert.Equal(t, message.ErrNotReceiver, err)

		_, err = svc.MarkRead(ctx, carol.Identity(), msg.ID)
		assert.Equal(t, message.ErrNotFound, err)

		for i := 0; i < 2; i++ {
			read, err := svc.MarkRead(ctx, bob.Identity(), msg.ID)
			require.NoError(t, err)
			assert.True(t, read.IsRead)
		}
	})

	_, err = svc.Query(ctx, access.Identity{}, message.QueryFilter{})
	assert.Equal(t, core.ErrNotAuthenticated, err)
}

package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core/access"
	"github.com/trezcool/darasa/core/message"
	"github.com/trezcool/darasa/tests"
)

func Test_messageApi(t *testing.T) {
	db.Reset()
	ada := testutil.CreateUser(t, usrRepo, "Ada", "ada@test.cd", strongPwd, access.Student, true)
	grace := testutil.CreateUser(t, usrRepo, "Grace", "grace@test.cd", strongPwd, access.Teacher, true)
	bob := testutil.CreateUser(t, usrRepo, "Bob", "bob@test.cd", strongPwd, access.Student, true)

	adaToken := getToken(t, ada)
	graceToken := getToken(t, grace)
	bobToken := getToken(t, bob)

	send := func(token string, nm message.NewMessage, wantCode int) message.Message {
		t.Helper()
		tc := httpTest{method: http.MethodPost, path: "/api/messages", token: token, body: marshalObj(t, nm), wantCode: wantCode}
		rec := tc.run(t)
		checkCode(t, tc, rec)
		var msg message.Message
		if wantCode == http.StatusCreated {
			decode(t, rec, &msg)
		}
		return msg
	}

	m1 := send(adaToken, message.NewMessage{ReceiverID: grace.ID, Content: " When is the exam? "}, http.StatusCreated)
	assert.Equal(t, "When is the exam?", m1.Content)
	assert.Equal(t, ada.ID, m1.SenderID)
	assert.False(t, m1.IsRead)
	m2 := send(graceToken, message.NewMessage{ReceiverID: ada.ID, Content: "Friday"}, http.StatusCreated)
	m3 := send(bobToken, message.NewMessage{ReceiverID: grace.ID, Content: "Hi"}, http.StatusCreated)

	send(adaToken, message.NewMessage{ReceiverID: ada.ID, Content: "me"}, http.StatusBadRequest)
	send(adaToken, message.NewMessage{ReceiverID: "5b0e5a4e-9f3c-4a53-9d1f-7c2f4f8b9a10", Content: "anyone?"}, http.StatusBadRequest)
	send(adaToken, message.NewMessage{ReceiverID: grace.ID, Content: "  "}, http.StatusBadRequest)

	t.Run("query", func(t *testing.T) {
		tests := []httpTest{
			{name: "own messages", path: "/api/messages", token: graceToken, wantData: marshalList(t, m1, m2, m3)},
			{name: "conversation", path: "/api/messages?with=" + ada.ID, token: graceToken, wantData: marshalList(t, m1, m2)},
			{name: "other user", path: "/api/messages", token: bobToken, wantData: marshalList(t, m3)},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				tc.method = http.MethodGet
				tc.wantCode = http.StatusOK
				checkCodeAndData(t, tc, tc.run(t))
			})
		}
	})

	t.Run("mark read", func(t *testing.T) {
		tests := []httpTest{
			{name: "sender", path: "/api/messages/" + m1.ID + "/read", token: adaToken, wantCode: http.StatusForbidden},
			{name: "outsider", path: "/api/messages/" + m1.ID + "/read", token: bobToken, wantCode: http.StatusNotFound},
			{name: "receiver", path: "/api/messages/" + m1.ID + "/read", token: graceToken, wantCode: http.StatusOK},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				tc.method = http.MethodPost
				rec := tc.run(t)
				checkCode(t, tc, rec)
				if tc.wantCode == http.StatusOK {
					var got message.Message
					decode(t, rec, &got)
					require.Equal(t, m1.ID, got.ID)
					assert.True(t, got.IsRead)
				}
			})
		}
	})
}

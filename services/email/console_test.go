package emailsvc

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/tests"
)

func TestConsoleServiceMock(t *testing.T) {
	conf := testutil.NewConfig()
	svc := NewConsoleServiceMock(conf, testutil.NewLogger(conf))
	require.NoError(t, core.ParseEmailTemplates())
	ResetSentMessages()

	svc.SendMessages(
		&core.EmailMessage{
			To:           []mail.Address{{Name: "Alice", Address: "alice@test.cd"}},
			Subject:      "Welcome",
			TemplateName: "welcome",
			TemplateData: map[string]interface{}{"Name": "Alice", "Role": "student"},
		},
		&core.EmailMessage{To: []mail.Address{{Address: "bob@test.cd"}}, Subject: "Ping", BodyStr: "pong"},
		&core.EmailMessage{Subject: "nobody", BodyStr: "lost"},
		&core.EmailMessage{To: []mail.Address{{Address: "bob@test.cd"}}, TemplateName: "missing"},
	)

	msgs := SentMessages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].TextContent, "Alice")
	assert.NotEmpty(t, msgs[0].HTMLContent)
	assert.Equal(t, "pong", msgs[1].TextContent)

	ResetSentMessages()
	assert.Empty(t, SentMessages())
}

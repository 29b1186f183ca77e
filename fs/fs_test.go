package appfs

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFS(t *testing.T) {
	files := []string{
		"migrations/00001_init.sql",
		"common-passwords.txt",
		"templates/email/_base.gohtml",
		"templates/email/_base.txt",
		"templates/email/welcome.gohtml",
		"templates/email/announcement.txt",
	}
	for _, name := range files {
		t.Run(name, func(t *testing.T) {
			data, err := fs.ReadFile(FS, name)
			require.NoError(t, err)
			assert.NotEmpty(t, data)
		})
	}
}

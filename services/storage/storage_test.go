package filesvc

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/core"
)

func TestNew(t *testing.T) {
	conf := &core.Config{}
	conf.Storage.Backend = "disk"
	conf.Storage.MediaDir = t.TempDir()
	conf.Storage.MediaURL = "/media"

	store, err := New(context.Background(), conf)
	require.NoError(t, err)
	disk, ok := store.(*DiskStorage)
	require.True(t, ok, "New() = %T; want *DiskStorage", store)

	url, err := disk.Save(context.Background(), "submissions/a1/s1/notes.txt", strings.NewReader("notes"))
	require.NoError(t, err)
	assert.Equal(t, "/media/submissions/a1/s1/notes.txt", url)
}

package menu_test

import (
	"testing"

	"opushelper/internal/menu"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var patterns = []string{
	"https://www.bilibili.com/opus/*",
	"https://www.bilibili.com/read/*",
}

func TestRegister(t *testing.T) {
	r := menu.NewRegistry()
	require.NoError(t, menu.Register(r, patterns))

	entries := r.List()
	require.Len(t, entries, 5)
	assert.Equal(t, menu.ParentID, entries[0].ID)
	for _, e := range entries[1:] {
		assert.Equal(t, menu.ParentID, e.ParentID)
		assert.Equal(t, patterns, e.Patterns)
	}
	ids := []string{entries[1].ID, entries[2].ID, entries[3].ID, entries[4].ID}
	assert.Equal(t, []string{menu.LikeID, menu.FavoriteID, menu.DownloadImageID, menu.OpenImageID}, ids)
}

func TestRegister_Twice(t *testing.T) {
	r := menu.NewRegistry()
	require.NoError(t, menu.Register(r, patterns))
	require.NoError(t, menu.Register(r, patterns))
	assert.Len(t, r.List(), 5)
}

func TestCreate_Duplicate(t *testing.T) {
	r := menu.NewRegistry()
	require.NoError(t, r.Create(menu.Entry{ID: "a"}))
	assert.ErrorIs(t, r.Create(menu.Entry{ID: "a"}), menu.ErrDuplicateID)
}

func TestForURL(t *testing.T) {
	r := menu.NewRegistry()
	require.NoError(t, menu.Register(r, patterns))
	require.NoError(t, r.Create(menu.Entry{ID: "global", Title: "全局"}))

	assert.Len(t, r.ForURL("https://www.bilibili.com/opus/123"), 6)
	visible := r.ForURL("https://www.bilibili.com/video/BV1")
	require.Len(t, visible, 1)
	assert.Equal(t, "global", visible[0].ID)
	assert.False(t, r.Applies("missing", "https://www.bilibili.com/opus/1"))
}

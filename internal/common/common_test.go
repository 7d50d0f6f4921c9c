package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryID(t *testing.T) {
	assert.Equal(t, int64(12345), RepositoryID(float64(12345)))
	assert.Equal(t, int64(12345), RepositoryID("12345"))
	assert.Equal(t, int64(0), RepositoryID(nil))

	// Opaque string ids hash to a stable value.
	a := RepositoryID("group/project")
	b := RepositoryID("group/project")
	c := RepositoryID("group/other")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotZero(t, a)
}

func TestLongDate(t *testing.T) {
	tests := []struct {
		date time.Time
		want string
	}{
		{time.Date(2024, time.April, 3, 0, 0, 0, 0, time.UTC), "April 3rd, 2024"},
		{time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), "April 1th, 2024"},
		{time.Date(2024, time.December, 23, 0, 0, 0, 0, time.UTC), "December 23th, 2024"},
		{time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC), "January 31th, 2025"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LongDate(tt.date))
	}
}

func TestRenderMarkdown(t *testing.T) {
	out, err := RenderMarkdown("fix the **login** bug")
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>login</strong>")

	out, err = RenderMarkdown("")
	require.NoError(t, err)
	assert.Empty(t, out)

	// GFM tables survive rendering.
	out, err = RenderMarkdown("| a | b |\n|---|---|\n| 1 | 2 |")
	require.NoError(t, err)
	assert.Contains(t, out, "<table>")
}

package exclude

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetMatch(t *testing.T) {
	s, err := NewSet(".snapshot", "*.tmp", "", "cache-?")
	require.NoError(t, err)

	tests := []struct {
		name string
		want bool
	}{
		{".snapshot", true},
		{".snapshots", false},
		{"x.snapshot", false},
		{"build.tmp", true},
		{"cache-1", true},
		{"cache-10", false},
		{"regular.txt", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Match(tt.name))
		})
	}

	assert.Equal(t, []string{".snapshot", "*.tmp", "cache-?"}, s.Patterns())
}

func TestNilSetMatchesNothing(t *testing.T) {
	var s *Set
	assert.False(t, s.Match("anything"))
	assert.Nil(t, s.Patterns())
}

func TestNewSetRejectsBadPattern(t *testing.T) {
	_, err := NewSet("[unterminated")
	assert.Error(t, err)
	assert.Panics(t, func() { MustSet("[unterminated") })
}

func TestDefaults(t *testing.T) {
	assert.True(t, MustSet(DefaultDirs...).Match(".snapshot"))
	assert.True(t, MustSet(DefaultFiles...).Match(".DS_Store"))
}

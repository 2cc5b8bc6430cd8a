package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCheckCommand(t *testing.T) {
	cmd := NewCheckCommand()

	assert.Equal(t, "check [description...]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	flag := cmd.Flags().Lookup("watch")
	if assert.NotNil(t, flag) {
		assert.Equal(t, "w", flag.Shorthand)
		assert.Equal(t, "false", flag.DefValue)
	}
}

func TestSortedPairs(t *testing.T) {
	got := sortedPairs(map[string]string{"b": "2", "a": "1"})
	assert.Equal(t, [][]string{{"a", "1"}, {"b", "2"}}, got)
	assert.Empty(t, sortedPairs(nil))
}

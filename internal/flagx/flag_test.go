package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs_SeparateValue(t *testing.T) {
	args := []string{"-a", ":8080", "-d", "postgres://x", "-junk", "v"}
	got := FilterArgs(args, []string{"-a", "-d"})
	assert.Equal(t, []string{"-a", ":8080", "-d", "postgres://x"}, got)
}

func TestFilterArgs_EqualsForm(t *testing.T) {
	args := []string{"--schedule=@every 1m", "-d=dsn", "--other=x"}
	got := FilterArgs(args, []string{"--schedule", "-d"})
	assert.Equal(t, []string{"--schedule=@every 1m", "-d=dsn"}, got)
}

func TestFilterArgs_FlagWithoutValue(t *testing.T) {
	args := []string{"-a", "-d", "dsn"}
	got := FilterArgs(args, []string{"-a"})
	assert.Equal(t, []string{"-a"}, got)
}

func TestFilterArgs_EmptyInput(t *testing.T) {
	got := FilterArgs(nil, []string{"-a"})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

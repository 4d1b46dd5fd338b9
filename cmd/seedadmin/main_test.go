package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socionet/backend/config"
)

func TestSeedParams_FlagsOverrideDefaults(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--email", "root@example.com", "--name", "Root"}))

	got, err := seedParams(cmd, config.AdminConfig{Email: "env@example.com", Password: "pw", Name: "Administrator"})
	require.NoError(t, err)
	assert.Equal(t, "root@example.com", got.Email)
	assert.Equal(t, "pw", got.Password)
	assert.Equal(t, "Root", got.Name)
}

func TestSeedParams_RequiresCredentials(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.Flags().Parse(nil))

	_, err := seedParams(cmd, config.AdminConfig{Email: "only@example.com"})
	assert.EqualError(t, err, "ADMIN_EMAIL and ADMIN_PASSWORD are required")
}

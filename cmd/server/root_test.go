package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "worker", "migrate", "seed"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestMigrateFlags(t *testing.T) {
	require.NotNil(t, migrateCmd.Flags().Lookup("down"))
	require.NotNil(t, migrateCmd.Flags().Lookup("version"))
	assert.Equal(t, "0", migrateCmd.Flags().Lookup("down").DefValue)
}

func TestNewApp_InvalidConfig(t *testing.T) {
	flagEnvFile = false
	t.Cleanup(func() { flagEnvFile = true })
	t.Setenv("STORE", "sqlite")

	_, err := newApp()
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestNewApp_MemoryStore(t *testing.T) {
	flagEnvFile = false
	t.Cleanup(func() { flagEnvFile = true })
	t.Setenv("STORE", "memory")
	t.Setenv("REDIS_URL", "")
	t.Setenv("MAIL_STUB_MODE", "true")
	t.Setenv("LOG_FORMAT", "json")

	a, err := newApp()
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.openStore(true))
	mailer, err := a.mailer()
	require.NoError(t, err)
	d, err := a.dispatcher(mailer)
	require.NoError(t, err)
	assert.NotNil(t, a.sweeper(d))
	assert.Len(t, a.readinessChecks(), 1)
}

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/backoffice/internal/app"
	_ "github.com/odyssey-erp/backoffice/testing"
)

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()
	for _, path := range [][]string{
		{"serve"},
		{"migrate", "up"},
		{"migrate", "down"},
		{"migrate", "status"},
		{"jobs", "trigger", "snapshot"},
		{"jobs", "trigger", "warmup"},
		{"version"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}

	snapshot, _, err := root.Find([]string{"jobs", "trigger", "snapshot"})
	require.NoError(t, err)
	assert.NotNil(t, snapshot.Flags().Lookup("date"))
}

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "dev\n", out.String())
}

func TestTestModeIsEnabled(t *testing.T) {
	app.RefreshTestMode()
	assert.True(t, app.InTestMode())
}

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRootHasCommands(t *testing.T) {
	root := buildRoot()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "add", "list", "status", "remove", "register", "login", "logout", "template"} {
		assert.True(t, names[want], "missing command %q", want)
	}
}

func TestAddRequiresFlags(t *testing.T) {
	root := buildRoot()
	root.SetArgs([]string{"add"})
	err := root.Execute()
	require.Error(t, err)
}

func TestStatusRequiresID(t *testing.T) {
	root := buildRoot()
	root.SetArgs([]string{"status"})
	err := root.Execute()
	require.Error(t, err)
}

func TestTemplateCommand(t *testing.T) {
	root := buildRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"template", "squid", "edge", "--format=toml"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "[[endpoints]]")
	assert.Contains(t, out.String(), `kind = "squid"`)
}

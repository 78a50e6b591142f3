package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/roblaszczak/go-cleanarch/cleanarch"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".gocleanarch.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
version: 1
ignore_tests: true
shared_modules: [production]
allow_violations: ["pkg/composables"]
aliases:
  application: [services, usecases]
`), 0o600))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	require.Equal(t, ".", cfg.Root)
	require.True(t, cfg.IgnoreTests)
	require.Equal(t, []string{"production"}, cfg.SharedModules)

	layers := cfg.layers()
	require.Equal(t, cleanarch.LayerApplication, layers["usecases"])
	require.Equal(t, cleanarch.LayerApplication, layers["services"])
	require.Equal(t, cleanarch.LayerDomain, layers["domain"])
	require.Equal(t, cleanarch.LayerInterfaces, layers["handlers"])
	require.Equal(t, cleanarch.LayerInfrastructure, layers["infrastructure"])

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
}

func TestViolationFilter(t *testing.T) {
	f := newViolationFilter(&config{
		SharedModules:     []string{" production ", ""},
		AllowedViolations: []string{"pkg/composables", ""},
	})
	require.True(t, f.allows("import between production and billing modules"))
	require.False(t, f.allows("import between orders and billing modules"))
	require.True(t, f.allows("services imports pkg/composables"))
	require.False(t, f.allows("domain imports infrastructure"))
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	require.False(t, report(&buf, nil))
	require.Empty(t, buf.String())
}

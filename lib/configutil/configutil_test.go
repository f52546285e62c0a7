package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Login       string `json:"login"`
	Subdomain   string `json:"subdomain"`
	Marketplace bool   `json:"marketplace"`
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	err := os.WriteFile(path, []byte(contents), 0600)
	require.NoError(t, err)
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.json5"), `{
		// comments are allowed
		login: "admin@example.com",
		subdomain: "example",
	}`)
	writeFile(t, filepath.Join(dir, "config.local.json5"), `{subdomain: "staging", marketplace: true}`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, testConfig{
		Login:       "admin@example.com",
		Subdomain:   "staging",
		Marketplace: true,
	}, cfg)
}

func TestReadConfigMissing(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		require.NoError(t, os.Chdir(prev))
	})
}

func TestReadRecursively(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "widgets", "dist")
	require.NoError(t, os.MkdirAll(nested, 0700))
	writeFile(t, filepath.Join(root, "config.json5"), `{login: "root"}`)
	chdir(t, nested)

	cfg, err := ReadRecursively[testConfig]("config.json5")
	require.NoError(t, err)
	require.Equal(t, "root", cfg.Login)

	_, err = ReadRecursively[testConfig]("missing.json5")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadConfigOnlyLocal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.local.json5"), `{login: "local"}`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "local", cfg.Login)
}

func TestReadConfigMalformed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.json5"), `{login: `)

	_, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.Error(t, err)
}

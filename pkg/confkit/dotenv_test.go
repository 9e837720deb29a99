package confkit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotenvFromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CONFKIT_DOTENV_PROBE=loaded\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Cleanup(func() { _ = os.Unsetenv("CONFKIT_DOTENV_PROBE") })

	loadDotenv()
	assert.Equal(t, "loaded", os.Getenv("CONFKIT_DOTENV_PROBE"))
}

func TestLoadDotenvKeepsExistingValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CONFKIT_DOTENV_KEEP=file\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Setenv("CONFKIT_DOTENV_KEEP", "process")

	loadDotenv()
	assert.Equal(t, "process", os.Getenv("CONFKIT_DOTENV_KEEP"))
}

func TestLoadDotenvDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CONFKIT_DOTENV_OFF=file\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Setenv("NO_DOTENV", "1")

	loadDotenv()
	_, ok := os.LookupEnv("CONFKIT_DOTENV_OFF")
	assert.False(t, ok)
}

package confkit_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketboard/pkg/confkit"
)

func TestResolvePath(t *testing.T) {
	t.Setenv("CONFKIT_DIR", "overlay")
	tests := []struct {
		name string
		base string
		file string
		want string
	}{
		{name: "absolute path", base: "/base/dir", file: "/absolute/path/file.yaml", want: "/absolute/path/file.yaml"},
		{name: "relative path", base: "/base/dir", file: "config/file.yaml", want: "/base/dir/config/file.yaml"},
		{name: "relative path with env var", base: "/base/dir", file: "${CONFKIT_DIR}/file.yaml", want: "/base/dir/overlay/file.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, confkit.ResolvePath(tt.base, tt.file))
		})
	}
}

func TestBaseDir(t *testing.T) {
	assert.Equal(t, "/etc/config", confkit.BaseDir("/etc/config/app.yaml"))
	assert.Equal(t, "/", confkit.BaseDir("/app.yaml"))
	assert.Equal(t, "config", confkit.BaseDir("config/app.yaml"))
}

func TestSection_Hydrate(t *testing.T) {
	t.Run("empty file", func(t *testing.T) {
		section := &confkit.Section[string]{}
		err := section.Hydrate("/base", func(string) (*string, error) {
			t.Fatal("loader should not be called for empty file")
			return nil, nil
		})
		require.NoError(t, err)
		assert.False(t, section.Configured())
	})

	t.Run("successful hydration", func(t *testing.T) {
		section := &confkit.Section[string]{File: "config.yaml"}
		value := "test value"
		var seen string
		err := section.Hydrate("/base", func(path string) (*string, error) {
			seen = path
			return &value, nil
		})
		require.NoError(t, err)
		assert.Equal(t, "/base/config.yaml", seen)
		assert.Equal(t, "/base/config.yaml", section.File)
		assert.True(t, section.Configured())
		assert.Equal(t, value, *section.Value)
	})

	t.Run("loader error", func(t *testing.T) {
		section := &confkit.Section[string]{File: "broken.yaml"}
		err := section.Hydrate("/base", func(string) (*string, error) {
			return nil, errors.New("bad yaml")
		})
		require.EqualError(t, err, "bad yaml")
		assert.Equal(t, "broken.yaml", section.File)
	})
}

func TestMustProjectPathFindsModuleRoot(t *testing.T) {
	path := confkit.MustProjectPath("go.mod")
	assert.Equal(t, "go.mod", filepath.Base(path))
	assert.FileExists(t, path)
}

package confkit

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const maxRootDepth = 8

// ProjectRoot walks upwards from this source file to the first directory
// holding go.mod or .git, falling back to the working directory.
func ProjectRoot() (string, error) {
	if _, file, _, ok := runtime.Caller(0); ok {
		if root, found := findRoot(filepath.Dir(file), nil); found {
			return root, nil
		}
	}
	wd, err := os.Getwd()
	if err != nil {
		return ".", fmt.Errorf("getwd: %w", err)
	}
	return wd, nil
}

// MustProjectPath joins the repository root with rel and panics on failure.
func MustProjectPath(rel string) string {
	root, err := ProjectRoot()
	if err != nil {
		panic(err)
	}
	return filepath.Join(root, rel)
}

// findRoot climbs from dir until a module marker is found. visit, when set,
// sees every directory on the way, including the root itself.
func findRoot(dir string, visit func(string)) (string, bool) {
	for i := 0; i < maxRootDepth; i++ {
		if visit != nil {
			visit(dir)
		}
		if fileExists(filepath.Join(dir, "go.mod")) || fileExists(filepath.Join(dir, ".git")) {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}

func fileExists(p string) bool {
	if p == "" {
		return false
	}
	_, err := os.Stat(p)
	return err == nil
}

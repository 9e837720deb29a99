package confkit

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/joho/godotenv"
)

var dotenvOnce sync.Once

// LoadDotenvOnce loads .env files once per process. ENV_FILE names an
// explicit file; otherwise every .env between this package and the module
// root is read. Existing variables win unless DOTENV_OVERLOAD=1, and
// NO_DOTENV=1 disables loading.
func LoadDotenvOnce() {
	dotenvOnce.Do(loadDotenv)
}

func loadDotenv() {
	if os.Getenv("NO_DOTENV") == "1" {
		return
	}

	overload := os.Getenv("DOTENV_OVERLOAD") == "1"
	load := func(path string) {
		if !fileExists(path) {
			return
		}
		if overload {
			_ = godotenv.Overload(path)
		} else {
			_ = godotenv.Load(path)
		}
	}

	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		load(envFile)
		return
	}

	if _, file, _, ok := runtime.Caller(0); ok {
		findRoot(filepath.Dir(file), func(dir string) {
			load(filepath.Join(dir, ".env"))
		})
		return
	}
	load(".env")
}

package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// loadEnvFiles loads PROMPTWHEEL_ variables from .env files before viper
// reads the environment. Missing files are fine.
func loadEnvFiles() {
	if err := godotenv.Load(); err != nil {
		// If .env doesn't exist, try the user's home directory
		home, err := os.UserHomeDir()
		if err == nil {
			godotenv.Load(filepath.Join(home, ".promptwheel.env"))
		}
	}
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// APIKeyEnv is the environment variable consulted last for the insight
// provider credential.
const APIKeyEnv = "OPENAI_API_KEY"

// LoadEnv loads variables from a .env file into the process environment.
// Variables already set are not overridden. A missing file is not an error.
func LoadEnv(path string) error {
	if path == "" {
		return nil
	}
	expanded, err := ExpandPath(path)
	if err != nil {
		return err
	}
	if err := godotenv.Load(expanded); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading env file %s: %w", expanded, err)
	}
	return nil
}

// EnvAPIKey returns the credential from the environment, trimmed.
func EnvAPIKey() string {
	return strings.TrimSpace(os.Getenv(APIKeyEnv))
}

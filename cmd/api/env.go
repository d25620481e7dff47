package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// loadDotEnv loads the calculator's settings from DOTENV_PATH, or from .env
// when that variable is unset. A missing file is not an error, and
// variables already set in the process environment win.
func loadDotEnv() error {
	path := envOr("DOTENV_PATH", ".env")

	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return fmt.Errorf("load %s: %w", path, err)
}

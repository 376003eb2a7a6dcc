package configutil

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// LoadEnv loads secrets into the process environment, variables that are
// already set are never overwritten. When ENV_FILE is set only that file is
// read, otherwise .env.local is read before .env so it takes priority.
func LoadEnv() error {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// SetEnvValue writes key=value into the dotenv file at path, creating it if
// needed and keeping every other entry.
func SetEnvValue(path, key, value string) error {
	values, err := godotenv.Read(path)
	if os.IsNotExist(err) {
		values = map[string]string{}
	} else if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	values[key] = value
	if err := godotenv.Write(values, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

package config

import "os"

type Config struct {
	Port        string
	DatabaseDSN string
	DocumentDir string
	Env         string
}

// Load reads configuration from the environment with sensible defaults.
// Precedence: explicit env var > .env file (if loaded by the caller) >
// default. The default DSN points at a local sqlite file; a postgres:// DSN
// switches the driver.
func Load() Config {
	return Config{
		Port:        getEnv("PORT", "5000"),
		DatabaseDSN: getEnv("DATABASE_DSN", "facturas.db"),
		DocumentDir: getEnv("DOCUMENT_DIR", "facturas_pdf"),
		Env:         getEnv("APP_ENV", "development"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

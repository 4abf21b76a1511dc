package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Port       string
		CORSOrigin string
	}
	Mongo struct {
		URI    string
		DBName string
	}
	Database struct {
		Path string
	}
	Auth struct {
		JWTSecret          string
		ProtectedResources []string
	}
	Log struct {
		Level string
	}
}

// Addr is the listen address derived from the configured port.
func (c Config) Addr() string {
	return ":" + c.Server.Port
}

// UseMongo reports whether a Mongo connection string was configured.
func (c Config) UseMongo() bool {
	return strings.TrimSpace(c.Mongo.URI) != ""
}

// IsProtected reports whether routes of the named resource require a token.
func (c Config) IsProtected(resource string) bool {
	for _, name := range c.Auth.ProtectedResources {
		if strings.EqualFold(strings.TrimSpace(name), resource) {
			return true
		}
	}
	return false
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv(".env")

	v := viper.New()

	// first variable found wins
	bindings := map[string][]string{
		"server.port":             {"PORT"},
		"server.corsorigin":       {"CORS_ORIGIN"},
		"mongo.uri":               {"MONGODB_URI", "MONGO_URI"},
		"mongo.dbname":            {"MONGODB_NAME", "MONGO_DB_NAME"},
		"database.path":           {"DATABASE_PATH"},
		"auth.jwtsecret":          {"JWT_SECRET"},
		"auth.protectedresources": {"AUTH_PROTECTED_RESOURCES"},
		"log.level":               {"LOG_LEVEL"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	v.SetDefault("server.port", "3000")
	v.SetDefault("server.corsorigin", "http://localhost:5173")
	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.dbname", "retail-store")
	v.SetDefault("database.path", "data/retail-store.db")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.protectedresources", []string{})
	v.SetDefault("log.level", "info")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Auth.ProtectedResources = splitList(cfg.Auth.ProtectedResources)

	return cfg, nil
}

// splitList flattens comma separated entries coming from a single env var.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func loadDotEnv(path string) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:idx])
		value := strings.Trim(strings.TrimSpace(line[idx+1:]), `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}

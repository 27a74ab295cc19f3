package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.API.BaseURL != "http://localhost:8080/api" {
			t.Errorf("expected base URL http://localhost:8080/api, got %s", config.API.BaseURL)
		}

		if config.Database.Path != "./fintx.db" {
			t.Errorf("expected database path ./fintx.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}

		if config.Storage.Driver != "sqlite" {
			t.Errorf("expected storage driver sqlite, got %s", config.Storage.Driver)
		}

		if config.Cache.Capacity != 1000 {
			t.Errorf("expected cache capacity 1000, got %d", config.Cache.Capacity)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[api]
base_url = "https://finance.example.com/api"
token = "secret"
rate_limit = 2.5

[database]
path = "/custom/path.db"

[server]
port = 9090
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.API.BaseURL != "https://finance.example.com/api" {
			t.Errorf("expected custom base URL, got %s", config.API.BaseURL)
		}
		if config.API.RateLimit != 2.5 {
			t.Errorf("expected rate limit 2.5, got %v", config.API.RateLimit)
		}
		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}
		if config.Server.Addr() != "127.0.0.1:9090" {
			t.Errorf("expected addr 127.0.0.1:9090, got %s", config.Server.Addr())
		}
		if config.Cache.TTLSeconds != 60 {
			t.Errorf("expected unset values to keep defaults, got ttl %d", config.Cache.TTLSeconds)
		}
	})

	t.Run("LoadConfig Invalid TOML", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[api\nbase_url ="), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		t.Setenv(EnvAPIURL, "http://env.example.com/api")
		t.Setenv(EnvToken, "env-token")

		config := DefaultConfig()
		config.ApplyEnv()

		if config.API.BaseURL != "http://env.example.com/api" {
			t.Errorf("expected env base URL, got %s", config.API.BaseURL)
		}
		if config.API.Token != "env-token" {
			t.Errorf("expected env token, got %s", config.API.Token)
		}
	})

	t.Run("LoadEnvFile", func(t *testing.T) {
		t.Run("Missing File Is Ignored", func(t *testing.T) {
			if err := LoadEnvFile(filepath.Join(t.TempDir(), ".env")); err != nil {
				t.Errorf("expected no error for missing env file, got %v", err)
			}
		})

		t.Run("Loads Variables", func(t *testing.T) {
			t.Setenv(EnvDBPath, "")
			os.Unsetenv(EnvDBPath)

			envPath := filepath.Join(t.TempDir(), ".env")
			if err := os.WriteFile(envPath, []byte(EnvDBPath+"=/tmp/from-env.db\n"), 0644); err != nil {
				t.Fatalf("failed to write env file: %v", err)
			}

			if err := LoadEnvFile(envPath); err != nil {
				t.Fatalf("failed to load env file: %v", err)
			}

			config := DefaultConfig()
			config.ApplyEnv()
			if config.Database.Path != "/tmp/from-env.db" {
				t.Errorf("expected database path from env file, got %s", config.Database.Path)
			}
		})
	})
}

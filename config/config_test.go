package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zhubert/quill/paths"
)

// clearEnv blanks every QUILL_* variable the loader looks at.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"QUILL_API_URL", "QUILL_OUTPUT", "QUILL_STORAGE", "QUILL_STORAGE_PATH",
		"QUILL_REDIS_ADDR", "QUILL_REDIS_PASSWORD", "QUILL_REDIS_PREFIX",
		"QUILL_REDIS_DB", "QUILL_HTTP_TIMEOUT", "QUILL_DEBUG",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := LoadFrom(filepath.Join(dir, "config.yaml"), filepath.Join(dir, ".env"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.GetAPIURL() != DefaultAPIURL {
		t.Errorf("APIURL = %q, want %q", cfg.GetAPIURL(), DefaultAPIURL)
	}
	if cfg.GetHTTPTimeout() != DefaultHTTPTimeout {
		t.Errorf("HTTPTimeout = %v, want %v", cfg.GetHTTPTimeout(), DefaultHTTPTimeout)
	}
	if cfg.GetOutput() != OutputTable {
		t.Errorf("Output = %q, want %q", cfg.GetOutput(), OutputTable)
	}
	st := cfg.GetStorage()
	if st.Backend != BackendFile {
		t.Errorf("Storage.Backend = %q, want %q", st.Backend, BackendFile)
	}
	if st.Redis.Prefix != DefaultRedisPrefix {
		t.Errorf("Redis.Prefix = %q, want %q", st.Redis.Prefix, DefaultRedisPrefix)
	}
	if st.Debounce.Duration != DefaultDebounce {
		t.Errorf("Debounce = %v, want %v", st.Debounce.Duration, DefaultDebounce)
	}
}

func TestLoadFrom_YAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, `
api_url: https://blog.example.com/
http_timeout: 5s
output: json
storage:
  backend: redis
  debounce: 200ms
  redis:
    addr: redis.internal:6380
    db: 2
`)

	cfg, err := LoadFrom(path, "")
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.GetAPIURL() != "https://blog.example.com" {
		t.Errorf("APIURL = %q, trailing slash should be trimmed", cfg.GetAPIURL())
	}
	if cfg.GetHTTPTimeout() != 5*time.Second {
		t.Errorf("HTTPTimeout = %v, want 5s", cfg.GetHTTPTimeout())
	}
	if cfg.GetOutput() != OutputJSON {
		t.Errorf("Output = %q, want json", cfg.GetOutput())
	}
	st := cfg.GetStorage()
	if st.Backend != BackendRedis || st.Redis.Addr != "redis.internal:6380" || st.Redis.DB != 2 {
		t.Errorf("unexpected storage config: %+v", st)
	}
	if st.Debounce.Duration != 200*time.Millisecond {
		t.Errorf("Debounce = %v, want 200ms", st.Debounce.Duration)
	}
}

func TestLoadFrom_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "api_url: https://file.example.com\n")

	t.Setenv("QUILL_API_URL", "https://env.example.com")
	t.Setenv("QUILL_REDIS_DB", "3")
	t.Setenv("QUILL_HTTP_TIMEOUT", "2s")

	cfg, err := LoadFrom(path, "")
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.GetAPIURL() != "https://env.example.com" {
		t.Errorf("APIURL = %q, env should win", cfg.GetAPIURL())
	}
	if cfg.GetStorage().Redis.DB != 3 {
		t.Errorf("Redis.DB = %d, want 3", cfg.GetStorage().Redis.DB)
	}
	if cfg.GetHTTPTimeout() != 2*time.Second {
		t.Errorf("HTTPTimeout = %v, want 2s", cfg.GetHTTPTimeout())
	}
}

func TestLoadFrom_DotEnv(t *testing.T) {
	clearEnv(t)
	// godotenv does not overwrite variables that are already set, and an
	// empty value set by t.Setenv counts as set, so unset it for this test.
	os.Unsetenv("QUILL_STORAGE")
	t.Cleanup(func() { os.Unsetenv("QUILL_STORAGE") })

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	writeFile(t, envPath, "QUILL_STORAGE=memory\n")

	cfg, err := LoadFrom(filepath.Join(dir, "config.yaml"), envPath)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.GetStorage().Backend != BackendMemory {
		t.Errorf("Storage.Backend = %q, want memory from .env", cfg.GetStorage().Backend)
	}
}

func TestLoadFrom_InvalidEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("QUILL_REDIS_DB", "not-a-number")

	_, err := LoadFrom(filepath.Join(t.TempDir(), "config.yaml"), "")
	if err == nil {
		t.Fatal("expected error for non-numeric QUILL_REDIS_DB")
	}
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "api_url: [unclosed\n")

	if _, err := LoadFrom(path, ""); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantField string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"relative url", func(c *Config) { c.APIURL = "localhost:8080" }, "api_url"},
		{"ftp scheme", func(c *Config) { c.APIURL = "ftp://example.com" }, "api_url"},
		{"negative timeout", func(c *Config) { c.HTTPTimeout.Duration = -time.Second }, "http_timeout"},
		{"bad output", func(c *Config) { c.Output = "xml" }, "output"},
		{"bad backend", func(c *Config) { c.Storage.Backend = "sqlite" }, "storage.backend"},
		{"negative redis db", func(c *Config) {
			c.Storage.Backend = BackendRedis
			c.Storage.Redis.DB = -1
		}, "storage.redis.db"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			errs := cfg.Validate()

			if tc.wantField == "" {
				if len(errs) != 0 {
					t.Errorf("expected no errors, got %v", errs)
				}
				return
			}
			if len(errs) != 1 {
				t.Fatalf("expected 1 error, got %v", errs)
			}
			if errs[0].Field != tc.wantField {
				t.Errorf("Field = %q, want %q", errs[0].Field, tc.wantField)
			}
		})
	}
}

func TestLoadFrom_ValidationFailure(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "output: xml\nstorage:\n  backend: floppy\n")

	_, err := LoadFrom(path, "")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "output") || !strings.Contains(err.Error(), "storage.backend") {
		t.Errorf("error should list every problem, got: %v", err)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	cfg.SetAPIURL("https://saved.example.com/")
	cfg.SetOutput(OutputYAML)
	cfg.SetStorageBackend(BackendRedis)

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadFrom(path, "")
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if loaded.GetAPIURL() != "https://saved.example.com" {
		t.Errorf("APIURL = %q", loaded.GetAPIURL())
	}
	if loaded.GetOutput() != OutputYAML {
		t.Errorf("Output = %q", loaded.GetOutput())
	}
	if loaded.GetStorage().Backend != BackendRedis {
		t.Errorf("Backend = %q", loaded.GetStorage().Backend)
	}
	if loaded.GetHTTPTimeout() != DefaultHTTPTimeout {
		t.Errorf("HTTPTimeout = %v", loaded.GetHTTPTimeout())
	}
}

func TestLoad_UsesConfigDir(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("QUILL_HOME", home)
	paths.Reset()
	t.Cleanup(paths.Reset)

	writeFile(t, filepath.Join(home, "config.yaml"), "output: yaml\n")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GetOutput() != OutputYAML {
		t.Errorf("Output = %q, want yaml", cfg.GetOutput())
	}
	if cfg.FilePath() != filepath.Join(home, "config.yaml") {
		t.Errorf("FilePath = %q", cfg.FilePath())
	}
}

func TestConfig_ConcurrentAccess(t *testing.T) {
	cfg := Default()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				cfg.SetOutput(OutputJSON)
			} else {
				cfg.SetOutput(OutputTable)
			}
		}()
		go func() {
			defer wg.Done()
			_ = cfg.GetOutput()
			_ = cfg.GetStorage()
		}()
	}
	wg.Wait()
}

func TestReadFile_SetAndSave(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "output: json\n")
	t.Setenv("QUILL_API_URL", "https://from-env.example.com")

	cfg, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if cfg.GetAPIURL() != "" {
		t.Errorf("ReadFile should not apply the environment, got APIURL %q", cfg.GetAPIURL())
	}

	if err := cfg.Set("storage.backend", BackendRedis); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := cfg.Set("http_timeout", "5s"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "from-env") || strings.Contains(string(data), "api_url") {
		t.Errorf("environment leaked into the saved file:\n%s", data)
	}

	t.Setenv("QUILL_API_URL", "")
	loaded, err := LoadFrom(path, "")
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if loaded.GetOutput() != OutputJSON {
		t.Errorf("Output = %q, existing settings should be kept", loaded.GetOutput())
	}
	if loaded.GetStorage().Backend != BackendRedis {
		t.Errorf("Backend = %q", loaded.GetStorage().Backend)
	}
	if loaded.GetHTTPTimeout() != 5*time.Second {
		t.Errorf("HTTPTimeout = %v", loaded.GetHTTPTimeout())
	}
	if loaded.GetAPIURL() != DefaultAPIURL {
		t.Errorf("APIURL = %q, want default", loaded.GetAPIURL())
	}
}

func TestConfig_Set(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		want    string
		wantErr string
	}{
		{key: "api_url", value: "https://blog.example.com/", want: "https://blog.example.com"},
		{key: "api_url", value: "ftp://blog", wantErr: "unsupported scheme"},
		{key: "output", value: "yaml", want: "yaml"},
		{key: "output", value: "xml", wantErr: "unknown output format"},
		{key: "debug", value: "true", want: "true"},
		{key: "debug", value: "maybe", wantErr: "invalid debug"},
		{key: "http_timeout", value: "1m", want: "1m0s"},
		{key: "http_timeout", value: "soon", wantErr: "invalid http_timeout"},
		{key: "storage.backend", value: "sqlite", wantErr: "unknown backend"},
		{key: "storage.redis.db", value: "2", want: "2"},
		{key: "storage.redis.db", value: "two", wantErr: "invalid storage.redis.db"},
		{key: "colour", value: "blue", wantErr: "unknown config key"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg := Default()
			before, _ := cfg.Get(tt.key)

			err := cfg.Set(tt.key, tt.value)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Set error = %v, want %q", err, tt.wantErr)
				}
				if after, _ := cfg.Get(tt.key); after != before {
					t.Errorf("rejected Set changed %s from %q to %q", tt.key, before, after)
				}
				return
			}
			if err != nil {
				t.Fatalf("Set: %v", err)
			}
			got, err := cfg.Get(tt.key)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got != tt.want {
				t.Errorf("Get(%s) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestConfig_GetKnowsEveryKey(t *testing.T) {
	cfg := Default()
	for _, key := range Keys {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("Get(%s): %v", key, err)
		}
	}
	if _, err := cfg.Get("nope"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("expected ErrUnknownKey, got %v", err)
	}
}

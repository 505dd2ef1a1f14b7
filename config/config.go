package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/zhubert/quill/paths"
)

// Storage backends understood by the storage package.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Output formats understood by the view package.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

const (
	DefaultAPIURL      = "http://localhost:8080"
	DefaultHTTPTimeout = 30 * time.Second
	DefaultRedisAddr   = "localhost:6379"
	DefaultRedisPrefix = "quill:"
	DefaultDebounce    = 50 * time.Millisecond
)

// Config holds the client settings read from config.yaml, with
// environment variables (and the optional .env file) layered on top.
type Config struct {
	APIURL      string        `yaml:"api_url,omitempty"`
	HTTPTimeout Duration      `yaml:"http_timeout,omitempty"`
	Output      string        `yaml:"output,omitempty"`
	Debug       bool          `yaml:"debug,omitempty"`
	Storage     StorageConfig `yaml:"storage,omitempty"`

	mu       sync.RWMutex
	filePath string
}

// StorageConfig selects and configures the durable storage backend.
type StorageConfig struct {
	Backend  string      `yaml:"backend,omitempty"`
	Path     string      `yaml:"path,omitempty"`     // file backend; defaults to paths.StorageFilePath()
	Debounce Duration    `yaml:"debounce,omitempty"` // file backend change-notification debounce
	Redis    RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string `yaml:"addr,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

// ValidationError describes a single configuration problem.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Default returns a Config with every default applied and no file path.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads config.yaml from the config directory, or returns defaults if
// it doesn't exist.
func Load() (*Config, error) {
	path, err := paths.ConfigFilePath()
	if err != nil {
		return nil, err
	}
	envPath, err := paths.EnvFilePath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path, envPath)
}

// LoadFrom reads the config at path after loading envPath into the process
// environment. Either file may be missing. Variables already present in the
// environment are not overwritten by the .env file.
func LoadFrom(path, envPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envPath, err)
		}
	}

	cfg, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if errs := cfg.Validate(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("invalid config %s: %s", path, strings.Join(msgs, "; "))
	}

	return cfg, nil
}

// ReadFile reads only the settings stored at path, without environment
// overrides or defaults, so that Set and Save edit the file and nothing
// else. A missing file is an empty config.
func ReadFile(path string) (*Config, error) {
	cfg := &Config{filePath: path}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return cfg, nil
}

// applyEnv layers QUILL_* variables over the file values. Not thread-safe;
// only called from LoadFrom before the Config is shared.
func (c *Config) applyEnv() error {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString(&c.APIURL, "QUILL_API_URL")
	setString(&c.Output, "QUILL_OUTPUT")
	setString(&c.Storage.Backend, "QUILL_STORAGE")
	setString(&c.Storage.Path, "QUILL_STORAGE_PATH")
	setString(&c.Storage.Redis.Addr, "QUILL_REDIS_ADDR")
	setString(&c.Storage.Redis.Password, "QUILL_REDIS_PASSWORD")
	setString(&c.Storage.Redis.Prefix, "QUILL_REDIS_PREFIX")

	if v := os.Getenv("QUILL_REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid QUILL_REDIS_DB %q: %w", v, err)
		}
		c.Storage.Redis.DB = db
	}
	if v := os.Getenv("QUILL_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid QUILL_HTTP_TIMEOUT %q: %w", v, err)
		}
		c.HTTPTimeout.Duration = d
	}
	if v := os.Getenv("QUILL_DEBUG"); v != "" {
		c.Debug, _ = strconv.ParseBool(v)
	}
	return nil
}

// applyDefaults fills in unset fields. Not thread-safe; see applyEnv.
func (c *Config) applyDefaults() {
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	c.APIURL = strings.TrimRight(c.APIURL, "/")
	if c.HTTPTimeout.Duration == 0 {
		c.HTTPTimeout.Duration = DefaultHTTPTimeout
	}
	if c.Output == "" {
		c.Output = OutputTable
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendFile
	}
	if c.Storage.Debounce.Duration == 0 {
		c.Storage.Debounce.Duration = DefaultDebounce
	}
	if c.Storage.Redis.Addr == "" {
		c.Storage.Redis.Addr = DefaultRedisAddr
	}
	if c.Storage.Redis.Prefix == "" {
		c.Storage.Redis.Prefix = DefaultRedisPrefix
	}
}

// Validate checks the config and returns every problem found.
func (c *Config) Validate() []ValidationError {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errs []ValidationError

	if u, err := url.Parse(c.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "api_url",
			Message: fmt.Sprintf("%q is not an absolute URL", c.APIURL),
		})
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, ValidationError{
			Field:   "api_url",
			Message: fmt.Sprintf("unsupported scheme %q (must be http or https)", u.Scheme),
		})
	}

	if c.HTTPTimeout.Duration < 0 {
		errs = append(errs, ValidationError{Field: "http_timeout", Message: "must not be negative"})
	}

	switch c.Output {
	case OutputTable, OutputJSON, OutputYAML:
	default:
		errs = append(errs, ValidationError{
			Field:   "output",
			Message: fmt.Sprintf("unknown output format %q (must be table, json, or yaml)", c.Output),
		})
	}

	switch c.Storage.Backend {
	case BackendFile, BackendMemory:
	case BackendRedis:
		if c.Storage.Redis.DB < 0 {
			errs = append(errs, ValidationError{Field: "storage.redis.db", Message: "must not be negative"})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("unknown backend %q (must be file, redis, or memory)", c.Storage.Backend),
		})
	}

	return errs
}

// ErrUnknownKey is returned by Get and Set for a key not in Keys.
var ErrUnknownKey = errors.New("unknown config key")

// Keys lists the settings Get and Set understand, named as in config.yaml.
var Keys = []string{
	"api_url",
	"http_timeout",
	"output",
	"debug",
	"storage.backend",
	"storage.path",
	"storage.debounce",
	"storage.redis.addr",
	"storage.redis.password",
	"storage.redis.db",
	"storage.redis.prefix",
}

// Get returns one setting as a string.
func (c *Config) Get(key string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	switch key {
	case "api_url":
		return c.APIURL, nil
	case "http_timeout":
		return c.HTTPTimeout.String(), nil
	case "output":
		return c.Output, nil
	case "debug":
		return strconv.FormatBool(c.Debug), nil
	case "storage.backend":
		return c.Storage.Backend, nil
	case "storage.path":
		return c.Storage.Path, nil
	case "storage.debounce":
		return c.Storage.Debounce.String(), nil
	case "storage.redis.addr":
		return c.Storage.Redis.Addr, nil
	case "storage.redis.password":
		return c.Storage.Redis.Password, nil
	case "storage.redis.db":
		return strconv.Itoa(c.Storage.Redis.DB), nil
	case "storage.redis.prefix":
		return c.Storage.Redis.Prefix, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownKey, key)
}

// Set parses value into one setting. The change is rejected, leaving c
// untouched, when the value does not parse or the resulting config (with
// defaults filled in) would not validate.
func (c *Config) Set(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	candidate := c.copyLocked()
	if err := candidate.assign(key, value); err != nil {
		return err
	}
	candidate.applyDefaults()
	for _, e := range candidate.Validate() {
		if e.Field == key {
			return e
		}
	}
	return c.assign(key, value)
}

// copyLocked returns the settings of c without its lock or path. Caller
// must hold mu.
func (c *Config) copyLocked() *Config {
	return &Config{
		APIURL:      c.APIURL,
		HTTPTimeout: c.HTTPTimeout,
		Output:      c.Output,
		Debug:       c.Debug,
		Storage:     c.Storage,
	}
}

// assign parses value into key. Caller must hold mu.
func (c *Config) assign(key, value string) error {
	switch key {
	case "api_url":
		c.APIURL = strings.TrimRight(value, "/")
	case "http_timeout", "storage.debounce":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
		if key == "http_timeout" {
			c.HTTPTimeout.Duration = d
		} else {
			c.Storage.Debounce.Duration = d
		}
	case "output":
		c.Output = value
	case "debug":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
		c.Debug = b
	case "storage.backend":
		c.Storage.Backend = value
	case "storage.path":
		c.Storage.Path = value
	case "storage.redis.addr":
		c.Storage.Redis.Addr = value
	case "storage.redis.password":
		c.Storage.Redis.Password = value
	case "storage.redis.db":
		db, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
		c.Storage.Redis.DB = db
	case "storage.redis.prefix":
		c.Storage.Redis.Prefix = value
	default:
		return fmt.Errorf("%w %q", ErrUnknownKey, key)
	}
	return nil
}

// Save writes the config to its file as YAML.
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.filePath == "" {
		path, err := paths.ConfigFilePath()
		if err != nil {
			return err
		}
		c.filePath = path
	}

	if err := os.MkdirAll(filepath.Dir(c.filePath), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(c.filePath, data, 0644)
}

// FilePath returns the file the config was loaded from (or will be saved to).
func (c *Config) FilePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filePath
}

// GetAPIURL returns the base URL of the blog API, without a trailing slash.
func (c *Config) GetAPIURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.APIURL
}

// SetAPIURL sets the base URL of the blog API.
func (c *Config) SetAPIURL(u string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.APIURL = strings.TrimRight(u, "/")
}

// GetHTTPTimeout returns the per-request timeout for API calls.
func (c *Config) GetHTTPTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.HTTPTimeout.Duration
}

// GetOutput returns the default output format.
func (c *Config) GetOutput() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Output
}

// SetOutput sets the default output format.
func (c *Config) SetOutput(format string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Output = format
}

// GetDebug returns whether debug logging is enabled.
func (c *Config) GetDebug() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Debug
}

// SetDebug enables or disables debug logging.
func (c *Config) SetDebug(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Debug = enabled
}

// GetStorage returns a copy of the storage settings.
func (c *Config) GetStorage() StorageConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Storage
}

// SetStorageBackend selects the storage backend.
func (c *Config) SetStorageBackend(backend string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Storage.Backend = backend
}

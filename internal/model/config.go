package model

import "time"

// Config is the complete client configuration.
// Values are layered by viper: flags > CORTEX_* env > config file > DefaultConfig.
type Config struct {
	API          APIConfig          `yaml:"api" mapstructure:"api"`
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	RateLimiting RateLimitConfig    `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Storage      StorageConfig      `yaml:"storage" mapstructure:"storage"`
	Terminology  TerminologyConfig  `yaml:"terminology" mapstructure:"terminology"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	Web          WebConfig          `yaml:"web" mapstructure:"web"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// APIConfig locates the backends
type APIConfig struct {
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`       // Auth, SQL generation, history
	MedicalURL string `yaml:"medical_url" mapstructure:"medical_url"` // Extraction and similarity (defaults to BaseURL)
}

// HTTPConfig configures the outbound HTTP client
type HTTPConfig struct {
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent  string        `yaml:"user_agent" mapstructure:"user_agent"`
	HTTPProxy  string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// RateLimitConfig throttles calls to the backend
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`

	// Separate limit for the medical API host; zero keeps the shared limit
	MedicalRequestsPerSecond float64 `yaml:"medical_requests_per_second" mapstructure:"medical_requests_per_second"`
	MedicalBurstSize         int     `yaml:"medical_burst_size" mapstructure:"medical_burst_size"`
}

// CacheConfig configures terminology result caching
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir,omitempty" mapstructure:"dir"` // Empty disables the disk layer
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// StorageConfig selects where session and preferences persist
type StorageConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"`        // memory, file, sqlite
	Path    string `yaml:"path,omitempty" mapstructure:"path"` // File or database path
}

// TerminologyConfig controls the term validation picker
type TerminologyConfig struct {
	PageSize int `yaml:"page_size" mapstructure:"page_size"`
}

// ConcurrencyConfig controls background prefetching
type ConcurrencyConfig struct {
	PrefetchWorkers int `yaml:"prefetch_workers" mapstructure:"prefetch_workers"`
}

// WebConfig configures `cortex serve`
type WebConfig struct {
	Addr        string        `yaml:"addr" mapstructure:"addr"`
	CORSOrigins []string      `yaml:"cors_origins,omitempty" mapstructure:"cors_origins"`
	SessionTTL  time.Duration `yaml:"session_ttl" mapstructure:"session_ttl"` // Idle browser sessions are dropped after this
}

// LogConfig configures zerolog
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// Storage backends
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageSQLite = "sqlite"
)

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8000",
		},
		HTTP: HTTPConfig{
			Timeout:   2 * time.Minute, // SQL generation retries against a local LLM
			UserAgent: "cortex-client/0.3",
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 5,
			BurstSize:         10,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Storage: StorageConfig{
			Backend: StorageFile,
		},
		Terminology: TerminologyConfig{
			PageSize: 15,
		},
		Concurrency: ConcurrencyConfig{
			PrefetchWorkers: 4,
		},
		Web: WebConfig{
			Addr:       "127.0.0.1:5173",
			SessionTTL: 2 * time.Hour,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// MedicalBaseURL returns the extraction/similarity backend, falling back to the core API
func (c *Config) MedicalBaseURL() string {
	if c.API.MedicalURL != "" {
		return c.API.MedicalURL
	}
	return c.API.BaseURL
}

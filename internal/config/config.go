package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete health auditor configuration
type Config struct {
	Store    StoreConfig    `yaml:"store"`
	State    StateConfig    `yaml:"state"`
	Probes   ProbesConfig   `yaml:"probes"`
	Signal   SignalConfig   `yaml:"signal"`
	Gaps     GapsConfig     `yaml:"gaps"`
	Models   ModelsConfig   `yaml:"models"`
	Audit    AuditConfig    `yaml:"audit"`
	Notify   NotifyConfig   `yaml:"notify"`
	Serve    ServeConfig    `yaml:"serve"`
	Throttle ThrottleConfig `yaml:"throttle"`
}

// StoreConfig holds the relational store connection settings
type StoreConfig struct {
	DSN          string `yaml:"dsn"`           // Postgres DSN; env STORE_DSN overrides
	QueryTimeout int    `yaml:"query_timeout"` // Per-query timeout in seconds
}

// StateConfig selects and configures the run-state backend
type StateConfig struct {
	Backend   string `yaml:"backend"`    // "file" or "redis"
	Path      string `yaml:"path"`       // File backend: JSON state file path
	RedisAddr string `yaml:"redis_addr"` // Redis backend: host:port
	RedisKey  string `yaml:"redis_key"`  // Redis backend: key holding the state
	FlagTTL   int    `yaml:"flag_ttl_days"` // Days before a flagged gap may re-alert; 0 = never
}

// ProbesConfig holds per-probe endpoints and timeouts
type ProbesConfig struct {
	TimeoutSecs   int     `yaml:"timeout_secs"` // Per-probe timeout
	RPS           float64 `yaml:"rps"`          // Shared HTTP politeness limit
	MarketDataURL string  `yaml:"market_data_url"`
	MarketKeyName string  `yaml:"market_key_name"` // Secret name for the market-data API key
	MacroDataURL  string  `yaml:"macro_data_url"`
	DisclosureURL string  `yaml:"disclosure_url"`
	LLMCommand    string  `yaml:"llm_command"` // LLM CLI binary
	LLMArgs       []string `yaml:"llm_args"`   // Args for the reachability invocation
}

// SignalConfig holds the monitoring-loop recency settings
type SignalConfig struct {
	Table        string `yaml:"table"`         // Monitoring-cycle table
	StaleMinutes int    `yaml:"stale_minutes"` // Staleness threshold
}

// GapsConfig holds the gap scan window and source tables
type GapsConfig struct {
	Tables     []string `yaml:"tables"`      // Gap-bearing tables (data_gaps JSON column)
	WindowDays int      `yaml:"window_days"` // Scan window
	Threshold  int      `yaml:"threshold"`   // Occurrences to classify as recurring
	TopN       int      `yaml:"top_n"`       // Diagnostic gap_counts snapshot size
}

// ModelsConfig holds the catalog lister settings
type ModelsConfig struct {
	Command         string   `yaml:"command"` // Catalog CLI binary
	Args            []string `yaml:"args"`
	TimeoutSecs     int      `yaml:"timeout_secs"`
	TrackedPrefixes []string `yaml:"tracked_prefixes"` // Only lines naming these are scanned
	Running         []string `yaml:"running"`          // Model IDs currently in use
}

// AuditConfig controls the optional per-run audit row
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Table   string `yaml:"table"`
}

// NotifyConfig selects the notification collaborator
type NotifyConfig struct {
	Backend    string `yaml:"backend"` // "log" or "webhook"
	WebhookURL string `yaml:"webhook_url"`
	TimeoutSecs int   `yaml:"timeout_secs"`
}

// ServeConfig holds the long-running mode settings
type ServeConfig struct {
	Addr          string `yaml:"addr"`
	IntervalHours int    `yaml:"interval_hours"` // Audit tick; throttle still applies
}

// ThrottleConfig holds the run-throttle window
type ThrottleConfig struct {
	MinDays int `yaml:"min_days"` // Minimum days between non-forced runs
}

// Default returns a configuration that works without a config file,
// relying on STORE_DSN and the probe credential from the environment.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			DSN:          os.Getenv("STORE_DSN"),
			QueryTimeout: 10,
		},
		State: StateConfig{
			Backend:  "file",
			Path:     "tradeaudit_state.json",
			RedisKey: "tradeaudit:state",
			FlagTTL:  90,
		},
		Probes: ProbesConfig{
			TimeoutSecs:   10,
			RPS:           2.0,
			MarketDataURL: "https://financialmodelingprep.com/api/v3/quote/SPY",
			MarketKeyName: "FMP_API_KEY",
			MacroDataURL:  "https://api.stlouisfed.org/fred/",
			DisclosureURL: "https://www.capitoltrades.com/trades",
			LLMCommand:    "ollama",
			LLMArgs:       []string{"--version"},
		},
		Signal: SignalConfig{
			Table:        "monitor_cycles",
			StaleMinutes: 30,
		},
		Gaps: GapsConfig{
			Tables:     []string{"analysis_runs", "scoring_runs"},
			WindowDays: 14,
			Threshold:  2,
			TopN:       10,
		},
		Models: ModelsConfig{
			Command:         "ollama",
			Args:            []string{"list"},
			TimeoutSecs:     15,
			TrackedPrefixes: []string{"llama", "qwen"},
			Running:         []string{},
		},
		Audit: AuditConfig{
			Enabled: true,
			Table:   "health_audit",
		},
		Notify: NotifyConfig{
			Backend:     "log",
			TimeoutSecs: 10,
		},
		Serve: ServeConfig{
			Addr:          ":8087",
			IntervalHours: 6,
		},
		Throttle: ThrottleConfig{
			MinDays: 13,
		},
	}
}

// Load reads a YAML config file over the defaults
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate ensures the configuration is usable
func (c *Config) Validate() error {
	if c.Throttle.MinDays < 0 {
		return fmt.Errorf("throttle min_days must be >= 0, got %d", c.Throttle.MinDays)
	}
	if c.Gaps.Threshold < 1 {
		return fmt.Errorf("gaps threshold must be >= 1, got %d", c.Gaps.Threshold)
	}
	if c.Gaps.WindowDays < 1 {
		return fmt.Errorf("gaps window_days must be >= 1, got %d", c.Gaps.WindowDays)
	}
	if len(c.Gaps.Tables) == 0 {
		return fmt.Errorf("gaps tables must not be empty")
	}
	if c.Signal.StaleMinutes < 1 {
		return fmt.Errorf("signal stale_minutes must be >= 1, got %d", c.Signal.StaleMinutes)
	}
	switch c.State.Backend {
	case "file", "redis":
	default:
		return fmt.Errorf("state backend must be file or redis, got %q", c.State.Backend)
	}
	switch c.Notify.Backend {
	case "log", "webhook":
	default:
		return fmt.Errorf("notify backend must be log or webhook, got %q", c.Notify.Backend)
	}
	if c.Notify.Backend == "webhook" && c.Notify.WebhookURL == "" {
		return fmt.Errorf("notify webhook_url required for webhook backend")
	}
	if c.Probes.TimeoutSecs < 1 {
		return fmt.Errorf("probe timeout_secs must be >= 1, got %d", c.Probes.TimeoutSecs)
	}
	return nil
}

// Timeout returns the per-query store timeout as a duration
func (c *StoreConfig) Timeout() time.Duration {
	if c.QueryTimeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.QueryTimeout) * time.Second
}

// ProbeTimeout returns the per-probe timeout as a duration
func (c *ProbesConfig) ProbeTimeout() time.Duration {
	if c.TimeoutSecs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSecs) * time.Second
}

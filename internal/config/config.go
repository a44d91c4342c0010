// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Database() DatabaseConfig
	LoadGen() LoadGenConfig
	Scanner() ScannerConfig
	Audit() AuditConfig
	Orchestrator() OrchestratorConfig
	LLM() LLMConfig
	Scoring() ScoringConfig
	Server() ServerConfig
}

// Config holds the entire application configuration. Sections are exported so
// viper can populate them; callers go through the Interface getters.
type Config struct {
	LoggerCfg       LoggerConfig       `mapstructure:"logger" yaml:"logger"`
	DatabaseCfg     DatabaseConfig     `mapstructure:"database" yaml:"database"`
	LoadGenCfg      LoadGenConfig      `mapstructure:"loadgen" yaml:"loadgen"`
	ScannerCfg      ScannerConfig      `mapstructure:"scanner" yaml:"scanner"`
	AuditCfg        AuditConfig        `mapstructure:"audit" yaml:"audit"`
	OrchestratorCfg OrchestratorConfig `mapstructure:"orchestrator" yaml:"orchestrator"`
	LLMCfg          LLMConfig          `mapstructure:"llm" yaml:"llm"`
	ScoringCfg      ScoringConfig      `mapstructure:"scoring" yaml:"scoring"`
	ServerCfg       ServerConfig       `mapstructure:"server" yaml:"server"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig             { return c.LoggerCfg }
func (c *Config) Database() DatabaseConfig         { return c.DatabaseCfg }
func (c *Config) LoadGen() LoadGenConfig           { return c.LoadGenCfg }
func (c *Config) Scanner() ScannerConfig           { return c.ScannerCfg }
func (c *Config) Audit() AuditConfig               { return c.AuditCfg }
func (c *Config) Orchestrator() OrchestratorConfig { return c.OrchestratorCfg }
func (c *Config) LLM() LLMConfig                   { return c.LLMCfg }
func (c *Config) Scoring() ScoringConfig           { return c.ScoringCfg }
func (c *Config) Server() ServerConfig             { return c.ServerCfg }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// DatabaseConfig holds the database connection details. An empty URL selects the
// in-memory session store.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// Load generator execution modes.
const (
	LoadModeAuto = "auto" // probe for the binary, simulate only if it is missing
	LoadModeDemo = "demo" // always simulate
)

// LoadGenConfig configures the load generator adapter.
type LoadGenConfig struct {
	Mode         string        `mapstructure:"mode" yaml:"mode"`
	Binary       string        `mapstructure:"binary" yaml:"binary"`
	ScriptPath   string        `mapstructure:"script_path" yaml:"script_path"`
	VirtualUsers int           `mapstructure:"virtual_users" yaml:"virtual_users"`
	Duration     time.Duration `mapstructure:"duration" yaml:"duration"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout" yaml:"probe_timeout"`
	// SimulationDelay paces a simulated run so it feels like a real one.
	SimulationDelay time.Duration `mapstructure:"simulation_delay" yaml:"simulation_delay"`
}

// GitHubConfig defines the optional GitHub API preflight for repository scans.
type GitHubConfig struct {
	Token     string `mapstructure:"token" yaml:"-"`
	Preflight bool   `mapstructure:"preflight" yaml:"preflight"`
}

// ScannerConfig configures the repository signal scanner.
type ScannerConfig struct {
	ScratchDir   string        `mapstructure:"scratch_dir" yaml:"scratch_dir"`
	CloneTimeout time.Duration `mapstructure:"clone_timeout" yaml:"clone_timeout"`
	GitHub       GitHubConfig  `mapstructure:"github" yaml:"github"`
}

// AuditConfig configures the browser audit collaborator.
type AuditConfig struct {
	Enabled     bool          `mapstructure:"enabled" yaml:"enabled"`
	Binary      string        `mapstructure:"binary" yaml:"binary"`
	ChromeFlags []string      `mapstructure:"chrome_flags" yaml:"chrome_flags"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// OrchestratorConfig bounds the wall-clock time of each branch.
type OrchestratorConfig struct {
	LoadTimeout      time.Duration `mapstructure:"load_timeout" yaml:"load_timeout"`
	ScanTimeout      time.Duration `mapstructure:"scan_timeout" yaml:"scan_timeout"`
	AuditTimeout     time.Duration `mapstructure:"audit_timeout" yaml:"audit_timeout"`
	NarrativeTimeout time.Duration `mapstructure:"narrative_timeout" yaml:"narrative_timeout"`
	StoreTimeout     time.Duration `mapstructure:"store_timeout" yaml:"store_timeout"`
}

// LLMProvider defines the supported narrative backends.
type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai" // any OpenAI-compatible endpoint, including OpenRouter
	ProviderGemini LLMProvider = "gemini"
	ProviderNone   LLMProvider = "none"
)

// LLMConfig defines the configuration of the narrative model.
type LLMConfig struct {
	Provider    LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	MaxRetries  int           `mapstructure:"max_retries" yaml:"max_retries"`
}

// ScoringConfig holds the heuristic constants of the business scoring model.
// None of them are calibrated; they are configurable on purpose.
type ScoringConfig struct {
	DockerWeight       int `mapstructure:"docker_weight" yaml:"docker_weight"`
	CICDWeight         int `mapstructure:"cicd_weight" yaml:"cicd_weight"`
	KubernetesWeight   int `mapstructure:"kubernetes_weight" yaml:"kubernetes_weight"`
	StartScriptWeight  int `mapstructure:"start_script_weight" yaml:"start_script_weight"`
	LowRiskMinScore    int `mapstructure:"low_risk_min_score" yaml:"low_risk_min_score"`
	MediumRiskMinScore int `mapstructure:"medium_risk_min_score" yaml:"medium_risk_min_score"`

	ConversionLossPerSecond float64 `mapstructure:"conversion_loss_per_second" yaml:"conversion_loss_per_second"`
	PerRequestValue         float64 `mapstructure:"per_request_value" yaml:"per_request_value"`
	PeakWindowSeconds       float64 `mapstructure:"peak_window_seconds" yaml:"peak_window_seconds"`

	ArchitectureDefault int `mapstructure:"architecture_default" yaml:"architecture_default"`
	DevOpsDefault       int `mapstructure:"devops_default" yaml:"devops_default"`

	CollapseFailureThreshold float64 `mapstructure:"collapse_failure_threshold" yaml:"collapse_failure_threshold"`
	CollapseDegradedFactor   float64 `mapstructure:"collapse_degraded_factor" yaml:"collapse_degraded_factor"`
	CollapseHealthyFactor    float64 `mapstructure:"collapse_healthy_factor" yaml:"collapse_healthy_factor"`

	P95ThresholdMs       float64 `mapstructure:"p95_threshold_ms" yaml:"p95_threshold_ms"`
	ThroughputThreshold  float64 `mapstructure:"throughput_threshold" yaml:"throughput_threshold"`
	FailureRateThreshold float64 `mapstructure:"failure_rate_threshold" yaml:"failure_rate_threshold"`
	MaxRemediations      int     `mapstructure:"max_remediations" yaml:"max_remediations"`
	ContextMaxBytes      int     `mapstructure:"context_max_bytes" yaml:"context_max_bytes"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	MetricsEnabled bool          `mapstructure:"metrics_enabled" yaml:"metrics_enabled"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "synthmind")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Database --
	v.SetDefault("database.url", "")

	// -- Load Generator --
	v.SetDefault("loadgen.mode", LoadModeAuto)
	v.SetDefault("loadgen.binary", "k6")
	v.SetDefault("loadgen.script_path", "")
	v.SetDefault("loadgen.virtual_users", 100)
	v.SetDefault("loadgen.duration", "5s")
	v.SetDefault("loadgen.probe_timeout", "3s")
	v.SetDefault("loadgen.simulation_delay", "2s")

	// -- Scanner --
	v.SetDefault("scanner.scratch_dir", "")
	v.SetDefault("scanner.clone_timeout", "60s")
	v.SetDefault("scanner.github.preflight", false)

	// -- Audit --
	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.binary", "lighthouse")
	v.SetDefault("audit.chrome_flags", []string{"--headless=new", "--no-sandbox"})
	v.SetDefault("audit.timeout", "90s")

	// -- Orchestrator --
	v.SetDefault("orchestrator.load_timeout", "2m")
	v.SetDefault("orchestrator.scan_timeout", "90s")
	v.SetDefault("orchestrator.audit_timeout", "2m")
	v.SetDefault("orchestrator.narrative_timeout", "60s")
	v.SetDefault("orchestrator.store_timeout", "10s")

	// -- LLM --
	v.SetDefault("llm.provider", string(ProviderOpenAI))
	v.SetDefault("llm.model", "openai/gpt-4o-mini")
	v.SetDefault("llm.endpoint", "")
	v.SetDefault("llm.api_timeout", "45s")
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_tokens", 900)
	v.SetDefault("llm.max_retries", 2)

	// -- Scoring --
	v.SetDefault("scoring.docker_weight", 30)
	v.SetDefault("scoring.cicd_weight", 30)
	v.SetDefault("scoring.kubernetes_weight", 20)
	v.SetDefault("scoring.start_script_weight", 20)
	v.SetDefault("scoring.low_risk_min_score", 70)
	v.SetDefault("scoring.medium_risk_min_score", 40)
	v.SetDefault("scoring.conversion_loss_per_second", 7.0)
	v.SetDefault("scoring.per_request_value", 0.05)
	v.SetDefault("scoring.peak_window_seconds", 3600.0)
	v.SetDefault("scoring.architecture_default", 50)
	v.SetDefault("scoring.devops_default", 20)
	v.SetDefault("scoring.collapse_failure_threshold", 0.05)
	v.SetDefault("scoring.collapse_degraded_factor", 0.9)
	v.SetDefault("scoring.collapse_healthy_factor", 1.8)
	v.SetDefault("scoring.p95_threshold_ms", 200.0)
	v.SetDefault("scoring.throughput_threshold", 500.0)
	v.SetDefault("scoring.failure_rate_threshold", 0.05)
	v.SetDefault("scoring.max_remediations", 3)
	v.SetDefault("scoring.context_max_bytes", 6000)

	// -- Server --
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.metrics_enabled", true)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	v.SetEnvPrefix("SYNTHMIND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind environment variables for sensitive data
	_ = v.BindEnv("llm.api_key", "SYNTHMIND_LLM_API_KEY", "OPENROUTER_API_KEY")
	_ = v.BindEnv("database.url", "SYNTHMIND_DATABASE_URL")
	_ = v.BindEnv("scanner.github.token", "SYNTHMIND_SCANNER_GITHUB_TOKEN", "GITHUB_TOKEN")
	_ = v.BindEnv("loadgen.mode", "SYNTHMIND_LOADGEN_MODE", "EXECUTION_MODE")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.LoadGenCfg.Validate(); err != nil {
		return fmt.Errorf("loadgen configuration invalid: %w", err)
	}
	if err := c.LLMCfg.Validate(); err != nil {
		return fmt.Errorf("llm configuration invalid: %w", err)
	}
	if err := c.ScoringCfg.Validate(); err != nil {
		return fmt.Errorf("scoring configuration invalid: %w", err)
	}
	if c.OrchestratorCfg.LoadTimeout <= 0 || c.OrchestratorCfg.ScanTimeout <= 0 ||
		c.OrchestratorCfg.AuditTimeout <= 0 || c.OrchestratorCfg.NarrativeTimeout <= 0 {
		return fmt.Errorf("orchestrator timeouts must be positive durations")
	}
	return nil
}

// Validate checks the load generator settings.
func (l *LoadGenConfig) Validate() error {
	if l.Mode != LoadModeAuto && l.Mode != LoadModeDemo {
		return fmt.Errorf("mode must be %q or %q, got %q", LoadModeAuto, LoadModeDemo, l.Mode)
	}
	if l.VirtualUsers <= 0 {
		return fmt.Errorf("virtual_users must be a positive integer")
	}
	if l.Duration <= 0 {
		return fmt.Errorf("duration must be a positive duration")
	}
	return nil
}

// Validate checks the LLM settings.
func (l *LLMConfig) Validate() error {
	switch l.Provider {
	case ProviderOpenAI, ProviderGemini, ProviderNone:
	default:
		return fmt.Errorf("unsupported provider %q", l.Provider)
	}
	if l.Provider != ProviderNone && l.Model == "" {
		return fmt.Errorf("model is required for provider %q", l.Provider)
	}
	return nil
}

// Validate checks the scoring model constants.
func (s *ScoringConfig) Validate() error {
	total := s.DockerWeight + s.CICDWeight + s.KubernetesWeight + s.StartScriptWeight
	if total != 100 {
		return fmt.Errorf("devops weights must sum to 100, got %d", total)
	}
	if s.MediumRiskMinScore > s.LowRiskMinScore {
		return fmt.Errorf("medium_risk_min_score must not exceed low_risk_min_score")
	}
	if s.MaxRemediations < 0 || s.ContextMaxBytes <= 0 {
		return fmt.Errorf("max_remediations must be >= 0 and context_max_bytes > 0")
	}
	return nil
}

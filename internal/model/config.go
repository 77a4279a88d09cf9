package model

import "time"

// Config is the complete claimwatch configuration
type Config struct {
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Scoring    ScoringConfig    `yaml:"scoring" mapstructure:"scoring"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Verify     VerifyConfig     `yaml:"verify" mapstructure:"verify"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Monitor    MonitorConfig    `yaml:"monitor" mapstructure:"monitor"`
	Alert      AlertConfig      `yaml:"alert" mapstructure:"alert"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Feeds      FeedsConfig      `yaml:"feeds" mapstructure:"feeds"`
	HTTP       HTTPConfig       `yaml:"http" mapstructure:"http"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
}

// LogConfig controls zap output
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or console
}

// ScoringConfig holds the synthesis weights and thresholds.
// The defaults are uncalibrated and kept as configuration.
type ScoringConfig struct {
	MethodWeights      map[Method]float64    `yaml:"method_weights" mapstructure:"method_weights"`
	TypeWeights        map[ClaimType]float64 `yaml:"type_weights" mapstructure:"type_weights"`
	VerifiedThreshold  float64               `yaml:"verified_threshold" mapstructure:"verified_threshold"`
	DisputedThreshold  float64               `yaml:"disputed_threshold" mapstructure:"disputed_threshold"`
	MinClaimConfidence float64               `yaml:"min_claim_confidence" mapstructure:"min_claim_confidence"`
}

// ExtractionConfig tunes claim segmentation
type ExtractionConfig struct {
	MinSegmentLength int `yaml:"min_segment_length" mapstructure:"min_segment_length"`
	MaxSegmentLength int `yaml:"max_segment_length" mapstructure:"max_segment_length"`
	MaxClaims        int `yaml:"max_claims" mapstructure:"max_claims"`
}

// VerifyConfig controls oracle fan-out
type VerifyConfig struct {
	Oracle             string        `yaml:"oracle" mapstructure:"oracle"` // heuristic or llm
	CallTimeout        time.Duration `yaml:"call_timeout" mapstructure:"call_timeout"`
	Concurrency        int           `yaml:"concurrency" mapstructure:"concurrency"`
	RequestsPerSecond  float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst              int           `yaml:"burst" mapstructure:"burst"`
	SocialMediaTrigger float64       `yaml:"social_media_trigger" mapstructure:"social_media_trigger"`
}

// LLMConfig configures the optional LLM oracle and explainer
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, or empty
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	Explain   bool   `yaml:"explain" mapstructure:"explain"`
}

// CacheConfig configures verification result caching
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
	Dir       string        `yaml:"dir" mapstructure:"dir"` // empty disables the disk layer
}

// MonitorConfig controls the unsolved-query lifecycle
type MonitorConfig struct {
	InconclusiveConfidence float64       `yaml:"inconclusive_confidence" mapstructure:"inconclusive_confidence"`
	ResolutionThreshold    float64       `yaml:"resolution_threshold" mapstructure:"resolution_threshold"`
	Schedule               string        `yaml:"schedule" mapstructure:"schedule"` // cron spec
	CriticalSLA            time.Duration `yaml:"critical_sla" mapstructure:"critical_sla"`
	HighSLA                time.Duration `yaml:"high_sla" mapstructure:"high_sla"`
	MediumSLA              time.Duration `yaml:"medium_sla" mapstructure:"medium_sla"`
	LowSLA                 time.Duration `yaml:"low_sla" mapstructure:"low_sla"` // zero inherits medium
	ObserveBuffer          int           `yaml:"observe_buffer" mapstructure:"observe_buffer"`
}

// SLA returns the pending deadline for p
func (c MonitorConfig) SLA(p Priority) time.Duration {
	switch p {
	case PriorityCritical:
		return c.CriticalSLA
	case PriorityHigh:
		return c.HighSLA
	case PriorityLow:
		if c.LowSLA > 0 {
			return c.LowSLA
		}
	}
	return c.MediumSLA
}

// AlertConfig configures delivery
type AlertConfig struct {
	WebhookURL  string        `yaml:"webhook_url,omitempty" mapstructure:"webhook_url"`
	SendTimeout time.Duration `yaml:"send_timeout" mapstructure:"send_timeout"`
}

// StoreConfig selects persistence
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // memory or sqlite
	DSN    string `yaml:"dsn" mapstructure:"dsn"`       // empty uses ~/.claimwatch/claimwatch.db
}

// FeedsConfig lists RSS/Atom feeds polled for resolution content
type FeedsConfig struct {
	URLs     []string `yaml:"urls" mapstructure:"urls"`
	MaxItems int      `yaml:"max_items" mapstructure:"max_items"`
}

// HTTPConfig configures outbound fetches
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "console"},
		Scoring: ScoringConfig{
			MethodWeights: map[Method]float64{
				MethodGovernment:   0.9,
				MethodAcademic:     0.85,
				MethodNews:         0.8,
				MethodFactCheckers: 0.75,
				MethodSocialMedia:  0.6,
			},
			TypeWeights: map[ClaimType]float64{
				ClaimTypeMedical:     1.0,
				ClaimTypeScientific:  0.8,
				ClaimTypePolitical:   0.7,
				ClaimTypeStatistical: 0.6,
				ClaimTypeGeneral:     0.4,
			},
			VerifiedThreshold:  0.7,
			DisputedThreshold:  0.4,
			MinClaimConfidence: 0.3,
		},
		Extraction: ExtractionConfig{
			MinSegmentLength: 15,
			MaxSegmentLength: 500,
			MaxClaims:        10,
		},
		Verify: VerifyConfig{
			Oracle:             "heuristic",
			CallTimeout:        10 * time.Second,
			Concurrency:        8,
			RequestsPerSecond:  5,
			Burst:              5,
			SocialMediaTrigger: 0.7,
		},
		LLM: LLMConfig{
			Timeout:   30,
			MaxTokens: 400,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 15 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Monitor: MonitorConfig{
			InconclusiveConfidence: 0.5,
			ResolutionThreshold:    0.7,
			Schedule:               "@every 5m",
			CriticalSLA:            2 * time.Hour,
			HighSLA:                24 * time.Hour,
			MediumSLA:              72 * time.Hour,
			ObserveBuffer:          64,
		},
		Alert: AlertConfig{
			SendTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Driver: "sqlite",
		},
		Feeds: FeedsConfig{
			MaxItems: 50,
		},
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "claimwatch/0.1 (+https://github.com/ppiankov/claimwatch)",
			MaxBodyBytes:  2_000_000,
			RespectRobots: true,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Package config loads benchmark suite definitions from YAML and builds
// the runtime objects (provider, cases, storage) they describe.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"promptum/internal/benchmark"
	"promptum/internal/provider"
	"promptum/internal/storage"
)

// Environment variables honored at build time. PROMPTUM_MODEL and
// PROMPTUM_BASE_URL override the suite file, which keeps suite files
// shareable while letting CI point them at different backends.
const (
	EnvOpenRouterAPIKey = "OPENROUTER_API_KEY"
	EnvGeminiAPIKey     = "GEMINI_API_KEY"
	EnvModelOverride    = "PROMPTUM_MODEL"
	EnvBaseURLOverride  = "PROMPTUM_BASE_URL"
)

// Config is a parsed suite file.
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Run      RunConfig      `yaml:"run"`
	Output   OutputConfig   `yaml:"output"`
	Storage  StorageConfig  `yaml:"storage"`
	Cases    []CaseConfig   `yaml:"cases"`
}

// ProviderConfig selects and configures the LLM provider.
type ProviderConfig struct {
	Name     string       `yaml:"name"`
	Model    string       `yaml:"model"`
	BaseURL  string       `yaml:"base_url"`
	Timeout  string       `yaml:"timeout"`
	SiteURL  string       `yaml:"site_url"`
	SiteName string       `yaml:"site_name"`
	Retry    *RetryConfig `yaml:"retry"`
}

// RetryConfig mirrors provider.RetryConfig with YAML-friendly durations.
type RetryConfig struct {
	MaxAttempts     int     `yaml:"max_attempts"`
	Strategy        string  `yaml:"strategy"`
	InitialDelay    string  `yaml:"initial_delay"`
	MaxDelay        string  `yaml:"max_delay"`
	ExponentialBase float64 `yaml:"exponential_base"`
}

// DefaultsConfig applies to every case that does not override the field.
type DefaultsConfig struct {
	SystemPrompt string   `yaml:"system_prompt"`
	Temperature  *float64 `yaml:"temperature"`
	MaxTokens    int      `yaml:"max_tokens"`
}

// RunConfig controls execution.
type RunConfig struct {
	MaxConcurrent int `yaml:"max_concurrent"`
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	Format string `yaml:"format"`
	Path   string `yaml:"path"`
}

// StorageConfig selects where reports persist. Dir and SQLite are mutually
// exclusive; neither means no persistence.
type StorageConfig struct {
	Dir    string `yaml:"dir"`
	SQLite string `yaml:"sqlite"`
}

// CaseConfig is one benchmark case in the suite file.
type CaseConfig struct {
	Name         string         `yaml:"name"`
	Prompt       string         `yaml:"prompt"`
	Model        string         `yaml:"model"`
	SystemPrompt string         `yaml:"system_prompt"`
	Temperature  *float64       `yaml:"temperature"`
	MaxTokens    int            `yaml:"max_tokens"`
	Extra        map[string]any `yaml:"extra"`
	Validator    *ValidatorSpec `yaml:"validator"`
}

// Load reads and validates a suite file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every problem in the config, not just the first.
func (c *Config) Validate() error {
	var errs []error

	switch c.Provider.Name {
	case "openrouter", "gemini":
	case "":
		errs = append(errs, errors.New("provider.name is required"))
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Provider.Name))
	}
	if c.Provider.Model == "" {
		errs = append(errs, errors.New("provider.model is required"))
	}
	if c.Provider.Timeout != "" {
		if _, err := time.ParseDuration(c.Provider.Timeout); err != nil {
			errs = append(errs, fmt.Errorf("bad provider.timeout: %w", err))
		}
	}
	if c.Provider.Retry != nil {
		if _, err := c.Provider.Retry.build(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(c.Cases) == 0 {
		errs = append(errs, errors.New("at least one case is required"))
	}
	seen := make(map[string]bool, len(c.Cases))
	for i, cc := range c.Cases {
		where := fmt.Sprintf("cases[%d]", i)
		if cc.Name == "" {
			errs = append(errs, fmt.Errorf("%s: name is required", where))
		} else if seen[cc.Name] {
			errs = append(errs, fmt.Errorf("%s: duplicate case name %q", where, cc.Name))
		} else {
			seen[cc.Name] = true
		}
		if cc.Prompt == "" {
			errs = append(errs, fmt.Errorf("%s: prompt is required", where))
		}
		if cc.Validator != nil {
			if _, err := cc.Validator.Build(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", where, err))
			}
		}
	}

	if c.Output.Format != "" {
		switch c.Output.Format {
		case "json", "yaml", "yml", "html":
		default:
			errs = append(errs, fmt.Errorf("unknown output format %q", c.Output.Format))
		}
	}
	if c.Storage.Dir != "" && c.Storage.SQLite != "" {
		errs = append(errs, errors.New("storage.dir and storage.sqlite are mutually exclusive"))
	}
	if c.Run.MaxConcurrent < 0 {
		errs = append(errs, errors.New("run.max_concurrent must not be negative"))
	}

	return errors.Join(errs...)
}

func (r *RetryConfig) build() (*provider.RetryConfig, error) {
	out := provider.RetryConfig{
		MaxAttempts:     r.MaxAttempts,
		ExponentialBase: r.ExponentialBase,
	}
	switch r.Strategy {
	case "":
	case string(provider.StrategyExponentialBackoff):
		out.Strategy = provider.StrategyExponentialBackoff
	case string(provider.StrategyFixedDelay):
		out.Strategy = provider.StrategyFixedDelay
	default:
		return nil, fmt.Errorf("unknown retry strategy %q", r.Strategy)
	}
	if r.InitialDelay != "" {
		d, err := time.ParseDuration(r.InitialDelay)
		if err != nil {
			return nil, fmt.Errorf("bad retry initial_delay: %w", err)
		}
		out.InitialDelay = d
	}
	if r.MaxDelay != "" {
		d, err := time.ParseDuration(r.MaxDelay)
		if err != nil {
			return nil, fmt.Errorf("bad retry max_delay: %w", err)
		}
		out.MaxDelay = d
	}
	return &out, nil
}

// BuildProvider constructs the configured provider client. API keys come
// from the environment, never from the suite file.
func (c *Config) BuildProvider(logger *zap.Logger) (provider.Provider, error) {
	baseURL := c.Provider.BaseURL
	if env := os.Getenv(EnvBaseURLOverride); env != "" {
		baseURL = env
	}

	var timeout time.Duration
	if c.Provider.Timeout != "" {
		d, err := time.ParseDuration(c.Provider.Timeout)
		if err != nil {
			return nil, fmt.Errorf("bad provider.timeout: %w", err)
		}
		timeout = d
	}

	var retry *provider.RetryConfig
	if c.Provider.Retry != nil {
		r, err := c.Provider.Retry.build()
		if err != nil {
			return nil, err
		}
		retry = r
	}

	switch c.Provider.Name {
	case "openrouter":
		apiKey := os.Getenv(EnvOpenRouterAPIKey)
		if apiKey == "" {
			return nil, fmt.Errorf("%s is not set", EnvOpenRouterAPIKey)
		}
		return provider.NewOpenRouterClientWithConfig(provider.OpenRouterConfig{
			APIKey:   apiKey,
			BaseURL:  baseURL,
			Timeout:  timeout,
			Retry:    retry,
			SiteURL:  c.Provider.SiteURL,
			SiteName: c.Provider.SiteName,
			Logger:   logger,
		}), nil
	case "gemini":
		apiKey := os.Getenv(EnvGeminiAPIKey)
		if apiKey == "" {
			return nil, fmt.Errorf("%s is not set", EnvGeminiAPIKey)
		}
		return provider.NewGeminiClientWithConfig(provider.GeminiConfig{
			APIKey:  apiKey,
			BaseURL: baseURL,
			Timeout: timeout,
			Retry:   retry,
			Logger:  logger,
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", c.Provider.Name)
	}
}

// BuildCases converts the suite file cases into benchmark cases, applying
// suite-level defaults.
func (c *Config) BuildCases() ([]benchmark.Case, error) {
	model := c.Provider.Model
	if env := os.Getenv(EnvModelOverride); env != "" {
		model = env
	}

	cases := make([]benchmark.Case, 0, len(c.Cases))
	for _, cc := range c.Cases {
		bc := benchmark.Case{
			Name:         cc.Name,
			Prompt:       cc.Prompt,
			Model:        model,
			SystemPrompt: c.Defaults.SystemPrompt,
			Temperature:  c.Defaults.Temperature,
			MaxTokens:    c.Defaults.MaxTokens,
			Extra:        cc.Extra,
		}
		if cc.Model != "" {
			bc.Model = cc.Model
		}
		if cc.SystemPrompt != "" {
			bc.SystemPrompt = cc.SystemPrompt
		}
		if cc.Temperature != nil {
			bc.Temperature = cc.Temperature
		}
		if cc.MaxTokens > 0 {
			bc.MaxTokens = cc.MaxTokens
		}
		if cc.Validator != nil {
			v, err := cc.Validator.Build()
			if err != nil {
				return nil, fmt.Errorf("case %q: %w", cc.Name, err)
			}
			bc.Validator = v
		}
		cases = append(cases, bc)
	}
	return cases, nil
}

// BuildStore constructs the configured report store. It returns a nil store
// when the suite persists nothing; the cleanup func is always safe to call.
func (c *Config) BuildStore() (storage.Store, func() error, error) {
	noop := func() error { return nil }
	switch {
	case c.Storage.Dir != "":
		return storage.NewFileStore(c.Storage.Dir), noop, nil
	case c.Storage.SQLite != "":
		store, err := storage.NewSQLiteStore(c.Storage.SQLite)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, noop, nil
	}
}

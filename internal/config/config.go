package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"catalog_enricher/internal/ai"
	"catalog_enricher/internal/product"
	"catalog_enricher/internal/retry"
	"catalog_enricher/internal/vendor"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// DefaultScraperBaseURL is the vendor search endpoint used when none is configured
const DefaultScraperBaseURL = "https://egyptianlinens.com/search?view=ajax&q={sku}&options[prefix]=last&type=product"

// AIConfig controls the optional AI collaborator
type AIConfig struct {
	Enabled     bool
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
}

// NotificationConfig controls the ntfy run summary
type NotificationConfig struct {
	Enabled  bool
	BaseURL  string
	Topic    string
	Priority string
}

// ReferenceConfig points at an optional Google Sheets copy of the reference data
type ReferenceConfig struct {
	SpreadsheetID   string
	SheetRange      string
	CredentialsFile string
}

// Remote reports whether the reference should be read from Google Sheets
func (r ReferenceConfig) Remote() bool {
	return r.SpreadsheetID != ""
}

// Config is the complete option set, built once at startup
type Config struct {
	ChunkSize          int
	ScraperBaseURL     string
	MaxRetries         int
	RateLimitDelay     time.Duration
	MaxDelay           time.Duration
	Timeout            time.Duration
	ScraperThreads     int
	RequestsPerSecond  float64
	CustomHeaders      map[string]string
	InputFilePath      string
	OutputDirectory    string
	ProcessedDirectory string
	Selectors          product.Selectors
	AI                 AIConfig
	Notifications      NotificationConfig
	Reference          ReferenceConfig
}

// Default returns the configuration used when nothing overrides it
func Default() Config {
	return Config{
		ChunkSize:          10,
		ScraperBaseURL:     DefaultScraperBaseURL,
		MaxRetries:         3,
		RateLimitDelay:     time.Second,
		MaxDelay:           30 * time.Second,
		Timeout:            10 * time.Second,
		ScraperThreads:     5,
		CustomHeaders:      map[string]string{"User-Agent": vendor.DefaultUserAgent},
		InputFilePath:      "assets/ref/reference_data.xlsx",
		OutputDirectory:    "assets/split_chunks",
		ProcessedDirectory: "assets/processed_chunks",
		Selectors:          product.DefaultSelectors(),
		AI: AIConfig{
			BaseURL:     ai.DefaultBaseURL,
			Model:       ai.DefaultModel,
			MaxTokens:   100,
			Temperature: 0.7,
		},
		Notifications: NotificationConfig{
			BaseURL: "https://ntfy.sh",
			Topic:   "catalog-enricher",
		},
		Reference: ReferenceConfig{
			SheetRange:      "Sheet1!A1:Z10000",
			CredentialsFile: "credentials.json",
		},
	}
}

// fileConfig mirrors the YAML layout. Unset keys keep the lower layer's value.
type fileConfig struct {
	ChunkSize          *int              `yaml:"chunk_size"`
	ScraperBaseURL     string            `yaml:"scraper_base_url"`
	MaxRetries         *int              `yaml:"max_retries"`
	RateLimitDelay     string            `yaml:"rate_limit_delay"`
	MaxDelay           string            `yaml:"max_delay"`
	Timeout            string            `yaml:"timeout"`
	ScraperThreads     *int              `yaml:"scraper_threads"`
	RequestsPerSecond  *float64          `yaml:"requests_per_second"`
	CustomHeaders      map[string]string `yaml:"custom_headers"`
	InputFilePath      string            `yaml:"input_file_path"`
	OutputDirectory    string            `yaml:"output_directory"`
	ProcessedDirectory string            `yaml:"processed_directory"`
	Selectors          product.Selectors `yaml:"selectors"`
	AI                 struct {
		Enabled     *bool    `yaml:"enabled"`
		BaseURL     string   `yaml:"base_url"`
		Model       string   `yaml:"model"`
		MaxTokens   *int     `yaml:"max_tokens"`
		Temperature *float64 `yaml:"temperature"`
	} `yaml:"ai"`
	Notifications struct {
		Enabled  *bool  `yaml:"enabled"`
		BaseURL  string `yaml:"url"`
		Topic    string `yaml:"topic"`
		Priority string `yaml:"priority"`
	} `yaml:"ntfy"`
	Reference struct {
		SpreadsheetID   string `yaml:"spreadsheet_id"`
		SheetRange      string `yaml:"sheet_range"`
		CredentialsFile string `yaml:"credentials_file"`
	} `yaml:"reference"`
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE, then environment variables. The result is validated.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
		log.Debug().Str("path", path).Msg("Loaded configuration file")
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}

	if cfg.MaxDelay < cfg.RateLimitDelay {
		log.Debug().
			Dur("max_delay", cfg.MaxDelay).
			Dur("rate_limit_delay", cfg.RateLimitDelay).
			Msg("Raising max_delay to rate_limit_delay")
		cfg.MaxDelay = cfg.RateLimitDelay
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	setInt(&c.ChunkSize, fc.ChunkSize)
	setString(&c.ScraperBaseURL, fc.ScraperBaseURL)
	setInt(&c.MaxRetries, fc.MaxRetries)
	setInt(&c.ScraperThreads, fc.ScraperThreads)
	if fc.RequestsPerSecond != nil {
		c.RequestsPerSecond = *fc.RequestsPerSecond
	}
	setString(&c.InputFilePath, fc.InputFilePath)
	setString(&c.OutputDirectory, fc.OutputDirectory)
	setString(&c.ProcessedDirectory, fc.ProcessedDirectory)

	if err := errors.Join(
		setDuration(&c.RateLimitDelay, "rate_limit_delay", fc.RateLimitDelay),
		setDuration(&c.MaxDelay, "max_delay", fc.MaxDelay),
		setDuration(&c.Timeout, "timeout", fc.Timeout),
	); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if fc.CustomHeaders != nil {
		c.CustomHeaders = fc.CustomHeaders
	}
	c.Selectors = mergeSelectors(c.Selectors, fc.Selectors)

	if fc.AI.Enabled != nil {
		c.AI.Enabled = *fc.AI.Enabled
	}
	setString(&c.AI.BaseURL, fc.AI.BaseURL)
	setString(&c.AI.Model, fc.AI.Model)
	setInt(&c.AI.MaxTokens, fc.AI.MaxTokens)
	if fc.AI.Temperature != nil {
		c.AI.Temperature = *fc.AI.Temperature
	}

	if fc.Notifications.Enabled != nil {
		c.Notifications.Enabled = *fc.Notifications.Enabled
	}
	setString(&c.Notifications.BaseURL, fc.Notifications.BaseURL)
	setString(&c.Notifications.Topic, fc.Notifications.Topic)
	setString(&c.Notifications.Priority, fc.Notifications.Priority)

	setString(&c.Reference.SpreadsheetID, fc.Reference.SpreadsheetID)
	setString(&c.Reference.SheetRange, fc.Reference.SheetRange)
	setString(&c.Reference.CredentialsFile, fc.Reference.CredentialsFile)
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	var errs []error
	intVar := func(dst *int, key string) {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: invalid integer %q", key, v))
				return
			}
			*dst = n
		}
	}
	durationVar := func(dst *time.Duration, key string) {
		if err := setDuration(dst, key, getenv(key)); err != nil {
			errs = append(errs, err)
		}
	}
	floatVar := func(dst *float64, key string) {
		if v := getenv(key); v != "" {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: invalid number %q", key, v))
				return
			}
			*dst = f
		}
	}
	boolVar := func(dst *bool, key string) {
		if v := getenv(key); v != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: invalid boolean %q", key, v))
				return
			}
			*dst = b
		}
	}
	stringVar := func(dst *string, key string) {
		setString(dst, getenv(key))
	}

	intVar(&c.ChunkSize, "CHUNK_SIZE")
	stringVar(&c.ScraperBaseURL, "SCRAPER_BASE_URL")
	intVar(&c.MaxRetries, "MAX_RETRIES")
	durationVar(&c.RateLimitDelay, "RATE_LIMIT_DELAY")
	durationVar(&c.MaxDelay, "MAX_DELAY")
	durationVar(&c.Timeout, "TIMEOUT")
	intVar(&c.ScraperThreads, "SCRAPER_THREADS")
	floatVar(&c.RequestsPerSecond, "REQUESTS_PER_SECOND")
	stringVar(&c.InputFilePath, "INPUT_FILE_PATH")
	stringVar(&c.OutputDirectory, "OUTPUT_DIRECTORY")
	stringVar(&c.ProcessedDirectory, "PROCESSED_DIRECTORY")

	if v := getenv("CUSTOM_HEADERS"); v != "" {
		headers, err := ParseHeaders(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("CUSTOM_HEADERS: %w", err))
		} else {
			c.CustomHeaders = headers
		}
	}

	stringVar(&c.Selectors.Title, "SELECTOR_TITLE")
	stringVar(&c.Selectors.SKU, "SELECTOR_SKU")
	stringVar(&c.Selectors.Colors, "SELECTOR_COLORS")
	stringVar(&c.Selectors.Sizes, "SELECTOR_SIZES")
	stringVar(&c.Selectors.Images, "SELECTOR_IMAGES")

	boolVar(&c.AI.Enabled, "ENABLE_AI_HANDLER")
	stringVar(&c.AI.BaseURL, "OLLAMA_URL")
	stringVar(&c.AI.Model, "AI_HANDLER_MODEL")
	intVar(&c.AI.MaxTokens, "AI_HANDLER_MAX_TOKENS")
	floatVar(&c.AI.Temperature, "AI_HANDLER_TEMPERATURE")

	boolVar(&c.Notifications.Enabled, "NTFY_ENABLED")
	stringVar(&c.Notifications.BaseURL, "NTFY_URL")
	stringVar(&c.Notifications.Topic, "NTFY_TOPIC")
	stringVar(&c.Notifications.Priority, "NTFY_PRIORITY")

	stringVar(&c.Reference.SpreadsheetID, "REFERENCE_SPREADSHEET_ID")
	stringVar(&c.Reference.SheetRange, "REFERENCE_SHEET_RANGE")
	stringVar(&c.Reference.CredentialsFile, "GOOGLE_CREDENTIALS_FILE")

	return errors.Join(errs...)
}

// Validate reports every invalid option at once
func (c Config) Validate() error {
	var errs []error
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize))
	}
	if c.MaxRetries <= 0 {
		errs = append(errs, fmt.Errorf("max_retries must be positive, got %d", c.MaxRetries))
	}
	if c.ScraperThreads <= 0 {
		errs = append(errs, fmt.Errorf("scraper_threads must be positive, got %d", c.ScraperThreads))
	}
	if c.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("requests_per_second must not be negative, got %g", c.RequestsPerSecond))
	}
	if c.RateLimitDelay < 0 {
		errs = append(errs, fmt.Errorf("rate_limit_delay must not be negative, got %s", c.RateLimitDelay))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.MaxDelay < 0 {
		errs = append(errs, fmt.Errorf("max_delay must not be negative, got %s", c.MaxDelay))
	}
	if strings.Count(c.ScraperBaseURL, vendor.Placeholder) != 1 {
		errs = append(errs, fmt.Errorf("scraper_base_url must contain %s exactly once", vendor.Placeholder))
	}
	if c.InputFilePath == "" && !c.Reference.Remote() {
		errs = append(errs, errors.New("input_file_path is required"))
	}
	if c.OutputDirectory == "" {
		errs = append(errs, errors.New("output_directory is required"))
	}
	if c.ProcessedDirectory == "" {
		errs = append(errs, errors.New("processed_directory is required"))
	}
	if c.Notifications.Enabled && c.Notifications.Topic == "" {
		errs = append(errs, errors.New("ntfy topic is required when notifications are enabled"))
	}
	return errors.Join(errs...)
}

// FetchRetry is the retry policy shared by every vendor request
func (c Config) FetchRetry() retry.Config {
	return retry.Config{
		MaxAttempts: c.MaxRetries,
		BaseDelay:   c.RateLimitDelay,
		MaxDelay:    max(c.MaxDelay, c.RateLimitDelay),
		Timeout:     c.Timeout,
	}
}

// Vendor returns the fetcher settings
func (c Config) Vendor() vendor.Config {
	return vendor.Config{
		URLTemplate:       c.ScraperBaseURL,
		Headers:           c.CustomHeaders,
		Retry:             c.FetchRetry(),
		RequestsPerSecond: c.RequestsPerSecond,
	}
}

// Ollama returns the AI collaborator settings
func (c Config) Ollama() ai.OllamaConfig {
	return ai.OllamaConfig{
		BaseURL:     c.AI.BaseURL,
		Model:       c.AI.Model,
		MaxTokens:   c.AI.MaxTokens,
		Temperature: c.AI.Temperature,
	}
}

// ParseHeaders reads "Name: value; Name2: value" into a header map
func ParseHeaders(s string) (map[string]string, error) {
	headers := make(map[string]string)
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("malformed header %q", part)
		}
		headers[name] = strings.TrimSpace(value)
	}
	return headers, nil
}

// parseDuration accepts Go durations ("1500ms") or plain seconds ("1.5")
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

func setDuration(dst *time.Duration, key, value string) error {
	if value == "" {
		return nil
	}
	d, err := parseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q", key, value)
	}
	*dst = d
	return nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func mergeSelectors(base, override product.Selectors) product.Selectors {
	setString(&base.Title, override.Title)
	setString(&base.SKU, override.SKU)
	setString(&base.Colors, override.Colors)
	setString(&base.Sizes, override.Sizes)
	setString(&base.Images, override.Images)
	return base
}

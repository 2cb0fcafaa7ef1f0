package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvContact, when set, overrides Contact.Email from the config file.
const EnvContact = "CASTLES_CONTACT"

// Config holds the pipeline configuration.
type Config struct {
	Contact  ContactConfig  `yaml:"contact"`
	Request  RequestConfig  `yaml:"request"`
	Cache    CacheConfig    `yaml:"cache"`
	Log      LogConfig      `yaml:"log"`
	Wikidata WikidataConfig `yaml:"wikidata"`
	Overpass OverpassConfig `yaml:"overpass"`
	Commons  CommonsConfig  `yaml:"commons"`
}

// ContactConfig identifies the project towards the public APIs.
type ContactConfig struct {
	Project string `yaml:"project"`
	Email   string `yaml:"email"`
}

// RequestConfig holds HTTP request settings.
type RequestConfig struct {
	Retries   int      `yaml:"retries"`
	BaseDelay Duration `yaml:"base_delay"`
}

// CacheConfig holds the optional response cache settings.
type CacheConfig struct {
	Enabled bool     `yaml:"enabled"`
	Path    string   `yaml:"path"`
	TTL     Duration `yaml:"ttl"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Run      LogSettings `yaml:"run"`
	Requests LogSettings `yaml:"requests"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// WikidataConfig holds the SPARQL paging settings.
type WikidataConfig struct {
	Endpoint  string   `yaml:"endpoint"`
	PageSize  int      `yaml:"page_size"`
	MaxRows   int      `yaml:"max_rows"`
	PageDelay Duration `yaml:"page_delay"`
	Timeout   Duration `yaml:"timeout"`
	Languages string   `yaml:"languages"`
	Bounds    Bounds   `yaml:"bounds"`
}

// Bounds is a lat/lon bounding box.
type Bounds struct {
	MinLat float64 `yaml:"min_lat"`
	MaxLat float64 `yaml:"max_lat"`
	MinLon float64 `yaml:"min_lon"`
	MaxLon float64 `yaml:"max_lon"`
}

// OverpassConfig holds the Overpass API settings.
type OverpassConfig struct {
	Endpoint     string   `yaml:"endpoint"`
	Area         string   `yaml:"area"`
	QueryTimeout Duration `yaml:"query_timeout"` // [timeout:..] inside the QL
	Timeout      Duration `yaml:"timeout"`       // HTTP timeout
}

// CommonsConfig holds the Wikimedia Commons API settings.
type CommonsConfig struct {
	Endpoint   string   `yaml:"endpoint"`
	ThumbWidth int      `yaml:"thumb_width"`
	Timeout    Duration `yaml:"timeout"`
}

// UserAgent renders the User-Agent header sent to every API.
func (c ContactConfig) UserAgent(version string) string {
	return fmt.Sprintf("%s/%s (contact: %s)", c.Project, version, c.Email)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Contact: ContactConfig{
			Project: "europe-castles",
			Email:   "data@europe-castles.example",
		},
		Request: RequestConfig{
			Retries:   0,
			BaseDelay: Duration(500 * time.Millisecond),
		},
		Cache: CacheConfig{
			Enabled: false,
			Path:    "./data/cache.db",
			TTL:     Duration(Week),
		},
		Log: LogConfig{
			Run: LogSettings{
				Path:  "./logs/castles.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
		},
		Wikidata: WikidataConfig{
			Endpoint:  "https://query.wikidata.org/sparql",
			PageSize:  5000,
			MaxRows:   25000,
			PageDelay: Duration(1 * time.Second),
			Timeout:   Duration(60 * time.Second),
			Languages: "en,de,fr,es,it",
			Bounds: Bounds{
				MinLat: 35,
				MaxLat: 70,
				MinLon: -10,
				MaxLon: 40,
			},
		},
		Overpass: OverpassConfig{
			Endpoint:     "https://overpass-api.de/api/interpreter",
			Area:         "Europe",
			QueryTimeout: Duration(180 * time.Second),
			Timeout:      Duration(240 * time.Second),
		},
		Commons: CommonsConfig{
			Endpoint:   "https://commons.wikimedia.org/w/api.php",
			ThumbWidth: 320,
			Timeout:    Duration(30 * time.Second),
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// Existing files are merged over the defaults but never written back.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	if v := os.Getenv(EnvContact); v != "" {
		cfg.Contact.Email = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+$`)

// Validate checks the values the fetchers cannot work without.
func (c *Config) Validate() error {
	if !emailPattern.MatchString(c.Contact.Email) {
		return fmt.Errorf("invalid contact email '%s': the public APIs require a reachable contact", c.Contact.Email)
	}
	if c.Wikidata.PageSize <= 0 {
		return fmt.Errorf("wikidata.page_size must be positive, got %d", c.Wikidata.PageSize)
	}
	if c.Wikidata.MaxRows < c.Wikidata.PageSize {
		return fmt.Errorf("wikidata.max_rows (%d) must be at least page_size (%d)", c.Wikidata.MaxRows, c.Wikidata.PageSize)
	}
	if c.Request.Retries < 0 {
		return fmt.Errorf("request.retries must not be negative, got %d", c.Request.Retries)
	}
	return nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Europe Castles pipeline configuration
# ------------------------------------
# Durations: ns, us, ms, s, m, h, d (day), w (week)
# ` + EnvContact + ` (or .env) overrides contact.email when set

`)
	data = append(header, data...)

	reRetries := regexp.MustCompile(`(?m)^(\s+)retries:`)
	data = reRetries.ReplaceAll(data, []byte("${1}# 0 = a failed request aborts the run\n${1}retries:"))

	reCache := regexp.MustCompile(`(?m)^(\s+)enabled:`)
	data = reCache.ReplaceAll(data, []byte("${1}# Stores raw API responses for development re-runs\n${1}enabled:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return Save(path, DefaultConfig())
}

package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/agentmanifest/registry/internal/token"
	"github.com/agentmanifest/registry/internal/validator"
)

// Config holds all application configuration
type Config struct {
	// Catalog repository settings. Empty CatalogRepoURL means validate-only
	// mode: no catalog clone, no listings sync, no webhook.
	CatalogRepoURL string
	CatalogBranch  string

	// GitHub App authentication (catalog mode only)
	GitHubAppID          int64
	GitHubAppPrivateKey  []byte
	GitHubInstallationID int64

	// Webhook settings (catalog mode only)
	WebhookSecret string

	// Sync settings
	PollInterval time.Duration
	CloneTimeout time.Duration

	// Storage settings
	DataPath  string
	CacheSize int

	// Validation settings
	ProbeTimeout        time.Duration
	BoilerplatePatterns []*regexp.Regexp

	// Credential issuance
	TokenSecret   []byte
	TokenValidity time.Duration

	// Server settings
	Port int

	// Observability
	OTLPEndpoint string
}

// CatalogEnabled reports whether a catalog repository is configured.
func (c *Config) CatalogEnabled() bool {
	return c.CatalogRepoURL != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		// Defaults
		CatalogBranch: "main",
		PollInterval:  5 * time.Minute,
		CloneTimeout:  2 * time.Minute,
		DataPath:      "/data",
		CacheSize:     1000,
		ProbeTimeout:  validator.DefaultProbeTimeout,
		TokenValidity: token.DefaultValidity,
		Port:          8080,
	}

	// Required: token signing secret
	secret := os.Getenv("TOKEN_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("TOKEN_SECRET is required")
	}
	cfg.TokenSecret = []byte(secret)

	// Optional: token validity
	if v := os.Getenv("TOKEN_VALIDITY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid TOKEN_VALIDITY: %w", err)
		}
		cfg.TokenValidity = d
	}

	// Optional: catalog repo URL; absent means validate-only mode
	cfg.CatalogRepoURL = os.Getenv("CATALOG_REPO_URL")

	// Optional: branch
	if v := os.Getenv("CATALOG_BRANCH"); v != "" {
		cfg.CatalogBranch = v
	}

	if cfg.CatalogEnabled() {
		// GitHub App credentials and webhook secret are required once a
		// catalog repository is configured.
		appIDStr := os.Getenv("GITHUB_APP_ID")
		if appIDStr == "" {
			return nil, fmt.Errorf("GITHUB_APP_ID is required when CATALOG_REPO_URL is set")
		}
		appID, err := strconv.ParseInt(appIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid GITHUB_APP_ID: %w", err)
		}
		cfg.GitHubAppID = appID

		// Private key can be provided as file path or direct value
		privateKeyPath := os.Getenv("GITHUB_APP_PRIVATE_KEY_PATH")
		privateKeyValue := os.Getenv("GITHUB_APP_PRIVATE_KEY")
		if privateKeyPath != "" {
			key, err := os.ReadFile(privateKeyPath)
			if err != nil {
				return nil, fmt.Errorf("failed to read private key file: %w", err)
			}
			cfg.GitHubAppPrivateKey = key
		} else if privateKeyValue != "" {
			cfg.GitHubAppPrivateKey = []byte(privateKeyValue)
		} else {
			return nil, fmt.Errorf("GITHUB_APP_PRIVATE_KEY or GITHUB_APP_PRIVATE_KEY_PATH is required when CATALOG_REPO_URL is set")
		}

		installIDStr := os.Getenv("GITHUB_INSTALLATION_ID")
		if installIDStr == "" {
			return nil, fmt.Errorf("GITHUB_INSTALLATION_ID is required when CATALOG_REPO_URL is set")
		}
		installID, err := strconv.ParseInt(installIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid GITHUB_INSTALLATION_ID: %w", err)
		}
		cfg.GitHubInstallationID = installID

		cfg.WebhookSecret = os.Getenv("WEBHOOK_SECRET")
		if cfg.WebhookSecret == "" {
			return nil, fmt.Errorf("WEBHOOK_SECRET is required when CATALOG_REPO_URL is set")
		}
	}

	// Optional: poll interval
	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid POLL_INTERVAL: %w", err)
		}
		cfg.PollInterval = d
	}

	// Optional: clone timeout
	if v := os.Getenv("CLONE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid CLONE_TIMEOUT: %w", err)
		}
		cfg.CloneTimeout = d
	}

	// Optional: probe timeout
	if v := os.Getenv("PROBE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PROBE_TIMEOUT: %w", err)
		}
		cfg.ProbeTimeout = d
	}

	// Optional: custom boilerplate patterns file
	if path := os.Getenv("BOILERPLATE_PATTERNS_PATH"); path != "" {
		patterns, err := loadBoilerplatePatterns(path)
		if err != nil {
			return nil, fmt.Errorf("invalid BOILERPLATE_PATTERNS_PATH: %w", err)
		}
		cfg.BoilerplatePatterns = patterns
	}

	// Optional: data path
	if v := os.Getenv("DATA_PATH"); v != "" {
		cfg.DataPath = v
	}

	// Optional: cache size
	if v := os.Getenv("CACHE_SIZE"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid CACHE_SIZE: %w", err)
		}
		cfg.CacheSize = size
	}

	// Optional: port
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		cfg.Port = port
	}

	// Optional: OTLP endpoint for tracing
	cfg.OTLPEndpoint = os.Getenv("OTLP_ENDPOINT")

	return cfg, nil
}

// loadBoilerplatePatterns reads a YAML file containing a list of regular
// expression strings used to flag low-quality descriptive text.
func loadBoilerplatePatterns(path string) ([]*regexp.Regexp, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sources []string
	if err := yaml.Unmarshal(data, &sources); err != nil {
		return nil, fmt.Errorf("failed to parse patterns file: %w", err)
	}

	patterns := make([]*regexp.Regexp, 0, len(sources))
	for _, src := range sources {
		re, err := regexp.Compile(src)
		if err != nil {
			return nil, fmt.Errorf("failed to compile pattern %q: %w", src, err)
		}
		patterns = append(patterns, re)
	}
	return patterns, nil
}

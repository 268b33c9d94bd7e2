package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the steward service catalog plus global settings.
type Config struct {
	// Home overrides the state root directory (default ~/.steward).
	Home string `yaml:"home,omitempty" mapstructure:"home"`
	// LogLevel is the minimum level for stderr logs.
	LogLevel string `yaml:"log_level,omitempty" mapstructure:"log_level"`
	// Profile is the shell profile receiving PATH export lines (default ~/.zprofile).
	Profile string `yaml:"profile,omitempty" mapstructure:"profile"`
	// ReleaseAPI is the base URL against which "owner/name" release
	// repositories are resolved.
	ReleaseAPI string `yaml:"release_api,omitempty" mapstructure:"release_api"`
	// Services is the catalog of managed services.
	Services []Service `yaml:"services" mapstructure:"services"`
}

// Service is one catalog entry describing a managed launchd service.
type Service struct {
	// Name is the catalog key; it also names the install directory bin/<name>.
	Name string `yaml:"name" mapstructure:"name"`
	// Label is the launchd label (defaults to com.homelab.<name>).
	Label string `yaml:"label,omitempty" mapstructure:"label"`
	// Process is the executable name to look for in the process table
	// (defaults to the service name).
	Process string `yaml:"process,omitempty" mapstructure:"process"`
	// Manifest is the source-controlled launchd plist.
	// Relative paths resolve under <home>/launchd.
	Manifest string `yaml:"manifest,omitempty" mapstructure:"manifest"`
	// StdoutLog and StderrLog document where the manifest points the
	// service's output; steward only reports them.
	StdoutLog string `yaml:"stdout_log,omitempty" mapstructure:"stdout_log"`
	StderrLog string `yaml:"stderr_log,omitempty" mapstructure:"stderr_log"`
	// Release identifies the upstream release listing. Services without
	// one cannot be installed, only started and stopped.
	Release *Release `yaml:"release,omitempty" mapstructure:"release"`
}

// Release locates upstream artifacts for a service.
type Release struct {
	// Repo is an "owner/name" slug resolved against the release API,
	// or a full listing URL.
	Repo string `yaml:"repo" mapstructure:"repo"`
	// Filter is the case-sensitive substring selecting the platform artifact.
	Filter string `yaml:"filter" mapstructure:"filter"`
	// Exclude skips artifacts whose name contains this substring.
	Exclude string `yaml:"exclude,omitempty" mapstructure:"exclude"`
}

const (
	// DefaultConfigFilename is the catalog filename under the state root.
	DefaultConfigFilename = "steward.yaml"

	// DefaultHomeDirname is the state root directory under $HOME.
	DefaultHomeDirname = ".steward"

	// DefaultProfileFilename is the shell profile receiving PATH export lines.
	DefaultProfileFilename = ".zprofile"

	// DefaultReleaseAPI resolves "owner/name" release repositories.
	DefaultReleaseAPI = "https://api.github.com/repos"

	// DefaultLabelPrefix prefixes launchd labels generated from service names.
	DefaultLabelPrefix = "com.homelab."

	// DefaultLogLevel is used when the catalog does not set one.
	DefaultLogLevel = "info"

	// DefaultFilePermissions is the default file permission for catalog files.
	DefaultFilePermissions = 0o600

	// EnvPrefix namespaces environment overrides (STEWARD_HOME, STEWARD_CONFIG, ...).
	EnvPrefix = "STEWARD"
)

var (
	// errConfigIsNotSet is returned when a nil catalog is provided.
	errConfigIsNotSet = errors.New("catalog is not set")
	// errServiceNameRequired is returned when a catalog entry has no name.
	errServiceNameRequired = errors.New("service name must be provided")
	// errDuplicateServiceName is returned when two entries share a name.
	errDuplicateServiceName = errors.New("duplicate service name")
	// errDuplicateServiceLabel is returned when two entries share a launchd label.
	errDuplicateServiceLabel = errors.New("duplicate service label")
	// errReleaseRepoRequired is returned when a release source has no repository.
	errReleaseRepoRequired = errors.New("release repository must be provided")
	// errReleaseFilterRequired is returned when a release source has no platform filter.
	errReleaseFilterRequired = errors.New("release platform filter must be provided")

	// ErrUnknownService is returned when a requested service is not in the catalog.
	ErrUnknownService = errors.New("unknown service")
)

// Default returns the built-in catalog used when no file exists on disk:
// the stock homelab services. Entries without a release source are managed
// (started/stopped) but installed by other means.
func Default() *Config {
	return &Config{
		LogLevel:   DefaultLogLevel,
		ReleaseAPI: DefaultReleaseAPI,
		Services: []Service{
			{
				Name:    "llama-server",
				Label:   "com.homelab.llama-server",
				Process: "llama-server",
				Release: &Release{
					Repo:    "ggml-org/llama.cpp",
					Filter:  "macos-arm64",
					Exclude: ".sig",
				},
			},
			{
				Name:    "caddy",
				Label:   "com.homelab.caddy",
				Process: "caddy",
				Release: &Release{
					Repo:    "caddyserver/caddy",
					Filter:  "mac_arm64",
					Exclude: ".sig",
				},
			},
			{
				// Local FastAPI STT/TTS service, deployed by hand.
				Name:    "audio-api",
				Label:   "com.homelab.audio-api",
				Process: "uvicorn",
			},
		},
	}
}

// Load reads the catalog from the provided path (or $STEWARD_CONFIG, or the
// default location under the state root) and applies STEWARD_* environment
// overrides for scalar settings. A missing file yields the built-in catalog.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}

	cfg := Default()

	if path == "" {
		path = filepath.Join(cfg.HomeDir(), DefaultConfigFilename)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Clean(path))
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	// Registering defaults makes the scalar keys visible to Unmarshal even
	// when the file omits them, which is what lets AutomaticEnv override them.
	v.SetDefault("home", cfg.Home)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("profile", cfg.Profile)
	v.SetDefault("release_api", cfg.ReleaseAPI)

	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
	} else {
		// The file's catalog replaces the built-in services, even when it
		// declares none. Only a missing file keeps the defaults.
		cfg.Services = nil
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal catalog: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the catalog to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	if path == "" {
		path = filepath.Join(cfg.HomeDir(), DefaultConfigFilename)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filepath.Clean(path)), 0o755); err != nil {
		return fmt.Errorf("create catalog directory: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}

	return nil
}

// Validate checks catalog entries for required fields and duplicates,
// filling defaults for omitted ones.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.ReleaseAPI == "" {
		cfg.ReleaseAPI = DefaultReleaseAPI
	}

	if _, err := url.ParseRequestURI(cfg.ReleaseAPI); err != nil {
		return fmt.Errorf("invalid release API URL: %w", err)
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	names := make(map[string]struct{}, len(cfg.Services))
	labels := make(map[string]struct{}, len(cfg.Services))

	for i := range cfg.Services {
		s := &cfg.Services[i]

		if s.Name == "" {
			return errServiceNameRequired
		}

		if _, ok := names[s.Name]; ok {
			return fmt.Errorf("%w: %s", errDuplicateServiceName, s.Name)
		}

		names[s.Name] = struct{}{}

		if s.Label == "" {
			s.Label = DefaultLabelPrefix + s.Name
		}

		if _, ok := labels[s.Label]; ok {
			return fmt.Errorf("%w: %s", errDuplicateServiceLabel, s.Label)
		}

		labels[s.Label] = struct{}{}

		if s.Process == "" {
			s.Process = s.Name
		}

		if s.Release != nil {
			if s.Release.Repo == "" {
				return fmt.Errorf("service %s: %w", s.Name, errReleaseRepoRequired)
			}

			if s.Release.Filter == "" {
				return fmt.Errorf("service %s: %w", s.Name, errReleaseFilterRequired)
			}
		}
	}

	return nil
}

// Lookup returns the catalog entry with the given name.
func (c *Config) Lookup(name string) (*Service, error) {
	for i := range c.Services {
		if c.Services[i].Name == name {
			return &c.Services[i], nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownService, name)
}

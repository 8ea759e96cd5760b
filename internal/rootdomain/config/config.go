package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "ROOTDOMAIN_"

// configFileEnv names an optional YAML, JSON or TOML file. It is read after
// the defaults and before the other environment variables.
const configFileEnv = envPrefix + "CONFIG_FILE"

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// Listen is the host:port the HTTP API binds to.
	Listen string `koanf:"listen" validate:"required,host_port"`

	// RulesetPath is a local public_suffix_list.dat, tried before any URL.
	RulesetPath string `koanf:"ruleset_path" validate:"required_without=RulesetURLs"`

	// RulesetURLs are mirrors of the suffix list, tried in order.
	RulesetURLs []string `koanf:"ruleset_urls" validate:"omitempty,dive,http_url"`

	// RulesetPrivate includes the PRIVATE DOMAINS section when true.
	RulesetPrivate bool `koanf:"ruleset_private"`

	// RulesetTimeout bounds each download attempt.
	RulesetTimeout time.Duration `koanf:"ruleset_timeout" validate:"gt=0"`

	// SnapshotDB is a bbolt file holding the last good ruleset. Empty disables it.
	SnapshotDB string `koanf:"snapshot_db"`

	// ShutdownTimeout bounds the graceful drain of in-flight requests.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// DEFAULT_APP_CONFIG defines the default application configuration. The
// ruleset is read from the distribution copy first and from publicsuffix.org
// when that is missing.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:             "prod",
	LogLevel:        "info",
	Listen:          "127.0.0.1:3000",
	RulesetPath:     "/usr/share/publicsuffix/public_suffix_list.dat",
	RulesetURLs:     []string{"https://publicsuffix.org/list/public_suffix_list.dat"},
	RulesetPrivate:  true,
	RulesetTimeout:  30 * time.Second,
	SnapshotDB:      "",
	ShutdownTimeout: 10 * time.Second,
}

// validHostPort reports whether the field is "host:port" with a numeric port.
// The host may be empty to bind every interface, and port 0 asks the kernel
// for a free one.
func validHostPort(fl validator.FieldLevel) bool {
	host, port, err := net.SplitHostPort(fl.Field().String())
	if err != nil || port == "" {
		return false
	}
	if strings.ContainsAny(host, " \t/") {
		return false
	}
	_, err = strconv.ParseUint(port, 10, 16)
	return err == nil
}

// envLoader loads environment variables with the prefix "ROOTDOMAIN_".
// Keys are lowercased with the prefix removed; values holding spaces or
// commas become lists. It can be mocked in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
			value = strings.TrimSpace(value)

			if value == "" {
				return key, value
			}

			if strings.Contains(value, " ") || strings.Contains(value, ",") {
				parts := strings.FieldsFunc(value, func(r rune) bool {
					return r == ' ' || r == ','
				})
				return key, parts
			}

			return key, value
		},
	}), nil)
}

// defaultLoader loads DEFAULT_APP_CONFIG through the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// fileLoader loads path with the parser matching its extension.
var fileLoader = func(k *koanf.Koanf, path string) error {
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	case ".toml":
		parser = toml.Parser()
	default:
		return fmt.Errorf("unsupported config file type %q", filepath.Ext(path))
	}
	return k.Load(file.Provider(path), parser)
}

// registerValidation registers the "host_port" tag with the validator.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("host_port", validHostPort)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values, then the optional config file, then the
// environment, and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	err := defaultLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	if path := strings.TrimSpace(os.Getenv(configFileEnv)); path != "" {
		if err := fileLoader(k, path); err != nil {
			return nil, fmt.Errorf("error loading config file %s: %w", path, err)
		}
	}

	err = envLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	err = registerValidation(validate)
	if err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}

	err = validate.Struct(&cfg)
	if err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}

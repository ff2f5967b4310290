package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"nymctl/internal/adapters/network"
	"nymctl/internal/adapters/release"
	"nymctl/internal/adapters/system"
	"nymctl/internal/adapters/wallet"
	"nymctl/internal/service"
)

const (
	// FileName is the config file looked up in the config directory (nymctl.toml, .yaml or .json)
	FileName        = "nymctl"
	EnvPrefix       = "NYMCTL"
	EnvFile         = ".env"
	DefaultLogLevel = "warn"
)

// DefaultPorts are opened on every node, the WireGuard port is added for exit gateways
var (
	DefaultPorts    = []string{"8080", "1789", "1790", "9000"}
	WireGuardPorts  = []string{"51822/udp"}
	DefaultPackages = []string{"curl", "wget", "ufw"}
)

// Config holds every tunable of nymctl
type Config struct {
	ConfigDir    string        `mapstructure:"config_dir"`
	BinaryPath   string        `mapstructure:"binary_path"`
	ServiceName  string        `mapstructure:"service_name"`
	ReleaseAPI   string        `mapstructure:"release_api"`
	BalanceAPI   string        `mapstructure:"balance_api"`
	MinBalance   float64       `mapstructure:"min_balance"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	LogLevel     string        `mapstructure:"log_level"`
	LogFile      string        `mapstructure:"log_file"`
	Ports        []string      `mapstructure:"ports"`
	IPServices   []string      `mapstructure:"ip_services"`
}

// DefaultConfigDir is ~/.config/nymctl, or the working directory when there is no home
func DefaultConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "nymctl")
	}
	return "."
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("config_dir", DefaultConfigDir())
	v.SetDefault("binary_path", system.DefaultBinaryPath)
	v.SetDefault("service_name", system.DefaultServiceName)
	v.SetDefault("release_api", release.DefaultReleaseAPI)
	v.SetDefault("balance_api", wallet.DefaultBalanceAPI)
	v.SetDefault("min_balance", service.DefaultMinBalance)
	v.SetDefault("poll_interval", service.DefaultPollInterval)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("log_file", "")
	v.SetDefault("ports", DefaultPorts)
	v.SetDefault("ip_services", network.DefaultIPServices)
}

// flagKeys maps the global flags to their config keys
var flagKeys = map[string]string{
	"config-dir":  "config_dir",
	"binary-path": "binary_path",
	"log-level":   "log_level",
	"log-file":    "log_file",
}

// Load resolves the configuration. Precedence from high to low: flags, NYMCTL_ environment
// (the .env file of the config directory included), the config file, defaults.
// A missing config file or env file is not an error
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	dir := v.GetString("config_dir")
	if err := loadDotEnv(filepath.Join(dir, EnvFile)); err != nil {
		return nil, err
	}

	v.SetConfigName(FileName)
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if cfg.MinBalance <= 0 {
		cfg.MinBalance = service.DefaultMinBalance
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = service.DefaultPollInterval
	}
	return cfg, nil
}

// loadDotEnv loads path into the environment when it exists. Variables already set win
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

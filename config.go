package lattice

import (
	"os"
	"slices"

	"github.com/JeremyLoy/config"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	StoreNone       = ""
	StoreFileSystem = "filesystem"
	StoreRedis      = "redis"
	StoreSQLite     = "sqlite"

	// ConfigFileEnv names a YAML file whose values are loaded before the environment.
	ConfigFileEnv = "LATTICE_CONFIG_FILE"
)

var ErrInvalidConfig = eris.New("invalid config")

// Config holds the settings a World reads at startup. Values come from, in increasing priority,
// the defaults, the YAML file named by LATTICE_CONFIG_FILE, and the environment.
type Config struct {
	LogLevel  string `config:"LATTICE_LOG_LEVEL"  yaml:"log_level"`
	PrettyLog bool   `config:"LATTICE_PRETTY_LOG" yaml:"pretty_log"`
	Namespace string `config:"LATTICE_NAMESPACE"  yaml:"namespace"`

	// Store selects the persistence backend: "", "filesystem", "redis" or "sqlite".
	Store      string `config:"LATTICE_STORE"       yaml:"store"`
	StoreDir   string `config:"LATTICE_STORE_DIR"   yaml:"store_dir"`
	SQLitePath string `config:"LATTICE_SQLITE_PATH" yaml:"sqlite_path"`

	RedisAddress  string `config:"REDIS_ADDRESS"  yaml:"redis_address"`
	RedisPassword string `config:"REDIS_PASSWORD" yaml:"redis_password"`

	StatsdAddress string `config:"STATSD_ADDRESS" yaml:"statsd_address"`
}

func DefaultConfig() Config {
	return Config{
		LogLevel:     zerolog.InfoLevel.String(),
		Namespace:    "lattice",
		Store:        StoreNone,
		RedisAddress: "localhost:6379",
	}
}

// LoadConfig layers the config file and the environment over DefaultConfig and validates the
// result.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if path := os.Getenv(ConfigFileEnv); path != "" {
		bz, err := os.ReadFile(path)
		if err != nil {
			return cfg, eris.Wrapf(err, "failed to read config file %q", path)
		}
		if err := yaml.Unmarshal(bz, &cfg); err != nil {
			return cfg, eris.Wrapf(err, "failed to parse config file %q", path)
		}
	}
	if err := config.FromEnv().To(&cfg); err != nil {
		return cfg, eris.Wrap(err, "failed to load config from environment")
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return eris.Wrapf(ErrInvalidConfig, "log level %q", c.LogLevel)
	}
	if c.Namespace == "" {
		return eris.Wrap(ErrInvalidConfig, "namespace must not be empty")
	}
	if !slices.Contains([]string{StoreNone, StoreFileSystem, StoreRedis, StoreSQLite}, c.Store) {
		return eris.Wrapf(ErrInvalidConfig, "unknown store %q", c.Store)
	}
	if c.Store == StoreFileSystem && c.StoreDir == "" {
		return eris.Wrap(ErrInvalidConfig, "filesystem store needs LATTICE_STORE_DIR")
	}
	if c.Store == StoreSQLite && c.SQLitePath == "" {
		return eris.Wrap(ErrInvalidConfig, "sqlite store needs LATTICE_SQLITE_PATH")
	}
	if c.Store == StoreRedis && c.RedisAddress == "" {
		return eris.Wrap(ErrInvalidConfig, "redis store needs REDIS_ADDRESS")
	}
	return nil
}

func (c Config) level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

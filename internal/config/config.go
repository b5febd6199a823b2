package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Data struct {
	Driver   string `yaml:"driver"`   // "memory" (default) | "postgres" | "sqlite"
	DSN      string `yaml:"dsn"`      // для SQL-драйверов
	Fixtures string `yaml:"fixtures"` // YAML с тестовыми строками для memory
	Scripts  string `yaml:"scripts"`  // каталог *.sql, применяется при старте
}

type Registry struct {
	Driver   string `yaml:"driver"` // "memory" (default) | "redis" | "miniredis"
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" | "json"
}

type Config struct {
	Port       string `yaml:"port"`
	ViewsDir   string `yaml:"viewsDir"`
	FiltersDir string `yaml:"filtersDir"`

	Data     Data     `yaml:"data"`
	Registry Registry `yaml:"registry"`

	DefaultLimit      int           `yaml:"defaultLimit"`
	LoadingMinDisplay time.Duration `yaml:"loadingMinDisplay"`
	ConfirmationTTL   time.Duration `yaml:"confirmationTTL"`

	Log     Log  `yaml:"log"`
	Metrics bool `yaml:"metrics"`
}

// DefaultPath: файл конфигурации, если не задан -config.
const DefaultPath = "vista.yaml"

func def() Config {
	return Config{
		Port:       "8080",
		ViewsDir:   "views",
		FiltersDir: "filters",

		Data:     Data{Driver: "memory"},
		Registry: Registry{Driver: "memory", Addr: "localhost:6379", Key: "vista:views"},

		DefaultLimit:      10,
		LoadingMinDisplay: 0,
		ConfirmationTTL:   5 * time.Minute,

		Log:     Log{Level: "info", Format: "console"},
		Metrics: true,
	}
}

func loadYAML(path string, c *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func getenv(lookup lookupFunc, k, fallback string) string {
	if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func getenvInt(lookup lookupFunc, k string, fallback int) int {
	if v, ok := lookup(k); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

func getenvBool(lookup lookupFunc, k string, fallback bool) bool {
	if v, ok := lookup(k); ok {
		v = strings.TrimSpace(strings.ToLower(v))
		if v == "1" || v == "true" || v == "yes" {
			return true
		}
		if v == "0" || v == "false" || v == "no" {
			return false
		}
	}
	return fallback
}

func getenvDuration(lookup lookupFunc, k string, fallback time.Duration) time.Duration {
	if v, ok := lookup(k); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return fallback
}

func applyEnv(cfg *Config, lookup lookupFunc) {
	cfg.Port = getenv(lookup, "VISTA_PORT", cfg.Port)
	cfg.ViewsDir = getenv(lookup, "VISTA_VIEWS_DIR", cfg.ViewsDir)
	cfg.FiltersDir = getenv(lookup, "VISTA_FILTERS_DIR", cfg.FiltersDir)

	cfg.Data.Driver = getenv(lookup, "VISTA_DATA_DRIVER", cfg.Data.Driver)
	cfg.Data.DSN = getenv(lookup, "VISTA_DATA_DSN", cfg.Data.DSN)
	cfg.Data.Fixtures = getenv(lookup, "VISTA_DATA_FIXTURES", cfg.Data.Fixtures)
	cfg.Data.Scripts = getenv(lookup, "VISTA_DATA_SCRIPTS", cfg.Data.Scripts)

	cfg.Registry.Driver = getenv(lookup, "VISTA_REGISTRY_DRIVER", cfg.Registry.Driver)
	cfg.Registry.Addr = getenv(lookup, "VISTA_REDIS_ADDR", cfg.Registry.Addr)
	cfg.Registry.Password = getenv(lookup, "VISTA_REDIS_PASSWORD", cfg.Registry.Password)
	cfg.Registry.DB = getenvInt(lookup, "VISTA_REDIS_DB", cfg.Registry.DB)
	cfg.Registry.Key = getenv(lookup, "VISTA_REGISTRY_KEY", cfg.Registry.Key)

	cfg.DefaultLimit = getenvInt(lookup, "VISTA_DEFAULT_LIMIT", cfg.DefaultLimit)
	cfg.LoadingMinDisplay = getenvDuration(lookup, "VISTA_LOADING_MIN_DISPLAY", cfg.LoadingMinDisplay)
	cfg.ConfirmationTTL = getenvDuration(lookup, "VISTA_CONFIRMATION_TTL", cfg.ConfirmationTTL)

	cfg.Log.Level = getenv(lookup, "VISTA_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getenv(lookup, "VISTA_LOG_FORMAT", cfg.Log.Format)
	cfg.Metrics = getenvBool(lookup, "VISTA_METRICS", cfg.Metrics)
}

// Load собирает конфиг: умолчания → YAML → VISTA_* → флаги args.
func Load(args []string) (Config, error) {
	return load(args, os.LookupEnv)
}

func load(args []string, lookup lookupFunc) (Config, error) {
	// -config ищем заранее: флаги должны перекрывать файл, а не наоборот.
	path := configArg(args, getenv(lookup, "VISTA_CONFIG", DefaultPath))

	cfg := def()
	if st, err := os.Stat(path); err == nil && !st.IsDir() {
		if err := loadYAML(path, &cfg); err != nil {
			return cfg, err
		}
	} else if path != DefaultPath {
		return cfg, fmt.Errorf("config %s: %w", path, os.ErrNotExist)
	}

	applyEnv(&cfg, lookup)

	fs := flag.NewFlagSet("vista", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.String("config", path, "Path to config YAML")
	fs.StringVar(&cfg.Port, "port", cfg.Port, "HTTP port")
	fs.StringVar(&cfg.ViewsDir, "views", cfg.ViewsDir, "Path to view descriptors directory")
	fs.StringVar(&cfg.FiltersDir, "filters", cfg.FiltersDir, "Path to filter catalog directory")
	fs.StringVar(&cfg.Data.Driver, "data-driver", cfg.Data.Driver, "Data source (memory/postgres/sqlite)")
	fs.StringVar(&cfg.Data.DSN, "dsn", cfg.Data.DSN, "Data source DSN")
	fs.StringVar(&cfg.Data.Fixtures, "fixtures", cfg.Data.Fixtures, "Fixtures YAML for the memory source")
	fs.StringVar(&cfg.Data.Scripts, "scripts", cfg.Data.Scripts, "SQL scripts applied on start")
	fs.StringVar(&cfg.Registry.Driver, "registry", cfg.Registry.Driver, "View registry (memory/redis/miniredis)")
	fs.StringVar(&cfg.Registry.Addr, "redis-addr", cfg.Registry.Addr, "Redis address")
	fs.IntVar(&cfg.DefaultLimit, "limit", cfg.DefaultLimit, "Default page size")
	fs.DurationVar(&cfg.LoadingMinDisplay, "loading-min-display", cfg.LoadingMinDisplay, "Minimum loading indicator time")
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "Log level")
	fs.StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "Log format (console/json)")
	fs.BoolVar(&cfg.Metrics, "metrics", cfg.Metrics, "Expose /metrics")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	cfg.Port = strings.TrimSpace(cfg.Port)
	cfg.Data.Driver = strings.ToLower(strings.TrimSpace(cfg.Data.Driver))
	cfg.Registry.Driver = strings.ToLower(strings.TrimSpace(cfg.Registry.Driver))
	return cfg, cfg.validate()
}

// configArg достаёт значение -config/--config из args.
func configArg(args []string, fallback string) string {
	for i, a := range args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if !strings.HasPrefix(a, "-") || name != "config" {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return fallback
}

var ErrInvalid = errors.New("invalid config")

func (c Config) validate() error {
	if c.DefaultLimit <= 0 {
		return fmt.Errorf("%w: defaultLimit must be positive, got %d", ErrInvalid, c.DefaultLimit)
	}
	if c.LoadingMinDisplay < 0 {
		return fmt.Errorf("%w: loadingMinDisplay is negative", ErrInvalid)
	}
	if c.Data.Driver != "memory" && strings.TrimSpace(c.Data.DSN) == "" {
		return fmt.Errorf("%w: data driver %s needs a dsn", ErrInvalid, c.Data.Driver)
	}
	switch c.Registry.Driver {
	case "memory", "redis", "miniredis":
	default:
		return fmt.Errorf("%w: unknown registry driver %q", ErrInvalid, c.Registry.Driver)
	}
	return nil
}

// Addr: адрес для http.Server.
func (c Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/gnemet/SlideGraph/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Application ApplicationConfig `mapstructure:"application"`
	Input       InputConfig       `mapstructure:"input"`
	Output      OutputConfig      `mapstructure:"output"`
	Extract     ExtractConfig     `mapstructure:"extract"`
	Database    DatabaseConfig    `mapstructure:"database"`
	AI          AIConfig          `mapstructure:"ai"`
	Logging     logging.Config    `mapstructure:"logging"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Publish     PublishConfig     `mapstructure:"publish"`
	Watch       WatchConfig       `mapstructure:"watch"`
	Server      ServerConfig      `mapstructure:"server"`
}

type ApplicationConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

type InputConfig struct {
	Path       string   `mapstructure:"path"`
	Extensions []string `mapstructure:"extensions"`
	SkipPrefix string   `mapstructure:"skip_prefix"` // lock files left by open editors
}

type OutputConfig struct {
	Dir             string `mapstructure:"dir"`
	CSV             bool   `mapstructure:"csv"`
	Arrow           bool   `mapstructure:"arrow"`
	Hierarchy       bool   `mapstructure:"hierarchy"`
	HierarchyFormat string `mapstructure:"hierarchy_format"` // json, yaml
	MediaBase       string `mapstructure:"media_base"`
	Report          bool   `mapstructure:"report"`
}

type ExtractConfig struct {
	Profile  string `mapstructure:"profile"` // auto, transitional, strict
	IDPrefix string `mapstructure:"id_prefix"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Driver   string `mapstructure:"driver"` // postgres, sqlite
	Path     string `mapstructure:"path"`   // sqlite file
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Options  string `mapstructure:"options"`
}

func (c *DatabaseConfig) GetConnectStr() string {
	if c.Driver == "sqlite" {
		return c.Path
	}
	if c.URL != "" {
		return c.URL
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, sslmode)

	if c.Options != "" {
		// Basic URL encoding for the options value: space -> %20
		encodedOptions := strings.ReplaceAll(c.Options, " ", "%20")
		connStr += fmt.Sprintf("&options=%s", encodedOptions)
	}

	return connStr
}

type AIConfig struct {
	Enabled        bool                        `mapstructure:"enabled"`
	ActiveProvider string                      `mapstructure:"active_provider"`
	Providers      map[string]ProviderSettings `mapstructure:"providers"`
}

type ProviderSettings struct {
	Driver      string  `mapstructure:"driver"` // gemini
	Key         string  `mapstructure:"key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// Active returns the settings of the selected provider.
func (c *AIConfig) Active() (ProviderSettings, bool) {
	p, ok := c.Providers[c.ActiveProvider]
	return p, ok
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

type PublishConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Bucket       string `mapstructure:"bucket"`
	Prefix       string `mapstructure:"prefix"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"` // S3-compatible stores
	UsePathStyle bool   `mapstructure:"use_path_style"`

	// Static credentials; the default AWS chain is used when empty.
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
	Archive  string        `mapstructure:"archive"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Flags returns the command line flags understood by LoadConfig.
func Flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringP("config", "c", "config.yaml", "config file (optional)")
	fs.StringP("input", "i", "", "package file or directory to scan")
	fs.StringP("output", "o", "", "output directory")
	fs.String("profile", "", "schema profile: auto, transitional or strict")
	fs.String("hierarchy-format", "", "hierarchy output format: json or yaml")
	fs.String("media-base", "", "directory Media values are rebased onto")
	fs.Bool("arrow", false, "also write Arrow IPC tables")
	fs.Bool("report", false, "write Markdown and HTML reports")
	fs.Bool("db", false, "store results in the database")
	fs.String("db-driver", "", "database driver: postgres or sqlite")
	fs.Bool("publish", false, "upload the output directory to S3")
	fs.String("log-level", "", "log level")
	fs.String("metrics-textfile", "", "write metrics to this file after the run")
	fs.Int("port", 0, "HTTP port of the server")
	return fs
}

var flagKeys = []struct {
	flag, key string
}{
	{"input", "input.path"},
	{"output", "output.dir"},
	{"profile", "extract.profile"},
	{"hierarchy-format", "output.hierarchy_format"},
	{"media-base", "output.media_base"},
	{"arrow", "output.arrow"},
	{"report", "output.report"},
	{"db", "database.enabled"},
	{"db-driver", "database.driver"},
	{"publish", "publish.enabled"},
	{"log-level", "logging.level"},
	{"metrics-textfile", "metrics.textfile"},
	{"port", "server.port"},
}

// LoadConfig reads .env, config.yaml, the environment and flags, in rising
// order of precedence. flags may be nil.
func LoadConfig(flags *pflag.FlagSet) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	configFile := "config.yaml"
	if flags != nil {
		if f := flags.Lookup("config"); f != nil {
			configFile = f.Value.String()
		}
	}
	v.SetConfigFile(configFile)
	v.AutomaticEnv()

	// Environment variable mappings
	mappings := []struct {
		key, env string
	}{
		{"input.path", "SLIDEGRAPH_INPUT"},
		{"output.dir", "SLIDEGRAPH_OUTPUT"},
		{"extract.profile", "SLIDEGRAPH_PROFILE"},

		// Database
		{"database.enabled", "DB_ENABLED"},
		{"database.driver", "DB_DRIVER"},
		{"database.path", "SQLITE_PATH"},
		{"database.url", "DB_URL"},
		{"database.host", "PG_HOST"},
		{"database.port", "PG_PORT"},
		{"database.user", "PG_USER"},
		{"database.password", "PG_PASSWORD"},
		{"database.dbname", "PG_DB"},
		{"database.sslmode", "PG_SSLMODE"},
		{"database.options", "PG_OPTIONS"},

		// AI Providers
		{"ai.enabled", "AI_ENABLED"},
		{"ai.active_provider", "AI_PROVIDER"},
		{"ai.providers.gemini.key", "GEMINI_KEY"},
		{"ai.providers.gemini.model", "GEMINI_MODEL"},

		{"logging.level", "LOG_LEVEL"},
		{"logging.format", "LOG_FORMAT"},
		{"metrics.textfile", "METRICS_TEXTFILE"},

		// Publishing
		{"publish.enabled", "PUBLISH_ENABLED"},
		{"publish.bucket", "S3_BUCKET"},
		{"publish.prefix", "S3_PREFIX"},
		{"publish.region", "AWS_REGION"},
		{"publish.endpoint", "S3_ENDPOINT"},
		{"publish.access_key_id", "S3_ACCESS_KEY_ID"},
		{"publish.secret_access_key", "S3_SECRET_ACCESS_KEY"},

		{"watch.archive", "WATCH_ARCHIVE"},
		{"server.port", "PORT"},
	}
	for _, m := range mappings {
		v.BindEnv(m.key, m.env)
	}

	SetDefaults(v)

	if flags != nil {
		for _, fk := range flagKeys {
			if f := flags.Lookup(fk.flag); f != nil {
				if err := v.BindPFlag(fk.key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", configFile, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("application.name", "SlideGraph")
	v.SetDefault("application.version", "dev")

	v.SetDefault("input.path", ".")
	v.SetDefault("input.extensions", []string{".pptx"})
	v.SetDefault("input.skip_prefix", "~$")

	v.SetDefault("output.dir", "out")
	v.SetDefault("output.csv", true)
	v.SetDefault("output.arrow", false)
	v.SetDefault("output.hierarchy", true)
	v.SetDefault("output.hierarchy_format", "json")
	v.SetDefault("output.report", false)

	v.SetDefault("extract.profile", "auto")
	v.SetDefault("extract.id_prefix", "Auto_")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "slidegraph.db")

	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.active_provider", "gemini")
	v.SetDefault("ai.providers.gemini.driver", "gemini")
	v.SetDefault("ai.providers.gemini.model", "gemini-2.0-flash")
	v.SetDefault("ai.providers.gemini.max_tokens", 256)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.fields", map[string]string{"service": "slidegraph"})

	v.SetDefault("publish.prefix", "slidegraph")
	v.SetDefault("publish.region", "us-east-1")

	v.SetDefault("watch.debounce", "500ms")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
}

func (c *Config) Validate() error {
	switch c.Extract.Profile {
	case "auto", "transitional", "strict":
	default:
		return fmt.Errorf("extract.profile: unknown profile %q", c.Extract.Profile)
	}
	switch c.Output.HierarchyFormat {
	case "json", "yaml":
	default:
		return fmt.Errorf("output.hierarchy_format: unknown format %q", c.Output.HierarchyFormat)
	}
	if c.Database.Enabled && c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("database.driver: unsupported driver %q", c.Database.Driver)
	}
	if c.Publish.Enabled && c.Publish.Bucket == "" {
		return errors.New("publish.bucket is required when publishing is enabled")
	}
	return nil
}

package cmd

import (
	"errors"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app       = "matchmaker"
	envPrefix = "MATCHMAKER"
)

type Config struct {
	Server   *ServerConfig   `mapstructure:"server"`
	Storage  *StorageConfig  `mapstructure:"storage"`
	Matching *MatchingConfig `mapstructure:"matching"`
	AI       *AIConfig       `mapstructure:"ai"`
}

type ServerConfig struct {
	Address        string        `mapstructure:"address"`
	AllowedOrigins []string      `mapstructure:"allowed-origins"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
}

type StorageConfig struct {
	Driver   string          `mapstructure:"driver"`
	Postgres *PostgresConfig `mapstructure:"postgres"`
	Memory   *MemoryConfig   `mapstructure:"memory"`
	Remote   *RemoteConfig   `mapstructure:"remote"`
}

type PostgresConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max-open-conns"`
}

type MemoryConfig struct {
	SeedFile string `mapstructure:"seed-file"`
}

type RemoteConfig struct {
	URL       string `mapstructure:"url"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"token-file"`
	UserAgent string `mapstructure:"user-agent"`
}

type MatchingConfig struct {
	PoolLimit         int      `mapstructure:"pool-limit"`
	MinScore          int      `mapstructure:"min-score"`
	Concurrency       int      `mapstructure:"concurrency"`
	CandidatePoolOnly bool     `mapstructure:"candidate-pool-only"`
	ExcludeCandidates []string `mapstructure:"exclude-candidates"`
	ExcludeFile       string   `mapstructure:"exclude-file"`
	DisabledFilters   []string `mapstructure:"disabled-filters"`
	Intro             bool     `mapstructure:"intro"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
	Cache    *CacheConfig  `mapstructure:"cache"`
}

type GeminiConfig struct {
	APIKey       string        `mapstructure:"api-key"`
	APIKeyFile   string        `mapstructure:"api-key-file"`
	Model        string        `mapstructure:"model"`
	MaxRetries   int           `mapstructure:"max-retries"`
	MaxLogLength int           `mapstructure:"max-log-length"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	RedisAddress  string        `mapstructure:"redis-address"`
	RedisPassword string        `mapstructure:"redis-password"`
	TTL           time.Duration `mapstructure:"ttl"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "matchmaker suggests compatible candidates for matchmaking customers",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("storage.remote.token-file", "CRM_TOKEN_FILE"); err != nil {
		log.Fatalf("binding CRM_TOKEN_FILE environment variable: %v", err)
	}

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is matchmaker.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("server.allowed-origins", []string{"*"})
	viper.SetDefault("server.request-timeout", 60*time.Second)

	viper.SetDefault("storage.driver", "memory")
	viper.SetDefault("storage.postgres.max-open-conns", 10)

	viper.SetDefault("matching.pool-limit", 10)
	viper.SetDefault("matching.min-score", 50)
	viper.SetDefault("matching.intro", true)

	viper.SetDefault("ai.enabled", true)
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	viper.SetDefault("ai.gemini.max-retries", 2)
	viper.SetDefault("ai.gemini.max-log-length", 200)
	viper.SetDefault("ai.gemini.timeout", 30*time.Second)
	viper.SetDefault("ai.cache.ttl", 24*time.Hour)
}

func initConfig() {
	// A missing .env is fine, a broken one is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Without a config file the defaults and environment still apply.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}

package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/FACorreiaa/alpine-guide/internal/types"
)

//go:embed config.yml
var embeddedConfig []byte

const envPrefix = "ALPINE"

type Config struct {
	Mode   string `mapstructure:"mode"`
	Server struct {
		HTTPPort       string        `mapstructure:"HTTPPort"`
		Timeout        time.Duration `mapstructure:"HTTPTimeout"`
		AllowedOrigins []string      `mapstructure:"allowedOrigins"`
	} `mapstructure:"server"`
	NLU struct {
		GeminiAPIKey   string        `mapstructure:"geminiAPIKey"`
		GeminiModel    string        `mapstructure:"geminiModel"`
		MistralAPIKey  string        `mapstructure:"mistralAPIKey"`
		MistralModel   string        `mapstructure:"mistralModel"`
		MistralBaseURL string        `mapstructure:"mistralBaseURL"`
		Timeout        time.Duration `mapstructure:"timeout"`
		Temperature    float32       `mapstructure:"temperature"`
	} `mapstructure:"nlu"`
	Cache struct {
		RedisURL         string                   `mapstructure:"redisURL"`
		PingTimeout      time.Duration            `mapstructure:"pingTimeout"`
		PingRetries      uint64                   `mapstructure:"pingRetries"`
		MemoryMaxEntries int                      `mapstructure:"memoryMaxEntries"`
		KeyPrefix        string                   `mapstructure:"keyPrefix"`
		TTL              map[string]time.Duration `mapstructure:"ttl"`
	} `mapstructure:"cache"`
	Session struct {
		Timeout    time.Duration `mapstructure:"timeout"`
		HistoryCap int           `mapstructure:"historyCap"`
		KeyPrefix  string        `mapstructure:"keyPrefix"`
	} `mapstructure:"session"`
	Repositories struct {
		Postgres struct {
			Host              string `mapstructure:"host"`
			Password          string `mapstructure:"password"`
			Port              string `mapstructure:"port"`
			Username          string `mapstructure:"username"`
			DB                string `mapstructure:"db"`
			SSLMODE           string `mapstructure:"SSLMODE"`
			MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Weather struct {
		BaseURL      string        `mapstructure:"baseURL"`
		Timeout      time.Duration `mapstructure:"timeout"`
		FetchTimeout time.Duration `mapstructure:"fetchTimeout"`
	} `mapstructure:"weather"`
	Catalog struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"catalog"`
	POI struct {
		Limit int `mapstructure:"limit"`
	} `mapstructure:"poi"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindings := map[string]string{
		"nlu.geminiAPIKey":               "GOOGLE_GEMINI_API_KEY",
		"nlu.mistralAPIKey":              "MISTRAL_API_KEY",
		"cache.redisURL":                 "REDIS_URL",
		"repositories.postgres.host":     "POSTGRES_HOST",
		"repositories.postgres.password": "POSTGRES_PASSWORD",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env, envPrefix+"_"+env); err != nil {
			return Config{}, fmt.Errorf("%w: bind %s: %v", types.ErrConfiguration, env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("%w: failed to read embedded config: %v", types.ErrConfiguration, err)
		}
	}

	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("%w: failed to unmarshal config: %v", types.ErrConfiguration, err)
	}
	return config, nil
}

// Validate reports settings the service cannot start without.
func (c Config) Validate() error {
	var errs []error
	if c.NLU.GeminiAPIKey == "" {
		errs = append(errs, errors.New("GOOGLE_GEMINI_API_KEY is required"))
	}
	if c.Server.HTTPPort == "" {
		errs = append(errs, errors.New("server.HTTPPort is required"))
	}
	if c.Session.HistoryCap < 0 {
		errs = append(errs, errors.New("session.historyCap must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", types.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

func (c Config) IsDevelopment() bool {
	return c.Mode == "" || c.Mode == "development"
}

// PostgresEnabled is false when no database host is configured; the
// service then answers without POI data.
func (c Config) PostgresEnabled() bool {
	return c.Repositories.Postgres.Host != ""
}

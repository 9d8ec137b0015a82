package config

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"windwatch/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Station   StationConfig   `mapstructure:"station"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Window    WindowConfig    `mapstructure:"window"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name string `mapstructure:"name" validate:"required"`
}

// HTTPConfig controls the API listener.
type HTTPConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"gte=0,lte=65535"`
	StaticDir       string        `mapstructure:"static_dir"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// Addr returns the host:port listen address.
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// StationConfig identifies the monitored station and its upstream source.
type StationConfig struct {
	Name           string        `mapstructure:"name" validate:"required"`
	SourceURL      string        `mapstructure:"source_url" validate:"required,url"`
	UserAgent      string        `mapstructure:"user_agent"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	Timezone       string        `mapstructure:"timezone" validate:"required"`
	Breaker        BreakerConfig `mapstructure:"breaker"`
}

// Location resolves the station time zone used for offset-less timestamps.
func (s StationConfig) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

// BreakerConfig tunes the upstream circuit breaker.
type BreakerConfig struct {
	MaxFailures uint32        `mapstructure:"max_failures" validate:"gt=0"`
	OpenTimeout time.Duration `mapstructure:"open_timeout" validate:"gt=0"`
}

// SchedulerConfig governs polling cadence.
type SchedulerConfig struct {
	Interval     time.Duration `mapstructure:"interval" validate:"gt=0"`
	StartupDelay time.Duration `mapstructure:"startup_delay" validate:"gte=0"`
}

// CacheConfig controls the upstream fetch cache.
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

// WindowConfig controls series output.
type WindowConfig struct {
	SeriesLimit int `mapstructure:"series_limit" validate:"gt=0"`
}

// AlertingConfig defines alert thresholds and routing.
type AlertingConfig struct {
	Enabled       bool           `mapstructure:"enabled"`
	StormKt       float64        `mapstructure:"storm_kt" validate:"gt=0"`
	StrongStormKt float64        `mapstructure:"strong_storm_kt" validate:"gtefield=StormKt"`
	Cooldown      time.Duration  `mapstructure:"cooldown" validate:"gte=0"`
	NotifyTimeout time.Duration  `mapstructure:"notify_timeout" validate:"gt=0"`
	Telegram      TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes Telegram delivery. Empty credentials disable delivery.
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// Configured reports whether both credentials are present.
func (t TelegramConfig) Configured() bool {
	return strings.TrimSpace(t.BotToken) != "" && strings.TrimSpace(t.ChatID) != ""
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// legacyEnv maps keys to the environment names used by earlier deployments.
var legacyEnv = map[string]string{
	"http.port":                   "PORT",
	"scheduler.interval":          "CHECK_INTERVAL_MS",
	"cache.ttl":                   "CACHE_MS",
	"alerting.storm_kt":           "STORM_KT",
	"alerting.strong_storm_kt":    "STRONG_STORM_KT",
	"alerting.cooldown":           "ALERT_COOLDOWN_MS",
	"alerting.telegram.bot_token": "TELEGRAM_BOT_TOKEN",
	"alerting.telegram.chat_id":   "TELEGRAM_CHAT_ID",
}

const envPrefix = "WINDWATCH"

var validate = validator.New()

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// bindLegacyEnv lets WINDWATCH_* take precedence over the legacy name.
func bindLegacyEnv(v *viper.Viper) error {
	for key, legacy := range legacyEnv {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "windwatch")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("http.host", "127.0.0.1")
	v.SetDefault("http.port", 3000)
	v.SetDefault("http.static_dir", "public")
	v.SetDefault("http.read_timeout", "10s")
	v.SetDefault("http.write_timeout", "10s")
	v.SetDefault("http.shutdown_timeout", "10s")

	v.SetDefault("station.name", "TRABZON LİMANI ANA MENDİREK FENERİ")
	v.SetDefault("station.source_url", "https://pirireis.mgm.gov.tr/domgi")
	v.SetDefault("station.user_agent", "Mozilla/5.0 (windwatch/1.0)")
	v.SetDefault("station.request_timeout", "10s")
	v.SetDefault("station.timezone", "Europe/Istanbul")
	v.SetDefault("station.breaker.max_failures", 5)
	v.SetDefault("station.breaker.open_timeout", "60s")

	v.SetDefault("scheduler.interval", "60s")
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("cache.ttl", "60s")

	v.SetDefault("window.series_limit", 180)

	v.SetDefault("alerting.enabled", true)
	v.SetDefault("alerting.storm_kt", 34.0)
	v.SetDefault("alerting.strong_storm_kt", 48.0)
	v.SetDefault("alerting.cooldown", "60m")
	v.SetDefault("alerting.notify_timeout", "10s")
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("metrics.enabled", true)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			millisecondsHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// millisecondsHookFunc reads a bare integer duration as milliseconds, the unit
// the legacy *_MS variables use. Applies to env strings and numeric file values.
func millisecondsHookFunc() mapstructure.DecodeHookFuncType {
	durationType := reflect.TypeOf(time.Duration(0))
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if t != durationType || f == durationType {
			return data, nil
		}
		switch {
		case f.Kind() == reflect.String:
			ms, err := strconv.ParseInt(strings.TrimSpace(data.(string)), 10, 64)
			if err != nil {
				return data, nil
			}
			return time.Duration(ms) * time.Millisecond, nil
		case f.Kind() >= reflect.Int && f.Kind() <= reflect.Int64:
			return time.Duration(reflect.ValueOf(data).Int()) * time.Millisecond, nil
		case f.Kind() >= reflect.Uint && f.Kind() <= reflect.Uint64:
			return time.Duration(reflect.ValueOf(data).Uint()) * time.Millisecond, nil
		}
		return data, nil
	}
}

// Validate performs sanity checks on the configuration values.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config %s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Station.Location(); err != nil {
		return fmt.Errorf("station.timezone: %w", err)
	}
	return nil
}

// Package conf loads birdworks settings from defaults, an optional YAML file,
// BIRDWORKS_* environment variables and command line flags, in increasing
// order of precedence.
package conf

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/wasatchbitworks/birdworks-live/internal/errors"
)

// Settings is the complete runtime configuration.
type Settings struct {
	Debug bool `mapstructure:"debug" yaml:"debug"`

	Site      SiteSettings      `mapstructure:"site" yaml:"site"`
	API       APISettings       `mapstructure:"api" yaml:"api"`
	Live      LiveSettings      `mapstructure:"live" yaml:"live"`
	Charts    ChartSettings     `mapstructure:"charts" yaml:"charts"`
	Location  LocationSettings  `mapstructure:"location" yaml:"location"`
	WebServer WebServerSettings `mapstructure:"webserver" yaml:"webserver"`
	MQTT      MQTTSettings      `mapstructure:"mqtt" yaml:"mqtt"`
	Telemetry TelemetrySettings `mapstructure:"telemetry" yaml:"telemetry"`
	Logging   LoggingSettings   `mapstructure:"logging" yaml:"logging"`
}

// SiteSettings names the dashboard and fixes the operator time zone used for
// every hour and weekday bucket.
type SiteSettings struct {
	Name     string `mapstructure:"name" yaml:"name"`
	Timezone string `mapstructure:"timezone" yaml:"timezone"`
}

// APISettings configures the birds CMS client.
type APISettings struct {
	BaseURL            string        `mapstructure:"base_url" yaml:"base_url"`
	Slug               string        `mapstructure:"slug" yaml:"slug"`
	Timeout            time.Duration `mapstructure:"timeout" yaml:"timeout"`
	LatestLimit        int           `mapstructure:"latest_limit" yaml:"latest_limit"`
	DailyDays          int           `mapstructure:"daily_days" yaml:"daily_days"`
	RateLimitPerSecond float64       `mapstructure:"rate_limit_per_second" yaml:"rate_limit_per_second"` // 0 disables limiting
	LatestCacheTTL     time.Duration `mapstructure:"latest_cache_ttl" yaml:"latest_cache_ttl"`
	AggregateCacheTTL  time.Duration `mapstructure:"aggregate_cache_ttl" yaml:"aggregate_cache_ttl"`
	SnapshotCacheTTL   time.Duration `mapstructure:"snapshot_cache_ttl" yaml:"snapshot_cache_ttl"`
	AudioSignPath      string        `mapstructure:"audio_sign_path" yaml:"audio_sign_path"`
	UserAgent          string        `mapstructure:"user_agent" yaml:"user_agent"`
}

// LiveSettings configures the live detections table.
type LiveSettings struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval" yaml:"refresh_interval"`
	ReadyDelay      time.Duration `mapstructure:"ready_delay" yaml:"ready_delay"`
	PageSize        int           `mapstructure:"page_size" yaml:"page_size"`
	PreferenceKey   string        `mapstructure:"preference_key" yaml:"preference_key"`
	PreferenceDB    string        `mapstructure:"preference_db" yaml:"preference_db"` // empty keeps the preference in memory
}

// ChartSettings holds chart layout knobs.
type ChartSettings struct {
	Width      int `mapstructure:"width" yaml:"width"`
	TopSpecies int `mapstructure:"top_species" yaml:"top_species"`
	LabelEvery int `mapstructure:"label_every" yaml:"label_every"`
}

// LocationSettings places the station for the daylight band. 0/0 disables it.
type LocationSettings struct {
	Latitude  float64 `mapstructure:"latitude" yaml:"latitude"`
	Longitude float64 `mapstructure:"longitude" yaml:"longitude"`
}

// Enabled reports whether a station location was configured.
func (l LocationSettings) Enabled() bool {
	return l.Latitude != 0 || l.Longitude != 0
}

type WebServerSettings struct {
	Listen string `mapstructure:"listen" yaml:"listen"`
}

// MQTTSettings configures the optional refresh trigger subscription.
type MQTTSettings struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Broker   string `mapstructure:"broker" yaml:"broker"`
	Topic    string `mapstructure:"topic" yaml:"topic"`
	ClientID string `mapstructure:"client_id" yaml:"client_id"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
}

type TelemetrySettings struct {
	SentryDSN      string `mapstructure:"sentry_dsn" yaml:"sentry_dsn"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled" yaml:"metrics_enabled"`
}

type LoggingSettings struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// Zone loads the operator time zone.
func (s *SiteSettings) Zone() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

// Load builds Settings from v. When configFile is empty the default search
// paths are tried and a missing file is not an error.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	if v == nil {
		v = viper.New()
	}

	setDefaultConfig(v)

	if err := configureEnvironmentVariables(v); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "bind_env").
			Build()
	}

	if err := readConfigFile(v, configFile); err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}

	return settings, nil
}

func readConfigFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, path := range defaultConfigPaths() {
			v.AddConfigPath(path)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return errors.New(fmt.Errorf("error reading config file: %w", err)).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("config_file", configFile).
			Build()
	}
	return nil
}

// defaultConfigPaths lists the directories searched for config.yaml.
func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "birdworks"))
	}
	return append(paths, "/etc/birdworks")
}

// Dump writes settings as YAML with credentials masked.
func Dump(w io.Writer, settings *Settings) error {
	masked := *settings
	if masked.MQTT.Password != "" {
		masked.MQTT.Password = "********"
	}
	if masked.Telemetry.SentryDSN != "" {
		masked.Telemetry.SentryDSN = "********"
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&masked); err != nil {
		return fmt.Errorf("error marshaling settings: %w", err)
	}
	return enc.Close()
}

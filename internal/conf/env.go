package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "BIRDWORKS"

// envBinding ties a config key to its environment variable.
type envBinding struct {
	ConfigKey string
	EnvVar    string
	Validate  func(string) error
}

func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "BIRDWORKS_DEBUG", validateEnvBool},
		{"site.timezone", "BIRDWORKS_SITE_TIMEZONE", validateEnvTimezone},

		// BIRDS_API_BASE is what the static site build reads
		{"api.base_url", "BIRDS_API_BASE", validateEnvURL},
		{"api.base_url", "BIRDWORKS_API_BASE_URL", validateEnvURL},
		{"api.slug", "BIRDWORKS_API_SLUG", nil},
		{"api.timeout", "BIRDWORKS_API_TIMEOUT", validateEnvDuration},

		{"live.refresh_interval", "BIRDWORKS_LIVE_REFRESH_INTERVAL", validateEnvDuration},
		{"live.preference_db", "BIRDWORKS_LIVE_PREFERENCE_DB", nil},

		{"location.latitude", "BIRDWORKS_LATITUDE", validateEnvLatitude},
		{"location.longitude", "BIRDWORKS_LONGITUDE", validateEnvLongitude},

		{"webserver.listen", "BIRDWORKS_LISTEN", nil},

		{"mqtt.enabled", "BIRDWORKS_MQTT_ENABLED", validateEnvBool},
		{"mqtt.broker", "BIRDWORKS_MQTT_BROKER", nil},
		{"mqtt.username", "BIRDWORKS_MQTT_USERNAME", nil},
		{"mqtt.password", "BIRDWORKS_MQTT_PASSWORD", nil},

		{"telemetry.sentry_dsn", "BIRDWORKS_SENTRY_DSN", nil},
		{"logging.level", "BIRDWORKS_LOG_LEVEL", nil},
	}
}

// bindEnvVars binds every variable and validates the ones that are set.
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	// viper.BindEnv takes the first set variable, so group by key
	byKey := make(map[string][]string)
	var order []string
	for _, b := range getEnvBindings() {
		if _, seen := byKey[b.ConfigKey]; !seen {
			order = append(order, b.ConfigKey)
		}
		byKey[b.ConfigKey] = append(byKey[b.ConfigKey], b.EnvVar)

		if b.Validate == nil {
			continue
		}
		if value := os.Getenv(b.EnvVar); value != "" {
			if err := b.Validate(value); err != nil {
				warnings = append(warnings, fmt.Sprintf("invalid %s value %q: %v", b.EnvVar, value, err))
			}
		}
	}

	for _, key := range order {
		args := append([]string{key}, byKey[key]...)
		if err := v.BindEnv(args...); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", key, err))
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("must be a duration such as 60s")
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validateEnvTimezone(value string) error {
	_, err := time.LoadLocation(value)
	return err
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an http(s) URL")
	}
	return nil
}

func validateEnvLatitude(value string) error {
	lat, err := strconv.ParseFloat(value, 64)
	if err != nil || lat < -90 || lat > 90 {
		return fmt.Errorf("must be between -90 and 90")
	}
	return nil
}

func validateEnvLongitude(value string) error {
	lon, err := strconv.ParseFloat(value, 64)
	if err != nil || lon < -180 || lon > 180 {
		return fmt.Errorf("must be between -180 and 180")
	}
	return nil
}

// configureEnvironmentVariables enables BIRDWORKS_<SECTION>_<KEY> overrides
// for every key plus the explicit bindings above.
func configureEnvironmentVariables(v *viper.Viper) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return bindEnvVars(v)
}

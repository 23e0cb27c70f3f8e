package conf

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
)

// ValidationError collects every problem found in a Settings value.
type ValidationError struct {
	Errors []string
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %s", strings.Join(ve.Errors, "; "))
}

// ValidateSettings checks the whole configuration and reports all problems at once.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}
	add := func(errs []string) { ve.Errors = append(ve.Errors, errs...) }

	add(validateSiteSettings(&settings.Site))
	add(validateAPISettings(&settings.API))
	add(validateLiveSettings(&settings.Live))
	add(validateChartSettings(&settings.Charts))
	add(validateLocationSettings(&settings.Location))
	add(validateMQTTSettings(&settings.MQTT))
	add(validateLoggingSettings(&settings.Logging))

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateSiteSettings(s *SiteSettings) []string {
	if _, err := time.LoadLocation(s.Timezone); err != nil || s.Timezone == "" {
		return []string{fmt.Sprintf("site.timezone %q is not a valid IANA time zone", s.Timezone)}
	}
	return nil
}

func validateAPISettings(s *APISettings) []string {
	var errs []string
	u, err := url.Parse(s.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Sprintf("api.base_url %q must be an http(s) URL", s.BaseURL))
	}
	if strings.Trim(s.Slug, "/ ") == "" {
		errs = append(errs, "api.slug must not be empty")
	}
	if s.Timeout <= 0 {
		errs = append(errs, "api.timeout must be positive")
	}
	if s.LatestLimit <= 0 {
		errs = append(errs, "api.latest_limit must be positive")
	}
	if s.DailyDays <= 0 {
		errs = append(errs, "api.daily_days must be positive")
	}
	if s.RateLimitPerSecond < 0 {
		errs = append(errs, "api.rate_limit_per_second must not be negative")
	}
	if s.LatestCacheTTL < 0 || s.AggregateCacheTTL < 0 || s.SnapshotCacheTTL < 0 {
		errs = append(errs, "api cache durations must not be negative")
	}
	if s.AudioSignPath == "" {
		errs = append(errs, "api.audio_sign_path must not be empty")
	}
	return errs
}

func validateLiveSettings(s *LiveSettings) []string {
	var errs []string
	if s.RefreshInterval < time.Second {
		errs = append(errs, "live.refresh_interval must be at least 1s")
	}
	if s.ReadyDelay < 0 {
		errs = append(errs, "live.ready_delay must not be negative")
	}
	if s.PageSize <= 0 {
		errs = append(errs, "live.page_size must be positive")
	}
	if s.PreferenceKey == "" {
		errs = append(errs, "live.preference_key must not be empty")
	}
	return errs
}

func validateChartSettings(s *ChartSettings) []string {
	var errs []string
	if s.Width < 200 {
		errs = append(errs, "charts.width must be at least 200")
	}
	if s.TopSpecies <= 0 {
		errs = append(errs, "charts.top_species must be positive")
	}
	if s.LabelEvery < 1 {
		errs = append(errs, "charts.label_every must be at least 1")
	}
	return errs
}

func validateLocationSettings(s *LocationSettings) []string {
	var errs []string
	if s.Latitude < -90 || s.Latitude > 90 {
		errs = append(errs, "location.latitude must be between -90 and 90")
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		errs = append(errs, "location.longitude must be between -180 and 180")
	}
	return errs
}

func validateMQTTSettings(s *MQTTSettings) []string {
	if !s.Enabled {
		return nil
	}
	var errs []string
	if s.Broker == "" {
		errs = append(errs, "mqtt.broker is required when mqtt is enabled")
	} else if u, err := url.Parse(s.Broker); err != nil || !slices.Contains([]string{"tcp", "ssl", "ws", "wss", "mqtt", "mqtts"}, u.Scheme) {
		errs = append(errs, fmt.Sprintf("mqtt.broker %q must be a tcp://, ssl:// or ws:// URL", s.Broker))
	}
	if s.Topic == "" {
		errs = append(errs, "mqtt.topic is required when mqtt is enabled")
	}
	return errs
}

func validateLoggingSettings(s *LoggingSettings) []string {
	if !slices.Contains([]string{"trace", "debug", "info", "warn", "error"}, s.Level) {
		return []string{fmt.Sprintf("logging.level %q must be one of trace, debug, info, warn, error", s.Level)}
	}
	return nil
}

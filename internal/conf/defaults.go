package conf

import (
	"time"

	"github.com/spf13/viper"
)

// DefaultAPIBase is the public birds CMS endpoint.
const DefaultAPIBase = "https://cms.wasatchbitworks.com/api/birds"

func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("site.name", "Wasatch BirdWorks")
	v.SetDefault("site.timezone", "America/Denver")

	v.SetDefault("api.base_url", DefaultAPIBase)
	v.SetDefault("api.slug", "wasatch-bitworks")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("api.latest_limit", 20)
	v.SetDefault("api.daily_days", 30)
	v.SetDefault("api.rate_limit_per_second", 5.0)
	v.SetDefault("api.latest_cache_ttl", time.Minute)
	v.SetDefault("api.aggregate_cache_ttl", 5*time.Minute)
	v.SetDefault("api.snapshot_cache_ttl", 10*time.Second)
	v.SetDefault("api.audio_sign_path", "audio/signed-url")
	v.SetDefault("api.user_agent", "BirdWorks-Live/1.0")

	v.SetDefault("live.refresh_interval", 60*time.Second)
	v.SetDefault("live.ready_delay", 3*time.Second)
	v.SetDefault("live.page_size", 20)
	v.SetDefault("live.preference_key", "birdworks_auto_refresh")
	v.SetDefault("live.preference_db", "data/preferences.db")

	v.SetDefault("charts.width", 600)
	v.SetDefault("charts.top_species", 15)
	v.SetDefault("charts.label_every", 3)

	v.SetDefault("location.latitude", 0.0)
	v.SetDefault("location.longitude", 0.0)

	v.SetDefault("webserver.listen", ":8080")

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.topic", "birdnet/detections")
	v.SetDefault("mqtt.client_id", "birdworks-live")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")

	v.SetDefault("telemetry.sentry_dsn", "")
	v.SetDefault("telemetry.metrics_enabled", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
}

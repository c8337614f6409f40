// Package config defines service configuration structures and loading hooks.
//
// Conventions follow the rest of the repo: defaults come from New, Load layers
// an optional YAML file and environment variables on top, and external errors
// are wrapped via this package's sentinels.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// BandAPIBaseURL is the NGSI entity API used for score reads and
	// capture commands, e.g. "http://localhost:1026/v2/entities".
	BandAPIBaseURL string `koanf:"band_api_base_url"`

	// DeviceAPIBaseURL is the IoT agent device registry,
	// e.g. "http://localhost:4041/iot/devices".
	DeviceAPIBaseURL string `koanf:"device_api_base_url"`

	// FiwareService and FiwareServicePath select the tenant on the band API.
	FiwareService     string `koanf:"fiware_service"`
	FiwareServicePath string `koanf:"fiware_service_path"`

	// PointsMultiplier scales every axis magnitude read from the bands.
	PointsMultiplier float64 `koanf:"points_multiplier"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// DisplayURL is the public display address encoded in the QR endpoint.
	DisplayURL string `koanf:"display_url"`

	// TelemetryTimeoutMS bounds each score/command HTTP call.
	TelemetryTimeoutMS int `koanf:"telemetry_timeout_ms"`

	// Match pacing. All values in milliseconds unless noted.
	IntroDwellMS        int `koanf:"intro_dwell_ms"`
	CountdownTicks      int `koanf:"countdown_ticks"`
	CountdownTickMS     int `koanf:"countdown_tick_ms"`
	RoundCheckMS        int `koanf:"round_check_ms"`
	LiveTickMS          int `koanf:"live_tick_ms"`
	SettleDelayMS       int `koanf:"settle_delay_ms"`
	InterRoundDelayMS   int `koanf:"inter_round_delay_ms"`
	LeaderboardRevealMS int `koanf:"leaderboard_reveal_ms"`

	// FreeplayTickMS is the sampling cadence of ad-hoc capture sessions.
	FreeplayTickMS int `koanf:"freeplay_tick_ms"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		BandAPIBaseURL:      "http://localhost:1026/v2/entities",
		DeviceAPIBaseURL:    "http://localhost:4041/iot/devices",
		FiwareService:       "smart",
		FiwareServicePath:   "/",
		PointsMultiplier:    1.0,
		MaxLeaderboardLimit: 100,
		DisplayURL:          "http://localhost:9080/display",
		TelemetryTimeoutMS:  5_000,
		IntroDwellMS:        5_000,
		CountdownTicks:      3,
		CountdownTickMS:     1_000,
		RoundCheckMS:        100,
		LiveTickMS:          1_000,
		SettleDelayMS:       500,
		InterRoundDelayMS:   3_000,
		LeaderboardRevealMS: 8_000,
		FreeplayTickMS:      1_000,
	}
}

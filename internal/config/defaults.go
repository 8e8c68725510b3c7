package config

const (
	defaultConfigPath            = "~/.config/songline/config.toml"
	defaultDataDir               = "~/.local/share/songline"
	defaultLogDir                = "~/.local/share/songline/logs"
	defaultAPIBind               = "127.0.0.1:7491"
	defaultYouTubeBaseURL        = "https://www.googleapis.com/youtube/v3"
	defaultYouTubeTimeout        = 10
	defaultSpotifyBaseURL        = "https://api.spotify.com/v1"
	defaultSpotifyTokenURL       = "https://accounts.spotify.com/api/token"
	defaultSpotifyMarket         = "US"
	defaultSpotifyResults        = 5
	defaultSpotifyConcurrency    = 3
	defaultSpotifyMatchTimeout   = 8
	defaultTwitchBaseURL         = "https://api.twitch.tv/helix"
	defaultTwitchTokenURL        = "https://id.twitch.tv/oauth2/token"
	defaultStandardMaxSeconds    = 300
	defaultElevatedMaxSeconds    = 600
	defaultElevatedMinAmount     = 1.0
	defaultNotifyRequestTimeout  = 10
	defaultRealtimeChannelPrefix = "songline"
	defaultRealtimePublish       = 5
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 14
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		YouTube: YouTube{
			BaseURL:        defaultYouTubeBaseURL,
			TimeoutSeconds: defaultYouTubeTimeout,
		},
		Spotify: Spotify{
			Enabled:             true,
			BaseURL:             defaultSpotifyBaseURL,
			TokenURL:            defaultSpotifyTokenURL,
			Market:              defaultSpotifyMarket,
			ResultsPerQuery:     defaultSpotifyResults,
			SearchConcurrency:   defaultSpotifyConcurrency,
			MatchTimeoutSeconds: defaultSpotifyMatchTimeout,
		},
		Twitch: Twitch{
			BaseURL:  defaultTwitchBaseURL,
			TokenURL: defaultTwitchTokenURL,
		},
		Limits: Limits{
			StandardMaxSeconds: defaultStandardMaxSeconds,
			ElevatedMaxSeconds: defaultElevatedMaxSeconds,
			ElevatedMinAmount:  defaultElevatedMinAmount,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Errors:         true,
		},
		Realtime: Realtime{
			ChannelPrefix:         defaultRealtimeChannelPrefix,
			PublishTimeoutSeconds: defaultRealtimePublish,
		},
		Metrics: Metrics{
			Enabled: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

package config

const (
	defaultConfigPath     = "~/.config/sup2pgm/config.toml"
	projectConfigName     = "sup2pgm.toml"
	defaultMergeThreshold = 200
	defaultBaseName       = "movie_subtitle"
	defaultIndexExtension = ".srtx"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Decode: Decode{
			MergeThresholdMS:       defaultMergeThreshold,
			AcquisitionPointClears: true,
		},
		Output: Output{
			BaseName:       defaultBaseName,
			IndexExtension: defaultIndexExtension,
			Lock:           true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

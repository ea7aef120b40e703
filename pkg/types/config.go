// Package types provides configuration types for the volatility backend.
package types

import "time"

// SearchConfig configures a sample-size search run
type SearchConfig struct {
	Series        string          `json:"series" mapstructure:"series"`
	MinSampleSize int             `json:"minSampleSize" mapstructure:"min_sample_size"`
	Frequency     string          `json:"frequency" mapstructure:"frequency"`
	Parallelism   int             `json:"parallelism" mapstructure:"parallelism"`
	ModelLambda   float64         `json:"modelLambda" mapstructure:"model_lambda"`
	Estimator     EstimatorConfig `json:"estimator" mapstructure:"estimator"`
}

// EstimatorConfig configures a realized-volatility estimator
type EstimatorConfig struct {
	Model     string `json:"model" mapstructure:"model"`
	Clean     bool   `json:"clean" mapstructure:"clean"`
	Frequency string `json:"frequency" mapstructure:"frequency"`
}

// ServerConfig represents API server configuration
type ServerConfig struct {
	Host          string        `json:"host" mapstructure:"host"`
	Port          int           `json:"port" mapstructure:"port"`
	WebSocketPath string        `json:"websocketPath" mapstructure:"websocket_path"`
	ReadTimeout   time.Duration `json:"readTimeout" mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `json:"writeTimeout" mapstructure:"write_timeout"`
	EnableMetrics bool          `json:"enableMetrics" mapstructure:"enable_metrics"`
}

// DataConfig represents data storage configuration
type DataConfig struct {
	DataDir string `json:"dataDir" mapstructure:"data_dir"`
}

// Config is the top-level backend configuration
type Config struct {
	Server ServerConfig `json:"server" mapstructure:"server"`
	Data   DataConfig   `json:"data" mapstructure:"data"`
	Search SearchConfig `json:"search" mapstructure:"search"`
}

// DefaultConfig returns the default backend configuration.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:          "localhost",
			Port:          8090,
			WebSocketPath: "/ws",
			ReadTimeout:   15 * time.Second,
			WriteTimeout:  15 * time.Second,
			EnableMetrics: true,
		},
		Data: DataConfig{
			DataDir: "./data",
		},
		Search: SearchConfig{
			MinSampleSize: 30,
			Frequency:     string(FrequencyDay),
			Parallelism:   1,
			ModelLambda:   0.94,
			Estimator: EstimatorConfig{
				Model:     string(EstimatorCloseToClose),
				Clean:     true,
				Frequency: string(FrequencyDay),
			},
		},
	}
}

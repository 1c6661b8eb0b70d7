package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Configs holds everything the evaluation run reads from the environment.
type Configs struct {
	AppName     string `mapstructure:"app_name"`
	AppLogLevel string `mapstructure:"app_log_level"`

	SaveDataPath    string `mapstructure:"save_data_path"`
	DatasetPath     string `mapstructure:"dataset_path"`
	NetworksPath    string `mapstructure:"networks_path"`
	ExperimentsPath string `mapstructure:"experiments_path"`

	OnnxRuntimeLibPath string `mapstructure:"onnxruntime_lib_path"`
	Device             string `mapstructure:"device"`
	DeviceID           int    `mapstructure:"device_id"`

	LpipsModelPath    string  `mapstructure:"lpips_model_path"`
	LpipsMetadataPath string  `mapstructure:"lpips_metadata_path"`
	BoundaryIgnore    int     `mapstructure:"boundary_ignore"`
	Gamma             float64 `mapstructure:"gamma"`

	LoadSaved   bool `mapstructure:"load_saved"`
	SaveResults bool `mapstructure:"save_results"`

	MetricsSamplingRate float64 `mapstructure:"metrics_sampling_rate"`
	TelegrafHost        string  `mapstructure:"telegraf_host"`
	TelegrafPort        string  `mapstructure:"telegraf_port"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "burst-eval")
	v.SetDefault("app_log_level", "INFO")
	v.SetDefault("save_data_path", "./results")
	v.SetDefault("dataset_path", "./datasets/burst_denoise")
	v.SetDefault("networks_path", "./networks")
	v.SetDefault("experiments_path", "./experiments")
	v.SetDefault("onnxruntime_lib_path", "")
	v.SetDefault("device", "cuda")
	v.SetDefault("device_id", 0)
	v.SetDefault("lpips_model_path", "./networks/lpips_alex.onnx")
	v.SetDefault("lpips_metadata_path", "./networks/lpips_alex.json")
	v.SetDefault("boundary_ignore", 8)
	v.SetDefault("gamma", 2.2)
	v.SetDefault("load_saved", false)
	v.SetDefault("save_results", false)
	v.SetDefault("metrics_sampling_rate", 1.0)
	v.SetDefault("telegraf_host", "")
	v.SetDefault("telegraf_port", "8125")
}

func bindEnvVars(v *viper.Viper) {
	// Application config
	v.BindEnv("app_name", "APP_NAME")
	v.BindEnv("app_log_level", "APP_LOG_LEVEL")

	// Paths
	v.BindEnv("save_data_path", "SAVE_DATA_PATH")
	v.BindEnv("dataset_path", "DATASET_PATH")
	v.BindEnv("networks_path", "NETWORKS_PATH")
	v.BindEnv("experiments_path", "EXPERIMENTS_PATH")

	// Inference runtime
	v.BindEnv("onnxruntime_lib_path", "ONNXRUNTIME_LIB_PATH")
	v.BindEnv("device", "DEVICE")
	v.BindEnv("device_id", "DEVICE_ID")

	// Scoring
	v.BindEnv("lpips_model_path", "LPIPS_MODEL_PATH")
	v.BindEnv("lpips_metadata_path", "LPIPS_METADATA_PATH")
	v.BindEnv("boundary_ignore", "BOUNDARY_IGNORE")
	v.BindEnv("gamma", "POSTPROCESS_GAMMA")

	// Run mode
	v.BindEnv("load_saved", "LOAD_SAVED")
	v.BindEnv("save_results", "SAVE_RESULTS")

	// Metrics / Telegraf config
	v.BindEnv("metrics_sampling_rate", "METRIC_SAMPLING_RATE")
	v.BindEnv("telegraf_host", "TELEGRAF_HOST")
	v.BindEnv("telegraf_port", "TELEGRAF_PORT")
}

// New returns a viper instance with defaults and environment bindings in place.
// Callers may bind command line flags on it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	bindEnvVars(v)
	return v
}

// Load unmarshals v into Configs and validates the values the run depends on.
func Load(v *viper.Viper) (*Configs, error) {
	var cfg Configs
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Device != "cuda" && cfg.Device != "cpu" {
		return nil, fmt.Errorf("unsupported device %q, expected cuda or cpu", cfg.Device)
	}
	if cfg.BoundaryIgnore < 0 {
		return nil, fmt.Errorf("boundary_ignore must be non-negative, got %d", cfg.BoundaryIgnore)
	}
	if cfg.Gamma <= 0 {
		return nil, fmt.Errorf("gamma must be positive, got %v", cfg.Gamma)
	}
	return &cfg, nil
}

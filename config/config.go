package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Inference struct {
	Endpoint    string        `yaml:"endpoint" mapstructure:"endpoint"`
	Model       string        `yaml:"model" mapstructure:"model"`
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries  int           `yaml:"max_retries" mapstructure:"max_retries"`
	BaseDelay   time.Duration `yaml:"base_delay" mapstructure:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
	Jitter      float64       `yaml:"jitter" mapstructure:"jitter"`
	Concurrency int           `yaml:"concurrency" mapstructure:"concurrency"`
}

type Audio struct {
	MaxSeconds     int   `yaml:"max_seconds" mapstructure:"max_seconds"`
	BytesPerSecond int   `yaml:"bytes_per_second" mapstructure:"bytes_per_second"`
	MaxBytes       int64 `yaml:"max_bytes" mapstructure:"max_bytes"` // overrides the derived bound when > 0
}

// Limit is the byte bound applied to a clip before it is sent.
func (a Audio) Limit() int64 {
	if a.MaxBytes > 0 {
		return a.MaxBytes
	}
	return int64(a.MaxSeconds) * int64(a.BytesPerSecond)
}

type History struct {
	Tolerance   float64 `yaml:"tolerance" mapstructure:"tolerance"`
	Outputs     string  `yaml:"outputs" mapstructure:"outputs"`
	FeedbackLog string  `yaml:"feedback_log" mapstructure:"feedback_log"`
}

type Server struct {
	Addr           string   `yaml:"addr" mapstructure:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
}

type App struct {
	Name      string `yaml:"name" mapstructure:"name"`
	Version   string `yaml:"version" mapstructure:"version"`
	LogLvl    string `yaml:"log_level" mapstructure:"log_level"`
	LogFormat string `yaml:"log_format" mapstructure:"log_format"`
}

type Root struct {
	App       App       `yaml:"app" mapstructure:"app"`
	Inference Inference `yaml:"inference" mapstructure:"inference"`
	Audio     Audio     `yaml:"audio" mapstructure:"audio"`
	History   History   `yaml:"history" mapstructure:"history"`
	Server    Server    `yaml:"server" mapstructure:"server"`
}

const EnvPrefix = "EMOTION"

func SetDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "emotion-analyzer")
	v.SetDefault("app.version", "dev")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "text")

	v.SetDefault("inference.endpoint", "https://router.huggingface.co/hf-inference/models")
	v.SetDefault("inference.model", "jihedjabnoun/wavlm-base-emotion")
	v.SetDefault("inference.api_key", "")
	v.SetDefault("inference.timeout", 15*time.Second)
	v.SetDefault("inference.max_retries", 3)
	v.SetDefault("inference.base_delay", time.Second)
	v.SetDefault("inference.max_delay", 8*time.Second)
	v.SetDefault("inference.jitter", 0.2)
	v.SetDefault("inference.concurrency", 4)

	// 30 s of 44.1 kHz 16-bit stereo PCM.
	v.SetDefault("audio.max_seconds", 30)
	v.SetDefault("audio.bytes_per_second", 176400)
	v.SetDefault("audio.max_bytes", 0)

	v.SetDefault("history.tolerance", 0.01)
	v.SetDefault("history.outputs", "outputs")
	v.SetDefault("history.feedback_log", "feedback.jsonl")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_upload_bytes", 0)
}

// Load reads configuration from file (or config/<CONFIG_ENV>/config.yaml when
// file is empty), then EMOTION_* environment variables.
func Load(file string) (*Root, error) {
	return LoadWith(viper.New(), file)
}

// LoadWith is Load on a caller-supplied viper, which may already carry bound flags.
func LoadWith(v *viper.Viper, file string) (*Root, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("inference.api_key", EnvPrefix+"_INFERENCE_API_KEY", "HUGGING_FACE_API_KEY"); err != nil {
		return nil, err
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
	} else {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join("config", env))
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: %w", err)
			}
		}
	}

	var cfg Root
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *Root) Validate() error {
	var errs []error
	if _, err := logrus.ParseLevel(r.App.LogLvl); err != nil {
		errs = append(errs, fmt.Errorf("app.log_level: %w", err))
	}
	switch r.App.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("app.log_format: %q is not text or json", r.App.LogFormat))
	}
	in := r.Inference
	if in.Endpoint == "" {
		errs = append(errs, errors.New("inference.endpoint is empty"))
	}
	if in.Model == "" {
		errs = append(errs, errors.New("inference.model is empty"))
	}
	if in.Timeout <= 0 {
		errs = append(errs, errors.New("inference.timeout must be > 0"))
	}
	if in.MaxRetries < 0 {
		errs = append(errs, errors.New("inference.max_retries must be >= 0"))
	}
	if in.BaseDelay <= 0 || in.MaxDelay < in.BaseDelay {
		errs = append(errs, errors.New("inference delays must satisfy 0 < base_delay <= max_delay"))
	}
	if in.Jitter < 0 || in.Jitter > 1 {
		errs = append(errs, errors.New("inference.jitter must be within [0,1]"))
	}
	if in.Concurrency < 1 {
		errs = append(errs, errors.New("inference.concurrency must be >= 1"))
	}
	if r.Audio.Limit() <= 0 {
		errs = append(errs, errors.New("audio limit must be > 0"))
	}
	if r.History.Tolerance <= 0 || r.History.Tolerance >= 0.5 {
		errs = append(errs, errors.New("history.tolerance must be within (0, 0.5)"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// YAML renders the configuration with the API key masked.
func (r *Root) YAML() ([]byte, error) {
	c := *r
	if c.Inference.APIKey != "" {
		c.Inference.APIKey = "********"
	}
	return yaml.Marshal(&c)
}

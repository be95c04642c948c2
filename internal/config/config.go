// Package config loads the service configuration from configs/config.yml and
// MINDTV_* environment variables through viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "MINDTV"

type Config struct {
	Port        string            `mapstructure:"port"`
	LogLevel    string            `mapstructure:"log_level"`
	DB          DBConfig          `mapstructure:"db"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Device      DeviceConfig      `mapstructure:"device"`
	Acquisition AcquisitionConfig `mapstructure:"acquisition"`
	Export      ExportConfig      `mapstructure:"export"`
	Model       ModelConfig       `mapstructure:"model"`
	MQTT        MQTTConfig        `mapstructure:"mqtt"`
	WS          WSConfig          `mapstructure:"ws"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

// DeviceConfig describes the sensor board link. Port "MOCK" selects the
// synthetic device.
type DeviceConfig struct {
	Port         string        `mapstructure:"port"`
	BaudRate     int           `mapstructure:"baud_rate"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	StartCommand string        `mapstructure:"start_command"`
	StopCommand  string        `mapstructure:"stop_command"`
	MockInterval time.Duration `mapstructure:"mock_interval"`
}

type AcquisitionConfig struct {
	DefaultDuration time.Duration `mapstructure:"default_duration"`
	MinDuration     time.Duration `mapstructure:"min_duration"`
	MaxDuration     time.Duration `mapstructure:"max_duration"`
}

// ExportConfig controls the CSV written after every run. An empty Dir
// disables automatic export.
type ExportConfig struct {
	Dir      string `mapstructure:"dir"`
	BaseName string `mapstructure:"base_name"`
	Layout   string `mapstructure:"layout"` // device | legacy
}

// ModelConfig points at a trained forest. An empty Path disables
// auto-classification.
type ModelConfig struct {
	Path string `mapstructure:"path"`
}

type MQTTConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"client_id"`
	Topic    string `mapstructure:"topic"`
	QoS      byte   `mapstructure:"qos"`
}

type WSConfig struct {
	StatusInterval time.Duration `mapstructure:"status_interval"`
}

// SetDefaults registers every key so env overrides work without a config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("db.path", "mindtv.db")
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", 12*time.Hour)
	v.SetDefault("device.port", "MOCK")
	v.SetDefault("device.baud_rate", 115200)
	v.SetDefault("device.read_timeout", 200*time.Millisecond)
	v.SetDefault("device.start_command", "L")
	v.SetDefault("device.stop_command", "D")
	v.SetDefault("device.mock_interval", 50*time.Millisecond)
	v.SetDefault("acquisition.default_duration", time.Minute)
	v.SetDefault("acquisition.min_duration", time.Minute)
	v.SetDefault("acquisition.max_duration", 5*time.Minute)
	v.SetDefault("export.dir", "exports")
	v.SetDefault("export.base_name", "coleta_dados")
	v.SetDefault("export.layout", "device")
	v.SetDefault("model.path", "")
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "mindtv")
	v.SetDefault("mqtt.topic", "mindtv/events")
	v.SetDefault("mqtt.qos", 0)
	v.SetDefault("ws.status_interval", time.Second)
}

// Load reads configPath (a file, or a directory holding config.yml) when
// given, applies env overrides and validates the result for the API server.
// A missing config file is not an error.
func Load(v *viper.Viper, configPath string) (Config, error) {
	cfg, err := read(v, configPath)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadCollector is Load for the headless collector, which serves no API and
// therefore needs no signing key.
func LoadCollector(v *viper.Viper, configPath string) (Config, error) {
	cfg, err := read(v, configPath)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.validateCollection(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func read(v *viper.Viper, configPath string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if strings.HasSuffix(configPath, ".yml") || strings.HasSuffix(configPath, ".yaml") {
		v.SetConfigFile(configPath)
	} else {
		if configPath == "" {
			configPath = "configs"
		}
		v.AddConfigPath(configPath)
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	if err := c.validateCollection(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Auth.SigningKey) == "" {
		return fmt.Errorf("auth.signing_key is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be > 0")
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
	}
	if c.WS.StatusInterval <= 0 {
		c.WS.StatusInterval = time.Second
	}
	return nil
}

// validateCollection covers the device, acquisition and export sections.
func (c *Config) validateCollection() error {
	if strings.TrimSpace(c.Device.Port) == "" {
		return fmt.Errorf("device.port is required")
	}
	if c.Device.BaudRate <= 0 {
		return fmt.Errorf("device.baud_rate must be > 0")
	}
	if c.Device.ReadTimeout <= 0 {
		return fmt.Errorf("device.read_timeout must be > 0")
	}
	a := c.Acquisition
	if a.MinDuration <= 0 || a.MaxDuration < a.MinDuration {
		return fmt.Errorf("acquisition durations must satisfy 0 < min_duration <= max_duration")
	}
	if a.DefaultDuration < a.MinDuration || a.DefaultDuration > a.MaxDuration {
		return fmt.Errorf("acquisition.default_duration must lie within [%s, %s]", a.MinDuration, a.MaxDuration)
	}
	switch strings.ToLower(c.Export.Layout) {
	case "", "device", "legacy":
	default:
		return fmt.Errorf("export.layout must be device or legacy, got %q", c.Export.Layout)
	}
	return nil
}

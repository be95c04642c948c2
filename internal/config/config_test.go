package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

const testSigningKey = "test-signing-key"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MINDTV_AUTH_SIGNING_KEY", testSigningKey)
	cfg, err := Load(viper.New(), t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" || cfg.Device.Port != "MOCK" || cfg.Device.BaudRate != 115200 {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.Device.StartCommand != "L" || cfg.Device.StopCommand != "D" {
		t.Fatalf("control bytes = %q/%q", cfg.Device.StartCommand, cfg.Device.StopCommand)
	}
	if cfg.Acquisition.MinDuration != time.Minute || cfg.Acquisition.MaxDuration != 5*time.Minute {
		t.Fatalf("duration bounds = %+v", cfg.Acquisition)
	}
	if cfg.Export.BaseName != "coleta_dados" || cfg.MQTT.Enabled {
		t.Fatalf("export/mqtt defaults = %+v / %+v", cfg.Export, cfg.MQTT)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yml := strings.Join([]string{
		"port: \"9090\"",
		"device:",
		"  port: /dev/ttyUSB0",
		"  read_timeout: 150ms",
		"acquisition:",
		"  default_duration: 2m",
		"mqtt:",
		"  enabled: true",
		"  broker: tcp://broker:1883",
		"  qos: 1",
	}, "\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yml"), []byte(yml), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("MINDTV_AUTH_SIGNING_KEY", testSigningKey)
	t.Setenv("MINDTV_DEVICE_BAUD_RATE", "57600")
	t.Setenv("MINDTV_MODEL_PATH", "/models/forest.json")

	cfg, err := Load(viper.New(), dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" || cfg.Device.Port != "/dev/ttyUSB0" || cfg.Device.ReadTimeout != 150*time.Millisecond {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Acquisition.DefaultDuration != 2*time.Minute {
		t.Fatalf("default_duration = %s", cfg.Acquisition.DefaultDuration)
	}
	if cfg.Device.BaudRate != 57600 || cfg.Model.Path != "/models/forest.json" {
		t.Fatalf("env overrides not applied: baud=%d model=%q", cfg.Device.BaudRate, cfg.Model.Path)
	}
	if !cfg.MQTT.Enabled || cfg.MQTT.QoS != 1 {
		t.Fatalf("mqtt = %+v", cfg.MQTT)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yml")
	if err := os.WriteFile(path, []byte("log_level: debug\nauth:\n  signing_key: from-file\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(viper.New(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.Auth.SigningKey != "from-file" {
		t.Fatalf("log_level = %q, signing_key = %q", cfg.LogLevel, cfg.Auth.SigningKey)
	}
}

func TestLoad_MissingExplicitFileUsesDefaults(t *testing.T) {
	t.Setenv("MINDTV_AUTH_SIGNING_KEY", testSigningKey)
	cfg, err := Load(viper.New(), filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Device.Port != "MOCK" || cfg.Acquisition.MaxDuration != 5*time.Minute {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoad_RequiresSigningKey(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "absent.yml"))
	if err == nil || !strings.Contains(err.Error(), "auth.signing_key") {
		t.Fatalf("err = %v; want missing signing key", err)
	}

	t.Setenv("MINDTV_AUTH_SIGNING_KEY", "   ")
	if _, err := Load(viper.New(), t.TempDir()); err == nil {
		t.Fatalf("blank signing key accepted")
	}
}

func TestLoadCollector_NoSigningKeyNeeded(t *testing.T) {
	cfg, err := LoadCollector(viper.New(), filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("LoadCollector: %v", err)
	}
	if cfg.Device.Port != "MOCK" {
		t.Fatalf("cfg = %+v", cfg)
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yml"), []byte("export:\n  layout: xml\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadCollector(viper.New(), dir); err == nil {
		t.Fatalf("bad layout accepted")
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yml"), []byte("port: [\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(viper.New(), dir); err == nil {
		t.Fatalf("malformed yaml accepted")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		v := viper.New()
		SetDefaults(v)
		var c Config
		if err := v.Unmarshal(&c); err != nil {
			t.Fatalf("unmarshal defaults: %v", err)
		}
		c.Auth.SigningKey = testSigningKey
		return c
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.Device.Port = " " }},
		{"zero baud", func(c *Config) { c.Device.BaudRate = 0 }},
		{"zero read timeout", func(c *Config) { c.Device.ReadTimeout = 0 }},
		{"max below min", func(c *Config) { c.Acquisition.MaxDuration = 30 * time.Second }},
		{"default above max", func(c *Config) { c.Acquisition.DefaultDuration = 10 * time.Minute }},
		{"bad layout", func(c *Config) { c.Export.Layout = "xml" }},
		{"empty signing key", func(c *Config) { c.Auth.SigningKey = "" }},
		{"blank signing key", func(c *Config) { c.Auth.SigningKey = " \t" }},
		{"zero ttl", func(c *Config) { c.Auth.TokenTTL = 0 }},
		{"mqtt without broker", func(c *Config) { c.MQTT = MQTTConfig{Enabled: true} }},
		{"qos 3", func(c *Config) { c.MQTT.QoS = 3 }},
	}
	for _, tt := range tests {
		c := valid()
		if err := c.Validate(); err != nil {
			t.Fatalf("defaults invalid: %v", err)
		}
		tt.mutate(&c)
		if err := c.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tt.name)
		}
	}
}

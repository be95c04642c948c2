// Command collect runs one acquisition from the terminal, prints the device
// output as it arrives, saves the samples as CSV and optionally classifies them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mindtv/internal/config"
	"mindtv/internal/logger"
	"mindtv/internal/transport"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"port":      "device.port",
	"baud":      "device.baud_rate",
	"duration":  "acquisition.default_duration",
	"out":       "export.dir",
	"name":      "export.base_name",
	"layout":    "export.layout",
	"model":     "model.path",
	"log-level": "log_level",
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("collect", pflag.ExitOnError)
	fs.StringP("config", "c", "configs", "config file or directory holding config.yml")
	fs.StringP("port", "p", "MOCK", "serial port, or MOCK for the synthetic device")
	fs.IntP("baud", "b", 115200, "baud rate")
	fs.DurationP("duration", "d", 0, "collection length, e.g. 2m (default from config)")
	fs.String("content", "", "content type being watched, written to the Content column")
	fs.StringP("out", "o", "exports", "directory for the CSV file")
	fs.String("name", "coleta_dados", "CSV base name; existing files are never overwritten")
	fs.String("layout", "device", "CSV header layout: device or legacy")
	fs.StringP("model", "m", "", "forest model JSON; classify the samples when set")
	fs.String("classify-file", "", "classify an exported CSV with --model instead of collecting")
	fs.String("log-level", "info", "log level: debug, info, warn or error")
	return fs
}

// bindFlags makes explicitly set flags override the config file and env.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return fmt.Errorf("bind --%s: %w", flag, err)
		}
	}
	return nil
}

func main() {
	fs := newFlagSet()
	_ = fs.Parse(os.Args[1:])

	v := viper.New()
	if err := bindFlags(v, fs); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	configPath, _ := fs.GetString("config")
	cfg, err := config.LoadCollector(v, configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	content, _ := fs.GetString("content")
	log := logger.Get(cfg.LogLevel)

	if csvPath, _ := fs.GetString("classify-file"); csvPath != "" {
		if _, err := classifyFile(csvPath, cfg.Model.Path, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, "classify:", err)
			os.Exit(1)
		}
		return
	}

	// Ctrl-C ends the run early; what was collected is still saved
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opener := transport.DeviceOpener{MockInterval: cfg.Device.MockInterval}
	if _, err := collect(ctx, cfg, content, opener, os.Stdout, log); err != nil {
		fmt.Fprintln(os.Stderr, "collect:", err)
		os.Exit(1)
	}
}

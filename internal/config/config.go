// Package config loads and validates the controller configuration.
// Values come from configs/config.yml with SPIRACLE_* environment
// overrides; hardware interfaces receive them at construction time so
// nothing reads ambient process state.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalidConfig marks configuration that must be rejected before any
// hardware is engaged.
var ErrInvalidConfig = errors.New("invalid configuration")

// ADC describes the analog converter and its channel assignment.
// MCP3202 channel numbering is 0-based (0 and 1).
type ADC struct {
	ReferenceVoltage float64 `mapstructure:"reference_voltage"`
	SPIBus           int     `mapstructure:"spi_bus"`
	SPIChip          int     `mapstructure:"spi_chip"`
	SoilChannel      int     `mapstructure:"soil_channel"`
	WaterChannel     int     `mapstructure:"water_channel"`
}

// Thresholds holds the calibration points for the watering decisions,
// in volts.
type Thresholds struct {
	SoilDry       float64 `mapstructure:"soil_dry"`
	WaterLow      float64 `mapstructure:"water_low"`
	WaterCritical float64 `mapstructure:"water_critical"`
}

type Relay struct {
	Pin string `mapstructure:"pin"`
}

type Debug struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

type Journal struct {
	// Path of the SQLite journal file. Empty disables journaling.
	Path string `mapstructure:"path"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Log        Log        `mapstructure:"log"`
	ADC        ADC        `mapstructure:"adc"`
	Thresholds Thresholds `mapstructure:"thresholds"`
	Relay      Relay      `mapstructure:"relay"`
	Debug      Debug      `mapstructure:"debug"`
	Journal    Journal    `mapstructure:"journal"`
}

// Load reads the config file at path, or configs/config.yml when path is
// empty. Missing files are fine; defaults and environment cover every key.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
		v.SetConfigType("yml")
	}

	v.SetEnvPrefix("SPIRACLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("adc.reference_voltage", 3.3)
	v.SetDefault("adc.spi_bus", 0)
	v.SetDefault("adc.spi_chip", 0)
	v.SetDefault("adc.soil_channel", 0)
	v.SetDefault("adc.water_channel", 1)
	v.SetDefault("thresholds.soil_dry", 2.5)
	v.SetDefault("thresholds.water_low", 3.0)
	v.SetDefault("thresholds.water_critical", 2.7)
	v.SetDefault("relay.pin", "10")
	v.SetDefault("debug.refresh_interval", 250*time.Millisecond)
	v.SetDefault("journal.path", "")
}

// Validate rejects configurations that would make the control loop
// unsafe or meaningless.
func (c Config) Validate() error {
	vref := c.ADC.ReferenceVoltage
	if vref <= 0 {
		return fmt.Errorf("%w: adc.reference_voltage must be positive, got %.2f", ErrInvalidConfig, vref)
	}
	for name, ch := range map[string]int{
		"adc.soil_channel":  c.ADC.SoilChannel,
		"adc.water_channel": c.ADC.WaterChannel,
	} {
		if ch < 0 || ch > 1 {
			return fmt.Errorf("%w: %s must be 0 or 1, got %d", ErrInvalidConfig, name, ch)
		}
	}
	if c.ADC.SoilChannel == c.ADC.WaterChannel {
		return fmt.Errorf("%w: soil and water sensors cannot share ADC channel %d", ErrInvalidConfig, c.ADC.SoilChannel)
	}
	for name, t := range map[string]float64{
		"thresholds.soil_dry":       c.Thresholds.SoilDry,
		"thresholds.water_low":      c.Thresholds.WaterLow,
		"thresholds.water_critical": c.Thresholds.WaterCritical,
	} {
		if t < 0 || t > vref {
			return fmt.Errorf("%w: %s must be within [0, %.2f], got %.2f", ErrInvalidConfig, name, vref, t)
		}
	}
	// Critical is a strictly more urgent condition than low.
	if c.Thresholds.WaterCritical >= c.Thresholds.WaterLow {
		return fmt.Errorf("%w: thresholds.water_critical (%.2f) must be below thresholds.water_low (%.2f)",
			ErrInvalidConfig, c.Thresholds.WaterCritical, c.Thresholds.WaterLow)
	}
	if strings.TrimSpace(c.Relay.Pin) == "" {
		return fmt.Errorf("%w: relay.pin must be set", ErrInvalidConfig)
	}
	if c.Debug.RefreshInterval <= 0 {
		return fmt.Errorf("%w: debug.refresh_interval must be positive, got %s", ErrInvalidConfig, c.Debug.RefreshInterval)
	}
	return nil
}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"led-service/internal/types"
)

// Config is the root configuration structure, loaded from YAML with
// board calibration defaults matching the stock hardware.
type Config struct {
	Bus         BusConfig         `yaml:"bus"`
	Redis       RedisConfig       `yaml:"redis"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Tuning      TuningConfig      `yaml:"tuning"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// BusConfig contains the i2c-dev node, chip address, and the optional
// hardware enable line.
type BusConfig struct {
	Device  string `yaml:"device"`
	Address uint8  `yaml:"address"`

	// EnableChip is empty on boards that tie the enable pin high.
	EnableChip string `yaml:"enable_chip"`
	EnableLine int    `yaml:"enable_line"`
}

// RedisConfig contains the control surface connection details.
type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// CalibrationConfig contains fixed board calibration values.
type CalibrationConfig struct {
	DefaultCurrent  uint8                    `yaml:"default_current"`
	LowPowerCurrent uint8                    `yaml:"low_power_current"`
	Offsets         [types.NumChannels]uint8 `yaml:"offsets"`
}

// TuningConfig contains the power-on tuning values, overridable at
// runtime through the command surface.
type TuningConfig struct {
	Fade       bool     `yaml:"fade"`
	Intensity  uint8    `yaml:"intensity"`
	Speed      uint8    `yaml:"speed"`
	SlopeSteps [4]uint8 `yaml:"slope_steps"`
	Patterns   bool     `yaml:"patterns"`
}

// LoggingConfig contains the log level name.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads the YAML file at path over the defaults. A missing file is
// not an error; the defaults describe the stock board.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns the stock board configuration.
func defaultConfig() *Config {
	return &Config{
		Bus: BusConfig{
			Device:  "/dev/i2c-1",
			Address: 0x30,
		},
		Redis: RedisConfig{
			Host: "127.0.0.1",
			Port: 6379,
		},
		Calibration: CalibrationConfig{
			DefaultCurrent:  0x28,
			LowPowerCurrent: 0x05,
		},
		Tuning: TuningConfig{
			Fade:       false,
			Intensity:  40,
			Speed:      1,
			SlopeSteps: [4]uint8{1, 1, 1, 1},
			Patterns:   true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func (c *Config) Validate() error {
	if c.Bus.Device == "" {
		return fmt.Errorf("bus device must not be empty")
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		return fmt.Errorf("redis port %d out of range", c.Redis.Port)
	}
	if c.Tuning.Speed > 60 {
		return fmt.Errorf("tuning speed %d out of range 0..60", c.Tuning.Speed)
	}
	for i, s := range c.Tuning.SlopeSteps {
		if s > 5 {
			return fmt.Errorf("slope step %d value %d out of range 0..5", i, s)
		}
	}
	return nil
}

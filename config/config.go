// Package config holds the host-side settings of the diagnostic console.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mklimuk/diagcon/i2c"
)

// Adapter names accepted in the adapter field.
const (
	AdapterSim     = "sim"
	AdapterGeneric = "generic"
	AdapterNanoPi  = "nanopi"
	AdapterMCP2221 = "mcp2221"
)

var ErrUnknownAdapter = errors.New("unknown adapter")

type Config struct {
	Adapter string     `yaml:"adapter"`
	Device  string     `yaml:"device"`
	Speed   int        `yaml:"speed_khz"`
	Serial  Serial     `yaml:"serial"`
	LED     string     `yaml:"led"`
	Console Console    `yaml:"console"`
	Limits  i2c.Limits `yaml:"limits"`
}

type Serial struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

type Console struct {
	BufferSize int           `yaml:"buffer_size"`
	MaxWords   int           `yaml:"max_words"`
	Interval   time.Duration `yaml:"interval"`
	CRLF       bool          `yaml:"crlf"`
	Banner     string        `yaml:"banner"`
	Color      bool          `yaml:"color"`
}

func Default() Config {
	return Config{
		Adapter: AdapterSim,
		Device:  "/dev/i2c-1",
		Speed:   100,
		Serial: Serial{
			Baud: 115200,
		},
		Console: Console{
			BufferSize: 80,
			MaxWords:   16,
			Interval:   40 * time.Millisecond,
			CRLF:       true,
			Color:      true,
		},
		Limits: i2c.DefaultLimits(),
	}
}

// Load reads a YAML file on top of the defaults. Keys absent from the file
// keep their default values.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("could not open config: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	err := dec.Decode(&cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("could not decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Adapter {
	case AdapterSim, AdapterGeneric, AdapterNanoPi, AdapterMCP2221:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAdapter, c.Adapter)
	}
	if c.Serial.Port != "" && c.Serial.Baud <= 0 {
		return fmt.Errorf("invalid baud rate %d", c.Serial.Baud)
	}
	return nil
}

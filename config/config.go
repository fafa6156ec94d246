// Package config describes a hardware platform and builds its resources.
package config

import (
	"fmt"
	"os"

	"github.com/sarchlab/akita/v4/sim"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/podsim/interconnect"
)

// Config holds the parameters of a platform.
type Config struct {
	NumArrays         int `yaml:"num_arrays"`
	ArrayRows         int `yaml:"array_rows"`
	ArrayCols         int `yaml:"array_cols"`
	NumPostProcessors int `yaml:"num_post_processors"`

	// NumBanks is the number of banks of each kind.
	NumBanks int `yaml:"num_banks"`

	// BankSize is the capacity of one bank in bytes.
	BankSize int `yaml:"bank_size"`

	// BandwidthGiBps is the Dram bandwidth in GiB per second.
	BandwidthGiBps float64 `yaml:"bandwidth_gbps"`
	FreqGHz        float64 `yaml:"freq_ghz"`
	PrefetchLimit  int     `yaml:"prefetch_limit"`
	Interconnect   string  `yaml:"interconnect"`

	// Precision is the number of bytes per element.
	Precision int `yaml:"precision"`

	// SearchWorkers above one enables the parallel placement search.
	SearchWorkers int `yaml:"search_workers"`

	// MaxPlacementRounds bounds how many rounds past its earliest round an op
	// may be offered before compilation fails.
	MaxPlacementRounds int `yaml:"max_placement_rounds"`

	AbortOnLivelock bool `yaml:"abort_on_livelock"`

	// PPLatency is the depth of the post-processor output pipeline.
	PPLatency int `yaml:"pp_latency"`
}

// Default returns the configuration of a 16-array platform of 128 by 128
// arrays.
func Default() Config {
	return Config{
		NumArrays:          16,
		ArrayRows:          128,
		ArrayCols:          128,
		BankSize:           524288,
		BandwidthGiBps:     1200,
		FreqGHz:            1,
		PrefetchLimit:      10,
		Interconnect:       string(interconnect.TypeCrossbar),
		Precision:          1,
		SearchWorkers:      1,
		MaxPlacementRounds: 1 << 20,
		AbortOnLivelock:    true,
		PPLatency:          1,
	}
}

// Load reads a YAML file on top of the defaults.
func Load(path string) (Config, error) {
	c := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	c = c.WithDerivedDefaults()
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return c, nil
}

// WithDerivedDefaults fills the fields that default to other fields.
func (c Config) WithDerivedDefaults() Config {
	if c.NumPostProcessors == 0 {
		c.NumPostProcessors = c.NumArrays
	}

	if c.NumBanks == 0 {
		c.NumBanks = c.NumArrays
	}

	if c.FreqGHz == 0 {
		c.FreqGHz = 1
	}

	if c.Precision == 0 {
		c.Precision = 1
	}

	return c
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.NumArrays <= 0:
		return fmt.Errorf("num_arrays must be positive")
	case c.ArrayRows <= 0 || c.ArrayCols <= 0:
		return fmt.Errorf("array size must be positive")
	case c.NumPostProcessors <= 0:
		return fmt.Errorf("num_post_processors must be positive")
	case c.NumBanks <= 0:
		return fmt.Errorf("num_banks must be positive")
	case c.BankSize <= 0:
		return fmt.Errorf("bank_size must be positive")
	case c.BandwidthGiBps <= 0:
		return fmt.Errorf("bandwidth_gbps must be positive")
	case c.FreqGHz <= 0:
		return fmt.Errorf("freq_ghz must be positive")
	case c.PrefetchLimit < 0:
		return fmt.Errorf("prefetch_limit must not be negative")
	case c.Precision <= 0:
		return fmt.Errorf("precision must be positive")
	case c.MaxPlacementRounds <= 0:
		return fmt.Errorf("max_placement_rounds must be positive")
	case c.PPLatency < 0:
		return fmt.Errorf("pp_latency must not be negative")
	}

	if _, err := c.InterconnectType(); err != nil {
		return err
	}

	return nil
}

// InterconnectType parses the interconnect topology.
func (c Config) InterconnectType() (interconnect.Type, error) {
	return interconnect.ParseType(c.Interconnect)
}

// Freq returns the clock of the platform.
func (c Config) Freq() sim.Freq {
	return sim.Freq(c.FreqGHz) * sim.GHz
}

// BytesPerCycle converts the Dram bandwidth into bytes per cycle.
func (c Config) BytesPerCycle() float64 {
	return c.BandwidthGiBps * float64(1<<30) / (c.FreqGHz * 1e9)
}

// Ports returns the port count the networks must offer.
func (c Config) Ports() int {
	return max(c.NumArrays, c.NumPostProcessors, c.NumBanks)
}

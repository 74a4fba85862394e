// config.go — Manager configuration (spec §6, SPEC_FULL.md §6.4)
//
// Config mirrors spec.md §6's enumerated options. LoadConfig decodes a
// JSON document the same shape the teacher decodes its RPC responses with,
// using github.com/sugawarayuuta/sonnet in place of encoding/json so the
// config format matches the rest of the corpus without adding a bespoke
// parser.
package manager

import (
	"fmt"
	"os"

	"github.com/sugawarayuuta/sonnet"
	"golang.org/x/sys/unix"

	"debra/constants"
	"debra/limbo"
)

// Config holds the tunables spec.md §6 lists as recognized options.
type Config struct {
	MaxThreads             int
	LimboBagCapacity       int
	EpochsBeforeNeutralize uint64
	NeutralizationSignal   unix.Signal
}

// DefaultConfig returns the package defaults from the constants package.
func DefaultConfig() Config {
	return Config{
		MaxThreads:             constants.DefaultMaxThreads,
		LimboBagCapacity:       constants.DefaultBagCapacity,
		EpochsBeforeNeutralize: constants.DefaultEpochsBeforeNeutralize,
		NeutralizationSignal:   constants.DefaultNeutralizationSignal,
	}
}

// rawConfig mirrors Config with pointer fields so LoadConfig can tell a
// present-but-zero value from an absent one and apply defaults only to
// the latter.
type rawConfig struct {
	MaxThreads             *int    `json:"max_threads"`
	LimboBagCapacity       *int    `json:"limbo_bag_capacity"`
	EpochsBeforeNeutralize *uint64 `json:"epochs_before_neutralize"`
	NeutralizationSignal   *int    `json:"neutralization_signal"`
}

// LoadConfig decodes a JSON config file at path, filling any absent field
// from DefaultConfig. limbo.Capacity is a compile-time array bound, so a
// config that names a different bag capacity is rejected rather than
// silently ignored.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var raw rawConfig
	if err := sonnet.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("manager: decode config: %w", err)
	}

	cfg := DefaultConfig()
	if raw.MaxThreads != nil {
		cfg.MaxThreads = *raw.MaxThreads
	}
	if raw.LimboBagCapacity != nil {
		cfg.LimboBagCapacity = *raw.LimboBagCapacity
	}
	if raw.EpochsBeforeNeutralize != nil {
		cfg.EpochsBeforeNeutralize = *raw.EpochsBeforeNeutralize
	}
	if raw.NeutralizationSignal != nil {
		cfg.NeutralizationSignal = unix.Signal(*raw.NeutralizationSignal)
	}

	if cfg.LimboBagCapacity != limbo.Capacity {
		return Config{}, fmt.Errorf("manager: limbo_bag_capacity %d does not match compiled-in capacity %d", cfg.LimboBagCapacity, limbo.Capacity)
	}
	if cfg.MaxThreads <= 0 || cfg.MaxThreads > constants.MaxThreadsHardCap {
		return Config{}, fmt.Errorf("manager: max_threads %d out of range (1..%d)", cfg.MaxThreads, constants.MaxThreadsHardCap)
	}
	return cfg, nil
}

package pipeline

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Default input list names.
const (
	DefaultInputCaloHitList = "CaloHits"
	DefaultInputTrackList   = "Tracks"
)

// Config describes the reconstruction pipeline.
type Config struct {
	// InputCaloHitList and InputTrackList name the lists the event's hits and
	// tracks are loaded into. Both become current before the first algorithm runs.
	InputCaloHitList string `mapstructure:"input_calo_hit_list" yaml:"input_calo_hit_list"`
	InputTrackList   string `mapstructure:"input_track_list" yaml:"input_track_list"`

	// Algorithms run in order for every event.
	Algorithms []AlgorithmConfig `mapstructure:"algorithms" yaml:"algorithms"`
}

// AlgorithmConfig describes one algorithm instance and its daughters.
type AlgorithmConfig struct {
	Type string `mapstructure:"type" yaml:"type"`
	// Name identifies the instance and prefixes its temporary list names.
	// Defaults to the type plus a short random suffix.
	Name      string            `mapstructure:"name" yaml:"name,omitempty"`
	Settings  map[string]any    `mapstructure:"settings" yaml:"settings,omitempty"`
	Daughters []AlgorithmConfig `mapstructure:"daughters" yaml:"daughters,omitempty"`
}

// DefaultConfig returns a config with the default input lists and no algorithms.
func DefaultConfig() Config {
	return Config{
		InputCaloHitList: DefaultInputCaloHitList,
		InputTrackList:   DefaultInputTrackList,
	}
}

// Validate checks the input list names and that every algorithm names a type.
func (c Config) Validate() error {
	if c.InputCaloHitList == "" || c.InputTrackList == "" {
		return fmt.Errorf("input list names must not be empty")
	}
	if c.InputCaloHitList == nullListName || c.InputTrackList == nullListName {
		return fmt.Errorf("input lists cannot use the reserved name %q", nullListName)
	}
	var check func(path string, algs []AlgorithmConfig) error
	check = func(path string, algs []AlgorithmConfig) error {
		for i, a := range algs {
			at := fmt.Sprintf("%s[%d]", path, i)
			if a.Type == "" {
				return fmt.Errorf("%s: type is required", at)
			}
			if err := check(at+".daughters", a.Daughters); err != nil {
				return err
			}
		}
		return nil
	}
	return check("algorithms", c.Algorithms)
}

// DecodeSettings decodes settings into out, a pointer to a struct already
// holding the defaults. Keys use the struct's mapstructure tags; values are
// weakly typed so "10" and 10 both decode into an int field. Unknown keys are
// an error.
func DecodeSettings(settings map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("settings decoder: %w", err)
	}
	if err := dec.Decode(settings); err != nil {
		return fmt.Errorf("decode settings: %w", err)
	}
	return nil
}

// Package config is the external configuration surface: the JSON
// GTPConfig.txt wire contract both processes read, and the YAML filter
// tuning file the producer reads for per-channel-group smoothing.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gtprovider/gtp/filter"
	"github.com/gtprovider/gtp/record"
	"gopkg.in/yaml.v3"
)

// Hotkey mirrors the producer's Windows-specific pause-toggle binding. It is
// adapter glue, not core behavior (spec.md §9 "Hotkey / GUI coupling") —
// carried here only so GTPConfig.txt round-trips losslessly.
type Hotkey struct {
	Enabled bool   `json:"enabled"`
	Key     string `json:"key"`
	Windows bool   `json:"windows"`
	Alt     bool   `json:"alt"`
	Shift   bool   `json:"shift"`
	Ctrl    bool   `json:"ctrl"`
}

// Config is the full GTPConfig.txt contract: producer and consumer each use
// the subset relevant to them (spec.md §6).
type Config struct {
	// Consumer-side.
	UDPPort    uint16 `json:"udpPort"`
	ReceiveUDP bool   `json:"receiveUDP"`

	// Producer-side.
	UDPIP   string `json:"udpIP"`
	SendUDP bool   `json:"sendUDP"`
	FillMMF bool   `json:"fillMMF"`
	Hotkey  Hotkey `json:"hotkey"`
}

// Defaults returns the documented default values (spec.md §6: udpPort 6969,
// receiveUDP false), with udpIP set to 127.0.0.1; the remaining fields are
// zero-valued until an operator opts in.
func Defaults() Config {
	return Config{
		UDPPort:    6969,
		ReceiveUDP: false,
		UDPIP:      "127.0.0.1",
	}
}

// Load reads and parses a GTPConfig.txt (JSON) file, starting from
// Defaults() so a partial file only overrides what it mentions.
func Load(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// FilterProfile is one channel group's entry in gtp-filters.yaml.
type FilterProfile struct {
	Channels []string `yaml:"channels"`
	Stages   int      `yaml:"stages"`
	Alpha    float64  `yaml:"alpha"`
}

// FilterTuning is the internal gtp-filters.yaml contract, distinct from
// GTPConfig.txt: it tunes the nested-smoother cascade (spec.md §4.2) rather
// than transport, and has no analog in the original JSON wire format.
type FilterTuning struct {
	Default FilterProfile   `yaml:"default"`
	Groups  []FilterProfile `yaml:"groups"`
}

// LoadFilterTuning parses a gtp-filters.yaml file into the schema's
// DataKey -> filter.Profile table filter.New expects, resolving each
// group's named channels against schema and reporting any name no schema
// field recognizes.
func LoadFilterTuning(path string, schema *record.Schema) (map[record.DataKey]filter.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var tuning FilterTuning
	if err := yaml.Unmarshal(data, &tuning); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	groups := make(map[record.DataKey]filter.Profile)
	for _, g := range tuning.Groups {
		profile := filter.Profile{Stages: g.Stages, Alpha: g.Alpha}
		for _, name := range g.Channels {
			fd, ok := schema.ByName(name)
			if !ok {
				return nil, fmt.Errorf("config: %s: unknown channel %q", path, name)
			}
			groups[fd.Key] = profile
		}
	}
	return groups, nil
}

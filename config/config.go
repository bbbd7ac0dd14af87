// Package config keeps the teacher's configuration shape (go:embed a
// default TOML, parse with BurntSushi/toml, validate, expose
// accessors) repointed at the domain this module actually has: named
// format presets and ImageBuilder defaults (spec §10.3), rather than the
// teacher's per-drive-profile/built-in-image catalog.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/fluxfox-go/fluxfox/bitstream"
	"github.com/fluxfox-go/fluxfox/disk"
)

//go:embed standardformats.toml
var defaultConfigData []byte

// FormatPreset is one named (cylinders, heads, sectors/track, sector
// size, data rate, rpm, encoding) tuple, the TOML-editable counterpart
// to disk.StandardFormatSpec. It lets new geometries be added without
// touching Go source, the same data/code separation the teacher's
// config.Drive table gives drive profiles.
type FormatPreset struct {
	Name             string `toml:"name"`
	Cylinders        int    `toml:"cylinders"`
	Heads            int    `toml:"heads"`
	SectorsPerTrack  int    `toml:"sectors_per_track"`
	SectorSizeCode   int    `toml:"sector_size_code"`
	DataRateKb       int    `toml:"data_rate_kb"`
	RPM              int    `toml:"rpm"`
	Encoding         string `toml:"encoding"`
}

// Spec converts the preset to a disk.StandardFormatSpec for use by
// imagebuilder.Builder.
func (p FormatPreset) Spec() (disk.StandardFormatSpec, error) {
	enc, err := p.BitstreamEncoding()
	if err != nil {
		return disk.StandardFormatSpec{}, err
	}
	return disk.StandardFormatSpec{
		Cylinders:      p.Cylinders,
		Heads:          p.Heads,
		SectorsPerTrk:  p.SectorsPerTrack,
		SectorSizeCode: byte(p.SectorSizeCode),
		DataRateKb:     p.DataRateKb,
		RPM:            p.RPM,
		Encoding:       enc,
	}, nil
}

// BitstreamEncoding resolves the preset's "MFM"/"FM" string to a
// bitstream.Encoding value.
func (p FormatPreset) BitstreamEncoding() (bitstream.Encoding, error) {
	switch p.Encoding {
	case "MFM":
		return bitstream.MFM, nil
	case "FM":
		return bitstream.FM, nil
	default:
		return 0, fmt.Errorf("config: format preset %q has unknown encoding %q (must be MFM or FM)", p.Name, p.Encoding)
	}
}

func (p FormatPreset) validate() error {
	if p.Name == "" {
		return fmt.Errorf("config: format preset has empty name")
	}
	if p.Cylinders <= 0 || p.Heads <= 0 || p.SectorsPerTrack <= 0 {
		return fmt.Errorf("config: format preset %q has non-positive cylinders/heads/sectors_per_track", p.Name)
	}
	if p.SectorSizeCode < 0 || p.SectorSizeCode > 7 {
		return fmt.Errorf("config: format preset %q has sector_size_code %d outside 0-7", p.Name, p.SectorSizeCode)
	}
	if p.DataRateKb <= 0 || p.RPM <= 0 {
		return fmt.Errorf("config: format preset %q has non-positive data_rate_kb/rpm", p.Name)
	}
	if _, err := p.BitstreamEncoding(); err != nil {
		return err
	}
	return nil
}

// BuilderDefaults mirrors imagebuilder.Builder's configurable knobs, so
// a deployment can change the default creator tag or resolution by
// editing TOML.
type BuilderDefaults struct {
	DefaultCreatorTag string `toml:"default_creator_tag"`
	DefaultResolution string `toml:"default_resolution"`
}

// Resolution resolves DefaultResolution to a disk.Resolution value.
func (b BuilderDefaults) Resolution() (disk.Resolution, error) {
	switch b.DefaultResolution {
	case "MetaSector":
		return disk.ResolutionMetaSector, nil
	case "BitStream", "":
		return disk.ResolutionBitStream, nil
	case "FluxStream":
		return disk.ResolutionFluxStream, nil
	default:
		return 0, fmt.Errorf("config: unknown default_resolution %q", b.DefaultResolution)
	}
}

// Config is the parsed TOML configuration: ImageBuilder defaults plus a
// list of named format presets.
type Config struct {
	Builder BuilderDefaults `toml:"builder"`
	Format  []FormatPreset  `toml:"format"`

	byName map[string]FormatPreset
}

// Preset looks up a format preset by name.
func (c *Config) Preset(name string) (FormatPreset, bool) {
	p, ok := c.byName[name]
	return p, ok
}

// PresetNames returns every configured preset name, in declaration
// order.
func (c *Config) PresetNames() []string {
	names := make([]string, len(c.Format))
	for i, f := range c.Format {
		names[i] = f.Name
	}
	return names
}

// Load parses and validates a configuration from r.
func Load(r io.Reader) (*Config, error) {
	var c Config
	if _, err := toml.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("config: failed to parse TOML: %w", err)
	}

	c.byName = make(map[string]FormatPreset, len(c.Format))
	for _, f := range c.Format {
		if err := f.validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byName[f.Name]; dup {
			return nil, fmt.Errorf("config: duplicate format preset name %q", f.Name)
		}
		c.byName[f.Name] = f
	}
	if _, err := c.Builder.Resolution(); err != nil {
		return nil, err
	}
	return &c, nil
}

var (
	defaultOnce sync.Once
	defaultCfg  *Config
	defaultErr  error
)

// Default returns the embedded default configuration, parsed once and
// cached.
func Default() (*Config, error) {
	defaultOnce.Do(func() {
		defaultCfg, defaultErr = Load(bytes.NewReader(defaultConfigData))
	})
	return defaultCfg, defaultErr
}

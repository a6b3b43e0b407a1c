package boot

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/joshuapare/kmem/internal/format"
	"github.com/joshuapare/kmem/mem/global"
	"github.com/joshuapare/kmem/mem/region"
)

// DefaultHeapSize is the heap size used when the config leaves it unset.
const DefaultHeapSize = 4 * format.Mb

// Config describes the machine and heap to boot. It is normally read from a
// YAML file:
//
//	memory_map:
//	  - {base: 0x0, length: 0x9fc00, type: available}
//	  - {base: 0x100000, length: 0x7ee0000, type: available}
//	heap:
//	  size: 0x400000
//	  policy: freelist
//	tracking: true
type Config struct {
	MemoryMap []AreaConfig `yaml:"memory_map"`
	Heap      HeapConfig   `yaml:"heap"`
	Tracking  bool         `yaml:"tracking"` // Detect double free and mismatched layouts
	Debug     bool         `yaml:"debug"`    // Print the memory map on the boot console
}

// AreaConfig is one memory map entry as written in the config file.
type AreaConfig struct {
	Base   uint64 `yaml:"base"`
	Length uint64 `yaml:"length"`
	Type   string `yaml:"type"`
}

// HeapConfig selects the heap size and policy.
type HeapConfig struct {
	Size   uint64 `yaml:"size"`
	Policy string `yaml:"policy"` // "freelist" or "bump"; empty selects the build default
}

// DefaultConfig returns the memory map QEMU reports for a 128 MiB guest and
// a 4 MiB heap.
func DefaultConfig() Config {
	return Config{
		MemoryMap: []AreaConfig{
			{Base: 0x0, Length: 0x9fc00, Type: "available"},
			{Base: 0x9fc00, Length: 0x400, Type: "reserved"},
			{Base: 0xf0000, Length: 0x10000, Type: "reserved"},
			{Base: 0x100000, Length: 0x7ee0000, Type: "available"},
			{Base: 0x7fe0000, Length: 0x20000, Type: "reserved"},
			{Base: 0xfffc0000, Length: 0x40000, Type: "reserved"},
		},
		Heap: HeapConfig{Size: DefaultHeapSize},
	}
}

// LoadConfig reads a YAML config. Fields the file omits keep their
// DefaultConfig values; a file that lists a memory map replaces the default
// map entirely.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML config bytes over DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Heap.Size == 0 {
		cfg.Heap.Size = DefaultHeapSize
	}
	return cfg, nil
}

// Map converts the config's memory map.
func (c Config) Map() (region.MemoryMap, error) {
	mm := make(region.MemoryMap, 0, len(c.MemoryMap))
	for i, a := range c.MemoryMap {
		typ, err := region.ParseType(a.Type)
		if err != nil {
			return nil, fmt.Errorf("memory_map[%d]: %w", i, err)
		}
		mm = append(mm, region.Area{
			Region: region.Region{Start: a.Base, Length: a.Length},
			Type:   typ,
		})
	}
	if err := mm.Validate(); err != nil {
		return nil, err
	}
	return mm, nil
}

// Policy resolves the configured heap policy.
func (c Config) Policy() (global.Policy, error) {
	return global.ParsePolicy(c.Heap.Policy)
}

// Marshal encodes the config as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

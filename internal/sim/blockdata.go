// internal/sim/blockdata.go
package sim

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Default table sizes served when no block data file exists.
const (
	DefaultBits      = 4
	DefaultRegisters = 8
)

// BlockData seeds the four Modbus tables from address 0.
type BlockData struct {
	DI []uint8  `yaml:"di"` // 0 | 1
	CO []uint8  `yaml:"co"` // 0 | 1
	IR []uint16 `yaml:"ir"`
	HR []uint16 `yaml:"hr"`
}

// DefaultBlockData is all zeros: 4 bits per bit table, 8 registers per register table.
func DefaultBlockData() BlockData {
	return BlockData{
		DI: make([]uint8, DefaultBits),
		CO: make([]uint8, DefaultBits),
		IR: make([]uint16, DefaultRegisters),
		HR: make([]uint16, DefaultRegisters),
	}
}

// LoadBlockData reads block data from path, overriding DefaultBlockData per key.
// A missing file yields DefaultBlockData and defaulted=true.
func LoadBlockData(path string) (bd BlockData, defaulted bool, err error) {
	if path == "" {
		return DefaultBlockData(), true, nil
	}

	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultBlockData(), true, nil
	}
	if err != nil {
		return BlockData{}, false, fmt.Errorf("sim: read %s: %w", path, err)
	}

	// keys absent from the file keep their default table
	bd = DefaultBlockData()
	if err := yaml.Unmarshal(b, &bd); err != nil {
		return BlockData{}, false, fmt.Errorf("sim: YAML file format error in %s: %w", path, err)
	}
	if err := bd.Validate(); err != nil {
		return BlockData{}, false, fmt.Errorf("sim: %s: %w", path, err)
	}
	return bd, false, nil
}

// Validate checks bit tables hold only 0 and 1.
func (bd BlockData) Validate() error {
	for name, bits := range map[string][]uint8{"di": bd.DI, "co": bd.CO} {
		for i, v := range bits {
			if v > 1 {
				return fmt.Errorf("%s[%d]=%d: bit values must be 0 or 1", name, i, v)
			}
		}
	}
	return nil
}

package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DropEntry is one possible item drop: chance is per-kill in [0,1].
type DropEntry struct {
	ItemID int32   `yaml:"item_id"`
	Chance float64 `yaml:"chance"`
	Min    int32   `yaml:"min"`
	Max    int32   `yaml:"max"`
}

// DropTable is the loot definition a monster template points at.
type DropTable struct {
	ID      int32       `yaml:"id"`
	GoldMin int64       `yaml:"gold_min"`
	GoldMax int64       `yaml:"gold_max"`
	Entries []DropEntry `yaml:"entries"`
}

// DropTables holds all drop tables indexed by ID.
type DropTables struct {
	tables map[int32]*DropTable
}

func (t *DropTables) Get(id int32) *DropTable { return t.tables[id] }
func (t *DropTables) Count() int              { return len(t.tables) }

// NewDropTables builds the set from definitions.
func NewDropTables(defs []DropTable) *DropTables {
	t := &DropTables{tables: make(map[int32]*DropTable, len(defs))}
	for i := range defs {
		d := &defs[i]
		t.tables[d.ID] = d
	}
	return t
}

type dropListFile struct {
	Tables []DropTable `yaml:"drop_tables"`
}

// LoadDropTables loads drop tables from YAML.
func LoadDropTables(path string) (*DropTables, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read drops: %w", err)
	}
	var f dropListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse drops: %w", err)
	}
	return NewDropTables(f.Tables), nil
}

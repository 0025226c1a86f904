package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Equipment slot types.
const (
	SlotNone   = 0
	SlotWeapon = 1
	SlotArmor  = 2
	SlotHelmet = 3
	SlotBoots  = 4
	SlotRing   = 5
)

// ItemDef holds a single item template.
type ItemDef struct {
	ID       int32  `yaml:"id"`
	Name     string `yaml:"name"`
	SlotType int32  `yaml:"slot_type"` // SlotNone = not equippable
	MaxStack int32  `yaml:"max_stack"` // 1 = not stackable

	BuyPrice  int64 `yaml:"buy_price"`  // 0 = not sold by vendors
	SellPrice int64 `yaml:"sell_price"` // 0 = vendors refuse it

	AttackPower int32 `yaml:"attack_power"`
	Defense     int32 `yaml:"defense"`
	ReqLevel    int32 `yaml:"req_level"`
}

// Equippable reports whether the item goes into a gear slot.
func (d *ItemDef) Equippable() bool { return d.SlotType != SlotNone }

// ItemTable holds all item templates indexed by ID.
type ItemTable struct {
	items map[int32]*ItemDef
}

func (t *ItemTable) Get(id int32) *ItemDef { return t.items[id] }
func (t *ItemTable) Count() int            { return len(t.items) }

// NewItemTable builds a table from definitions.
func NewItemTable(defs []ItemDef) *ItemTable {
	t := &ItemTable{items: make(map[int32]*ItemDef, len(defs))}
	for i := range defs {
		it := &defs[i]
		t.items[it.ID] = it
	}
	return t
}

type itemListFile struct {
	Items []ItemDef `yaml:"items"`
}

// LoadItemTable loads item templates from YAML.
func LoadItemTable(path string) (*ItemTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read items: %w", err)
	}
	var f itemListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse items: %w", err)
	}
	return NewItemTable(f.Items), nil
}

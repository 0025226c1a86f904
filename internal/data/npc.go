package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// NpcDef is a non-combat NPC: currently only vendors.
type NpcDef struct {
	ID     int32   `yaml:"id"`
	Name   string  `yaml:"name"`
	ZoneID int32   `yaml:"zone_id"`
	X      float32 `yaml:"x"`
	Y      float32 `yaml:"y"`
	Z      float32 `yaml:"z"`

	// Items the vendor sells, by item template ID.
	Sells []int32 `yaml:"sells"`
}

// Sells reports whether the vendor stocks an item.
func (n *NpcDef) SellsItem(itemID int32) bool {
	for _, id := range n.Sells {
		if id == itemID {
			return true
		}
	}
	return false
}

// NpcTable holds all NPC definitions indexed by ID.
type NpcTable struct {
	npcs map[int32]*NpcDef
}

func (t *NpcTable) Get(id int32) *NpcDef { return t.npcs[id] }
func (t *NpcTable) Count() int           { return len(t.npcs) }

// ForZone returns the NPCs placed in a zone.
func (t *NpcTable) ForZone(zoneID int32) []*NpcDef {
	var result []*NpcDef
	for _, n := range t.npcs {
		if n.ZoneID == zoneID {
			result = append(result, n)
		}
	}
	return result
}

// NewNpcTable builds a table from definitions.
func NewNpcTable(defs []NpcDef) *NpcTable {
	t := &NpcTable{npcs: make(map[int32]*NpcDef, len(defs))}
	for i := range defs {
		n := &defs[i]
		t.npcs[n.ID] = n
	}
	return t
}

type npcListFile struct {
	Npcs []NpcDef `yaml:"npcs"`
}

// LoadNpcTable loads NPC definitions from YAML.
func LoadNpcTable(path string) (*NpcTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read npcs: %w", err)
	}
	var f npcListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse npcs: %w", err)
	}
	return NewNpcTable(f.Npcs), nil
}

package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ZoneDef describes one map region: its walkable bounds and the point where
// entering players appear.
type ZoneDef struct {
	ID     int32   `yaml:"id"`
	Name   string  `yaml:"name"`
	MinX   float32 `yaml:"min_x"`
	MaxX   float32 `yaml:"max_x"`
	MinZ   float32 `yaml:"min_z"`
	MaxZ   float32 `yaml:"max_z"`
	SpawnX float32 `yaml:"spawn_x"`
	SpawnY float32 `yaml:"spawn_y"`
	SpawnZ float32 `yaml:"spawn_z"`

	// Zones reachable by a zone-change request. An empty list means the
	// zone is open to travel from anywhere.
	Adjacent []int32 `yaml:"adjacent"`
}

// LinkedTo reports whether a zone-change to target is allowed from here.
func (z *ZoneDef) LinkedTo(target int32) bool {
	if len(z.Adjacent) == 0 {
		return true
	}
	for _, id := range z.Adjacent {
		if id == target {
			return true
		}
	}
	return false
}

// ZoneTable holds all zones indexed by ID.
type ZoneTable struct {
	zones map[int32]*ZoneDef
}

func (t *ZoneTable) Get(id int32) *ZoneDef { return t.zones[id] }
func (t *ZoneTable) Count() int            { return len(t.zones) }

// All returns every zone definition.
func (t *ZoneTable) All() []*ZoneDef {
	result := make([]*ZoneDef, 0, len(t.zones))
	for _, z := range t.zones {
		result = append(result, z)
	}
	return result
}

// NewZoneTable builds a table from definitions.
func NewZoneTable(defs []ZoneDef) *ZoneTable {
	t := &ZoneTable{zones: make(map[int32]*ZoneDef, len(defs))}
	for i := range defs {
		z := &defs[i]
		t.zones[z.ID] = z
	}
	return t
}

type zoneListFile struct {
	Zones []ZoneDef `yaml:"zones"`
}

// LoadZoneTable loads zone definitions from YAML.
func LoadZoneTable(path string) (*ZoneTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read zones: %w", err)
	}
	var f zoneListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse zones: %w", err)
	}
	return NewZoneTable(f.Zones), nil
}

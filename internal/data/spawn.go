package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SpawnDef places count monsters of one template around a point. Each
// channel of the zone gets its own copies.
type SpawnDef struct {
	ZoneID    int32   `yaml:"zone_id"`
	MonsterID int32   `yaml:"monster_id"`
	X         float32 `yaml:"x"`
	Y         float32 `yaml:"y"`
	Z         float32 `yaml:"z"`
	Count     int     `yaml:"count"`
	Radius    float32 `yaml:"radius"` // scatter radius around the point
}

// SpawnTable holds spawn definitions grouped by zone.
type SpawnTable struct {
	byZone map[int32][]*SpawnDef
	total  int
}

// ForZone returns the spawn definitions of one zone.
func (t *SpawnTable) ForZone(zoneID int32) []*SpawnDef { return t.byZone[zoneID] }
func (t *SpawnTable) Count() int                       { return t.total }

// NewSpawnTable builds a table from definitions.
func NewSpawnTable(defs []SpawnDef) *SpawnTable {
	t := &SpawnTable{byZone: make(map[int32][]*SpawnDef), total: len(defs)}
	for i := range defs {
		s := &defs[i]
		t.byZone[s.ZoneID] = append(t.byZone[s.ZoneID], s)
	}
	return t
}

type spawnListFile struct {
	Spawns []SpawnDef `yaml:"spawns"`
}

// LoadSpawnTable loads spawn definitions from YAML.
func LoadSpawnTable(path string) (*SpawnTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spawns: %w", err)
	}
	var f spawnListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse spawns: %w", err)
	}
	return NewSpawnTable(f.Spawns), nil
}

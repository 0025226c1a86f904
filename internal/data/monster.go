package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MonsterDef holds a single monster template.
type MonsterDef struct {
	ID          int32   `yaml:"id"`
	Name        string  `yaml:"name"`
	Level       int32   `yaml:"level"`
	MaxHP       int32   `yaml:"max_hp"`
	AttackPower int32   `yaml:"attack_power"`
	Defense     int32   `yaml:"defense"`
	MoveSpeed   float32 `yaml:"move_speed"`

	AggroRange  float32 `yaml:"aggro_range"`  // distance at which it notices players
	AttackRange float32 `yaml:"attack_range"` // melee reach
	LeashRange  float32 `yaml:"leash_range"`  // distance from spawn before it gives up

	AttackIntervalMs int32 `yaml:"attack_interval_ms"`
	RespawnMs        int32 `yaml:"respawn_ms"`

	XP          int64 `yaml:"xp"`
	LootTableID int32 `yaml:"loot_table_id"`
}

// MonsterTable holds all monster templates indexed by ID.
type MonsterTable struct {
	monsters map[int32]*MonsterDef
}

func (t *MonsterTable) Get(id int32) *MonsterDef { return t.monsters[id] }
func (t *MonsterTable) Count() int               { return len(t.monsters) }

// NewMonsterTable builds a table from definitions.
func NewMonsterTable(defs []MonsterDef) *MonsterTable {
	t := &MonsterTable{monsters: make(map[int32]*MonsterDef, len(defs))}
	for i := range defs {
		m := &defs[i]
		t.monsters[m.ID] = m
	}
	return t
}

type monsterListFile struct {
	Monsters []MonsterDef `yaml:"monsters"`
}

// LoadMonsterTable loads monster templates from YAML.
func LoadMonsterTable(path string) (*MonsterTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read monsters: %w", err)
	}
	var f monsterListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse monsters: %w", err)
	}
	return NewMonsterTable(f.Monsters), nil
}

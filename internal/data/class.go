package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ClassDef holds a playable class's base attributes and per-level growth.
type ClassDef struct {
	ID   int32  `yaml:"id"`
	Name string `yaml:"name"`

	BaseHP    int32 `yaml:"base_hp"`
	BaseMP    int32 `yaml:"base_mp"`
	BaseStr   int32 `yaml:"base_str"`
	BaseSta   int32 `yaml:"base_sta"`
	BaseDex   int32 `yaml:"base_dex"`
	BaseIntel int32 `yaml:"base_intel"`

	HPPerLevel int32 `yaml:"hp_per_level"`
	MPPerLevel int32 `yaml:"mp_per_level"`

	AttackRange float32 `yaml:"attack_range"`
}

// MaxHPAt returns the class's max HP at a level, before gear and stamina.
func (c *ClassDef) MaxHPAt(level int32) int32 {
	return c.BaseHP + c.HPPerLevel*(level-1)
}

// MaxMPAt returns the class's max MP at a level.
func (c *ClassDef) MaxMPAt(level int32) int32 {
	return c.BaseMP + c.MPPerLevel*(level-1)
}

// ClassTable holds all classes indexed by ID.
type ClassTable struct {
	classes map[int32]*ClassDef
}

func (t *ClassTable) Get(id int32) *ClassDef { return t.classes[id] }
func (t *ClassTable) Count() int             { return len(t.classes) }

// NewClassTable builds a table from definitions.
func NewClassTable(defs []ClassDef) *ClassTable {
	t := &ClassTable{classes: make(map[int32]*ClassDef, len(defs))}
	for i := range defs {
		c := &defs[i]
		t.classes[c.ID] = c
	}
	return t
}

type classListFile struct {
	Classes []ClassDef `yaml:"classes"`
}

// LoadClassTable loads class definitions from YAML.
func LoadClassTable(path string) (*ClassTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read classes: %w", err)
	}
	var f classListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse classes: %w", err)
	}
	return NewClassTable(f.Classes), nil
}

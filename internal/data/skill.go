package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SkillDef holds a single skill template.
type SkillDef struct {
	ID         uint32  `yaml:"id"`
	Name       string  `yaml:"name"`
	ClassID    int32   `yaml:"class_id"`    // 0 = usable by all classes
	LearnLevel int32   `yaml:"learn_level"` // level at which the class learns it
	MPCost     int32   `yaml:"mp_cost"`
	CooldownMs int32   `yaml:"cooldown_ms"`
	Range      float32 `yaml:"range"` // 0 = self
	Power      int32   `yaml:"power"` // added to attack power for the damage roll

	// PowerPerLevel scales the damage bonus with the caster's trained level
	// of the skill.
	PowerPerLevel int32 `yaml:"power_per_level"`
}

// SkillTable holds all skills indexed by ID.
type SkillTable struct {
	skills map[uint32]*SkillDef
}

func (t *SkillTable) Get(id uint32) *SkillDef { return t.skills[id] }
func (t *SkillTable) Count() int              { return len(t.skills) }

// LearnedBy returns the skill IDs a class knows at the given level, for
// seeding fresh characters and level-ups.
func (t *SkillTable) LearnedBy(classID, level int32) []uint32 {
	var result []uint32
	for id, s := range t.skills {
		if (s.ClassID == 0 || s.ClassID == classID) && s.LearnLevel <= level {
			result = append(result, id)
		}
	}
	return result
}

// NewSkillTable builds a table from definitions.
func NewSkillTable(defs []SkillDef) *SkillTable {
	t := &SkillTable{skills: make(map[uint32]*SkillDef, len(defs))}
	for i := range defs {
		s := &defs[i]
		t.skills[s.ID] = s
	}
	return t
}

type skillListFile struct {
	Skills []SkillDef `yaml:"skills"`
}

// LoadSkillTable loads skill definitions from YAML.
func LoadSkillTable(path string) (*SkillTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read skills: %w", err)
	}
	var f skillListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse skills: %w", err)
	}
	return NewSkillTable(f.Skills), nil
}

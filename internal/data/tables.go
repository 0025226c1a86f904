package data

import (
	"fmt"
	"path/filepath"
)

// Tables bundles every definition table the server loads at boot.
type Tables struct {
	Zones    *ZoneTable
	Classes  *ClassTable
	Skills   *SkillTable
	Items    *ItemTable
	Monsters *MonsterTable
	Drops    *DropTables
	Spawns   *SpawnTable
	Npcs     *NpcTable
}

// LoadAll reads every definition file under dir and cross-checks the
// references between them, so a dangling ID fails boot instead of a tick.
func LoadAll(dir string) (*Tables, error) {
	t := &Tables{}
	var err error
	if t.Zones, err = LoadZoneTable(filepath.Join(dir, "zones.yaml")); err != nil {
		return nil, err
	}
	if t.Classes, err = LoadClassTable(filepath.Join(dir, "classes.yaml")); err != nil {
		return nil, err
	}
	if t.Skills, err = LoadSkillTable(filepath.Join(dir, "skills.yaml")); err != nil {
		return nil, err
	}
	if t.Items, err = LoadItemTable(filepath.Join(dir, "items.yaml")); err != nil {
		return nil, err
	}
	if t.Monsters, err = LoadMonsterTable(filepath.Join(dir, "monsters.yaml")); err != nil {
		return nil, err
	}
	if t.Drops, err = LoadDropTables(filepath.Join(dir, "drops.yaml")); err != nil {
		return nil, err
	}
	if t.Spawns, err = LoadSpawnTable(filepath.Join(dir, "spawns.yaml")); err != nil {
		return nil, err
	}
	if t.Npcs, err = LoadNpcTable(filepath.Join(dir, "npcs.yaml")); err != nil {
		return nil, err
	}
	return t, t.verify()
}

func (t *Tables) verify() error {
	for _, m := range t.Monsters.monsters {
		if m.LootTableID != 0 && t.Drops.Get(m.LootTableID) == nil {
			return fmt.Errorf("monster %d references missing drop table %d", m.ID, m.LootTableID)
		}
	}
	for _, z := range t.Zones.All() {
		for _, s := range t.Spawns.ForZone(z.ID) {
			if t.Monsters.Get(s.MonsterID) == nil {
				return fmt.Errorf("spawn in zone %d references missing monster %d", z.ID, s.MonsterID)
			}
		}
	}
	for _, d := range t.Drops.tables {
		for _, e := range d.Entries {
			if t.Items.Get(e.ItemID) == nil {
				return fmt.Errorf("drop table %d references missing item %d", d.ID, e.ItemID)
			}
		}
	}
	for _, n := range t.Npcs.npcs {
		if t.Zones.Get(n.ZoneID) == nil {
			return fmt.Errorf("npc %d placed in missing zone %d", n.ID, n.ZoneID)
		}
		for _, id := range n.Sells {
			if t.Items.Get(id) == nil {
				return fmt.Errorf("npc %d sells missing item %d", n.ID, id)
			}
		}
	}
	return nil
}

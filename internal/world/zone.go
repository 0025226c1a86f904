package world

import (
	"fmt"

	"github.com/ebonreach/server/internal/data"
)

// Channel is one independent simulation instance of a zone. Entities in
// different channels never see each other.
type Channel struct {
	ID   int32
	Zone *Zone

	Players  map[uint64]*Player // by character/entity ID
	Monsters map[uint64]*Monster
	Loot     map[uint64]*LootDrop

	Grid *Grid
}

func newChannel(z *Zone, id int32, cellSize float32) *Channel {
	return &Channel{
		ID:       id,
		Zone:     z,
		Players:  make(map[uint64]*Player),
		Monsters: make(map[uint64]*Monster),
		Loot:     make(map[uint64]*LootDrop),
		Grid:     NewGrid(cellSize),
	}
}

// Zone is a named map region, sharded into channels.
type Zone struct {
	ID  int32
	Def *data.ZoneDef

	capacity int
	cellSize float32
	Channels []*Channel
}

func NewZone(def *data.ZoneDef, capacity int, cellSize float32) *Zone {
	z := &Zone{
		ID:       def.ID,
		Def:      def,
		capacity: capacity,
		cellSize: cellSize,
	}
	z.Channels = []*Channel{newChannel(z, 1, cellSize)}
	return z
}

// Channel returns the channel with the given ID, or nil.
func (z *Zone) Channel(id int32) *Channel {
	for _, ch := range z.Channels {
		if ch.ID == id {
			return ch
		}
	}
	return nil
}

// BestChannelFor picks the first channel with spare capacity, so low-numbered
// channels fill before later ones see traffic. When every channel is full a
// new one is appended; channels are never torn down at runtime.
func (z *Zone) BestChannelFor() *Channel {
	for _, ch := range z.Channels {
		if len(ch.Players) < z.capacity {
			return ch
		}
	}
	ch := newChannel(z, int32(len(z.Channels))+1, z.cellSize)
	z.Channels = append(z.Channels, ch)
	return ch
}

// Place puts a player into a channel and the channel's interest grid.
func (ch *Channel) Place(p *Player) {
	p.ZoneID = ch.Zone.ID
	p.ChannelID = ch.ID
	ch.Players[p.CharID] = p
	ch.Grid.Add(p.CharID, p.Pos)
}

// RemovePlayer takes a player out of a channel and its grid.
func (ch *Channel) RemovePlayer(p *Player) {
	delete(ch.Players, p.CharID)
	ch.Grid.Remove(p.CharID, p.Pos)
}

// AddMonster registers a monster in the channel and its grid.
func (ch *Channel) AddMonster(m *Monster) {
	ch.Monsters[m.ID] = m
	ch.Grid.Add(m.ID, m.Pos)
}

// AddLoot registers a loot drop in the channel and its grid.
func (ch *Channel) AddLoot(l *LootDrop) {
	ch.Loot[l.ID] = l
	ch.Grid.Add(l.ID, l.Pos)
}

// RemoveLoot drops a loot entity from the channel and its grid.
func (ch *Channel) RemoveLoot(l *LootDrop) {
	delete(ch.Loot, l.ID)
	ch.Grid.Remove(l.ID, l.Pos)
}

// Clamp snaps a position to the zone's bounds.
func (z *Zone) Clamp(pos Vec3) Vec3 {
	d := z.Def
	if pos.X < d.MinX {
		pos.X = d.MinX
	}
	if pos.X > d.MaxX {
		pos.X = d.MaxX
	}
	if pos.Z < d.MinZ {
		pos.Z = d.MinZ
	}
	if pos.Z > d.MaxZ {
		pos.Z = d.MaxZ
	}
	return pos
}

// Contains reports whether pos lies within the zone's bounds.
func (z *Zone) Contains(pos Vec3) bool {
	d := z.Def
	return pos.X >= d.MinX && pos.X <= d.MaxX && pos.Z >= d.MinZ && pos.Z <= d.MaxZ
}

// SpawnPoint is where entering players appear.
func (z *Zone) SpawnPoint() Vec3 {
	return Vec3{X: z.Def.SpawnX, Y: z.Def.SpawnY, Z: z.Def.SpawnZ}
}

func (z *Zone) String() string {
	return fmt.Sprintf("zone %d (%s, %d ch)", z.ID, z.Def.Name, len(z.Channels))
}

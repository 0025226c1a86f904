package world

// State is the whole in-memory world: every zone, channel, and live entity.
// Owned exclusively by the game loop goroutine; nothing in here is locked.
type State struct {
	Zones map[int32]*Zone

	// Players indexed both ways: sessions for network events, entity IDs
	// for combat and interest management.
	BySession map[uint64]*Player
	ByCharID  map[uint64]*Player

	nextMonsterID uint64
	nextLootID    uint64
}

func NewState() *State {
	return &State{
		Zones:         make(map[int32]*Zone),
		BySession:     make(map[uint64]*Player),
		ByCharID:      make(map[uint64]*Player),
		nextMonsterID: MonsterIDBase,
		nextLootID:    LootIDBase,
	}
}

// NextMonsterID allocates an entity ID from the monster range.
func (s *State) NextMonsterID() uint64 {
	s.nextMonsterID++
	return s.nextMonsterID
}

// NextLootID allocates an entity ID from the loot range.
func (s *State) NextLootID() uint64 {
	s.nextLootID++
	return s.nextLootID
}

// AddPlayer indexes a player that has fully entered the world.
func (s *State) AddPlayer(p *Player) {
	s.BySession[p.SessionID] = p
	s.ByCharID[p.CharID] = p
}

// RemovePlayer drops a player from both indexes.
func (s *State) RemovePlayer(p *Player) {
	delete(s.BySession, p.SessionID)
	delete(s.ByCharID, p.CharID)
}

// ChannelOf returns the channel the player currently occupies, or nil.
func (s *State) ChannelOf(p *Player) *Channel {
	z := s.Zones[p.ZoneID]
	if z == nil {
		return nil
	}
	return z.Channel(p.ChannelID)
}

// PlayerCount is the number of players in-world across all zones.
func (s *State) PlayerCount() int {
	return len(s.ByCharID)
}

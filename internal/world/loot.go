package world

import "time"

// LootDrop is an item or gold pile lying on the ground. For an ownership
// window only the owning player may pick it up; afterwards it is free for
// all until it despawns.
type LootDrop struct {
	ID        uint64
	ItemDefID int32 // 0 for pure gold drops
	Amount    int32
	Gold      int64
	Pos       Vec3

	OwnerID    uint64
	OwnerUntil time.Time
	ExpiresAt  time.Time
}

// CanPickup reports whether the given player may take this drop now.
func (l *LootDrop) CanPickup(playerID uint64, now time.Time) bool {
	if now.Before(l.OwnerUntil) {
		return l.OwnerID == playerID
	}
	return true
}

// Expired reports whether the drop should be swept from the world.
func (l *LootDrop) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

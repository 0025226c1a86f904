package handler

import (
	"errors"
	"math"

	"go.uber.org/zap"

	"github.com/ebonreach/server/internal/data"
	"github.com/ebonreach/server/internal/net"
	"github.com/ebonreach/server/internal/net/packet"
	"github.com/ebonreach/server/internal/persist"
	"github.com/ebonreach/server/internal/proto"
	"github.com/ebonreach/server/internal/world"
)

// lootPickupRange is how close a player must stand to grab a drop.
const lootPickupRange = 5

func dist2D(a, b world.Vec3) float32 {
	dx := float64(a.X - b.X)
	dz := float64(a.Z - b.Z)
	return float32(math.Sqrt(dx*dx + dz*dz))
}

// gearOf sums the attack and defense of every equipped item.
func gearOf(deps *Deps, slots []persist.ItemSlot) (attack, defense int32) {
	for _, s := range slots {
		if !s.Equipped {
			continue
		}
		if def := deps.Tables.Items.Get(s.ItemID); def != nil {
			attack += def.AttackPower
			defense += def.Defense
		}
	}
	return attack, defense
}

func inventoryFrame(slots []persist.ItemSlot, gold int64) *proto.Inventory {
	inv := &proto.Inventory{Gold: uint64(gold)}
	for _, s := range slots {
		inv.Slots = append(inv.Slots, proto.InventorySlot{
			Slot:      uint32(s.Slot),
			ItemDefID: uint32(s.ItemID),
			Amount:    uint32(s.Amount),
			Enhance:   uint32(s.Enhance),
			Equipped:  s.Equipped,
		})
	}
	return inv
}

// refreshInventory reloads the bag after a transactional change, resends the
// full snapshot, and recomputes the gear caches.
func refreshInventory(sess *net.Session, p *world.Player, deps *Deps) {
	ctx, cancel := deps.ctx()
	defer cancel()

	slots, gold, err := deps.Inventory.Load(ctx, p.CharID)
	if err != nil {
		// The transaction itself committed; the stale snapshot heals on the
		// next successful reload.
		deps.Log.Error("背包重讀失敗", zap.Uint64("char", p.CharID), zap.Error(err))
		return
	}
	p.Gold = gold
	p.GearAttack, p.GearDefense = gearOf(deps, slots)
	deps.Bc.ToSession(sess, packet.S_OPCODE_INVENTORY, inventoryFrame(slots, gold).Marshal())
}

// slotItem finds the item definition occupying a bag slot, or nil.
func slotItem(deps *Deps, slots []persist.ItemSlot, slot int32) *data.ItemDef {
	for _, s := range slots {
		if s.Slot == slot {
			return deps.Tables.Items.Get(s.ItemID)
		}
	}
	return nil
}

// sameSlotItemIDs lists the item templates the character owns that occupy the
// given gear slot type, so equipping one can unequip the rest.
func sameSlotItemIDs(deps *Deps, slots []persist.ItemSlot, slotType int32) []int32 {
	var ids []int32
	for _, s := range slots {
		if def := deps.Tables.Items.Get(s.ItemID); def != nil && def.SlotType == slotType {
			ids = append(ids, s.ItemID)
		}
	}
	return ids
}

// HandleEquip puts a bag item into its gear slot.
func HandleEquip(sess *net.Session, payload []byte, deps *Deps) {
	var req proto.Equip
	if err := req.Unmarshal(payload); err != nil {
		malformed(sess)
		return
	}
	p := deps.player(sess)
	if p == nil {
		return
	}

	ctx, cancel := deps.ctx()
	defer cancel()

	slots, _, err := deps.Inventory.Load(ctx, p.CharID)
	if err != nil {
		sess.SendError(packet.C_OPCODE_EQUIP, packet.ErrStoreUnavailable)
		return
	}
	def := slotItem(deps, slots, int32(req.Slot))
	if def == nil {
		sess.SendError(packet.C_OPCODE_EQUIP, packet.ErrInputOutOfBounds)
		return
	}
	if !def.Equippable() {
		sess.SendError(packet.C_OPCODE_EQUIP, packet.ErrItemNotEquippable)
		return
	}
	if p.Level < def.ReqLevel {
		sess.SendError(packet.C_OPCODE_EQUIP, packet.ErrLevelTooLow)
		return
	}

	err = deps.Inventory.Equip(ctx, p.CharID, int32(req.Slot),
		sameSlotItemIDs(deps, slots, def.SlotType))
	if errors.Is(err, persist.ErrSlotEmpty) {
		sess.SendError(packet.C_OPCODE_EQUIP, packet.ErrInputOutOfBounds)
		return
	}
	if err != nil {
		deps.Log.Error("裝備失敗", zap.Uint64("char", p.CharID), zap.Error(err))
		sess.SendError(packet.C_OPCODE_EQUIP, packet.ErrStoreUnavailable)
		return
	}
	refreshInventory(sess, p, deps)
}

// HandleUnequip clears a gear slot back into the bag.
func HandleUnequip(sess *net.Session, payload []byte, deps *Deps) {
	var req proto.Unequip
	if err := req.Unmarshal(payload); err != nil {
		malformed(sess)
		return
	}
	p := deps.player(sess)
	if p == nil {
		return
	}

	ctx, cancel := deps.ctx()
	defer cancel()

	slots, _, err := deps.Inventory.Load(ctx, p.CharID)
	if err != nil {
		sess.SendError(packet.C_OPCODE_UNEQUIP, packet.ErrStoreUnavailable)
		return
	}
	ids := sameSlotItemIDs(deps, slots, int32(req.SlotType))
	if len(ids) == 0 {
		sess.SendError(packet.C_OPCODE_UNEQUIP, packet.ErrInputOutOfBounds)
		return
	}
	if err := deps.Inventory.Unequip(ctx, p.CharID, ids); err != nil {
		deps.Log.Error("卸裝失敗", zap.Uint64("char", p.CharID), zap.Error(err))
		sess.SendError(packet.C_OPCODE_UNEQUIP, packet.ErrStoreUnavailable)
		return
	}
	refreshInventory(sess, p, deps)
}

// vendorFor validates that the player is close enough to a live vendor NPC.
func vendorFor(deps *Deps, p *world.Player, npcID uint64) (*data.NpcDef, packet.ErrorCode) {
	npc := deps.Tables.Npcs.Get(int32(npcID))
	if npc == nil || npc.ZoneID != p.ZoneID {
		return nil, packet.ErrInvalidTarget
	}
	npcPos := world.Vec3{X: npc.X, Y: npc.Y, Z: npc.Z}
	if dist2D(p.Pos, npcPos) > float32(deps.Config.World.NpcInteractRange) {
		return nil, packet.ErrVendorTooFar
	}
	return npc, 0
}

// HandleVendorBuy purchases items from a vendor. Price check, gold debit, and
// the grant run in one store transaction.
func HandleVendorBuy(sess *net.Session, payload []byte, deps *Deps) {
	var req proto.VendorBuy
	if err := req.Unmarshal(payload); err != nil {
		malformed(sess)
		return
	}
	p := deps.player(sess)
	if p == nil {
		return
	}

	npc, code := vendorFor(deps, p, req.NpcID)
	if code != 0 {
		sess.SendError(packet.C_OPCODE_VENDOR_BUY, code)
		return
	}
	item := deps.Tables.Items.Get(int32(req.ItemDefID))
	if item == nil || item.BuyPrice <= 0 || !npc.SellsItem(item.ID) {
		sess.SendError(packet.C_OPCODE_VENDOR_BUY, packet.ErrVendorRefuses)
		return
	}
	amount := int32(req.Amount)
	if amount < 1 || amount > persist.BagSize*item.MaxStack {
		sess.SendError(packet.C_OPCODE_VENDOR_BUY, packet.ErrInputOutOfBounds)
		return
	}

	ctx, cancel := deps.ctx()
	defer cancel()

	newGold, err := deps.Inventory.VendorBuy(ctx, p.CharID, item.ID, amount, item.MaxStack, item.BuyPrice)
	switch {
	case errors.Is(err, persist.ErrNotEnoughGold):
		sess.SendError(packet.C_OPCODE_VENDOR_BUY, packet.ErrNotEnoughGold)
		return
	case errors.Is(err, persist.ErrBagFull):
		sess.SendError(packet.C_OPCODE_VENDOR_BUY, packet.ErrInventoryFull)
		return
	case err != nil:
		deps.Log.Error("購買交易失敗", zap.Uint64("char", p.CharID), zap.Error(err))
		sess.SendError(packet.C_OPCODE_VENDOR_BUY, packet.ErrStoreUnavailable)
		return
	}

	p.Gold = newGold
	gu := proto.GoldUpdate{Gold: uint64(newGold)}
	deps.Bc.ToSession(sess, packet.S_OPCODE_GOLD_UPDATE, gu.Marshal())
	refreshInventory(sess, p, deps)
}

// HandleVendorSell sells items from a bag slot to a vendor.
func HandleVendorSell(sess *net.Session, payload []byte, deps *Deps) {
	var req proto.VendorSell
	if err := req.Unmarshal(payload); err != nil {
		malformed(sess)
		return
	}
	p := deps.player(sess)
	if p == nil {
		return
	}

	if _, code := vendorFor(deps, p, req.NpcID); code != 0 {
		sess.SendError(packet.C_OPCODE_VENDOR_SELL, code)
		return
	}
	amount := int32(req.Amount)
	if amount < 1 {
		sess.SendError(packet.C_OPCODE_VENDOR_SELL, packet.ErrInputOutOfBounds)
		return
	}

	ctx, cancel := deps.ctx()
	defer cancel()

	slots, _, err := deps.Inventory.Load(ctx, p.CharID)
	if err != nil {
		sess.SendError(packet.C_OPCODE_VENDOR_SELL, packet.ErrStoreUnavailable)
		return
	}
	item := slotItem(deps, slots, int32(req.Slot))
	if item == nil {
		sess.SendError(packet.C_OPCODE_VENDOR_SELL, packet.ErrInputOutOfBounds)
		return
	}
	if item.SellPrice <= 0 {
		sess.SendError(packet.C_OPCODE_VENDOR_SELL, packet.ErrVendorRefuses)
		return
	}

	newGold, err := deps.Inventory.VendorSell(ctx, p.CharID, int32(req.Slot), amount, item.SellPrice)
	switch {
	case errors.Is(err, persist.ErrSlotEmpty), errors.Is(err, persist.ErrNotEnoughItems):
		sess.SendError(packet.C_OPCODE_VENDOR_SELL, packet.ErrInputOutOfBounds)
		return
	case err != nil:
		deps.Log.Error("販售交易失敗", zap.Uint64("char", p.CharID), zap.Error(err))
		sess.SendError(packet.C_OPCODE_VENDOR_SELL, packet.ErrStoreUnavailable)
		return
	}

	p.Gold = newGold
	gu := proto.GoldUpdate{Gold: uint64(newGold)}
	deps.Bc.ToSession(sess, packet.S_OPCODE_GOLD_UPDATE, gu.Marshal())
	refreshInventory(sess, p, deps)
}

// HandleLootPickup claims a loot drop: ownership window, range, then the
// transactional grant. The drop leaves the world only after the store commits.
func HandleLootPickup(sess *net.Session, payload []byte, deps *Deps) {
	var req proto.LootPickup
	if err := req.Unmarshal(payload); err != nil {
		malformed(sess)
		return
	}
	p := deps.player(sess)
	if p == nil || !p.Alive() {
		return
	}
	ch := deps.World.ChannelOf(p)
	if ch == nil {
		return
	}

	l := ch.Loot[req.LootID]
	if l == nil {
		sess.SendError(packet.C_OPCODE_LOOT_PICKUP, packet.ErrInvalidTarget)
		return
	}
	if dist2D(p.Pos, l.Pos) > lootPickupRange {
		sess.SendError(packet.C_OPCODE_LOOT_PICKUP, packet.ErrOutOfRange)
		return
	}
	if !l.CanPickup(p.CharID, deps.Combat.Now()) {
		sess.SendError(packet.C_OPCODE_LOOT_PICKUP, packet.ErrLootNotYours)
		return
	}

	maxStack := int32(1)
	if def := deps.Tables.Items.Get(l.ItemDefID); def != nil {
		maxStack = def.MaxStack
	}

	ctx, cancel := deps.ctx()
	defer cancel()

	newGold, err := deps.Inventory.GrantLoot(ctx, p.CharID, l.ItemDefID, l.Amount, maxStack, l.Gold)
	if errors.Is(err, persist.ErrBagFull) {
		sess.SendError(packet.C_OPCODE_LOOT_PICKUP, packet.ErrInventoryFull)
		return // drop stays on the ground
	}
	if err != nil {
		deps.Log.Error("拾取入庫失敗", zap.Uint64("char", p.CharID), zap.Error(err))
		sess.SendError(packet.C_OPCODE_LOOT_PICKUP, packet.ErrStoreUnavailable)
		return
	}

	ch.RemoveLoot(l)
	despawn := proto.EntityDespawn{EntityID: l.ID}
	deps.Bc.ToArea(ch, l.Pos, packet.S_OPCODE_ENTITY_DESPAWN, despawn.Marshal())

	p.Gold = newGold
	gu := proto.GoldUpdate{Gold: uint64(newGold)}
	deps.Bc.ToSession(sess, packet.S_OPCODE_GOLD_UPDATE, gu.Marshal())
	if l.ItemDefID != 0 {
		refreshInventory(sess, p, deps)
	}
}

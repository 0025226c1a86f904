// Package handler implements the packet handlers: the glue between decoded
// client requests and the world state, repositories, and session stores.
// Handlers run on the game loop goroutine; they may touch world state freely
// and must never spawn work that does.
package handler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ebonreach/server/internal/auth"
	"github.com/ebonreach/server/internal/cache"
	"github.com/ebonreach/server/internal/config"
	"github.com/ebonreach/server/internal/data"
	"github.com/ebonreach/server/internal/game"
	"github.com/ebonreach/server/internal/net"
	"github.com/ebonreach/server/internal/net/packet"
	"github.com/ebonreach/server/internal/persist"
	"github.com/ebonreach/server/internal/world"
)

// repoTimeout bounds every repository call made from a handler. Handlers run
// inside the tick, so a hung database must fail the request, not the loop.
const repoTimeout = 5 * time.Second

// Deps holds shared dependencies injected into all packet handlers.
type Deps struct {
	Config   *config.Config
	Log      *zap.Logger
	Tables   *data.Tables
	World    *world.State
	Bc       *game.Broadcaster
	Combat   *game.Combat
	Movement *game.MovementSystem
	Spawner  *game.Spawner
	Pipeline *game.Pipeline

	Verifier  *auth.Verifier
	Sessions  *cache.SessionStore
	CharCache game.CharCache
	Secrets   *net.SecretRegistry

	Accounts   *persist.AccountRepo
	Characters *persist.CharacterRepo
	Inventory  *persist.InventoryRepo

	// Live tracks authenticated sessions by ID so the disconnect path can
	// release locks for sessions that never entered the world. Game loop only.
	Live map[uint64]*net.Session
}

func (d *Deps) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), repoTimeout)
}

// player resolves the in-world player behind a session, or nil.
func (d *Deps) player(sess *net.Session) *world.Player {
	return d.World.BySession[sess.ID]
}

// malformed charges a bad payload against the session's budget.
func malformed(sess *net.Session) {
	if !sess.NoteMalformed() {
		sess.Close()
	}
}

// RegisterAll registers all packet handlers into the registry.
func RegisterAll(reg *packet.Registry, deps *Deps) {
	// Login phase
	reg.Register(packet.C_OPCODE_LOGIN,
		[]packet.SessionState{packet.StateConnected},
		func(sess any, payload []byte) {
			HandleLogin(sess.(*net.Session), payload, deps)
		},
	)

	// Character select phase
	authStates := []packet.SessionState{packet.StateAuthenticated}

	reg.Register(packet.C_OPCODE_CHARACTER_LIST, authStates,
		func(sess any, payload []byte) {
			HandleCharacterList(sess.(*net.Session), payload, deps)
		},
	)
	reg.Register(packet.C_OPCODE_CHARACTER_CREATE, authStates,
		func(sess any, payload []byte) {
			HandleCharacterCreate(sess.(*net.Session), payload, deps)
		},
	)
	reg.Register(packet.C_OPCODE_CHARACTER_DELETE, authStates,
		func(sess any, payload []byte) {
			HandleCharacterDelete(sess.(*net.Session), payload, deps)
		},
	)
	reg.Register(packet.C_OPCODE_ENTER_WORLD, authStates,
		func(sess any, payload []byte) {
			HandleEnterWorld(sess.(*net.Session), payload, deps)
		},
	)

	// In-world phase
	inWorldStates := []packet.SessionState{packet.StateInWorld}

	reg.Register(packet.C_OPCODE_MOVEMENT_INPUT, inWorldStates,
		func(sess any, payload []byte) {
			HandleMovementInput(sess.(*net.Session), payload, deps)
		},
	)
	reg.Register(packet.C_OPCODE_SELECT_TARGET, inWorldStates,
		func(sess any, payload []byte) {
			HandleSelectTarget(sess.(*net.Session), payload, deps)
		},
	)
	reg.Register(packet.C_OPCODE_USE_SKILL, inWorldStates,
		func(sess any, payload []byte) {
			HandleUseSkill(sess.(*net.Session), payload, deps)
		},
	)
	reg.Register(packet.C_OPCODE_AUTO_ATTACK_TOGGLE, inWorldStates,
		func(sess any, payload []byte) {
			HandleAutoAttackToggle(sess.(*net.Session), payload, deps)
		},
	)
	reg.Register(packet.C_OPCODE_STAT_ALLOCATE, inWorldStates,
		func(sess any, payload []byte) {
			HandleStatAllocate(sess.(*net.Session), payload, deps)
		},
	)
	reg.Register(packet.C_OPCODE_EQUIP, inWorldStates,
		func(sess any, payload []byte) {
			HandleEquip(sess.(*net.Session), payload, deps)
		},
	)
	reg.Register(packet.C_OPCODE_UNEQUIP, inWorldStates,
		func(sess any, payload []byte) {
			HandleUnequip(sess.(*net.Session), payload, deps)
		},
	)
	reg.Register(packet.C_OPCODE_VENDOR_BUY, inWorldStates,
		func(sess any, payload []byte) {
			HandleVendorBuy(sess.(*net.Session), payload, deps)
		},
	)
	reg.Register(packet.C_OPCODE_VENDOR_SELL, inWorldStates,
		func(sess any, payload []byte) {
			HandleVendorSell(sess.(*net.Session), payload, deps)
		},
	)
	reg.Register(packet.C_OPCODE_LOOT_PICKUP, inWorldStates,
		func(sess any, payload []byte) {
			HandleLootPickup(sess.(*net.Session), payload, deps)
		},
	)
	reg.Register(packet.C_OPCODE_CHAT, inWorldStates,
		func(sess any, payload []byte) {
			HandleChat(sess.(*net.Session), payload, deps)
		},
	)
	reg.Register(packet.C_OPCODE_ZONE_CHANGE, inWorldStates,
		func(sess any, payload []byte) {
			HandleZoneChange(sess.(*net.Session), payload, deps)
		},
	)
	reg.Register(packet.C_OPCODE_CHANNEL_SWITCH, inWorldStates,
		func(sess any, payload []byte) {
			HandleChannelSwitch(sess.(*net.Session), payload, deps)
		},
	)
	reg.Register(packet.C_OPCODE_CHANNEL_LIST, inWorldStates,
		func(sess any, payload []byte) {
			HandleChannelList(sess.(*net.Session), payload, deps)
		},
	)

	// Always allowed once authenticated
	aliveStates := []packet.SessionState{
		packet.StateAuthenticated, packet.StateInWorld,
	}
	reg.Register(packet.C_OPCODE_HEARTBEAT, aliveStates,
		func(sess any, payload []byte) {
			HandleHeartbeat(sess.(*net.Session), payload, deps)
		},
	)
}

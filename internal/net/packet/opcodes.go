package packet

// Opcode identifies the payload schema of a frame or datagram. Values are
// allocated in stable groups; client→server and server→client opcodes share
// one space because direction disambiguates on the wire.
type Opcode uint16

// Auth lifecycle 0x0001..0x0007. Login and registration themselves are
// handled by the login collaborator; the world core only consumes the
// character-select and enter-world tail of the group.
const (
	C_OPCODE_LOGIN            Opcode = 0x0001
	C_OPCODE_REGISTER         Opcode = 0x0002
	C_OPCODE_CHARACTER_LIST   Opcode = 0x0003
	C_OPCODE_CHARACTER_CREATE Opcode = 0x0004
	C_OPCODE_CHARACTER_DELETE Opcode = 0x0005
	C_OPCODE_ENTER_WORLD      Opcode = 0x0006
	S_OPCODE_ENTER_WORLD_ACK  Opcode = 0x0007
)

// Movement 0x0101..0x0103. MovementInput additionally arrives over UDP.
const (
	C_OPCODE_MOVEMENT_INPUT      Opcode = 0x0101
	S_OPCODE_POSITION_BROADCAST  Opcode = 0x0102
	S_OPCODE_POSITION_CORRECTION Opcode = 0x0103
)

// Combat 0x0201..0x0206.
const (
	C_OPCODE_SELECT_TARGET      Opcode = 0x0201
	C_OPCODE_USE_SKILL          Opcode = 0x0202
	S_OPCODE_DAMAGE_EVENT       Opcode = 0x0203
	S_OPCODE_ENTITY_DEATH       Opcode = 0x0204
	S_OPCODE_XP_GAIN            Opcode = 0x0205
	C_OPCODE_AUTO_ATTACK_TOGGLE Opcode = 0x0206
)

// Entity lifecycle 0x0301..0x0303.
const (
	S_OPCODE_ENTITY_SPAWN   Opcode = 0x0301
	S_OPCODE_ENTITY_DESPAWN Opcode = 0x0302
	S_OPCODE_STATS_UPDATE   Opcode = 0x0303
)

// Inventory / economy 0x0401..0x0407.
const (
	S_OPCODE_INVENTORY   Opcode = 0x0401
	C_OPCODE_EQUIP       Opcode = 0x0402
	C_OPCODE_UNEQUIP     Opcode = 0x0403
	C_OPCODE_VENDOR_BUY  Opcode = 0x0404
	C_OPCODE_VENDOR_SELL Opcode = 0x0405
	S_OPCODE_GOLD_UPDATE Opcode = 0x0406
	C_OPCODE_LOOT_PICKUP Opcode = 0x0407
)

// Chat 0x0501..0x0502.
const (
	C_OPCODE_CHAT           Opcode = 0x0501
	S_OPCODE_CHAT_BROADCAST Opcode = 0x0502
)

// Control 0x0601..0x0603.
const (
	C_OPCODE_HEARTBEAT      Opcode = 0x0601
	S_OPCODE_SERVER_MESSAGE Opcode = 0x0602
	S_OPCODE_ERROR          Opcode = 0x0603
)

// Zones 0x0701..0x0703.
const (
	C_OPCODE_ZONE_CHANGE    Opcode = 0x0701 // reply carries S zone data
	C_OPCODE_CHANNEL_SWITCH Opcode = 0x0702
	C_OPCODE_CHANNEL_LIST   Opcode = 0x0703
	S_OPCODE_ZONE_DATA      Opcode = 0x0701
	S_OPCODE_CHANNEL_LIST   Opcode = 0x0703
)

// Stat allocation rides the stats-update group.
const (
	C_OPCODE_STAT_ALLOCATE Opcode = 0x0304
)

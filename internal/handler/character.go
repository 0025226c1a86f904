package handler

import (
	"errors"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/ebonreach/server/internal/net"
	"github.com/ebonreach/server/internal/net/packet"
	"github.com/ebonreach/server/internal/persist"
	"github.com/ebonreach/server/internal/proto"
)

// starterZoneID is where freshly created characters begin.
const starterZoneID = 1

func sendCharacterList(sess *net.Session, deps *Deps) {
	ctx, cancel := deps.ctx()
	defer cancel()

	chars, err := deps.Characters.ListByAccount(ctx, sess.AccountID.Load())
	if err != nil {
		deps.Log.Error("角色列表讀取失敗",
			zap.Int64("account", sess.AccountID.Load()), zap.Error(err))
		sess.SendError(packet.C_OPCODE_CHARACTER_LIST, packet.ErrStoreUnavailable)
		return
	}

	var list proto.CharacterList
	for _, c := range chars {
		list.Characters = append(list.Characters, proto.CharacterSummary{
			CharacterID: c.ID,
			Name:        c.Name,
			ClassID:     uint32(c.ClassID),
			Level:       uint32(c.Level),
		})
	}
	deps.Bc.ToSession(sess, packet.C_OPCODE_CHARACTER_LIST, list.Marshal())
}

// HandleCharacterList re-sends the select screen roster on request.
func HandleCharacterList(sess *net.Session, _ []byte, deps *Deps) {
	sendCharacterList(sess, deps)
}

// normalizeName canonicalises a requested character name and reports whether
// it is acceptable. Mixed-script names are fine; whitespace and control
// characters are not, and equivalence is judged on the NFC form so visually
// identical names cannot coexist.
func normalizeName(raw string, maxLen int) (string, bool) {
	name := norm.NFC.String(raw)
	n := utf8.RuneCountInString(name)
	if n < 2 || n > maxLen {
		return "", false
	}
	for _, r := range name {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return "", false
		}
	}
	return name, true
}

// HandleCharacterCreate makes a new character from a class template.
func HandleCharacterCreate(sess *net.Session, payload []byte, deps *Deps) {
	var req proto.CharacterCreate
	if err := req.Unmarshal(payload); err != nil {
		malformed(sess)
		return
	}

	name, ok := normalizeName(req.Name, deps.Config.Limits.MaxNameLength)
	if !ok {
		sess.SendError(packet.C_OPCODE_CHARACTER_CREATE, packet.ErrNameInvalid)
		return
	}
	cls := deps.Tables.Classes.Get(int32(req.ClassID))
	if cls == nil {
		sess.SendError(packet.C_OPCODE_CHARACTER_CREATE, packet.ErrInvalidClass)
		return
	}
	zone := deps.Tables.Zones.Get(starterZoneID)
	if zone == nil {
		sess.SendError(packet.C_OPCODE_CHARACTER_CREATE, packet.ErrServerError)
		return
	}

	rec := &persist.CharacterRecord{
		AccountID: sess.AccountID.Load(),
		Name:      name,
		ClassID:   cls.ID,
		Level:     1,
		HP:        cls.BaseHP + cls.BaseSta*10,
		MP:        cls.BaseMP + cls.BaseIntel*10,
		Str:       cls.BaseStr,
		Sta:       cls.BaseSta,
		Dex:       cls.BaseDex,
		Intel:     cls.BaseIntel,
		ZoneID:    zone.ID,
		X:         zone.SpawnX,
		Y:         zone.SpawnY,
		Z:         zone.SpawnZ,
	}

	ctx, cancel := deps.ctx()
	defer cancel()

	err := deps.Characters.Create(ctx, rec)
	switch {
	case errors.Is(err, persist.ErrNameTaken):
		sess.SendError(packet.C_OPCODE_CHARACTER_CREATE, packet.ErrNameTaken)
		return
	case errors.Is(err, persist.ErrCharacterLimit):
		sess.SendError(packet.C_OPCODE_CHARACTER_CREATE, packet.ErrCharacterLimit)
		return
	case err != nil:
		deps.Log.Error("角色建立失敗", zap.String("name", name), zap.Error(err))
		sess.SendError(packet.C_OPCODE_CHARACTER_CREATE, packet.ErrStoreUnavailable)
		return
	}

	// Starting skills are whatever the class knows at level 1.
	for _, id := range deps.Tables.Skills.LearnedBy(cls.ID, 1) {
		if err := deps.Characters.LearnSkill(ctx, rec.ID, id, 1); err != nil {
			deps.Log.Warn("初始技能寫入失敗",
				zap.Uint64("char", rec.ID), zap.Uint32("skill", id), zap.Error(err))
		}
	}

	deps.Log.Info("角色建立",
		zap.Uint64("char", rec.ID), zap.String("name", name), zap.Int32("class", cls.ID))
	sendCharacterList(sess, deps)
}

// HandleCharacterDelete soft-deletes one of the account's characters.
func HandleCharacterDelete(sess *net.Session, payload []byte, deps *Deps) {
	var req proto.CharacterDelete
	if err := req.Unmarshal(payload); err != nil {
		malformed(sess)
		return
	}

	ctx, cancel := deps.ctx()
	defer cancel()

	err := deps.Characters.SoftDelete(ctx, sess.AccountID.Load(), req.CharacterID)
	if errors.Is(err, persist.ErrCharacterMissing) {
		// Not this account's character, or already gone. Either way the
		// request is dishonest enough to close on.
		sess.SendError(packet.C_OPCODE_CHARACTER_DELETE, packet.ErrCharacterNotOwned)
		return
	}
	if err != nil {
		deps.Log.Error("角色刪除失敗", zap.Uint64("char", req.CharacterID), zap.Error(err))
		sess.SendError(packet.C_OPCODE_CHARACTER_DELETE, packet.ErrStoreUnavailable)
		return
	}

	deps.Log.Info("角色刪除",
		zap.Uint64("char", req.CharacterID), zap.Int64("account", sess.AccountID.Load()))
	sendCharacterList(sess, deps)
}

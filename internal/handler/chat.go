package handler

import (
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/ebonreach/server/internal/metrics"
	"github.com/ebonreach/server/internal/net"
	"github.com/ebonreach/server/internal/net/packet"
	"github.com/ebonreach/server/internal/proto"
)

// chatWindow is the span the per-player message budget covers.
const chatWindow = 10 * time.Second

// HandleChat relays a chat line to everyone in the sender's channel. Rate
// limit violations are dropped silently: an error frame would just hand
// spammers a feedback channel.
func HandleChat(sess *net.Session, payload []byte, deps *Deps) {
	var req proto.ChatSend
	if err := req.Unmarshal(payload); err != nil {
		malformed(sess)
		return
	}
	p := deps.player(sess)
	if p == nil {
		return
	}

	if !p.NoteChat(deps.Combat.Now(), deps.Config.Limits.ChatPerTenSeconds, chatWindow) {
		metrics.CheatRejections.WithLabelValues("chat").Inc()
		return
	}

	text := strings.TrimSpace(norm.NFC.String(req.Text))
	if text == "" {
		return
	}
	if utf8.RuneCountInString(text) > deps.Config.Limits.MaxChatLength {
		sess.SendError(packet.C_OPCODE_CHAT, packet.ErrInputOutOfBounds)
		return
	}

	ch := deps.World.ChannelOf(p)
	if ch == nil {
		return
	}
	msg := proto.ChatBroadcast{FromID: p.CharID, FromName: p.Name, Text: text}
	deps.Bc.ToChannel(ch, packet.S_OPCODE_CHAT_BROADCAST, msg.Marshal())
}

package proto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMovementInputRoundTrip(t *testing.T) {
	in := MovementInput{DirX: 0.6, DirY: -0.8, Flying: true, ClientTime: 123456789}
	var out MovementInput
	require.NoError(t, out.Unmarshal(in.Marshal()))
	assert.Equal(t, in, out)
}

func TestDamageEventRoundTrip(t *testing.T) {
	in := DamageEvent{AttackerID: 42, TargetID: 200000007, Damage: 31, Critical: true, TargetHP: 69}
	var out DamageEvent
	require.NoError(t, out.Unmarshal(in.Marshal()))
	assert.Equal(t, in, out)
}

func TestZoneDataRepeatedEntities(t *testing.T) {
	in := ZoneData{
		ZoneID:    3,
		ChannelID: 2,
		X:         100.5,
		Z:         -20.25,
		Entities: []EntitySpawn{
			{EntityID: 7, Kind: KindPlayer, DefID: 1, Name: "艾莉絲", X: 100, Z: -20, HP: 150, MaxHP: 150, Level: 12},
			{EntityID: 200000001, Kind: KindMonster, DefID: 5001, X: 110, Z: -25, HP: 80, MaxHP: 80, Level: 8},
		},
	}
	var out ZoneData
	require.NoError(t, out.Unmarshal(in.Marshal()))
	assert.Equal(t, in, out)
}

func TestZeroValueFieldsOmitted(t *testing.T) {
	var hb Heartbeat
	assert.Empty(t, hb.Marshal())

	var out Heartbeat
	require.NoError(t, out.Unmarshal(nil))
	assert.Equal(t, hb, out)
}

func TestUnknownFieldsSkipped(t *testing.T) {
	// An encoder one revision ahead may append fields we do not know.
	b := (&SelectTarget{TargetID: 9}).Marshal()
	b = appendString(b, 15, "future")
	var out SelectTarget
	require.NoError(t, out.Unmarshal(b))
	assert.Equal(t, uint64(9), out.TargetID)
}

func TestTruncatedPayloadRejected(t *testing.T) {
	b := (&EntitySpawn{EntityID: 1, Name: "goblin"}).Marshal()
	var out EntitySpawn
	assert.ErrorIs(t, out.Unmarshal(b[:len(b)-2]), ErrTruncated)
}

package packet

// ErrorCode is the numeric error carried in an ErrorResponse frame.
// Codes are grouped by taxonomy; the group decides the propagation policy
// (protocol/authorisation errors close the session, validation/state errors
// do not). Internal detail never crosses the wire.
type ErrorCode uint16

const (
	// Protocol
	ErrUnknownOpcode    ErrorCode = 0x1001
	ErrOversizedFrame   ErrorCode = 0x1002
	ErrMalformedPayload ErrorCode = 0x1003
	ErrInvalidSequence  ErrorCode = 0x1004
	ErrBadHMAC          ErrorCode = 0x1005
	ErrSessionUnknown   ErrorCode = 0x1006

	// Authorisation
	ErrUnauthenticated   ErrorCode = 0x2001
	ErrCharacterNotOwned ErrorCode = 0x2002
	ErrAccountBanned     ErrorCode = 0x2003
	ErrMultiLoginDenied  ErrorCode = 0x2004

	// Validation
	ErrInputOutOfBounds  ErrorCode = 0x3001
	ErrStatOverdraw      ErrorCode = 0x3002
	ErrInvalidClass      ErrorCode = 0x3003
	ErrNameInvalid       ErrorCode = 0x3004
	ErrNameTaken         ErrorCode = 0x3005
	ErrCharacterLimit    ErrorCode = 0x3006
	ErrItemNotEquippable ErrorCode = 0x3007
	ErrLevelTooLow       ErrorCode = 0x3008

	// State
	ErrInvalidTarget   ErrorCode = 0x4001 // missing, dead, or wrong channel
	ErrOutOfRange      ErrorCode = 0x4003
	ErrNotEnoughMP     ErrorCode = 0x4004
	ErrSkillOnCooldown ErrorCode = 0x4005
	ErrSkillUnknown    ErrorCode = 0x4006
	ErrSkillNotLearned ErrorCode = 0x4007
	ErrLootNotYours    ErrorCode = 0x4008
	ErrTravelDenied    ErrorCode = 0x4009 // zone not linked from here
	ErrTravelCooldown  ErrorCode = 0x400A
	ErrVendorTooFar    ErrorCode = 0x400B
	ErrVendorRefuses   ErrorCode = 0x400C
	ErrNotEnoughGold   ErrorCode = 0x400D

	// Resource
	ErrChannelFull   ErrorCode = 0x5001
	ErrInventoryFull ErrorCode = 0x5002

	// Transient
	ErrStoreUnavailable ErrorCode = 0x6001
	ErrCacheUnavailable ErrorCode = 0x6002
	ErrSessionBusy      ErrorCode = 0x6003 // disconnect flush in progress, retry shortly

	// Catch-all for recovered handler panics.
	ErrServerError ErrorCode = 0x7001
)

// Fatal reports whether the error group requires closing the session after
// the ErrorResponse is sent.
func (c ErrorCode) Fatal() bool {
	return c >= 0x1000 && c < 0x3000
}

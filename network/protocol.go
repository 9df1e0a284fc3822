package network

// Wire message IDs. 1xx = lobby, 2xx = moves, 3xx = state fan-out.
const (
	MsgTypeHeartbeat    = 1
	MsgTypeError        = 2
	MsgTypeCreateMatch  = 101
	MsgTypeJoinMatch    = 102
	MsgTypeLeaveMatch   = 103
	MsgTypeProposeMove  = 201
	MsgTypeMoveResult   = 202
	MsgTypeStateDelta   = 301
	MsgTypeSnapshot     = 302
	MsgTypeResyncQuery  = 303
	MsgTypeMatchStart   = 304
	MsgTypeMatchEnd     = 305
	MsgTypePlayerJoined = 306
)

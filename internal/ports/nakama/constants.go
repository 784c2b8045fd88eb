package nakama

// Nakama RPC ids.
const (
	RpcCreateSession = "beergame_create_session"
	RpcJoinTeam      = "beergame_join_team"
	RpcSubmitOrder   = "beergame_submit_order"
	RpcAdvance       = "beergame_advance"
	RpcAdvanceTeam   = "beergame_advance_team"
	RpcRestart       = "beergame_restart"
	RpcGetState      = "beergame_get_state"
	RpcResumeTeam    = "beergame_resume_team"
	RpcListPatterns  = "beergame_list_patterns"
)

// Storage collections. Objects are system-owned (empty user id).
const (
	SessionCollection  = "beergame_sessions"
	JoinCodeCollection = "beergame_join_codes"
)

// gRPC status codes used for runtime errors.
const (
	codeInvalidArgument    = 3
	codeNotFound           = 5
	codeFailedPrecondition = 9
	codeAborted            = 10
	codeInternal           = 13
)

// listPageSize is the page size used when scanning sessions by id prefix.
const listPageSize = 100

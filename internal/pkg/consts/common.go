package consts

const (
	CtxUserIDKey = "user_id"
	CtxRolesKey  = "roles"
)

const (
	HeaderTraceID     = "X-Trace-ID"
	HeaderAnonymousID = "X-Anonymous-Id"
)

const (
	RoleAdmin = "ADMIN"
)

const (
	TopViewedDefaultLimit = 10
	TopViewedMaxLimit     = 100
	TopRankedThreshold    = 10
)

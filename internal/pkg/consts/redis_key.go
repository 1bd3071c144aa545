package consts

const (
	ViewDedupUserKey      = "view:user:"
	ViewDedupAnonKey      = "view:anon:"
	ViewDedupIPKey        = "view:ip:"
	ViewDedupPromptSuffix = ":prompt:"
	ViewCountKey          = "viewcount:"
	ViewCountKeyPattern   = "viewcount:*"
	ViewStatsWeeklyKey    = "view:stats:weekly:"
	ViewStatsTopKey       = "view:stats:top:"
)

const (
	ViewSyncLock        = "lock:view:sync"
	ViewConsistencyLock = "lock:view:consistency"
)

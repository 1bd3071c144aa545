package service

import (
	"strings"
	"testing"
	"time"

	"github.com/gonghojin/prompt-center-sub001/internal/api/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identifier(t *testing.T, promptID, userID uint64, anonymousID, ip string) ViewIdentifier {
	t.Helper()
	viewer, err := ResolveViewerIdentity(userID, anonymousID, ip)
	require.NoError(t, err)
	return ViewIdentifier{PromptID: promptID, Viewer: viewer}
}

func TestViewKeyStrategy_DuplicationKey(t *testing.T) {
	keys := NewViewKeyStrategy(config.DefaultViewConfig())

	assert.Equal(t, "view:user:42:prompt:7", keys.DuplicationKey(identifier(t, 7, 42, "", "1.2.3.4")))
	assert.Equal(t, "view:anon:abc-1:prompt:7", keys.DuplicationKey(identifier(t, 7, 0, "abc-1", "1.2.3.4")))
	assert.Equal(t, "view:anon:a_b_c:prompt:7", keys.DuplicationKey(identifier(t, 7, 0, "a:b*c", "1.2.3.4")))
	assert.Equal(t, "view:ip:1.2.3.4:prompt:7", keys.DuplicationKey(identifier(t, 7, 0, "", "1.2.3.4")))
	assert.Equal(t, "view:ip:2001_db8__1:prompt:7", keys.DuplicationKey(identifier(t, 7, 0, "", "2001:db8::1")))

	// 登录前后属于不同命名空间
	assert.NotEqual(t,
		keys.DuplicationKey(identifier(t, 7, 42, "", "1.2.3.4")),
		keys.DuplicationKey(identifier(t, 7, 0, "", "1.2.3.4")))
}

func TestViewKeyStrategy_HashedIP(t *testing.T) {
	cfg := config.DefaultViewConfig()
	cfg.HashIPKeys = true
	keys := NewViewKeyStrategy(cfg)

	key := keys.DuplicationKey(identifier(t, 7, 0, "", "1.2.3.4"))
	require.True(t, strings.HasPrefix(key, "view:ip:"))
	assert.NotContains(t, key, "1.2.3.4")
	part := strings.TrimSuffix(strings.TrimPrefix(key, "view:ip:"), ":prompt:7")
	assert.Len(t, part, 32)
	assert.Equal(t, key, keys.DuplicationKey(identifier(t, 7, 0, "", "1.2.3.4")), "stable")
}

func TestViewKeyStrategy_CountKeys(t *testing.T) {
	cfg := config.DefaultViewConfig()
	cfg.DedupWindow = 10 * time.Minute
	cfg.CountCacheTTL = 2 * time.Hour
	keys := NewViewKeyStrategy(cfg)

	assert.Equal(t, 10*time.Minute, keys.DuplicationWindow())
	assert.Equal(t, 2*time.Hour, keys.CountCacheTTL())
	assert.Equal(t, "viewcount:15", keys.CountCacheKey(15))
	assert.Equal(t, "viewcount:*", keys.CountCacheKeyPattern())

	id, err := keys.ExtractPromptID(keys.CountCacheKey(15))
	require.NoError(t, err)
	assert.Equal(t, uint64(15), id)

	for _, bad := range []string{"viewcount:", "viewcount:abc", "viewcount:0", "view:user:1:prompt:2"} {
		_, err = keys.ExtractPromptID(bad)
		assert.ErrorIs(t, err, ErrParamInvalid, bad)
	}
}

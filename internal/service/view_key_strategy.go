package service

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gonghojin/prompt-center-sub001/internal/api/config"
	"github.com/gonghojin/prompt-center-sub001/internal/pkg/consts"
	"golang.org/x/crypto/blake2b"
)

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9.\-]`)

// ViewKeyStrategy 去重 key 与计数缓存 key 的派生策略
type ViewKeyStrategy interface {
	DuplicationKey(identifier ViewIdentifier) string
	DuplicationWindow() time.Duration
	CountCacheKey(promptID uint64) string
	CountCacheTTL() time.Duration
	CountCacheKeyPattern() string
	ExtractPromptID(key string) (uint64, error)
}

type redisViewKeyStrategy struct {
	dedupWindow time.Duration
	countTTL    time.Duration
	hashIP      bool
}

func NewViewKeyStrategy(cfg config.ViewConfig) ViewKeyStrategy {
	return &redisViewKeyStrategy{
		dedupWindow: cfg.DedupWindow,
		countTTL:    cfg.CountCacheTTL,
		hashIP:      cfg.HashIPKeys,
	}
}

// DuplicationKey 按身份类型分命名空间，同一人登录前后的浏览互不合并
func (s *redisViewKeyStrategy) DuplicationKey(identifier ViewIdentifier) string {
	var prefix, subject string
	switch identifier.ViewerType() {
	case ViewerAuthenticated:
		prefix, subject = consts.ViewDedupUserKey, identifier.Viewer.Subject()
	case ViewerAnonymous:
		prefix, subject = consts.ViewDedupAnonKey, sanitizeKeyPart(identifier.Viewer.Subject())
	default:
		prefix, subject = consts.ViewDedupIPKey, s.ipKeyPart(identifier.Viewer.IP())
	}
	return prefix + subject + consts.ViewDedupPromptSuffix + strconv.FormatUint(identifier.PromptID, 10)
}

func (s *redisViewKeyStrategy) DuplicationWindow() time.Duration {
	return s.dedupWindow
}

func (s *redisViewKeyStrategy) CountCacheKey(promptID uint64) string {
	return consts.ViewCountKey + strconv.FormatUint(promptID, 10)
}

func (s *redisViewKeyStrategy) CountCacheTTL() time.Duration {
	return s.countTTL
}

func (s *redisViewKeyStrategy) CountCacheKeyPattern() string {
	return consts.ViewCountKeyPattern
}

func (s *redisViewKeyStrategy) ExtractPromptID(key string) (uint64, error) {
	if !strings.HasPrefix(key, consts.ViewCountKey) {
		return 0, fmt.Errorf("%w: not a view count key: %q", ErrParamInvalid, key)
	}
	promptID, err := strconv.ParseUint(strings.TrimPrefix(key, consts.ViewCountKey), 10, 64)
	if err != nil || promptID == 0 {
		return 0, fmt.Errorf("%w: bad prompt id in key %q", ErrParamInvalid, key)
	}
	return promptID, nil
}

func (s *redisViewKeyStrategy) ipKeyPart(ip string) string {
	if s.hashIP {
		return digestHex(ip, 16)
	}
	return sanitizeKeyPart(ip)
}

// digestHex blake2b-256 摘要取前 n 字节，十六进制编码后长度为 2n
func digestHex(s string, n int) string {
	sum := blake2b.Sum256([]byte(s))
	return hex.EncodeToString(sum[:n])
}

// sanitizeKeyPart IPv6 的冒号等字符替换为下划线，避免与 key 分隔符冲突
func sanitizeKeyPart(s string) string {
	return unsafeKeyChars.ReplaceAllString(s, "_")
}

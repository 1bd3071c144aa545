package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gonghojin/prompt-center-sub001/internal/model"
	"github.com/google/uuid"
)

// maxAnonymousIDLength 与 prompt_view_logs.anonymous_id 列宽一致
const maxAnonymousIDLength = 64

type ViewerType string

const (
	ViewerAuthenticated ViewerType = "AUTHENTICATED_USER"
	ViewerAnonymous     ViewerType = "ANONYMOUS_USER"
	ViewerIPOnly        ViewerType = "IP_BASED_USER"
)

// ViewerIdentity 去重用的浏览者身份，三种实现互斥，均携带请求 IP
type ViewerIdentity interface {
	Type() ViewerType
	IP() string
	// Subject 身份本身的标识: 用户 id、匿名 id 或 IP
	Subject() string
	isViewerIdentity()
}

type AuthenticatedUser struct {
	userID uint64
	ip     string
}

func (v AuthenticatedUser) Type() ViewerType { return ViewerAuthenticated }
func (v AuthenticatedUser) IP() string       { return v.ip }
func (v AuthenticatedUser) Subject() string  { return strconv.FormatUint(v.userID, 10) }
func (v AuthenticatedUser) UserID() uint64   { return v.userID }
func (AuthenticatedUser) isViewerIdentity()  {}

type AnonymousUser struct {
	anonymousID string
	ip          string
}

func (v AnonymousUser) Type() ViewerType    { return ViewerAnonymous }
func (v AnonymousUser) IP() string          { return v.ip }
func (v AnonymousUser) Subject() string     { return v.anonymousID }
func (v AnonymousUser) AnonymousID() string { return v.anonymousID }
func (AnonymousUser) isViewerIdentity()     {}

type IPOnly struct {
	ip string
}

func (v IPOnly) Type() ViewerType { return ViewerIPOnly }
func (v IPOnly) IP() string       { return v.ip }
func (v IPOnly) Subject() string  { return v.ip }
func (IPOnly) isViewerIdentity()  {}

// ResolveViewerIdentity 登录用户优先，其次非空匿名 id，最后退化为 IP
func ResolveViewerIdentity(userID uint64, anonymousID, ip string) (ViewerIdentity, error) {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return nil, fmt.Errorf("%w: ip is required", ErrInvalidViewer)
	}
	if userID > 0 {
		return AuthenticatedUser{userID: userID, ip: ip}, nil
	}
	anonymousID = strings.TrimSpace(anonymousID)
	if anonymousID != "" {
		if len(anonymousID) > maxAnonymousIDLength {
			// 超长 id 取摘要，保持定长且同一 id 仍映射到同一身份
			anonymousID = digestHex(anonymousID, maxAnonymousIDLength/2)
		}
		return AnonymousUser{anonymousID: anonymousID, ip: ip}, nil
	}
	return IPOnly{ip: ip}, nil
}

// ViewIdentifier prompt 与浏览者的组合，去重 key 由它派生
type ViewIdentifier struct {
	PromptID uint64
	Viewer   ViewerIdentity
}

func (i ViewIdentifier) ViewerType() ViewerType {
	return i.Viewer.Type()
}

// Label 日志用的可读标识，如 user:42
func (i ViewIdentifier) Label() string {
	switch i.Viewer.Type() {
	case ViewerAuthenticated:
		return "user:" + i.Viewer.Subject()
	case ViewerAnonymous:
		return "anon:" + i.Viewer.Subject()
	default:
		return "ip:" + i.Viewer.Subject()
	}
}

// ViewRecord 一次被计入的浏览事件，创建后不再修改
type ViewRecord struct {
	ID         string
	Identifier ViewIdentifier
	ViewedAt   time.Time
}

// NewViewRecord id 为空时生成随机 UUID
func NewViewRecord(id string, identifier ViewIdentifier, viewedAt time.Time) ViewRecord {
	if id == "" {
		id = uuid.NewString()
	}
	return ViewRecord{ID: id, Identifier: identifier, ViewedAt: viewedAt}
}

func (r ViewRecord) toModel() *model.ViewLog {
	m := &model.ViewLog{
		ID:         r.ID,
		PromptID:   r.Identifier.PromptID,
		IPAddress:  r.Identifier.Viewer.IP(),
		ViewerType: string(r.Identifier.ViewerType()),
		ViewedAt:   r.ViewedAt.UTC(),
	}
	switch v := r.Identifier.Viewer.(type) {
	case AuthenticatedUser:
		uid := v.UserID()
		m.UserID = &uid
	case AnonymousUser:
		m.AnonymousID = v.AnonymousID()
	}
	return m
}

// ViewCount 读取侧的浏览量: 持久化总数加上尚未刷盘的增量
type ViewCount struct {
	PromptID       uint64    `json:"prompt_id"`
	TotalViewCount int64     `json:"total_view_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func NewEmptyViewCount(promptID uint64) ViewCount {
	return ViewCount{PromptID: promptID}
}

// NewInitialViewCount 首次浏览
func NewInitialViewCount(promptID uint64, now time.Time) ViewCount {
	return ViewCount{PromptID: promptID, TotalViewCount: 1, CreatedAt: now, UpdatedAt: now}
}

func viewCountFromModel(promptID uint64, m *model.ViewCount) ViewCount {
	if m == nil {
		return NewEmptyViewCount(promptID)
	}
	return ViewCount{
		PromptID:       m.PromptID,
		TotalViewCount: m.TotalViewCount,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// IncrementBy 只允许正向增加
func (c ViewCount) IncrementBy(n int64) (ViewCount, error) {
	if n <= 0 {
		return c, fmt.Errorf("%w: increment must be positive", ErrParamInvalid)
	}
	c.TotalViewCount += n
	return c, nil
}

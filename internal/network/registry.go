package network

import (
	"errors"
	"slices"

	"github.com/puzpuzpuz/xsync/v3"
)

const DefaultSessionID = "default"

var ErrSessionNotFound = errors.New("路网会话不存在")

// Registry 保存所有路网会话
// 重建路网只会替换注册表中的指针，正在使用旧会话的请求不受影响
type Registry struct {
	sessions  *xsync.MapOf[string, *Session]
	mu        *xsync.RBMutex
	defaultID string
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: xsync.NewMapOf[string, *Session](),
		mu:       xsync.NewRBMutex(),
	}
}

func (r *Registry) Put(s *Session) {
	r.sessions.Store(s.ID, s)
}

// SetDefault 注册会话并设为默认会话
func (r *Registry) SetDefault(s *Session) {
	r.sessions.Store(s.ID, s)
	r.mu.Lock()
	r.defaultID = s.ID
	r.mu.Unlock()
}

// Get 按 ID 获取会话，"default" 表示默认会话
func (r *Registry) Get(id string) (*Session, error) {
	if id == DefaultSessionID {
		t := r.mu.RLock()
		id = r.defaultID
		r.mu.RUnlock(t)
	}

	s, ok := r.sessions.Load(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (r *Registry) Delete(id string) bool {
	if id == DefaultSessionID {
		t := r.mu.RLock()
		id = r.defaultID
		r.mu.RUnlock(t)
	}

	_, ok := r.sessions.LoadAndDelete(id)
	if ok {
		r.mu.Lock()
		if r.defaultID == id {
			r.defaultID = ""
		}
		r.mu.Unlock()
	}
	return ok
}

// List 按创建时间返回所有会话的概要
func (r *Registry) List() []Summary {
	summaries := make([]Summary, 0, r.sessions.Size())
	r.sessions.Range(func(_ string, s *Session) bool {
		summaries = append(summaries, s.Summary())
		return true
	})

	slices.SortFunc(summaries, func(a, b Summary) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return summaries
}

package cache

import (
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// LocalStore 进程内缓存（每个实例独立）
type LocalStore struct {
	store *gocache.Cache
}

// NewLocalStore 创建进程内缓存
func NewLocalStore(ttl, cleanupInterval time.Duration) *LocalStore {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 2 * ttl
	}
	return &LocalStore{store: gocache.New(ttl, cleanupInterval)}
}

// Get 读取缓存
func (l *LocalStore) Get(key string) (interface{}, bool) {
	return l.store.Get(key)
}

// Set 写入缓存（使用默认过期时间）
func (l *LocalStore) Set(key string, value interface{}) {
	l.store.SetDefault(key, value)
}

// SetWithTTL 写入缓存并指定过期时间
func (l *LocalStore) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	l.store.Set(key, value, ttl)
}

// Delete 删除缓存
func (l *LocalStore) Delete(key string) {
	l.store.Delete(key)
}

// DeletePrefix 删除指定前缀的全部缓存
func (l *LocalStore) DeletePrefix(prefix string) int {
	return l.DeleteMatching(func(key string) bool {
		return strings.HasPrefix(key, prefix)
	})
}

// DeleteMatching 删除满足条件的缓存，返回删除条数
func (l *LocalStore) DeleteMatching(match func(key string) bool) int {
	deleted := 0
	for key := range l.store.Items() {
		if match(key) {
			l.store.Delete(key)
			deleted++
		}
	}
	return deleted
}

// Flush 清空缓存
func (l *LocalStore) Flush() {
	l.store.Flush()
}

// Len 当前条目数（含未清理的过期项）
func (l *LocalStore) Len() int {
	return l.store.ItemCount()
}

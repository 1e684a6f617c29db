package quota

import (
	"context"
	"sync"
	"time"
)

// memoryEntry はカウンタ値と失効時刻を保持する。
type memoryEntry struct {
	count     int64
	expiresAt time.Time
}

// MemoryStore はインメモリのカウンタストア。
// Redisが構成されていない開発環境・単一ノード構成およびテストで使用する。
// 失効したエントリはアクセス時と定期クリーンアップで削除する。
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	stopCh  chan struct{}
}

// NewMemoryStore はMemoryStoreを生成する。
// バックグラウンドで失効エントリのクリーンアップを開始する。
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*memoryEntry),
		stopCh:  make(chan struct{}),
	}

	go s.cleanupLoop()

	return s
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (s *MemoryStore) Stop() {
	close(s.stopCh)
}

// Incr はキーのカウンタをアトミックに1増やし、増加後の値を返す。
// キーが新規または失効済みの場合はttlを設定し直す。
func (s *MemoryStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &memoryEntry{expiresAt: now.Add(ttl)}
		s.entries[key] = entry
	}
	entry.count++

	return entry.count, nil
}

// Peek はキーの現在値を返す。キーが存在しないか失効済みの場合は0を返す。
func (s *MemoryStore) Peek(ctx context.Context, key string) (int64, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return 0, nil
	}
	if now.After(entry.expiresAt) {
		delete(s.entries, key)
		return 0, nil
	}

	return entry.count, nil
}

// Len は現在保持しているエントリ数を返す。テストおよびメトリクス用。
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// cleanupLoop はバックグラウンドで失効エントリを定期的にクリーンアップする。
func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup は失効時刻を過ぎたエントリを削除する。
func (s *MemoryStore) cleanup() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, key)
		}
	}
}

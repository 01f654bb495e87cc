package utils

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type lockEntry struct {
	token     string
	expiresAt time.Time
}

var (
	submitLocks   = map[string]lockEntry{}
	submitLocksMu sync.Mutex
)

func submitLockKey(userID uint) string {
	return "ticket:submit:" + strconv.FormatUint(uint64(userID), 10)
}

// AcquireSubmitLock tries to take the per-user submission lock for ttl.
// It returns a release function and true on success. Redis errors fail open.
func AcquireSubmitLock(userID uint, ttl time.Duration) (func(), bool) {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	key := submitLockKey(userID)
	token := NewRequestID()

	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		ok, err := rc.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			Sugar.Warnf("submit lock unavailable user=%d err=%v", userID, err)
			return func() {}, true
		}
		if !ok {
			return nil, false
		}
		return func() { releaseRedisLock(key, token) }, true
	}

	// single-instance fallback
	submitLocksMu.Lock()
	defer submitLocksMu.Unlock()
	now := time.Now()
	if entry, held := submitLocks[key]; held && now.Before(entry.expiresAt) {
		return nil, false
	}
	submitLocks[key] = lockEntry{token: token, expiresAt: now.Add(ttl)}
	return func() { releaseLocalLock(key, token) }, true
}

// only the holder may delete the key; an expired lock may already belong to someone else
const releaseScript = `if redis.call('GET', KEYS[1]) == ARGV[1] then return redis.call('DEL', KEYS[1]) end; return 0`

func releaseRedisLock(key, token string) {
	rc := GetRedis()
	if rc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := rc.Eval(ctx, releaseScript, []string{key}, token).Err(); err != nil {
		Sugar.Warnf("submit lock release failed key=%s err=%v", key, err)
	}
}

func releaseLocalLock(key, token string) {
	submitLocksMu.Lock()
	defer submitLocksMu.Unlock()
	if entry, ok := submitLocks[key]; ok && entry.token == token {
		delete(submitLocks, key)
	}
}

package handler

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/yukifiles/yukifiles/pkg/response"
)

// KeyFunc extracts a rate-limiting key from a request.
type KeyFunc func(c *fiber.Ctx) string

type RateLimiter struct {
	requests map[string]*clientInfo
	mu       sync.Mutex
	limit    int           // max requests
	window   time.Duration // time window
	stopCh   chan struct{} // channel to stop cleanup goroutine
	keyFunc  KeyFunc       // custom key extractor
	stopOnce sync.Once
}

type clientInfo struct {
	count     int
	windowEnd time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return NewRateLimiterWithKey(limit, window, defaultKeyFunc)
}

// NewRateLimiterWithKey creates a rate limiter with a custom key extraction function.
func NewRateLimiterWithKey(limit int, window time.Duration, keyFunc KeyFunc) *RateLimiter {
	if keyFunc == nil {
		keyFunc = defaultKeyFunc
	}

	rl := &RateLimiter{
		requests: make(map[string]*clientInfo),
		limit:    limit,
		window:   window,
		stopCh:   make(chan struct{}),
		keyFunc:  keyFunc,
	}
	go rl.cleanup()
	return rl
}

// IPAndUserKey combines IP address with authenticated user ID for rate limiting.
// This prevents a single authenticated user from bypassing IP-based limits via
// multiple IPs, and prevents shared IPs from unfairly limiting distinct users.
func IPAndUserKey(c *fiber.Ctx) string {
	ip := c.IP()
	userID, ok := c.Locals("user_id").(string)
	if !ok {
		return ip
	}
	if userID != "" {
		return ip + ":" + userID
	}
	return ip
}

func defaultKeyFunc(c *fiber.Ctx) string {
	return c.IP()
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !rl.allow(rl.keyFunc(c), time.Now()) {
			return response.Error(c, fiber.StatusTooManyRequests, "too many requests, please try again later")
		}
		return c.Next()
	}
}

func (rl *RateLimiter) allow(key string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	info, exists := rl.requests[key]
	if !exists || now.After(info.windowEnd) {
		rl.requests[key] = &clientInfo{
			count:     1,
			windowEnd: now.Add(rl.window),
		}
		return true
	}

	if info.count >= rl.limit {
		return false
	}

	info.count++
	return true
}

// cleanup periodically removes expired entries
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			rl.mu.Lock()
			for key, info := range rl.requests {
				if now.After(info.windowEnd) {
					delete(rl.requests, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

// Stop gracefully stops the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCh)
	})
}

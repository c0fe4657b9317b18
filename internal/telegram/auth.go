package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// AuthManager управляет правами доступа и rate limiting. Управлять ботом
// могут только пользователи из списка allowed — никакой анонимной торговли.
type AuthManager struct {
	allowed      map[int64]bool
	rateLimiters map[int64]*RateLimiter
	mu           sync.RWMutex
}

// RateLimiter ограничивает частоту запросов от пользователя
type RateLimiter struct {
	lastRequest  time.Time
	requestCount int
	mu           sync.Mutex
}

// NewAuthManager создает новый менеджер авторизации. allowedIDsStr — список
// telegram user id через запятую
func NewAuthManager(allowedIDsStr string) *AuthManager {
	am := &AuthManager{
		allowed:      make(map[int64]bool),
		rateLimiters: make(map[int64]*RateLimiter),
	}

	if allowedIDsStr != "" {
		for _, idStr := range strings.Split(allowedIDsStr, ",") {
			idStr = strings.TrimSpace(idStr)
			if id, err := strconv.ParseInt(idStr, 10, 64); err == nil {
				am.allowed[id] = true
			}
		}
	}

	return am
}

// IsAllowed проверяет, разрешен ли доступ пользователю. Пустой список
// закрывает доступ всем: бот с торговым счетом не должен отвечать первому
// встречному.
func (am *AuthManager) IsAllowed(userID int64) bool {
	am.mu.RLock()
	defer am.mu.RUnlock()
	return am.allowed[userID]
}

// CheckRateLimit проверяет rate limit для пользователя
func (am *AuthManager) CheckRateLimit(userID int64, maxRequestsPerSecond int) error {
	am.mu.Lock()
	limiter, exists := am.rateLimiters[userID]
	if !exists {
		limiter = &RateLimiter{}
		am.rateLimiters[userID] = limiter
	}
	am.mu.Unlock()

	limiter.mu.Lock()
	defer limiter.mu.Unlock()

	now := time.Now()
	if now.Sub(limiter.lastRequest) >= time.Second {
		limiter.requestCount = 0
		limiter.lastRequest = now
	}

	limiter.requestCount++
	if limiter.requestCount > maxRequestsPerSecond {
		waitTime := time.Second - now.Sub(limiter.lastRequest)
		return fmt.Errorf("rate limit exceeded, please wait %v", waitTime.Round(time.Millisecond))
	}

	return nil
}

// CleanupRateLimiters очищает неактивные rate limiters (вызывать периодически)
func (am *AuthManager) CleanupRateLimiters() {
	am.mu.Lock()
	defer am.mu.Unlock()

	now := time.Now()
	for userID, limiter := range am.rateLimiters {
		limiter.mu.Lock()
		if now.Sub(limiter.lastRequest) > 5*time.Minute {
			delete(am.rateLimiters, userID)
		}
		limiter.mu.Unlock()
	}
}

package domain

import "time"

// RateLimitRule - лимит запросов в окне для одного ключа (IP клиента)
type RateLimitRule struct {
	Scope  string
	Limit  int
	Window time.Duration
}

const (
	RateLimitScopeIP      = "ip"
	RateLimitScopeSession = "session"
)

package config

import (
	"fmt"

	"github.com/google/uuid"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AuthTokenKey marks a JWT (by its JTI) as revoked until it would expire.
func (r *CacheKeyStruct) AuthTokenKey(jti string) string {
	return fmt.Sprintf("auth:token:%s", jti)
}

// AuthRateLimitKey counts login/register attempts for one client IP.
func (r *CacheKeyStruct) AuthRateLimitKey(ip string) string {
	return fmt.Sprintf("ratelimit:auth:%s", ip)
}

// APIRateLimitKey counts general API requests for one client IP.
func (r *CacheKeyStruct) APIRateLimitKey(ip string) string {
	return fmt.Sprintf("ratelimit:api:%s", ip)
}

// SessionOrderKey stores the question/answer order delivered when a session started.
func (r *CacheKeyStruct) SessionOrderKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("session:%s:order", sessionID)
}

// ExpiryWorkerLockKey guards the expiry sweep when several replicas run it.
func (r *CacheKeyStruct) ExpiryWorkerLockKey() string {
	return "worker:session_expiry:lock"
}

var CacheKey = NewCacheKeyStruct()

package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the key holding the minimum token issue time for a
// user. Tokens issued before it are rejected (set on password reset).
func (r *CacheKeyStruct) UserSessionKey(userID string) string {
	return fmt.Sprintf("user:%s:tokens_valid_after", userID)
}

// LoginAttemptsKey returns the counter key for login attempts from one IP.
func (r *CacheKeyStruct) LoginAttemptsKey(ip string) string {
	return fmt.Sprintf("ratelimit:login:%s", ip)
}

// TuitionFeeKey caches the valor_propina setting.
func (r *CacheKeyStruct) TuitionFeeKey() string {
	return "settings:valor_propina"
}

// RealtimeChannel returns the Redis PubSub channel for row changes of a table.
func (r *CacheKeyStruct) RealtimeChannel(table string) string {
	return fmt.Sprintf("realtime:%s", table)
}

// RealtimePattern matches every realtime table channel.
func (r *CacheKeyStruct) RealtimePattern() string {
	return "realtime:*"
}

var CacheKey = NewCacheKeyStruct()

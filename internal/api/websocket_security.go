package api

import (
	"net/http"
	"sync"

	"github.com/FocuswithJustin/JuniperQuran/internal/logging"
	"github.com/FocuswithJustin/JuniperQuran/internal/server"
)

// WebSocketSecurityConfig holds WebSocket-specific security configuration.
type WebSocketSecurityConfig struct {
	// AllowedOrigins lists the origins that may connect. Empty allows
	// every origin; see server.OriginAllowed for the patterns.
	AllowedOrigins []string

	// MaxMessageRate is the maximum number of messages per second per client.
	MaxMessageRate int

	// MaxMessageSize is the maximum message size in bytes.
	MaxMessageSize int64
}

// DefaultWebSocketSecurityConfig returns the default limits. Clients only
// listen, so inbound messages are kept small and rare.
func DefaultWebSocketSecurityConfig() WebSocketSecurityConfig {
	return WebSocketSecurityConfig{
		MaxMessageRate: 10,
		MaxMessageSize: 4096,
	}
}

// WebSocketRateLimiter tracks inbound message rates per client.
type WebSocketRateLimiter struct {
	clients map[*Client]*tokenBucket
	mu      sync.RWMutex
}

// NewWebSocketRateLimiter creates a new WebSocket rate limiter.
func NewWebSocketRateLimiter() *WebSocketRateLimiter {
	return &WebSocketRateLimiter{
		clients: make(map[*Client]*tokenBucket),
	}
}

// Register registers a client for rate limiting. Bursts of twice the rate
// are allowed.
func (rl *WebSocketRateLimiter) Register(client *Client, messagesPerSecond int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rate := float64(messagesPerSecond)
	rl.clients[client] = newTokenBucket(rate*2, rate)
}

// Unregister removes a client from rate limiting.
func (rl *WebSocketRateLimiter) Unregister(client *Client) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	delete(rl.clients, client)
}

// Allow reports whether a message from the client may be processed.
// Unregistered clients are denied.
func (rl *WebSocketRateLimiter) Allow(client *Client) bool {
	rl.mu.RLock()
	bucket, exists := rl.clients[client]
	rl.mu.RUnlock()

	if !exists {
		return false
	}
	return bucket.allow()
}

// CheckOriginWithConfig creates a CheckOrigin function based on security config.
func CheckOriginWithConfig(config WebSocketSecurityConfig) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		allowed := server.OriginAllowed(origin, config.AllowedOrigins)
		if !allowed {
			logging.WarnContext(r.Context(), "websocket_origin_rejected",
				"origin", origin,
				"client_ip", getClientIP(r))
		}
		return allowed
	}
}

package middleware

import (
    "net/http"
    "sync"
    "time"

    "github.com/gin-gonic/gin"

    "github.com/GTDGit/gradeshop_api/internal/utils"
)

// LoginRateLimiter tracks failed admin logins per IP.
type LoginRateLimiter struct {
    mu       sync.Mutex
    attempts map[string]*attemptInfo
    limit    int
    window   time.Duration
    now      func() time.Time
}

type attemptInfo struct {
    count   int
    firstAt time.Time
}

// NewLoginRateLimiter blocks an IP after limit failures inside window.
func NewLoginRateLimiter(limit int, window time.Duration) *LoginRateLimiter {
    return &LoginRateLimiter{
        attempts: make(map[string]*attemptInfo),
        limit:    limit,
        window:   window,
        now:      time.Now,
    }
}

// Blocked reports whether ip has used up its failed attempts.
func (r *LoginRateLimiter) Blocked(ip string) bool {
    r.mu.Lock()
    defer r.mu.Unlock()

    info, exists := r.attempts[ip]
    if !exists {
        return false
    }
    // Reset if window expired
    if r.now().Sub(info.firstAt) > r.window {
        delete(r.attempts, ip)
        return false
    }
    return info.count >= r.limit
}

// Fail records one failed attempt for ip.
func (r *LoginRateLimiter) Fail(ip string) {
    r.mu.Lock()
    defer r.mu.Unlock()

    now := r.now()
    info, exists := r.attempts[ip]
    if !exists || now.Sub(info.firstAt) > r.window {
        r.attempts[ip] = &attemptInfo{count: 1, firstAt: now}
        return
    }
    info.count++
}

// Reset forgets ip after a successful login.
func (r *LoginRateLimiter) Reset(ip string) {
    r.mu.Lock()
    delete(r.attempts, ip)
    r.mu.Unlock()
}

// Handle rejects blocked IPs and counts 401 responses as failures.
func (r *LoginRateLimiter) Handle() gin.HandlerFunc {
    return func(c *gin.Context) {
        ip := c.ClientIP()
        if r.Blocked(ip) {
            utils.Error(c, http.StatusTooManyRequests, utils.CodeTooManyAttempts, "Too many failed login attempts, try again later")
            c.Abort()
            return
        }

        c.Next()

        switch c.Writer.Status() {
        case http.StatusUnauthorized:
            r.Fail(ip)
        case http.StatusOK:
            r.Reset(ip)
        }
    }
}

// Cleanup drops expired entries every few minutes until stop is closed.
func (r *LoginRateLimiter) Cleanup(stop <-chan struct{}) {
    ticker := time.NewTicker(5 * time.Minute)
    defer ticker.Stop()
    for {
        select {
        case <-stop:
            return
        case <-ticker.C:
            r.mu.Lock()
            now := r.now()
            for ip, info := range r.attempts {
                if now.Sub(info.firstAt) > r.window {
                    delete(r.attempts, ip)
                }
            }
            r.mu.Unlock()
        }
    }
}

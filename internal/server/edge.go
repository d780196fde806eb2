package server

import (
	"net/http"
	"net/netip"
	"regexp"
	"time"

	"github.com/abduss/contactbook/internal/logger"
	"github.com/abduss/contactbook/internal/metrics"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", logger.CorrelationIDHeader},
		ExposeHeaders:    []string{logger.CorrelationIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false
			return cors.New(cfg)
		}
	}
	cfg.AllowOrigins = origins
	return cors.New(cfg)
}

// banList rejects requests by client address or User-Agent.
type banList struct {
	addrs    map[netip.Addr]struct{}
	prefixes []netip.Prefix
	agents   []*regexp.Regexp
}

// newBanList parses IPs, CIDRs and User-Agent regexps. Invalid entries are
// logged and skipped.
func newBanList(ips, agentPatterns []string, log *zap.Logger) *banList {
	b := &banList{addrs: make(map[netip.Addr]struct{})}
	for _, raw := range ips {
		if prefix, err := netip.ParsePrefix(raw); err == nil {
			b.prefixes = append(b.prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			log.Warn("ignoring invalid banned ip", zap.String("value", raw))
			continue
		}
		b.addrs[addr.Unmap()] = struct{}{}
	}
	for _, pattern := range agentPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			log.Warn("ignoring invalid banned user agent pattern", zap.String("value", pattern), zap.Error(err))
			continue
		}
		b.agents = append(b.agents, re)
	}
	return b
}

func (b *banList) empty() bool {
	return len(b.addrs) == 0 && len(b.prefixes) == 0 && len(b.agents) == 0
}

func (b *banList) banned(clientIP, userAgent string) bool {
	if addr, err := netip.ParseAddr(clientIP); err == nil {
		addr = addr.Unmap()
		if _, ok := b.addrs[addr]; ok {
			return true
		}
		for _, p := range b.prefixes {
			if p.Contains(addr) {
				return true
			}
		}
	}
	for _, re := range b.agents {
		if re.MatchString(userAgent) {
			return true
		}
	}
	return false
}

func (b *banList) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if b.banned(c.ClientIP(), c.Request.UserAgent()) {
			metrics.ObserveAuthEvent(metrics.EventRequestRejected)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "you are banned"})
			return
		}
		c.Next()
	}
}

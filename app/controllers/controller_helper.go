package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ClientIP returns the originating client address, preferring proxy headers
// (Cloudflare, then the first X-Forwarded-For entry, then X-Real-IP).
// IPv4 addresses mapped into IPv6 are unwrapped.
func ClientIP(c *fiber.Ctx) string {
	if ip := strings.TrimSpace(c.Get("CF-Connecting-IP")); ip != "" {
		return unmapIPv4(ip)
	}
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return unmapIPv4(first)
		}
	}
	if ip := strings.TrimSpace(c.Get("X-Real-IP")); ip != "" {
		return unmapIPv4(ip)
	}
	return unmapIPv4(c.IP())
}

func unmapIPv4(ip string) string {
	if strings.HasPrefix(ip, "::ffff:") && strings.Contains(ip, ".") {
		return strings.TrimPrefix(ip, "::ffff:")
	}
	return ip
}

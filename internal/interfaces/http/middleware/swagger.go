package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/liquorledger/backend/internal/interfaces/http/dto"
)

// SwaggerConfig controls access to the API documentation endpoint
type SwaggerConfig struct {
	Enabled    bool
	AllowedIPs []string // single IPs or CIDRs, empty allows every client
}

// SwaggerProtection answers 404 while the docs are disabled and 403 to
// clients outside AllowedIPs.
func SwaggerProtection(cfg SwaggerConfig) gin.HandlerFunc {
	var allowedNets []*net.IPNet
	var allowedIPs []net.IP
	for _, entry := range cfg.AllowedIPs {
		if strings.Contains(entry, "/") {
			if _, network, err := net.ParseCIDR(entry); err == nil {
				allowedNets = append(allowedNets, network)
			}
			continue
		}
		if ip := net.ParseIP(entry); ip != nil {
			allowedIPs = append(allowedIPs, ip)
		}
	}

	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.AbortWithStatusJSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeNotFound, "API documentation is not available", GetRequestID(c)))
			return
		}

		if len(cfg.AllowedIPs) > 0 && !isIPAllowed(net.ParseIP(c.ClientIP()), allowedIPs, allowedNets) {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeForbidden, "Access to API documentation is restricted", GetRequestID(c)))
			return
		}

		c.Next()
	}
}

func isIPAllowed(ip net.IP, allowedIPs []net.IP, allowedNets []*net.IPNet) bool {
	if ip == nil {
		return false
	}
	for _, allowed := range allowedIPs {
		if allowed.Equal(ip) {
			return true
		}
	}
	for _, network := range allowedNets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

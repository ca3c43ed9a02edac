package logger

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	lg   *zap.Logger
	once sync.Once
)

// New returns the process-wide zap.Logger. Production gets JSON output;
// every other environment gets the colored console encoder.
func New(env string) (*zap.Logger, error) {
	var err error
	once.Do(func() {
		cfg := zap.NewProductionConfig()
		if env != "production" {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}

		lg, err = cfg.Build()
	})

	return lg, err
}

// RequestIDKey stores the request identifier on a context.
type RequestIDKey struct{}

// WithContext returns the logger enriched with the request id, when present.
func WithContext(ctx context.Context) *zap.Logger {
	if lg == nil {
		fallback, _ := zap.NewDevelopment()
		return fallback
	}
	if ctx == nil {
		return lg
	}

	if id, ok := ctx.Value(RequestIDKey{}).(string); ok && id != "" {
		return lg.With(zap.String("request_id", id))
	}
	return lg
}

// MaskEmail keeps the first three characters of the local part and the full
// domain: john.doe@example.com becomes joh***@example.com. Log lines carry
// only masked addresses so they cannot be used to enumerate accounts.
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}

	parts := strings.SplitN(email, "@", 2)
	if len(parts) != 2 {
		if len(email) <= 3 {
			return "***"
		}
		return email[:3] + "***"
	}

	local := parts[0]
	if len(local) <= 3 {
		return "***@" + parts[1]
	}
	return local[:3] + "***@" + parts[1]
}

// MaskIP keeps the first two IPv4 octets or the first four IPv6 groups.
func MaskIP(ip string) string {
	if ip == "" {
		return ""
	}

	if strings.Contains(ip, ".") {
		parts := strings.Split(ip, ".")
		if len(parts) == 4 {
			return parts[0] + "." + parts[1] + ".*.*"
		}
	}

	if strings.Contains(ip, ":") {
		parts := strings.Split(ip, ":")
		if len(parts) >= 4 {
			return strings.Join(parts[:4], ":") + ":*:*:*:*"
		}
	}

	return "***"
}

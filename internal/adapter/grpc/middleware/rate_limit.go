package middleware

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"user-rest-service/pkg/logger"
	"user-rest-service/pkg/ratelimit"
)

// Health/Check is polled by orchestrators and never throttled.
var unlimited = map[string]bool{
	healthpb.Health_Check_FullMethodName: true,
}

// RateLimiter implements gRPC rate limiting per method and client.
type RateLimiter struct {
	limiter ratelimit.Limiter
	trusted []netip.Prefix
	log     *zap.Logger
}

// NewRateLimiter creates a new rate limiter interceptor. A nil limiter disables it.
// Forwarding metadata is honoured only on calls from a trusted proxy, given as
// IPs or CIDRs.
func NewRateLimiter(limiter ratelimit.Limiter, trustedProxies []string, log *zap.Logger) (*RateLimiter, error) {
	trusted, err := parsePrefixes(trustedProxies)
	if err != nil {
		return nil, err
	}
	return &RateLimiter{
		limiter: limiter,
		trusted: trusted,
		log:     log,
	}, nil
}

// parsePrefixes accepts bare addresses as single-host prefixes.
func parsePrefixes(entries []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, e := range entries {
		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(e)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
		}
		a = a.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(a, a.BitLen()))
	}
	return prefixes, nil
}

// UnaryInterceptor returns a gRPC unary interceptor for rate limiting.
func (rl *RateLimiter) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if err := rl.allow(ctx, info.FullMethod); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamInterceptor limits stream opens the same way UnaryInterceptor limits calls.
func (rl *RateLimiter) StreamInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if err := rl.allow(ss.Context(), info.FullMethod); err != nil {
			return err
		}
		return handler(srv, ss)
	}
}

func (rl *RateLimiter) allow(ctx context.Context, method string) error {
	if rl.limiter == nil || unlimited[method] {
		return nil
	}

	ip := rl.clientIP(ctx)
	log := logger.WithContext(ctx, rl.log).With(
		zap.String("client_ip", ip),
		zap.String("method", method),
	)

	allowed, err := rl.limiter.Allow(ctx, "grpc:"+method+":"+ip)
	if err != nil {
		// fail open
		log.Warn("rate limiter error, allowing request", zap.Error(err))
		return nil
	}
	if !allowed {
		log.Warn("rate limit exceeded")
		return status.Error(codes.ResourceExhausted, "rate limit exceeded")
	}
	return nil
}

// clientIP returns the peer address, or the forwarded client when the peer
// is a trusted proxy.
func (rl *RateLimiter) clientIP(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}

	host := p.Addr.String()
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if !rl.isTrusted(host) {
		return host
	}

	if md, ok := metadata.FromIncomingContext(ctx); ok {
		// the first x-forwarded-for hop is the original client
		if xff := md.Get("x-forwarded-for"); len(xff) > 0 {
			first, _, _ := strings.Cut(xff[0], ",")
			return strings.TrimSpace(first)
		}
		if xri := md.Get("x-real-ip"); len(xri) > 0 {
			return xri[0]
		}
	}
	return host
}

func (rl *RateLimiter) isTrusted(host string) bool {
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range rl.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dispatch-service/internal/models"
)

// ErrProviderUnavailable is returned when no provider can take a token.
var ErrProviderUnavailable = errors.New("push provider unavailable")

// Provider delivers one push message to one device token. Implementations
// make a single attempt.
type Provider interface {
	Send(ctx context.Context, token string, msg models.PushMessage) error
}

// Router picks a provider from the token's scheme prefix ("telegram:123")
// and hands everything else to the default provider. FCM registration
// tokens contain colons themselves, so only registered schemes are stripped.
type Router struct {
	providers map[string]Provider
	fallback  Provider
}

func NewRouter() *Router {
	return &Router{providers: make(map[string]Provider)}
}

// Register binds scheme to p.
func (r *Router) Register(scheme string, p Provider) {
	r.providers[scheme] = p
}

// SetDefault sets the provider used for tokens without a registered scheme.
func (r *Router) SetDefault(p Provider) {
	r.fallback = p
}

// Send implements the push gateway.
func (r *Router) Send(ctx context.Context, token string, msg models.PushMessage) error {
	if token == "" {
		return fmt.Errorf("empty push token: %w", ErrProviderUnavailable)
	}
	if scheme, rest, ok := strings.Cut(token, ":"); ok {
		if p, found := r.providers[scheme]; found {
			return p.Send(ctx, rest, msg)
		}
	}
	if r.fallback == nil {
		return fmt.Errorf("no default provider for token: %w", ErrProviderUnavailable)
	}
	return r.fallback.Send(ctx, token, msg)
}

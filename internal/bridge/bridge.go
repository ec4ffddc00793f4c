// Package bridge models the widget-to-storefront messaging contract as a
// typed channel: a fixed whitelist of message kinds and mandatory origin
// validation. Anything arriving with an unknown kind or from an origin
// outside the allow-list is rejected before it reaches a handler.
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind identifies one message type the widget and storefront exchange.
type Kind string

const (
	KindWidgetOpened   Kind = "widget_opened"
	KindWidgetClosed   Kind = "widget_closed"
	KindTryOnStarted   Kind = "tryon_started"
	KindTryOnCompleted Kind = "tryon_completed"
	KindTryOnFailed    Kind = "tryon_failed"
	KindAddToCart      Kind = "add_to_cart"
	KindProductViewed  Kind = "product_viewed"
)

var (
	ErrUnknownKind      = errors.New("bridge: unknown message kind")
	ErrOriginNotAllowed = errors.New("bridge: origin not allowed")
	ErrMissingSession   = errors.New("bridge: session id required")
)

// Envelope is one message on the channel.
type Envelope struct {
	Kind      Kind            `json:"kind"`
	Origin    string          `json:"origin"`
	SessionID string          `json:"sessionId"`
	RequestID string          `json:"requestId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Channel validates envelopes against a kind whitelist and an origin
// allow-list. An empty origin list admits any *.myshopify.com storefront.
type Channel struct {
	kinds   map[Kind]struct{}
	origins map[string]struct{}
}

func NewChannel(allowedOrigins []string) *Channel {
	kinds := map[Kind]struct{}{
		KindWidgetOpened:   {},
		KindWidgetClosed:   {},
		KindTryOnStarted:   {},
		KindTryOnCompleted: {},
		KindTryOnFailed:    {},
		KindAddToCart:      {},
		KindProductViewed:  {},
	}
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin != "" {
			origins[origin] = struct{}{}
		}
	}
	return &Channel{kinds: kinds, origins: origins}
}

// Decode parses raw into an Envelope and validates it against the whitelist.
// The transport origin (e.g. the Origin request header) wins over whatever
// the payload claims.
func (c *Channel) Decode(raw []byte, transportOrigin string) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("bridge: malformed envelope: %w", err)
	}
	if transportOrigin != "" {
		env.Origin = transportOrigin
	}
	if err := c.Validate(&env); err != nil {
		return nil, err
	}
	return &env, nil
}

// Validate checks kind, origin, and session presence.
func (c *Channel) Validate(env *Envelope) error {
	if env == nil {
		return errors.New("bridge: nil envelope")
	}
	if _, ok := c.kinds[env.Kind]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, env.Kind)
	}
	if !c.originAllowed(env.Origin) {
		return fmt.Errorf("%w: %q", ErrOriginNotAllowed, env.Origin)
	}
	if strings.TrimSpace(env.SessionID) == "" {
		return ErrMissingSession
	}
	return nil
}

func (c *Channel) originAllowed(origin string) bool {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	if origin == "" {
		return false
	}
	if len(c.origins) == 0 {
		return strings.HasSuffix(origin, ".myshopify.com") ||
			strings.HasSuffix(origin, ".shopifypreview.com")
	}
	_, ok := c.origins[origin]
	return ok
}

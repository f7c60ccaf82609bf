package server

import (
	"context"

	"github.com/felixgeelhaar/mcp-docs/protocol"
)

// NotificationSender can send JSON-RPC notifications.
type NotificationSender interface {
	SendNotification(method string, params any) error
}

// ResourceUpdatedParams is the payload of a resource updated notification.
type ResourceUpdatedParams struct {
	URI string `json:"uri"`
}

// Notifier lets handlers tell the client about state they changed.
type Notifier struct {
	sender NotificationSender
}

// ResourceUpdated reports that the resource at uri changed. It is a no-op
// when the request did not come in over a channel that carries
// notifications.
func (n *Notifier) ResourceUpdated(uri string) error {
	if n == nil || n.sender == nil {
		return nil
	}
	return n.sender.SendNotification(protocol.MethodResourceUpdated, ResourceUpdatedParams{URI: uri})
}

type notifierContextKey struct{}

// ContextWithNotifier returns a context whose handlers notify through sender.
func ContextWithNotifier(ctx context.Context, sender NotificationSender) context.Context {
	return context.WithValue(ctx, notifierContextKey{}, &Notifier{sender: sender})
}

// NotifierFromContext returns the notifier from context. The result is never
// nil; without a sender it drops every notification.
func NotifierFromContext(ctx context.Context) *Notifier {
	if n, ok := ctx.Value(notifierContextKey{}).(*Notifier); ok {
		return n
	}
	return &Notifier{}
}

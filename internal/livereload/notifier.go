// Package livereload turns classified filesystem changes into push
// notifications for every connected browser tab.
//
// A single Notifier goroutine consumes the watcher's event channel, so all
// legend recomputation and broadcasting happens outside the watch loop.
package livereload

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/conneroisu/docsman/internal/legend"
	"github.com/conneroisu/docsman/internal/logging"
	"github.com/conneroisu/docsman/internal/registry"
	"github.com/conneroisu/docsman/internal/watcher"
)

// Event names understood by the page script.
const (
	EventPageUpdate   = "pageupdate"
	EventLegendUpdate = "legendupdate"
)

// Message is the push payload.
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// PageUpdateData names the page whose source changed.
type PageUpdateData struct {
	Page string `json:"page"`
}

// LegendUpdateData carries the encoded legend.
type LegendUpdateData struct {
	Legend string `json:"legend"`
}

// Broadcaster fans a message out to all clients.
type Broadcaster interface {
	Broadcast(ctx context.Context, message []byte) registry.BroadcastResult
}

// LegendLister recomputes the legend.
type LegendLister interface {
	List() (legend.Legend, error)
}

// PageUpdate builds a pageupdate message.
func PageUpdate(page string) ([]byte, error) {
	return json.Marshal(Message{Event: EventPageUpdate, Data: PageUpdateData{Page: page}})
}

// LegendUpdate builds a legendupdate message from a fresh legend.
func LegendUpdate(l legend.Legend) ([]byte, error) {
	encoded, err := legend.Encode(l)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Event: EventLegendUpdate, Data: LegendUpdateData{Legend: encoded}})
}

// Notifier maps change events onto broadcasts.
type Notifier struct {
	clients Broadcaster
	legend  LegendLister
	logger  logging.Logger
}

// NewNotifier creates a notifier.
func NewNotifier(clients Broadcaster, lister LegendLister, logger logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Notifier{
		clients: clients,
		legend:  lister,
		logger:  logger.WithComponent("livereload"),
	}
}

// Run consumes events until the channel is closed or ctx is done. Failures
// are logged and never stop the loop.
func (n *Notifier) Run(ctx context.Context, events <-chan watcher.ChangeEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := n.Handle(ctx, event); err != nil {
				n.logger.Error(ctx, err, "Failed to publish change", "type", event.Type.String(), "path", event.Path)
			}
		}
	}
}

// Handle publishes the notification for one event.
func (n *Notifier) Handle(ctx context.Context, event watcher.ChangeEvent) error {
	var (
		message []byte
		err     error
	)

	switch event.Type {
	case watcher.EventTypeModified:
		message, err = PageUpdate(event.Path)
	case watcher.EventTypeCreated, watcher.EventTypeRemoved:
		l, listErr := n.legend.List()
		if listErr != nil {
			return fmt.Errorf("failed to recompute legend: %w", listErr)
		}
		message, err = LegendUpdate(l)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", event.Type, err)
	}

	result := n.clients.Broadcast(ctx, message)
	n.logger.Info(ctx, "Change broadcast",
		"type", event.Type.String(),
		"path", event.Path,
		"delivered", result.Delivered,
		"evicted", result.Evicted,
	)

	return nil
}

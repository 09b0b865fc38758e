package events

import (
	"context"
	"encoding/json"
	"fmt"

	"go_ingest_backend/models"
	"go_ingest_backend/pkg/apperr"
)

// Message is one payload received on a broker channel.
type Message struct {
	Channel string
	Payload []byte
}

// Handler is invoked once per message, sequentially, in broker order.
type Handler func(ctx context.Context, msg Message)

// Subscription stops delivery when closed. Close is idempotent.
type Subscription interface {
	Close() error
}

type Publisher interface {
	// Publish serializes payload and hands it to the broker. It does not wait for
	// delivery; messages published while nobody is subscribed are lost.
	Publish(ctx context.Context, channel string, payload any) error
}

type Bus interface {
	Publisher
	// Subscribe delivers every message published on any of channels to handler until
	// the subscription is closed or ctx is cancelled.
	Subscribe(ctx context.Context, channels []string, handler Handler) (Subscription, error)
	Close() error
}

// Channels returns the broker channel name of every event kind.
func Channels() []string {
	out := make([]string, 0, len(models.AllEventTypes))
	for _, t := range models.AllEventTypes {
		out = append(out, string(t))
	}
	return out
}

// PublishEvent publishes ev on the channel named after its kind.
func PublishEvent(ctx context.Context, p Publisher, ev models.Event) error {
	return p.Publish(ctx, string(ev.Kind()), ev)
}

// Decode turns a raw channel message into its typed payload.
func Decode(channel string, data []byte) (models.Event, error) {
	var (
		ev  models.Event
		err error
	)
	switch models.EventType(channel) {
	case models.EventFileUploaded:
		ev, err = decodeInto[models.FileUploadedEvent](data)
	case models.EventFileProcessing:
		ev, err = decodeInto[models.FileProcessingEvent](data)
	case models.EventFileProcessed:
		ev, err = decodeInto[models.FileProcessedEvent](data)
	case models.EventFileError:
		ev, err = decodeInto[models.FileErrorEvent](data)
	default:
		return nil, apperr.Validation("channel", fmt.Sprintf("unknown event channel %q", channel))
	}
	if err != nil {
		return nil, err
	}
	if err := validate(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

func decodeInto[T models.Event](data []byte) (models.Event, error) {
	var ev T
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, apperr.Validationf("payload", err, "malformed %s payload", ev.Kind())
	}
	return ev, nil
}

func validate(ev models.Event) error {
	if ev.EventFileID() == "" {
		return apperr.Validation("fileId", "required")
	}
	switch e := ev.(type) {
	case models.FileProcessingEvent:
		if e.Progress < 0 || e.Progress > 100 {
			return apperr.Validation("progress", fmt.Sprintf("%d out of range 0-100", e.Progress))
		}
	case models.FileErrorEvent:
		if e.Error == "" {
			return apperr.Validation("error", "required")
		}
	}
	return nil
}

package probe

import (
	"context"
	"errors"

	"github.com/okian/bizdash/internal/adapters/http/client"
	"github.com/okian/bizdash/internal/domain/model"
	"github.com/okian/bizdash/pkg/logger"
)

// Watch streams live values of device until ctx is cancelled. Every uri_data
// batch is logged; pongs only when verbose.
func Watch(ctx context.Context, c *client.Client, device string, verbose bool) error {
	if device == "" {
		return ErrNoDevice
	}
	log := logger.Named("watch")
	log.Info(ctx, "watching device", logger.String("device", device))

	err := c.StreamDevice(ctx, device, func(msg model.StreamMessage) error {
		switch msg.Type {
		case model.StreamURIList:
			log.Info(ctx, "uri list", logger.String("device", msg.DeviceID), logger.Int("uris", len(msg.URIs)))
		case model.StreamURIData:
			for _, v := range msg.Data {
				value := "-"
				if v.Value != nil {
					value = *v.Value
				}
				log.Info(ctx, "value",
					logger.String("uri", v.URI),
					logger.String("name", v.Name),
					logger.String("value", value),
					logger.String("fetch_time", msg.FetchTime))
			}
		default:
			if verbose {
				log.Debug(ctx, "stream message", logger.String("type", msg.Type))
			}
		}
		return nil
	})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/okian/bizdash/internal/domain/model"
)

const (
	streamPing         = "ping"
	streamWriteTimeout = 5 * time.Second
)

// StreamHandler receives live stream messages. Returning an error stops the
// stream and the error is returned from StreamDevice.
type StreamHandler func(model.StreamMessage) error

// StreamURL returns the websocket address of a device's live stream.
// The scheme follows the base URL and the trailing /api segment is dropped.
func (c *Client) StreamURL(name string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	root := strings.TrimSuffix(strings.TrimRight(u.Path, "/"), "/api")
	u.Path = root + "/ws/device/" + name
	u.RawPath = root + "/ws/device/" + url.PathEscape(name)
	u.RawQuery = ""
	return u.String(), nil
}

// StreamDevice subscribes to a device's live URI values and calls fn for
// every message until ctx is cancelled, the server closes the stream or fn
// fails. A ping is sent every ping interval.
func (c *Client) StreamDevice(ctx context.Context, name string, fn StreamHandler) error {
	method := http.MethodGet
	target, err := c.StreamURL(name)
	if err != nil {
		return c.fail(ctx, method, EndpointDeviceStream, 0, fmt.Errorf("%w: %w", ErrStream, err))
	}

	header := http.Header{}
	for k, vs := range c.header {
		if k != "Content-Type" {
			header[k] = append([]string(nil), vs...)
		}
	}
	conn, resp, err := c.dialer.DialContext(ctx, target, header)
	status := 0
	if resp != nil {
		status = resp.StatusCode
		_ = resp.Body.Close()
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return c.fail(ctx, method, EndpointDeviceStream, status, fmt.Errorf("%w: dial: %w", ErrStream, err))
	}
	defer conn.Close()

	c.metrics.AddStreamConnections(1)
	defer c.metrics.AddStreamConnections(-1)

	var handlerErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Closing the connection unblocks the reader.
		defer conn.Close()
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				deadline := time.Now().Add(streamWriteTimeout)
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
				return nil
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, []byte(streamPing)); err != nil {
					return err
				}
			}
		}
	})
	g.Go(func() error {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return err
			}
			var msg model.StreamMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				return fmt.Errorf("%w: %w", ErrDecode, err)
			}
			c.metrics.RecordStreamMessage(msg.Type)
			if err := fn(msg); err != nil {
				handlerErr = err
				return err
			}
		}
	})

	err = g.Wait()
	switch {
	case handlerErr != nil:
		return handlerErr
	case ctx.Err() != nil:
		return ctx.Err()
	case err == nil, websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		return nil
	}
	return c.fail(ctx, method, EndpointDeviceStream, 0, fmt.Errorf("%w: %w", ErrStream, err))
}

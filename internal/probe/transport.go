package probe

import (
	"context"
	"io"
	"net/http"
	"sync/atomic"
)

// meter records what the transport saw for one check.
type meter struct {
	status atomic.Int64
	bytes  atomic.Int64
}

type meterKey struct{}

func withMeter(ctx context.Context, m *meter) context.Context {
	return context.WithValue(ctx, meterKey{}, m)
}

func meterFrom(ctx context.Context) *meter {
	m, _ := ctx.Value(meterKey{}).(*meter)
	return m
}

// meteredTransport copies the status and counts the body bytes of every
// response into the meter carried by the request context.
type meteredTransport struct {
	next http.RoundTripper
}

func (t meteredTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	m := meterFrom(req.Context())
	if err != nil || m == nil {
		return resp, err
	}
	m.status.Store(int64(resp.StatusCode))
	resp.Body = &countingBody{ReadCloser: resp.Body, m: m}
	return resp, nil
}

type countingBody struct {
	io.ReadCloser
	m *meter
}

func (b *countingBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	b.m.bytes.Add(int64(n))
	return n, err
}

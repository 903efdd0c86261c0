// Package natsutil provides typed JSON publish/subscribe/request helpers
// for NATS, with OpenTelemetry trace context carried in message headers.
package natsutil

import (
	"context"
	"encoding/json"
	"maps"
	"slices"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
)

// headerCarrier adapts nats.Msg headers to the OTel TextMapCarrier contract.
type headerCarrier nats.Msg

// Get reads a header value. nats.Header.Get tolerates a nil map.
func (c *headerCarrier) Get(key string) string { return c.Header.Get(key) }

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	return slices.Collect(maps.Keys(c.Header))
}

// wireMsg marshals v and builds a message with trace context injected
// into its headers.
func wireMsg[T any](ctx context.Context, subject string, v T) (*nats.Msg, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	msg := &nats.Msg{Subject: subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))
	return msg, nil
}

// Publish serializes v as JSON and publishes it to subject, propagating
// any trace context from ctx.
func Publish[T any](ctx context.Context, nc *nats.Conn, subject string, v T) error {
	msg, err := wireMsg(ctx, subject, v)
	if err != nil {
		return err
	}
	return nc.PublishMsg(msg)
}

// Subscribe registers a handler for JSON messages of type T on subject.
// The handler context carries any trace context extracted from the
// message headers. Messages that fail to decode are dropped.
func Subscribe[T any](nc *nats.Conn, subject string, handler func(context.Context, T)) (*nats.Subscription, error) {
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		var payload T
		if json.Unmarshal(msg.Data, &payload) != nil {
			return
		}
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*headerCarrier)(msg))
		handler(ctx, payload)
	})
}

// Request sends a JSON-encoded request to subject and decodes the reply.
// The caller's context bounds the wait, so slow responders (a
// recommendation run can take minutes) get however long the caller
// allows rather than a fixed library timeout.
func Request[Req, Resp any](ctx context.Context, nc *nats.Conn, subject string, req Req) (resp Resp, _ error) {
	msg, err := wireMsg(ctx, subject, req)
	if err != nil {
		return resp, err
	}
	reply, err := nc.RequestMsgWithContext(ctx, msg)
	if err != nil {
		return resp, err
	}
	if err := json.Unmarshal(reply.Data, &resp); err != nil {
		return resp, err
	}
	return resp, nil
}

package app

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/nats-io/nats.go"
)

type natsConn interface {
	Publish(subj string, data []byte) error
	Drain() error
	Close()
}

// NATSPublisher publishes link lifecycle events as JSON on
// <prefix>.<subject>.
type NATSPublisher struct {
	nc     natsConn
	prefix string
}

// NewNATSPublisher connects to url.
func NewNATSPublisher(url, prefix string, opts ...nats.Option) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, append([]nats.Option{nats.Name(serviceName)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{nc: nc, prefix: strings.Trim(strings.TrimSpace(prefix), ".")}, nil
}

// Publish sends v as JSON on the prefixed subject.
func (p *NATSPublisher) Publish(ctx context.Context, subject string, v any) error {
	if p == nil || p.nc == nil {
		return errors.New("nats: nil publisher")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subject(subject), data)
}

func (p *NATSPublisher) subject(s string) string {
	if p.prefix == "" {
		return s
	}
	return p.prefix + "." + s
}

// Close drains pending messages, falling back to a hard close.
func (p *NATSPublisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
}

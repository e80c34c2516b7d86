package janus

import (
	"context"
	"time"

	"github.com/dkeye/Duet/internal/core"
)

// Gateway opens one websocket connection per signaling session.
type Gateway struct {
	URL            string
	Keepalive      time.Duration
	RequestTimeout time.Duration
}

func NewGateway(url string, keepalive, requestTimeout time.Duration) *Gateway {
	return &Gateway{URL: url, Keepalive: keepalive, RequestTimeout: requestTimeout}
}

func (g *Gateway) Open(ctx context.Context) (core.GatewaySession, error) {
	c, err := Dial(ctx, g.URL)
	if err != nil {
		return nil, err
	}
	s, err := c.CreateSession(ctx, g.Keepalive, g.RequestTimeout)
	if err != nil {
		c.Close()
		return nil, err
	}
	return s, nil
}

package paragon

import (
	"context"

	"go.uber.org/zap"
)

// ConnectionClient implements Connection over HTTP.
type ConnectionClient struct {
	client *Client
	prefix string
	logger *zap.Logger
}

// NewConnectionClient binds the connection API at prefix.
func NewConnectionClient(c *Client, prefix string) *ConnectionClient {
	return &ConnectionClient{client: c, prefix: prefix, logger: c.logger.Named("connection")}
}

func (c *ConnectionClient) Open(ctx context.Context) error {
	c.logger.Info("Opening connection.")
	return c.client.post(ctx, c.prefix, "open", nil, nil)
}

func (c *ConnectionClient) Close(ctx context.Context) error {
	c.logger.Info("Closing connection.")
	return c.client.post(ctx, c.prefix, "close", nil, nil)
}

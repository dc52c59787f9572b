// Package docker wraps the engine API calls needed to bounce the one
// managed game-server container during a world reset.
package docker

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
)

type Client struct {
	cli *client.Client
}

func NewClient() (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	return &Client{cli: cli}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

// Start starts the container. name may be a container name or id.
func (c *Client) Start(ctx context.Context, name string) error {
	return c.cli.ContainerStart(ctx, name, container.StartOptions{})
}

// Stop stops the container, giving the JVM time to flush the world.
func (c *Client) Stop(ctx context.Context, name string) error {
	timeout := 30
	return c.cli.ContainerStop(ctx, name, container.StopOptions{Timeout: &timeout})
}

// Status returns the container state ("running", "exited", ...).
func (c *Client) Status(ctx context.Context, name string) (string, error) {
	resp, err := c.cli.ContainerInspect(ctx, name)
	if err != nil {
		return "unknown", err
	}
	return resp.State.Status, nil
}

// Package emulators starts containerised dependencies for integration tests.
package emulators

import (
	"context"
	"fmt"
	"testing"

	"github.com/docker/go-connections/nat"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// ImageContainer describes an emulator image and the port it listens on.
type ImageContainer struct {
	Image string
	Port  string
}

// GCImageContainer is an ImageContainer for a Google Cloud emulator.
type GCImageContainer struct {
	ImageContainer
	ProjectID string
}

// EmulatorConnectionInfo is returned by helpers that expose a plain address.
type EmulatorConnectionInfo struct {
	EmulatorAddress string
}

// startContainer runs img until the test finishes and returns the host:port
// mapped to its listening port.
func startContainer(t *testing.T, ctx context.Context, img ImageContainer, cmd []string, waitFor wait.Strategy) string {
	t.Helper()
	port := nat.Port(fmt.Sprintf("%s/tcp", img.Port))
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        img.Image,
			ExposedPorts: []string{string(port)},
			Cmd:          cmd,
			WaitingFor:   waitFor,
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			log.Warn().Err(err).Str("image", img.Image).Msg("Failed to terminate container")
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mapped, err := container.MappedPort(ctx, port)
	require.NoError(t, err)
	return fmt.Sprintf("%s:%s", host, mapped.Port())
}

package emulators

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go/wait"
)

func GetDefaultRedisImageContainer() ImageContainer {
	return ImageContainer{Image: "redis:7-alpine", Port: "6379"}
}

// SetupRedisContainer starts Redis and terminates it when the test finishes.
func SetupRedisContainer(t *testing.T, ctx context.Context, cfg ImageContainer) EmulatorConnectionInfo {
	t.Helper()
	addr := startContainer(t, ctx, cfg, nil, wait.ForLog("Ready to accept connections"))
	return EmulatorConnectionInfo{EmulatorAddress: addr}
}

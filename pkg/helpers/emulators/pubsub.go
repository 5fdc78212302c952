package emulators

import (
	"context"
	"fmt"
	"testing"

	"github.com/docker/go-connections/nat"
	"github.com/illmade-knight/go-billing/pkg/provision"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/wait"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func GetDefaultPubsubImageContainer(projectID string) GCImageContainer {
	return GCImageContainer{
		ImageContainer: ImageContainer{
			Image: "gcr.io/google.com/cloudsdktool/cloud-sdk:emulators",
			Port:  "8085",
		},
		ProjectID: projectID,
	}
}

// SetupPubsubEmulator starts the gcloud Pub/Sub emulator, provisions plan on it
// and returns client options that talk to it.
func SetupPubsubEmulator(t *testing.T, ctx context.Context, cfg GCImageContainer, plan provision.Plan) []option.ClientOption {
	t.Helper()
	cmd := []string{
		"gcloud", "beta", "emulators", "pubsub", "start",
		"--project=" + cfg.ProjectID,
		fmt.Sprintf("--host-port=0.0.0.0:%s", cfg.Port),
	}
	addr := startContainer(t, ctx, cfg.ImageContainer, cmd, wait.ForListeningPort(nat.Port(cfg.Port)))
	t.Logf("Pub/Sub emulator listening on %s", addr)

	opts := []option.ClientOption{
		option.WithEndpoint(addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	}

	admin, err := provision.CreateGooglePubSubAdminClient(ctx, cfg.ProjectID, opts...)
	require.NoError(t, err)
	defer admin.Close()
	manager, err := provision.NewManager(admin, zerolog.New(zerolog.NewTestWriter(t)))
	require.NoError(t, err)
	require.NoError(t, manager.Setup(ctx, plan))
	return opts
}

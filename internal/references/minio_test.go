//go:build integration

package references

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupMinio(t *testing.T) (MinioConfig, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     "minioadmin",
			"MINIO_ROOT_PASSWORD": "minioadmin",
		},
		Cmd:        []string{"server", "/data"},
		WaitingFor: wait.ForHTTP("/minio/health/ready").WithPort("9000/tcp").WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return MinioConfig{}, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "9000")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := MinioConfig{
		Endpoint:  fmt.Sprintf("%s:%s", host, port.Port()),
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "references",
		Prefix:    "school",
	}
	return cfg, func() { container.Terminate(ctx) }
}

func TestMinioStore(t *testing.T) {
	cfg, cleanup := setupMinio(t)
	defer cleanup()
	ctx := context.Background()

	store, err := NewMinioStore(ctx, cfg)
	if err != nil {
		t.Fatalf("NewMinioStore failed: %v", err)
	}

	if _, err := store.Save(ctx, "B002", "Bob", "front", []byte("bob")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	key, err := store.Save(ctx, "A001", "Alice Smith", "front", []byte("alice"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if key != "A001_AliceSmith/front.jpg" {
		t.Errorf("unexpected key %q", key)
	}

	refs, err := store.References(ctx)
	if err != nil {
		t.Fatalf("References failed: %v", err)
	}
	if len(refs) != 2 || refs[0].IdentityID != "A001" || refs[0].DisplayName != "AliceSmith" {
		t.Fatalf("unexpected references %+v", refs)
	}

	data, err := store.Open(ctx, key)
	if err != nil || string(data) != "alice" {
		t.Errorf("Open = %q, %v", data, err)
	}
	if _, err := store.Open(ctx, "A001_AliceSmith/up.jpg"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	store.Save(ctx, "A001", "Alice", "left", []byte("alice-left"))
	removed, err := store.Delete(ctx, "A001")
	if err != nil || removed != 2 {
		t.Errorf("Delete = %d, %v", removed, err)
	}
	refs, _ = store.References(ctx)
	if len(refs) != 1 || refs[0].IdentityID != "B002" {
		t.Errorf("unexpected references after delete %+v", refs)
	}

	// A second store on the same bucket reuses it.
	if _, err := NewMinioStore(ctx, cfg); err != nil {
		t.Errorf("reopening existing bucket failed: %v", err)
	}
}

//go:build integration

package client

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Sternrassler/alma-slip-report/internal/testutil"
	"github.com/Sternrassler/alma-slip-report/pkg/cache"
	"github.com/Sternrassler/alma-slip-report/pkg/ratelimit"
)

// setupRedisContainer creates a Redis container for integration testing.
func setupRedisContainer(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	t.Cleanup(func() {
		client.Close()
		redisContainer.Terminate(ctx)
	})

	return client
}

func TestIntegration_ConfCacheSharedAcrossClients(t *testing.T) {
	redisClient := setupRedisContainer(t)

	mock := testutil.NewMockAlma()
	defer mock.Close()

	const path = "/almaws/v1/conf/libraries/MAIN/locations"
	mock.SetHandler(path, testutil.NewConditionalHandler(`"loc-v1"`, `{"location":[{"code":"STACKS","name":"Stacks"}],"total_record_count":1}`))

	cfg := DefaultConfig(mock.URL(), "integration-key")
	cfg.Redis = redisClient

	first, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	second, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	if err := first.Get(ctx, path, nil, nil); err != nil {
		t.Fatalf("first client Get() error = %v", err)
	}
	if err := second.Get(ctx, path, nil, nil); err != nil {
		t.Fatalf("second client Get() error = %v", err)
	}

	if got := mock.PathCount(path); got != 1 {
		t.Errorf("server requests = %d, want 1", got)
	}

	entry, err := second.cache.Get(ctx, cache.Key{Path: path})
	if err != nil {
		t.Fatalf("cache lookup error = %v", err)
	}
	if entry.ETag != `"loc-v1"` {
		t.Errorf("cached ETag = %q", entry.ETag)
	}
}

func TestIntegration_QuotaBlocksAllClients(t *testing.T) {
	redisClient := setupRedisContainer(t)

	ctx := context.Background()
	now := time.Now().UTC()
	redisClient.Set(ctx, "alma:quota:remaining", 12, 0)
	redisClient.Set(ctx, "alma:quota:last_update", strconv.FormatInt(now.Unix(), 10), 0)

	mock := testutil.NewMockAlma()
	defer mock.Close()
	mock.SetHandler("/almaws/v1/users/42", func(w http.ResponseWriter, r *http.Request) {
		testutil.WriteJSON(w, map[string]string{"primary_id": "42"})
	})

	cfg := DefaultConfig(mock.URL(), "integration-key")
	cfg.Redis = redisClient
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	err = c.Get(ctx, "/users/42", nil, nil)
	if !errors.Is(err, ratelimit.ErrQuotaExhausted) {
		t.Errorf("Get() error = %v, want ErrQuotaExhausted", err)
	}
	if mock.RequestCount() != 0 {
		t.Errorf("server saw %d requests, want 0", mock.RequestCount())
	}
}

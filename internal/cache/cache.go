package cache

import (
	"context"
	"time"

	"github.com/ruenthai-pos/api/internal/service"
)

// DashboardCache holds computed dashboard payloads for a short TTL so bursts
// of dashboard polling do not hit the aggregation queries on every request.
type DashboardCache interface {
	Get(ctx context.Context, key string) (*service.Dashboard, bool, error)
	Set(ctx context.Context, key string, value *service.Dashboard, ttl time.Duration) error
}

// NoopDashboardCache is used when no Redis address is configured.
type NoopDashboardCache struct{}

func (NoopDashboardCache) Get(_ context.Context, _ string) (*service.Dashboard, bool, error) {
	return nil, false, nil
}

func (NoopDashboardCache) Set(_ context.Context, _ string, _ *service.Dashboard, _ time.Duration) error {
	return nil
}

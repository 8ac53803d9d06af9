package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"netdash/internal/session"
)

type stubStats session.Stats

func (s stubStats) Stats() session.Stats { return session.Stats(s) }

func TestHealthService(t *testing.T) {
	ctx := context.Background()

	hs := NewHealthService("1.2.0", "2025-09-01", stubStats{Sessions: 3, MaxSessions: 10}, nil)
	assert.Equal(t, "ok", hs.HealthCheck(ctx).Status)
	assert.Equal(t, "alive", hs.LivenessCheck(ctx).Status)

	ready := hs.ReadinessCheck(ctx)
	assert.Equal(t, "ready", ready.Status)
	assert.Equal(t, "3 active sessions", ready.Services["sessions"].(ServiceHealth).Message)

	v := hs.Version()
	assert.Equal(t, "1.2.0", v["version"])
	assert.Equal(t, "2025-09-01", v["build_time"])
}

func TestHealthServiceNotReadyWithoutStore(t *testing.T) {
	hs := NewHealthService("dev", "", nil, nil)
	assert.Equal(t, "not_ready", hs.ReadinessCheck(context.Background()).Status)
	_, hasBuild := hs.Version()["build_time"]
	assert.False(t, hasBuild)
}

package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHealthState_IsValid(t *testing.T) {
	tests := []struct {
		state HealthState
		want  bool
	}{
		{HealthStateHealthy, true},
		{HealthStateDegraded, true},
		{HealthStateUnhealthy, true},
		{HealthState("broken"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.IsValid())
		})
	}
}

func TestHealthStatus_Constructors(t *testing.T) {
	h := Healthy("connected").WithLatency(12 * time.Millisecond)
	assert.True(t, h.IsHealthy())
	assert.Equal(t, 12*time.Millisecond, h.Latency)
	assert.False(t, h.CheckedAt.IsZero())

	d := Degraded("slow")
	assert.False(t, d.IsHealthy())
	assert.False(t, d.IsUnhealthy())

	u := Unhealthy("down")
	assert.True(t, u.IsUnhealthy())
	assert.False(t, u.IsHealthy())
}

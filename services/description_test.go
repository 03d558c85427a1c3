package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-scout/models"
)

func TestDescribeReliability(t *testing.T) {
	got := DescribeReliability("Very reliable engine, but gearbox problems. Interior is worn.")

	require.Len(t, got, 3)
	assert.Equal(t, models.ReliabilityEntry{Component: "engine", Score: 5}, got[0])
	assert.Equal(t, models.ReliabilityEntry{Component: "transmission", Score: 2}, got[1])
	assert.Equal(t, models.ReliabilityEntry{Component: "interior", Score: 2}, got[2])
}

func TestDescribeReliabilityAliasesAndAveraging(t *testing.T) {
	got := DescribeReliability("Timing belt recently replaced. Noisy engine on cold starts.")

	require.Len(t, got, 1)
	assert.Equal(t, "engine", got[0].Component)
	assert.InDelta(t, 3.0, got[0].Score, 1e-9, "replaced (+0.5) and noisy (-0.5) cancel out")
}

func TestDescribeReliabilityNoSignal(t *testing.T) {
	assert.Empty(t, DescribeReliability(""))
	assert.Empty(t, DescribeReliability("Lovely car, drives well, two keys."))
}

func TestComponentFor(t *testing.T) {
	tests := []struct {
		name string
		want models.Component
		ok   bool
	}{
		{"Engine", models.ComponentEngine, true},
		{"Fuel System", models.ComponentEngine, true},
		{"gearbox", models.ComponentTransmission, true},
		{"Infotainment", models.ComponentElectrical, true},
		{"brakes", models.ComponentSuspension, true},
		{"Paint", models.ComponentBody, true},
		{"seats", models.ComponentInterior, true},
		{"cup holders", "", false},
	}

	for _, tt := range tests {
		got, ok := ComponentFor(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

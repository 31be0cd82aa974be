package telemetry

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightSum(t *testing.T) {
	assert.Equal(t, 1.0, WeightSum())
}

func TestDeriveBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	records := make([]Record, 500)
	for i := range records {
		records[i] = Record{
			BatteryLevel:           rng.Float64() * 100,
			CommunicationIntensity: rng.Float64(),
			CommunicationScale:     rng.Float64(),
			Latency:                rng.Float64(),
			PacketLoss:             rng.Float64(),
			SensorFunctionality:    rng.Float64(),
			ClosenessCentrality:    rng.Float64(),
			EigenvectorCentrality:  rng.Float64(),
		}
	}

	for _, r := range Derive(records) {
		assert.GreaterOrEqual(t, r.BatteryLevelNorm, 0.0)
		assert.LessOrEqual(t, r.BatteryLevelNorm, 1.0)
		assert.GreaterOrEqual(t, r.TrustScore, 0.0)
		assert.LessOrEqual(t, r.TrustScore, 1.0+1e-12)
	}
}

func TestDeriveMaximalTrust(t *testing.T) {
	// Every weighted term maximal: trust score must hit 1.0 on all rows.
	records := make([]Record, 5)
	for i := range records {
		records[i] = Record{
			BatteryLevel:           100,
			CommunicationIntensity: 1,
			CommunicationScale:     1,
			Latency:                0,
			PacketLoss:             0,
			SensorFunctionality:    1,
			ClosenessCentrality:    1,
			EigenvectorCentrality:  1,
		}
	}

	derived := Derive(records)
	require.Len(t, derived, 5)
	for _, r := range derived {
		assert.InDelta(t, 1.0, r.TrustScore, 1e-9)
	}
}

func TestDeriveIsPureAndIdempotent(t *testing.T) {
	records := []Record{
		{BatteryLevel: 80, CommunicationIntensity: 0.5, CommunicationScale: 0.4, Latency: 0.2},
		{BatteryLevel: 20, PacketLoss: 0.9, SensorFunctionality: 0.3, ClosenessCentrality: 0.7},
	}

	original := make([]Record, len(records))
	copy(original, records)

	once := Derive(records)
	twice := Derive(once)

	assert.Equal(t, original, records, "input must not be mutated")
	assert.Equal(t, once, twice, "deriving derived records must be a no-op")
	assert.Len(t, once, len(records), "no row dropped")
}

func TestDeriveComputedColumns(t *testing.T) {
	tests := []struct {
		name          string
		record        Record
		wantBattery   float64
		wantCentral   float64
		wantTrustLow  float64
		wantTrustHigh float64
	}{
		{
			name:        "mid-range drone",
			record:      Record{BatteryLevel: 50, CommunicationIntensity: 0.5, CommunicationScale: 0.5},
			wantBattery: 0.5,
			wantCentral: 0.25,
		},
		{
			name:        "dead battery",
			record:      Record{BatteryLevel: 0, CommunicationIntensity: 1, CommunicationScale: 0},
			wantBattery: 0,
			wantCentral: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Derive([]Record{tt.record})[0]
			assert.InDelta(t, tt.wantBattery, got.BatteryLevelNorm, 1e-12)
			assert.InDelta(t, tt.wantCentral, got.ScaleIntensityCentrality, 1e-12)
		})
	}
}

func TestMatrix(t *testing.T) {
	records := Derive([]Record{
		{BatteryLevel: 100, Latency: 0.1, SwarmCoordinationRate: 0.9},
		{BatteryLevel: 40, Latency: 0.6, SwarmCoordinationRate: 0.3},
	})

	x, y := Matrix(records)
	require.Len(t, x, 2)
	require.Len(t, y, 2)
	assert.Len(t, x[0], len(FeatureNames()))

	// Column order per FeatureNames: latency first, trust score last.
	assert.Equal(t, 0.1, x[0][0])
	assert.Equal(t, records[0].TrustScore, x[0][7])
	assert.Equal(t, 0.9, y[0])
	assert.Equal(t, 0.3, y[1])
}

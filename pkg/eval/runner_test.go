package eval

import (
	"context"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hed1ad/swarmtrust/pkg/models"
	"github.com/hed1ad/swarmtrust/pkg/telemetry"
)

// fastModelConfig keeps the convolutional adapter cheap in tests.
func fastModelConfig() models.Config {
	cfg := models.DefaultConfig()
	cfg.Epochs = 3
	return cfg
}

func TestRunRegression(t *testing.T) {
	scenarios := []Scenario{
		{Name: "Sybil Attack", Records: syntheticScenario(60, 0.3, 1)},
		{Name: "Jamming Attack", Records: syntheticScenario(60, 0.5, 2)},
	}

	runner := NewRunner(
		WithModelConfig(fastModelConfig()),
	)
	summary, err := runner.Run(context.Background(), scenarios)
	require.NoError(t, err)

	assert.Equal(t, TaskRegression, summary.Task)
	assert.Equal(t, ModeInSample, summary.Mode)
	assert.NotEmpty(t, summary.RunID)
	require.Len(t, summary.Records, len(scenarios)*len(models.Kinds()))
	assert.Empty(t, summary.Skips)

	// Scenario ascending, then R² descending within a scenario.
	names := make([]string, len(summary.Records))
	for i, r := range summary.Records {
		names[i] = r.Scenario
		require.NotNil(t, r.Regression)
		assert.Nil(t, r.Classification)
	}
	assert.True(t, sort.StringsAreSorted(names))
	for i := 1; i < len(summary.Records); i++ {
		prev, cur := summary.Records[i-1], summary.Records[i]
		if prev.Scenario == cur.Scenario {
			assert.GreaterOrEqual(t, prev.Regression.R2, cur.Regression.R2)
		}
	}
}

func TestRunClassification(t *testing.T) {
	scenarios := []Scenario{
		{Name: "Sybil Attack", Records: syntheticScenario(60, 0.3, 1)},
	}

	runner := NewRunner(
		WithTask(TaskClassification),
		WithModelConfig(fastModelConfig()),
	)
	summary, err := runner.Run(context.Background(), scenarios)
	require.NoError(t, err)

	require.Len(t, summary.Records, len(models.Kinds()))
	for _, r := range summary.Records {
		require.NotNil(t, r.Classification)
		cm := r.Classification.Confusion
		assert.Equal(t, 60, cm.TN+cm.FP+cm.FN+cm.TP)
		assert.Equal(t, 60, r.Classification.SupportPositive+r.Classification.SupportNegative)
	}
}

func TestRunClassificationSkipsDegenerateScenario(t *testing.T) {
	// Every row coordinates above the threshold: one class only.
	records := syntheticScenario(30, 0, 3)

	runner := NewRunner(
		WithTask(TaskClassification),
		WithModelConfig(fastModelConfig()),
	)
	summary, err := runner.Run(context.Background(), []Scenario{
		{Name: "No Attack", Records: records},
		{Name: "Sybil Attack", Records: syntheticScenario(30, 0.4, 4)},
	})
	require.NoError(t, err)

	require.Len(t, summary.Skips, 1)
	assert.Equal(t, "No Attack", summary.Skips[0].Scenario)
	assert.Contains(t, summary.Skips[0].Reason, "fewer than two classes")

	// Only the healthy scenario produced records.
	for _, r := range summary.Records {
		assert.Equal(t, "Sybil Attack", r.Scenario)
	}
	assert.Len(t, summary.Records, len(models.Kinds()))
}

func TestRunIsolatesModelFailure(t *testing.T) {
	scenarios := []Scenario{
		{Name: "Sybil Attack", Records: syntheticScenario(40, 0.3, 5)},
	}

	runner := NewRunner(
		WithKinds(models.KindForest, models.Kind("bogus"), models.KindSVR),
		WithModelConfig(fastModelConfig()),
	)
	summary, err := runner.Run(context.Background(), scenarios)

	// The bogus kind fails its pair; the other two still report.
	require.Error(t, err)
	assert.Len(t, summary.Records, 2)
	require.Len(t, summary.Skips, 1)
	assert.Equal(t, models.Kind("bogus"), summary.Skips[0].Model)
}

func TestRunEmptyScenario(t *testing.T) {
	runner := NewRunner(WithModelConfig(fastModelConfig()))
	summary, err := runner.Run(context.Background(), []Scenario{{Name: "Empty"}})
	require.NoError(t, err)
	assert.Empty(t, summary.Records)
	require.Len(t, summary.Skips, 1)
	assert.Equal(t, "Empty", summary.Skips[0].Scenario)
}

func TestRunParallelMatchesSequential(t *testing.T) {
	scenarios := []Scenario{
		{Name: "A", Records: syntheticScenario(50, 0.2, 6)},
		{Name: "B", Records: syntheticScenario(50, 0.4, 7)},
		{Name: "C", Records: syntheticScenario(50, 0.6, 8)},
		{Name: "Empty"}, // produces a skip, not records
	}

	sequential := NewRunner(WithWorkers(1), WithModelConfig(fastModelConfig()))
	parallel := NewRunner(WithWorkers(4), WithModelConfig(fastModelConfig()))

	s1, err := sequential.Run(context.Background(), scenarios)
	require.NoError(t, err)
	s2, err := parallel.Run(context.Background(), scenarios)
	require.NoError(t, err)

	assert.Equal(t, s1.Records, s2.Records)
	assert.Equal(t, s1.Skips, s2.Skips)
	require.Len(t, s1.Skips, 1)
}

func TestRunnerSeedIndependentOfOptionOrder(t *testing.T) {
	cfg := fastModelConfig()
	cfg.Seed = 99 // overridden by the runner regardless of order

	seedFirst := NewRunner(WithSeed(7), WithModelConfig(cfg))
	seedLast := NewRunner(WithModelConfig(cfg), WithSeed(7))

	assert.Equal(t, int64(7), seedFirst.modelCfg.Seed)
	assert.Equal(t, int64(7), seedLast.modelCfg.Seed)
	assert.Equal(t, seedFirst.seed, seedLast.seed)
}

func TestRunHoldoutMode(t *testing.T) {
	scenarios := []Scenario{
		{Name: "Sybil Attack", Records: syntheticScenario(50, 0.3, 9)},
	}

	runner := NewRunner(
		WithMode(ModeHoldout),
		WithModelConfig(fastModelConfig()),
	)
	summary, err := runner.Run(context.Background(), scenarios)
	require.NoError(t, err)
	assert.Equal(t, ModeHoldout, summary.Mode)
	assert.Len(t, summary.Records, len(models.Kinds()))
}

// syntheticScenario simulates a swarm where attackRate of rows come from
// compromised drones with degraded telemetry and low coordination.
func syntheticScenario(n int, attackRate float64, seed int64) []telemetry.Record {
	rng := rand.New(rand.NewSource(seed))
	records := make([]telemetry.Record, n)
	for i := range records {
		r := telemetry.Record{
			BatteryLevel:           60 + rng.Float64()*40,
			CommunicationIntensity: 0.7 + rng.Float64()*0.3,
			CommunicationScale:     0.7 + rng.Float64()*0.3,
			Latency:                rng.Float64() * 0.15,
			PacketLoss:             rng.Float64() * 0.1,
			SensorFunctionality:    0.9 + rng.Float64()*0.1,
			ClosenessCentrality:    0.5 + rng.Float64()*0.5,
			EigenvectorCentrality:  0.5 + rng.Float64()*0.5,
			Iteration:              i,
			SwarmCoordinationRate:  0.88 + rng.Float64()*0.12,
		}
		if rng.Float64() < attackRate {
			r.Latency = 0.6 + rng.Float64()*0.4
			r.PacketLoss = 0.5 + rng.Float64()*0.5
			r.SensorFunctionality = rng.Float64() * 0.4
			r.SwarmCoordinationRate = 0.2 + rng.Float64()*0.4
		}
		records[i] = r
	}
	return records
}

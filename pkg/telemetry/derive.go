package telemetry

// Trust score weights. These are policy constants applied identically
// across all scenarios and models; they are never learned or calibrated.
// The seven weights sum to exactly 1.0, so a record whose weighted terms
// all lie in [0, 1] yields a trust score in [0, 1].
const (
	WeightLatency        = 0.2
	WeightPacketLoss     = 0.1
	WeightSensor         = 0.2
	WeightBattery        = 0.1
	WeightScaleIntensity = 0.2
	WeightCloseness      = 0.1
	WeightEigenvector    = 0.1
)

// WeightSum returns the sum of the trust score weights. It exists so the
// weights-sum-to-one invariant can be asserted independently of any data.
func WeightSum() float64 {
	return WeightLatency + WeightPacketLoss + WeightSensor + WeightBattery +
		WeightScaleIntensity + WeightCloseness + WeightEigenvector
}

// featureNames is the fixed column order of the feature matrix.
var featureNames = []string{
	"Latency",
	"Packet Loss",
	"Sensor Functionality",
	"Battery Level Norm",
	"Scale-Intensity Centrality",
	"Closeness Centrality",
	"Eigenvector Centrality",
	"Trust Score",
}

// FeatureNames returns the names of the model feature columns, in the
// order produced by Matrix.
func FeatureNames() []string {
	out := make([]string, len(featureNames))
	copy(out, featureNames)
	return out
}

// Derive returns a copy of records with the three derived fields
// populated: battery level normalized to [0, 1], the scale-intensity
// centrality product, and the composite trust score. It is a pure
// function of the raw fields; rows are neither dropped nor reordered,
// and re-deriving an already derived slice produces identical output.
func Derive(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		r.BatteryLevelNorm = r.BatteryLevel / 100
		r.ScaleIntensityCentrality = r.CommunicationIntensity * r.CommunicationScale
		r.TrustScore = trustScore(r)
		out[i] = r
	}
	return out
}

// trustScore combines the seven normalized signals into one composite
// value. Latency and packet loss are inverted so that higher is better
// for every term.
func trustScore(r Record) float64 {
	return WeightLatency*(1-r.Latency) +
		WeightPacketLoss*(1-r.PacketLoss) +
		WeightSensor*r.SensorFunctionality +
		WeightBattery*r.BatteryLevelNorm +
		WeightScaleIntensity*r.ScaleIntensityCentrality +
		WeightCloseness*r.ClosenessCentrality +
		WeightEigenvector*r.EigenvectorCentrality
}

// Features returns the 8-column feature vector for a derived record,
// ordered per FeatureNames.
func Features(r Record) []float64 {
	return []float64{
		r.Latency,
		r.PacketLoss,
		r.SensorFunctionality,
		r.BatteryLevelNorm,
		r.ScaleIntensityCentrality,
		r.ClosenessCentrality,
		r.EigenvectorCentrality,
		r.TrustScore,
	}
}

// Matrix builds the feature matrix X and target vector y from derived
// records. Row order follows the input slice.
func Matrix(records []Record) ([][]float64, []float64) {
	x := make([][]float64, len(records))
	y := make([]float64, len(records))
	for i, r := range records {
		x[i] = Features(r)
		y[i] = r.SwarmCoordinationRate
	}
	return x, y
}

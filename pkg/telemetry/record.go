// Package telemetry defines the drone-swarm telemetry schema and the
// derived trust features computed from it.
package telemetry

// Record is one telemetry row: a single drone at a single simulation
// iteration. Raw fields are decoded from scenario CSV logs by their
// column headers; derived fields are computed by Derive and never read
// from input.
type Record struct {
	BatteryLevel           float64 `csv:"Battery Level"`
	CommunicationIntensity float64 `csv:"Communication Intensity"`
	CommunicationScale     float64 `csv:"Communication Scale"`
	Latency                float64 `csv:"Latency"`
	PacketLoss             float64 `csv:"Packet Loss"`
	SensorFunctionality    float64 `csv:"Sensor Functionality"`
	ClosenessCentrality    float64 `csv:"Closeness Centrality"`
	EigenvectorCentrality  float64 `csv:"Eigenvector Centrality"`
	RelativeSpeed          float64 `csv:"Relative Speed"`
	LocationAccuracy       float64 `csv:"Location Accuracy"`
	Iteration              int     `csv:"Iteration"`

	// SwarmCoordinationRate is the ground-truth target in [0, 1].
	SwarmCoordinationRate float64 `csv:"Swarm Coordination Rate"`

	// Derived fields, computed by Derive.
	BatteryLevelNorm         float64 `csv:"-"`
	ScaleIntensityCentrality float64 `csv:"-"`
	TrustScore               float64 `csv:"-"`
}

// RequiredColumns lists the CSV headers a scenario log must carry.
// The order matches the struct field order.
func RequiredColumns() []string {
	return []string{
		"Battery Level",
		"Communication Intensity",
		"Communication Scale",
		"Latency",
		"Packet Loss",
		"Sensor Functionality",
		"Closeness Centrality",
		"Eigenvector Centrality",
		"Relative Speed",
		"Location Accuracy",
		"Iteration",
		"Swarm Coordination Rate",
	}
}

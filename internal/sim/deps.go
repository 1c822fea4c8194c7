package sim

import (
	"math/rand"

	"quarry/engine/internal/telemetry"
	"quarry/engine/logging"
)

// Deps carries shared infrastructure dependencies required by the simulation
// engine. Every field is optional; the engine degrades to no-op logging and
// wall-clock time when a seam is left nil.
type Deps struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Clock     logging.Clock
	RNG       *rand.Rand
	Publisher logging.Publisher
}

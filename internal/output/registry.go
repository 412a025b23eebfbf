package output

import (
	"github.com/mmcdermott/EventStreamML/internal/config"
)

// registry resolves per-measurement metadata that the heads consult on every
// forward pass: vocabulary ranges, measurement ids, and which generative
// mode owns each measurement. Built once from a validated configuration.
type registry struct {
	cfg *config.StructuredTransformerConfig

	// classificationModes maps each classification measurement to its
	// (single) classification mode.
	classificationModes map[string]config.GenerativeMode

	// regressionMeasurements is the set of multivariate-regression
	// measurements.
	regressionMeasurements map[string]bool
}

func newRegistry(cfg *config.StructuredTransformerConfig) *registry {
	r := &registry{
		cfg:                    cfg,
		classificationModes:    make(map[string]config.GenerativeMode),
		regressionMeasurements: make(map[string]bool),
	}
	for _, m := range cfg.MeasurementsPerGenerativeMode[config.SingleLabelClassification] {
		r.classificationModes[m] = config.SingleLabelClassification
	}
	for _, m := range cfg.MeasurementsPerGenerativeMode[config.MultiLabelClassification] {
		r.classificationModes[m] = config.MultiLabelClassification
	}
	for _, m := range cfg.MeasurementsPerGenerativeMode[config.MultivariateRegression] {
		r.regressionMeasurements[m] = true
	}
	return r
}

// vocabRange returns the measurement's half-open global vocabulary range.
// The end is the smallest offset greater than the measurement's own, or the
// total vocabulary size when the measurement is last.
func (r *registry) vocabRange(measurement string) (start, end int) {
	start = r.cfg.VocabOffsetsByMeasurement[measurement]
	end = r.cfg.TotalVocabSize()
	for _, offset := range r.cfg.VocabOffsetsByMeasurement {
		if offset > start && offset < end {
			end = offset
		}
	}
	return start, end
}

func (r *registry) measurementIndex(measurement string) int64 {
	return int64(r.cfg.MeasurementsIdxmap[measurement])
}

func (r *registry) classificationSet() map[string]bool {
	out := make(map[string]bool, len(r.classificationModes))
	for m := range r.classificationModes {
		out[m] = true
	}
	return out
}

func (r *registry) regressionSet() map[string]bool {
	out := make(map[string]bool, len(r.regressionMeasurements))
	for m := range r.regressionMeasurements {
		out[m] = true
	}
	return out
}

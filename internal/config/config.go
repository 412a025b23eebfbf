// Package config defines the model configuration for structured event-stream
// transformers: the measurement vocabulary layout, generative modes, event
// type applicability, the intra-event dependency-graph partition, and the
// time-to-event head selection.
//
// Configuration is validated eagerly: a config that passes Validate cannot
// produce a configuration failure later inside a forward pass.
package config

import (
	"fmt"
	"sort"
)

// GenerativeMode determines how a measurement's contents are predicted.
type GenerativeMode string

// Supported generative modes.
const (
	// SingleLabelClassification predicts exactly one class per event
	// (or none, when the event carries no value for the measurement).
	SingleLabelClassification GenerativeMode = "single_label_classification"

	// MultiLabelClassification predicts any subset of simultaneously
	// active classes per event.
	MultiLabelClassification GenerativeMode = "multi_label_classification"

	// MultivariateRegression predicts continuous values for the observed
	// regression-target indices within the measurement's vocabulary.
	MultivariateRegression GenerativeMode = "multivariate_regression"
)

// ProcessingMode determines how intra-event structure is handled.
type ProcessingMode string

// Supported processing modes.
const (
	// ConditionallyIndependent predicts all contents of an event jointly
	// from the preceding whole-event encoding.
	ConditionallyIndependent ProcessingMode = "conditionally_independent"

	// NestedAttention predicts event contents level by level along an
	// explicit intra-event dependency graph.
	NestedAttention ProcessingMode = "nested_attention"
)

// TTEHeadType selects the time-to-event distribution family.
type TTEHeadType string

// Supported time-to-event head types.
const (
	TTEExponential      TTEHeadType = "exponential"
	TTELogNormalMixture TTEHeadType = "log_normal_mixture"
)

// ValueKind restricts which value class of a measurement a dependency-graph
// level carries.
type ValueKind string

// Supported value kinds. The empty string is treated as
// CategoricalAndNumerical.
const (
	CategoricalOnly         ValueKind = "categorical_only"
	NumericalOnly           ValueKind = "numerical_only"
	CategoricalAndNumerical ValueKind = "categorical_and_numerical"
)

// EventTypeMeasurement is the reserved measurement name carrying each
// event's type. Its vocabulary slice holds the event-type ids that the
// applicability filter matches against.
const EventTypeMeasurement = "event_type"

// MeasurementGroup is one entry of a dependency-graph level: a measurement
// name plus the value kind the level carries for it.
type MeasurementGroup struct {
	Measurement string    `yaml:"measurement"`
	Kind        ValueKind `yaml:"kind,omitempty"`
}

// EffectiveKind resolves the empty kind to CategoricalAndNumerical.
func (g MeasurementGroup) EffectiveKind() ValueKind {
	if g.Kind == "" {
		return CategoricalAndNumerical
	}
	return g.Kind
}

// StructuredTransformerConfig configures the generative output layer and its
// collaborators. It is built once, validated eagerly, and read-only for the
// lifetime of a model.
type StructuredTransformerConfig struct {
	ProcessingMode ProcessingMode `yaml:"processing_mode"`
	HiddenSize     int            `yaml:"hidden_size"`

	// Vocabulary layout. Offsets are global positions in [0, vocab) and
	// must tile the vocabulary contiguously together with the sizes.
	VocabSizesByMeasurement   map[string]int `yaml:"vocab_sizes_by_measurement"`
	VocabOffsetsByMeasurement map[string]int `yaml:"vocab_offsets_by_measurement"`

	// MeasurementsIdxmap assigns each measurement the integer id used in a
	// batch's dynamic measurement-index stream.
	MeasurementsIdxmap map[string]int `yaml:"measurements_idxmap"`

	MeasurementsPerGenerativeMode map[GenerativeMode][]string `yaml:"measurements_per_generative_mode"`

	// EventTypesPerMeasurement restricts measurements to events of the
	// listed types. Nil disables event-type filtering entirely; a missing
	// key means the measurement applies to all event types.
	EventTypesPerMeasurement map[string][]string `yaml:"event_types_per_measurement,omitempty"`
	EventTypesIdxmap         map[string]int      `yaml:"event_types_idxmap,omitempty"`

	// MeasurementsPerDepGraphLevel declares the dependency-graph partition
	// for nested-attention models. Level 0 is reserved for time-only
	// prediction and must be empty; explicit levels begin at index 1.
	// Must be absent for conditionally-independent models.
	MeasurementsPerDepGraphLevel [][]MeasurementGroup `yaml:"measurements_per_dep_graph_level,omitempty"`

	TTEHeadType TTEHeadType `yaml:"tte_head_type"`

	// TTELogNormalComponents must be set iff TTEHeadType is
	// log_normal_mixture.
	TTELogNormalComponents *int `yaml:"tte_lognormal_components,omitempty"`

	// MeanLogInterEventTime / StdLogInterEventTime standardize the
	// log-normal mixture head. Must be absent for the exponential head;
	// default to (0, 1) for the mixture head.
	MeanLogInterEventTime *float64 `yaml:"mean_log_inter_event_time,omitempty"`
	StdLogInterEventTime  *float64 `yaml:"std_log_inter_event_time,omitempty"`
}

// TotalVocabSize returns the size of the global vocabulary (at least 1).
func (c *StructuredTransformerConfig) TotalVocabSize() int {
	total := 0
	for _, s := range c.VocabSizesByMeasurement {
		total += s
	}
	if total < 1 {
		return 1
	}
	return total
}

// MeasurementsSortedByOffset returns measurement names ordered by vocabulary
// offset.
func (c *StructuredTransformerConfig) MeasurementsSortedByOffset() []string {
	names := make([]string, 0, len(c.VocabOffsetsByMeasurement))
	for name := range c.VocabOffsetsByMeasurement {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return c.VocabOffsetsByMeasurement[names[i]] < c.VocabOffsetsByMeasurement[names[j]]
	})
	return names
}

// TTEConfig is the fully-resolved configuration of the selected time-to-event
// head: no optional fields remain once validation has run.
type TTEConfig struct {
	Type                  TTEHeadType
	Components            int
	MeanLogInterEventTime float64
	StdLogInterEventTime  float64
}

// TTE resolves the time-to-event head configuration. Call only after
// Validate has succeeded.
func (c *StructuredTransformerConfig) TTE() TTEConfig {
	out := TTEConfig{Type: c.TTEHeadType}
	if c.TTEHeadType == TTELogNormalMixture {
		out.Components = *c.TTELogNormalComponents
		out.MeanLogInterEventTime = 0
		out.StdLogInterEventTime = 1
		if c.MeanLogInterEventTime != nil {
			out.MeanLogInterEventTime = *c.MeanLogInterEventTime
		}
		if c.StdLogInterEventTime != nil {
			out.StdLogInterEventTime = *c.StdLogInterEventTime
		}
	}
	return out
}

// Validate checks the configuration for internal consistency. All
// configuration errors surface here, at model-build time, never during a
// forward pass.
func (c *StructuredTransformerConfig) Validate() error {
	if c.HiddenSize <= 0 {
		return fmt.Errorf("hidden_size must be > 0, got %d", c.HiddenSize)
	}

	switch c.ProcessingMode {
	case ConditionallyIndependent, NestedAttention:
	default:
		return fmt.Errorf("processing_mode must be one of [%s, %s], got %q",
			ConditionallyIndependent, NestedAttention, c.ProcessingMode)
	}

	if err := c.validateVocabulary(); err != nil {
		return err
	}
	if err := c.validateGenerativeModes(); err != nil {
		return err
	}
	if err := c.validateEventTypes(); err != nil {
		return err
	}
	if err := c.validateDepGraph(); err != nil {
		return err
	}
	return c.validateTTE()
}

func (c *StructuredTransformerConfig) validateVocabulary() error {
	if len(c.VocabSizesByMeasurement) == 0 {
		return fmt.Errorf("vocab_sizes_by_measurement must not be empty")
	}
	for name, size := range c.VocabSizesByMeasurement {
		if size <= 0 {
			return fmt.Errorf("vocab size for measurement %q must be > 0, got %d", name, size)
		}
		if _, ok := c.VocabOffsetsByMeasurement[name]; !ok {
			return fmt.Errorf("measurement %q has a vocab size but no vocab offset", name)
		}
	}
	for name := range c.VocabOffsetsByMeasurement {
		if _, ok := c.VocabSizesByMeasurement[name]; !ok {
			return fmt.Errorf("measurement %q has a vocab offset but no vocab size", name)
		}
		if _, ok := c.MeasurementsIdxmap[name]; !ok {
			return fmt.Errorf("measurement %q is missing from measurements_idxmap", name)
		}
	}

	// The vocabulary slices must tile [0, vocab) contiguously: sorted by
	// offset, each measurement ends exactly where the next begins.
	names := c.MeasurementsSortedByOffset()
	expected := 0
	for _, name := range names {
		offset := c.VocabOffsetsByMeasurement[name]
		if offset != expected {
			return fmt.Errorf("vocabulary is not contiguous: measurement %q starts at offset %d, expected %d",
				name, offset, expected)
		}
		expected = offset + c.VocabSizesByMeasurement[name]
	}
	if expected != c.TotalVocabSize() {
		return fmt.Errorf("vocabulary slices cover [0, %d) but total vocab size is %d", expected, c.TotalVocabSize())
	}

	seen := make(map[int]string, len(c.MeasurementsIdxmap))
	for name, idx := range c.MeasurementsIdxmap {
		if prev, dup := seen[idx]; dup {
			return fmt.Errorf("measurements_idxmap assigns index %d to both %q and %q", idx, prev, name)
		}
		seen[idx] = name
	}
	return nil
}

func (c *StructuredTransformerConfig) validateGenerativeModes() error {
	classificationOwner := make(map[string]GenerativeMode)
	for mode, measurements := range c.MeasurementsPerGenerativeMode {
		switch mode {
		case SingleLabelClassification, MultiLabelClassification, MultivariateRegression:
		default:
			return fmt.Errorf("unknown generative mode %q", mode)
		}
		for _, m := range measurements {
			if _, ok := c.VocabOffsetsByMeasurement[m]; !ok {
				return fmt.Errorf("measurement %q in generative mode %q has no vocabulary slice", m, mode)
			}
			if mode == MultivariateRegression {
				continue
			}
			if prev, dup := classificationOwner[m]; dup {
				return fmt.Errorf("measurement %q is declared in both classification modes %q and %q", m, prev, mode)
			}
			classificationOwner[m] = mode
		}
	}
	return nil
}

func (c *StructuredTransformerConfig) validateEventTypes() error {
	if c.EventTypesPerMeasurement == nil {
		return nil
	}
	if len(c.EventTypesIdxmap) == 0 {
		return fmt.Errorf("event_types_per_measurement requires event_types_idxmap")
	}
	if _, ok := c.VocabOffsetsByMeasurement[EventTypeMeasurement]; !ok {
		return fmt.Errorf("event-type filtering requires the reserved %q measurement in the vocabulary",
			EventTypeMeasurement)
	}
	for measurement, types := range c.EventTypesPerMeasurement {
		if _, ok := c.VocabOffsetsByMeasurement[measurement]; !ok {
			return fmt.Errorf("event_types_per_measurement references unknown measurement %q", measurement)
		}
		for _, et := range types {
			if _, ok := c.EventTypesIdxmap[et]; !ok {
				return fmt.Errorf("measurement %q references unknown event type %q", measurement, et)
			}
		}
	}
	return nil
}

func (c *StructuredTransformerConfig) validateDepGraph() error {
	if c.ProcessingMode == ConditionallyIndependent {
		if c.MeasurementsPerDepGraphLevel != nil {
			return fmt.Errorf("for a %q model, measurements_per_dep_graph_level must be absent", ConditionallyIndependent)
		}
		return nil
	}

	if c.MeasurementsPerDepGraphLevel == nil {
		// Permitted: the router falls back to carrying every measurement
		// on every level and logs a warning.
		return nil
	}

	if len(c.MeasurementsPerDepGraphLevel) < 2 {
		return fmt.Errorf("measurements_per_dep_graph_level must declare at least the reserved time level and one explicit level, got %d levels",
			len(c.MeasurementsPerDepGraphLevel))
	}
	if len(c.MeasurementsPerDepGraphLevel[0]) != 0 {
		return fmt.Errorf("dependency-graph level 0 is reserved for time-to-event prediction and must be empty, got %d entries",
			len(c.MeasurementsPerDepGraphLevel[0]))
	}

	// A measurement may be split across levels by value kind (categorical in
	// one level, numerical in a later one), so duplicates are tracked per side.
	assignedCategorical := make(map[string]int)
	assignedNumerical := make(map[string]int)
	for level, groups := range c.MeasurementsPerDepGraphLevel {
		for _, g := range groups {
			kind := g.EffectiveKind()
			switch kind {
			case CategoricalOnly, NumericalOnly, CategoricalAndNumerical:
			default:
				return fmt.Errorf("dependency-graph level %d: unknown value kind %q for measurement %q",
					level, g.Kind, g.Measurement)
			}
			if _, ok := c.VocabOffsetsByMeasurement[g.Measurement]; !ok {
				return fmt.Errorf("dependency-graph level %d references unknown measurement %q", level, g.Measurement)
			}
			if kind == CategoricalOnly || kind == CategoricalAndNumerical {
				if prev, dup := assignedCategorical[g.Measurement]; dup {
					return fmt.Errorf("the categorical side of measurement %q is assigned to dependency-graph levels %d and %d; each side may appear in at most one level",
						g.Measurement, prev, level)
				}
				assignedCategorical[g.Measurement] = level
			}
			if kind == NumericalOnly || kind == CategoricalAndNumerical {
				if prev, dup := assignedNumerical[g.Measurement]; dup {
					return fmt.Errorf("the numerical side of measurement %q is assigned to dependency-graph levels %d and %d; each side may appear in at most one level",
						g.Measurement, prev, level)
				}
				assignedNumerical[g.Measurement] = level
			}
		}
	}
	return nil
}

func (c *StructuredTransformerConfig) validateTTE() error {
	switch c.TTEHeadType {
	case TTEExponential:
		if c.TTELogNormalComponents != nil {
			return fmt.Errorf("for an %q model, tte_lognormal_components must be absent", TTEExponential)
		}
		if c.MeanLogInterEventTime != nil {
			return fmt.Errorf("for an %q model, mean_log_inter_event_time must be absent", TTEExponential)
		}
		if c.StdLogInterEventTime != nil {
			return fmt.Errorf("for an %q model, std_log_inter_event_time must be absent", TTEExponential)
		}
	case TTELogNormalMixture:
		if c.TTELogNormalComponents == nil {
			return fmt.Errorf("for a %q model, tte_lognormal_components must be set", TTELogNormalMixture)
		}
		if *c.TTELogNormalComponents <= 0 {
			return fmt.Errorf("tte_lognormal_components must be > 0, got %d", *c.TTELogNormalComponents)
		}
		if c.StdLogInterEventTime != nil && *c.StdLogInterEventTime <= 0 {
			return fmt.Errorf("std_log_inter_event_time must be > 0, got %v", *c.StdLogInterEventTime)
		}
	default:
		return fmt.Errorf("tte_head_type must be one of [%s, %s], got %q",
			TTEExponential, TTELogNormalMixture, c.TTEHeadType)
	}
	return nil
}

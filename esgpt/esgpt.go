// Package esgpt is the public API for structured event-stream generative
// modelling: configuration, batches, the generative output layer, task
// models, and next-event sampling.
//
// The package re-exports the internal building blocks behind a stable
// surface:
//   - Config: vocabulary layout, generative modes, processing mode, heads
//   - Batch: padded ragged tensors of per-event observations
//   - Layer: the generative output layer (heads, router, losses)
//   - GenerativeSequenceModel / StreamClassificationModel: task models
//   - Sampler: draws next events from generation-mode outputs
//
// Example:
//
//	cfg, err := esgpt.LoadConfig("model.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	layer, err := esgpt.NewOutputLayer(cfg, rand.New(rand.NewSource(1)), nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	out, err := layer.Forward(batch, encoded, false)
package esgpt

import (
	"log/slog"

	"golang.org/x/exp/rand"

	"github.com/mmcdermott/EventStreamML/internal/checkpoint"
	"github.com/mmcdermott/EventStreamML/internal/config"
	"github.com/mmcdermott/EventStreamML/internal/data"
	"github.com/mmcdermott/EventStreamML/internal/esgen"
	"github.com/mmcdermott/EventStreamML/internal/model"
	"github.com/mmcdermott/EventStreamML/internal/optim"
	"github.com/mmcdermott/EventStreamML/internal/output"
	"github.com/mmcdermott/EventStreamML/internal/tensor"
)

// Configuration types.
type (
	Config             = config.StructuredTransformerConfig
	MeasurementGroup   = config.MeasurementGroup
	OptimizationConfig = config.OptimizationConfig
	GenerativeMode     = config.GenerativeMode
	ProcessingMode     = config.ProcessingMode
	TTEHeadType        = config.TTEHeadType
	ValueKind          = config.ValueKind
)

// Generative modes.
const (
	SingleLabelClassification = config.SingleLabelClassification
	MultiLabelClassification  = config.MultiLabelClassification
	MultivariateRegression    = config.MultivariateRegression
)

// Processing modes.
const (
	ConditionallyIndependent = config.ConditionallyIndependent
	NestedAttention          = config.NestedAttention
)

// Time-to-event head types.
const (
	TTEExponential      = config.TTEExponential
	TTELogNormalMixture = config.TTELogNormalMixture
)

// Value kinds for dependency-graph levels.
const (
	CategoricalOnly         = config.CategoricalOnly
	NumericalOnly           = config.NumericalOnly
	CategoricalAndNumerical = config.CategoricalAndNumerical
)

// Tensor types. Batches and encodings are built from these.
type (
	Shape           = tensor.Shape
	DType           = tensor.DType
	Tensor[T DType] = tensor.Tensor[T]
)

// Data and model types.
type (
	Batch  = data.Batch
	Output = output.Output
	Layer  = output.Layer

	Encoder                    = model.Encoder
	GenerativeSequenceModel    = model.GenerativeSequenceModel
	StreamClassificationModel  = model.StreamClassificationModel
	StreamClassificationConfig = model.StreamClassificationConfig
	PoolingMethod              = model.PoolingMethod

	Sampler   = esgen.Sampler
	NextEvent = esgen.NextEvent
)

// Pooling methods for stream classification.
const (
	PoolCLS  = model.PoolCLS
	PoolLast = model.PoolLast
	PoolMax  = model.PoolMax
	PoolMean = model.PoolMean
)

// Zeros returns a zero-filled tensor.
func Zeros[T DType](shape Shape) *Tensor[T] {
	return tensor.Zeros[T](shape)
}

// Ones returns a one-filled tensor.
func Ones[T DType](shape Shape) *Tensor[T] {
	return tensor.Ones[T](shape)
}

// FromSlice builds a tensor from a flat row-major slice.
func FromSlice[T DType](data []T, shape Shape) (*Tensor[T], error) {
	return tensor.FromSlice(data, shape)
}

// MustFromSlice is FromSlice for statically-known shapes; it panics on
// mismatch.
func MustFromSlice[T DType](data []T, shape Shape) *Tensor[T] {
	return tensor.MustFromSlice(data, shape)
}

// Randn returns a tensor of standard-normal draws.
func Randn(shape Shape, rng *rand.Rand) *Tensor[float32] {
	return tensor.Randn(shape, rng)
}

// LoadConfig reads and validates a model configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultOptimizationConfig returns the defaults used for from-scratch
// pretraining runs.
func DefaultOptimizationConfig() OptimizationConfig {
	return config.DefaultOptimizationConfig()
}

// NewOutputLayer builds the generative output layer for a validated
// configuration. A nil logger falls back to slog.Default.
func NewOutputLayer(cfg *Config, rng *rand.Rand, logger *slog.Logger) (*Layer, error) {
	return output.NewLayer(cfg, rng, logger)
}

// NewGenerativeModel pairs an encoder with the generative output layer.
func NewGenerativeModel(cfg *Config, encoder Encoder, rng *rand.Rand, logger *slog.Logger) (*GenerativeSequenceModel, error) {
	return model.NewGenerativeSequenceModel(cfg, encoder, rng, logger)
}

// NewStreamClassifier builds a whole-stream classification model.
func NewStreamClassifier(cfg *Config, task StreamClassificationConfig, encoder Encoder, rng *rand.Rand) (*StreamClassificationModel, error) {
	return model.NewStreamClassificationModel(cfg, task, encoder, rng)
}

// NewSampler draws next events from generation-mode outputs.
func NewSampler(cfg *Config, src rand.Source) *Sampler {
	return esgen.NewSampler(cfg, src)
}

// LRSchedule computes per-step learning rates from a resolved optimization
// config.
type LRSchedule = optim.Schedule

// NewLRSchedule builds a learning-rate schedule. The config's step counts
// must first be resolved with OptimizationConfig.Resolve.
func NewLRSchedule(cfg OptimizationConfig) (*LRSchedule, error) {
	return optim.NewSchedule(cfg)
}

// SaveCheckpoint writes a layer's parameters to path.
func SaveCheckpoint(path string, layer *Layer) error {
	return checkpoint.Save(path, layer.NamedParameters())
}

// RestoreCheckpoint loads parameters saved by SaveCheckpoint into the
// layer, replacing its current values.
func RestoreCheckpoint(path string, layer *Layer) error {
	return checkpoint.Restore(path, layer.NamedParameters())
}

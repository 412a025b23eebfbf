// Package model assembles encoders with task heads: generative sequence
// modelling over the full structured output layer, and whole-stream
// classification over a pooled encoding.
package model

import (
	"fmt"
	"log/slog"

	"golang.org/x/exp/rand"

	"github.com/mmcdermott/EventStreamML/internal/config"
	"github.com/mmcdermott/EventStreamML/internal/data"
	"github.com/mmcdermott/EventStreamML/internal/output"
	"github.com/mmcdermott/EventStreamML/internal/tensor"
)

// Encoder turns a batch into hidden representations: [B, S, H] for
// conditionally-independent models, [B, S, L, H] for nested-attention
// models.
type Encoder interface {
	Encode(batch *data.Batch) (*tensor.Tensor[float32], error)
}

// GenerativeSequenceModel pairs an encoder with the structured generative
// output layer.
type GenerativeSequenceModel struct {
	encoder Encoder
	output  *output.Layer
}

func NewGenerativeSequenceModel(cfg *config.StructuredTransformerConfig, encoder Encoder, rng *rand.Rand, logger *slog.Logger) (*GenerativeSequenceModel, error) {
	layer, err := output.NewLayer(cfg, rng, logger)
	if err != nil {
		return nil, err
	}
	return &GenerativeSequenceModel{encoder: encoder, output: layer}, nil
}

// OutputLayer exposes the generative output layer, e.g. for parameter
// collection.
func (m *GenerativeSequenceModel) OutputLayer() *output.Layer {
	return m.output
}

// Forward encodes the batch and runs the generative output layer over it.
func (m *GenerativeSequenceModel) Forward(batch *data.Batch, forGeneration bool) (*output.Output, error) {
	encoded, err := m.encoder.Encode(batch)
	if err != nil {
		return nil, fmt.Errorf("encoding batch: %w", err)
	}
	return m.output.Forward(batch, encoded, forGeneration)
}

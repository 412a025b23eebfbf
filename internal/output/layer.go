package output

import (
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/exp/rand"

	"github.com/mmcdermott/EventStreamML/internal/config"
	"github.com/mmcdermott/EventStreamML/internal/data"
	"github.com/mmcdermott/EventStreamML/internal/distribution"
	"github.com/mmcdermott/EventStreamML/internal/nn"
	"github.com/mmcdermott/EventStreamML/internal/tensor"
)

// Layer is the generative output layer. It owns one classification
// projection shared by all classification measurements, one indexed
// Gaussian head per regression measurement, one time-to-event head, and the
// router matching the configured processing mode.
//
// A Layer is immutable after construction and safe for concurrent forward
// passes.
type Layer struct {
	cfg    *config.StructuredTransformerConfig
	reg    *registry
	router router

	classification *classificationHeads
	regression     *regressionHeads
	tte            tteHead
}

// NewLayer validates the configuration and builds the head set. All
// configuration errors surface here; Forward can only fail on malformed
// batches or encodings.
func NewLayer(cfg *config.StructuredTransformerConfig, rng *rand.Rand, logger *slog.Logger) (*Layer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("building output layer: %w", err)
	}

	reg := newRegistry(cfg)
	l := &Layer{
		cfg:            cfg,
		reg:            reg,
		classification: newClassificationHeads(reg, rng),
		regression:     newRegressionHeads(reg, rng),
		tte:            newTTEHead(cfg.TTE(), cfg.HiddenSize, rng),
	}

	switch cfg.ProcessingMode {
	case config.ConditionallyIndependent:
		l.router = &conditionallyIndependentRouter{
			classification: reg.classificationSet(),
			regression:     reg.regressionSet(),
		}
	case config.NestedAttention:
		l.router = newNestedAttentionRouter(cfg, reg, logger)
	}
	return l, nil
}

// Parameters returns every trainable parameter of the layer in a
// deterministic order.
func (l *Layer) Parameters() []*nn.Parameter {
	params := l.classification.proj.Parameters()

	names := make([]string, 0, len(l.regression.heads))
	for name := range l.regression.heads {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		params = append(params, l.regression.heads[name].proj.Parameters()...)
	}

	switch h := l.tte.(type) {
	case *exponentialTTEHead:
		params = append(params, h.proj.Parameters()...)
	case *logNormalMixtureTTEHead:
		params = append(params, h.proj.Parameters()...)
	}
	return params
}

// NamedParameters returns the layer's parameters keyed by a stable
// hierarchical name, suitable for checkpointing.
func (l *Layer) NamedParameters() map[string]*tensor.Tensor[float32] {
	named := make(map[string]*tensor.Tensor[float32])
	for _, p := range l.classification.proj.Parameters() {
		named["classification."+p.Name()] = p.Tensor()
	}
	for measurement, head := range l.regression.heads {
		for _, p := range head.proj.Parameters() {
			named["regression."+measurement+"."+p.Name()] = p.Tensor()
		}
	}
	var tteParams []*nn.Parameter
	switch h := l.tte.(type) {
	case *exponentialTTEHead:
		tteParams = h.proj.Parameters()
	case *logNormalMixtureTTEHead:
		tteParams = h.proj.Parameters()
	}
	for _, p := range tteParams {
		named["tte."+p.Name()] = p.Tensor()
	}
	return named
}

// Forward runs one pass over a batch.
//
// encoded is [B, S, H] for conditionally-independent models and
// [B, S, L, H] for nested-attention models. With forGeneration set, the
// output carries distributions only: no losses and no labels, and
// regression distributions cover every target rather than the observed
// indices.
func (l *Layer) Forward(batch *data.Batch, encoded *tensor.Tensor[float32], forGeneration bool) (*Output, error) {
	if err := batch.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch: %w", err)
	}
	B, S, _ := batch.Dims()
	if encoded.Dim(0) != B || encoded.Dim(1) != S {
		return nil, fmt.Errorf("encodings cover [%d x %d] events but the batch holds [%d x %d]",
			encoded.Dim(0), encoded.Dim(1), B, S)
	}

	eventTypeMasks := l.reg.eventTypeMasks(batch)

	dispatches, wholeEvent, err := l.router.route(encoded)
	if err != nil {
		return nil, err
	}

	out := &Output{
		Predictions: Predictions{
			Classification: make(map[string]distribution.Discrete),
			Regression:     make(map[string]*distribution.Normal),
		},
		EventTypeMasks:    eventTypeMasks,
		EventMask:         batch.EventMask,
		DynamicValuesMask: batch.DynamicValuesMask,
	}
	if !forGeneration {
		out.Losses = Losses{
			Classification: make(map[string]float32),
			Regression:     make(map[string]float32),
		}
		out.Labels = &Labels{
			Classification:    make(map[string]ClassificationLabels),
			Regression:        make(map[string]*tensor.Tensor[float32]),
			RegressionIndices: make(map[string]*tensor.Tensor[int64]),
		}
		out.Predictions.RegressionIndices = make(map[string]*tensor.Tensor[int64])
	}

	for _, d := range dispatches {
		cr := l.classification.outputs(batch, d.encoded, d.classification, eventTypeMasks, forGeneration)
		for m, dist := range cr.dists {
			out.Predictions.Classification[m] = dist
		}
		rr := l.regression.outputs(batch, d.encoded, d.regression, eventTypeMasks, forGeneration)
		for m, dist := range rr.dists {
			out.Predictions.Regression[m] = dist
		}
		if forGeneration {
			continue
		}
		for m, loss := range cr.losses {
			out.Losses.Classification[m] = loss
		}
		for m, lbl := range cr.labels {
			out.Labels.Classification[m] = lbl
		}
		for m, loss := range rr.losses {
			out.Losses.Regression[m] = loss
		}
		for m, lbl := range rr.labels {
			out.Labels.Regression[m] = lbl
		}
		for m, idx := range rr.indices {
			out.Labels.RegressionIndices[m] = idx
			out.Predictions.RegressionIndices[m] = idx
		}
	}

	if forGeneration {
		// Generation only needs the duration distribution; there is no
		// successor event to score against.
		out.Predictions.TimeToEvent = l.tte.Forward(wholeEvent)
		return out, nil
	}

	tteLL, tteDist, tteTrue, err := tteOutputs(l.tte, batch, wholeEvent)
	if err != nil {
		return nil, err
	}
	out.Predictions.TimeToEvent = tteDist

	tteNLL := -tteLL
	out.Losses.TimeToEvent = &tteNLL
	out.Labels.TimeToEvent = tteTrue

	total := tteNLL
	for _, loss := range out.Losses.Classification {
		total += loss
	}
	for _, loss := range out.Losses.Regression {
		total += loss
	}
	out.Loss = &total
	return out, nil
}

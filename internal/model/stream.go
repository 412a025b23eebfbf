package model

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/mmcdermott/EventStreamML/internal/config"
	"github.com/mmcdermott/EventStreamML/internal/data"
	"github.com/mmcdermott/EventStreamML/internal/distribution"
	"github.com/mmcdermott/EventStreamML/internal/nn"
	"github.com/mmcdermott/EventStreamML/internal/tensor"
)

// PoolingMethod selects how per-event encodings are pooled into one
// stream-level vector.
type PoolingMethod string

// Supported pooling methods.
const (
	PoolCLS  PoolingMethod = "cls"
	PoolLast PoolingMethod = "last"
	PoolMax  PoolingMethod = "max"
	PoolMean PoolingMethod = "mean"
)

// StreamClassificationConfig configures a whole-stream classification task.
type StreamClassificationConfig struct {
	// Task names the stream-label entry of the batch to supervise on.
	Task string `yaml:"task"`

	// NumLabels is the number of classes. Binary tasks use a single
	// logit with a Bernoulli loss; all others use a softmax over
	// NumLabels classes.
	NumLabels int  `yaml:"num_labels"`
	Binary    bool `yaml:"binary"`

	Pooling PoolingMethod `yaml:"pooling"`
}

// StreamClassificationModel predicts one label per stream from a pooled
// event encoding.
type StreamClassificationModel struct {
	cfg     *config.StructuredTransformerConfig
	task    string
	binary  bool
	pooling PoolingMethod

	encoder Encoder
	logits  *nn.Linear
}

func NewStreamClassificationModel(cfg *config.StructuredTransformerConfig, task StreamClassificationConfig, encoder Encoder, rng *rand.Rand) (*StreamClassificationModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("building stream classification model: %w", err)
	}
	switch task.Pooling {
	case PoolCLS, PoolLast, PoolMax, PoolMean:
	default:
		return nil, fmt.Errorf("%q is not a supported pooling method", task.Pooling)
	}
	if task.Task == "" {
		return nil, fmt.Errorf("stream classification requires a task name")
	}

	outFeatures := task.NumLabels
	if task.Binary {
		if task.NumLabels != 2 {
			return nil, fmt.Errorf("binary tasks must declare exactly 2 labels, got %d", task.NumLabels)
		}
		outFeatures = 1
	} else if task.NumLabels < 2 {
		return nil, fmt.Errorf("num_labels must be >= 2, got %d", task.NumLabels)
	}

	return &StreamClassificationModel{
		cfg:     cfg,
		task:    task.Task,
		binary:  task.Binary,
		pooling: task.Pooling,
		encoder: encoder,
		logits:  nn.NewLinear(cfg.HiddenSize, outFeatures, rng),
	}, nil
}

// StreamClassificationOutput is the result of one classification pass.
type StreamClassificationOutput struct {
	Loss float32

	// Logits has shape [B] for binary tasks and [B, NumLabels]
	// otherwise.
	Logits *tensor.Tensor[float32]
	Labels *tensor.Tensor[int64]
}

// Forward encodes the batch, pools per-event encodings into one vector per
// stream, and scores the configured task.
func (m *StreamClassificationModel) Forward(batch *data.Batch) (*StreamClassificationOutput, error) {
	if err := batch.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch: %w", err)
	}
	labels, ok := batch.StreamLabels[m.task]
	if !ok {
		return nil, fmt.Errorf("batch carries no stream labels for task %q", m.task)
	}

	encoded, err := m.encoder.Encode(batch)
	if err != nil {
		return nil, fmt.Errorf("encoding batch: %w", err)
	}

	// Nested-attention encoders emit [B, S, L, H]; the last level is the
	// whole-event summary.
	if m.cfg.ProcessingMode == config.NestedAttention {
		if len(encoded.Shape()) != 4 {
			return nil, fmt.Errorf("nested-attention encodings must be rank 4, got shape %v", encoded.Shape())
		}
		encoded = tensor.Select(encoded, 2, encoded.Dim(2)-1)
	} else if len(encoded.Shape()) != 3 {
		return nil, fmt.Errorf("encodings must be rank 3, got shape %v", encoded.Shape())
	}

	var pooled *tensor.Tensor[float32]
	switch m.pooling {
	case PoolCLS:
		pooled = tensor.Select(encoded, 1, 0)
	case PoolLast:
		pooled = tensor.Select(encoded, 1, encoded.Dim(1)-1)
	case PoolMax:
		pooled = nn.SafeMaskedMax(encoded, batch.EventMask)
	case PoolMean:
		pooled = nn.SafeMaskedMean(encoded, batch.EventMask)
	}

	logits := m.logits.Forward(pooled)

	var loss float32
	if m.binary {
		logits = tensor.Squeeze(logits, -1)
		dist := distribution.NewBernoulli(logits)
		lossPerStream := tensor.Neg(dist.LogProb(tensor.ToFloat32(labels)))
		loss = tensor.Sum(lossPerStream) / float32(lossPerStream.NumElements())
	} else {
		dist := distribution.NewCategorical(logits)
		lossPerStream := tensor.Neg(dist.LogProb(labels))
		loss = tensor.Sum(lossPerStream) / float32(lossPerStream.NumElements())
	}

	return &StreamClassificationOutput{Loss: loss, Logits: logits, Labels: labels}, nil
}

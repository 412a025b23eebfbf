package distribution

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/mmcdermott/EventStreamML/internal/tensor"
)

// Categorical is a distribution over a single class per position,
// parameterized by unnormalized logits of shape [..., numClasses].
type Categorical struct {
	logits *tensor.Tensor[float32]
}

// NewCategorical creates a categorical distribution from logits [..., C].
func NewCategorical(logits *tensor.Tensor[float32]) *Categorical {
	if len(logits.Shape()) < 1 {
		panic("NewCategorical: logits must have at least one dimension")
	}
	return &Categorical{logits: logits}
}

// Logits returns the raw logits.
func (c *Categorical) Logits() *tensor.Tensor[float32] {
	return c.logits
}

// NumClasses returns the number of categories.
func (c *Categorical) NumClasses() int {
	return c.logits.Dim(-1)
}

// Probs returns normalized probabilities with the same shape as the logits.
func (c *Categorical) Probs() *tensor.Tensor[float32] {
	return tensor.Softmax(c.logits, -1)
}

// LogProbs returns log-probabilities with the same shape as the logits.
func (c *Categorical) LogProbs() *tensor.Tensor[float32] {
	return tensor.LogSoftmax(c.logits, -1)
}

// LogProb returns the log-likelihood of the given class labels. labels must
// have the logits' shape minus the trailing class dimension.
func (c *Categorical) LogProb(labels *tensor.Tensor[int64]) *tensor.Tensor[float32] {
	want := c.logits.Shape()
	if !labels.Shape().Equal(want[:len(want)-1]) {
		panic(fmt.Sprintf("Categorical.LogProb: labels shape %v does not match batch shape %v",
			labels.Shape(), want[:len(want)-1]))
	}
	lp := c.LogProbs()
	gathered := tensor.Gather(lp, -1, tensor.Unsqueeze(labels, -1))
	return tensor.Squeeze(gathered, -1)
}

// Sample draws one class index per batch position.
func (c *Categorical) Sample(src rand.Source) *tensor.Tensor[int64] {
	probs := c.Probs()
	classes := c.NumClasses()
	batch := probs.NumElements() / classes

	out := tensor.New[int64](c.logits.Shape()[:len(c.logits.Shape())-1])
	weights := make([]float64, classes)
	data := probs.Data()
	for b := 0; b < batch; b++ {
		for k := 0; k < classes; k++ {
			weights[k] = float64(data[b*classes+k])
		}
		cat := distuv.NewCategorical(weights, src)
		out.Data()[b] = int64(cat.Rand())
	}
	return out
}

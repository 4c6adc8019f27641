package model

import (
	"fmt"
	"sync"

	"github.com/safepay-ai/safepay/internal/domain"
)

// labelThreshold is the probability at which the classifier's own label
// flips to fraud, independent of the engine decision threshold.
const labelThreshold = 0.5

// Classifier scores feature vectors against a random forest. The forest
// is loaded lazily on first use so constructing the classifier is cheap
// and a missing artifact only surfaces when scoring is attempted.
type Classifier struct {
	path string

	once   sync.Once
	forest *Forest
	err    error
}

// NewClassifier wraps an already-loaded forest, bypassing lazy loading.
// Used when the artifact has been decoded elsewhere, e.g. in tests.
func NewClassifier(f *Forest) *Classifier {
	c := &Classifier{forest: f}
	c.once.Do(func() {})
	return c
}

// NewLazyClassifier defers loading the artifact at path until the first
// Score or Warmup call.
func NewLazyClassifier(path string) *Classifier {
	return &Classifier{path: path}
}

// Warmup forces the artifact load and reports any failure. Callers that
// want to fail fast at startup call this before serving traffic.
func (c *Classifier) Warmup() error {
	c.load()
	return c.err
}

// Version reports the loaded artifact's version string, or "" before a
// successful load.
func (c *Classifier) Version() string {
	if c.forest == nil {
		return ""
	}
	return c.forest.Version
}

func (c *Classifier) load() {
	c.once.Do(func() {
		f, err := LoadForest(c.path)
		if err != nil {
			c.err = fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
			return
		}
		c.forest = f
	})
}

// Score runs the vector through the forest and returns the averaged
// probability with its thresholded label.
func (c *Classifier) Score(v domain.FeatureVector) (domain.Prediction, error) {
	c.load()
	if c.err != nil {
		return domain.Prediction{}, c.err
	}
	if err := v.Validate(); err != nil {
		return domain.Prediction{}, err
	}

	p := c.forest.proba(v)
	return domain.Prediction{
		Label:       p >= labelThreshold,
		Probability: p,
	}, nil
}

// Package model loads the serialized random-forest artifact and scores
// feature vectors against it.
package model

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/safepay-ai/safepay/internal/domain"
)

// Tree is a single decision tree in flattened array form. Node i branches
// to Left[i] when the sampled feature is <= Threshold[i], otherwise to
// Right[i]. Leaves carry Feature[i] == -1 and a two-class count in Value[i].
type Tree struct {
	Feature   []int        `json:"feature"`
	Threshold []float64    `json:"threshold"`
	Left      []int        `json:"left"`
	Right     []int        `json:"right"`
	Value     [][2]float64 `json:"value"`
}

// Forest is the on-disk model artifact.
type Forest struct {
	Version   string `json:"version"`
	NFeatures int    `json:"n_features"`
	Trees     []Tree `json:"trees"`
}

// DecodeForest reads and validates a forest artifact from r.
func DecodeForest(r io.Reader) (*Forest, error) {
	var f Forest
	dec := json.NewDecoder(r)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding model artifact: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadForest reads a forest artifact from path.
func LoadForest(path string) (*Forest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening model artifact: %w", err)
	}
	defer file.Close()

	f, err := DecodeForest(file)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return f, nil
}

func (f *Forest) validate() error {
	if f.NFeatures != domain.FeatureCount {
		return fmt.Errorf("model expects %d features, engine provides %d", f.NFeatures, domain.FeatureCount)
	}
	if len(f.Trees) == 0 {
		return fmt.Errorf("model has no trees")
	}
	for i, t := range f.Trees {
		n := len(t.Feature)
		if len(t.Threshold) != n || len(t.Left) != n || len(t.Right) != n || len(t.Value) != n {
			return fmt.Errorf("tree %d has inconsistent node arrays", i)
		}
		if n == 0 {
			return fmt.Errorf("tree %d is empty", i)
		}
		for node := 0; node < n; node++ {
			if t.Feature[node] == -1 {
				continue
			}
			if t.Feature[node] < 0 || t.Feature[node] >= f.NFeatures {
				return fmt.Errorf("tree %d node %d references feature %d", i, node, t.Feature[node])
			}
			if t.Left[node] < 0 || t.Left[node] >= n || t.Right[node] < 0 || t.Right[node] >= n {
				return fmt.Errorf("tree %d node %d has out-of-range children", i, node)
			}
		}
	}
	return nil
}

// proba walks every tree to a leaf and averages the per-leaf positive-class
// fraction across the forest.
func (f *Forest) proba(v domain.FeatureVector) float64 {
	var sum float64
	for i := range f.Trees {
		sum += f.Trees[i].leafProba(v)
	}
	return sum / float64(len(f.Trees))
}

func (t *Tree) leafProba(v domain.FeatureVector) float64 {
	node := 0
	for t.Feature[node] != -1 {
		if v[t.Feature[node]] <= t.Threshold[node] {
			node = t.Left[node]
		} else {
			node = t.Right[node]
		}
	}
	total := t.Value[node][0] + t.Value[node][1]
	if total == 0 {
		return 0
	}
	return t.Value[node][1] / total
}

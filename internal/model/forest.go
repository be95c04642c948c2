// Package model loads a trained random-forest classifier exported as JSON and
// evaluates it per sample. Training happens elsewhere.
//
// The file layout is:
//
//	{
//	  "features": ["IR", "BPM", "Avg_BPM", "GSR"],
//	  "classes":  ["Reality Show", "Jornal"],
//	  "trees": [
//	    {"nodes": [
//	      {"feature": 1, "threshold": 72.5, "left": 1, "right": 2},
//	      {"leaf": true, "class": 0},
//	      {"leaf": true, "class": 1}
//	    ]}
//	  ]
//	}
//
// A split node sends a sample left when feature <= threshold. Node 0 is the root
// and children always come after their parent, so evaluation terminates.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"mindtv/internal/classify"
)

// Features is the expected feature order, matching the device record.
var Features = []string{"IR", "BPM", "Avg_BPM", "GSR"}

var ErrInvalidModel = errors.New("invalid model")

type Node struct {
	Leaf      bool    `json:"leaf,omitempty"`
	Class     int     `json:"class,omitempty"`
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Forest is a validated random forest. It is read-only and safe for concurrent use.
type Forest struct {
	FeatureNames []string `json:"features"`
	Classes      []string `json:"classes"`
	Trees        []Tree   `json:"trees"`
}

var _ classify.Classifier = (*Forest)(nil)

// Load reads and validates a forest from path.
func Load(path string) (*Forest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer f.Close()

	forest, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return forest, nil
}

// Decode reads and validates a forest from r.
func Decode(r io.Reader) (*Forest, error) {
	var forest Forest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&forest); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	if err := forest.Validate(); err != nil {
		return nil, err
	}
	return &forest, nil
}

// Validate checks the feature order, class references and tree shape.
func (f *Forest) Validate() error {
	if len(f.FeatureNames) != len(Features) {
		return fmt.Errorf("%w: want %d features, got %d", ErrInvalidModel, len(Features), len(f.FeatureNames))
	}
	for i, name := range f.FeatureNames {
		if name != Features[i] {
			return fmt.Errorf("%w: feature %d is %q, want %q", ErrInvalidModel, i, name, Features[i])
		}
	}
	if len(f.Classes) == 0 {
		return fmt.Errorf("%w: no classes", ErrInvalidModel)
	}
	if len(f.Trees) == 0 {
		return fmt.Errorf("%w: no trees", ErrInvalidModel)
	}

	for ti, t := range f.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("%w: tree %d has no nodes", ErrInvalidModel, ti)
		}
		for ni, n := range t.Nodes {
			if n.Leaf {
				if n.Class < 0 || n.Class >= len(f.Classes) {
					return fmt.Errorf("%w: tree %d node %d: class %d out of range", ErrInvalidModel, ti, ni, n.Class)
				}
				continue
			}
			if n.Feature < 0 || n.Feature >= len(Features) {
				return fmt.Errorf("%w: tree %d node %d: feature %d out of range", ErrInvalidModel, ti, ni, n.Feature)
			}
			for _, child := range []int{n.Left, n.Right} {
				if child <= ni || child >= len(t.Nodes) {
					return fmt.Errorf("%w: tree %d node %d: child %d must follow its parent", ErrInvalidModel, ti, ni, child)
				}
			}
		}
	}
	return nil
}

// Predict evaluates every tree and returns the majority class.
func (f *Forest) Predict(ir, bpm, avgBPM, gsr float64) (string, error) {
	x := [4]float64{ir, bpm, avgBPM, gsr}
	votes := make([]string, len(f.Trees))
	for i := range f.Trees {
		votes[i] = f.Classes[f.Trees[i].eval(x)]
	}
	label, _ := classify.MajorityVote(votes)
	return label, nil
}

func (t *Tree) eval(x [4]float64) int {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Leaf {
			return n.Class
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

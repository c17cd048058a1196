package ml

import "sort"

// LabelEncoder maps categorical string values to stable integer indices.
// Classes are sorted at fit time so the same training set always produces
// the same mapping. Values never seen during fitting encode to Fallback;
// this is a deliberate degradation path so prediction keeps working when a
// request carries a category the model was not trained on.
type LabelEncoder struct {
	Classes  []string `json:"classes"`
	Fallback int      `json:"fallback"`

	index map[string]int
}

func NewLabelEncoder(fallback int) *LabelEncoder {
	return &LabelEncoder{Fallback: fallback}
}

// Fit learns the class set from the training values only.
func (e *LabelEncoder) Fit(values []string) {
	seen := make(map[string]struct{}, len(values))
	classes := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		classes = append(classes, v)
	}
	sort.Strings(classes)
	e.Classes = classes
	e.index = nil
}

// Transform returns the index of value, or Fallback for unseen values.
func (e *LabelEncoder) Transform(value string) int {
	e.ensureIndex()
	if idx, ok := e.index[value]; ok {
		return idx
	}
	return e.Fallback
}

// Seen reports whether value was part of the fitted class set.
func (e *LabelEncoder) Seen(value string) bool {
	e.ensureIndex()
	_, ok := e.index[value]
	return ok
}

func (e *LabelEncoder) ensureIndex() {
	if e.index != nil {
		return
	}
	e.index = make(map[string]int, len(e.Classes))
	for i, c := range e.Classes {
		e.index[c] = i
	}
}

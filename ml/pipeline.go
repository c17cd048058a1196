package ml

import "errors"

// Record is a raw observation before encoding. Categorical values are
// label-encoded with the pipeline's fitted encoders; numeric values are
// passed through by name.
type Record struct {
	Categorical map[string]string
	Numeric     map[string]float64
}

// Pipeline turns Records into fixed-order feature vectors. Columns is the
// single source of truth for vector layout: it is recorded at training time
// and every later Encode call produces exactly that order and length.
type Pipeline struct {
	Encoders map[string]*LabelEncoder `json:"encoders"`
	Columns  []string                 `json:"columns"`
}

// Fit learns one label encoder per categorical feature from the training
// records and pins the output column order. Encoders must never be fit on
// inference data; the service only ever calls Encode.
func (p *Pipeline) Fit(records []Record, categorical []string, columns []string, fallback int) error {
	if len(records) == 0 {
		return errors.New("records is empty")
	}
	if len(columns) == 0 {
		return errors.New("columns is empty")
	}

	p.Encoders = make(map[string]*LabelEncoder, len(categorical))
	for _, feature := range categorical {
		values := make([]string, 0, len(records))
		for _, rec := range records {
			if v, ok := rec.Categorical[feature]; ok {
				values = append(values, v)
			}
		}
		enc := NewLabelEncoder(fallback)
		enc.Fit(values)
		p.Encoders[feature] = enc
	}

	p.Columns = append([]string(nil), columns...)
	return nil
}

// Encode produces the feature vector for rec. The result always has
// len(p.Columns) entries; any expected column the record does not supply
// is zero. Unseen categorical values encode to the encoder's fallback
// index instead of failing.
func (p *Pipeline) Encode(rec Record) []float64 {
	derived := make(map[string]float64, len(rec.Numeric)+len(p.Encoders))
	for name, value := range rec.Numeric {
		derived[name] = value
	}
	for feature, enc := range p.Encoders {
		value, ok := rec.Categorical[feature]
		if !ok {
			continue
		}
		derived[feature+"_encoded"] = float64(enc.Transform(value))
	}

	vector := make([]float64, len(p.Columns))
	for i, col := range p.Columns {
		vector[i] = derived[col]
	}
	return vector
}

// EncodeAll encodes every record, preserving order.
func (p *Pipeline) EncodeAll(records []Record) [][]float64 {
	vectors := make([][]float64, len(records))
	for i, rec := range records {
		vectors[i] = p.Encode(rec)
	}
	return vectors
}

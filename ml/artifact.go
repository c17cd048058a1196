package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Tasks an artifact can serve.
const (
	TaskRegression     = "regression"
	TaskClassification = "classification"
)

// Metadata describes how and when an artifact was produced. A copy is
// written next to the artifact as plain JSON for external inspection.
type Metadata struct {
	ModelType       string             `json:"model_type"`
	Task            string             `json:"task"`
	TrainedAt       time.Time          `json:"trained_at"`
	TrainingSamples int                `json:"training_samples"`
	Metrics         map[string]float64 `json:"performance_metrics"`
}

// Artifact is the persisted model bundle: fitted predictor state, the
// feature pipeline (encoders plus ordered column list) and training
// metadata. It is created once by training, then loaded read-only by the
// prediction service; replacing it means retraining and overwriting the
// file.
type Artifact struct {
	Task      string          `json:"task"`
	ModelKind string          `json:"model_kind"`
	Model     json.RawMessage `json:"model"`
	Pipeline  Pipeline        `json:"pipeline"`
	Metadata  Metadata        `json:"metadata"`

	regressor  Regressor
	classifier Classifier
}

// NewRegressionArtifact bundles a fitted regressor with its pipeline.
func NewRegressionArtifact(kind string, model Regressor, pipeline Pipeline, meta Metadata) (*Artifact, error) {
	raw, err := json.Marshal(model)
	if err != nil {
		return nil, fmt.Errorf("serialize model: %w", err)
	}
	return &Artifact{
		Task:      TaskRegression,
		ModelKind: kind,
		Model:     raw,
		Pipeline:  pipeline,
		Metadata:  meta,
		regressor: model,
	}, nil
}

// NewClassificationArtifact bundles a fitted classifier with its pipeline.
func NewClassificationArtifact(kind string, model Classifier, pipeline Pipeline, meta Metadata) (*Artifact, error) {
	raw, err := json.Marshal(model)
	if err != nil {
		return nil, fmt.Errorf("serialize model: %w", err)
	}
	return &Artifact{
		Task:       TaskClassification,
		ModelKind:  kind,
		Model:      raw,
		Pipeline:   pipeline,
		Metadata:   meta,
		classifier: model,
	}, nil
}

// Regressor returns the fitted regressor, or nil for classification
// artifacts.
func (a *Artifact) Regressor() Regressor { return a.regressor }

// Classifier returns the fitted classifier, or nil for regression
// artifacts.
func (a *Artifact) Classifier() Classifier { return a.classifier }

// Save writes the artifact and a metadata sidecar
// ("<name>_metadata.json") next to it.
func (a *Artifact) Save(path string) error {
	if len(a.Model) == 0 {
		return errors.New("artifact has no model state")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	payload, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return err
	}

	meta, err := json.MarshalIndent(a.Metadata, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(MetadataPath(path), meta, 0o600)
}

// MetadataPath is the sidecar path for an artifact path.
func MetadataPath(path string) string {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	return base + "_metadata.json"
}

// LoadArtifact reads an artifact and reconstructs its predictor. Loading
// a saved artifact reproduces the exact predictions of the model that was
// saved.
func LoadArtifact(path string) (*Artifact, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var artifact Artifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if len(artifact.Pipeline.Columns) == 0 {
		return nil, errors.New("artifact has no feature columns")
	}

	switch artifact.Task {
	case TaskRegression:
		model, err := NewRegressor(artifact.ModelKind, 0)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(artifact.Model, model); err != nil {
			return nil, fmt.Errorf("decode model state: %w", err)
		}
		artifact.regressor = model
	case TaskClassification:
		model, err := NewClassifier(artifact.ModelKind, 0)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(artifact.Model, model); err != nil {
			return nil, fmt.Errorf("decode model state: %w", err)
		}
		artifact.classifier = model
	default:
		return nil, fmt.Errorf("unknown artifact task: %s", artifact.Task)
	}

	return &artifact, nil
}

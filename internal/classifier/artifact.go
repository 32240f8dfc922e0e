package classifier

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

const (
	KindLogistic = "logistic"
	KindForest   = "forest"
)

// Artifact is the on-disk form of a trained model
type Artifact struct {
	Kind          string          `json:"kind"`
	SchemaVersion string          `json:"schema_version"`
	Version       string          `json:"version"`
	TrainedAt     *time.Time      `json:"trained_at,omitempty"`
	Logistic      *LogisticParams `json:"logistic,omitempty"`
	Forest        *ForestParams   `json:"forest,omitempty"`
}

type LogisticParams struct {
	Intercept float64   `json:"intercept"`
	Weights   []float64 `json:"weights"`
	Means     []float64 `json:"means,omitempty"`
	Scales    []float64 `json:"scales,omitempty"`
}

type ForestParams struct {
	Trees []Tree `json:"trees"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Node is a split or a leaf. Leaves have Feature -1 and carry Value, the
// probability of fighter A winning.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

const artifactSchema = `{
  "type": "object",
  "required": ["kind", "schema_version", "version"],
  "properties": {
    "kind": {"type": "string", "enum": ["logistic", "forest"]},
    "schema_version": {"type": "string", "minLength": 1},
    "version": {"type": "string", "minLength": 1},
    "trained_at": {"type": "string"},
    "logistic": {
      "type": "object",
      "required": ["intercept", "weights"],
      "properties": {
        "intercept": {"type": "number"},
        "weights": {"type": "array", "items": {"type": "number"}, "minItems": 1},
        "means": {"type": "array", "items": {"type": "number"}},
        "scales": {"type": "array", "items": {"type": "number"}}
      }
    },
    "forest": {
      "type": "object",
      "required": ["trees"],
      "properties": {
        "trees": {
          "type": "array",
          "minItems": 1,
          "items": {
            "type": "object",
            "required": ["nodes"],
            "properties": {
              "nodes": {
                "type": "array",
                "minItems": 1,
                "items": {
                  "type": "object",
                  "required": ["feature"],
                  "properties": {
                    "feature": {"type": "integer", "minimum": -1},
                    "threshold": {"type": "number"},
                    "left": {"type": "integer", "minimum": 0},
                    "right": {"type": "integer", "minimum": 0},
                    "value": {"type": "number", "minimum": 0, "maximum": 1}
                  }
                }
              }
            }
          }
        }
      }
    }
  }
}`

var artifactSchemaLoader = gojsonschema.NewStringLoader(artifactSchema)

// ParseArtifact validates raw against the artifact JSON schema and decodes it
func ParseArtifact(raw []byte) (*Artifact, error) {
	result, err := gojsonschema.Validate(artifactSchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("artifact validation error: %w", err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return nil, fmt.Errorf("artifact failed schema validation: %v", errs)
	}

	var a Artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	return &a, nil
}

// Build turns the artifact into a ready model bound to its feature schema
func (a *Artifact) Build() (Model, FeatureSchema, error) {
	schema, err := LookupSchema(a.SchemaVersion)
	if err != nil {
		return nil, FeatureSchema{}, err
	}

	var m Model
	switch a.Kind {
	case KindLogistic:
		if a.Logistic == nil {
			return nil, FeatureSchema{}, fmt.Errorf("logistic artifact %s has no parameters", a.Version)
		}
		m, err = newLogistic(*a.Logistic, schema.Len())
	case KindForest:
		if a.Forest == nil {
			return nil, FeatureSchema{}, fmt.Errorf("forest artifact %s has no trees", a.Version)
		}
		m, err = newForest(*a.Forest, schema.Len())
	default:
		err = fmt.Errorf("unknown model kind %q", a.Kind)
	}
	if err != nil {
		return nil, FeatureSchema{}, err
	}
	return m, schema, nil
}

// Model maps a feature vector to P(A wins)
type Model interface {
	Predict(x []float64) float64
}

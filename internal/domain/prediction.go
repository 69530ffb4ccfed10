package domain

// FeatureVector holds per-token counts aligned with vocabulary indices.
type FeatureVector []float64

// IsZero reports whether every component is zero.
func (v FeatureVector) IsZero() bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Label is a class identifier exactly as stored in the model artifact (string or number).
type Label = any

// Prediction is the classifier output for one text.
type Prediction struct {
	Label Label
	Class int // index into the model's class list
}

// Vectorizer is the shared text-to-features contract between layers.
type Vectorizer interface {
	Transform(text string) FeatureVector
	Size() int
}

// Classifier maps a feature vector to a predicted label.
type Classifier interface {
	Predict(v FeatureVector) (Prediction, error)
}

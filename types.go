package nbserve

import (
	"github.com/kailas-cloud/nbserve/internal/artifact"
	predictionuc "github.com/kailas-cloud/nbserve/internal/usecase/prediction"
)

// Prediction is the classifier output for one text.
type Prediction struct {
	// Label is the class value exactly as stored in the model artifact.
	Label any
	// Class is the label's index in ModelInfo.Classes.
	Class       int
	Normalized  string
	KnownTokens int
	Cached      bool
}

// ModelInfo describes the loaded artifacts.
type ModelInfo struct {
	Kind           string // multinomial, complement, bernoulli
	Classes        []any
	VocabularySize int
	Fingerprint    string
}

func predictionFrom(r predictionuc.Result) Prediction {
	return Prediction{
		Label:       r.Prediction.Label,
		Class:       r.Prediction.Class,
		Normalized:  r.Normalized,
		KnownTokens: r.KnownTokens,
		Cached:      r.Cached,
	}
}

func modelInfoFrom(i artifact.Info) ModelInfo {
	return ModelInfo{
		Kind:           string(i.Kind),
		Classes:        i.Classes,
		VocabularySize: i.VocabularySize,
		Fingerprint:    i.Fingerprint,
	}
}

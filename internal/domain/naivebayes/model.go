// Package naivebayes implements inference for trained Naive Bayes text models.
package naivebayes

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/nbserve/internal/domain"
)

// Model is a trained Naive Bayes classifier. Immutable and safe for concurrent use.
type Model struct {
	kind           Kind
	classes        []domain.Label
	classLogPrior  []float64
	featureLogProb [][]float64
	nFeatures      int

	// Bernoulli only.
	presence   [][]float64 // featureLogProb - log(1 - exp(featureLogProb))
	absenceSum []float64   // per class sum of log(1 - exp(featureLogProb))
	binarize   float64
}

var _ domain.Classifier = (*Model)(nil)

// New validates params and builds a Model.
func New(p Params) (*Model, error) {
	if p.Kind == "" {
		p.Kind = Multinomial
	}
	switch p.Kind {
	case Multinomial, Complement, Bernoulli:
	default:
		return nil, invalid("unknown model kind %q", p.Kind)
	}

	nClasses := len(p.Classes)
	if nClasses == 0 {
		return nil, invalid("model has no classes")
	}

	prior, flp, err := p.resolve()
	if err != nil {
		return nil, err
	}

	if len(prior) != nClasses {
		return nil, invalid("class_log_prior has %d entries, want %d", len(prior), nClasses)
	}
	if err := checkMatrix("feature_log_prob", flp, nClasses); err != nil {
		return nil, err
	}
	if err := checkFinite("class_log_prior", prior); err != nil {
		return nil, err
	}
	for c, row := range flp {
		if err := checkFinite(fmt.Sprintf("feature_log_prob[%d]", c), row); err != nil {
			return nil, err
		}
	}

	m := &Model{
		kind:           p.Kind,
		classes:        p.Classes,
		classLogPrior:  prior,
		featureLogProb: flp,
		nFeatures:      len(flp[0]),
	}

	if p.Kind == Bernoulli {
		if p.Binarize != nil {
			m.binarize = *p.Binarize
		}
		if err := m.prepareBernoulli(); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Model) prepareBernoulli() error {
	m.presence = make([][]float64, len(m.featureLogProb))
	m.absenceSum = make([]float64, len(m.featureLogProb))
	for c, row := range m.featureLogProb {
		m.presence[c] = make([]float64, len(row))
		for i, lp := range row {
			if lp >= 0 {
				return invalid("bernoulli feature_log_prob[%d][%d] must be negative, got %g", c, i, lp)
			}
			neg := math.Log1p(-math.Exp(lp))
			m.presence[c][i] = lp - neg
			m.absenceSum[c] += neg
		}
	}
	return nil
}

// Kind returns the event model.
func (m *Model) Kind() Kind { return m.kind }

// Classes returns the class labels in model order.
func (m *Model) Classes() []domain.Label { return m.classes }

// NumFeatures returns the expected feature vector length.
func (m *Model) NumFeatures() int { return m.nFeatures }

// JointLogLikelihood returns the unnormalized per-class log posterior of v.
func (m *Model) JointLogLikelihood(v domain.FeatureVector) ([]float64, error) {
	if len(v) != m.nFeatures {
		return nil, domain.NewShapeMismatch(m.nFeatures, len(v))
	}

	jll := make([]float64, len(m.classes))
	switch m.kind {
	case Bernoulli:
		for c := range jll {
			s := m.classLogPrior[c] + m.absenceSum[c]
			for i, x := range v {
				if x > m.binarize {
					s += m.presence[c][i]
				}
			}
			jll[c] = s
		}
	case Complement:
		for c := range jll {
			jll[c] = dot(v, m.featureLogProb[c])
			if len(m.classes) == 1 {
				jll[c] += m.classLogPrior[c]
			}
		}
	default:
		for c := range jll {
			jll[c] = m.classLogPrior[c] + dot(v, m.featureLogProb[c])
		}
	}
	return jll, nil
}

// Predict returns the most likely class. Ties go to the lowest class index.
func (m *Model) Predict(v domain.FeatureVector) (domain.Prediction, error) {
	jll, err := m.JointLogLikelihood(v)
	if err != nil {
		return domain.Prediction{}, err
	}

	best := 0
	for c := 1; c < len(jll); c++ {
		if jll[c] > jll[best] {
			best = c
		}
	}
	return domain.Prediction{Label: m.classes[best], Class: best}, nil
}

// dot skips zero counts, which dominate sparse text vectors.
func dot(v domain.FeatureVector, w []float64) float64 {
	var s float64
	for i, x := range v {
		if x != 0 {
			s += x * w[i]
		}
	}
	return s
}

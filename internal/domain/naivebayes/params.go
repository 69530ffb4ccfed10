package naivebayes

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/nbserve/internal/domain"
)

// Kind selects the Naive Bayes event model.
type Kind string

const (
	// Multinomial models token counts. Default.
	Multinomial Kind = "multinomial"
	// Complement models counts against the complement of each class.
	Complement Kind = "complement"
	// Bernoulli models token presence.
	Bernoulli Kind = "bernoulli"
)

const defaultAlpha = 1.0

// Params is the exported form of a trained model.
// Either the log-probability fields or the raw count fields must be set;
// log-probabilities win when both are present.
type Params struct {
	Kind    Kind           `json:"kind" yaml:"kind"`
	Classes []domain.Label `json:"classes" yaml:"classes"`

	ClassLogPrior  []float64   `json:"class_log_prior,omitempty" yaml:"class_log_prior,omitempty"`
	FeatureLogProb [][]float64 `json:"feature_log_prob,omitempty" yaml:"feature_log_prob,omitempty"`

	ClassCount   []float64   `json:"class_count,omitempty" yaml:"class_count,omitempty"`
	FeatureCount [][]float64 `json:"feature_count,omitempty" yaml:"feature_count,omitempty"`
	Alpha        *float64    `json:"alpha,omitempty" yaml:"alpha,omitempty"`

	// Binarize is the Bernoulli presence threshold (x > Binarize). Default 0.
	Binarize *float64 `json:"binarize,omitempty" yaml:"binarize,omitempty"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidArtifact, fmt.Sprintf(format, args...))
}

// resolve returns class log priors and feature log probabilities, deriving them
// from raw counts when the artifact carries counts only.
func (p *Params) resolve() (prior []float64, flp [][]float64, err error) {
	nClasses := len(p.Classes)

	flp = p.FeatureLogProb
	if flp == nil {
		if p.FeatureCount == nil {
			return nil, nil, invalid("model has neither feature_log_prob nor feature_count")
		}
		if err := checkMatrix("feature_count", p.FeatureCount, nClasses); err != nil {
			return nil, nil, err
		}
		alpha := defaultAlpha
		if p.Alpha != nil {
			alpha = *p.Alpha
		}
		if alpha < 0 {
			return nil, nil, invalid("alpha must be non-negative, got %g", alpha)
		}
		switch p.Kind {
		case Multinomial:
			flp = multinomialLogProb(p.FeatureCount, alpha)
		case Complement:
			flp = complementLogProb(p.FeatureCount, alpha)
		case Bernoulli:
			if len(p.ClassCount) != nClasses {
				return nil, nil, invalid("bernoulli model needs class_count with %d entries, got %d",
					nClasses, len(p.ClassCount))
			}
			flp = bernoulliLogProb(p.FeatureCount, p.ClassCount, alpha)
		}
	}

	prior = p.ClassLogPrior
	if prior == nil {
		prior = priorFromCounts(p.ClassCount, nClasses)
	}

	return prior, flp, nil
}

// priorFromCounts returns empirical log priors, or uniform ones without counts.
func priorFromCounts(counts []float64, nClasses int) []float64 {
	prior := make([]float64, nClasses)
	if len(counts) != nClasses {
		for i := range prior {
			prior[i] = -math.Log(float64(nClasses))
		}
		return prior
	}
	var total float64
	for _, c := range counts {
		total += c
	}
	for i, c := range counts {
		prior[i] = math.Log(c) - math.Log(total)
	}
	return prior
}

func multinomialLogProb(fc [][]float64, alpha float64) [][]float64 {
	out := make([][]float64, len(fc))
	for c, row := range fc {
		var total float64
		for _, x := range row {
			total += x + alpha
		}
		out[c] = make([]float64, len(row))
		for i, x := range row {
			out[c][i] = math.Log(x+alpha) - math.Log(total)
		}
	}
	return out
}

// complementLogProb uses unnormalized weights: -log of the smoothed
// complement frequency.
func complementLogProb(fc [][]float64, alpha float64) [][]float64 {
	nFeatures := len(fc[0])
	all := make([]float64, nFeatures)
	for _, row := range fc {
		for i, x := range row {
			all[i] += x
		}
	}

	out := make([][]float64, len(fc))
	for c, row := range fc {
		comp := make([]float64, nFeatures)
		var total float64
		for i, x := range row {
			comp[i] = all[i] + alpha - x
			total += comp[i]
		}
		out[c] = make([]float64, nFeatures)
		for i := range comp {
			out[c][i] = -(math.Log(comp[i]) - math.Log(total))
		}
	}
	return out
}

func bernoulliLogProb(fc [][]float64, cc []float64, alpha float64) [][]float64 {
	out := make([][]float64, len(fc))
	for c, row := range fc {
		denom := math.Log(cc[c] + 2*alpha)
		out[c] = make([]float64, len(row))
		for i, x := range row {
			out[c][i] = math.Log(x+alpha) - denom
		}
	}
	return out
}

func checkMatrix(name string, m [][]float64, rows int) error {
	if len(m) != rows {
		return invalid("%s has %d rows, want one per class (%d)", name, len(m), rows)
	}
	if len(m[0]) == 0 {
		return invalid("%s has no features", name)
	}
	for i, row := range m {
		if len(row) != len(m[0]) {
			return invalid("%s row %d has %d features, want %d", name, i, len(row), len(m[0]))
		}
	}
	return nil
}

func checkFinite(name string, xs []float64) error {
	for i, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return invalid("%s[%d] is not finite", name, i)
		}
	}
	return nil
}

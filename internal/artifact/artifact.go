// Package artifact loads the trained vocabulary and model from disk.
// Loading happens once at startup; every failure is meant to be fatal.
package artifact

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/nbserve/internal/domain"
	"github.com/kailas-cloud/nbserve/internal/domain/naivebayes"
	"github.com/kailas-cloud/nbserve/internal/domain/vocabulary"
)

// Default artifact file names, relative to the working directory.
const (
	DefaultModelPath      = "nb_classifier_model.json"
	DefaultVocabularyPath = "vocab.json"
)

// maxArtifactBytes caps decompressed artifact size.
const maxArtifactBytes = 512 << 20

// Config holds artifact locations.
type Config struct {
	ModelPath      string
	VocabularyPath string
}

// Bundle is the immutable set of loaded artifacts shared by all requests.
type Bundle struct {
	Vocabulary  *vocabulary.Vocabulary
	Vectorizer  *vocabulary.CountVectorizer
	Model       *naivebayes.Model
	Fingerprint string // sha256 over both artifact files
}

// Info describes the loaded model.
type Info struct {
	Kind           naivebayes.Kind
	Classes        []domain.Label
	VocabularySize int
	Fingerprint    string
}

// Load reads and validates both artifacts. The model feature count must
// equal the vocabulary size.
func Load(cfg Config) (*Bundle, error) {
	if cfg.ModelPath == "" {
		cfg.ModelPath = DefaultModelPath
	}
	if cfg.VocabularyPath == "" {
		cfg.VocabularyPath = DefaultVocabularyPath
	}

	vocab, vocabRaw, err := LoadVocabulary(cfg.VocabularyPath)
	if err != nil {
		return nil, err
	}
	model, modelRaw, err := LoadModel(cfg.ModelPath)
	if err != nil {
		return nil, err
	}

	if model.NumFeatures() != vocab.Size() {
		return nil, fmt.Errorf("%w: model expects %d features but vocabulary has %d tokens",
			domain.ErrInvalidArtifact, model.NumFeatures(), vocab.Size())
	}

	return &Bundle{
		Vocabulary:  vocab,
		Vectorizer:  vocabulary.NewCountVectorizer(vocab),
		Model:       model,
		Fingerprint: fingerprint(modelRaw, vocabRaw),
	}, nil
}

// LoadVocabulary reads a token→index mapping. It also returns the raw file bytes.
func LoadVocabulary(path string) (*vocabulary.Vocabulary, []byte, error) {
	raw, data, format, err := readArtifact(path)
	if err != nil {
		return nil, nil, err
	}

	var m map[string]int
	if err := decode(data, format, &m); err != nil {
		return nil, nil, fmt.Errorf("%w: decode vocabulary %s: %w", domain.ErrInvalidArtifact, path, err)
	}

	v, err := vocabulary.New(m)
	if err != nil {
		return nil, nil, fmt.Errorf("vocabulary %s: %w", path, err)
	}
	return v, raw, nil
}

// LoadModel reads trained Naive Bayes parameters. It also returns the raw file bytes.
func LoadModel(path string) (*naivebayes.Model, []byte, error) {
	raw, data, format, err := readArtifact(path)
	if err != nil {
		return nil, nil, err
	}

	var p naivebayes.Params
	if err := decode(data, format, &p); err != nil {
		return nil, nil, fmt.Errorf("%w: decode model %s: %w", domain.ErrInvalidArtifact, path, err)
	}

	m, err := naivebayes.New(p)
	if err != nil {
		return nil, nil, fmt.Errorf("model %s: %w", path, err)
	}
	return m, raw, nil
}

// Info returns a description of the loaded model.
func (b *Bundle) Info() Info {
	return Info{
		Kind:           b.Model.Kind(),
		Classes:        b.Model.Classes(),
		VocabularySize: b.Vocabulary.Size(),
		Fingerprint:    b.Fingerprint,
	}
}

// HealthCheck reports whether the bundle is usable.
func (b *Bundle) HealthCheck(_ context.Context) error {
	if b == nil || b.Model == nil || b.Vectorizer == nil {
		return errors.New("artifacts not loaded")
	}
	return nil
}

type format int

const (
	formatJSON format = iota
	formatYAML
)

// readArtifact returns the file bytes as stored, the decompressed payload
// and the payload format derived from the file extension.
func readArtifact(path string) (raw, data []byte, f format, err error) {
	name := strings.ToLower(filepath.Base(path))
	compressed := strings.HasSuffix(name, ".gz")
	name = strings.TrimSuffix(name, ".gz")

	switch filepath.Ext(name) {
	case ".json":
		f = formatJSON
	case ".yaml", ".yml":
		f = formatYAML
	default:
		return nil, nil, 0, fmt.Errorf("%w: unsupported artifact format %q", domain.ErrInvalidArtifact, path)
	}

	raw, err = os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, nil, 0, fmt.Errorf("read artifact %s: %w", path, err)
	}

	data = raw
	if compressed {
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, nil, 0, fmt.Errorf("%w: gunzip %s: %w", domain.ErrInvalidArtifact, path, err)
		}
		defer zr.Close()

		data, err = io.ReadAll(io.LimitReader(zr, maxArtifactBytes))
		if err != nil {
			return nil, nil, 0, fmt.Errorf("%w: gunzip %s: %w", domain.ErrInvalidArtifact, path, err)
		}
	}

	return raw, data, f, nil
}

// decode keeps JSON numbers as json.Number so numeric class labels
// round-trip exactly.
func decode(data []byte, f format, v any) error {
	if f == formatYAML {
		return yaml.Unmarshal(data, v)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func fingerprint(model, vocab []byte) string {
	h := sha256.New()
	h.Write(model)
	h.Write([]byte{0})
	h.Write(vocab)
	return hex.EncodeToString(h.Sum(nil))
}

package preprocess

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/jesbu1/rl-starter-files/core"
	"gonum.org/v1/gonum/mat"
)

const (
	VocabMaxSize = 100
	imageScale   = 0.1
)

var (
	ErrVocabFull     = errors.New("maximum vocabulary capacity reached")
	ErrShapeMismatch = errors.New("observation shape does not match the preprocessor")
	ErrNoObservation = errors.New("no observations to preprocess")

	tokenPattern = regexp.MustCompile(`[a-z]+`)
)

// Vocabulary maps mission words to indices starting at 1, so that 0 stays
// free for padding.
type Vocabulary struct {
	mu      sync.Mutex
	maxSize int
	vocab   map[string]int
}

func NewVocabulary(maxSize int) *Vocabulary {
	return &Vocabulary{
		maxSize: maxSize,
		vocab:   make(map[string]int),
	}
}

func (v *Vocabulary) Load(vocab map[string]int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.vocab = make(map[string]int, len(vocab))
	for k, i := range vocab {
		v.vocab[k] = i
	}
}

func (v *Vocabulary) Index(token string) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if i, ok := v.vocab[token]; ok {
		return i, nil
	}
	if len(v.vocab) >= v.maxSize {
		return 0, fmt.Errorf("%w: cannot add %q", ErrVocabFull, token)
	}
	v.vocab[token] = len(v.vocab) + 1
	return v.vocab[token], nil
}

// Map returns a copy of the current vocabulary.
func (v *Vocabulary) Map() map[string]int {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[string]int, len(v.vocab))
	for k, i := range v.vocab {
		out[k] = i
	}
	return out
}

func Tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// ObssPreprocessor turns observations into model input rows: the scaled
// image, optionally followed by a normalized bag of mission words.
type ObssPreprocessor struct {
	Width  int
	Height int
	Text   bool
	Vocab  *Vocabulary
}

func New(width, height int, text bool, vocab map[string]int) *ObssPreprocessor {
	v := NewVocabulary(VocabMaxSize)
	if vocab != nil {
		v.Load(vocab)
	}
	return &ObssPreprocessor{
		Width:  width,
		Height: height,
		Text:   text,
		Vocab:  v,
	}
}

func (p *ObssPreprocessor) imageSize() int {
	return p.Width * p.Height * 3
}

// Size is the length of one preprocessed row.
func (p *ObssPreprocessor) Size() int {
	if p.Text {
		return p.imageSize() + VocabMaxSize
	}
	return p.imageSize()
}

func (p *ObssPreprocessor) Preprocess(obss []core.Observation) (*mat.Dense, error) {
	if len(obss) == 0 {
		return nil, ErrNoObservation
	}
	out := mat.NewDense(len(obss), p.Size(), nil)
	for i, obs := range obss {
		if len(obs.Image) != p.imageSize() {
			return nil, fmt.Errorf("%w: got %d values, want %d", ErrShapeMismatch, len(obs.Image), p.imageSize())
		}
		row := out.RawRowView(i)
		for k, v := range obs.Image {
			row[k] = float64(v) * imageScale
		}
		if p.Text {
			if err := p.bagOfWords(obs.Mission, row[p.imageSize():]); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (p *ObssPreprocessor) bagOfWords(mission string, dst []float64) error {
	tokens := Tokenize(mission)
	if len(tokens) == 0 {
		return nil
	}
	for _, tok := range tokens {
		idx, err := p.Vocab.Index(tok)
		if err != nil {
			return err
		}
		if idx > len(dst) {
			return fmt.Errorf("%w: index %d of %q", ErrVocabFull, idx, tok)
		}
		dst[idx-1] += 1 / float64(len(tokens))
	}
	return nil
}

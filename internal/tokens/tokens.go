// Package tokens estimates how many tokens a response text occupies,
// for speech/latency budget telemetry on execution records.
package tokens

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// Estimator counts tokens using the cl100k_base encoding. The codec is
// loaded lazily and cached; a load failure degrades to a zero estimate
// rather than failing the pipeline.
type Estimator struct {
	once  sync.Once
	codec tokenizer.Codec
	err   error
}

// NewEstimator creates an estimator. The tokenizer tables are not loaded
// until the first Count call.
func NewEstimator() *Estimator {
	return &Estimator{}
}

// Count returns the token count for text, or 0 when text is empty or the
// codec could not be loaded.
func (e *Estimator) Count(text string) int {
	if text == "" {
		return 0
	}

	e.once.Do(func() {
		e.codec, e.err = tokenizer.Get(tokenizer.Cl100kBase)
	})
	if e.err != nil {
		return 0
	}

	ids, _, err := e.codec.Encode(text)
	if err != nil {
		return 0
	}
	return len(ids)
}

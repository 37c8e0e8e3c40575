package tokenizer

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const fallbackEncoding = "cl100k_base"

type encoder interface {
	Encode(text string, allowedSpecial []string, disallowedSpecial []string) []int
}

// Counter estimates prompt size with the tiktoken encoding of the configured model.
// When the encoding cannot be loaded it falls back to a whitespace word count.
type Counter struct {
	model  string
	logger *slog.Logger
	load   func(model string) (encoder, error)

	once sync.Once
	enc  encoder
}

// NewCounter builds a counter for the model. The encoding is loaded on first use.
func NewCounter(model string, logger *slog.Logger) *Counter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Counter{model: model, logger: logger, load: loadEncoding}
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	c.once.Do(func() {
		enc, err := c.load(c.model)
		if err != nil {
			c.logger.Warn("tokenizer unavailable, using word count", "model", c.model, "error", err)
			return
		}
		c.enc = enc
	})
	if c.enc == nil {
		return len(strings.Fields(text))
	}
	return len(c.enc.Encode(text, nil, nil))
}

func loadEncoding(model string) (encoder, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err == nil {
		return enc, nil
	}
	return tiktoken.GetEncoding(fallbackEncoding)
}

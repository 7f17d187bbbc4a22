package pricing

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// encoderCache holds one tiktoken encoder per model. A nil entry records
// that no encoding is known for the model so we only ask tiktoken once.
var (
	encoderMu    sync.Mutex
	encoderCache = map[string]*tiktoken.Tiktoken{}
)

// EstimateTokens counts the tokens the model's tokenizer would produce for
// text. When no encoding is available for the model (local or unreleased
// models), it falls back to the rough four-characters-per-token estimate.
func EstimateTokens(model, text string) int {
	if text == "" {
		return 0
	}
	if enc := encoderFor(model); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return heuristicTokens(text)
}

func encoderFor(model string) *tiktoken.Tiktoken {
	encoderMu.Lock()
	defer encoderMu.Unlock()
	if enc, ok := encoderCache[model]; ok {
		return enc
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc = nil
	}
	encoderCache[model] = enc
	return enc
}

// heuristicTokens approximates a token count as len/4, never below 1 for
// non-empty text.
func heuristicTokens(text string) int {
	n := len(text) / 4
	if n < 1 {
		n = 1
	}
	return n
}

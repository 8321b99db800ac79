package generate

import (
	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts tokens in a prompt fragment.
type TokenCounter interface {
	CountTokens(text string) int
}

// Tokenizer counts tokens with the cl100k_base encoding. A nil Tokenizer,
// or one whose encoding failed to load, estimates four bytes per token.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTokenizer loads the cl100k_base encoding.
func NewTokenizer() (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, err
	}
	return &Tokenizer{enc: enc}, nil
}

// CountTokens returns the token count of text.
func (t *Tokenizer) CountTokens(text string) int {
	if t == nil || t.enc == nil {
		return (len(text) + 3) / 4
	}
	return len(t.enc.Encode(text, nil, nil))
}

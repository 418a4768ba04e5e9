// Package tokenizer provides token counting for prompt budgeting.
package tokenizer

// Tokenizer is the unified token counting interface.
type Tokenizer interface {
	// CountTokens returns the number of tokens in the given text.
	CountTokens(text string) (int, error)

	// MaxTokens returns the model's maximum context length.
	MaxTokens() int

	// Name returns the tokenizer's name.
	Name() string
}

// ForModel returns a tiktoken-backed tokenizer for the given model, falling
// back to a character estimator when the model has no known encoding.
func ForModel(model string) Tokenizer {
	t, err := NewTiktokenTokenizer(model)
	if err != nil {
		return NewEstimatorTokenizer(model, 0)
	}
	return t
}

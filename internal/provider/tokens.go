package provider

// EstimateTokens approximates the token count of a text as len/4, rounded
// up. This is the character-count heuristic used uniformly across adapters
// and persistence whenever a backend does not report exact usage. It is an
// estimate of unknown accuracy, not a tokenizer, and records derived from
// it should be read as such.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

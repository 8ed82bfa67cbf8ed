package config

// FollowUpConfig tunes composed follow-up prompts. Both fields are
// optional; zero values leave the prompt templates untouched.
type FollowUpConfig struct {
	// Language is the language the follow-up agent should respond in,
	// e.g. "Japanese". Empty means no language instruction is added.
	Language string

	// ExtraInstructions is appended to Review and Document prompts after
	// the directive body. Custom prompts are never modified.
	ExtraInstructions string
}

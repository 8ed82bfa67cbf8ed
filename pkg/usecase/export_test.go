package usecase

// ResolveDiff is exported for testing
var ResolveDiff = resolveDiff

// DiffSection is exported for testing
var DiffSection = diffSection

// NewAgentRunner is exported for testing
var NewAgentRunner = newAgentRunner

// AgentRunner is exported for testing prompt construction
type AgentRunner = agentRunner

// BuildAgentSystemPrompt is exported for testing
var BuildAgentSystemPrompt = (*agentRunner).buildSystemPrompt

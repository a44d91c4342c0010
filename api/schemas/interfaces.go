package schemas

import (
	"context"
	"time"
)

// -- Store Interface --

// SessionStore defines durable, keyed-by-id persistence for test sessions. This
// abstraction keeps the engine independent of the database implementation
// (e.g., PostgreSQL, in-memory).
type SessionStore interface {
	// Create persists a brand new session. Sessions are never overwritten.
	Create(ctx context.Context, session *TestSession) error
	// Get retrieves a session by ID, returning ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (*TestSession, error)
	// AppendTranscript adds a chat message to an existing session. It is the only
	// mutation a session supports after creation.
	AppendTranscript(ctx context.Context, id string, msg ChatMessage) error
}

// -- Analyzer Interfaces --

// LoadOptions configures a single load run.
type LoadOptions struct {
	VirtualUsers int
	Duration     time.Duration
}

// LoadRunner invokes the load-generation tool. Expected failure classes never
// panic; a missing binary is recovered internally.
type LoadRunner interface {
	Run(ctx context.Context, targetURL string, opts LoadOptions) (*RawLoadResult, error)
}

// RepoScanner fetches a repository and reports its deployment signals.
type RepoScanner interface {
	Scan(ctx context.Context, repoURL string) (*GithubSignals, error)
}

// BrowserAuditor scores a page for performance, accessibility, best practices and SEO.
type BrowserAuditor interface {
	Audit(ctx context.Context, targetURL string) (*BrowserAudit, error)
}

// NarrativeGenerator turns an assembled context string into prose. Its output is
// untrusted text and is never parsed structurally.
type NarrativeGenerator interface {
	Generate(ctx context.Context, contextText string) (string, error)
}

// -- LLM Client Schemas & Interface --

// ModelTier allows for selecting a large language model based on a preference
// for speed versus advanced capabilities.
type ModelTier string

const (
	TierFast     ModelTier = "fast"     // Prefers a faster, potentially less capable model.
	TierPowerful ModelTier = "powerful" // Prefers a more capable, potentially slower model.
)

// GenerationOptions controls the text generation process of the LLM.
type GenerationOptions struct {
	Temperature float64 `json:"temperature"` // Controls randomness. Lower is more deterministic.
	MaxTokens   int     `json:"max_tokens"`
}

// GenerationRequest encapsulates a complete request to the LLM: one system-role
// instruction and one user-role message.
type GenerationRequest struct {
	SystemPrompt string            `json:"system_prompt"` // Instructions for the model's persona and task.
	UserPrompt   string            `json:"user_prompt"`   // The specific query or input from the user.
	Tier         ModelTier         `json:"tier"`
	Options      GenerationOptions `json:"options"`
}

// LLMClient defines a standard interface for interacting with a Large Language
// Model, abstracting the specifics of the underlying provider.
type LLMClient interface {
	// Generate produces a text completion based on the provided request.
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	// Close cleans up any resources held by the client.
	Close() error
}

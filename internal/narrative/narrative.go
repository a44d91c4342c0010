// Package narrative turns an assessment context into the launch-readiness verdict.
package narrative

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/synthmind/api/schemas"
	"github.com/xkilldash9x/synthmind/internal/config"
	"github.com/xkilldash9x/synthmind/internal/llmutil"
)

// Fixed messages stored in place of model output.
const (
	NoDataMessage      = "SynthMind AI could not retrieve metrics for this test. Please ensure the target URL is valid and try again."
	EmptyReplyFallback = "**SynthMind AI Verdict**\n\nAnalysis completed. Refer to displayed metrics."
	ServiceFallback    = "SynthMind AI could not generate the live audit due to a temporary service issue."
)

const systemPrompt = `You are SynthMind AI, a Mature Business Continuity Analyst. Your audience is Non-Technical Startup Founders.

Your purpose is to interpret telemetry to determine if a product is ready for users (Launch Readiness).

STRICT RULES:
1. NO technical jargon (e.g., "p95", "throughput", "5xx") in the main paragraphs. Use "User Experience Speed", "System Capacity", and "Error Rate".
2. NO fixes, scaling advice, or technical remediation.
3. NO mention of databases, infrastructure, or root causes.
4. If failures exist, explain the BUSINESS IMPACT (i.e., "Users will see errors").

If asked for technical help, respond:
"This interface provides business analysis only. Use Ask AI for technical remediation."`

const outputFormat = `Generate the Live Audit strictly in this format:

**SynthMind AI Verdict**

Paragraph 1: Launch Suitability
State clearly whether the product is suitable for a public launch under this specific load. Describe the speed and success rate in terms of "User Experience".

Paragraph 2: Stability Reasoning
Explain what the data indicates about the product's stability. Use business impact reasoning (e.g., "The system is robust enough for your expected initial traffic").

Paragraph 3: Unknowns
Explain what this specific test cannot tell you (e.g., "This doesn't guarantee security or stability under 10x more load").

Confidence Scope:
Runtime telemetry: High
Repository signals: Medium
Production inference: Not evaluated`

// Generator asks an LLM for the verdict. A nil client disables generation.
type Generator struct {
	client schemas.LLMClient
	cfg    config.LLMConfig
	logger *zap.Logger
}

var _ schemas.NarrativeGenerator = (*Generator)(nil)

// New wraps client. Passing a nil client yields a generator that always
// reports the empty-reply fallback.
func New(client schemas.LLMClient, cfg config.LLMConfig, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{client: client, cfg: cfg, logger: logger.Named("narrative")}
}

// BuildRequest assembles the two-message request for contextText.
func (g *Generator) BuildRequest(contextText string) schemas.GenerationRequest {
	return schemas.GenerationRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   strings.TrimSpace(contextText) + "\n\n" + outputFormat,
		Tier:         schemas.TierFast,
		Options: schemas.GenerationOptions{
			Temperature: g.cfg.Temperature,
			MaxTokens:   g.cfg.MaxTokens,
		},
	}
}

// Generate returns the cleaned model reply. On failure or an empty reply it
// returns the matching fallback text together with an ErrNarrativeService error,
// so callers can always store the returned string.
func (g *Generator) Generate(ctx context.Context, contextText string) (string, error) {
	if strings.TrimSpace(contextText) == "" {
		return NoDataMessage, nil
	}
	if g.client == nil {
		return EmptyReplyFallback, nil
	}

	reply, err := g.client.Generate(ctx, g.BuildRequest(contextText))
	if err != nil {
		g.logger.Warn("Narrative generation failed, using fallback.", zap.Error(err))
		return ServiceFallback, fmt.Errorf("%w: %v", schemas.ErrNarrativeService, err)
	}

	reply = llmutil.CleanMarkdown(reply)
	if reply == "" {
		g.logger.Warn("Narrative service returned an empty reply.")
		return EmptyReplyFallback, fmt.Errorf("%w: empty reply", schemas.ErrNarrativeService)
	}
	return reply, nil
}

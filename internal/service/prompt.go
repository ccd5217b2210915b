package service

import (
	"fmt"
	"strings"

	"github.com/cloo-solutions/agentchat/internal/domain"
)

// RefusalSentence is the fixed reply the model must use when the answer is
// not present in the supplied knowledge.
const RefusalSentence = "I don't have that information. Can I help with something else?"

// toneSentences maps each known tone to its persona sentence. Unmapped tones
// contribute nothing to the preamble.
var toneSentences = map[domain.AgentTone]string{
	domain.AgentToneProfessional: "Maintain a professional and courteous tone at all times.",
	domain.AgentToneFriendly:     "Be warm, friendly, and approachable in every reply.",
	domain.AgentToneCasual:       "Keep the conversation relaxed and casual.",
	domain.AgentToneHelpful:      "Be as helpful and thorough as possible.",
	domain.AgentToneFormal:       "Use formal language and a respectful register.",
	domain.AgentToneEnthusiastic: "Respond with energy and genuine enthusiasm.",
}

// PromptBuilder assembles the system prompt for a chat turn. Assembly is pure:
// identical inputs always produce an identical prompt string.
type PromptBuilder struct{}

// NewPromptBuilder creates a new PromptBuilder instance
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// Build assembles the system prompt from the agent persona and retrieved
// context. An empty result set yields the refusal-only variant.
func (b *PromptBuilder) Build(agent *domain.Agent, results []domain.RetrievalResult) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are %s, an AI assistant.", agent.Name)
	if sentence, ok := toneSentences[agent.Tone]; ok {
		sb.WriteString(" ")
		sb.WriteString(sentence)
	}

	if instructions := strings.TrimSpace(agent.CustomInstructions); instructions != "" {
		sb.WriteString("\n\n")
		sb.WriteString(instructions)
	}

	if len(results) == 0 {
		sb.WriteString("\n\n")
		sb.WriteString(refusalOnlyBlock)
		return sb.String()
	}

	sb.WriteString("\n\n=== KNOWLEDGE BASE ===\n")
	for i, r := range results {
		fmt.Fprintf(&sb, "\n[Source %d: %s]\n%s\n", i+1, r.SourceLabel, r.Content)
	}
	sb.WriteString("=== END KNOWLEDGE BASE ===\n\n")
	sb.WriteString(groundedRules)

	return sb.String()
}

const groundedRules = `Rules:
- Answer using ONLY the knowledge base content above. Do not use general or background knowledge.
- Answer warmly and conversationally.
- Format replies with bullet points and paragraph breaks where it helps readability.
- If the answer is not present in the knowledge base content, respond exactly with: "` + RefusalSentence + `"`

const refusalOnlyBlock = `You have no knowledge base content available for this conversation.
For every content question, politely decline with a short, warm refusal such as: "` + RefusalSentence + `"
Do not answer from general or background knowledge under any circumstances.`

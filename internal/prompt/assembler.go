// Package prompt assembles the generation-backend input: role policy,
// retrieved knowledge excerpts, a bounded window of prior turns, and the
// current question.
package prompt

import (
	"fmt"
	"strings"

	"github.com/ymatsuzawa/nenchobot/internal/llm"
	"github.com/ymatsuzawa/nenchobot/internal/models"
)

const (
	// MaxHistoryTurns bounds the conversation window. Older turns are
	// silently dropped; the assembler never reads them.
	MaxHistoryTurns = 5

	// MaxExcerptRunes bounds each retrieved excerpt.
	MaxExcerptRunes = 500

	// minExcerptRunes is the floor the excerpt budget shrinks to before
	// any history is dropped.
	minExcerptRunes = 100

	truncationMarker = "…（以下省略）"

	knowledgeHeader = "【検索された参考資料】\n" +
		"以下はナレッジベースから検索された、質問に関連する資料の抜粋です。回答の際は最優先で参照してください。\n"

	noKnowledgeMarker = "【検索された参考資料】\n" +
		"関連する参考資料は見つかりませんでした。一般的な日本の税法知識に基づいて回答し、参考資料に基づかない回答である旨を明記してください。\n"
)

// Assembler builds the ordered message sequence for the generation backend.
// MaxPromptRunes bounds the assembled system instruction; zero means
// unlimited.
type Assembler struct {
	BasePolicy     string
	MaxPromptRunes int
}

// BuildMessages merges the base policy, the retrieved passages and the most
// recent history turns into system/user/assistant messages, ending with the
// current question. Retrieved results are rendered in delivery order
// (descending similarity). When the system instruction would exceed
// MaxPromptRunes, excerpts are shortened before any history turn is dropped:
// knowledge recency is favoured over conversational continuity.
func (a *Assembler) BuildMessages(retrieved []models.RetrievalResult, history []models.ConversationTurn, question string) []llm.Message {
	if len(history) > MaxHistoryTurns {
		history = history[len(history)-MaxHistoryTurns:]
	}

	excerptLimit := MaxExcerptRunes
	system := a.renderSystem(retrieved, excerptLimit)

	// Shrink excerpts first, then drop oldest history turns.
	if a.MaxPromptRunes > 0 {
		for promptRunes(system, history, question) > a.MaxPromptRunes && excerptLimit > minExcerptRunes {
			excerptLimit /= 2
			if excerptLimit < minExcerptRunes {
				excerptLimit = minExcerptRunes
			}
			system = a.renderSystem(retrieved, excerptLimit)
		}
		for promptRunes(system, history, question) > a.MaxPromptRunes && len(history) > 0 {
			history = history[1:]
		}
	}

	messages := make([]llm.Message, 0, 2+2*len(history))
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	for _, turn := range history {
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: turn.Question})
		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: turn.Answer})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: question})
	return messages
}

// renderSystem appends the delimited knowledge block to the base policy, one
// annotated entry per result, or the no-reference marker when retrieval came
// back empty.
func (a *Assembler) renderSystem(retrieved []models.RetrievalResult, excerptLimit int) string {
	var b strings.Builder
	b.WriteString(a.BasePolicy)

	if len(retrieved) == 0 {
		b.WriteString("\n\n")
		b.WriteString(noKnowledgeMarker)
		return b.String()
	}

	b.WriteString("\n\n")
	b.WriteString(knowledgeHeader)
	for i, result := range retrieved {
		b.WriteString("\n")
		b.WriteString(formatEntry(i+1, result, excerptLimit))
		b.WriteString("\n")
	}
	return b.String()
}

// formatEntry renders one retrieved passage: index, document name, optional
// year, estimated page, similarity as a percentage with one decimal place,
// then the excerpt.
func formatEntry(index int, result models.RetrievalResult, excerptLimit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] %s", index, result.DocumentName)
	if result.DocumentYear != "" {
		fmt.Fprintf(&b, "（%s）", result.DocumentYear)
	}
	fmt.Fprintf(&b, " p.%d（類似度: %.1f%%）\n", result.PageNumber, result.Similarity*100)
	b.WriteString(truncate(result.Text, excerptLimit))
	return b.String()
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + truncationMarker
}

func promptRunes(system string, history []models.ConversationTurn, question string) int {
	total := len([]rune(system)) + len([]rune(question))
	for _, turn := range history {
		total += len([]rune(turn.Question)) + len([]rune(turn.Answer))
	}
	return total
}

package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ymatsuzawa/nenchobot/internal/llm"
	"github.com/ymatsuzawa/nenchobot/internal/models"
)

const testPolicy = "あなたは年末調整の専門家です。"

func TestBuildMessagesNoKnowledge(t *testing.T) {
	a := &Assembler{BasePolicy: testPolicy}

	messages := a.BuildMessages(nil, nil, "基礎控除とは何ですか")

	require.Len(t, messages, 2)
	assert.Equal(t, llm.RoleSystem, messages[0].Role)
	assert.Contains(t, messages[0].Content, testPolicy)
	assert.Contains(t, messages[0].Content, "関連する参考資料は見つかりませんでした")
	assert.NotContains(t, messages[0].Content, "最優先で参照してください")
	assert.Equal(t, llm.RoleUser, messages[1].Role)
	assert.Equal(t, "基礎控除とは何ですか", messages[1].Content)
}

func TestBuildMessagesKnowledgeBlock(t *testing.T) {
	a := &Assembler{BasePolicy: testPolicy}
	retrieved := []models.RetrievalResult{
		{Text: "扶養控除の説明", DocumentName: "nencho.pdf", DocumentYear: "2024", PageNumber: 3, Similarity: 0.912},
		{Text: "配偶者控除の説明", DocumentName: "qa.pdf", PageNumber: 1, Similarity: 0.85},
	}

	messages := a.BuildMessages(retrieved, nil, "扶養控除について教えてください")

	system := messages[0].Content
	assert.Contains(t, system, "【検索された参考資料】")
	assert.Contains(t, system, "[1] nencho.pdf（2024） p.3（類似度: 91.2%）")
	assert.Contains(t, system, "[2] qa.pdf p.1（類似度: 85.0%）")
	assert.Contains(t, system, "扶養控除の説明")
	assert.Contains(t, system, "配偶者控除の説明")
	// Entries appear in delivery order.
	assert.Less(t, strings.Index(system, "[1]"), strings.Index(system, "[2]"))
}

func TestBuildMessagesHistoryWindow(t *testing.T) {
	a := &Assembler{BasePolicy: testPolicy}

	var history []models.ConversationTurn
	for i := 1; i <= 8; i++ {
		history = append(history, models.ConversationTurn{
			Question: fmt.Sprintf("質問%d", i),
			Answer:   fmt.Sprintf("回答%d", i),
		})
	}

	messages := a.BuildMessages(nil, history, "最新の質問")

	// system + 5 turns * 2 + final question
	require.Len(t, messages, 12)

	// Only the last five turns survive, oldest first.
	assert.Equal(t, "質問4", messages[1].Content)
	assert.Equal(t, llm.RoleUser, messages[1].Role)
	assert.Equal(t, "回答4", messages[2].Content)
	assert.Equal(t, llm.RoleAssistant, messages[2].Role)
	assert.Equal(t, "質問8", messages[9].Content)
	assert.Equal(t, "回答8", messages[10].Content)

	last := messages[len(messages)-1]
	assert.Equal(t, llm.RoleUser, last.Role)
	assert.Equal(t, "最新の質問", last.Content)
}

func TestBuildMessagesTruncatesLongExcerpts(t *testing.T) {
	a := &Assembler{BasePolicy: testPolicy}
	long := strings.Repeat("税", 600)
	retrieved := []models.RetrievalResult{
		{Text: long, DocumentName: "nencho.pdf", PageNumber: 1, Similarity: 0.9},
	}

	messages := a.BuildMessages(retrieved, nil, "質問です")

	system := messages[0].Content
	assert.Contains(t, system, truncationMarker)
	assert.Contains(t, system, strings.Repeat("税", MaxExcerptRunes))
	assert.NotContains(t, system, strings.Repeat("税", MaxExcerptRunes+1))
}

func TestBuildMessagesShortExcerptNotTruncated(t *testing.T) {
	a := &Assembler{BasePolicy: testPolicy}
	retrieved := []models.RetrievalResult{
		{Text: "短い抜粋", DocumentName: "nencho.pdf", PageNumber: 1, Similarity: 0.9},
	}

	messages := a.BuildMessages(retrieved, nil, "質問です")

	assert.NotContains(t, messages[0].Content, truncationMarker)
}

func TestBuildMessagesShrinksExcerptsBeforeDroppingHistory(t *testing.T) {
	long := strings.Repeat("あ", 500)
	retrieved := []models.RetrievalResult{
		{Text: long, DocumentName: "nencho.pdf", PageNumber: 1, Similarity: 0.9},
		{Text: long, DocumentName: "qa.pdf", PageNumber: 2, Similarity: 0.8},
	}
	history := []models.ConversationTurn{
		{Question: "前の質問", Answer: "前の回答"},
	}

	a := &Assembler{BasePolicy: testPolicy, MaxPromptRunes: 400}

	messages := a.BuildMessages(retrieved, history, "質問です")

	// The history turn survives; the excerpts were squeezed instead.
	require.Len(t, messages, 4)
	assert.Equal(t, "前の質問", messages[1].Content)

	system := messages[0].Content
	assert.NotContains(t, system, strings.Repeat("あ", minExcerptRunes+1))
	assert.Contains(t, system, strings.Repeat("あ", minExcerptRunes))
}

func TestBuildMessagesDropsOldestHistoryUnderTightBudget(t *testing.T) {
	long := strings.Repeat("あ", 500)
	retrieved := []models.RetrievalResult{
		{Text: long, DocumentName: "nencho.pdf", PageNumber: 1, Similarity: 0.9},
	}
	history := []models.ConversationTurn{
		{Question: strings.Repeat("い", 200), Answer: strings.Repeat("う", 200)},
		{Question: "直近の質問", Answer: "直近の回答"},
	}

	a := &Assembler{BasePolicy: testPolicy, MaxPromptRunes: 300}

	messages := a.BuildMessages(retrieved, history, "質問です")

	// The oldest turn is gone; the newest survives along with the question.
	require.Len(t, messages, 4)
	assert.Equal(t, "直近の質問", messages[1].Content)
	assert.Equal(t, "質問です", messages[3].Content)
}

func TestBuildMessagesUnlimitedBudget(t *testing.T) {
	a := &Assembler{BasePolicy: testPolicy, MaxPromptRunes: 0}
	long := strings.Repeat("あ", 400)
	retrieved := []models.RetrievalResult{
		{Text: long, DocumentName: "nencho.pdf", PageNumber: 1, Similarity: 0.9},
	}

	messages := a.BuildMessages(retrieved, nil, "質問です")
	assert.Contains(t, messages[0].Content, long)
}

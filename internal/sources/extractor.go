// Package sources derives the citable-source list attached to an answer.
//
// Two layers with different trust levels: knowledge-base sources come from
// the retrieval results that were actually injected into the prompt, while
// official references are detected from lexical cues in the answer text. The
// lexical layer is a heuristic — a trigger phrase in the answer does not
// prove the model used that reference. It is advisory citation surfacing,
// not a verified bibliography.
package sources

import (
	"fmt"
	"strings"

	"github.com/ymatsuzawa/nenchobot/internal/models"
)

// OfficialReference is one known primary source with the answer-text phrases
// that trigger it. The table is data: swapping the heuristic out does not
// touch the verified knowledge-base path.
type OfficialReference struct {
	Key      string
	Triggers []string
	Title    string
	URL      string
}

// OfficialReferences lists the national tax agency documents the bot cites.
var OfficialReferences = []OfficialReference{
	{
		Key:      "nencho-shikata",
		Triggers: []string{"国税庁", "年末調整のしかた"},
		Title:    "年末調整のしかた（令和6年分）",
		URL:      "https://www.nta.go.jp/publication/pamph/gensen/nencho2025/pdf/nencho_all.pdf",
	},
	{
		Key:      "nencho-qa",
		Triggers: []string{"Q&A", "よくある質問"},
		Title:    "年末調整Q&A",
		URL:      "https://www.nta.go.jp/publication/pamph/gensen/nencho2025/pdf/207.pdf",
	},
}

// Extract builds the deduplicated source list for one answer. Knowledge-base
// sources come first, in retrieval delivery order, deduplicated by
// (document, page); official references follow, each key at most once no
// matter how often its triggers repeat.
func Extract(answerText string, retrieved []models.RetrievalResult) []models.Source {
	sources := []models.Source{}
	seen := map[string]bool{}

	for _, result := range retrieved {
		key := fmt.Sprintf("kb:%s:%d", result.DocumentName, result.PageNumber)
		if seen[key] {
			continue
		}
		seen[key] = true

		title := result.DocumentName
		if result.DocumentYear != "" {
			title = fmt.Sprintf("%s（%s）", result.DocumentName, result.DocumentYear)
		}
		sources = append(sources, models.Source{
			Type:       models.SourceTypeKnowledgeBase,
			Title:      title,
			Page:       result.PageNumber,
			Similarity: result.Similarity,
		})
	}

	for _, ref := range OfficialReferences {
		if seen["official:"+ref.Key] {
			continue
		}
		for _, trigger := range ref.Triggers {
			if strings.Contains(answerText, trigger) {
				seen["official:"+ref.Key] = true
				sources = append(sources, models.Source{
					Type:  models.SourceTypeOfficial,
					Title: ref.Title,
					URL:   ref.URL,
				})
				break
			}
		}
	}

	return sources
}

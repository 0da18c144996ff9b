package app

import (
	"context"
	"fmt"
	"strings"

	"offerdesk/internal/ai"
)

const excerptRunes = 240

type QAService struct {
	retrieval *RetrievalService
	chat      ChatCompleter
}

func NewQAService(retrieval *RetrievalService, chat ChatCompleter) *QAService {
	return &QAService{retrieval: retrieval, chat: chat}
}

type AskInput struct {
	CollectionToken string
	OrgID           uint
	Question        string
	TopK            int
}

type Citation struct {
	Ref        int     `json:"ref"`
	DocumentID uint    `json:"document_id"`
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
	Excerpt    string  `json:"excerpt"`
}

type AskResult struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// Ask answers from the collection's most relevant passages only. Citations
// are numbered in the order the passages were given to the model.
func (s *QAService) Ask(ctx context.Context, input AskInput) (*AskResult, error) {
	passages, err := s.retrieval.AnswerContext(ctx, input.CollectionToken, input.OrgID, input.Question, input.TopK)
	if err != nil {
		return nil, err
	}

	citations := make([]Citation, len(passages))
	var contextBlock strings.Builder
	for i, p := range passages {
		citations[i] = Citation{
			Ref:        i + 1,
			DocumentID: p.DocumentID,
			Filename:   p.Filename,
			ChunkIndex: p.ChunkIndex,
			Score:      p.Score,
			Excerpt:    excerpt(p.Content),
		}
		fmt.Fprintf(&contextBlock, "\n---\n[%d] %s, part %d\n%s", i+1, p.Filename, p.ChunkIndex+1, p.Content)
	}
	contextBlock.WriteString("\n---")

	systemContent := "You are an assistant comparing insurance offers. Answer the user's question based only on the following context. " +
		"Cite sources as [n] using the numbers given. If the context does not contain enough information, say so. Do not make up facts."
	userContent := "Context:" + contextBlock.String() + "\n\nQuestion: " + strings.TrimSpace(input.Question) + "\n\nAnswer:"

	answer, err := s.chat.Complete(ctx, []ai.ChatMessage{
		{Role: "system", Content: systemContent},
		{Role: "user", Content: userContent},
	})
	if err != nil {
		return nil, err
	}
	return &AskResult{Answer: strings.TrimSpace(answer), Citations: citations}, nil
}

func excerpt(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= excerptRunes {
		return s
	}
	return string(r[:excerptRunes]) + "…"
}

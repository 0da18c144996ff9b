package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"offerdesk/internal/offer"
)

// maxOfferPromptRunes bounds the document text sent for extraction.
const maxOfferPromptRunes = 24000

// OfferExtractor asks the model to read one offer document and return the
// catalog fields as loosely typed JSON. Normalization happens afterwards.
type OfferExtractor struct {
	client *OpenAICompatibleClient
	cfg    ChatConfig
}

func NewOfferExtractor(client *OpenAICompatibleClient, cfg ChatConfig) *OfferExtractor {
	return &OfferExtractor{client: client, cfg: cfg}
}

func (e *OfferExtractor) ExtractOffer(ctx context.Context, text string, catalog offer.Catalog) (*offer.RawOffer, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("offer text is empty")
	}
	if r := []rune(text); len(r) > maxOfferPromptRunes {
		text = string(r[:maxOfferPromptRunes])
	}

	zero := 0.0
	answer, err := e.client.Complete(ctx, e.cfg, []ChatMessage{
		{Role: "system", Content: offerSystemPrompt(catalog)},
		{Role: "user", Content: "Offer document:\n\n" + text},
	}, CompleteOptions{Temperature: &zero, JSONMode: true})
	if err != nil {
		return nil, err
	}
	return ParseRawOffer(answer)
}

// ParseRawOffer decodes a model answer, tolerating markdown code fences and
// leading prose around the JSON object.
func ParseRawOffer(answer string) (*offer.RawOffer, error) {
	body := StripCodeFence(answer)
	if i := strings.Index(body, "{"); i > 0 {
		body = body[i:]
	}
	if j := strings.LastIndex(body, "}"); j >= 0 && j < len(body)-1 {
		body = body[:j+1]
	}

	var raw offer.RawOffer
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("parse offer json failed: %w", err)
	}
	if raw.Fields == nil {
		raw.Fields = map[string]any{}
	}
	return &raw, nil
}

func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func offerSystemPrompt(catalog offer.Catalog) string {
	var b strings.Builder
	b.WriteString("You extract data from an insurance offer. Reply with one JSON object only, shaped as\n")
	b.WriteString(`{"issuer": string, "premium_total": number|string|null, "insured_amount": number|string|null, `)
	b.WriteString(`"currency": string, "period_from": "YYYY-MM-DD"|"", "period_to": "YYYY-MM-DD"|"", "fields": {code: value}}`)
	b.WriteString("\nUse only these field codes. Omit a code when the document does not mention it.\n")
	for _, f := range catalog {
		fmt.Fprintf(&b, "- %s (%s): %s", f.Code, f.Type, f.Label)
		if f.Enum != "" {
			if enum, ok := offer.LookupEnumeration(f.Enum); ok {
				fmt.Fprintf(&b, "; one of %s", strings.Join(enum.Canonical(), ", "))
			}
		}
		b.WriteByte('\n')
	}
	b.WriteString("Copy amounts as written. Do not guess values that are not stated.")
	return b.String()
}

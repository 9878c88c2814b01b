package composer

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	judgeSystemPrompt = "Actúas como analista editorial. Identificas duplicados temáticos " +
		"en una base de contenidos existente."

	judgeFormatInstruction = "Devuelve exclusivamente JSON válido con los campos duplicate (bool), " +
		"reason (string) y match_slug (string)."

	judgeInstruction = "Evalúa si el candidato trata el mismo tema o intención que alguna entrada existente. " +
		`Responde solo con JSON {"duplicate": bool, "reason": string, "match_slug": string}.`

	judgeTemperature = 0
	judgeMaxTokens   = 400
)

// CandidateSummary describes the row under consideration.
type CandidateSummary struct {
	Title       string `json:"title"`
	Keyword     string `json:"keyword"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Slug        string `json:"slug"`
	URL         string `json:"url"`
}

// RecordSummary describes one already-published entry.
type RecordSummary struct {
	Title    string `json:"title"`
	Keyword  string `json:"keyword"`
	Category string `json:"category"`
	Slug     string `json:"slug"`
	URL      string `json:"url"`
}

// JudgeRequest pairs a candidate with the existing entries it is compared to.
type JudgeRequest struct {
	Candidate CandidateSummary
	Existing  []RecordSummary
}

// Verdict is the model's duplicate decision. Only Duplicate affects control
// flow; Reason and MatchSlug are surfaced to logging.
type Verdict struct {
	Duplicate bool   `json:"duplicate"`
	Reason    string `json:"reason"`
	MatchSlug string `json:"match_slug"`
}

type judgePayload struct {
	Candidate     CandidateSummary `json:"candidate"`
	ExistingPosts []RecordSummary  `json:"existing_posts"`
	Instrucciones string           `json:"instrucciones"`
}

// JudgeDuplicate asks the model whether the candidate covers the same topic
// as an existing entry. Errors are returned to the caller, which applies the
// fail-open policy.
func (c *Client) JudgeDuplicate(ctx context.Context, req JudgeRequest) (Verdict, error) {
	payload, err := json.Marshal(judgePayload{
		Candidate:     req.Candidate,
		ExistingPosts: req.Existing,
		Instrucciones: judgeInstruction,
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("marshal judge payload: %w", err)
	}

	content, err := c.complete(ctx, []chatMessage{
		{Role: "system", Content: judgeSystemPrompt},
		{Role: "user", Content: judgeFormatInstruction},
		{Role: "user", Content: string(payload)},
	}, judgeTemperature, judgeMaxTokens)
	if err != nil {
		return Verdict{}, fmt.Errorf("judge duplicate: %w", err)
	}

	var verdict Verdict
	if err := json.Unmarshal([]byte(content), &verdict); err != nil {
		return Verdict{}, fmt.Errorf("decode judge verdict: %w", err)
	}
	return verdict, nil
}

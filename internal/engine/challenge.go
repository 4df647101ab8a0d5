package engine

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/turtacn/HSCode-Intelligence/internal/domain/tariff"
	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/HSCode-Intelligence/pkg/errors"
)

// maxChallenges caps devil's-advocate generation per run.
const maxChallenges = 5

// ChallengeRequest asks for the strongest argument against one survivor.
type ChallengeRequest struct {
	RunID       string   `json:"run_id"`
	Code        string   `json:"code"`
	Description string   `json:"description"`
	Product     string   `json:"product"`
	Rivals      []string `json:"rivals,omitempty"`
}

// Challenger produces a counter-argument against a proposed classification.
// Like the consultant it is remote and fallible; one failed challenge never
// blocks the others.
type Challenger interface {
	Challenge(ctx context.Context, req ChallengeRequest) (*tariff.Challenge, error)
}

// ParseChallenge decodes a challenger reply, tolerating code fences.
func ParseChallenge(raw string) (*tariff.Challenge, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.ErrCodeAIResponseEmpty, "challenger returned an empty reply")
	}
	var ch tariff.Challenge
	if err := json.Unmarshal([]byte(trimmed), &ch); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrCodeAIResponseInvalid, "challenger reply is not valid JSON")
	}
	return &ch, nil
}

// challengeSurvivors collects devil's-advocate challenges for up to
// maxChallenges survivors.  Failures are isolated per candidate, and no
// challenger or no survivors yields an empty list without error.
func (r *run) challengeSurvivors(res *tariff.RunResult) []tariff.Challenge {
	if r.e.challenger == nil || res.SurvivorCount == 0 {
		return nil
	}
	var rivals []string
	for _, c := range res.Survivors {
		rivals = append(rivals, c.Code)
	}
	var out []tariff.Challenge
	for i, c := range res.Survivors {
		if i >= maxChallenges {
			break
		}
		ch, err := r.e.challenger.Challenge(r.ctx, ChallengeRequest{
			RunID:       r.id,
			Code:        c.Code,
			Description: r.headingText(c),
			Product:     r.product.Description,
			Rivals:      rivals,
		})
		if err != nil {
			r.logger.Warn("challenge generation failed for candidate",
				logging.String("code", c.Code), logging.Err(err))
			continue
		}
		if ch == nil || ch.CounterArgument == "" {
			continue
		}
		if ch.Code == "" {
			ch.Code = c.Code
		}
		out = append(out, *ch)
	}
	return out
}

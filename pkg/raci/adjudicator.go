package raci

import (
	"context"
	"regexp"
	"sort"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/internal/repositories/role"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Suggestion statuses.
const (
	StatusConfirmed   = "confirmed"
	StatusDeliverable = "deliverable"
	StatusPending     = "pending"
)

// Scoring weights for auto-adjudication. Bonus thresholds are counted across
// the candidate's accumulated mention data.
const (
	deliverableScore = 0.30
	roleNounScore    = 0.35
	multiDocBonus    = 0.10
	mentionBonus     = 0.05
	statementBonus   = 0.05
	confidenceCap    = 0.99

	multiDocThreshold  = 3
	mentionThreshold   = 5
	statementThreshold = 2
)

var deliverablePattern = regexp.MustCompile(`(?i)\b(plan|report|document|record|schedule|matrix|log|register|list|specification|procedure|drawing|form|manual|checklist)s?\b`)

var roleNounPattern = regexp.MustCompile(`(?i)\b(engineer|manager|lead|analyst|officer|coordinator|director|supervisor|specialist|administrator|technician|operator|planner|scheduler|architect|inspector|auditor|clerk|chief)s?\b`)

// Candidate is a discovered role mention not yet adjudicated, with its
// accumulated counts from the extractor.
type Candidate struct {
	Name           string `json:"name"`
	MentionCount   int    `json:"mention_count"`
	DocumentCount  int    `json:"document_count"`
	StatementCount int    `json:"statement_count"`
}

// Suggestion is a scored adjudication proposal for one candidate.
type Suggestion struct {
	RoleName   string  `json:"role_name"`
	Status     string  `json:"status"`
	Confidence float64 `json:"confidence"`
}

// AdjudicateResult is the outcome of one adjudication run.
type AdjudicateResult struct {
	Suggestions []Suggestion                 `json:"suggestions"`
	Applied     *models.BatchAdjudicateResult `json:"applied,omitempty"`
}

// Adjudicator scores discovered role candidates and optionally commits the
// confident ones to the dictionary.
type Adjudicator struct {
	roles  role.RoleRepository
	logger ectologger.Logger
}

// NewAdjudicator creates a new adjudicator
func NewAdjudicator(roles role.RoleRepository, logger ectologger.Logger) *Adjudicator {
	return &Adjudicator{
		roles:  roles,
		logger: logger,
	}
}

// Score rates one candidate. Pattern hits set the base score and status;
// mention-volume bonuses stack on top, and enough attached statements promote
// a pending result to confirmed on their own.
func Score(c Candidate) Suggestion {
	confidence := 0.0
	status := StatusPending

	switch {
	case deliverablePattern.MatchString(c.Name):
		confidence += deliverableScore
		status = StatusDeliverable
	case roleNounPattern.MatchString(c.Name):
		confidence += roleNounScore
		status = StatusConfirmed
	}

	if c.DocumentCount >= multiDocThreshold {
		confidence += multiDocBonus
	}
	if c.MentionCount >= mentionThreshold {
		confidence += mentionBonus
	}
	if c.StatementCount >= statementThreshold {
		confidence += statementBonus
		if status == StatusPending {
			status = StatusConfirmed
		}
	}

	if confidence > confidenceCap {
		confidence = confidenceCap
	}

	return Suggestion{
		RoleName:   normalizers.RoleName(c.Name),
		Status:     status,
		Confidence: confidence,
	}
}

// Suggest scores every candidate not already in the dictionary. Results come
// back highest confidence first.
func (a *Adjudicator) Suggest(ctx context.Context, tenantID string, candidates []Candidate) ([]Suggestion, error) {
	ctx, span := tracing.StartSpan(ctx, "Adjudicator.Suggest")
	defer span.End()

	existing, err := a.roles.ListActive(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(existing))
	for _, r := range existing {
		known[r.NormalizedName] = true
	}

	suggestions := make([]Suggestion, 0, len(candidates))
	seen := make(map[string]bool)
	for _, c := range candidates {
		norm := normalizers.RoleName(c.Name)
		if norm == "" || known[norm] || seen[norm] {
			continue
		}
		seen[norm] = true
		suggestions = append(suggestions, Score(c))
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Confidence != suggestions[j].Confidence {
			return suggestions[i].Confidence > suggestions[j].Confidence
		}
		return suggestions[i].RoleName < suggestions[j].RoleName
	})

	return suggestions, nil
}

// Adjudicate runs Suggest and, when apply is set, commits every suggestion at
// or above threshold through the batch path.
func (a *Adjudicator) Adjudicate(ctx context.Context, tenantID string, candidates []Candidate, apply bool, threshold float64) (*AdjudicateResult, error) {
	ctx, span := tracing.StartSpan(ctx, "Adjudicator.Adjudicate")
	defer span.End()

	suggestions, err := a.Suggest(ctx, tenantID, candidates)
	if err != nil {
		return nil, err
	}

	result := &AdjudicateResult{Suggestions: suggestions}
	if !apply {
		return result, nil
	}

	decisions := make([]models.AdjudicationDecision, 0, len(suggestions))
	for _, s := range suggestions {
		if s.Confidence < threshold {
			continue
		}
		decisions = append(decisions, models.AdjudicationDecision{
			RoleName:      s.RoleName,
			Status:        s.Status,
			IsDeliverable: s.Status == StatusDeliverable,
			Confidence:    s.Confidence,
		})
	}
	if len(decisions) == 0 {
		return result, nil
	}

	applied, err := a.roles.BatchAdjudicate(ctx, tenantID, decisions)
	if err != nil {
		return nil, err
	}
	result.Applied = applied

	a.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"suggested": len(suggestions),
		"applied":   applied.Processed,
		"threshold": threshold,
	}).Info("auto-adjudication applied")

	return result, nil
}

// Package audit runs mystery-shop audits over an application snapshot and
// enriches the resulting findings with deeper suggestions.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MikeSquared-Agency/autosocio/internal/completion"
	"github.com/MikeSquared-Agency/autosocio/internal/stage"
)

const (
	callAudit  = "audit.run"
	callEnrich = "audit.enrich"
)

type Auditor struct {
	llm    completion.Completer
	logger *zap.Logger
	now    func() time.Time
}

type Option func(*Auditor)

func WithClock(now func() time.Time) Option {
	return func(a *Auditor) { a.now = now }
}

func New(llm completion.Completer, logger *zap.Logger, opts ...Option) *Auditor {
	a := &Auditor{llm: llm, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Audit asks the model for a report on snapshot and stamps each finding
// with a fresh id.
func (a *Auditor) Audit(ctx context.Context, snapshot map[string]any) (*Report, error) {
	state, err := marshalSnapshot(snapshot)
	if err != nil {
		return nil, err
	}

	report, err := completion.Decode[Report](ctx, a.llm, completion.Request{
		Name:   callAudit,
		System: auditSystem,
		User:   fmt.Sprintf(auditUser, state),
		Schema: auditSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}

	ts := a.now().UTC().Format(time.RFC3339)
	for i := range report.Findings {
		report.Findings[i].ID = uuid.NewString()
		report.Findings[i].Status = StatusOpen
		report.Findings[i].Timestamp = ts
	}
	report.LastAudit = ts

	c := stage.Clamper{Stage: callAudit}
	c.Range("overallScore", &report.OverallScore, 0, 100)
	for _, adj := range c.Adjusted {
		a.logger.Warn("clamped audit score", zap.Error(adj))
	}

	a.logger.Info("audit complete",
		zap.Float64("overall_score", report.OverallScore),
		zap.Int("findings", len(report.Findings)),
	)
	return &report, nil
}

// Enrich returns a copy of report whose findings carry the model's deeper
// suggested fixes. Enrichments for ids not in report are ignored.
func (a *Auditor) Enrich(ctx context.Context, report *Report, snapshot map[string]any) (*Report, error) {
	if report == nil {
		return nil, &stage.DependencyError{Stage: callEnrich, Requires: "audit report", Reason: "missing"}
	}

	findings, err := json.Marshal(report.Findings)
	if err != nil {
		return nil, fmt.Errorf("marshal findings: %w", err)
	}
	state, err := marshalSnapshot(snapshot)
	if err != nil {
		return nil, err
	}

	resp, err := completion.Decode[enrichResponse](ctx, a.llm, completion.Request{
		Name:   callEnrich,
		System: enrichSystem,
		User:   fmt.Sprintf(enrichUser, findings, state),
		Schema: enrichSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("enrich audit: %w", err)
	}

	fixes := make(map[string]string, len(resp.Enrichments))
	for _, e := range resp.Enrichments {
		fixes[e.ID] = e.SuggestedFix
	}

	out := report.clone()
	applied := 0
	for i := range out.Findings {
		if fix, ok := fixes[out.Findings[i].ID]; ok && fix != "" {
			out.Findings[i].SuggestedFix = fix
			applied++
		}
	}

	a.logger.Info("audit enriched",
		zap.Int("findings", len(out.Findings)),
		zap.Int("enriched", applied),
		zap.Int("ignored", len(resp.Enrichments)-applied),
	)
	return out, nil
}

func marshalSnapshot(snapshot map[string]any) ([]byte, error) {
	if snapshot == nil {
		snapshot = map[string]any{}
	}
	b, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return b, nil
}

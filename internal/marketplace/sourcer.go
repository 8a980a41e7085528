// Package marketplace sources automotive parts: it pulls part names out of a
// free-form query and ranks candidate parts for a vehicle.
package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/autosocio/internal/completion"
	"github.com/MikeSquared-Agency/autosocio/internal/stage"
)

const (
	callKeywords = "marketplace.keywords"
	callRank     = "marketplace.rank"
)

// MaxViability is the top of the viability scale.
const MaxViability = 10

type Sourcer struct {
	llm    completion.Completer
	logger *zap.Logger
}

func New(llm completion.Completer, logger *zap.Logger) *Sourcer {
	return &Sourcer{llm: llm, logger: logger}
}

// Keywords returns the distinct part names found in query, in the order the
// model listed them.
func (s *Sourcer) Keywords(ctx context.Context, query string) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, completion.ErrEmptyInput
	}

	resp, err := completion.Decode[keywordsResponse](ctx, s.llm, completion.Request{
		Name:   callKeywords,
		System: keywordsSystem,
		User:   fmt.Sprintf(keywordsUser, query),
		Schema: keywordsSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("identify part keywords: %w", err)
	}

	out := make([]string, 0, len(resp.Keywords))
	seen := make(map[string]bool, len(resp.Keywords))
	for _, k := range resp.Keywords {
		k = strings.TrimSpace(k)
		key := strings.ToLower(k)
		if k == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, k)
	}
	s.logger.Debug("part keywords identified", zap.Strings("keywords", out))
	return out, nil
}

// Recommend ranks parts for the vehicle described by adn. The result is
// sorted by viability, highest first, and exactly one entry is marked most
// recommended.
func (s *Sourcer) Recommend(ctx context.Context, adn string, parts []Part) ([]Recommendation, error) {
	if strings.TrimSpace(adn) == "" {
		return nil, completion.ErrEmptyInput
	}
	if len(parts) == 0 {
		return nil, &stage.DependencyError{Stage: callRank, Requires: "candidate parts", Reason: "none given"}
	}

	byID := make(map[string]*Part, len(parts))
	ids := make([]string, 0, len(parts))
	brief := make([]map[string]string, 0, len(parts))
	for i := range parts {
		p := parts[i]
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return nil, &stage.ValidationError{Stage: callRank, Field: fmt.Sprintf("parts[%d].id", i), Value: p.ID, Reason: "empty"}
		}
		if _, dup := byID[p.ID]; dup {
			return nil, &stage.ValidationError{Stage: callRank, Field: fmt.Sprintf("parts[%d].id", i), Value: p.ID, Reason: "duplicate part id"}
		}
		byID[p.ID] = &p
		ids = append(ids, p.ID)
		brief = append(brief, map[string]string{"id": p.ID, "name": p.Name})
	}

	candidates, err := json.Marshal(brief)
	if err != nil {
		return nil, fmt.Errorf("marshal candidates: %w", err)
	}

	resp, err := completion.Decode[rankingResponse](ctx, s.llm, completion.Request{
		Name:   callRank,
		System: rankingSystem,
		User:   fmt.Sprintf(rankingUser, adn, candidates),
		Schema: rankingSchema(ids),
	})
	if err != nil {
		return nil, fmt.Errorf("rank parts: %w", err)
	}

	out := make([]Recommendation, 0, len(resp.Recommendations))
	ranked := make(map[string]bool, len(resp.Recommendations))
	c := stage.Clamper{Stage: callRank}
	for i, r := range resp.Recommendations {
		part, ok := byID[r.PartID]
		if !ok || ranked[r.PartID] {
			s.logger.Warn("dropping ranking entry", zap.String("part_id", r.PartID), zap.Bool("known", ok))
			continue
		}
		if !stage.Finite(r.ViabilityScore) {
			return nil, &stage.ValidationError{Stage: callRank, Field: "viabilityScore", Value: r.ViabilityScore, Reason: "not a finite number"}
		}
		ranked[r.PartID] = true
		c.Range(fmt.Sprintf("recommendations[%d].viabilityScore", i), &r.ViabilityScore, 0, MaxViability)
		r.Part = part
		out = append(out, r)
	}
	for _, adj := range c.Adjusted {
		s.logger.Warn("clamped viability score", zap.Error(adj))
	}
	if len(out) == 0 {
		return nil, &stage.ValidationError{Stage: callRank, Field: "recommendations", Value: len(resp.Recommendations), Reason: "no candidate was ranked"}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].ViabilityScore > out[j].ViabilityScore })
	if marked := singleBest(out); marked != 1 {
		s.logger.Warn("model marked the wrong number of best parts, using the top score",
			zap.Int("marked", marked),
			zap.String("part_id", out[0].PartID),
		)
	}

	s.logger.Info("parts ranked",
		zap.Int("candidates", len(parts)),
		zap.Int("ranked", len(out)),
		zap.String("most_recommended", out[0].PartID),
	)
	return out, nil
}

// singleBest leaves exactly one entry of recs, which is sorted by score,
// marked most recommended. A single model mark is kept; zero or several
// marks fall back to the top score. It returns how many the model marked.
func singleBest(recs []Recommendation) int {
	marked, best := 0, 0
	for i, r := range recs {
		if r.IsMostRecommended {
			if marked == 0 {
				best = i
			}
			marked++
		}
	}
	if marked != 1 {
		best = 0
	}
	for i := range recs {
		recs[i].IsMostRecommended = i == best
	}
	return marked
}

// Source identifies the part names in adn and ranks parts for it. Both calls
// run concurrently; either failing fails the run.
func (s *Sourcer) Source(ctx context.Context, adn string, parts []Part) (*Result, error) {
	if strings.TrimSpace(adn) == "" {
		return nil, completion.ErrEmptyInput
	}

	var (
		keywords []string
		recs     []Recommendation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		keywords, err = s.Keywords(gctx, adn)
		return err
	})
	g.Go(func() error {
		var err error
		recs, err = s.Recommend(gctx, adn, parts)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Result{VehicleADN: adn, Keywords: keywords, Recommendations: recs}, nil
}

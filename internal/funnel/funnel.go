// Package funnel ranks stored startups for an investor, and investors for a
// startup, and publishes classified startup spreadsheets.
package funnel

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/venture-galaxy/matchmaker/internal/artifact"
	"github.com/venture-galaxy/matchmaker/internal/metrics"
	"github.com/venture-galaxy/matchmaker/internal/model"
	"github.com/venture-galaxy/matchmaker/internal/normalize"
	"github.com/venture-galaxy/matchmaker/internal/scorer"
	"github.com/venture-galaxy/matchmaker/internal/sheet"
	"github.com/venture-galaxy/matchmaker/internal/store"
)

// ClassifiedHeaders are the columns of a classified startups spreadsheet.
var ClassifiedHeaders = []string{
	"Name", "Sector", "Valuation", "Revenue", "Revenue Model",
	"Origin State", "Company Age", "Stage", "MatchScore",
}

// ClassifiedSheet is the worksheet name of a classified spreadsheet.
const ClassifiedSheet = "Classified Startups"

// StartupMatch is a stored startup and its score for one investor.
type StartupMatch struct {
	ID      string               `json:"id"`
	Startup model.StartupProfile `json:"startup"`
	Score   float64              `json:"score"`
	Percent string               `json:"percent"`
}

// InvestorMatch is a stored investor and its score for one startup.
type InvestorMatch struct {
	ID       string                `json:"id"`
	Investor model.InvestorProfile `json:"investor"`
	Score    float64               `json:"score"`
	Percent  string                `json:"percent"`
}

// Service scores stored profiles.
type Service struct {
	docs        store.DocumentStore
	scorer      *scorer.Scorer
	concurrency int
	metrics     *metrics.Recorder
}

// New creates a Service. rec may be nil.
func New(docs store.DocumentStore, sc *scorer.Scorer, concurrency int, rec *metrics.Recorder) *Service {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Service{docs: docs, scorer: sc, concurrency: concurrency, metrics: rec}
}

// InvestorFunnel ranks every stored startup for the investor, best first.
// Ties keep the store's id order.
func (s *Service) InvestorFunnel(ctx context.Context, investorID string) ([]StartupMatch, error) {
	doc, err := store.MustGet(ctx, s.docs, model.CollectionInvestors, investorID)
	if err != nil {
		return nil, eris.Wrap(err, "funnel: load investor")
	}
	investor := normalize.InvestorFromDocument(doc)

	founders, err := s.docs.List(ctx, model.CollectionFounders)
	if err != nil {
		return nil, eris.Wrap(err, "funnel: list founders")
	}

	out := make([]StartupMatch, len(founders))
	err = s.each(ctx, len(founders), func(i int) {
		startup := normalize.StartupFromDocument(founders[i].Fields)
		score := s.scorer.Score(startup, investor)
		out[i] = StartupMatch{ID: founders[i].ID, Startup: startup, Score: score, Percent: scorer.FormatPercent(score)}
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	zap.L().Debug("funnel: ranked startups", zap.String("investor_id", investorID), zap.Int("count", len(out)))
	return out, nil
}

// FounderFunnel ranks every stored investor for the founder's startup.
func (s *Service) FounderFunnel(ctx context.Context, founderID string) ([]InvestorMatch, error) {
	doc, err := store.MustGet(ctx, s.docs, model.CollectionFounders, founderID)
	if err != nil {
		return nil, eris.Wrap(err, "funnel: load founder")
	}
	startup := normalize.StartupFromDocument(doc)

	investors, err := s.docs.List(ctx, model.CollectionInvestors)
	if err != nil {
		return nil, eris.Wrap(err, "funnel: list investors")
	}

	out := make([]InvestorMatch, len(investors))
	err = s.each(ctx, len(investors), func(i int) {
		investor := normalize.InvestorFromDocument(investors[i].Fields)
		score := s.scorer.Score(startup, investor)
		out[i] = InvestorMatch{ID: investors[i].ID, Investor: investor, Score: score, Percent: scorer.FormatPercent(score)}
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	return out, nil
}

// each runs fn for 0..n-1 on at most s.concurrency goroutines.
func (s *Service) each(ctx context.Context, n int, fn func(i int)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return eris.Wrap(err, "funnel: scoring cancelled")
	}
	return ctx.Err()
}

// ClassifiedTable builds the classified startups sheet from a ranking.
func ClassifiedTable(matches []StartupMatch) *sheet.Table {
	t := &sheet.Table{Headers: append([]string(nil), ClassifiedHeaders...)}
	for _, m := range matches {
		st := m.Startup
		t.Rows = append(t.Rows, []string{
			st.Name,
			st.Sector,
			formatNumber(st.Valuation),
			formatNumber(st.AnnualRevenue),
			st.RevenueModel,
			st.OriginState,
			strconv.Itoa(st.CompanyAge),
			st.Stage,
			m.Percent,
		})
	}
	return t
}

// ClassifyResult describes a published classified spreadsheet.
type ClassifyResult struct {
	URL       string    `json:"url"`
	Rows      int       `json:"rows"`
	Timestamp time.Time `json:"timestamp"`
}

// Classify ranks every startup for the investor, uploads the result as a
// spreadsheet and records the artifact on the investor document.
func (s *Service) Classify(ctx context.Context, investorID string, up artifact.Uploader, now time.Time) (*ClassifyResult, error) {
	matches, err := s.InvestorFunnel(ctx, investorID)
	if err != nil {
		return nil, err
	}

	data, err := sheet.Encode(ClassifiedTable(matches), ClassifiedSheet)
	if err != nil {
		return nil, eris.Wrap(err, "funnel: encode classified sheet")
	}

	url, err := up.Upload(ctx, artifact.ObjectName(investorID, now), data)
	s.metrics.Upload(up.Backend(), err)
	if err != nil {
		return nil, eris.Wrap(err, "funnel: upload classified sheet")
	}

	ref := model.ArtifactRef{URL: url, Timestamp: now.UTC()}
	if err := artifact.Record(ctx, s.docs, investorID, ref); err != nil {
		return nil, err
	}

	zap.L().Info("funnel: classified startups published",
		zap.String("investor_id", investorID),
		zap.Int("rows", len(matches)),
		zap.String("url", url),
	)
	return &ClassifyResult{URL: url, Rows: len(matches), Timestamp: ref.Timestamp}, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

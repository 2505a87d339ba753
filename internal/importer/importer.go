// Package importer runs spreadsheet rows through identity provisioning,
// profile persistence and scoring.
package importer

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/venture-galaxy/matchmaker/internal/config"
	"github.com/venture-galaxy/matchmaker/internal/identity"
	"github.com/venture-galaxy/matchmaker/internal/mapping"
	"github.com/venture-galaxy/matchmaker/internal/metrics"
	"github.com/venture-galaxy/matchmaker/internal/model"
	"github.com/venture-galaxy/matchmaker/internal/normalize"
	"github.com/venture-galaxy/matchmaker/internal/resilience"
	"github.com/venture-galaxy/matchmaker/internal/scorer"
	"github.com/venture-galaxy/matchmaker/internal/sheet"
	"github.com/venture-galaxy/matchmaker/internal/store"
)

// ScoreHeader is the annotation column appended to imported startup rows.
const ScoreHeader = "Match Score"

// Import targets, used in logs and metrics.
const (
	TargetStartups  = "startups"
	TargetInvestors = "investors"
)

// ErrThrottled is returned when the provisioning throttle cannot grant a
// slot before the context ends. Rows after it were never attempted.
var ErrThrottled = eris.New("importer: provisioning throttle interrupted")

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// ValidEmail reports whether s has the basic text@text.text shape.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

// Options configures an Importer.
type Options struct {
	// Delay is the minimum spacing between provisioning calls.
	Delay time.Duration
	// SecretLength is the length of generated identity secrets.
	SecretLength int
	// FailureThreshold is the number of consecutive transient provisioning
	// failures after which the collaborator is treated as unavailable.
	FailureThreshold int
	// Progress, when set, is called after each row.
	Progress func(Progress)
	// Metrics may be nil.
	Metrics *metrics.Recorder
}

// OptionsFromConfig maps the import settings onto Options.
func OptionsFromConfig(cfg config.ImportConfig) Options {
	return Options{
		Delay:            cfg.ProvisionDelay(),
		SecretLength:     cfg.SecretLength,
		FailureThreshold: cfg.MaxConsecutiveFailures,
	}
}

// Progress reports the outcome of one processed row.
type Progress struct {
	Row     int    `json:"row"`
	Total   int    `json:"total"`
	Outcome string `json:"outcome"`
}

// RowFailure records why a row was skipped. Row is the 1-based spreadsheet
// line, counting the header.
type RowFailure struct {
	Row    int    `json:"row"`
	Email  string `json:"email,omitempty"`
	Reason string `json:"reason"`
}

// Summary counts row outcomes for one import.
type Summary struct {
	Total               int          `json:"total"`
	Imported            int          `json:"imported"`
	SkippedMissingEmail int          `json:"skipped_missing_email"`
	SkippedProvisioning int          `json:"skipped_provisioning"`
	Failures            []RowFailure `json:"failures,omitempty"`
	Fatal               bool         `json:"fatal"`
	Reason              string       `json:"reason,omitempty"`
}

// Result is the annotated output of an import. Table holds the imported
// rows in input order; skipped rows are omitted.
type Result struct {
	Table   *sheet.Table `json:"-"`
	Summary Summary      `json:"summary"`
}

// Importer processes rows strictly one at a time.
type Importer struct {
	provisioner identity.Provisioner
	docs        store.DocumentStore
	scorer      *scorer.Scorer
	opts        Options

	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
}

// New creates an Importer. The throttle and the provisioning circuit are
// shared by every import run on the returned value.
func New(p identity.Provisioner, docs store.DocumentStore, sc *scorer.Scorer, opts Options) *Importer {
	if opts.SecretLength <= 0 {
		opts.SecretLength = 12
	}

	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}

	rec := opts.Metrics
	breakerCfg := resilience.ProvisioningBreaker(
		config.ImportConfig{MaxConsecutiveFailures: opts.FailureThreshold},
		func(from, to resilience.CircuitState) {
			zap.L().Warn("import: provisioning circuit changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			rec.CircuitTransition(to.String())
		},
	)

	return &Importer{
		provisioner: p,
		docs:        docs,
		scorer:      sc,
		opts:        opts,
		limiter:     rate.NewLimiter(limit, 1),
		breaker:     resilience.NewCircuitBreaker(breakerCfg),
	}
}

// ImportStartups creates one founder identity and startup profile per valid
// row, scores each startup against acting and returns the imported rows
// with a Match Score column appended. On a fatal error the partial result
// is returned together with the error.
func (im *Importer) ImportStartups(ctx context.Context, table *sheet.Table, m *mapping.Mapping, acting model.InvestorProfile) (*Result, error) {
	var scores []string
	res, err := im.run(ctx, TargetStartups, table, m, func(ctx context.Context, rec normalize.Record, ident identity.Identity) error {
		startup := normalize.StartupFromRecord(rec)
		doc := startup.Document()
		doc["email"] = ident.Email
		doc["userId"] = ident.ID
		doc["role"] = model.RoleFounder

		if err := im.docs.Put(ctx, model.CollectionFounders, ident.ID, doc); err != nil {
			return err
		}

		score := im.scorer.Score(startup, acting)
		im.opts.Metrics.ObserveScore(score)
		scores = append(scores, scorer.FormatPercent(score))
		return nil
	})
	if res != nil {
		if appendErr := res.Table.AppendColumn(ScoreHeader, scores); appendErr != nil && err == nil {
			err = eris.Wrap(appendErr, "importer: annotate rows")
		}
	}
	return res, err
}

// ImportInvestors creates one investor identity and profile per valid row.
func (im *Importer) ImportInvestors(ctx context.Context, table *sheet.Table, m *mapping.Mapping) (*Result, error) {
	return im.run(ctx, TargetInvestors, table, m, func(ctx context.Context, rec normalize.Record, ident identity.Identity) error {
		inv := normalize.InvestorFromRecord(rec)
		doc := inv.Document()
		doc["email"] = ident.Email
		doc["userId"] = ident.ID
		doc["role"] = model.RoleInvestor

		return im.docs.Put(ctx, model.CollectionInvestors, ident.ID, doc)
	})
}

// persistFunc stores the profile for a provisioned row. Any error it
// returns aborts the batch.
type persistFunc func(ctx context.Context, rec normalize.Record, ident identity.Identity) error

func (im *Importer) run(ctx context.Context, target string, table *sheet.Table, m *mapping.Mapping, persist persistFunc) (*Result, error) {
	if table == nil || m == nil {
		return nil, eris.New("importer: table and mapping are required")
	}

	log := zap.L().With(zap.String("target", target))
	res := &Result{
		Table:   &sheet.Table{Headers: append([]string(nil), table.Headers...)},
		Summary: Summary{Total: len(table.Rows)},
	}

	width := len(res.Table.Headers)
	for i := range table.Rows {
		line := i + 2
		row := table.Row(i)
		rec := m.Extract(row)
		email := strings.ToLower(strings.TrimSpace(rec[mapping.FieldEmail]))

		if !ValidEmail(email) {
			res.Summary.SkippedMissingEmail++
			res.Summary.Failures = append(res.Summary.Failures, RowFailure{Row: line, Email: email, Reason: "missing or malformed email"})
			log.Warn("import: row skipped", zap.Int("row", line), zap.String("reason", "missing or malformed email"))
			im.report(target, line, res.Summary.Total, metrics.OutcomeSkippedEmail)
			continue
		}
		rec[mapping.FieldEmail] = email

		ident, err := im.provision(ctx, email)
		if err != nil {
			if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, ErrThrottled) || ctx.Err() != nil {
				return im.abort(res, target, line, eris.Wrap(err, "importer: identity provider unavailable"))
			}
			res.Summary.SkippedProvisioning++
			res.Summary.Failures = append(res.Summary.Failures, RowFailure{Row: line, Email: email, Reason: err.Error()})
			log.Warn("import: row skipped",
				zap.Int("row", line),
				zap.String("email", email),
				zap.Error(err),
			)
			im.report(target, line, res.Summary.Total, metrics.OutcomeSkippedProvisioning)
			continue
		}

		if err := persist(ctx, rec, ident); err != nil {
			return im.abort(res, target, line, eris.Wrapf(err, "importer: persist row %d", line))
		}

		out := make([]string, width)
		copy(out, row)
		res.Table.Rows = append(res.Table.Rows, out)
		res.Summary.Imported++
		im.report(target, line, res.Summary.Total, metrics.OutcomeImported)
	}

	log.Info("import: finished",
		zap.Int("total", res.Summary.Total),
		zap.Int("imported", res.Summary.Imported),
		zap.Int("skipped_missing_email", res.Summary.SkippedMissingEmail),
		zap.Int("skipped_provisioning", res.Summary.SkippedProvisioning),
	)
	return res, nil
}

// provision waits for the throttle, then creates the identity through the
// circuit breaker.
func (im *Importer) provision(ctx context.Context, email string) (identity.Identity, error) {
	secret, err := identity.GenerateSecret(im.opts.SecretLength)
	if err != nil {
		return identity.Identity{}, err
	}
	// Wait fails early, with ctx.Err() still nil, when the deadline falls
	// before the next slot.
	if err := im.limiter.Wait(ctx); err != nil {
		return identity.Identity{}, eris.Wrap(ErrThrottled, err.Error())
	}
	return resilience.ExecuteVal(ctx, im.breaker, func(ctx context.Context) (identity.Identity, error) {
		return im.provisioner.CreateIdentity(ctx, email, secret)
	})
}

func (im *Importer) abort(res *Result, target string, line int, err error) (*Result, error) {
	res.Summary.Fatal = true
	res.Summary.Reason = err.Error()
	zap.L().Error("import: aborted",
		zap.String("target", target),
		zap.Int("row", line),
		zap.Int("imported", res.Summary.Imported),
		zap.Error(err),
	)
	im.report(target, line, res.Summary.Total, metrics.OutcomeFatal)
	return res, err
}

func (im *Importer) report(target string, line, total int, outcome string) {
	im.opts.Metrics.ImportRow(target, outcome)
	if im.opts.Progress != nil {
		im.opts.Progress(Progress{Row: line - 1, Total: total, Outcome: outcome})
	}
}

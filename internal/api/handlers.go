package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/venture-galaxy/matchmaker/internal/fetcher"
	"github.com/venture-galaxy/matchmaker/internal/importer"
	"github.com/venture-galaxy/matchmaker/internal/mapping"
	"github.com/venture-galaxy/matchmaker/internal/model"
	"github.com/venture-galaxy/matchmaker/internal/normalize"
	"github.com/venture-galaxy/matchmaker/internal/scorer"
	"github.com/venture-galaxy/matchmaker/internal/sheet"
	"github.com/venture-galaxy/matchmaker/internal/store"
)

// Import summary response headers.
const (
	HeaderImportTotal               = "X-Import-Total"
	HeaderImportImported            = "X-Import-Imported"
	HeaderImportSkippedEmail        = "X-Import-Skipped-Missing-Email"
	HeaderImportSkippedProvisioning = "X-Import-Skipped-Provisioning"
	HeaderImportFatal               = "X-Import-Fatal"
	HeaderImportReason              = "X-Import-Reason"
)

var importHeaders = []string{
	HeaderImportTotal, HeaderImportImported, HeaderImportSkippedEmail,
	HeaderImportSkippedProvisioning, HeaderImportFatal, HeaderImportReason,
	"Content-Disposition",
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type scoreRequest struct {
	Startup  map[string]any `json:"startup"`
	Investor map[string]any `json:"investor"`
}

type scoreResponse struct {
	Score      float64            `json:"score"`
	Percent    string             `json:"percent"`
	Components map[string]float64 `json:"components"`
}

// handleScore scores one pair. Profiles are loose documents; absent fields
// take their neutral defaults.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	m := s.deps.Scorer.Breakdown(
		normalize.StartupFromDocument(req.Startup),
		normalize.InvestorFromDocument(req.Investor),
	)
	writeJSON(w, http.StatusOK, scoreResponse{Score: m.Score, Percent: scorer.FormatPercent(m.Score), Components: m.Components})
}

type batchRequest struct {
	Investor map[string]any   `json:"investor"`
	Startups []map[string]any `json:"startups"`
}

type batchItem struct {
	Index   int                  `json:"index"`
	Startup model.StartupProfile `json:"startup"`
	Score   float64              `json:"score"`
	Percent string               `json:"percent"`
}

func (s *Server) handleScoreBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	startups := make([]model.StartupProfile, len(req.Startups))
	for i, doc := range req.Startups {
		startups[i] = normalize.StartupFromDocument(doc)
	}

	ranked := s.deps.Scorer.ScoreAll(startups, normalize.InvestorFromDocument(req.Investor))
	out := make([]batchItem, len(ranked))
	for i, rk := range ranked {
		out[i] = batchItem{Index: rk.Index, Startup: rk.Startup, Score: rk.Score, Percent: scorer.FormatPercent(rk.Score)}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": out})
}

func (s *Server) handleInvestorFunnel(w http.ResponseWriter, r *http.Request) {
	matches, err := s.deps.Funnel.InvestorFunnel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": matches})
}

func (s *Server) handleFounderFunnel(w http.ResponseWriter, r *http.Request) {
	matches, err := s.deps.Funnel.FounderFunnel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": matches})
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	if s.deps.Uploader == nil {
		writeError(w, http.StatusServiceUnavailable, "artifact storage is not configured", nil)
		return
	}
	res, err := s.deps.Funnel.Classify(r.Context(), chi.URLParam(r, "id"), s.deps.Uploader, s.now())
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "profile not found", nil)
		return
	}
	zap.L().Error("api: request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error", nil)
}

// handleImport imports a startup spreadsheet on behalf of an investor and
// responds with the annotated workbook. The optional mapping form field is
// a JSON object of field key to header name or column index; without it
// headers are matched automatically.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	investorID := chi.URLParam(r, "id")

	doc, err := store.MustGet(ctx, s.deps.Docs, model.CollectionInvestors, investorID)
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	acting := normalize.InvestorFromDocument(doc)

	maxBytes := int64(s.cfg.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form", err.Error())
		return
	}

	table, filename, status, err := s.readSpreadsheet(r)
	if err != nil {
		writeError(w, status, "unreadable spreadsheet", err.Error())
		return
	}

	assignments := mapping.Suggest(table.Headers, mapping.StartupFields)
	if raw := r.FormValue("mapping"); raw != "" {
		assignments = map[string]string{}
		if err := json.Unmarshal([]byte(raw), &assignments); err != nil {
			writeError(w, http.StatusBadRequest, "mapping must be a JSON object", nil)
			return
		}
	}

	m, err := mapping.New(table.Headers, mapping.StartupFields, assignments)
	if err != nil {
		var verr *mapping.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusUnprocessableEntity, "invalid column mapping", verr)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	res, importErr := s.deps.Importer.ImportStartups(ctx, table, m, acting)
	if res == nil {
		s.writeLookupError(w, importErr)
		return
	}

	data, err := sheet.Encode(res.Table, sheet.DefaultSheetName)
	if err != nil {
		zap.L().Error("api: encode import result", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error", nil)
		return
	}

	h := w.Header()
	sum := res.Summary
	h.Set(HeaderImportTotal, strconv.Itoa(sum.Total))
	h.Set(HeaderImportImported, strconv.Itoa(sum.Imported))
	h.Set(HeaderImportSkippedEmail, strconv.Itoa(sum.SkippedMissingEmail))
	h.Set(HeaderImportSkippedProvisioning, strconv.Itoa(sum.SkippedProvisioning))
	h.Set(HeaderImportFatal, strconv.FormatBool(sum.Fatal))
	if sum.Fatal {
		h.Set(HeaderImportReason, sum.Reason)
	}
	h.Set("Content-Type", xlsxContentType)
	h.Set("Content-Disposition", `attachment; filename="`+outputName(filename)+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		zap.L().Debug("write import result", zap.Error(err))
	}
}

// readSpreadsheet decodes the uploaded file part, or downloads the
// spreadsheet named by the url form field.
func (s *Server) readSpreadsheet(r *http.Request) (*sheet.Table, string, int, error) {
	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close() //nolint:errcheck
		table, err := decodeUpload(file, header.Filename)
		if err != nil {
			return nil, "", http.StatusUnprocessableEntity, err
		}
		return table, header.Filename, http.StatusOK, nil
	}

	src := r.FormValue("url")
	if src == "" || !fetcher.IsRemote(src) {
		return nil, "", http.StatusBadRequest, eris.New("a file part or an http(s) url is required")
	}
	if s.deps.Fetcher == nil {
		return nil, "", http.StatusServiceUnavailable, eris.New("remote spreadsheets are not enabled")
	}
	remote, err := s.deps.Fetcher.Download(r.Context(), src)
	if err != nil {
		return nil, "", http.StatusBadGateway, err
	}
	table, err := remote.Table()
	if err != nil {
		return nil, "", http.StatusUnprocessableEntity, err
	}
	return table, remote.Name, http.StatusOK, nil
}

func decodeUpload(r io.Reader, filename string) (*sheet.Table, error) {
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		return sheet.DecodeCSV(r)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "api: read upload")
	}
	return sheet.Decode(data)
}

func outputName(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if base == "" || base == "." {
		base = importer.TargetStartups
	}
	return base + "_scored.xlsx"
}

package shell

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/saulfrancisco-ruizacevedo/transitgraph"
	"github.com/saulfrancisco-ruizacevedo/transitgraph/charts"
	"github.com/saulfrancisco-ruizacevedo/transitgraph/models"
)

var validate = validator.New()

// analysisForm is the operator's selection as it arrives in the query string.
type analysisForm struct {
	Mode  string `validate:"required,oneof=BUS DART LUAS"`
	Type  string `validate:"required,oneof=centrality shortest_path pagerank"`
	Start string `validate:"required_if=Type shortest_path,max=200"`
	End   string `validate:"required_if=Type shortest_path,max=200"`
	Label string `validate:"omitempty,oneof=Station Route"`
}

func parseAnalysisForm(r *http.Request) analysisForm {
	q := r.URL.Query()
	return analysisForm{
		Mode:  strings.ToUpper(strings.TrimSpace(q.Get("mode"))),
		Type:  strings.ToLower(strings.TrimSpace(q.Get("type"))),
		Start: strings.TrimSpace(q.Get("start")),
		End:   strings.TrimSpace(q.Get("end")),
		Label: strings.TrimSpace(q.Get("label")),
	}
}

func (f analysisForm) request() transitgraph.Request {
	return transitgraph.Request{
		Mode:     transitgraph.Mode(f.Mode),
		Analysis: transitgraph.Analysis(f.Type),
		Start:    f.Start,
		End:      f.End,
		Label:    f.Label,
	}
}

// validateForm returns nil or an input error naming every bad field.
func validateForm(f analysisForm) error {
	err := validate.Struct(f)
	if err == nil {
		if f.Type == string(transitgraph.AnalysisPageRank) && f.Label != "" && !transitgraph.Mode(f.Mode).CanRank(f.Label) {
			return fmt.Errorf("%w: label %s cannot be ranked for %s", transitgraph.ErrInvalidInput, f.Label, f.Mode)
		}
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", transitgraph.ErrInvalidInput, err)
	}
	msgs := lo.Map(fieldErrs, func(fe validator.FieldError, _ int) string { return formatFieldError(fe) })
	return fmt.Errorf("%w: %s", transitgraph.ErrInvalidInput, strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())
	switch e.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// analyze validates the form and runs it. Validation failures come back as
// an input ErrorResult so both front ends render them the same way.
func (s *Server) analyze(ctx context.Context, f analysisForm) transitgraph.Result {
	req := f.request()
	if err := validateForm(f); err != nil {
		return transitgraph.ErrorResult{Mode: req.Mode, Analysis: req.Analysis, Err: err}
	}
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	return s.analyzer.Analyze(ctx, req)
}

// analysisView is the rendering of one Result, shared by the HTML page and
// the JSON API.
type analysisView struct {
	Mode     string                  `json:"mode"`
	Analysis string                  `json:"analysis"`
	Title    string                  `json:"title"`
	Status   string                  `json:"status"`
	Message  string                  `json:"message,omitempty"`
	Kind     string                  `json:"errorKind,omitempty"`
	Label    string                  `json:"label,omitempty"`
	Rows     []models.ScoreRow       `json:"rows,omitempty"`
	Paths    []models.PathRow        `json:"paths,omitempty"`
	Summary  *models.PageRankSummary `json:"summary,omitempty"`
	// Chart is a data URL of a bar chart of Rows, only filled for the HTML page.
	Chart template.URL `json:"-"`
}

const (
	statusOK    = "ok"
	statusEmpty = "empty"
	statusError = "error"
)

func viewOf(res transitgraph.Result) analysisView {
	switch r := res.(type) {
	case transitgraph.CentralityResult:
		return analysisView{Mode: string(r.Mode), Analysis: string(transitgraph.AnalysisCentrality), Status: statusOK, Rows: r.Rows}
	case transitgraph.ShortestPathResult:
		return analysisView{Mode: string(r.Mode), Analysis: string(transitgraph.AnalysisShortestPath), Status: statusOK, Paths: r.Paths}
	case transitgraph.PageRankResult:
		summary := r.Summary
		return analysisView{Mode: string(r.Mode), Analysis: string(transitgraph.AnalysisPageRank), Status: statusOK, Label: r.Label, Rows: r.Rows, Summary: &summary}
	case transitgraph.EmptyResult:
		return analysisView{Mode: string(r.Mode), Analysis: string(r.Analysis), Status: statusEmpty, Message: r.Message()}
	case transitgraph.ErrorResult:
		return analysisView{Mode: string(r.Mode), Analysis: string(r.Analysis), Status: statusError, Message: r.Message(), Kind: r.Kind()}
	}
	return analysisView{Status: statusError, Message: fmt.Sprintf("unexpected result %T", res), Kind: "query"}
}

func (v *analysisView) finish() {
	v.Title = transitgraph.Analysis(v.Analysis).Title()
}

// statusCode maps a view to the HTTP status of the response.
func (v analysisView) statusCode() int {
	if v.Status != statusError {
		return http.StatusOK
	}
	switch v.Kind {
	case "input":
		return http.StatusBadRequest
	case "connection":
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

func (s *Server) analysisAPI(w http.ResponseWriter, r *http.Request) {
	view := viewOf(s.analyze(r.Context(), parseAnalysisForm(r)))
	view.finish()
	s.respondJSON(w, view.statusCode(), view)
}

func (s *Server) analysisPage(w http.ResponseWriter, r *http.Request) {
	form := parseAnalysisForm(r)
	view := viewOf(s.analyze(r.Context(), form))
	view.finish()

	if len(view.Rows) > 0 {
		png, err := scoreChart(view.Title, view.Rows)
		if err != nil {
			s.logger.Warn("Score chart failed", zap.Error(err))
		} else {
			view.Chart = png
		}
	}

	s.render(w, view.statusCode(), "analysis", map[string]any{
		"Form":      newFormData(form.Mode, form.Type, form.Start, form.End, form.Label),
		"View":      view,
		"PathLabel": pathLabel,
	})
}

func scoreChart(title string, rows []models.ScoreRow) (template.URL, error) {
	var buf bytes.Buffer
	if err := charts.Render(&buf, charts.Scores(title, rows), 0, 0); err != nil {
		return "", err
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

func pathLabel(p models.PathRow) string {
	return strings.Join(p.Path, " > ")
}

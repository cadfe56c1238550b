package shell

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/saulfrancisco-ruizacevedo/transitgraph"
	"github.com/saulfrancisco-ruizacevedo/transitgraph/charts"
	"github.com/saulfrancisco-ruizacevedo/transitgraph/dataset"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("shell").Funcs(template.FuncMap{
	"modes": func() []transitgraph.Mode { return transitgraph.Modes },
}).ParseFS(templateFS, "templates/*.html"))

// formData fills the analysis form partial.
type formData struct {
	Mode, Type, Start, End, Label string

	Modes    []transitgraph.Mode
	Analyses []transitgraph.Analysis
	Labels   []string
}

func newFormData(mode, typ, start, end, label string) formData {
	labels := []string{transitgraph.LabelStation, transitgraph.LabelRoute}
	if m, err := transitgraph.ParseMode(mode); err == nil {
		labels = m.RankLabels()
	}
	return formData{
		Mode:     mode,
		Type:     typ,
		Start:    start,
		End:      end,
		Label:    label,
		Modes:    transitgraph.Modes,
		Analyses: transitgraph.Analyses,
		Labels:   labels,
	}
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("Template failed", zap.String("template", name), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) home(w http.ResponseWriter, _ *http.Request) {
	modes := make([]map[string]string, 0, len(transitgraph.Modes))
	for _, m := range transitgraph.Modes {
		modes = append(modes, map[string]string{"Name": string(m), "Description": m.Description()})
	}
	s.render(w, http.StatusOK, "home", map[string]any{"Modes": modes})
}

// chartCard is one entry of a mode's gallery.
type chartCard struct {
	View  charts.View
	Error string
	// Rows is set for views shown as a table as well.
	Rows []tableRow
}

type tableRow struct {
	Label string
	Value float64
}

func (s *Server) modePage(w http.ResponseWriter, r *http.Request) {
	mode, err := transitgraph.ParseMode(chi.URLParam(r, "mode"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	table, _ := s.data.Get(string(mode))
	cards := make([]chartCard, 0, len(charts.Views(string(mode))))
	for _, v := range charts.Views(string(mode)) {
		card := chartCard{View: v}
		agg, err := v.Build(table)
		if err != nil {
			card.Error = err.Error()
		} else if v.Table {
			for i, l := range agg.Labels {
				card.Rows = append(card.Rows, tableRow{Label: l, Value: agg.Values[i]})
			}
		}
		cards = append(cards, card)
	}

	s.render(w, http.StatusOK, "mode", map[string]any{
		"Mode":        mode,
		"Description": mode.Description(),
		"Cards":       cards,
		"Form":        newFormData(string(mode), "", "", "", ""),
		"Summary":     summarize(mode, table),
	})
}

const sampleRows = 5

// summary is the exploratory overview of a mode's dataset.
type summary struct {
	Mode    transitgraph.Mode       `json:"mode"`
	Rows    int                     `json:"rows"`
	Columns []dataset.ColumnSummary `json:"columns"`
	Header  []string                `json:"header"`
	Sample  [][]string              `json:"sample"`
}

// summarize returns nil when the mode has no dataset.
func summarize(mode transitgraph.Mode, table *dataset.Table) *summary {
	if table == nil {
		return nil
	}
	return &summary{
		Mode:    mode,
		Rows:    table.Len(),
		Columns: table.Describe(),
		Header:  table.Columns,
		Sample:  table.Head(sampleRows),
	}
}

func (s *Server) summaryAPI(w http.ResponseWriter, r *http.Request) {
	mode, err := transitgraph.ParseMode(chi.URLParam(r, "mode"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	table, _ := s.data.Get(string(mode))
	sum := summarize(mode, table)
	if sum == nil {
		s.respondError(w, http.StatusNotFound, "no dataset loaded for "+string(mode))
		return
	}
	s.respondJSON(w, http.StatusOK, sum)
}

// aggregate resolves the mode and view of a chart route and builds its data.
func (s *Server) aggregate(r *http.Request) (charts.Aggregate, int, error) {
	mode, err := transitgraph.ParseMode(chi.URLParam(r, "mode"))
	if err != nil {
		return charts.Aggregate{}, http.StatusNotFound, err
	}
	view, err := charts.Lookup(string(mode), chi.URLParam(r, "view"))
	if err != nil {
		return charts.Aggregate{}, http.StatusNotFound, err
	}
	table, _ := s.data.Get(string(mode))
	agg, err := view.Build(table)
	if err != nil {
		return charts.Aggregate{}, http.StatusUnprocessableEntity, err
	}
	return agg, http.StatusOK, nil
}

func (s *Server) chartImage(w http.ResponseWriter, r *http.Request) {
	agg, status, err := s.aggregate(r)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}

	var buf bytes.Buffer
	if err := charts.Render(&buf, agg, 0, 0); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, charts.ErrNoData) {
			status = http.StatusUnprocessableEntity
		}
		s.logger.Warn("Chart render failed", zap.String("chart", agg.Title), zap.Error(err))
		http.Error(w, err.Error(), status)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

func (s *Server) chartData(w http.ResponseWriter, r *http.Request) {
	agg, status, err := s.aggregate(r)
	if err != nil {
		s.respondError(w, status, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, agg)
}

func (s *Server) stations(w http.ResponseWriter, r *http.Request) {
	mode, err := transitgraph.ParseMode(chi.URLParam(r, "mode"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	names, err := s.analyzer.Stations(r.Context(), mode)
	if err != nil {
		s.respondError(w, errorStatus(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"mode": mode, "stations": names})
}

func (s *Server) network(w http.ResponseWriter, r *http.Request) {
	mode, err := transitgraph.ParseMode(chi.URLParam(r, "mode"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	station := chi.URLParam(r, "station")
	if unescaped, err := url.PathUnescape(station); err == nil {
		station = unescaped
	}
	graph, err := s.analyzer.Network(r.Context(), mode, station)
	if err != nil {
		s.respondError(w, errorStatus(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, graph)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, transitgraph.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, transitgraph.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, transitgraph.ErrConnection):
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

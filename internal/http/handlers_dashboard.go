package http

import (
	"net/http"

	"kanisafin/internal/aggregate"
)

type seriesPoint struct {
	Date    string  `json:"date"`
	Label   string  `json:"label"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
}

type pieSlice struct {
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Percent float64 `json:"percent"`
}

type seriesResponse struct {
	Range  aggregate.Range `json:"range"`
	From   string          `json:"from"`
	To     string          `json:"to"`
	Points []seriesPoint   `json:"points"`
	Pie    []pieSlice      `json:"pie"`
}

// handleDashboardSeries returns the chart data for the selected window. The
// headline totals never change with the window and are not part of it.
func (s *Server) handleDashboardSeries(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.LoadDataset(r.Context())
	if err != nil {
		status, _, _ := classify(err)
		logFailure(r, status, err, "dashboard series")
		writeJSON(w, status, map[string]string{"error": MsgGeneric})
		return
	}
	sel := ParseSelection(r.URL.Query())
	win := aggregate.NewWindow(sel.Range, sel.Start, sel.End, s.now())

	resp := seriesResponse{
		Range:  sel.Range,
		From:   win.From.String(),
		To:     win.To.String(),
		Points: []seriesPoint{},
	}
	for _, p := range aggregate.Series(win, d) {
		resp.Points = append(resp.Points, seriesPoint{
			Date:    p.Date.String(),
			Label:   p.Label,
			Income:  p.Income.Shillings(),
			Expense: p.Expense.Shillings(),
		})
	}
	for _, sl := range aggregate.Pie(win, d) {
		resp.Pie = append(resp.Pie, pieSlice{Name: sl.Name, Value: sl.Value.Shillings(), Percent: sl.Percent})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDashboardRecent renders the activity feed filtered by q.
func (s *Server) handleDashboardRecent(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.LoadDataset(r.Context())
	if err != nil {
		s.fail(w, r, err, "dashboard recent")
		return
	}
	q := sanitizeInput(r.URL.Query().Get("q"))
	s.renderFragment(w, r, NewHTMXResponse(), "recent_feed", aggregate.Recent(d, q, aggregate.RecentLimit))
}

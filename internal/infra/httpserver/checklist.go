package httpserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bryanwahyu/formc-review/internal/domain/checklist"
	"github.com/bryanwahyu/formc-review/internal/domain/compliance"
	domain "github.com/bryanwahyu/formc-review/internal/domain/reports"
	"github.com/bryanwahyu/formc-review/internal/middleware"
)

type categoryView struct {
	Key   string           `json:"key"`
	Title string           `json:"title"`
	Items []checklist.Item `json:"items"`
}

type checklistView struct {
	Version         string                 `json:"version"`
	Disclosures     []checklist.Disclosure `json:"disclosures"`
	Categories      []categoryView         `json:"categories"`
	Inconsistencies []string               `json:"inconsistencies"`
}

// GET /api/checklist
func (r *Router) handleChecklist(w http.ResponseWriter, _ *http.Request) error {
	view := checklistView{
		Version:         r.catalog.Version(),
		Disclosures:     r.catalog.Disclosures(r.intermediary),
		Inconsistencies: r.catalog.Inconsistencies(),
	}
	for _, key := range r.catalog.Categories() {
		cat, _ := r.catalog.Category(key)
		view.Categories = append(view.Categories, categoryView{Key: cat.Key, Title: cat.Title(), Items: cat.Items()})
	}
	return middleware.WriteJSON(w, http.StatusOK, view)
}

// GET /api/checklist/items?severity=&min_severity=&rule=
// Filters combine; no filter returns every item.
func (r *Router) handleChecklistItems(w http.ResponseWriter, req *http.Request) error {
	v := req.URL.Query()
	q, err := checklist.ParseQuery(v.Get("severity"), v.Get("min_severity"), v.Get("rule"))
	if err != nil {
		return fmt.Errorf("%w: %v", compliance.ErrInvalidInput, err)
	}
	items := r.catalog.Select(q)

	return middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"count": len(items),
		"items": items,
	})
}

// POST /api/test-analysis
// Fixed sample report for front-end integration; no document is read and no
// reasoning call is made.
func (r *Router) handleTestAnalysis(w http.ResponseWriter, _ *http.Request) error {
	structured := compliance.EmptyStructuredAnalysis()
	structured.Amendments = append(structured.Amendments, compliance.Entry{
		Text:     "Inconsistent max offering amount: summary states $5M max; financial section shows $4.5M",
		Category: "Offering Terms",
		Rule:     "Rule 201(a)",
		Severity: checklist.SeverityCritical.String(),
		Page:     3,
	})
	structured.RawText = "This is a test analysis response..."

	return middleware.WriteJSON(w, http.StatusOK, domain.Report{
		Success:     true,
		IssuerName:  "Test Company Inc.",
		TotalPages:  25,
		RawAnalysis: structured.RawText,
		Structured:  structured,
		ModelUsed:   "mock",
		CreatedAt:   time.Now().UTC(),
	})
}

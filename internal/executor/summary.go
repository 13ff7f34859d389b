package executor

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/RileyXX/imdb-trakt-syncer/internal/models"
)

// Summary accumulates per-facet outcome counts for a run.
type Summary struct {
	results map[models.Facet]*models.FacetResult
	order   []models.Facet
}

// NewSummary creates an empty summary
func NewSummary() *Summary {
	return &Summary{results: make(map[models.Facet]*models.FacetResult)}
}

func (s *Summary) add(facet models.Facet, results ...listResult) {
	entry, ok := s.results[facet]
	if !ok {
		entry = &models.FacetResult{Facet: facet}
		s.results[facet] = entry
		s.order = append(s.order, facet)
	}
	for _, r := range results {
		entry.Attempted += r.attempted
		entry.Succeeded += r.succeeded
		entry.Failed += r.failed
	}
}

// Results returns the facet results in execution order.
func (s *Summary) Results() []models.FacetResult {
	results := make([]models.FacetResult, 0, len(s.order))
	for _, facet := range s.order {
		results = append(results, *s.results[facet])
	}
	return results
}

// Failed reports the total number of failed operations.
func (s *Summary) Failed() int {
	total := 0
	for _, entry := range s.results {
		total += entry.Failed
	}
	return total
}

// Render writes the end-of-run facet table.
func (s *Summary) Render(out io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Facet", "Attempted", "Succeeded", "Failed"})
	for _, result := range s.Results() {
		t.AppendRow(table.Row{string(result.Facet), result.Attempted, result.Succeeded, result.Failed})
	}
	t.Render()
}

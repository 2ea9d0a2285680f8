package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"

	"omnia/internal/datatable"
	"omnia/internal/domain/models"
	"omnia/internal/logging"
	"omnia/internal/repositories"
	"omnia/internal/utils"
)

// MaxExportRows bounds a single PDF export.
const MaxExportRows = 5000

// ExportService renders intent listings as PDF.
type ExportService struct {
	Intents repositories.IntentRepository
	Log     logging.Logger
	now     func() time.Time
}

func NewExportService(intents repositories.IntentRepository, log logging.Logger) *ExportService {
	return &ExportService{Intents: intents, Log: log, now: utils.NowUTC}
}

// IntentsPDF exports every intent matching q's search and sort, ignoring its
// page window.
func (s *ExportService) IntentsPDF(ctx context.Context, q datatable.Query) ([]byte, string, error) {
	var all []models.Intent
	page := datatable.Query{Sort: q.Sort, Search: q.Search, Page: datatable.PageRequest{Size: datatable.MaxPageSize}}
	for len(all) < MaxExportRows {
		rows, total, err := s.Intents.List(ctx, page)
		if err != nil {
			return nil, "", fmt.Errorf("export intents: %w", err)
		}
		all = append(all, rows...)
		if len(rows) == 0 || len(all) >= total {
			break
		}
		page = page.WithPage(page.Page.Index + 1)
	}
	if len(all) > MaxExportRows {
		all = all[:MaxExportRows]
	}

	now := s.now()
	s.Log.Info(ctx, "intents exported", "rows", len(all), "search", q.Search)
	return buildIntentsPDF(all, q, now)
}

func buildIntentsPDF(rows []models.Intent, q datatable.Query, now time.Time) ([]byte, string, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Intents", false)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Intents")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 9)
	filter := "all intents"
	if q.Search != "" {
		filter = fmt.Sprintf("name contains %q", q.Search)
	}
	if q.Sort.Active() {
		filter += fmt.Sprintf(", sorted by %s %s", q.Sort.Column, q.Sort.Direction)
	}
	pdf.Cell(0, 6, tr(fmt.Sprintf("Generated %s UTC, %s, %d rows", utils.FormatDateTime(now), filter, len(rows))))
	pdf.Ln(9)

	widths := []float64{70, 110, 25, 25, 40}
	headers := []string{"Name", "Description", "Questions", "Responses", "Updated"}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, in := range rows {
		cells := []string{
			utils.Truncate(in.Name, 40),
			utils.Truncate(strings.ReplaceAll(in.Description, "\n", " "), 70),
			fmt.Sprint(len(in.Questions)),
			fmt.Sprint(len(in.Responses)),
			utils.FormatDateTime(in.UpdatedAt),
		}
		for i, c := range cells {
			align := "L"
			if i == 2 || i == 3 {
				align = "R"
			}
			pdf.CellFormat(widths[i], 6, tr(c), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(rows) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.Cell(0, 7, "No intents match.")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), fmt.Sprintf("intents_%s.pdf", now.Format("20060102_150405")), nil
}

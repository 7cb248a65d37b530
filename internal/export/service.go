// Package export produces XLSX workbooks from stored extraction runs.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/caselode/filings-extractor/internal/common"
	"github.com/caselode/filings-extractor/internal/entity"
	"github.com/caselode/filings-extractor/internal/repository"
)

// Service is a tiny façade over the run repository that renders a stored
// consolidated result as XLSX bytes.
type Service struct {
	runs   repository.RunRepository
	logger *slog.Logger
}

func NewService(runs repository.RunRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{runs: runs, logger: logger}
}

// ExportRunXLSX returns a workbook with one row per extracted record plus a
// summary sheet. Runs that never produced a result (fatal failures) cannot
// be exported.
func (s *Service) ExportRunXLSX(ctx context.Context, runID uuid.UUID) ([]byte, error) {
	start := time.Now()

	res, status, err := s.runs.GetResult(ctx, runID)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, common.NewAppError("EXPORT_UNAVAILABLE",
			fmt.Sprintf("run %s ended %s and has no result to export", runID, status), common.ErrInvalidInput)
	}

	f := excelize.NewFile()
	if err := writeRecordsSheet(f, res); err != nil {
		return nil, err
	}
	if err := writeSummarySheet(f, res); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"run_id", runID.String(),
		"rows", len(res.Records),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeRecordsSheet(f *excelize.File, res *entity.ConsolidatedResult) error {
	const sheet = "Records"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)

	// Attribute columns are the union of every record's attribute keys, in a
	// stable order.
	keySet := map[string]struct{}{}
	for _, r := range res.Records {
		for k := range r.Attributes {
			keySet[k] = struct{}{}
		}
	}
	attrKeys := make([]string, 0, len(keySet))
	for k := range keySet {
		attrKeys = append(attrKeys, k)
	}
	sort.Strings(attrKeys)

	headers := append([]string{"Category", "Subject Name", "Linked Subject"}, attrKeys...)
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for rowIdx, r := range res.Records {
		row := rowIdx + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, string(r.Category))
		write(2, r.SubjectName)
		write(3, r.LinkedSubject)
		for i, k := range attrKeys {
			if v, ok := r.Attributes[k]; ok {
				write(4+i, fmt.Sprintf("%v", v))
			}
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 24)
	_ = f.SetColWidth(sheet, "B", "C", 36)
	return nil
}

func writeSummarySheet(f *excelize.File, res *entity.ConsolidatedResult) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	rows := [][2]any{
		{"Run ID", res.RunID.String()},
		{"Document Kind", string(res.DocumentKind)},
		{"Processing Mode", string(res.ProcessingMode)},
		{"Quality Score", res.QualityScore},
		{"Requires Review", res.RequiresReview},
		{"Total Records", res.Summary.TotalRecords},
		{"Sections Found", res.Summary.SectionsFound},
		{"Batches Total", res.Summary.BatchesTotal},
		{"Batches Failed", res.Summary.BatchesFailed},
		{"Cross-refs Matched", res.Summary.CrossRefsMatched},
	}
	types := make([]string, 0, len(res.Summary.RecordsByType))
	for t := range res.Summary.RecordsByType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		rows = append(rows, [2]any{"Records: " + t, res.Summary.RecordsByType[t]})
	}

	for i, kv := range rows {
		keyCell, _ := excelize.CoordinatesToCellName(1, i+1)
		valCell, _ := excelize.CoordinatesToCellName(2, i+1)
		_ = f.SetCellValue(sheet, keyCell, kv[0])
		_ = f.SetCellValue(sheet, valCell, kv[1])
	}
	_ = f.SetColWidth(sheet, "A", "A", 24)
	_ = f.SetColWidth(sheet, "B", "B", 44)
	return nil
}

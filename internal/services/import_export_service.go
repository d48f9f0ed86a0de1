package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/evalforge/assessment-platform/internal/models"
	"github.com/evalforge/assessment-platform/internal/repositories"
)

const questionSheet = "Questions"

var importHeader = []string{
	"type", "text", "domain", "sub_domain", "difficulty",
	"points", "options", "correct_answer", "explanation", "tags", "visibility",
}

type importExportService struct {
	questions QuestionService
	repo      repositories.Repository
	logger    *slog.Logger
}

func NewImportExportService(questions QuestionService, repo repositories.Repository, logger *slog.Logger) ImportExportService {
	return &importExportService{
		questions: questions,
		repo:      repo,
		logger:    logger,
	}
}

// ImportQuestions walks the workbook row by row. Each row goes through
// the regular question creation path, so validation, tenant assignment
// and auditing behave exactly as for API-created questions. A bad row is
// recorded and skipped; the rest of the file still imports.
func (s *importExportService) ImportQuestions(ctx context.Context, principal models.Principal, filePath string) (*ImportResult, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, NewValidationError("file", "could not be opened as an XLSX workbook", nil)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			s.logger.Warn("failed to close workbook", "error", closeErr)
		}
	}()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, NewValidationError("file", "workbook has no data rows", nil)
	}

	result := &ImportResult{}
	for i, row := range rows[1:] {
		rowNum := i + 2 // 1-based, after the header

		req, err := parseQuestionRow(row)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, RowError{Row: rowNum, Message: err.Error()})
			continue
		}

		if _, err := s.questions.Create(ctx, principal, req); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, RowError{Row: rowNum, Message: err.Error()})
			continue
		}
		result.Imported++
	}

	s.logger.Info("question import finished",
		"file", filePath,
		"imported", result.Imported,
		"skipped", result.Skipped)
	return result, nil
}

// ExportQuestions writes every question the principal can see to an
// XLSX workbook. Pagination is bypassed; the export covers the full
// filtered set.
func (s *importExportService) ExportQuestions(ctx context.Context, principal models.Principal, filters repositories.QuestionFilters, destPath string) error {
	filters.List.Page = 1
	filters.List.Limit = 100

	f := excelize.NewFile()
	f.SetSheetName(f.GetSheetName(0), questionSheet)
	for col, name := range importHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(questionSheet, cell, name); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	rowNum := 2
	for {
		questions, total, err := s.repo.Question().List(ctx, principal, filters)
		if err != nil {
			return fmt.Errorf("failed to list questions for export: %w", err)
		}
		for _, q := range questions {
			if err := writeQuestionRow(f, rowNum, q); err != nil {
				return err
			}
			rowNum++
		}
		if int64(filters.List.Page*filters.List.Limit) >= total || len(questions) == 0 {
			break
		}
		filters.List.Page++
	}

	if err := f.SaveAs(destPath); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	s.logger.Info("question export finished", "file", destPath, "rows", rowNum-2)
	return nil
}

func parseQuestionRow(row []string) (*CreateQuestionRequest, error) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	qType := models.QuestionType(cell(0))
	if !qType.Valid() {
		return nil, fmt.Errorf("unknown question type %q", cell(0))
	}
	text := cell(1)
	if text == "" {
		return nil, fmt.Errorf("text column is empty")
	}

	req := &CreateQuestionRequest{
		Type:      qType,
		Text:      text,
		Domain:    cell(2),
		SubDomain: cell(3),
	}

	if d := cell(4); d != "" {
		difficulty := models.DifficultyLevel(d)
		if !difficulty.Valid() {
			return nil, fmt.Errorf("unknown difficulty %q", d)
		}
		req.Difficulty = difficulty
	}
	if p := cell(5); p != "" {
		points, err := strconv.Atoi(p)
		if err != nil || points < 0 {
			return nil, fmt.Errorf("invalid points value %q", p)
		}
		req.Points = &points
	}
	if opts := cell(6); opts != "" {
		req.Options = splitList(opts)
	}
	if correct := cell(7); correct != "" {
		if parts := splitList(correct); len(parts) > 1 {
			req.CorrectAnswer = parts
		} else {
			req.CorrectAnswer = correct
		}
	}
	if expl := cell(8); expl != "" {
		req.Explanation = &expl
	}
	if tags := cell(9); tags != "" {
		req.Tags = splitList(tags)
	}
	if vis := cell(10); vis != "" {
		visibility := models.Visibility(vis)
		if visibility != models.VisibilityPublic && visibility != models.VisibilityPrivate {
			return nil, fmt.Errorf("unknown visibility %q", vis)
		}
		req.Visibility = visibility
	}

	return req, nil
}

func writeQuestionRow(f *excelize.File, rowNum int, q *models.Question) error {
	var correct string
	if len(q.CorrectAnswer) > 0 {
		var single string
		if err := jsonUnmarshal(q.CorrectAnswer, &single); err == nil {
			correct = single
		} else {
			var multi []string
			if err := jsonUnmarshal(q.CorrectAnswer, &multi); err == nil {
				correct = strings.Join(multi, "|")
			}
		}
	}

	explanation := ""
	if q.Explanation != nil {
		explanation = *q.Explanation
	}

	values := []interface{}{
		string(q.Type), q.Text, q.Domain, q.SubDomain, string(q.Difficulty),
		q.Points, strings.Join(stringsFromJSON(q.Options), "|"), correct,
		explanation, strings.Join(stringsFromJSON(q.Tags), "|"), string(q.Visibility),
	}
	for col, v := range values {
		cell, _ := excelize.CoordinatesToCellName(col+1, rowNum)
		if err := f.SetCellValue(questionSheet, cell, v); err != nil {
			return fmt.Errorf("failed to write row %d: %w", rowNum, err)
		}
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

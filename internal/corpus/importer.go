package corpus

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/patente-app/backend/internal/models"
	"github.com/xuri/excelize/v2"
)

// ImportConfig describes a spreadsheet of questions or translations.
// Question columns: text, answer, parent_number, question_number, image, text_fa.
// Translation columns: text_it, text_en, text_fa.
type ImportConfig struct {
	FilePath  string // .xlsx or .csv
	SheetName string // xlsx only; empty means the first sheet
	StartRow  int    // 1-based; rows before it are headers
}

func DefaultImportConfig(path string) ImportConfig {
	return ImportConfig{FilePath: path, StartRow: 2}
}

type ImportResult struct {
	TotalProcessed int      `json:"total_processed"`
	Created        int      `json:"created"`
	Updated        int      `json:"updated"`
	Skipped        int      `json:"skipped"`
	Errors         []string `json:"errors"`
}

var errSkipRow = errors.New("skipping row")

// ImportQuestions upserts questions by (parent_number, question_number).
// Row-level problems are collected in the result; only unreadable files fail.
func (s *Service) ImportQuestions(ctx context.Context, cfg ImportConfig) (*ImportResult, error) {
	return s.importRows(ctx, cfg, func(row []string) (bool, error) {
		q, err := questionFromRow(row)
		if err != nil {
			return false, err
		}
		return s.store.UpsertQuestion(ctx, q)
	})
}

// ImportTranslations upserts translations by their Italian text.
func (s *Service) ImportTranslations(ctx context.Context, cfg ImportConfig) (*ImportResult, error) {
	return s.importRows(ctx, cfg, func(row []string) (bool, error) {
		t, err := translationFromRow(row)
		if err != nil {
			return false, err
		}
		return s.store.UpsertTranslation(ctx, t)
	})
}

func (s *Service) importRows(ctx context.Context, cfg ImportConfig, apply func([]string) (bool, error)) (*ImportResult, error) {
	rows, err := readRows(cfg)
	if err != nil {
		return nil, err
	}

	start := cfg.StartRow
	if start < 1 {
		start = 1
	}

	result := &ImportResult{Errors: make([]string, 0)}
	for i, row := range rows {
		if i < start-1 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if isBlank(row) {
			continue
		}
		result.TotalProcessed++

		created, err := apply(row)
		switch {
		case errors.Is(err, errSkipRow):
			result.Skipped++
		case err != nil:
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
		case created:
			result.Created++
		default:
			result.Updated++
		}
	}

	log.Printf("[import] %s: processed=%d created=%d updated=%d skipped=%d errors=%d",
		filepath.Base(cfg.FilePath), result.TotalProcessed, result.Created, result.Updated, result.Skipped, len(result.Errors))
	return result, nil
}

func readRows(cfg ImportConfig) ([][]string, error) {
	if strings.ToLower(filepath.Ext(cfg.FilePath)) == ".csv" {
		file, err := os.Open(cfg.FilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open CSV file: %w", err)
		}
		defer file.Close()
		return readCSV(file)
	}

	f, err := excelize.OpenFile(cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := cfg.SheetName
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error reading CSV: %w", err)
	}
	return rows, nil
}

func questionFromRow(row []string) (models.Question, error) {
	text := cell(row, 0)
	if text == "" {
		return models.Question{}, errSkipRow
	}
	answer, ok := models.ParseAnswer(cell(row, 1))
	if !ok {
		return models.Question{}, fmt.Errorf("invalid answer %q", cell(row, 1))
	}
	parent, err := strconv.Atoi(cell(row, 2))
	if err != nil || parent <= 0 {
		return models.Question{}, fmt.Errorf("invalid parent_number %q", cell(row, 2))
	}
	number, err := strconv.Atoi(cell(row, 3))
	if err != nil || number <= 0 {
		return models.Question{}, fmt.Errorf("invalid question_number %q", cell(row, 3))
	}
	return models.Question{
		Text:           text,
		Answer:         answer,
		ParentNumber:   parent,
		QuestionNumber: number,
		Image:          optionalCell(row, 4),
		TextFa:         optionalCell(row, 5),
	}, nil
}

func translationFromRow(row []string) (models.Translation, error) {
	t := models.Translation{TextIT: cell(row, 0), TextEN: cell(row, 1), TextFA: cell(row, 2)}
	if t.TextIT == "" {
		return t, errSkipRow
	}
	if t.TextEN == "" || t.TextFA == "" {
		return t, fmt.Errorf("missing translation for %q", t.TextIT)
	}
	return t, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(strings.Trim(row[i], "\ufeff"))
}

func optionalCell(row []string, i int) *string {
	v := cell(row, i)
	if v == "" {
		return nil
	}
	return &v
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

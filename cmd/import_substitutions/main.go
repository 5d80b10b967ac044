package main

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"gorm.io/gorm"

	"greenplate/internal/config"
	"greenplate/internal/db"
	"greenplate/models"
)

// edgeRecord is one substitution edge pulled from an import file. Ingredients
// named here are created on the fly when the catalog does not know them yet.
type edgeRecord struct {
	Replaces    string
	Replacement string
	Reason      string
	Source      string
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: import_substitutions <substitutions.csv|substitutions.pdf>")
		os.Exit(1)
	}

	if err := run(os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
}

func run(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("import path must not be empty")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("locate import file: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	database, err := db.Initialize(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(database); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	records, err := loadRecords(path)
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}

	imported, skipped, err := importRecords(database, records)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Imported %d substitution edges from %s (%d skipped)\n", imported, filepath.Base(path), skipped)
	return nil
}

func loadRecords(path string) ([]edgeRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readCSV(path)
	case ".pdf":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		text, err := extractTextFromPDF(data)
		if err != nil {
			return nil, err
		}
		return parseEdgeLines(text), nil
	default:
		return nil, fmt.Errorf("unsupported import format %q", filepath.Ext(path))
	}
}

func readCSV(path string) ([]edgeRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("csv is empty")
	}

	column := map[string]int{}
	for idx, key := range rows[0] {
		column[strings.ToLower(strings.TrimSpace(key))] = idx
	}
	for _, required := range []string{"replaces", "replacement"} {
		if _, ok := column[required]; !ok {
			return nil, fmt.Errorf("csv is missing the %q column", required)
		}
	}

	cell := func(row []string, key string) string {
		idx, ok := column[key]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	records := make([]edgeRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		record := edgeRecord{
			Replaces:    cell(row, "replaces"),
			Replacement: cell(row, "replacement"),
			Reason:      cell(row, "reason"),
			Source:      cell(row, "source"),
		}
		if record.Replaces == "" || record.Replacement == "" {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func extractTextFromPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var builder strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", err
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

// parseEdgeLines extracts substitution edges from free text. Each edge is one
// line of the form "Replaces -> Replacement | reason | source"; the reason and
// source segments are optional. Lines without an arrow are ignored.
func parseEdgeLines(text string) []edgeRecord {
	records := []edgeRecord{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, "->") {
			continue
		}

		segments := strings.Split(line, "|")
		pair := strings.SplitN(segments[0], "->", 2)
		if len(pair) != 2 {
			continue
		}

		record := edgeRecord{
			Replaces:    strings.TrimSpace(pair[0]),
			Replacement: strings.TrimSpace(pair[1]),
		}
		if len(segments) > 1 {
			record.Reason = strings.TrimSpace(segments[1])
		}
		if len(segments) > 2 {
			record.Source = strings.TrimSpace(segments[2])
		}
		if record.Replaces == "" || record.Replacement == "" {
			continue
		}
		records = append(records, record)
	}
	return records
}

// importRecords upserts the edges into the catalog. Running the same file
// twice leaves the database unchanged apart from refreshed reasons. An edge
// replacing an ingredient with itself is skipped rather than failing the run.
func importRecords(database *gorm.DB, records []edgeRecord) (imported, skipped int, err error) {
	for idx, record := range records {
		if strings.EqualFold(record.Replaces, record.Replacement) {
			fmt.Fprintf(os.Stderr, "skipping record %d: %q cannot replace itself\n", idx+1, record.Replaces)
			skipped++
			continue
		}

		if err := database.Transaction(func(tx *gorm.DB) error {
			replaces, err := upsertIngredient(tx, record.Replaces)
			if err != nil {
				return fmt.Errorf("upsert ingredient %q: %w", record.Replaces, err)
			}
			replacement, err := upsertIngredient(tx, record.Replacement)
			if err != nil {
				return fmt.Errorf("upsert ingredient %q: %w", record.Replacement, err)
			}

			var edge models.IngredientReplacement
			err = tx.Where("replaces_ingredient_id = ? AND replacement_ingredient_id = ?", replaces.ID, replacement.ID).First(&edge).Error
			switch {
			case err == nil:
				updates := map[string]any{
					"reason":        record.Reason,
					"reason_source": record.Source,
				}
				if err := tx.Model(&edge).Updates(updates).Error; err != nil {
					return fmt.Errorf("refresh edge: %w", err)
				}
			case errors.Is(err, gorm.ErrRecordNotFound):
				edge = models.IngredientReplacement{
					ReplacesIngredientID:    replaces.ID,
					ReplacementIngredientID: replacement.ID,
					Reason:                  record.Reason,
					ReasonSource:            record.Source,
				}
				if err := tx.Create(&edge).Error; err != nil {
					return fmt.Errorf("create edge: %w", err)
				}
			default:
				return fmt.Errorf("find edge: %w", err)
			}
			return nil
		}); err != nil {
			return imported, skipped, fmt.Errorf("record %d (%s -> %s): %w", idx+1, record.Replaces, record.Replacement, err)
		}
		imported++
	}
	return imported, skipped, nil
}

func upsertIngredient(tx *gorm.DB, name string) (*models.Ingredient, error) {
	name = strings.TrimSpace(name)

	var ingredient models.Ingredient
	err := tx.Where("lower(name) = ?", strings.ToLower(name)).First(&ingredient).Error
	if err == nil {
		return &ingredient, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	ingredient = models.Ingredient{Name: name}
	if err := tx.Create(&ingredient).Error; err != nil {
		return nil, err
	}
	return &ingredient, nil
}

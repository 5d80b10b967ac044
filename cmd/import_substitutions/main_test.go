package main

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"greenplate/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	if err := db.AutoMigrate(&models.Ingredient{}, &models.IngredientReplacement{}); err != nil {
		t.Fatalf("migrate schema: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestReadCSV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "subs.csv")
	content := "Replaces,Replacement,Reason,Source\n" +
		"Milk,Oat Milk,lower water footprint,Water Footprint Network\n" +
		"Beef , Lentils , far lower emissions , Our World in Data\n" +
		",Missing Replaces,reason,source\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	records, err := readCSV(path)
	if err != nil {
		t.Fatalf("readCSV: %v", err)
	}

	want := []edgeRecord{
		{Replaces: "Milk", Replacement: "Oat Milk", Reason: "lower water footprint", Source: "Water Footprint Network"},
		{Replaces: "Beef", Replacement: "Lentils", Reason: "far lower emissions", Source: "Our World in Data"},
	}
	if !reflect.DeepEqual(records, want) {
		t.Fatalf("records = %+v, want %+v", records, want)
	}
}

func TestReadCSVMissingColumns(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.csv")
	if err := os.WriteFile(path, []byte("Name,Reason\nMilk,whatever\n"), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	if _, err := readCSV(path); err == nil {
		t.Fatal("expected error for csv without replacement columns")
	}
}

func TestParseEdgeLines(t *testing.T) {
	t.Parallel()

	text := `Ethical substitutions, spring edition

Milk -> Oat Milk | lower water footprint | Water Footprint Network
Beef -> Lentils | far lower emissions
Butter -> Olive Oil
this line has no arrow and is ignored
 -> Broken
`

	want := []edgeRecord{
		{Replaces: "Milk", Replacement: "Oat Milk", Reason: "lower water footprint", Source: "Water Footprint Network"},
		{Replaces: "Beef", Replacement: "Lentils", Reason: "far lower emissions"},
		{Replaces: "Butter", Replacement: "Olive Oil"},
	}
	if got := parseEdgeLines(text); !reflect.DeepEqual(got, want) {
		t.Fatalf("parseEdgeLines = %+v, want %+v", got, want)
	}
}

func TestImportRecordsCreatesCatalog(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)

	records := []edgeRecord{
		{Replaces: "Milk", Replacement: "Oat Milk", Reason: "lower water footprint", Source: "Water Footprint Network"},
		{Replaces: "Milk", Replacement: "Coconut Milk", Reason: "no dairy herd required"},
	}

	imported, skipped, err := importRecords(db, records)
	if err != nil {
		t.Fatalf("importRecords: %v", err)
	}
	if imported != 2 || skipped != 0 {
		t.Fatalf("imported=%d skipped=%d, want 2/0", imported, skipped)
	}

	var ingredientCount int64
	if err := db.Model(&models.Ingredient{}).Count(&ingredientCount).Error; err != nil {
		t.Fatalf("count ingredients: %v", err)
	}
	if ingredientCount != 3 {
		t.Fatalf("expected 3 ingredients, got %d", ingredientCount)
	}

	var edges []models.IngredientReplacement
	if err := db.Preload("Replacement").Find(&edges).Error; err != nil {
		t.Fatalf("load edges: %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(edges))
	}
}

func TestImportRecordsIsIdempotent(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)

	records := []edgeRecord{
		{Replaces: "Milk", Replacement: "Oat Milk", Reason: "original reason"},
	}
	if _, _, err := importRecords(db, records); err != nil {
		t.Fatalf("first import: %v", err)
	}

	records[0].Reason = "refreshed reason"
	if _, _, err := importRecords(db, records); err != nil {
		t.Fatalf("second import: %v", err)
	}

	var ingredientCount, edgeCount int64
	if err := db.Model(&models.Ingredient{}).Count(&ingredientCount).Error; err != nil {
		t.Fatalf("count ingredients: %v", err)
	}
	if err := db.Model(&models.IngredientReplacement{}).Count(&edgeCount).Error; err != nil {
		t.Fatalf("count edges: %v", err)
	}
	if ingredientCount != 2 || edgeCount != 1 {
		t.Fatalf("expected 2 ingredients and 1 edge, got %d/%d", ingredientCount, edgeCount)
	}

	var edge models.IngredientReplacement
	if err := db.First(&edge).Error; err != nil {
		t.Fatalf("load edge: %v", err)
	}
	if edge.Reason != "refreshed reason" {
		t.Fatalf("edge reason = %q, want refreshed", edge.Reason)
	}
}

func TestImportRecordsSkipsSelfReplacement(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)

	records := []edgeRecord{
		{Replaces: "Milk", Replacement: "milk"},
		{Replaces: "Milk", Replacement: "Oat Milk"},
	}

	imported, skipped, err := importRecords(db, records)
	if err != nil {
		t.Fatalf("importRecords: %v", err)
	}
	if imported != 1 || skipped != 1 {
		t.Fatalf("imported=%d skipped=%d, want 1/1", imported, skipped)
	}
}

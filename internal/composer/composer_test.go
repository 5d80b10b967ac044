package composer

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"greenplate/internal/store"
	"greenplate/models"
)

func newTestComposer(t *testing.T) (*Composer, *store.Store) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Ingredient{},
		&models.IngredientReplacement{},
		&models.Recipe{},
		&models.RecipeIngredient{},
		&models.RecipeBook{},
		&models.RecipeBookRecipe{},
	); err != nil {
		t.Fatalf("migrate schema: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	st := store.New(db)
	return New(st), st
}

func newOwner(t *testing.T, st *store.Store, username string) *models.User {
	t.Helper()
	ctx := context.Background()
	user := &models.User{Username: username, PasswordHash: "x"}
	if err := st.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	book := &models.RecipeBook{OwnerID: user.ID}
	if err := st.CreateRecipeBook(ctx, book); err != nil {
		t.Fatalf("create book: %v", err)
	}
	if err := st.SetUserRecipeBook(ctx, user.ID, book.ID); err != nil {
		t.Fatalf("link book: %v", err)
	}
	user.RecipeBookID = &book.ID
	return user
}

func ingredientIDs(t *testing.T, st *store.Store, recipeID uint) []uint {
	t.Helper()
	joins, err := st.RecipeIngredients(context.Background(), recipeID)
	if err != nil {
		t.Fatalf("recipe ingredients: %v", err)
	}
	ids := make([]uint, 0, len(joins))
	for _, join := range joins {
		ids = append(ids, join.IngredientID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func seedIngredients(t *testing.T, st *store.Store, names ...string) []uint {
	t.Helper()
	ids := make([]uint, 0, len(names))
	for _, name := range names {
		ingredient := &models.Ingredient{Name: name}
		if err := st.CreateIngredient(context.Background(), ingredient); err != nil {
			t.Fatalf("create ingredient %q: %v", name, err)
		}
		ids = append(ids, ingredient.ID)
	}
	return ids
}

func TestParseIngredientIDs(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  []string
		want []uint
	}{
		{"valid ids pass through", []string{"1", "2", "3"}, []uint{1, 2, 3}},
		{"malformed entries dropped silently", []string{"1", "banana", "2", "", "-4"}, []uint{1, 2}},
		{"whitespace tolerated", []string{" 7 ", "8"}, []uint{7, 8}},
		{"zero dropped", []string{"0", "5"}, []uint{5}},
		{"duplicates collapse", []string{"3", "3", "3"}, []uint{3}},
		{"nothing valid yields empty", []string{"x", "y"}, []uint{}},
	}

	for _, tt := range cases {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ParseIngredientIDs(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ParseIngredientIDs(%v) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestCreateWithIngredients(t *testing.T) {
	t.Parallel()
	c, st := newTestComposer(t)
	ctx := context.Background()

	owner := newOwner(t, st, "ada")
	ids := seedIngredients(t, st, "Flour", "Milk", "Egg")

	recipe, err := c.CreateWithIngredients(ctx, "Pancakes", false, ids, owner)
	if err != nil {
		t.Fatalf("CreateWithIngredients: %v", err)
	}
	if recipe.ID == 0 {
		t.Fatal("expected assigned recipe ID")
	}
	if got := ingredientIDs(t, st, recipe.ID); !reflect.DeepEqual(got, ids) {
		t.Fatalf("ingredients = %v, want %v", got, ids)
	}

	inBook, err := st.RecipesInBook(ctx, *owner.RecipeBookID)
	if err != nil {
		t.Fatalf("recipes in book: %v", err)
	}
	if len(inBook) != 1 || inBook[0].ID != recipe.ID {
		t.Fatalf("expected recipe in owner's book, got %+v", inBook)
	}
}

func TestCreateWithIngredientsDuplicateName(t *testing.T) {
	t.Parallel()
	c, st := newTestComposer(t)
	ctx := context.Background()

	owner := newOwner(t, st, "ada")

	if _, err := c.CreateWithIngredients(ctx, "Pancakes", false, nil, owner); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := c.CreateWithIngredients(ctx, "Pancakes", true, nil, owner)
	if !errors.Is(err, ErrDuplicateRecipeName) {
		t.Fatalf("expected ErrDuplicateRecipeName, got %v", err)
	}

	// The failed attempt must not leave a stray book membership behind.
	inBook, err := st.RecipesInBook(ctx, *owner.RecipeBookID)
	if err != nil {
		t.Fatalf("recipes in book: %v", err)
	}
	if len(inBook) != 1 {
		t.Fatalf("expected single membership after failed duplicate, got %d", len(inBook))
	}
}

func TestReplaceIngredientListWholesale(t *testing.T) {
	t.Parallel()
	c, st := newTestComposer(t)
	ctx := context.Background()

	owner := newOwner(t, st, "ada")
	ids := seedIngredients(t, st, "Flour", "Milk", "Egg", "Oat Milk")

	recipe, err := c.CreateWithIngredients(ctx, "Pancakes", false, ids[:3], owner)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	next := []uint{ids[0], ids[3]}
	if err := c.ReplaceIngredientList(ctx, recipe.ID, next); err != nil {
		t.Fatalf("ReplaceIngredientList: %v", err)
	}
	if got := ingredientIDs(t, st, recipe.ID); !reflect.DeepEqual(got, next) {
		t.Fatalf("ingredients = %v, want %v", got, next)
	}

	// Empty replacement clears the recipe.
	if err := c.ReplaceIngredientList(ctx, recipe.ID, nil); err != nil {
		t.Fatalf("clear ingredients: %v", err)
	}
	if got := ingredientIDs(t, st, recipe.ID); len(got) != 0 {
		t.Fatalf("expected empty ingredient set, got %v", got)
	}
}

func TestReplaceIngredient(t *testing.T) {
	t.Parallel()
	c, st := newTestComposer(t)
	ctx := context.Background()

	owner := newOwner(t, st, "ada")
	ids := seedIngredients(t, st, "Flour", "Milk", "Egg", "Oat Milk")

	recipe, err := c.CreateWithIngredients(ctx, "Pancakes", false, ids[:3], owner)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := c.ReplaceIngredient(ctx, recipe.ID, ids[1], ids[3]); err != nil {
		t.Fatalf("ReplaceIngredient: %v", err)
	}
	want := []uint{ids[0], ids[2], ids[3]}
	if got := ingredientIDs(t, st, recipe.ID); !reflect.DeepEqual(got, want) {
		t.Fatalf("ingredients = %v, want %v", got, want)
	}

	// Replacing something the recipe does not contain is a successful no-op.
	if err := c.ReplaceIngredient(ctx, recipe.ID, ids[1], ids[3]); err != nil {
		t.Fatalf("no-op replace returned error: %v", err)
	}
	if got := ingredientIDs(t, st, recipe.ID); !reflect.DeepEqual(got, want) {
		t.Fatalf("ingredients changed on no-op: %v", got)
	}
}

func TestCloneIsolation(t *testing.T) {
	t.Parallel()
	c, st := newTestComposer(t)
	ctx := context.Background()

	owner := newOwner(t, st, "ada")
	ids := seedIngredients(t, st, "Flour", "Milk", "Egg", "Oat Milk")

	source := &models.Recipe{Name: "Pancakes", IsPublic: true}
	if err := st.CreateRecipe(ctx, source); err != nil {
		t.Fatalf("create source: %v", err)
	}
	for _, id := range ids[:3] {
		if err := st.AddRecipeIngredient(ctx, source.ID, id); err != nil {
			t.Fatalf("add source ingredient: %v", err)
		}
	}

	cloneID, err := c.Clone(ctx, source.ID, owner)
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if cloneID == source.ID {
		t.Fatal("clone must be a new recipe")
	}

	clone, err := st.RecipeByID(ctx, cloneID)
	if err != nil {
		t.Fatalf("load clone: %v", err)
	}
	if clone.IsPublic {
		t.Fatal("clone must start private")
	}
	if clone.OwnerID == nil || *clone.OwnerID != owner.ID {
		t.Fatalf("clone owner = %v, want %d", clone.OwnerID, owner.ID)
	}
	if clone.Name != "Pancakes" {
		t.Fatalf("clone name = %q, want source name verbatim", clone.Name)
	}
	if got := ingredientIDs(t, st, cloneID); !reflect.DeepEqual(got, ids[:3]) {
		t.Fatalf("clone ingredients = %v, want %v", got, ids[:3])
	}

	// Mutating the clone must never leak into the source, and vice versa.
	if err := c.ReplaceIngredient(ctx, cloneID, ids[1], ids[3]); err != nil {
		t.Fatalf("mutate clone: %v", err)
	}
	if got := ingredientIDs(t, st, source.ID); !reflect.DeepEqual(got, ids[:3]) {
		t.Fatalf("source ingredients changed after clone edit: %v", got)
	}
	if err := c.ReplaceIngredientList(ctx, source.ID, nil); err != nil {
		t.Fatalf("clear source: %v", err)
	}
	want := []uint{ids[0], ids[2], ids[3]}
	if got := ingredientIDs(t, st, cloneID); !reflect.DeepEqual(got, want) {
		t.Fatalf("clone ingredients changed after source edit: %v", got)
	}
}

func TestCloneDuplicateName(t *testing.T) {
	t.Parallel()
	c, st := newTestComposer(t)
	ctx := context.Background()

	owner := newOwner(t, st, "ada")

	source := &models.Recipe{Name: "Pancakes", IsPublic: true}
	if err := st.CreateRecipe(ctx, source); err != nil {
		t.Fatalf("create source: %v", err)
	}
	if _, err := c.CreateWithIngredients(ctx, "Pancakes", false, nil, owner); err != nil {
		t.Fatalf("create existing: %v", err)
	}

	_, err := c.Clone(ctx, source.ID, owner)
	if !errors.Is(err, ErrDuplicateRecipeName) {
		t.Fatalf("expected ErrDuplicateRecipeName, got %v", err)
	}
}

func TestDeleteByOwner(t *testing.T) {
	t.Parallel()
	c, st := newTestComposer(t)
	ctx := context.Background()

	owner := newOwner(t, st, "ada")
	intruder := newOwner(t, st, "mallory")
	ids := seedIngredients(t, st, "Flour")

	recipe, err := c.CreateWithIngredients(ctx, "Pancakes", false, ids, owner)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Non-owner delete is a silent no-op.
	if err := c.DeleteByOwner(ctx, recipe.ID, intruder.ID); err != nil {
		t.Fatalf("non-owner delete errored: %v", err)
	}
	if _, err := st.RecipeByID(ctx, recipe.ID); err != nil {
		t.Fatalf("recipe should survive non-owner delete: %v", err)
	}

	// Owner delete cascades join rows and memberships.
	if err := c.DeleteByOwner(ctx, recipe.ID, owner.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := st.RecipeByID(ctx, recipe.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected recipe gone, got %v", err)
	}
	joins, err := st.RecipeIngredients(ctx, recipe.ID)
	if err != nil {
		t.Fatalf("recipe ingredients: %v", err)
	}
	if len(joins) != 0 {
		t.Fatalf("expected cascaded join rows, %d remain", len(joins))
	}
	inBook, err := st.RecipesInBook(ctx, *owner.RecipeBookID)
	if err != nil {
		t.Fatalf("recipes in book: %v", err)
	}
	if len(inBook) != 0 {
		t.Fatalf("expected cascaded membership, %d remain", len(inBook))
	}

	// Deleting a recipe that never existed is also a no-op.
	if err := c.DeleteByOwner(ctx, 999999, owner.ID); err != nil {
		t.Fatalf("missing recipe delete errored: %v", err)
	}
}

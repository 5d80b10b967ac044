package mock

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	applog "greenplate/internal/log"
	"greenplate/models"
)

// New returns an in-memory sqlite database seeded with a small catalog of
// ingredients, substitution suggestions, and a public starter recipe. The
// server uses it when no DATABASE_URL is configured; tests use it for
// end-to-end flows.
func New(ctx context.Context) (*gorm.DB, error) {
	applog.Debug(ctx, "initialising mock database")

	db, err := gorm.Open(sqlite.Open("file:greenplate-mock?mode=memory&cache=shared"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		PrepareStmt:                              true,
		SkipDefaultTransaction:                   true,
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
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
		return nil, err
	}

	if err := seed(ctx, db); err != nil {
		return nil, err
	}

	applog.Debug(ctx, "mock database ready")
	return db, nil
}

func seed(ctx context.Context, db *gorm.DB) error {
	applog.Debug(ctx, "seeding mock database")

	password, err := bcrypt.GenerateFromPassword([]byte("kitchen"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := &models.User{
		Username:     "demo",
		PasswordHash: string(password),
	}
	if err := db.WithContext(ctx).Create(user).Error; err != nil {
		return err
	}

	book := &models.RecipeBook{OwnerID: user.ID}
	if err := db.WithContext(ctx).Create(book).Error; err != nil {
		return err
	}
	if err := db.WithContext(ctx).Model(user).Update("recipe_book_id", book.ID).Error; err != nil {
		return err
	}

	flour := models.Ingredient{
		Name:        "Flour",
		Description: "All-purpose wheat flour.",
	}
	milk := models.Ingredient{
		Name:        "Milk",
		Description: "Whole dairy milk.",
	}
	egg := models.Ingredient{
		Name:        "Egg",
		Description: "Chicken egg.",
	}
	oatMilk := models.Ingredient{
		Name:        "Oat Milk",
		Description: "Plant milk pressed from whole oats.",
	}
	coconutMilk := models.Ingredient{
		Name:        "Coconut Milk",
		Description: "Canned coconut milk.",
	}

	ingredients := []*models.Ingredient{&flour, &milk, &egg, &oatMilk, &coconutMilk}
	for _, ingredient := range ingredients {
		if err := db.WithContext(ctx).Create(ingredient).Error; err != nil {
			return err
		}
	}

	replacements := []models.IngredientReplacement{
		{
			ReplacesIngredientID:    milk.ID,
			ReplacementIngredientID: oatMilk.ID,
			Reason:                  "Oat milk has a far lower water footprint than dairy.",
			ReasonSource:            "Water Footprint Network",
		},
		{
			ReplacesIngredientID:    milk.ID,
			ReplacementIngredientID: coconutMilk.ID,
			Reason:                  "Coconut milk avoids dairy farming emissions.",
			ReasonSource:            "FAO livestock report",
		},
	}
	for _, replacement := range replacements {
		replacementCopy := replacement
		if err := db.WithContext(ctx).Create(&replacementCopy).Error; err != nil {
			return err
		}
	}

	pancakes := models.Recipe{
		Name:     "Pancakes",
		IsPublic: true,
	}
	if err := db.WithContext(ctx).Create(&pancakes).Error; err != nil {
		return err
	}

	joins := []models.RecipeIngredient{
		{RecipeID: pancakes.ID, IngredientID: flour.ID},
		{RecipeID: pancakes.ID, IngredientID: milk.ID},
		{RecipeID: pancakes.ID, IngredientID: egg.ID},
	}
	for _, join := range joins {
		joinCopy := join
		if err := db.WithContext(ctx).Create(&joinCopy).Error; err != nil {
			return err
		}
	}

	applog.Debug(ctx, "mock database seeded")
	return nil
}

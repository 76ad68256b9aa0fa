package seed

import (
	"errors"
	"log/slog"

	"carquote_backend/internal/model"

	"gorm.io/gorm"
)

const DemoUserID = "demo-user"

// SeedDemoSession creates a ready demo search with a few dealer listings
// so the UI has something to show on a fresh database. It is idempotent.
func SeedDemoSession(db *gorm.DB) (*model.Session, error) {
	session := model.Session{
		UserID:      DemoUserID,
		CarType:     "Toyota Camry",
		Make:        "Toyota",
		CarModel:    "Camry",
		Version:     "SE",
		ZipCode:     "94105",
		RadiusMiles: 50,
		Status:      model.SessionStatusReady,
	}
	var existing model.Session
	err := db.Where("user_id = ?", DemoUserID).First(&existing).Error
	if err == nil {
		slog.Info("demo session already seeded", "session_id", existing.ID)
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err := db.Create(&session).Error; err != nil {
		return nil, err
	}

	listings := []model.Listing{
		{DealerName: "Bay Area Toyota", Phone: "4155550101", Address: "100 Market St, San Francisco, CA 94105", MSRP: 31500, DiscountedPrice: 30900, MPG: 32, Distance: 1.2},
		{DealerName: "Oakland Toyota", Phone: "5105550102", Address: "8181 Oakport St, Oakland, CA 94621", MSRP: 31500, DiscountedPrice: 30450, MPG: 32, Distance: 9.8},
		{DealerName: "Peninsula Toyota", Phone: "6505550103", Address: "2 Veterans Blvd, Redwood City, CA 94063", MSRP: 31500, DiscountedPrice: 31200, MPG: 32, Distance: 24.5},
	}
	for _, l := range listings {
		l.SessionID = session.ID
		if err := db.Create(&l).Error; err != nil {
			slog.Error("error seeding demo listing", "dealer", l.DealerName, "error", err)
		}
	}

	slog.Info("demo session seeded", "session_id", session.ID, "listings", len(listings))
	return &session, nil
}

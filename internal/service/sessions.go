package service

import (
	"fmt"
	"strings"

	"carquote_backend/internal/model"
	"carquote_backend/pkg/utils/validation"

	"gorm.io/gorm"
)

type CreateSessionInput struct {
	UserID      string `json:"user_id"`
	CarType     string `json:"car_type"`
	Make        string `json:"make"`
	Model       string `json:"model"`
	Version     string `json:"version"`
	Year        int    `json:"year"`
	ZipCode     string `json:"zip_code"`
	RadiusMiles int    `json:"radius_miles"`
}

type SessionStats struct {
	TotalListings    int64 `json:"total_listings"`
	SelectedListings int64 `json:"selected_listings"`
	TotalCalls       int64 `json:"total_calls"`
	CompletedCalls   int64 `json:"completed_calls"`
	FailedCalls      int64 `json:"failed_calls"`
	TotalQuotes      int64 `json:"total_quotes"`
}

// CreateSession stores a new search in draft status.
func CreateSession(db *gorm.DB, in CreateSessionInput) (*model.Session, error) {
	in.ZipCode = strings.TrimSpace(in.ZipCode)
	if err := validation.ValidateSearch(in.UserID, in.CarType, in.Model, in.Version, in.ZipCode, in.RadiusMiles); err != nil {
		return nil, invalid(err)
	}
	if in.Year < 0 {
		return nil, invalid(fmt.Errorf("year must not be negative"))
	}

	session := model.Session{
		UserID:      strings.TrimSpace(in.UserID),
		CarType:     strings.TrimSpace(in.CarType),
		Make:        strings.TrimSpace(in.Make),
		CarModel:    strings.TrimSpace(in.Model),
		Version:     strings.TrimSpace(in.Version),
		Year:        in.Year,
		ZipCode:     in.ZipCode,
		RadiusMiles: in.RadiusMiles,
		Status:      model.SessionStatusDraft,
	}
	if err := db.Create(&session).Error; err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &session, nil
}

func GetSession(db *gorm.DB, id uint) (*model.Session, error) {
	var session model.Session
	if err := db.First(&session, id).Error; err != nil {
		return nil, notFound(err, "session")
	}
	return &session, nil
}

// ListSessionsByUser returns the user's sessions newest first.
func ListSessionsByUser(db *gorm.DB, userID string) ([]model.Session, error) {
	sessions := []model.Session{}
	if err := db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// UpdateSessionStatus moves a session along its transition table. The
// update is conditional on the status read, so a concurrent change
// surfaces as ErrInvalidTransition instead of being overwritten.
func UpdateSessionStatus(db *gorm.DB, id uint, next model.SessionStatus) (*model.Session, error) {
	if !next.Valid() {
		return nil, invalid(fmt.Errorf("unknown session status %q", next))
	}
	session, err := GetSession(db, id)
	if err != nil {
		return nil, err
	}
	if err := transitionSession(db, session, next); err != nil {
		return nil, err
	}
	return session, nil
}

func transitionSession(db *gorm.DB, session *model.Session, next model.SessionStatus) error {
	current := session.Status
	if !current.CanTransition(next) {
		return fmt.Errorf("%w: session %s -> %s", ErrInvalidTransition, current, next)
	}
	result := db.Model(session).
		Where("status = ?", current).
		Update("status", next)
	if result.Error != nil {
		return fmt.Errorf("update session status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: session %d changed concurrently", ErrInvalidTransition, session.ID)
	}
	session.Status = next
	return nil
}

// DeleteSession soft-deletes only the session; its listings, calls and
// quotes stay readable by id.
func DeleteSession(db *gorm.DB, id uint) error {
	result := db.Delete(&model.Session{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("session: %w", ErrNotFound)
	}
	return nil
}

func GetSessionStats(db *gorm.DB, id uint) (*SessionStats, error) {
	if _, err := GetSession(db, id); err != nil {
		return nil, err
	}

	var stats SessionStats
	counts := []struct {
		dst   *int64
		model interface{}
		where string
		args  []interface{}
	}{
		{&stats.TotalListings, &model.Listing{}, "session_id = ?", []interface{}{id}},
		{&stats.SelectedListings, &model.Listing{}, "session_id = ? AND selected = ?", []interface{}{id, true}},
		{&stats.TotalCalls, &model.Call{}, "session_id = ?", []interface{}{id}},
		{&stats.CompletedCalls, &model.Call{}, "session_id = ? AND status = ?", []interface{}{id, model.CallStatusCompleted}},
		{&stats.FailedCalls, &model.Call{}, "session_id = ? AND status = ?", []interface{}{id, model.CallStatusFailed}},
		{&stats.TotalQuotes, &model.Quote{}, "session_id = ?", []interface{}{id}},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Where(c.where, c.args...).Count(c.dst).Error; err != nil {
			return nil, fmt.Errorf("session stats: %w", err)
		}
	}
	return &stats, nil
}

package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Session Status
type SessionStatus string

const (
	SessionStatusDraft     SessionStatus = "draft"
	SessionStatusFetching  SessionStatus = "fetching"
	SessionStatusReady     SessionStatus = "ready"
	SessionStatusCalling   SessionStatus = "calling"
	SessionStatusCompleted SessionStatus = "completed"
)

var sessionTransitions = map[SessionStatus][]SessionStatus{
	SessionStatusDraft:     {SessionStatusFetching},
	SessionStatusFetching:  {SessionStatusReady, SessionStatusDraft},
	SessionStatusReady:     {SessionStatusFetching, SessionStatusCalling},
	SessionStatusCalling:   {SessionStatusReady, SessionStatusCompleted},
	SessionStatusCompleted: {SessionStatusCalling, SessionStatusFetching},
}

func (s SessionStatus) Valid() bool {
	_, ok := sessionTransitions[s]
	return ok
}

// CanTransition reports whether a session may move from s to next.
// Writing the current status again is always allowed.
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	if s == next {
		return next.Valid()
	}
	for _, allowed := range sessionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func SessionStatuses() []string {
	return []string{
		string(SessionStatusDraft),
		string(SessionStatusFetching),
		string(SessionStatusReady),
		string(SessionStatusCalling),
		string(SessionStatusCompleted),
	}
}

type Session struct {
	gorm.Model
	UserID      string        `json:"user_id" gorm:"not null;index;index:idx_session_user_status,priority:1"`
	CarType     string        `json:"car_type" gorm:"not null"`
	Make        string        `json:"make"`
	CarModel    string        `json:"model" gorm:"column:model;not null"`
	Version     string        `json:"version" gorm:"not null"`
	Year        int           `json:"year"`
	ZipCode     string        `json:"zip_code" gorm:"not null"`
	RadiusMiles int           `json:"radius_miles" gorm:"not null"`
	Status      SessionStatus `json:"status" gorm:"not null;default:'draft';index;index:idx_session_user_status,priority:2"`
}

// VehicleMake falls back to the first word of the car type ("Toyota RAV4")
// and then to def when no make was stored.
func (s *Session) VehicleMake(def string) string {
	if s.Make != "" {
		return s.Make
	}
	if fields := strings.Fields(s.CarType); len(fields) > 1 {
		return fields[0]
	}
	return def
}

// ModelYear returns the requested year, or the current one when unset.
func (s *Session) ModelYear() int {
	if s.Year > 0 {
		return s.Year
	}
	return time.Now().Year()
}

package validation

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrCarTypeRequired = errors.New("car type is required")
	ErrModelRequired   = errors.New("model is required")
	ErrVersionRequired = errors.New("version is required")
	ErrUserIDRequired  = errors.New("user id is required")
	ErrZipCode         = errors.New("zip code must be 5 digits")
	ErrRadius          = errors.New("radius must be between 1 and 500 miles")
	ErrPhoneRequired   = errors.New("phone number is required")
	ErrScriptTooShort  = errors.New("script must be at least 10 characters")
	ErrOTDPrice        = errors.New("OTD price must be greater than 0")
)

const (
	MinRadiusMiles  = 1
	MaxRadiusMiles  = 500
	MinScriptLength = 10
)

var zipPattern = regexp.MustCompile(`^\d{5}$`)

func ValidateZipCode(zip string) error {
	if !zipPattern.MatchString(zip) {
		return ErrZipCode
	}
	return nil
}

func ValidateRadius(miles int) error {
	if miles < MinRadiusMiles || miles > MaxRadiusMiles {
		return ErrRadius
	}
	return nil
}

// ValidateSearch checks the fields a search session is created from.
func ValidateSearch(userID, carType, model, version, zip string, radius int) error {
	if strings.TrimSpace(userID) == "" {
		return ErrUserIDRequired
	}
	if strings.TrimSpace(carType) == "" {
		return ErrCarTypeRequired
	}
	if strings.TrimSpace(model) == "" {
		return ErrModelRequired
	}
	if strings.TrimSpace(version) == "" {
		return ErrVersionRequired
	}
	if err := ValidateZipCode(zip); err != nil {
		return err
	}
	return ValidateRadius(radius)
}

func ValidateCallScript(phone, script string) error {
	if strings.TrimSpace(phone) == "" {
		return ErrPhoneRequired
	}
	if len(strings.TrimSpace(script)) < MinScriptLength {
		return ErrScriptTooShort
	}
	return nil
}

func ValidateOTDPrice(price float64) error {
	if price <= 0 {
		return ErrOTDPrice
	}
	return nil
}

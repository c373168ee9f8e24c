// Package models defines the registration records and the raw form inputs
// the pipeline validates before building them.
package models

import (
	"time"

	"github.com/google/uuid"
)

// RegistrationID is assigned by the store at insert time and never changes.
// It is the join key for the supplemental record.
type RegistrationID uuid.UUID

func (id RegistrationID) String() string {
	return uuid.UUID(id).String()
}

func (id RegistrationID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

func (id RegistrationID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

func (id *RegistrationID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// NewRegistrationID returns a random id.
func NewRegistrationID() RegistrationID {
	return RegistrationID(uuid.New())
}

// ParseRegistrationID parses the canonical UUID form.
func ParseRegistrationID(s string) (RegistrationID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return RegistrationID{}, err
	}
	return RegistrationID(u), nil
}

// Role is the registrant's affiliation.
type Role string

const (
	RoleStudent   Role = "student"
	RoleFaculty   Role = "faculty"
	RoleLibrarian Role = "librarian"
	RoleOther     Role = "other"
)

// Roles is the closed set accepted by validation.
var Roles = []Role{RoleStudent, RoleFaculty, RoleLibrarian, RoleOther}

// EducationLevel is the registrant's highest degree in progress or held.
type EducationLevel string

const (
	EducationBachelors EducationLevel = "Bachelors"
	EducationMasters   EducationLevel = "Masters"
	EducationPhD       EducationLevel = "PhD"
)

// EducationLevels is the closed set accepted by validation.
var EducationLevels = []EducationLevel{EducationBachelors, EducationMasters, EducationPhD}

// RegistrationRecord is the authoritative primary registration.
// Email is unique across all records; the store enforces it.
type RegistrationRecord struct {
	ID         RegistrationID `json:"id"`
	Name       string         `json:"name"`
	Email      string         `json:"email"`
	Phone      string         `json:"phone"`
	Role       Role           `json:"role"`
	University string         `json:"university"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// SupplementalInfoRecord is attached to exactly one RegistrationRecord.
type SupplementalInfoRecord struct {
	RegistrationID     RegistrationID `json:"registrationId"`
	Major              string         `json:"major"`
	EducationLevel     EducationLevel `json:"educationLevel"`
	PreviousExperience string         `json:"previousExperience"`
	UsedServiceBefore  bool           `json:"usedServiceBefore"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

// RegistrationDetails is the read-back view of a committed registration.
// Supplemental is nil when the registrant declined or has not submitted it.
type RegistrationDetails struct {
	Registration RegistrationRecord      `json:"registration"`
	Supplemental *SupplementalInfoRecord `json:"supplemental,omitempty"`
}

// RegistrationInput is the primary form as typed by the registrant.
type RegistrationInput struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Role       string `json:"role"`
	University string `json:"university"`
}

// SupplementalInput is the supplemental form as typed by the registrant.
type SupplementalInput struct {
	Major              string `json:"major"`
	EducationLevel     string `json:"educationLevel"`
	PreviousExperience string `json:"previousExperience"`
	UsedServiceBefore  bool   `json:"usedServiceBefore"`
}

// Form field names, shared by validation results and feedback highlighting.
const (
	FieldName               = "name"
	FieldEmail              = "email"
	FieldPhone              = "phone"
	FieldRole               = "role"
	FieldUniversity         = "university"
	FieldMajor              = "major"
	FieldEducationLevel     = "educationLevel"
	FieldPreviousExperience = "previousExperience"
)

// ToRecord builds an unsaved record from validated input.
func (in RegistrationInput) ToRecord(now time.Time) RegistrationRecord {
	return RegistrationRecord{
		Name:       in.Name,
		Email:      in.Email,
		Phone:      in.Phone,
		Role:       Role(in.Role),
		University: in.University,
		CreatedAt:  now,
	}
}

// ToRecord builds the supplemental record for id from validated input.
func (in SupplementalInput) ToRecord(id RegistrationID, now time.Time) SupplementalInfoRecord {
	return SupplementalInfoRecord{
		RegistrationID:     id,
		Major:              in.Major,
		EducationLevel:     EducationLevel(in.EducationLevel),
		PreviousExperience: in.PreviousExperience,
		UsedServiceBefore:  in.UsedServiceBefore,
		UpdatedAt:          now,
	}
}

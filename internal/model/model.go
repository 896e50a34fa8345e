package model

import (
	"strings"
	"time"
)

// Role is a member's access level.
type Role string

const (
	RoleNormal Role = "normal"
	RoleAdmin  Role = "administrador"
)

// ParseRole resolves a free-form role string to its canonical value,
// case-insensitively. An empty string defaults to RoleNormal.
func ParseRole(s string) (Role, bool) {
	switch {
	case strings.TrimSpace(s) == "":
		return RoleNormal, true
	case strings.EqualFold(s, string(RoleNormal)):
		return RoleNormal, true
	case strings.EqualFold(s, string(RoleAdmin)):
		return RoleAdmin, true
	}
	return "", false
}

// Status is the condition of a physical copy.
type Status string

const (
	StatusAvailable Status = "Disponible"
	StatusLoaned    Status = "Prestado"
	StatusDamaged   Status = "Dañado"
)

// ParseStatus resolves a free-form status string to its canonical value,
// case-insensitively. An empty string defaults to StatusAvailable.
func ParseStatus(s string) (Status, bool) {
	switch {
	case strings.TrimSpace(s) == "":
		return StatusAvailable, true
	case strings.EqualFold(s, string(StatusAvailable)):
		return StatusAvailable, true
	case strings.EqualFold(s, string(StatusLoaned)):
		return StatusLoaned, true
	case strings.EqualFold(s, string(StatusDamaged)):
		return StatusDamaged, true
	}
	return "", false
}

type Member struct {
	ID             int        `json:"id" db:"id"`
	DNI            string     `json:"dni" db:"dni"`
	Name           string     `json:"name" db:"name"`
	Email          string     `json:"email" db:"email"`
	Password       string     `json:"-" db:"password"`
	Role           Role       `json:"role" db:"role"`
	PenalizedUntil *time.Time `json:"penalizedUntil,omitempty" db:"penalized_until"`
	// ActiveLoans is derived from outstanding loans and maintained by the
	// lending service, it is never persisted.
	ActiveLoans int `json:"activeLoans" db:"-"`
}

// Book is a catalogued title, identified by its ISBN-13.
type Book struct {
	ISBN   string `json:"isbn" db:"isbn"`
	Name   string `json:"name" db:"name"`
	Author string `json:"author" db:"author"`
}

// Copy is one physical instance of a Book.
type Copy struct {
	ID     int    `json:"id" db:"id"`
	ISBN   string `json:"isbn" db:"isbn"`
	Status Status `json:"status" db:"status"`
}

type Loan struct {
	ID         int        `json:"id" db:"id"`
	MemberID   int        `json:"memberId" db:"member_id"`
	CopyID     int        `json:"copyId" db:"copy_id"`
	StartDate  time.Time  `json:"startDate" db:"start_date"`
	ReturnDate *time.Time `json:"returnDate,omitempty" db:"return_date"`
}

// ReturnOutcome distinguishes an on-time return from a late one. A late
// return still completes, the outcome carries the penalty that was applied.
type ReturnOutcome string

const (
	OutcomeReturned     ReturnOutcome = "RETURNED"
	OutcomeReturnedLate ReturnOutcome = "RETURNED_LATE"
)

type ReturnResult struct {
	Loan           Loan          `json:"loan"`
	Outcome        ReturnOutcome `json:"outcome"`
	PenalizedUntil *time.Time    `json:"penalizedUntil,omitempty"`
	Message        string        `json:"message"`
}

type RegisterMemberRequest struct {
	DNI      string `json:"dni" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type CreateBookRequest struct {
	ISBN   string `json:"isbn" validate:"required"`
	Name   string `json:"name" validate:"required"`
	Author string `json:"author" validate:"required"`
}

type CreateCopyRequest struct {
	ISBN   string `json:"isbn" validate:"required"`
	Status string `json:"status"`
}

type CreateLoanRequest struct {
	MemberID int `json:"memberId" validate:"required"`
	CopyID   int `json:"copyId" validate:"required"`
}

// BookStock pairs a catalogued book with its available copy count.
type BookStock struct {
	Book      Book `json:"book"`
	Available int  `json:"available"`
}

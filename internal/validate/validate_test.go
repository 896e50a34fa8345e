package validate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/asanchezr/biblioteca-service/internal/model"
	"github.com/asanchezr/biblioteca-service/internal/validate"
)

func TestNotFilled(t *testing.T) {
	t.Parallel()
	require.False(t, validate.NotFilled("a", "b"))
	require.True(t, validate.NotFilled("a", ""))
	require.True(t, validate.NotFilled("   "))
	require.True(t, validate.NotFilled("a", nil))
	require.False(t, validate.NotFilled(1, 2))
}

func TestDocumentValid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		dni     string
		valid   bool
		wantErr bool
	}{
		{name: "valid dni", dni: "12345678Z", valid: true},
		{name: "wrong control letter", dni: "12345678A", valid: false},
		{name: "valid nie X", dni: "X1234567L", valid: true},
		{name: "valid nie Y", dni: "Y1234567X", valid: true},
		{name: "valid nie Z", dni: "Z1234567R", valid: true},
		{name: "wrong nie control letter", dni: "X1234567T", valid: false},
		{name: "too short", dni: "1234567Z", valid: false},
		{name: "too long", dni: "123456789Z", valid: false},
		{name: "bad leading letter", dni: "A1234567X", wantErr: true},
		{name: "non numeric body", dni: "12a45678Z", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ok, err := validate.DocumentValid(tt.dni)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.valid, ok)
		})
	}
}

func TestEmailValid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		email string
		valid bool
	}{
		{"a@gmail.com", true},
		{"pepe.garcia+tag@outlook.com", true},
		{"a@yahoo.com", true},
		{"a@hotmail.com", true},
		{"a@icloud.com", true},
		{"a@protonmail.com", false},
		{"not-an-email", false},
		{"@gmail.com", false},
		{"a@gmail", false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.valid, validate.EmailValid(tt.email), tt.email)
	}
}

func TestRoleAndStatusValid(t *testing.T) {
	t.Parallel()
	require.True(t, validate.RoleValid("normal"))
	require.True(t, validate.RoleValid("ADMINISTRADOR"))
	require.False(t, validate.RoleValid("root"))

	require.True(t, validate.StatusValid("disponible"))
	require.True(t, validate.StatusValid("Prestado"))
	require.True(t, validate.StatusValid("DAÑADO"))
	require.False(t, validate.StatusValid("perdido"))
}

func TestISBN13Valid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		isbn  string
		valid bool
	}{
		{"9780134685991", true},
		{"9780306406157", true},
		{"9780306406158", false},
		{"978030640615", false},
		{"97803064061577", false},
		{"97803064061a7", false},
		{"978030640615a", false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.valid, validate.ISBN13Valid(tt.isbn), tt.isbn)
	}
}

func TestMemberPenalized(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.False(t, validate.MemberPenalized(&model.Member{}, now))

	future := now.AddDate(0, 0, 1)
	require.True(t, validate.MemberPenalized(&model.Member{PenalizedUntil: &future}, now))

	past := now.AddDate(0, 0, -1)
	require.False(t, validate.MemberPenalized(&model.Member{PenalizedUntil: &past}, now))

	require.False(t, validate.MemberPenalized(&model.Member{PenalizedUntil: &now}, now))
}

func TestOverLoanLimit(t *testing.T) {
	t.Parallel()
	require.False(t, validate.OverLoanLimit(&model.Member{ActiveLoans: 2}))
	require.True(t, validate.OverLoanLimit(&model.Member{ActiveLoans: 3}))
}

func TestLoanOutstanding(t *testing.T) {
	t.Parallel()
	require.True(t, validate.LoanOutstanding(&model.Loan{}))

	now := time.Now()
	require.False(t, validate.LoanOutstanding(&model.Loan{ReturnDate: &now}))
}

func TestReturnedOnTime(t *testing.T) {
	t.Parallel()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := validate.ReturnedOnTime(&model.Loan{StartDate: start})
	require.Error(t, err)

	early := start.AddDate(0, 0, 10)
	ok, err := validate.ReturnedOnTime(&model.Loan{StartDate: start, ReturnDate: &early})
	require.NoError(t, err)
	require.True(t, ok)

	// exactly on the due date is not "strictly before"
	onDue := start.AddDate(0, 0, validate.LoanPeriodDays)
	ok, err = validate.ReturnedOnTime(&model.Loan{StartDate: start, ReturnDate: &onDue})
	require.NoError(t, err)
	require.False(t, ok)

	late := start.AddDate(0, 0, 16)
	ok, err = validate.ReturnedOnTime(&model.Loan{StartDate: start, ReturnDate: &late})
	require.NoError(t, err)
	require.False(t, ok)
}

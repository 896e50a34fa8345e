// Package validate holds the stateless domain predicates: required-field
// gates, the DNI/NIE and ISBN-13 checksums, and the loan/penalty checks.
package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pkg/errors"

	"github.com/asanchezr/biblioteca-service/internal/model"
)

const (
	// LoanPeriodDays is how long a copy may be kept before the return is late.
	LoanPeriodDays = 15
	// MaxActiveLoans is the highest number of outstanding loans a member may
	// hold; one more is rejected.
	MaxActiveLoans = 3
)

// controlLetters is the DNI checksum table, indexed by number mod 23.
const controlLetters = "TRWAGMYFPDXBNJZSQVHLCKE"

var (
	emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,6}$`)

	allowedDomains = map[string]struct{}{
		"gmail.com":   {},
		"outlook.com": {},
		"yahoo.com":   {},
		"hotmail.com": {},
		"icloud.com":  {},
	}
)

// NotFilled reports whether any of the given values is absent or blank after
// trimming. It is the required-field gate that runs before anything else.
func NotFilled(vals ...any) bool {
	for _, v := range vals {
		if v == nil {
			return true
		}
		if strings.TrimSpace(fmt.Sprint(v)) == "" {
			return true
		}
	}
	return false
}

// DocumentValid checks the 9-character DNI/NIE control letter. A leading
// letter other than X, Y or Z, or a non-numeric body, is a malformed
// document and reported as an error rather than a plain false.
func DocumentValid(dni string) (bool, error) {
	if len(dni) != 9 {
		return false, nil
	}

	var body string
	if head := rune(dni[0]); unicode.IsLetter(head) {
		n, err := nieLeadingDigit(dni[0])
		if err != nil {
			return false, err
		}
		body = strconv.Itoa(n) + dni[1:8]
	} else {
		body = dni[:8]
	}

	num, err := strconv.Atoi(body)
	if err != nil {
		return false, errors.Wrap(err, "document number")
	}

	return controlLetters[num%23] == dni[8], nil
}

func nieLeadingDigit(c byte) (int, error) {
	switch c {
	case 'X':
		return 0, nil
	case 'Y':
		return 1, nil
	case 'Z':
		return 2, nil
	}
	return 0, errors.Errorf("invalid NIE leading letter %q", c)
}

// EmailValid requires a local@domain shape and an allow-listed domain.
func EmailValid(email string) bool {
	if !emailRe.MatchString(email) {
		return false
	}
	domain := email[strings.IndexByte(email, '@')+1:]
	_, ok := allowedDomains[domain]
	return ok
}

func RoleValid(role string) bool {
	_, ok := model.ParseRole(role)
	return ok
}

func StatusValid(status string) bool {
	_, ok := model.ParseStatus(status)
	return ok
}

// PasswordCorrect compares the stored secret with the given password.
func PasswordCorrect(m *model.Member, password string) bool {
	return m.Password == password
}

// ISBN13Valid checks the weighted 1/3 checksum over a 13-digit ISBN.
func ISBN13Valid(isbn string) bool {
	if len(isbn) != 13 {
		return false
	}
	sum := 0
	for i := 0; i < 12; i++ {
		d := isbn[i] - '0'
		if d > 9 {
			return false
		}
		if i%2 == 0 {
			sum += int(d)
		} else {
			sum += 3 * int(d)
		}
	}
	check := isbn[12] - '0'
	if check > 9 {
		return false
	}
	return (10-sum%10)%10 == int(check)
}

func CopyAvailable(c *model.Copy) bool {
	return strings.EqualFold(string(c.Status), string(model.StatusAvailable))
}

// MemberPenalized reports whether the member's penalty window is still open
// at the given instant.
func MemberPenalized(m *model.Member, now time.Time) bool {
	return m.PenalizedUntil != nil && now.Before(*m.PenalizedUntil)
}

// OverLoanLimit reports whether the member has no loan allowance left: a
// member may hold at most MaxActiveLoans outstanding loans, one more is
// rejected.
func OverLoanLimit(m *model.Member) bool {
	return m.ActiveLoans >= MaxActiveLoans
}

// LoanOutstanding reports whether the loan has not been returned yet.
func LoanOutstanding(l *model.Loan) bool {
	return l.ReturnDate == nil
}

// ReturnedOnTime reports whether a returned loan came back strictly before
// its due date (start date plus LoanPeriodDays). Calling it on an
// outstanding loan is a caller bug and reported as an error.
func ReturnedOnTime(l *model.Loan) (bool, error) {
	if LoanOutstanding(l) {
		return false, errors.New("loan has not been returned")
	}
	due := l.StartDate.AddDate(0, 0, LoanPeriodDays)
	return l.ReturnDate.Before(due), nil
}

package kidsAuth

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/kidsAuth/password"
	"github.com/MrEthical07/kidsAuth/permission"
)

const dateLayout = "2006-01-02"

var (
	namePattern  = regexp.MustCompile(`^[a-zA-Z\sáéíóúÁÉÍÓÚñÑ'-]+$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
)

// fieldErrors accumulates user-facing messages in the order checks ran.
type fieldErrors struct {
	messages []string
}

func (f *fieldErrors) add(msg string) {
	f.messages = append(f.messages, msg)
}

func (f *fieldErrors) check(ok bool, msg string) {
	if !ok {
		f.add(msg)
	}
}

func (f *fieldErrors) err() error {
	if len(f.messages) == 0 {
		return nil
	}
	return &ValidationError{Messages: f.messages}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validName(value string) bool {
	return namePattern.MatchString(strings.TrimSpace(value))
}

func validEmail(value string) bool {
	return emailPattern.MatchString(value)
}

func validPhone(value string) bool {
	return phonePattern.MatchString(value)
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return false
		}
	}
	return true
}

// validPIN reports whether pin is all digits with length in [min, max].
func validPIN(pin string, min, max int) bool {
	return isDigits(pin) && len(pin) >= min && len(pin) <= max
}

// ageOn returns whole years between birth and now.
func ageOn(birth, now time.Time) int {
	years := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		years--
	}
	return years
}

func (e *Engine) validateRegistration(req RegisterRequest) (time.Time, error) {
	var f fieldErrors

	f.check(validName(req.FirstName), "Invalid first name.")
	f.check(validName(req.LastName), "Invalid last name.")
	f.check(validName(req.Country), "Invalid country.")

	var birth time.Time
	if strings.TrimSpace(req.DateOfBirth) == "" {
		f.add("Date of birth is required.")
	} else {
		parsed, err := time.Parse(dateLayout, strings.TrimSpace(req.DateOfBirth))
		switch {
		case err != nil:
			f.add("Invalid date of birth.")
		case ageOn(parsed, e.now()) < e.config.Account.MinAge:
			f.add("You must be at least " + strconv.Itoa(e.config.Account.MinAge) + " years old.")
		default:
			birth = parsed
		}
	}

	f.check(validEmail(normalizeEmail(req.Email)), "Invalid email.")
	f.check(len(req.Password) >= e.config.Password.MinLength,
		"Password must be at least "+strconv.Itoa(e.config.Password.MinLength)+" characters.")
	f.check(len(req.Password) <= password.MaxPasswordBytes,
		"Password must be at most "+strconv.Itoa(password.MaxPasswordBytes)+" bytes.")
	f.check(validPIN(req.PIN, e.config.Account.PINDigits, e.config.Account.PINDigits),
		"PIN must be "+strconv.Itoa(e.config.Account.PINDigits)+" digits.")
	f.check(validPhone(strings.TrimSpace(req.Phone)), "Invalid phone number.")

	return birth, f.err()
}

func (e *Engine) validateFederatedRegistration(req FederatedRegisterRequest, email string) error {
	var f fieldErrors

	f.check(validName(req.FirstName), "Invalid first name.")
	f.check(validName(req.LastName), "Invalid last name.")
	if strings.TrimSpace(req.Country) != "" {
		f.check(validName(req.Country), "Invalid country.")
	}
	if strings.TrimSpace(req.Phone) != "" {
		f.check(validPhone(strings.TrimSpace(req.Phone)), "Invalid phone number.")
	}
	f.check(validEmail(email), "Invalid email.")

	return f.err()
}

func (e *Engine) validateAccountUpdate(req UpdateAccountRequest) error {
	var f fieldErrors

	if req.FirstName != nil {
		f.check(validName(*req.FirstName), "Invalid first name.")
	}
	if req.LastName != nil {
		f.check(validName(*req.LastName), "Invalid last name.")
	}
	if req.Country != nil {
		f.check(validName(*req.Country), "Invalid country.")
	}
	if req.Phone != nil {
		f.check(validPhone(strings.TrimSpace(*req.Phone)), "Invalid phone number.")
	}
	if req.PIN != nil {
		f.check(validPIN(*req.PIN, e.config.Account.PINDigits, e.config.Account.PINDigits),
			"PIN must be "+strconv.Itoa(e.config.Account.PINDigits)+" digits.")
	}

	return f.err()
}

func (e *Engine) profilePINMessage() string {
	lo, hi := e.config.Account.ProfilePINMinDigits, e.config.Account.ProfilePINMaxDigits
	if lo == hi {
		return "PIN must be " + strconv.Itoa(lo) + " digits."
	}
	return "PIN must be " + strconv.Itoa(lo) + " to " + strconv.Itoa(hi) + " digits."
}

func (e *Engine) validateProfileCreate(req CreateProfileRequest) (permission.Role, error) {
	var f fieldErrors

	f.check(strings.TrimSpace(req.FullName) != "", "Full name is required.")
	f.check(strings.TrimSpace(req.Avatar) != "", "Avatar is required.")
	f.check(validPIN(req.PIN, e.config.Account.ProfilePINMinDigits, e.config.Account.ProfilePINMaxDigits),
		e.profilePINMessage())

	role, err := permission.ParseRole(req.Role)
	if err != nil {
		f.add("Invalid role.")
	}

	return role, f.err()
}

func (e *Engine) validateProfileUpdate(req UpdateProfileRequest) (*permission.Role, error) {
	var f fieldErrors

	if req.FullName != nil {
		f.check(strings.TrimSpace(*req.FullName) != "", "Full name is required.")
	}
	if req.Avatar != nil {
		f.check(strings.TrimSpace(*req.Avatar) != "", "Avatar is required.")
	}
	if req.PIN != nil {
		f.check(validPIN(*req.PIN, e.config.Account.ProfilePINMinDigits, e.config.Account.ProfilePINMaxDigits),
			e.profilePINMessage())
	}

	var role *permission.Role
	if req.Role != nil {
		parsed, err := permission.ParseRole(*req.Role)
		if err != nil {
			f.add("Invalid role.")
		} else {
			role = &parsed
		}
	}

	return role, f.err()
}

package validation

import (
	"strings"

	"github.com/aryan0dhankhar/leadintake/internal/domain"
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 6

var accountMessages = messages{
	"email":     {"*": "Invalid email address"},
	"password":  {"*": "Password must be at least 6 characters"},
	"firstName": {"required": "First name is required"},
	"lastName":  {"required": "Last name is required"},
}

var accountFieldOrder = []string{"email", "password", "firstName", "lastName"}

type registrationForm struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"min=6"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
}

type loginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=6"`
}

// ValidateRegistration checks a new account request
func ValidateRegistration(email, password, firstName, lastName string) []domain.FieldViolation {
	v := structViolations(registrationForm{
		Email:     strings.TrimSpace(email),
		Password:  password,
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
	}, accountMessages, nil)
	sortViolations(v, accountFieldOrder)
	return v
}

// ValidateLogin checks a login request
func ValidateLogin(email, password string) []domain.FieldViolation {
	v := structViolations(loginForm{
		Email:    strings.TrimSpace(email),
		Password: password,
	}, accountMessages, nil)
	sortViolations(v, accountFieldOrder)
	return v
}

// ValidatePassword checks a replacement password
func ValidatePassword(password string) []domain.FieldViolation {
	if len(password) < MinPasswordLength {
		return []domain.FieldViolation{{Field: "password", Message: accountMessages.lookup("password", "min")}}
	}
	return nil
}

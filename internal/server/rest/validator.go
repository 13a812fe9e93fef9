package rest

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/dmitrijs2005/slotkeeper/internal/common"
)

// ValidationError reports a request field that does not have the expected
// shape. It matches common.ErrorValidation with errors.Is.
type ValidationError struct {
	Field     string
	Validator string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s validator unmatched for %s", e.Validator, e.Field)
}

func (e *ValidationError) Unwrap() error { return common.ErrorValidation }

// Validator checks one field shape.
type Validator struct {
	name string
	re   *regexp.Regexp
}

// NewValidator compiles expr; it panics on a bad expression.
func NewValidator(name, expr string) *Validator {
	return &Validator{name: name, re: regexp.MustCompile(expr)}
}

// Validate returns a *ValidationError naming field when value does not match.
func (v *Validator) Validate(field, value string) error {
	if !v.re.MatchString(value) {
		return &ValidationError{Field: field, Validator: v.name}
	}
	return nil
}

// Validators is the set of field checks a Handler runs before touching any
// service.
type Validators struct {
	ID     *Validator
	Number *Validator
	Config *Validator
}

// DefaultValidators returns the stock field shapes: 32 lowercase hex chars
// for ids and tokens, decimal digits for ports, the standard base64 alphabet
// for config payloads.
func DefaultValidators() *Validators {
	return &Validators{
		ID:     NewValidator("UID/TOKEN", `^[0-9a-f]{32}$`),
		Number: NewValidator("PORT/SLOT", `^[0-9]+$`),
		Config: NewValidator("CONFIG", `^[A-Za-z0-9+/=]*$`),
	}
}

// Port validates a decimal port string and converts it.
func (v *Validators) Port(field, value string) (int, error) {
	if err := v.Number.Validate(field, value); err != nil {
		return 0, err
	}
	port, err := strconv.Atoi(value)
	if err != nil {
		return 0, &ValidationError{Field: field, Validator: v.Number.name}
	}
	return port, nil
}

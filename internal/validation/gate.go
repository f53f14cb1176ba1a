package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/alekl79/peachtree-bank-poc/internal/models"
)

var ErrInvalidTransaction = errors.New("invalid transaction")

// Violation is one failed rule. Index is the candidate position in the request.
type Violation struct {
	Index   int    `json:"index"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Error struct {
	Violations []Violation
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, fmt.Sprintf("[%d] %s", v.Index, v.Message))
	}

	return fmt.Sprintf("%s: %s", ErrInvalidTransaction, strings.Join(msgs, "; "))
}

func (e *Error) Unwrap() error {
	return ErrInvalidTransaction
}

// Gate checks transaction candidates against the domain rules.
type Gate struct {
	validate *validator.Validate
}

func NewGate() (*Gate, error) {
	vld := validator.New(validator.WithRequiredStructEnabled())

	if err := vld.RegisterValidation("transaction_state", func(fl validator.FieldLevel) bool {
		state, ok := fl.Field().Interface().(models.TransactionState)
		return ok && state.Valid()
	}); err != nil {
		return nil, fmt.Errorf("validation/gate: register transaction_state error %w", err)
	}

	return &Gate{validate: vld}, nil
}

func (g *Gate) Validate(candidate *models.TransactionCandidate) error {
	return g.ValidateAll([]*models.TransactionCandidate{candidate})
}

// ValidateAll checks every candidate and reports the union of all violations.
func (g *Gate) ValidateAll(candidates []*models.TransactionCandidate) error {
	var violations []Violation

	for i, c := range candidates {
		found, err := g.check(i, c)
		if err != nil {
			return err
		}

		violations = append(violations, found...)
	}

	if len(violations) > 0 {
		return &Error{Violations: violations}
	}

	return nil
}

func (g *Gate) check(index int, candidate *models.TransactionCandidate) ([]Violation, error) {
	if candidate == nil {
		return []Violation{{Index: index, Field: "", Message: "Transaction is required."}}, nil
	}

	err := g.validate.Struct(candidate)
	if err == nil {
		return nil, nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil, fmt.Errorf("validation/gate: validate candidate error %w", err)
	}

	violations := make([]Violation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		violations = append(violations, Violation{
			Index:   index,
			Field:   fe.Field(),
			Message: message(fe),
		})
	}

	return violations, nil
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long.", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be %s characters or fewer.", fe.Field(), fe.Param())
	case "transaction_state":
		return fmt.Sprintf("%s has a range of values which does not include '%v'.", fe.Field(), fe.Value())
	default:
		return fmt.Sprintf("%s is invalid.", fe.Field())
	}
}

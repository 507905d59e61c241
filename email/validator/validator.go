package validator

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kasmail/kasmail-server/types"
)

// RelayValidator inspects an outbound message before it is handed to the relay
type RelayValidator interface {
	Validate(ctx context.Context, mail *types.RelayMail) error
}

// MaxSubjectLength follows the RFC 5322 line length limit
const MaxSubjectLength = 998

var validate = validator.New()

// FieldValidator checks the struct constraints of a relay mail (addresses, required body)
type FieldValidator struct{}

func NewFieldValidator() *FieldValidator {
	return &FieldValidator{}
}

func (FieldValidator) Validate(ctx context.Context, mail *types.RelayMail) error {
	if mail == nil {
		return types.ErrBadRequest
	}
	if err := validate.Struct(mail); err != nil {
		return fmt.Errorf("%w: %s", types.ErrInvalidEmail, err.Error())
	}
	if len(mail.Subject) > MaxSubjectLength || strings.ContainsAny(mail.Subject, "\r\n") {
		return fmt.Errorf("%w: invalid subject", types.ErrBadRequest)
	}
	return nil
}

package util

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationErrorToMessage converts a validator.ValidationErrors to a string
func ValidationErrorToMessage(err error) string {
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return err.Error()
	}
	fields := []string{}
	tags := []string{}
	params := []string{}
	for _, e := range vErrs {
		fields = append(fields, e.Field())
		tags = append(tags, e.ActualTag())
		params = append(params, e.Param())
	}
	msg := fmt.Sprintf("error in field %s, tag %s, parameter %s", strings.Join(fields, ", "), strings.Join(tags, ", "), strings.Join(params, ", "))
	return msg
}

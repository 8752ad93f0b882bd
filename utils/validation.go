package utils

import (
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var identifierPattern = regexp.MustCompile(`^\w+$`)

// NameRules apply to every user-facing name: folders, requests, environments.
var NameRules = []validation.Rule{
	validation.Required.Error("name is required"),
	validation.RuneLength(1, 255).Error("name must be between 1 and 255 characters"),
	validation.By(notBlank),
}

// IdentifierRules restrict variable keys to what a {{placeholder}} can reference.
var IdentifierRules = []validation.Rule{
	validation.Required.Error("key is required"),
	validation.Match(identifierPattern).Error("key may only contain letters, digits and underscores"),
}

func notBlank(value interface{}) error {
	s, _ := value.(string)
	if s != "" && strings.TrimSpace(s) == "" {
		return validation.NewError("validation_blank", "must not be blank")
	}
	return nil
}

// IsValidationError reports whether err came from input validation.
func IsValidationError(err error) bool {
	var errs validation.Errors
	if errors.As(err, &errs) {
		return true
	}
	var single validation.Error
	return errors.As(err, &single)
}

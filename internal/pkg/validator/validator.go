package validator

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/futig/uiprime-backend/internal/entity"
	playground "github.com/go-playground/validator/v10"
)

// Limits bounds the size of inbound payloads.
type Limits struct {
	MaxQueryLength   int
	MaxContentLength int
	RequireLanguage  bool
}

// Validator validates chat and contact requests. Fields are trimmed in place
// before any rule is applied.
type Validator struct {
	validate *playground.Validate
	limits   Limits
}

func New(limits Limits) *Validator {
	return &Validator{
		validate: playground.New(playground.WithRequiredStructEnabled()),
		limits:   limits,
	}
}

// ValidateChat checks a chat request. Oversized queries are rejected, not truncated.
func (v *Validator) ValidateChat(req *entity.ChatRequest) error {
	req.Query = strings.TrimSpace(req.Query)
	req.Language = strings.TrimSpace(req.Language)

	if err := v.validate.Struct(req); err != nil {
		return v.translate(err, entity.ErrEmptyQuery)
	}

	if v.limits.RequireLanguage && req.Language == "" {
		return entity.ErrMissingLanguage
	}

	if v.limits.MaxQueryLength > 0 && utf8.RuneCountInString(req.Query) > v.limits.MaxQueryLength {
		return fmt.Errorf("%w: %d characters (max %d)", entity.ErrQueryTooLong,
			utf8.RuneCountInString(req.Query), v.limits.MaxQueryLength)
	}

	return nil
}

// ValidateContact checks a contact form submission in the order missing
// fields, address format, content length.
func (v *Validator) ValidateContact(req *entity.ContactRequest) error {
	req.Content = strings.TrimSpace(req.Content)
	req.SenderMail = strings.TrimSpace(req.SenderMail)
	// Collapse whitespace so a name can't smuggle line breaks into the subject.
	req.SenderFullName = strings.Join(strings.Fields(req.SenderFullName), " ")

	if err := v.validate.Struct(req); err != nil {
		return v.translate(err, entity.ErrInvalidEmail)
	}

	if v.limits.MaxContentLength > 0 && utf8.RuneCountInString(req.Content) > v.limits.MaxContentLength {
		return fmt.Errorf("%w: %d characters (max %d)", entity.ErrContentTooLong,
			utf8.RuneCountInString(req.Content), v.limits.MaxContentLength)
	}

	return nil
}

// translate maps validator field errors onto domain errors. Missing fields
// win over any other failure; everything else becomes formatErr.
func (v *Validator) translate(err error, formatErr error) error {
	var fieldErrs playground.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", entity.ErrInvalidParameter, err)
	}

	var missing []string
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
		}
	}

	if len(missing) > 0 {
		if len(missing) == 1 && missing[0] == "Query" {
			return entity.ErrEmptyQuery
		}
		return fmt.Errorf("%w: %s", entity.ErrMissingField, strings.Join(missing, ", "))
	}

	return fmt.Errorf("%w: %s", formatErr, fieldErrs[0].Field())
}

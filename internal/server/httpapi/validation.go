package httpapi

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var allowedExtensions = map[string]struct{}{
	".pdf": {}, ".png": {}, ".jpg": {}, ".jpeg": {}, ".txt": {}, ".csv": {},
	".json": {}, ".zip": {}, ".7z": {}, ".mp3": {}, ".wav": {}, ".mp4": {},
}

var unsafeTextPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<\s*script\b`),
	regexp.MustCompile(`(?i)javascript\s*:`),
	regexp.MustCompile(`(?i)\bon\w+\s*=`),
	regexp.MustCompile(`(?i)<\s*(iframe|object|embed|svg)\b`),
	regexp.MustCompile(`(?i)data\s*:\s*text/html`),
}

// uploadForm is the validated view of the multipart upload request.
type uploadForm struct {
	CaseID             int64  `validate:"gt=0"`
	ExistingEvidenceID *int64 `validate:"omitempty,gt=0"`
	Title              string `validate:"required,max=200,safetext"`
	Description        string `validate:"max=2000,safetext"`
	DeviceInfo         string `validate:"required,max=200,safetext"`
	FileName           string `validate:"required,max=260,plainfilename,evidenceext"`
	MimeType           string `validate:"max=200"`
}

// isSafeText rejects NUL bytes and common HTML/script injection markers.
func isSafeText(s string) bool {
	if strings.ContainsRune(s, 0) {
		return false
	}
	for _, p := range unsafeTextPatterns {
		if p.MatchString(s) {
			return false
		}
	}
	return true
}

// isPlainFileName accepts a bare name with no directory part.
func isPlainFileName(name string) bool {
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return false
	}
	return name != "." && name != ".." && filepath.Base(name) == name
}

func hasAllowedExtension(name string) bool {
	_, ok := allowedExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("safetext", func(fl validator.FieldLevel) bool {
		return isSafeText(fl.Field().String())
	})
	_ = v.RegisterValidation("plainfilename", func(fl validator.FieldLevel) bool {
		return isPlainFileName(fl.Field().String())
	})
	_ = v.RegisterValidation("evidenceext", func(fl validator.FieldLevel) bool {
		return hasAllowedExtension(fl.Field().String())
	})
	return v
}

// validationMessages turns validator errors into client messages.
func validationMessages(err error) []string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []string{"Invalid request."}
	}

	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fieldMessage(fe))
	}
	return msgs
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s.", fe.Field(), fe.Param())
	case "safetext":
		return fmt.Sprintf("%s contains unsafe content.", fe.Field())
	case "plainfilename":
		return "File name must not contain a path."
	case "evidenceext":
		return "File type is not allowed."
	default:
		return fmt.Sprintf("%s is invalid.", fe.Field())
	}
}

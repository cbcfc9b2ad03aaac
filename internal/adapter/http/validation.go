package http

import (
	"errors"
	"math"
	"reflect"
	"regexp"
	"strings"

	"ncd-admin-backend/pkg/dateparse"

	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string       `json:"error"`
	Details []FieldError `json:"details,omitempty"`
}

var reLowerHex32 = regexp.MustCompile(`^[a-f0-9]{32}$`)

// CustomValidator plugs validator/v10 into echo with the NCD rules:
//
//	hex32    audit log id, 32-char lowercase hex
//	intlike  whole-unit amounts (face value)
//	dec2     money and rates with at most 2 decimals
//	ncddate  DD/MM/YYYY or YYYY-MM-DD
type CustomValidator struct{ v *validator.Validate }

func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(wireName)

	_ = v.RegisterValidation("hex32", func(fl validator.FieldLevel) bool {
		return reLowerHex32.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("intlike", func(fl validator.FieldLevel) bool {
		return hasDecimals(fl.Field().Float(), 0)
	})
	_ = v.RegisterValidation("dec2", func(fl validator.FieldLevel) bool {
		return hasDecimals(fl.Field().Float(), 2)
	})
	_ = v.RegisterValidation("ncddate", func(fl validator.FieldLevel) bool {
		return dateparse.Valid(fl.Field().String())
	})

	return &CustomValidator{v: v}
}

func (cv *CustomValidator) Validate(i any) error { return cv.v.Struct(i) }

func hasDecimals(f float64, places int) bool {
	p := math.Pow10(places)
	return math.Abs(f-math.Round(f*p)/p) < 1e-9
}

// wireName reports a field by the name the client sent: json, then path
// param, then query. Untagged fields keep their Go name.
func wireName(f reflect.StructField) string {
	for _, tag := range []string{"json", "param", "query"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

var fieldMessages = map[string]func(param string) string{
	"required": func(string) string { return "is required" },
	"hex32":    func(string) string { return "must be 32-char lowercase hex" },
	"intlike":  func(string) string { return "must be an integer value" },
	"dec2":     func(string) string { return "must have at most 2 decimal places" },
	"ncddate":  func(string) string { return "must be a date in DD/MM/YYYY or YYYY-MM-DD" },
	"gt":       func(p string) string { return "must be greater than " + p },
	"gte":      func(p string) string { return "must be greater than or equal to " + p },
	"lte":      func(p string) string { return "must be less than or equal to " + p },
	"max":      func(p string) string { return "must be at most " + p + " characters" },
	"len":      func(p string) string { return "must be exactly " + p + " characters" },
	"oneof":    func(p string) string { return "must be one of: " + p },
	"email":    func(string) string { return "must be a valid email" },
}

// ToFieldErrors turns validator output into client-facing messages. Any
// other error becomes a single entry under field "_".
func ToFieldErrors(err error) []FieldError {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []FieldError{{Field: "_", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(ve))
	for _, e := range ve {
		msg := e.Tag() + " validation failed"
		if f, ok := fieldMessages[e.Tag()]; ok {
			msg = f(e.Param())
		}
		out = append(out, FieldError{Field: e.Field(), Message: msg})
	}
	return out
}

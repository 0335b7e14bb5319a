package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// PasswordSymbols is the symbol set a password must draw at least one character from.
const PasswordSymbols = "@$!%*?&"

const (
	lower  = "abcdefghijklmnopqrstuvwxyz"
	upper  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits = "0123456789"
)

// MaxPasswordBytes is the longest input bcrypt will hash.
const MaxPasswordBytes = 72

// ErrPasswordPolicy is returned by ValidatePassword for any non-compliant password.
var ErrPasswordPolicy = errors.New("password must be 8-50 characters, at most 72 bytes, and contain an uppercase letter, a lowercase letter, a number and one of " + PasswordSymbols)

var (
	std     *validator.Validate
	stdOnce sync.Once
)

// Init configures the global validator used by Gin's binding.
// - Uses JSON tag names in errors.
// - Registers the alias tags shared with the standalone validator.
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		register(v)
	}
}

func register(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("pwbytes", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxPasswordBytes
	})
	v.RegisterAlias("strongpwd", "min=8,max=50,pwbytes,containsany="+lower+",containsany="+upper+",containsany="+digits+",containsany="+PasswordSymbols)
	v.RegisterAlias("username", "min=3,max=100")
}

func validate() *validator.Validate {
	stdOnce.Do(func() {
		std = validator.New()
		std.SetTagName("binding")
		register(std)
	})
	return std
}

// ValidatePassword applies the password complexity policy.
func ValidatePassword(pw string) error {
	if err := validate().Var(pw, "strongpwd"); err != nil {
		return ErrPasswordPolicy
	}
	return nil
}

// Struct validates v using its binding tags, outside of a gin request.
func Struct(v any) error {
	return validate().Struct(v)
}

// ToDetails converts validation/binding errors into a map[field]message suitable for API error.details.
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	// Invalid JSON payloads
	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	if errors.As(err, &se) {
		return map[string]string{"payload": "invalid json"}
	}
	if errors.As(err, &ute) {
		field := ute.Field
		if field == "" {
			field = "payload"
		}
		return map[string]string{field: "must be a " + ute.Type.String()}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fieldPath(fe)] = formatFieldError(fe)
		}
		return out
	}

	return map[string]string{"payload": "invalid payload"}
}

// FieldError is one failed field with its caller-facing message.
type FieldError struct {
	Field   string
	Tag     string
	Message string
}

// Fields flattens validator errors in field order; other errors yield nil.
func Fields(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fieldPath(fe), Tag: fe.Tag(), Message: formatFieldError(fe)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// fieldPath drops the root struct name so nested fields read "pomodoroSettings.workDuration".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func formatFieldError(fe validator.FieldError) string {
	param := fe.Param()
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_with":
		return "is required when " + param + " is present"
	case "email":
		return "must be a valid email"
	case "url":
		return "must be a valid URL"
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(param, " ", ", ")
	case "strongpwd":
		return ErrPasswordPolicy.Error()
	case "username":
		return "must be between 3 and 100 characters"
	case "min":
		if isLengthKind(fe.Kind()) {
			return "must be at least " + param + " characters"
		}
		return "must be greater than or equal to " + param
	case "max":
		if isLengthKind(fe.Kind()) {
			return "must be at most " + param + " characters"
		}
		return "must be less than or equal to " + param
	case "len":
		return "must be exactly " + param + " characters"
	case "gte":
		return "must be greater than or equal to " + param
	case "lte":
		return "must be less than or equal to " + param
	case "boolean":
		return "must be a boolean"
	default:
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
}

func isLengthKind(k reflect.Kind) bool {
	switch k {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return true
	}
	return false
}

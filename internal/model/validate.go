// Package model holds the records exchanged with clients and stored in the
// practice database, with their validation and normalization rules.
package model

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	capRe       = regexp.MustCompile(`^\d{5}$`)
	provinciaRe = regexp.MustCompile(`^[A-Z]{2}$`)
	phoneSepRe  = regexp.MustCompile(`[\s\-().]`)
	phoneRe     = regexp.MustCompile(`^(\+39|0039)?[0-9]{8,10}$`)
	codeRe      = regexp.MustCompile(`^[A-Z0-9\-_]+$`)
	nameRe      = regexp.MustCompile(`^[A-Za-zÀ-ÿ\s'-]+$`)
)

// ruleMessages are the client-facing messages of the custom rules.
var ruleMessages = map[string]string{
	"cap":         "CAP deve essere di 5 cifre",
	"provincia":   "Provincia deve essere di 2 lettere maiuscole",
	"phone":       "Numero di telefono non valido",
	"code":        "Codice può contenere solo lettere maiuscole, numeri, trattini e underscore",
	"person_name": "Nome e cognome possono contenere solo lettere, spazi, apostrofi e trattini",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("binding")
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	rules := map[string]func(string) bool{
		"cap":         capRe.MatchString,
		"provincia":   func(s string) bool { return provinciaRe.MatchString(strings.ToUpper(s)) },
		"phone":       func(s string) bool { return phoneRe.MatchString(phoneSepRe.ReplaceAllString(s, "")) },
		"code":        func(s string) bool { return codeRe.MatchString(strings.ToUpper(s)) },
		"person_name": nameRe.MatchString,
	}
	for tag, ok := range rules {
		ok := ok
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return ok(fl.Field().String())
		}); err != nil {
			panic(fmt.Sprintf("registering %s validation: %v", tag, err))
		}
	}
	return v
}

// Validate checks v against its binding tags.
func Validate(v any) error {
	return validate.Struct(v)
}

// Messages flattens a Validate error into field -> messages. Errors that are
// not validation errors are reported under "body".
func Messages(err error) map[string][]string {
	out := make(map[string][]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["body"] = []string{err.Error()}
		return out
	}
	for _, fe := range verrs {
		out[fe.Field()] = append(out[fe.Field()], message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	if msg, ok := ruleMessages[fe.Tag()]; ok {
		return msg
	}
	switch fe.Tag() {
	case "required":
		return "campo obbligatorio"
	case "max":
		return fmt.Sprintf("massimo %s caratteri", fe.Param())
	case "min":
		return fmt.Sprintf("minimo %s caratteri", fe.Param())
	case "len":
		return fmt.Sprintf("deve essere di %s caratteri", fe.Param())
	case "gte":
		return fmt.Sprintf("deve essere maggiore o uguale a %s", fe.Param())
	case "email":
		return "indirizzo email non valido"
	}
	return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
}

// ── Normalization helpers ────────────────────────────────────────────────

// blankToNil turns a pointer to a blank string into nil.
func blankToNil(s **string) {
	if *s != nil && strings.TrimSpace(**s) == "" {
		*s = nil
	}
}

func upper(s *string) {
	if s != nil {
		*s = strings.ToUpper(*s)
	}
}

// title capitalizes every word, restarting after each apostrophe so that
// "o'brien" becomes "O'Brien" and "dell'acqua" becomes "Dell'Acqua".
func title(s *string) {
	if s == nil || *s == "" {
		return
	}
	caser := cases.Title(language.Italian)
	parts := strings.Split(*s, "'")
	for i, part := range parts {
		parts[i] = caser.String(part)
	}
	*s = strings.Join(parts, "'")
}

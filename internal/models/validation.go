package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var validate = newValidator()

// requiredMessages names each mandatory field the way the forms do
var requiredMessages = map[string]string{
	"data_publicacao": "data é obrigatória",
	"link":            "link é obrigatório",
	"tema":            "tema é obrigatório",
	"texto":           "texto é obrigatório",
	"destinatario":    "destinatário é obrigatório",
	"data_envio":      "data de envio é obrigatória",
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

// Validate applies the publication form rules
func (in PublicationInput) Validate() error {
	return check(in)
}

// Validate applies the publication form rules to the fields present in the patch
func (p PublicationPatch) Validate() error {
	if p.IsEmpty() {
		return ValidationError("nenhum campo para atualizar")
	}
	return check(p)
}

// ValidatePublications checks a batch; it must hold at least one publication
func ValidatePublications(inputs []PublicationInput) error {
	if err := validate.Var(inputs, "min=1"); err != nil {
		return ValidationError("adicione pelo menos uma publicação")
	}
	for i, in := range inputs {
		if err := in.Validate(); err != nil {
			return fmt.Errorf("publicação %d: %w", i+1, err)
		}
	}
	return nil
}

// Validate checks the fields an email needs to be stored
func (in EmailInput) Validate() error {
	return check(in)
}

// ValidateEmails checks a batch; it must hold at least one email
func ValidateEmails(inputs []EmailInput) error {
	if err := validate.Var(inputs, "min=1"); err != nil {
		return ValidationError("adicione pelo menos um email")
	}
	for i, in := range inputs {
		if err := in.Validate(); err != nil {
			return fmt.Errorf("email %d: %w", i+1, err)
		}
	}
	return nil
}

func check(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationError(err.Error())
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, describe(fe))
	}
	return validationError(problems)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank", "min":
		if msg, ok := requiredMessages[fe.Field()]; ok {
			return msg
		}
		return fe.Field() + " é obrigatório"
	case "max":
		return fmt.Sprintf("%s deve ter no máximo %s caracteres", fe.Field(), fe.Param())
	case "http_url":
		return fe.Field() + " inválido"
	default:
		return fmt.Sprintf("%s inválido (%s)", fe.Field(), fe.Tag())
	}
}

// ValidationError wraps a single problem description in ErrValidation
func ValidationError(problem string) error {
	return validationError([]string{problem})
}

func validationError(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, ", "))
}

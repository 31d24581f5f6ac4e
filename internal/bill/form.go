package bill

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// FormValues holds the raw field values of the new bill form
type FormValues struct {
	Type       string `validate:"omitempty,category"`
	Name       string
	Date       string `validate:"omitempty,datetime=2006-01-02"`
	Amount     string `validate:"omitempty,numeric"`
	VAT        string `validate:"omitempty,numeric"`
	Pct        string
	Commentary string
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return IsCategory(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// ValidateForm checks that the filled-in form values conform to their types.
// Blank fields pass. It returns a *FormError naming every failing field.
func ValidateForm(form FormValues) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return &FormError{Fields: fields}
}

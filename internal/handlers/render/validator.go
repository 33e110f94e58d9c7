package render

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mbertoldo/finbook/internal/models"
)

func configureValidator(validate *validator.Validate) {
	_ = validate.RegisterValidation("invoicetype", validateInvoiceType)
	validate.RegisterTagNameFunc(useJSONTagNames)
}

// Report errors on 'json' tag name instead of struct field name
func useJSONTagNames(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	// skip if tag key says it should be ignored
	if name == "-" {
		return ""
	}
	return name
}

func validateInvoiceType(fl validator.FieldLevel) bool {
	return models.ValidInvoiceType(fl.Field().String())
}

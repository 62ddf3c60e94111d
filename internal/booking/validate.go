package booking

import (
	"regexp"
	"strings"

	"ms-booking/internal/models"

	"github.com/go-playground/validator/v10"
)

var mobilePattern = regexp.MustCompile(`^(0|\+84)(3|5|7|8|9)\d{8}$`)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("vnmobile", func(fl validator.FieldLevel) bool {
		return mobilePattern.MatchString(fl.Field().String())
	})
	return v
}

func normalizeContact(c models.Contact) models.Contact {
	return models.Contact{
		FullName: strings.TrimSpace(c.FullName),
		Phone:    strings.ReplaceAll(strings.TrimSpace(c.Phone), " ", ""),
		Email:    strings.TrimSpace(c.Email),
		Notes:    strings.TrimSpace(c.Notes),
	}
}

// describeValidation turns validator errors into a short field list.
func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field())+" ("+fe.Tag()+")")
	}
	return strings.Join(fields, ", ")
}

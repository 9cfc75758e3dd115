package validator

import (
	"fmt"
	"strings"

	playground "github.com/go-playground/validator/v10"
)

// Validator provides struct and field validation
type Validator interface {
	Validate(interface{}) error
	ValidateEmail(email string) error
}

type validator struct {
	v *playground.Validate
}

func New() Validator {
	return &validator{
		v: playground.New(playground.WithRequiredStructEnabled()),
	}
}

func (vl *validator) Validate(obj interface{}) error {
	if err := vl.v.Struct(obj); err != nil {
		var errs playground.ValidationErrors
		if ok := asValidationErrors(err, &errs); ok && len(errs) > 0 {
			fe := errs[0]
			return fmt.Errorf("%s failed on %s", strings.ToLower(fe.Field()), fe.Tag())
		}
		return err
	}
	return nil
}

func (vl *validator) ValidateEmail(email string) error {
	if err := vl.v.Var(email, "required,email"); err != nil {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

func asValidationErrors(err error, target *playground.ValidationErrors) bool {
	ve, ok := err.(playground.ValidationErrors)
	if ok {
		*target = ve
	}
	return ok
}

// Package validation validates order input with go-playground/validator and
// a set of FIX code table tags, reporting failures as typed field errors.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	apperrors "github.com/Aidin1998/pincex_gateway/pkg/errors"
)

// Custom validation tags
const (
	TagOrderID      = "order_id"
	TagSide         = "fix_side"
	TagOrderType    = "fix_ord_type"
	TagTimeInForce  = "fix_tif"
	TagSecureString = "secure_string"
)

var (
	sides        = []string{"1", "2", "5"}
	orderTypes   = []string{"1", "2", "3", "4", "K", "P"}
	timeInForces = []string{"0", "1", "2", "3", "4", "5", "6", "7"}

	orderIDPattern = regexp.MustCompile(`^[A-Za-z0-9.:\-]+$`)
)

// Validator validates structs tagged with the gateway's custom tags
type Validator struct {
	validator *validator.Validate
	logger    *zap.Logger
	sanitizer *bluemonday.Policy
}

// NewValidator creates a validator with the custom tags registered
func NewValidator(logger *zap.Logger) *Validator {
	v := &Validator{
		validator: validator.New(),
		logger:    logger.Named("validation"),
		sanitizer: bluemonday.StrictPolicy(),
	}
	v.registerCustomValidators()
	return v
}

func (v *Validator) registerCustomValidators() {
	oneOf := func(values []string) validator.Func {
		return func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			for _, value := range values {
				if s == value {
					return true
				}
			}
			return false
		}
	}

	// The request id separator is reserved.
	v.mustRegister(TagOrderID, func(fl validator.FieldLevel) bool {
		return orderIDPattern.MatchString(fl.Field().String())
	})
	v.mustRegister(TagSide, oneOf(sides))
	v.mustRegister(TagOrderType, oneOf(orderTypes))
	v.mustRegister(TagTimeInForce, oneOf(timeInForces))
	v.mustRegister(TagSecureString, func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return v.sanitizer.Sanitize(s) == s && !strings.ContainsAny(s, "\x00\r\n")
	})
}

func (v *Validator) mustRegister(tag string, fn validator.Func) {
	if err := v.validator.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %s: %v", tag, err))
	}
}

// ValidateStruct validates every tagged field of s
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.convert(v.validator.Struct(s))
}

// ValidatePartial validates only the named fields of s
func (v *Validator) ValidatePartial(s interface{}, fields ...string) error {
	return v.convert(v.validator.StructPartial(s, fields...))
}

func (v *Validator) convert(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.InvalidOrder.Explain("validation failed").Wrap(err)
	}

	fields := make([]apperrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperrors.NewFieldError(apperrors.KindInvalidField, fe.Field(), errorMessage(fe)))
	}
	v.logger.Debug("Validation failed", zap.Int("fields", len(fields)), zap.String("first", fields[0].Message))
	return apperrors.InvalidOrder.
		Explain("validation failed: %s", fields[0].Message).
		WithFields(fields)
}

func errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case TagOrderID:
		return fmt.Sprintf("%s may only contain letters, digits, '.', ':' and '-'", fe.Field())
	case TagSide:
		return fmt.Sprintf("%s must be one of %s", fe.Field(), strings.Join(sides, ", "))
	case TagOrderType:
		return fmt.Sprintf("%s must be one of %s", fe.Field(), strings.Join(orderTypes, ", "))
	case TagTimeInForce:
		return fmt.Sprintf("%s must be one of %s", fe.Field(), strings.Join(timeInForces, ", "))
	case TagSecureString:
		return fmt.Sprintf("%s contains invalid characters", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

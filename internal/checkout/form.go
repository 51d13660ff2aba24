// Package checkout holds the checkout form model: field masking and per-step validation.
package checkout

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/clickora/storefront/internal/domain"
)

// DefaultCountry pre-fills the shipping form.
const DefaultCountry = "United States"

var (
	// ErrInvalidShipping indicates missing required shipping fields.
	ErrInvalidShipping = errors.New("checkout: shipping information incomplete")
	// ErrInvalidPayment indicates missing or malformed payment details.
	ErrInvalidPayment = errors.New("checkout: payment information incomplete")
)

// PaymentMethod enumerates accepted payment methods.
type PaymentMethod string

const (
	PaymentCard     PaymentMethod = "card"
	PaymentPayPal   PaymentMethod = "paypal"
	PaymentApplePay PaymentMethod = "apple_pay"
)

// ShippingInfo is the first checkout step.
type ShippingInfo struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required"`
	Phone     string `json:"phone"`
	Address   string `json:"address" validate:"required"`
	City      string `json:"city" validate:"required"`
	State     string `json:"state" validate:"required"`
	ZipCode   string `json:"zip_code" validate:"required"`
	Country   string `json:"country"`
}

// NewShippingInfo pre-fills the form from the signed-in user, if any.
func NewShippingInfo(user *domain.User) ShippingInfo {
	info := ShippingInfo{Country: DefaultCountry}
	if user != nil {
		info.FirstName = user.FirstName
		info.LastName = user.LastName
		info.Email = user.Email
		info.Phone = user.Phone
	}
	return info
}

// PaymentInfo is the second checkout step. Card fields are only consulted for card payments.
type PaymentInfo struct {
	Method     PaymentMethod `json:"method" validate:"required,oneof=card paypal apple_pay"`
	CardNumber string        `json:"card_number"`
	ExpiryDate string        `json:"expiry_date"`
	CVV        string        `json:"cvv"`
	NameOnCard string        `json:"name_on_card"`
}

// NewPaymentInfo returns the default payment form.
func NewPaymentInfo() PaymentInfo {
	return PaymentInfo{Method: PaymentCard}
}

// Masked applies the input masks to the card fields.
func (p PaymentInfo) Masked() PaymentInfo {
	p.CardNumber = FormatCardNumber(p.CardNumber)
	p.ExpiryDate = FormatExpiryDate(p.ExpiryDate)
	p.CVV = DigitsOnly(p.CVV)
	return p
}

// Description is the review-step summary of the payment method.
func (p PaymentInfo) Description() string {
	switch p.Method {
	case PaymentCard:
		return "Credit Card ending in " + LastFour(p.CardNumber)
	case PaymentPayPal:
		return "PayPal"
	case PaymentApplePay:
		return "Apple Pay"
	default:
		return string(p.Method)
	}
}

type cardFields struct {
	CardNumber string `json:"card_number" validate:"mindigits=16"`
	ExpiryDate string `json:"expiry_date" validate:"min=5"`
	CVV        string `json:"cvv" validate:"mindigits=3"`
	NameOnCard string `json:"name_on_card" validate:"required"`
}

// ValidationError lists the offending fields.
type ValidationError struct {
	Err    error
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validator checks checkout steps.
type Validator struct {
	validate *validator.Validate
}

// NewValidator builds a Validator with the checkout-specific rules registered.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("mindigits", func(fl validator.FieldLevel) bool {
		want, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(DigitsOnly(fl.Field().String())) >= want
	})
	return &Validator{validate: v}
}

// Shipping validates the first step.
func (v *Validator) Shipping(info ShippingInfo) error {
	return v.check(ErrInvalidShipping, trimShipping(info))
}

// Payment validates the second step.
func (v *Validator) Payment(info PaymentInfo) error {
	if err := v.check(ErrInvalidPayment, info); err != nil {
		return err
	}
	if info.Method != PaymentCard {
		return nil
	}
	return v.check(ErrInvalidPayment, cardFields{
		CardNumber: info.CardNumber,
		ExpiryDate: strings.TrimSpace(info.ExpiryDate),
		CVV:        info.CVV,
		NameOnCard: strings.TrimSpace(info.NameOnCard),
	})
}

func (v *Validator) check(sentinel error, value any) error {
	err := v.validate.Struct(value)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", sentinel, err)
	}
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fe.Field())
	}
	sort.Strings(fields)
	return &ValidationError{Err: sentinel, Fields: fields}
}

func trimShipping(info ShippingInfo) ShippingInfo {
	info.FirstName = strings.TrimSpace(info.FirstName)
	info.LastName = strings.TrimSpace(info.LastName)
	info.Email = strings.TrimSpace(info.Email)
	info.Address = strings.TrimSpace(info.Address)
	info.City = strings.TrimSpace(info.City)
	info.State = strings.TrimSpace(info.State)
	info.ZipCode = strings.TrimSpace(info.ZipCode)
	return info
}

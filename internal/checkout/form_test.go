package checkout

import (
	"errors"
	"reflect"
	"testing"

	"github.com/clickora/storefront/internal/domain"
)

func TestFormatCardNumber(t *testing.T) {
	cases := map[string]string{
		"4111111111111111":      "4111 1111 1111 1111",
		"4111-1111-1111-1111":   "4111 1111 1111 1111",
		"41111111111111119999":  "4111 1111 1111 1111",
		"411111":                "4111 11",
		"41":                    "41",
		"12a":                   "12",
		"1 2 3":                 "123",
		"":                      "",
		"4111 1111 1111 1111 ": "4111 1111 1111 1111",
	}
	for in, want := range cases {
		if got := FormatCardNumber(in); got != want {
			t.Fatalf("FormatCardNumber(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatExpiryDate(t *testing.T) {
	cases := map[string]string{
		"1225":   "12/25",
		"12/25":  "12/25",
		"122599": "12/25",
		"1":      "1",
		"12":     "12/",
	}
	for in, want := range cases {
		if got := FormatExpiryDate(in); got != want {
			t.Fatalf("FormatExpiryDate(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDigitsOnlyAndLastFour(t *testing.T) {
	if got := DigitsOnly("1a2b3"); got != "123" {
		t.Fatalf("unexpected digits %q", got)
	}
	if got := LastFour("4111 1111 1111 1234"); got != "1234" {
		t.Fatalf("unexpected last four %q", got)
	}
}

func validShipping() ShippingInfo {
	return ShippingInfo{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
		Address: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62701",
		Country: DefaultCountry,
	}
}

func TestValidatorShipping(t *testing.T) {
	v := NewValidator()
	if err := v.Shipping(validShipping()); err != nil {
		t.Fatalf("expected valid shipping, got %v", err)
	}

	info := validShipping()
	info.City = "  "
	info.ZipCode = ""
	err := v.Shipping(info)
	if !errors.Is(err, ErrInvalidShipping) {
		t.Fatalf("expected ErrInvalidShipping, got %v", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if !reflect.DeepEqual(verr.Fields, []string{"city", "zip_code"}) {
		t.Fatalf("unexpected fields %v", verr.Fields)
	}
}

func TestValidatorPayment(t *testing.T) {
	v := NewValidator()
	card := PaymentInfo{
		Method:     PaymentCard,
		CardNumber: "4111 1111 1111 1111",
		ExpiryDate: "12/25",
		CVV:        "123",
		NameOnCard: "Ada Lovelace",
	}
	if err := v.Payment(card); err != nil {
		t.Fatalf("expected valid card, got %v", err)
	}

	short := card
	short.CardNumber = "4111 1111 1111"
	short.CVV = "12"
	err := v.Payment(short)
	var verr *ValidationError
	if !errors.As(err, &verr) || !errors.Is(err, ErrInvalidPayment) {
		t.Fatalf("expected payment validation error, got %v", err)
	}
	if !reflect.DeepEqual(verr.Fields, []string{"card_number", "cvv"}) {
		t.Fatalf("unexpected fields %v", verr.Fields)
	}

	if err := v.Payment(PaymentInfo{Method: PaymentPayPal}); err != nil {
		t.Fatalf("paypal requires no card details, got %v", err)
	}
	if err := v.Payment(PaymentInfo{Method: "bitcoin"}); !errors.Is(err, ErrInvalidPayment) {
		t.Fatalf("expected unknown method to fail, got %v", err)
	}
}

func TestPrefillAndDescription(t *testing.T) {
	info := NewShippingInfo(&domain.User{FirstName: "Demo", LastName: "User", Email: "demo@clickora.com", Phone: "+1 (555) 123-4567"})
	if info.FirstName != "Demo" || info.Email != "demo@clickora.com" || info.Country != DefaultCountry {
		t.Fatalf("unexpected prefill %+v", info)
	}
	if NewShippingInfo(nil).Country != DefaultCountry {
		t.Fatalf("expected default country for guests")
	}

	masked := PaymentInfo{Method: PaymentCard, CardNumber: "4111111111114242", ExpiryDate: "0727", CVV: "9a99"}.Masked()
	if masked.CardNumber != "4111 1111 1111 4242" || masked.ExpiryDate != "07/27" || masked.CVV != "999" {
		t.Fatalf("unexpected masked payment %+v", masked)
	}
	if got := masked.Description(); got != "Credit Card ending in 4242" {
		t.Fatalf("unexpected description %q", got)
	}
	if got := (PaymentInfo{Method: PaymentApplePay}).Description(); got != "Apple Pay" {
		t.Fatalf("unexpected description %q", got)
	}
}

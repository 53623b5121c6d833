package checkout

import (
	"testing"

	"github.com/RoyceAzure/lab/assia/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCustomer() model.CustomerInfo {
	return model.CustomerInfo{
		Name:         "Maria Silva",
		Email:        "maria@example.com",
		Phone:        "617-555-0100",
		Street:       "Main St",
		HouseNumber:  "12",
		Neighborhood: "Allston",
		City:         "Boston",
		State:        "MA",
		PostalCode:   "02134",
	}
}

func validPayment() model.PaymentCapture {
	return model.PaymentCapture{
		CardholderName: "MARIA SILVA",
		CardNumber:     "4111111111111111",
		Expiry:         "12/29",
		CVV:            "123",
	}
}

func TestValidateCustomer(t *testing.T) {
	assert.True(t, ValidateCustomer(validCustomer()).Empty())

	c := validCustomer()
	c.City = "   "
	c.Email = ""
	errs := ValidateCustomer(c)
	assert.Equal(t, FieldErrors{FieldCity: MsgRequired, FieldEmail: MsgRequired}, errs)

	errs = ValidateCustomer(model.CustomerInfo{})
	assert.Len(t, errs, 9)
}

func TestValidatePayment(t *testing.T) {
	testCases := []struct {
		name     string
		mutate   func(p *model.PaymentCapture)
		expected FieldErrors
	}{
		{
			name:     "valid",
			mutate:   func(p *model.PaymentCapture) {},
			expected: FieldErrors{},
		},
		{
			name:     "short card number",
			mutate:   func(p *model.PaymentCapture) { p.CardNumber = "41111" },
			expected: FieldErrors{FieldCardNumber: MsgCardLength},
		},
		{
			name:     "expiry wrong length",
			mutate:   func(p *model.PaymentCapture) { p.Expiry = "1/29" },
			expected: FieldErrors{FieldExpiry: MsgExpiryLength},
		},
		{
			name:     "expiry wrong pattern",
			mutate:   func(p *model.PaymentCapture) { p.Expiry = "12-29" },
			expected: FieldErrors{FieldExpiry: MsgExpiryPattern},
		},
		{
			// 月份不檢查
			name:     "month not checked",
			mutate:   func(p *model.PaymentCapture) { p.Expiry = "13/99" },
			expected: FieldErrors{},
		},
		{
			name:     "cvv too short",
			mutate:   func(p *model.PaymentCapture) { p.CVV = "12" },
			expected: FieldErrors{FieldCVV: MsgCVVLength},
		},
		{
			name:     "cardholder required",
			mutate:   func(p *model.PaymentCapture) { p.CardholderName = " " },
			expected: FieldErrors{FieldCardholderName: MsgRequired},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := validPayment()
			tc.mutate(&p)
			assert.Equal(t, tc.expected, ValidatePayment(p))
		})
	}
}

func TestFilterPaymentInput(t *testing.T) {
	testCases := []struct {
		field    string
		value    string
		expected string
	}{
		{field: FieldCardNumber, value: "4111 1111-1111 1111", expected: "4111111111111111"},
		{field: FieldCardNumber, value: "41111111111111119999", expected: "4111111111111111"},
		{field: FieldCVV, value: "1a2b3c4", expected: "123"},
		{field: FieldExpiry, value: "12/2030", expected: "12/20"},
		{field: FieldCardholderName, value: "Maria 2", expected: "Maria 2"},
	}

	for _, tc := range testCases {
		t.Run(tc.field+"/"+tc.value, func(t *testing.T) {
			got, err := FilterPaymentInput(tc.field, tc.value)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}

	_, err := FilterPaymentInput("pin", "1234")
	assert.ErrorIs(t, err, ErrUnknownField)
}

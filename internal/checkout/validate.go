package checkout

import (
	"errors"
	"regexp"
	"strings"

	"github.com/RoyceAzure/lab/assia/internal/domain/model"
)

var (
	ErrInvalidFields = errors.New("invalid fields")
	ErrUnknownField  = errors.New("unknown field")
	ErrWrongStep     = errors.New("operation not allowed in current step")
)

const (
	FieldName         = "name"
	FieldEmail        = "email"
	FieldPhone        = "phone"
	FieldStreet       = "street"
	FieldHouseNumber  = "house_number"
	FieldNeighborhood = "neighborhood"
	FieldCity         = "city"
	FieldState        = "state"
	FieldPostalCode   = "postal_code"

	FieldCardholderName = "cardholder_name"
	FieldCardNumber     = "card_number"
	FieldExpiry         = "expiry"
	FieldCVV            = "cvv"
)

const (
	MsgRequired      = "Campo obrigatório."
	MsgCardLength    = "O cartão deve ter exatamente 16 números."
	MsgExpiryLength  = "Use o formato MM/AA (5 caracteres)."
	MsgExpiryPattern = "Formato inválido. Use MM/AA."
	MsgCVVLength     = "O CVV deve ter exatamente 3 números."
)

const (
	cardNumberLength = 16
	expiryLength     = 5
	cvvLength        = 3
)

// 只檢查格式 MM/AA，不檢查月份是否合法
var expiryPattern = regexp.MustCompile(`^\d{2}/\d{2}$`)

// FieldErrors 欄位名稱 -> 錯誤訊息
type FieldErrors map[string]string

func (e FieldErrors) Empty() bool {
	return len(e) == 0
}

// ValidateCustomer 所有欄位必填，不檢查 email/電話格式
func ValidateCustomer(c model.CustomerInfo) FieldErrors {
	errs := FieldErrors{}
	for field, value := range customerFields(&c) {
		if strings.TrimSpace(*value) == "" {
			errs[field] = MsgRequired
		}
	}
	return errs
}

func ValidatePayment(p model.PaymentCapture) FieldErrors {
	errs := FieldErrors{}

	if strings.TrimSpace(p.CardholderName) == "" {
		errs[FieldCardholderName] = MsgRequired
	}

	if len(p.CardNumber) != cardNumberLength {
		errs[FieldCardNumber] = MsgCardLength
	}

	if len(p.Expiry) != expiryLength {
		errs[FieldExpiry] = MsgExpiryLength
	} else if !expiryPattern.MatchString(p.Expiry) {
		errs[FieldExpiry] = MsgExpiryPattern
	}

	if len(p.CVV) != cvvLength {
		errs[FieldCVV] = MsgCVVLength
	}

	return errs
}

// FilterPaymentInput 模擬輸入框行為
// 卡號與CVV只保留數字，並依欄位長度截斷
func FilterPaymentInput(field, value string) (string, error) {
	switch field {
	case FieldCardNumber:
		return truncate(digitsOnly(value), cardNumberLength), nil
	case FieldCVV:
		return truncate(digitsOnly(value), cvvLength), nil
	case FieldExpiry:
		return truncate(value, expiryLength), nil
	case FieldCardholderName:
		return value, nil
	default:
		return "", ErrUnknownField
	}
}

func digitsOnly(value string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, value)
}

func truncate(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max])
}

func customerFields(c *model.CustomerInfo) map[string]*string {
	return map[string]*string{
		FieldName:         &c.Name,
		FieldEmail:        &c.Email,
		FieldPhone:        &c.Phone,
		FieldStreet:       &c.Street,
		FieldHouseNumber:  &c.HouseNumber,
		FieldNeighborhood: &c.Neighborhood,
		FieldCity:         &c.City,
		FieldState:        &c.State,
		FieldPostalCode:   &c.PostalCode,
	}
}

func paymentField(p *model.PaymentCapture, field string) (*string, error) {
	switch field {
	case FieldCardholderName:
		return &p.CardholderName, nil
	case FieldCardNumber:
		return &p.CardNumber, nil
	case FieldExpiry:
		return &p.Expiry, nil
	case FieldCVV:
		return &p.CVV, nil
	default:
		return nil, ErrUnknownField
	}
}

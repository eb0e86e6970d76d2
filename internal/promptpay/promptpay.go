// Package promptpay builds EMVCo merchant-presented QR payloads for the Thai
// PromptPay system. The payload is a flat TLV string (2-digit id, 2-digit
// length, value) terminated by a CRC-16/CCITT-FALSE checksum field.
package promptpay

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// EMVCo field ids.
const (
	idPayloadFormat       = "00"
	idPointOfInitiation   = "01"
	idMerchantAccountInfo = "29"
	idCurrency            = "53"
	idAmount              = "54"
	idCountryCode         = "58"
	idCRC                 = "63"
)

// Merchant account info sub-field ids.
const (
	subIDAID        = "00"
	subIDPhone      = "01"
	subIDNationalID = "02"
)

const (
	aidPromptPay       = "A000000677010111"
	currencyTHB        = "764"
	countryTH          = "TH"
	initiationStatic   = "11"
	initiationDynamic  = "12"
	payloadFormatEMVCo = "01"
)

var (
	ErrInvalidTarget = errors.New("promptpay id must be a phone number or a 13-digit national id")
	ErrInvalidAmount = errors.New("amount must be positive")
)

// Builder generates payloads for a fixed receiving account.
type Builder struct {
	target string
	sub    string
}

// NewBuilder validates and normalizes the receiving account id. Phone numbers
// are accepted as 0812345678, +66812345678 or 66812345678; national ids as 13
// digits.
func NewBuilder(id string) (*Builder, error) {
	target, sub, err := normalizeTarget(id)
	if err != nil {
		return nil, err
	}
	return &Builder{target: target, sub: sub}, nil
}

// Static returns a payload with no amount. The payer fills in the amount.
func (b *Builder) Static() string {
	return b.build(decimal.Zero, false)
}

// Amount returns a dynamic payload with the given amount embedded.
func (b *Builder) Amount(amount decimal.Decimal) (string, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return "", ErrInvalidAmount
	}
	return b.build(amount, true), nil
}

func (b *Builder) build(amount decimal.Decimal, withAmount bool) string {
	initiation := initiationStatic
	if withAmount {
		initiation = initiationDynamic
	}

	account := tlv(subIDAID, aidPromptPay) + tlv(b.sub, b.target)

	var sb strings.Builder
	sb.WriteString(tlv(idPayloadFormat, payloadFormatEMVCo))
	sb.WriteString(tlv(idPointOfInitiation, initiation))
	sb.WriteString(tlv(idMerchantAccountInfo, account))
	sb.WriteString(tlv(idCurrency, currencyTHB))
	if withAmount {
		sb.WriteString(tlv(idAmount, amount.StringFixed(2)))
	}
	sb.WriteString(tlv(idCountryCode, countryTH))

	// The CRC covers everything up to and including its own id and length.
	payload := sb.String() + idCRC + "04"
	return payload + fmt.Sprintf("%04X", crc16(payload))
}

func tlv(id, value string) string {
	return fmt.Sprintf("%s%02d%s", id, len(value), value)
}

// normalizeTarget maps the configured id to the wire format: phone numbers
// become 0066 plus the number without its leading zero, national ids pass
// through as 13 digits.
func normalizeTarget(id string) (target, sub string, err error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, id)

	switch {
	case len(digits) == 10 && strings.HasPrefix(digits, "0"):
		return "0066" + digits[1:], subIDPhone, nil
	case len(digits) == 11 && strings.HasPrefix(digits, "66"):
		return "00" + digits, subIDPhone, nil
	case len(digits) == 13 && !strings.HasPrefix(digits, "0066"):
		return digits, subIDNationalID, nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrInvalidTarget, id)
	}
}

// crc16 is CRC-16/CCITT-FALSE: polynomial 0x1021, initial value 0xFFFF.
func crc16(s string) uint16 {
	crc := uint16(0xFFFF)
	for i := 0; i < len(s); i++ {
		crc ^= uint16(s[i]) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

package zap

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Pico base units per unit suffix of an invoice amount.
const (
	PicoPerPico  int64 = 1
	PicoPerNano  int64 = 1_000
	PicoPerMicro int64 = 1_000_000
	PicoPerMilli int64 = 1_000_000_000
	PicoPerUnit  int64 = 1_000_000_000_000
)

var (
	ErrNoAmount = errors.New("invoice carries no amount")
	ErrOverflow = errors.New("invoice amount out of range")
)

var multipliers = map[string]int64{
	"":  PicoPerUnit,
	"m": PicoPerMilli,
	"u": PicoPerMicro,
	"n": PicoPerNano,
	"p": PicoPerPico,
}

// the amount sits between the network prefix and the bech32 separator, the
// data part only uses the bech32 charset
var invoiceAmount = regexp.MustCompile(
	`^ln(?:bcrt|bc|tbs|tb|sb)(\d+)([munp]?)(?:1[qpzry9x8gf2tvdw0s3jn54khce6mua7l]*)?$`)

// ParseInvoiceAmount returns the amount of a bolt11 invoice in pico base
// units. An amount without a unit suffix is in whole base units.
func ParseInvoiceAmount(bolt11 string) (pico int64, err error) {
	m := invoiceAmount.FindStringSubmatch(strings.ToLower(strings.TrimSpace(bolt11)))
	if m == nil {
		return 0, ErrNoAmount
	}
	var n int64
	if n, err = strconv.ParseInt(m[1], 10, 64); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrOverflow, m[1])
	}
	mult := multipliers[m[2]]
	if n > math.MaxInt64/mult {
		return 0, fmt.Errorf("%w: %s%s", ErrOverflow, m[1], m[2])
	}
	return n * mult, nil
}

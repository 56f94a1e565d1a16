// Package payment builds VietQR bank-transfer codes for checkout. It only
// prepares transfer parameters; settlement is out of its hands.
package payment

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Bank is a VietQR participant, keyed by its short code.
type Bank struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	AcqID string `json:"acqId"`
}

var banks = map[string]Bank{
	"mbbank":      {Code: "mbbank", Name: "MB Bank", AcqID: "970422"},
	"vietinbank":  {Code: "vietinbank", Name: "VietinBank", AcqID: "970415"},
	"vietcombank": {Code: "vietcombank", Name: "Vietcombank", AcqID: "970436"},
}

func LookupBank(code string) (Bank, bool) {
	b, ok := banks[strings.ToLower(code)]
	return b, ok
}

// SupportedBanks lists every known bank ordered by code.
func SupportedBanks() []Bank {
	out := make([]Bank, 0, len(banks))
	for _, b := range banks {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

var upper = cases.Upper(language.Vietnamese)

// transferText strips Vietnamese diacritics. Bank transfer memos and
// account holder names are plain ASCII on the wire.
func transferText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.NewReplacer("đ", "d", "Đ", "D").Replace(out)
	return strings.Join(strings.Fields(out), " ")
}

// accountHolder normalises a holder name the way banks print it.
func accountHolder(s string) string {
	return transferText(upper.String(s))
}

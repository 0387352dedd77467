package balance

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	smallNumbers = [...]string{
		"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine",
		"ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen",
		"seventeen", "eighteen", "nineteen",
	}
	tensNames = [...]string{"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy", "eighty", "ninety"}
)

// AmountInWords spells a rupee amount using Indian numbering, e.g.
// "Rupees One Lakh Twenty Thousand and Fifty Paise Only". The sign is dropped.
func AmountInWords(amount decimal.Decimal) string {
	amount = amount.Abs().Round(2)
	rupees := amount.IntPart()
	paise := amount.Sub(decimal.NewFromInt(rupees)).Shift(2).IntPart()

	title := cases.Title(language.English)
	var b strings.Builder
	b.WriteString("Rupees ")
	b.WriteString(title.String(indianWords(rupees)))
	if paise > 0 {
		b.WriteString(" and ")
		b.WriteString(title.String(indianWords(paise)))
		b.WriteString(" Paise")
	}
	b.WriteString(" Only")
	return b.String()
}

func indianWords(n int64) string {
	if n == 0 {
		return smallNumbers[0]
	}
	var parts []string
	if crore := n / 10_000_000; crore > 0 {
		parts = append(parts, indianWords(crore), "crore")
		n %= 10_000_000
	}
	if lakh := n / 100_000; lakh > 0 {
		parts = append(parts, belowHundred(lakh), "lakh")
		n %= 100_000
	}
	if thousand := n / 1000; thousand > 0 {
		parts = append(parts, belowHundred(thousand), "thousand")
		n %= 1000
	}
	if hundred := n / 100; hundred > 0 {
		parts = append(parts, smallNumbers[hundred], "hundred")
		n %= 100
	}
	if n > 0 {
		parts = append(parts, belowHundred(n))
	}
	return strings.Join(parts, " ")
}

func belowHundred(n int64) string {
	if n < 20 {
		return smallNumbers[n]
	}
	if n%10 == 0 {
		return tensNames[n/10]
	}
	return tensNames[n/10] + " " + smallNumbers[n%10]
}

var indianEnglish = language.MustParse("en-IN")

// FormatMoney renders amount with two decimals and lakh/crore grouping,
// e.g. FormatMoney("₹", 1234567.5) is "₹12,34,567.50".
func FormatMoney(symbol string, amount decimal.Decimal) string {
	amount = amount.Round(2)
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}
	fixed := amount.StringFixed(2)
	_, frac, _ := strings.Cut(fixed, ".")
	whole := message.NewPrinter(indianEnglish).Sprintf("%d", amount.IntPart())
	return sign + symbol + whole + "." + frac
}

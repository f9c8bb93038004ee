package region

import (
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Country 国家/地区条目
type Country struct {
	Code     string `json:"code"`
	Label    string `json:"label"`
	Currency string `json:"currency"`
	Locale   string `json:"locale"`
}

// DefaultCountry 未知或空输入时的兜底国家
const DefaultCountry = "US"

var countries = []Country{
	{Code: "US", Label: "United States", Currency: "USD", Locale: "en-US"},
	{Code: "GB", Label: "United Kingdom", Currency: "GBP", Locale: "en-GB"},
	{Code: "DE", Label: "Germany", Currency: "EUR", Locale: "de-DE"},
	{Code: "FR", Label: "France", Currency: "EUR", Locale: "fr-FR"},
	{Code: "CA", Label: "Canada", Currency: "CAD", Locale: "en-CA"},
	{Code: "JP", Label: "Japan", Currency: "JPY", Locale: "ja-JP"},
	{Code: "AU", Label: "Australia", Currency: "AUD", Locale: "en-AU"},
	{Code: "BR", Label: "Brazil", Currency: "BRL", Locale: "pt-BR"},
	{Code: "PL", Label: "Poland", Currency: "PLN", Locale: "pl-PL"},
	{Code: "SE", Label: "Sweden", Currency: "SEK", Locale: "sv-SE"},
}

var byCode = func() map[string]Country {
	m := make(map[string]Country, len(countries))
	for _, c := range countries {
		m[c.Code] = c
	}
	return m
}()

// All 返回完整国家表（副本）
func All() []Country {
	out := make([]Country, len(countries))
	copy(out, countries)
	return out
}

// Resolve 大小写不敏感匹配国家码，未知/空输入返回默认国家
func Resolve(code string) Country {
	if c, ok := byCode[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return c
	}
	return byCode[DefaultCountry]
}

// IsKnown 是否为目录中的国家码
func IsKnown(code string) bool {
	_, ok := byCode[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}

// symbolAfter 货币符号放在金额之后（空格分隔）的 locale；其余放在金额前
var symbolAfter = map[string]bool{
	"de-DE": true,
	"fr-FR": true,
	"pl-PL": true,
	"sv-SE": true,
}

// symbolSpaced 符号在前但与金额之间有空格的 locale
var symbolSpaced = map[string]bool{
	"pt-BR": true,
}

// FormatMoney 以国家的 locale 渲染最小货币单位金额，currencyOverride 非空时覆盖币种。
// 小数位：最少为币种标准位数，最多 2 位；分隔符按 locale；空格一律使用普通空格
func FormatMoney(amountMinor int64, countryCode, currencyOverride string) string {
	c := Resolve(countryCode)
	code := c.Currency
	if strings.TrimSpace(currencyOverride) != "" {
		code = strings.ToUpper(strings.TrimSpace(currencyOverride))
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		unit, _ = currency.ParseISO(c.Currency)
	}

	p := message.NewPrinter(language.Make(c.Locale))
	minFrac, _ := currency.Standard.Rounding(unit)
	if minFrac > 2 {
		minFrac = 2
	}
	amount := p.Sprint(number.Decimal(float64(amountMinor)/100,
		number.MinFractionDigits(minFrac),
		number.MaxFractionDigits(2),
	))
	symbol := p.Sprint(currency.Symbol(unit))

	switch {
	case symbolAfter[c.Locale]:
		return amount + " " + symbol
	case symbolSpaced[c.Locale]:
		return symbol + " " + amount
	default:
		return symbol + amount
	}
}

// SuggestFromAcceptLanguage 根据 Accept-Language 头推测国家，取第一个落在目录中的地区
func SuggestFromAcceptLanguage(header string) string {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return DefaultCountry
	}
	for _, tag := range tags {
		r, conf := tag.Region()
		if conf == language.No {
			continue
		}
		if IsKnown(r.String()) {
			return r.String()
		}
	}
	return DefaultCountry
}

package currency

import "strings"

// catalog holds every supported currency in ascending popularity order.
// Ranks are unique; zero-decimal and three-decimal currencies are included
// so formatting and validation cover the full DecimalPlaces range.
var catalog = []Currency{
	{Code: "USD", Symbol: "$", DisplayName: "US Dollar", PopularityRank: 1, DecimalPlaces: 2},
	{Code: "EUR", Symbol: "€", DisplayName: "Euro", PopularityRank: 2, DecimalPlaces: 2},
	{Code: "GBP", Symbol: "£", DisplayName: "British Pound", PopularityRank: 3, DecimalPlaces: 2},
	{Code: "JPY", Symbol: "¥", DisplayName: "Japanese Yen", PopularityRank: 4, DecimalPlaces: 0},
	{Code: "BRL", Symbol: "R$", DisplayName: "Brazilian Real", PopularityRank: 5, DecimalPlaces: 2},
	{Code: "CAD", Symbol: "CA$", DisplayName: "Canadian Dollar", PopularityRank: 6, DecimalPlaces: 2},
	{Code: "AUD", Symbol: "A$", DisplayName: "Australian Dollar", PopularityRank: 7, DecimalPlaces: 2},
	{Code: "CHF", Symbol: "CHF", DisplayName: "Swiss Franc", PopularityRank: 8, DecimalPlaces: 2},
	{Code: "CNY", Symbol: "CN¥", DisplayName: "Chinese Yuan", PopularityRank: 9, DecimalPlaces: 2},
	{Code: "INR", Symbol: "₹", DisplayName: "Indian Rupee", PopularityRank: 10, DecimalPlaces: 2},
	{Code: "MXN", Symbol: "MX$", DisplayName: "Mexican Peso", PopularityRank: 11, DecimalPlaces: 2},
	{Code: "KRW", Symbol: "₩", DisplayName: "South Korean Won", PopularityRank: 12, DecimalPlaces: 0},
	{Code: "SGD", Symbol: "S$", DisplayName: "Singapore Dollar", PopularityRank: 13, DecimalPlaces: 2},
	{Code: "HKD", Symbol: "HK$", DisplayName: "Hong Kong Dollar", PopularityRank: 14, DecimalPlaces: 2},
	{Code: "NOK", Symbol: "kr", DisplayName: "Norwegian Krone", PopularityRank: 15, DecimalPlaces: 2},
	{Code: "SEK", Symbol: "kr", DisplayName: "Swedish Krona", PopularityRank: 16, DecimalPlaces: 2},
	{Code: "DKK", Symbol: "kr", DisplayName: "Danish Krone", PopularityRank: 17, DecimalPlaces: 2},
	{Code: "PLN", Symbol: "zł", DisplayName: "Polish Zloty", PopularityRank: 18, DecimalPlaces: 2},
	{Code: "TRY", Symbol: "₺", DisplayName: "Turkish Lira", PopularityRank: 19, DecimalPlaces: 2},
	{Code: "ILS", Symbol: "₪", DisplayName: "Israeli New Shekel", PopularityRank: 20, DecimalPlaces: 2},
	{Code: "NZD", Symbol: "NZ$", DisplayName: "New Zealand Dollar", PopularityRank: 21, DecimalPlaces: 2},
	{Code: "ZAR", Symbol: "R", DisplayName: "South African Rand", PopularityRank: 22, DecimalPlaces: 2},
	{Code: "ARS", Symbol: "AR$", DisplayName: "Argentine Peso", PopularityRank: 23, DecimalPlaces: 2},
	{Code: "CLP", Symbol: "CLP$", DisplayName: "Chilean Peso", PopularityRank: 24, DecimalPlaces: 0},
	{Code: "VND", Symbol: "₫", DisplayName: "Vietnamese Dong", PopularityRank: 25, DecimalPlaces: 0},
	{Code: "KWD", Symbol: "KD", DisplayName: "Kuwaiti Dinar", PopularityRank: 26, DecimalPlaces: 3},
	{Code: "BHD", Symbol: "BD", DisplayName: "Bahraini Dinar", PopularityRank: 27, DecimalPlaces: 3},
	{Code: "TND", Symbol: "DT", DisplayName: "Tunisian Dinar", PopularityRank: 28, DecimalPlaces: 3},
}

var byCode = make(map[string]Currency, len(catalog))

func init() {
	for _, c := range catalog {
		byCode[c.Code] = c
	}
}

// Lookup finds a currency by code. Matching is case-insensitive and
// ignores surrounding whitespace.
func Lookup(code string) (Currency, bool) {
	c, ok := byCode[strings.ToUpper(strings.TrimSpace(code))]
	return c, ok
}

// Currencies returns the full catalog in ascending popularity order.
// The returned slice is a copy; callers may reorder it freely.
func Currencies() []Currency {
	out := make([]Currency, len(catalog))
	copy(out, catalog)
	return out
}

// Default returns the catalog's fallback currency (USD).
func Default() Currency {
	return byCode[DefaultCode]
}

// Package catalog holds the static tables of supported banks and countries.
package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Bank is a supported bank-transfer destination.
type Bank struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
	Logo string `mapstructure:"logo"`
}

// Country is a supported mobile-money country.
type Country struct {
	ISO         string
	Name        string
	CallingCode string
	Flag        string
}

// ErrInvalidCatalog is returned when a bank table override is unusable.
var ErrInvalidCatalog = errors.New("invalid catalog")

// Catalog is an immutable lookup table built once at startup.
type Catalog struct {
	bankIndex    map[string]int
	countryIndex map[string]int
	banks        []Bank
	countries    []Country
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(defaultBanks, defaultCountries)
	if err != nil {
		panic(fmt.Sprintf("built-in catalog is invalid: %v", err))
	}
	return c
}

// New builds a catalog from explicit tables. Bank and country identifiers are
// matched case-insensitively and must be unique.
func New(banks []Bank, countries []Country) (*Catalog, error) {
	c := &Catalog{
		banks:        append([]Bank(nil), banks...),
		countries:    append([]Country(nil), countries...),
		bankIndex:    make(map[string]int, len(banks)),
		countryIndex: make(map[string]int, len(countries)),
	}

	for i, b := range c.banks {
		key := normalizeKey(b.ID)
		if key == "" || strings.TrimSpace(b.Name) == "" {
			return nil, fmt.Errorf("%w: bank %d needs an id and a name", ErrInvalidCatalog, i)
		}
		if _, dup := c.bankIndex[key]; dup {
			return nil, fmt.Errorf("%w: duplicate bank id %q", ErrInvalidCatalog, b.ID)
		}
		c.bankIndex[key] = i
	}

	for i, country := range c.countries {
		key := normalizeKey(country.ISO)
		if key == "" || country.CallingCode == "" {
			return nil, fmt.Errorf("%w: country %d needs an ISO code and a calling code", ErrInvalidCatalog, i)
		}
		if _, dup := c.countryIndex[key]; dup {
			return nil, fmt.Errorf("%w: duplicate country %q", ErrInvalidCatalog, country.ISO)
		}
		c.countryIndex[key] = i
	}

	return c, nil
}

// WithBanks returns a copy of the catalog with its bank table replaced.
func (c *Catalog) WithBanks(banks []Bank) (*Catalog, error) {
	return New(banks, c.countries)
}

// Banks returns the bank table in display order.
func (c *Catalog) Banks() []Bank {
	return append([]Bank(nil), c.banks...)
}

// Countries returns the country table in display order.
func (c *Catalog) Countries() []Country {
	return append([]Country(nil), c.countries...)
}

// LookupBank finds a bank by id.
func (c *Catalog) LookupBank(id string) (Bank, bool) {
	i, ok := c.bankIndex[normalizeKey(id)]
	if !ok {
		return Bank{}, false
	}
	return c.banks[i], true
}

// LookupCountry finds a country by ISO code.
func (c *Catalog) LookupCountry(iso string) (Country, bool) {
	i, ok := c.countryIndex[normalizeKey(iso)]
	if !ok {
		return Country{}, false
	}
	return c.countries[i], true
}

// LookupCallingCode finds the first country using the calling code. The
// leading "+" is optional.
func (c *Catalog) LookupCallingCode(code string) (Country, bool) {
	want := "+" + strings.TrimPrefix(strings.TrimSpace(code), "+")
	for _, country := range c.countries {
		if country.CallingCode == want {
			return country, true
		}
	}
	return Country{}, false
}

// BankIndex returns the position of the bank in the table, or -1.
func (c *Catalog) BankIndex(id string) int {
	if i, ok := c.bankIndex[normalizeKey(id)]; ok {
		return i
	}
	return -1
}

// CountryIndex returns the position of the country in the table, or -1.
func (c *Catalog) CountryIndex(iso string) int {
	if i, ok := c.countryIndex[normalizeKey(iso)]; ok {
		return i
	}
	return -1
}

// NormalizeLocalNumber reduces user input to the local part of a phone
// number. Spaces, dashes, dots, parentheses and a leading + are removed;
// any other character is kept so validation rejects it. A leading trunk zero
// is dropped, and when the input starts with the country's calling code that
// prefix is dropped too, so "0712 345 678", "+254712345678" and "712345678"
// all yield "712345678".
func NormalizeLocalNumber(raw, callingCode string) string {
	number := phoneSeparators.Replace(strings.TrimPrefix(strings.TrimSpace(raw), "+"))

	code := strings.TrimPrefix(callingCode, "+")
	if code != "" && strings.HasPrefix(number, code) && len(number) > len(code)+6 {
		number = number[len(code):]
	}

	return strings.TrimPrefix(number, "0")
}

var phoneSeparators = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "")

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

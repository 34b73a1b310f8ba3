package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Lookups(t *testing.T) {
	c := Default()

	bank, ok := c.LookupBank("KCB")
	require.True(t, ok)
	assert.Equal(t, "KCB Bank", bank.Name)

	_, ok = c.LookupBank("no-such-bank")
	assert.False(t, ok)

	_, ok = c.LookupBank("")
	assert.False(t, ok)

	country, ok := c.LookupCountry("ke")
	require.True(t, ok)
	assert.Equal(t, "+254", country.CallingCode)

	country, ok = c.LookupCallingCode("256")
	require.True(t, ok)
	assert.Equal(t, "UG", country.ISO)

	_, ok = c.LookupCallingCode("+999")
	assert.False(t, ok)

	assert.Equal(t, 0, c.BankIndex("kcb"))
	assert.Equal(t, -1, c.BankIndex("nope"))
	assert.Equal(t, 0, c.CountryIndex("KE"))
}

func TestNew_RejectsBadTables(t *testing.T) {
	tests := []struct {
		name  string
		banks []Bank
	}{
		{name: "empty id", banks: []Bank{{ID: " ", Name: "X"}}},
		{name: "empty name", banks: []Bank{{ID: "x"}}},
		{name: "duplicate id", banks: []Bank{{ID: "x", Name: "X"}, {ID: "X", Name: "Other"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.banks, defaultCountries)
			require.ErrorIs(t, err, ErrInvalidCatalog)
		})
	}
}

func TestWithBanks_ReplacesOnlyBanks(t *testing.T) {
	c, err := Default().WithBanks([]Bank{{ID: "sacco", Name: "Community Sacco"}})
	require.NoError(t, err)

	assert.Len(t, c.Banks(), 1)
	_, ok := c.LookupBank("kcb")
	assert.False(t, ok)
	_, ok = c.LookupCountry("KE")
	assert.True(t, ok)
}

func TestBanks_ReturnsCopy(t *testing.T) {
	c := Default()
	banks := c.Banks()
	banks[0].Name = "mutated"

	bank, _ := c.LookupBank(banks[0].ID)
	assert.Equal(t, "KCB Bank", bank.Name)
}

func TestNormalizeLocalNumber(t *testing.T) {
	tests := []struct {
		raw  string
		code string
		want string
	}{
		{raw: "712345678", code: "+254", want: "712345678"},
		{raw: "0712 345 678", code: "+254", want: "712345678"},
		{raw: "+254712345678", code: "+254", want: "712345678"},
		{raw: "254-712-345-678", code: "254", want: "712345678"},
		{raw: "(0712) 345.678", code: "+254", want: "712345678"},
		{raw: "abc", code: "+254", want: "abc"},
		{raw: "71a2345678", code: "+254", want: "71a2345678"},
		{raw: "0712#345678", code: "+254", want: "712#345678"},
		{raw: "2547", code: "+254", want: "2547"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeLocalNumber(tt.raw, tt.code))
		})
	}
}

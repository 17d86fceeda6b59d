package units

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeAddr(seed byte) Address {
	var a Address
	for i := range a {
		a[i] = seed
	}
	return a
}

// --- Address tests ---

func TestAddress_StringParse(t *testing.T) {
	for _, seed := range []byte{0x01, 0x7f, 0xaa, 0xff} {
		a := makeAddr(seed)
		parsed, err := ParseAddress(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, parsed)
	}
}

func TestAddress_TestnetFormat(t *testing.T) {
	a := makeAddr(0x42)
	assert.NotEqual(t, a.Format(true), a.Format(false))

	parsed, err := ParseAddress(a.Format(false))
	require.NoError(t, err)
	assert.Equal(t, a, parsed)
}

func TestParseAddress_Invalid(t *testing.T) {
	tests := []string{"", "not-an-address", "1111"}
	for _, s := range tests {
		_, err := ParseAddress(s)
		assert.ErrorIs(t, err, ErrInvalidAddress, "input %q", s)
	}
}

func TestAddressFromHash_WrongSize(t *testing.T) {
	_, err := AddressFromHash([]byte{0x01, 0x02})
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestAddress_IsZero(t *testing.T) {
	assert.True(t, ZeroAddress.IsZero())
	assert.False(t, makeAddr(0x01).IsZero())
}

func TestAddress_TextMarshaling(t *testing.T) {
	a := makeAddr(0x10)
	text, err := a.MarshalText()
	require.NoError(t, err)

	var b Address
	require.NoError(t, b.UnmarshalText(text))
	assert.Equal(t, a, b)

	assert.Error(t, b.UnmarshalText([]byte("garbage")))
}

// --- Amount tests ---

func TestParseUnits(t *testing.T) {
	tests := []struct {
		in   string
		want string // base units, decimal
	}{
		{"0", "0"},
		{"1", "1000000000000000000"},
		{"0.2", "200000000000000000"},
		{"1000", "1000000000000000000000"},
		{"5000.1234567", "5000123456700000000000"},
		{" 16 ", "16000000000000000000"},
		{"0.000000000000000001", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseUnits(tt.in, Decimals)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Dec())
		})
	}
}

func TestParseUnits_Errors(t *testing.T) {
	tests := []struct {
		in      string
		wantErr error
	}{
		{"abc", ErrInvalidAmount},
		{"-1", ErrNegativeAmount},
		{"0.0000000000000000001", ErrTooPrecise},
		{"1e80", ErrAmountOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := ParseUnits(tt.in, Decimals)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFormatUnits(t *testing.T) {
	v := MustUnits("2206.280864175")
	assert.Equal(t, "2206.280864175", FormatUnits(v, Decimals))
	assert.Equal(t, "0", FormatUnits(uint256.Int{}, Decimals))
	assert.Equal(t, "0.2", FormatUnits(MustUnits("0.2"), Decimals))
}

func TestMustUnits_Panics(t *testing.T) {
	assert.Panics(t, func() { MustUnits("nope") })
}

func TestFormatPercentage(t *testing.T) {
	assert.Equal(t, "0.005", FormatPercentage(5, 100000))
	assert.Equal(t, "37.5", FormatPercentage(37500, 100000))
	assert.Equal(t, "100", FormatPercentage(100000, 100000))
	assert.Equal(t, "0", FormatPercentage(10, 0))
}

package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "259.00", FormatAmount(Dirhams(259)))
	require.Equal(t, "12.50", FormatAmount(1250))
	require.Equal(t, "0.00", FormatAmount(0))
}

func TestFormatShort(t *testing.T) {
	require.Equal(t, "30", FormatShort(Dirhams(30)))
	require.Equal(t, "12.5", FormatShort(1250))
}

func TestParseAmount(t *testing.T) {
	got, err := ParseAmount(" 259 ")
	require.NoError(t, err)
	require.Equal(t, Dirhams(259), got)

	got, err = ParseAmount("199.995")
	require.NoError(t, err)
	require.Equal(t, Money(20000), got)

	_, err = ParseAmount("abc")
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ParseAmount("")
	require.ErrorIs(t, err, ErrInvalidAmount)
}

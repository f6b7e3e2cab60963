package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name     string
		product  string
		category string
		price    Money
		want     Kind
	}{
		{"polo by name", "Polo Piqué", "", Dirhams(150), KindPolo},
		{"polo by category", "Classic", "POLOS", Dirhams(150), KindPolo},
		{"polo wins over shirt", "Polo Shirt", "T-shirts", Dirhams(150), KindPolo},
		{"tshirt by name", "TSHIRT Oversize", "", Dirhams(120), KindTShirt},
		{"tshirt by category", "Basic", "Shirts", Dirhams(120), KindTShirt},
		{"jean by name", "Jean Slim", "", Dirhams(300), KindGeneralPants},
		{"jean category is not pants", "Slim", "Jeans", Dirhams(300), KindOther},
		{"short by category", "Bermuda", "Shorts", Dirhams(200), KindGeneralPants},
		{"pants at fixed price", "Pantalon Cargo", "", FixedPricePoint, KindPants259},
		{"other", "Casquette", "Accessoires", FixedPricePoint, KindOther},
		{"empty", "", "", 0, KindOther},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Classify(tc.product, tc.category, tc.price))
		})
	}
}

func TestKindString(t *testing.T) {
	require.Equal(t, "polo", KindPolo.String())
	require.Equal(t, "pants_259", KindPants259.String())
	require.Equal(t, "other", Kind(99).String())
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeck(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Deck
		wantErr bool
	}{
		{name: "empty yields default", input: "", want: DefaultDeck()},
		{name: "whitespace yields default", input: "  ", want: DefaultDeck()},
		{name: "custom cards", input: "XS, S, M, L, XL", want: Deck{"XS", "S", "M", "L", "XL"}},
		{name: "empty card", input: "1,,3", wantErr: true},
		{name: "duplicate card", input: "1,2,1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deck, err := ParseDeck(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, deck)
		})
	}
}

func TestDeck_Contains(t *testing.T) {
	deck := DefaultDeck()

	assert.True(t, deck.Contains("5"))
	assert.True(t, deck.Contains("coffee"))
	assert.False(t, deck.Contains("7"))
	assert.False(t, deck.Contains(""))
}

package domain

import (
	"fmt"
	"strings"
)

// Deck is the set of card values participants may vote with.
type Deck []string

// DefaultDeck is the usual planning poker card set.
func DefaultDeck() Deck {
	return Deck{"0", "1", "2", "3", "5", "8", "13", "20", "40", "100", "?", "coffee"}
}

// ParseDeck parses a comma-separated card list. An empty input yields the
// default deck.
func ParseDeck(s string) (Deck, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultDeck(), nil
	}
	var deck Deck
	seen := make(map[string]bool)
	for _, raw := range strings.Split(s, ",") {
		card := strings.TrimSpace(raw)
		if card == "" {
			return nil, fmt.Errorf("deck contains an empty card value: %q", s)
		}
		if seen[card] {
			return nil, fmt.Errorf("deck contains duplicate card %q", card)
		}
		seen[card] = true
		deck = append(deck, card)
	}
	return deck, nil
}

// Contains reports whether value is a playable card.
func (d Deck) Contains(value string) bool {
	for _, card := range d {
		if card == value {
			return true
		}
	}
	return false
}

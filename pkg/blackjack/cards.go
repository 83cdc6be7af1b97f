package blackjack

import (
	"math/rand"
	"strings"
	"sync"
)

type Rank string

var Ranks = []Rank{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}

type Suit string

var Suits = []Suit{"C", "D", "H", "S"}

// Card value depends on rank only; suit is kept for display in logs.
type Card struct {
	Rank Rank
	Suit Suit
}

func (c Card) String() string { return string(c.Rank) + string(c.Suit) }

func (r Rank) points() int {
	switch r {
	case "10", "J", "Q", "K":
		return 10
	case "A":
		return 11
	default:
		return int(r[0] - '0')
	}
}

type Hand []Card

// HandOf builds a hand from ranks, mostly for tests and fixtures.
func HandOf(ranks ...Rank) Hand {
	h := make(Hand, len(ranks))
	for i, r := range ranks {
		h[i] = Card{Rank: r, Suit: Suits[i%len(Suits)]}
	}
	return h
}

// Value scores the hand with aces at 11, demoting one ace at a time to 1
// while the total is over 21.
func (h Hand) Value() int {
	total, aces := 0, 0
	for _, c := range h {
		total += c.Rank.points()
		if c.Rank == "A" {
			aces++
		}
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

// IsNatural reports a two-card 21.
func (h Hand) IsNatural() bool {
	return len(h) == 2 && h.Value() == 21
}

// String renders ranks only, e.g. "[K, 5]".
func (h Hand) String() string {
	parts := make([]string, len(h))
	for i, c := range h {
		parts[i] = string(c.Rank)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// NewDeck returns the 52 cards in a fixed order.
func NewDeck() []Card {
	deck := make([]Card, 0, len(Ranks)*len(Suits))
	for _, r := range Ranks {
		for _, s := range Suits {
			deck = append(deck, Card{Rank: r, Suit: s})
		}
	}
	return deck
}

// Shuffler reorders a deck in place.
type Shuffler func(deck []Card)

// RandomShuffler shuffles with r. The returned Shuffler may be shared by
// concurrent games.
func RandomShuffler(r *rand.Rand) Shuffler {
	var mu sync.Mutex
	return func(deck []Card) {
		mu.Lock()
		defer mu.Unlock()
		r.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	}
}

package blackjack

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stacked moves the given ranks to the top of the deck in order. Deal draws
// player, player, dealer, dealer, then hits and dealer draws.
func stacked(ranks ...Rank) Shuffler {
	return func(deck []Card) {
		for i, r := range ranks {
			for j := i; j < len(deck); j++ {
				if deck[j].Rank == r {
					deck[i], deck[j] = deck[j], deck[i]
					break
				}
			}
		}
	}
}

func TestHandValue(t *testing.T) {
	tests := []struct {
		ranks []Rank
		want  int
	}{
		{[]Rank{"A", "A"}, 12},
		{[]Rank{"K", "A"}, 21},
		{[]Rank{"5", "6", "K"}, 21},
		{[]Rank{"A", "9", "A"}, 21},
		{[]Rank{"A", "A", "A", "A"}, 14},
		{[]Rank{"10", "J", "Q"}, 30},
		{[]Rank{"2", "3"}, 5},
		{[]Rank{"A", "5", "K"}, 16},
	}
	for _, tt := range tests {
		t.Run(HandOf(tt.ranks...).String(), func(t *testing.T) {
			require.Equal(t, tt.want, HandOf(tt.ranks...).Value())
		})
	}
}

func TestNewDeck(t *testing.T) {
	deck := NewDeck()
	require.Len(t, deck, 52)
	counts := map[Rank]int{}
	for _, c := range deck {
		counts[c.Rank]++
	}
	for _, r := range Ranks {
		require.Equal(t, 4, counts[r], "rank %s", r)
	}
}

func TestNewRefusesEmptyBalance(t *testing.T) {
	_, err := New(0)
	require.ErrorIs(t, err, ErrOutOfChips)
	_, err = New(-3)
	require.ErrorIs(t, err, ErrOutOfChips)
}

func TestParseBet(t *testing.T) {
	g, err := New(50)
	require.NoError(t, err)
	before := *g

	for _, in := range []string{"abc", "", "1.5", "ten chips"} {
		_, err := g.ParseBet(in)
		require.ErrorIs(t, err, ErrBetNotNumber, "input %q", in)
		require.ErrorIs(t, err, ErrInvalidBet)
	}
	for _, in := range []string{"0", "-5"} {
		_, err := g.ParseBet(in)
		require.ErrorIs(t, err, ErrBetTooSmall, "input %q", in)
	}
	_, err = g.ParseBet("51")
	require.ErrorIs(t, err, ErrBetTooLarge)
	require.Equal(t, before, *g)

	bet, err := g.ParseBet("50")
	require.NoError(t, err)
	require.Equal(t, 50, bet)

	bet, err = g.ParseBet("20 please")
	require.NoError(t, err)
	require.Equal(t, 20, bet)
}

func TestNaturalBeatsDealer(t *testing.T) {
	g, _ := New(100)
	require.NoError(t, g.Deal(10, stacked("A", "K", "10", "7")))
	require.Equal(t, PhaseEnd, g.Phase)
	require.Equal(t, OutcomeBlackjack, g.Outcome)
	require.Equal(t, 15, g.Net)
	require.Equal(t, 115, g.Chips)
}

func TestNaturalFloorsOddBet(t *testing.T) {
	g, _ := New(100)
	require.NoError(t, g.Deal(5, stacked("Q", "A", "9", "8")))
	require.Equal(t, OutcomeBlackjack, g.Outcome)
	require.Equal(t, 7, g.Net)
}

func TestNaturalPushesDealerNatural(t *testing.T) {
	g, _ := New(100)
	require.NoError(t, g.Deal(10, stacked("A", "K", "A", "Q")))
	require.Equal(t, OutcomeBlackjackPush, g.Outcome)
	require.Equal(t, 0, g.Net)
	require.Equal(t, 100, g.Chips)
}

func TestStandDealerBust(t *testing.T) {
	g, _ := New(100)
	require.NoError(t, g.Deal(10, stacked("K", "Q", "10", "6", "9")))
	require.Equal(t, PhaseTurn, g.Phase)
	require.NoError(t, g.Stand())
	require.Equal(t, OutcomeDealerBust, g.Outcome)
	require.Equal(t, 10, g.Net)
	require.Equal(t, 25, g.Dealer.Value())
}

func TestStandTieAndLoss(t *testing.T) {
	g, _ := New(100)
	require.NoError(t, g.Deal(10, stacked("K", "8", "10", "8")))
	require.NoError(t, g.Stand())
	require.Equal(t, OutcomePush, g.Outcome)
	require.Equal(t, 0, g.Net)

	g, _ = New(100)
	require.NoError(t, g.Deal(10, stacked("K", "7", "10", "9")))
	require.NoError(t, g.Stand())
	require.Equal(t, OutcomeLoss, g.Outcome)
	require.Equal(t, -10, g.Net)
	require.Equal(t, 90, g.Chips)
}

func TestHitBustLosesWithoutDealerPlay(t *testing.T) {
	g, _ := New(100)
	require.NoError(t, g.Deal(25, stacked("K", "6", "2", "3", "9")))
	c, err := g.Hit()
	require.NoError(t, err)
	require.Equal(t, Rank("9"), c.Rank)
	require.Equal(t, PhaseEnd, g.Phase)
	require.Equal(t, OutcomeBust, g.Outcome)
	require.Equal(t, -25, g.Net)
	require.Len(t, g.Dealer, 2, "dealer must not draw after a player bust")
}

func TestHitDeckExhausted(t *testing.T) {
	g, _ := New(100)
	require.NoError(t, g.Deal(10, stacked("2", "3", "K", "7")))
	g.Deck = nil
	_, err := g.Hit()
	require.ErrorIs(t, err, ErrDeckExhausted)
	require.Equal(t, PhaseTurn, g.Phase)
}

func TestAllInAndNextHand(t *testing.T) {
	g, _ := New(20)
	require.NoError(t, g.Deal(20, stacked("K", "7", "10", "9")))
	require.NoError(t, g.Stand())
	require.Equal(t, 0, g.Chips)
	require.ErrorIs(t, g.NextHand(), ErrOutOfChips)

	g, _ = New(20)
	require.NoError(t, g.Deal(5, stacked("K", "9", "10", "7")))
	require.NoError(t, g.Stand())
	require.Equal(t, OutcomeWin, g.Outcome)
	require.NoError(t, g.NextHand())
	assert.Equal(t, PhaseBetting, g.Phase)
	assert.Equal(t, 25, g.Chips)
	assert.Empty(t, g.Player)
	assert.Zero(t, g.Bet)
}

func TestWrongPhase(t *testing.T) {
	g, _ := New(10)
	_, err := g.Hit()
	require.ErrorIs(t, err, ErrWrongPhase)
	require.ErrorIs(t, g.Stand(), ErrWrongPhase)
	require.ErrorIs(t, g.NextHand(), ErrWrongPhase)
}

func TestChipsNeverNegative(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	g, _ := New(StartingChips)
	for i := 0; i < 500 && g.Chips > 0; i++ {
		bet := 1 + r.Intn(g.Chips)
		require.NoError(t, g.Deal(bet, RandomShuffler(r)))
		for g.Phase == PhaseTurn {
			if g.Player.Value() < 15 {
				_, err := g.Hit()
				require.NoError(t, err)
			} else {
				require.NoError(t, g.Stand())
			}
		}
		require.GreaterOrEqual(t, g.Chips, 0)
		if g.Chips == 0 {
			break
		}
		require.NoError(t, g.NextHand())
	}
}

package deck

import "math/rand"

// Size is the number of cards in one Mau Mau deck
const Size = 32

// Deck represents a set of cards
type Deck []Card

// New creates factor fresh 32-card decks, unshuffled
func New(factor int) Deck {
	if factor < 1 {
		factor = 1
	}

	cards := make(Deck, 0, factor*Size)
	for i := 0; i < factor; i++ {
		for _, suit := range Suits {
			for _, rank := range Ranks {
				cards = append(cards, NewCard(rank, suit))
			}
		}
	}
	return cards
}

// Shuffle shuffles the deck of cards
func (d Deck) Shuffle() {
	rand.Shuffle(len(d), func(i, j int) {
		d[i], d[j] = d[j], d[i]
	})
}

// Points sums the point values of all cards
func (d Deck) Points() int {
	total := 0
	for _, c := range d {
		total += c.Points()
	}
	return total
}

/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "math/rand/v2"

// Card is a prompt card drawn for a round.
type Card struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	Category    string `json:"category"`
	CategoryKey string `json:"categoryKey"`
}

// SelectCards builds a shuffled pool from the enabled categories, leaving out
// any card whose text is already used. If fewer than need cards survive the
// filter, the pool falls back to the whole enabled catalog and reset is true.
// need <= 0 returns the full pool.
func SelectCards(c *Catalog, enabled []string, used []Card, need int) (cards []Card, reset bool) {
	all := c.Cards(enabled)

	seen := make(map[string]bool, len(used))
	for _, u := range used {
		seen[u.Text] = true
	}

	pool := make([]Card, 0, len(all))
	for _, card := range all {
		if !seen[card.Text] {
			pool = append(pool, card)
		}
	}

	want := max(need, 1)
	if len(pool) < want {
		pool = all
		reset = true
	}

	rand.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	if need > 0 && len(pool) > need {
		pool = pool[:need]
	}

	return pool, reset
}

// Deck is a room's per-session card state.
type Deck struct {
	Available []Card
	Used      []Card
	size      int
}

func newDeck(size int) Deck {
	return Deck{size: size}
}

// Rebuild replaces the available cards using the exclusion-then-reset rule.
// A reset starts a new cycle, so the used history is dropped with it.
func (d *Deck) Rebuild(c *Catalog, enabled []string) {
	cards, reset := SelectCards(c, enabled, d.Used, d.size)
	if reset {
		d.Used = nil
	}
	d.Available = cards
}

// Draw removes one random card from the available pool and records it as used.
func (d *Deck) Draw(c *Catalog, enabled []string) (Card, error) {
	if len(d.Available) == 0 {
		d.Rebuild(c, enabled)
	}
	if len(d.Available) == 0 {
		return Card{}, ErrNoCards
	}

	i := rand.IntN(len(d.Available))
	card := d.Available[i]

	d.Available = append(d.Available[:i], d.Available[i+1:]...)
	d.Used = append(d.Used, card)

	return card, nil
}

// Clear forgets both pools.
func (d *Deck) Clear() {
	d.Available = nil
	d.Used = nil
}

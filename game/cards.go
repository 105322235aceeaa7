/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/viper"
)

// Category is one named group of prompt card texts.
type Category struct {
	Key         string   `json:"key" mapstructure:"key"`
	Name        string   `json:"name" mapstructure:"name"`
	Description string   `json:"description" mapstructure:"description"`
	Cards       []string `json:"cards" mapstructure:"cards"`
}

// CategorySummary is the public listing of a category, without card texts.
type CategorySummary struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CardCount   int    `json:"cardCount"`
}

// Catalog is the fixed, read-only set of prompt cards partitioned by category.
// It is shared by every room and never mutated after construction.
type Catalog struct {
	categories []Category
	byKey      map[string]int
}

func NewCatalog(categories []Category) (*Catalog, error) {
	if len(categories) == 0 {
		return nil, errors.New("catalog has no categories")
	}

	c := &Catalog{
		categories: make([]Category, 0, len(categories)),
		byKey:      make(map[string]int, len(categories)),
	}

	for _, cat := range categories {
		if cat.Key == "" {
			return nil, errors.New("catalog category missing key")
		}
		if _, exists := c.byKey[cat.Key]; exists {
			return nil, fmt.Errorf("duplicate catalog category %q", cat.Key)
		}
		if len(cat.Cards) == 0 {
			return nil, fmt.Errorf("catalog category %q has no cards", cat.Key)
		}
		if cat.Name == "" {
			cat.Name = cat.Key
		}

		cat.Cards = append([]string(nil), cat.Cards...)

		c.byKey[cat.Key] = len(c.categories)
		c.categories = append(c.categories, cat)
	}

	return c, nil
}

type catalogFile struct {
	Categories []Category `mapstructure:"categories"`
}

// LoadCatalog reads a catalog from any file format viper understands.
func LoadCatalog(path string) (*Catalog, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var file catalogFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}

	return NewCatalog(file.Categories)
}

// Keys returns every category key in catalog order.
func (c *Catalog) Keys() []string {
	keys := make([]string, len(c.categories))
	for i, cat := range c.categories {
		keys[i] = cat.Key
	}
	return keys
}

func (c *Catalog) Has(key string) bool {
	_, ok := c.byKey[key]
	return ok
}

func (c *Catalog) Summaries() []CategorySummary {
	out := make([]CategorySummary, len(c.categories))
	for i, cat := range c.categories {
		out[i] = CategorySummary{
			Key:         cat.Key,
			Name:        cat.Name,
			Description: cat.Description,
			CardCount:   len(cat.Cards),
		}
	}
	return out
}

// Cards returns the cards of the enabled categories, in catalog order.
// Unknown keys are skipped.
func (c *Catalog) Cards(enabled []string) []Card {
	on := make(map[string]bool, len(enabled))
	for _, k := range enabled {
		on[k] = true
	}

	var cards []Card
	for _, cat := range c.categories {
		if !on[cat.Key] {
			continue
		}
		for i, text := range cat.Cards {
			cards = append(cards, Card{
				ID:          cat.Key + "_" + strconv.Itoa(i),
				Text:        text,
				Category:    cat.Name,
				CategoryKey: cat.Key,
			})
		}
	}
	return cards
}

// DefaultCatalog is the built-in card set.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(defaultCategories)
	if err != nil {
		panic(err)
	}
	return c
}

var defaultCategories = []Category{
	{
		Key:         "work",
		Name:        "Work",
		Description: "Life at the office",
		Cards: []string{
			"When the alarm goes off on Monday morning",
			"Waiting for payday",
			"When the meeting runs five minutes over",
			"When the boss calls you in",
			"The day before the deadline",
			"When the coffee machine breaks",
			"When your coworker leaves for vacation",
			"When your time off gets denied",
		},
	},
	{
		Key:         "traffic",
		Name:        "Traffic",
		Description: "Things that happen on the road",
		Cards: []string{
			"When the light turns red",
			"When you can't find a parking spot",
			"When you run out of gas",
			"When the road is closed",
			"When you miss the bus",
			"When there are no taxis anywhere",
			"When the GPS sends you the wrong way",
			"When the car inspection is due",
		},
	},
	{
		Key:         "relationship",
		Name:        "Relationships",
		Description: "Friends, family and everything in between",
		Cards: []string{
			"When your friend ghosts you",
			"When your ex shows up on your feed",
			"When your mom calls",
			"When you go quiet in the group chat",
			"When everyone forgets your birthday",
			"When you're late for a date",
			"When your message is left on read",
			"When the relatives start asking questions",
		},
	},
	{
		Key:         "technology",
		Name:        "Technology",
		Description: "Gadgets, apps and everything that breaks",
		Cards: []string{
			"When the WiFi password changes",
			"When your phone hits 1%",
			"When the app crashes",
			"When the internet goes down",
			"When an update shows up",
			"When your password is wrong again",
			"When the computer freezes",
			"When you forgot to make a backup",
		},
	},
	{
		Key:         "entertainment",
		Name:        "Entertainment",
		Description: "Fun and free time",
		Cards: []string{
			"During the season finale of your favorite show",
			"When the food delivery is late",
			"When the movie is sold out",
			"When the game patch drops",
			"When the playlist ends",
			"When you finish the book",
			"When someone spoils the ending",
			"When you can't get concert tickets",
		},
	},
	{
		Key:         "daily",
		Name:        "Daily life",
		Description: "The everyday stuff",
		Cards: []string{
			"When the exam results come out",
			"When the weather suddenly changes",
			"When you forget the shopping list",
			"When you lose your keys",
			"When the elevator breaks",
			"When the package never arrives",
			"When the ATM won't give you money",
			"When your sleep schedule is ruined",
		},
	},
}

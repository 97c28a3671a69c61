package domain

// CardID identifies a card in the fixed reference catalog. Zero means "no card".
type CardID int

// Ranks holds the four edge ranks of a card, read clockwise from the top.
type Ranks struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// Card is immutable reference data, looked up by id. Cards are never
// constructed at runtime; the catalog below is the full set.
type Card struct {
	ID    CardID `json:"id"`
	Ranks Ranks  `json:"ranks"`
}

// catalog is the fixed 16-card reference set used by every match.
var catalog = map[CardID]Card{
	1:  {ID: 1, Ranks: Ranks{Top: 1, Right: 4, Bottom: 1, Left: 5}},
	2:  {ID: 2, Ranks: Ranks{Top: 5, Right: 1, Bottom: 1, Left: 3}},
	3:  {ID: 3, Ranks: Ranks{Top: 1, Right: 3, Bottom: 3, Left: 5}},
	4:  {ID: 4, Ranks: Ranks{Top: 6, Right: 1, Bottom: 1, Left: 2}},
	5:  {ID: 5, Ranks: Ranks{Top: 2, Right: 4, Bottom: 2, Left: 4}},
	6:  {ID: 6, Ranks: Ranks{Top: 2, Right: 1, Bottom: 6, Left: 1}},
	7:  {ID: 7, Ranks: Ranks{Top: 3, Right: 5, Bottom: 2, Left: 1}},
	8:  {ID: 8, Ranks: Ranks{Top: 4, Right: 2, Bottom: 4, Left: 1}},
	9:  {ID: 9, Ranks: Ranks{Top: 1, Right: 6, Bottom: 1, Left: 6}},
	10: {ID: 10, Ranks: Ranks{Top: 4, Right: 3, Bottom: 2, Left: 4}},
	11: {ID: 11, Ranks: Ranks{Top: 5, Right: 3, Bottom: 1, Left: 2}},
	12: {ID: 12, Ranks: Ranks{Top: 2, Right: 2, Bottom: 5, Left: 2}},
	13: {ID: 13, Ranks: Ranks{Top: 7, Right: 1, Bottom: 4, Left: 1}},
	14: {ID: 14, Ranks: Ranks{Top: 3, Right: 4, Bottom: 5, Left: 4}},
	15: {ID: 15, Ranks: Ranks{Top: 1, Right: 7, Bottom: 2, Left: 3}},
	16: {ID: 16, Ranks: Ranks{Top: 6, Right: 2, Bottom: 1, Left: 5}},
}

// CardByID returns the catalog card for id, or false if no such card exists.
func CardByID(id CardID) (Card, bool) {
	c, ok := catalog[id]
	return c, ok
}

// CatalogSize returns the number of cards in the reference catalog.
func CatalogSize() int {
	return len(catalog)
}

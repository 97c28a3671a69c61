package domain

import "errors"

// HandSize is the number of cards each player commits before a match starts.
const HandSize = 5

// BoardSize is the side length of the square board.
const BoardSize = 3

// Slot identifies one of the two player positions in a match.
type Slot int

const (
	SlotA Slot = 0
	SlotB Slot = 1
)

// Opponent returns the other slot.
func (s Slot) Opponent() Slot {
	return 1 - s
}

// Owner returns the board owner code for the slot.
func (s Slot) Owner() Owner {
	if s == SlotA {
		return OwnerA
	}
	return OwnerB
}

// Valid reports whether s is one of the two playable slots.
func (s Slot) Valid() bool {
	return s == SlotA || s == SlotB
}

// Owner marks which side controls a board cell.
type Owner uint8

const (
	OwnerNone Owner = 0
	OwnerA    Owner = 1
	OwnerB    Owner = 2
)

// Status represents the lifecycle stage of a match.
type Status string

const (
	// StatusWaiting indicates the match has a creator but no opponent yet.
	StatusWaiting Status = "waiting"
	// StatusActive indicates both hands are registered and play is underway.
	StatusActive Status = "active"
	// StatusFinished indicates the board is full or play was forced to end.
	StatusFinished Status = "finished"
)

// Winner is the outcome of a finished match.
type Winner int8

const (
	WinnerNone Winner = iota
	WinnerA
	WinnerB
	WinnerDraw
)

// Cell is one board position. A zero CardID with OwnerNone means empty.
type Cell struct {
	CardID CardID `json:"card_id"`
	Owner  Owner  `json:"owner"`
}

// Board is the fixed 3x3 grid. A cell transitions empty to occupied exactly
// once; ownership may flip afterwards but a card is never removed.
type Board [BoardSize][BoardSize]Cell

// CellRef addresses a single board cell.
type CellRef struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Match is the full rules state for one game. All transitions go through
// NewMatch and PlaceCard; neither performs any I/O or crypto.
type Match struct {
	Board  Board
	Hands  [2][]CardID
	Turn   Slot
	Scores [2]int
	Status Status
	Winner Winner
}

var (
	ErrMatchNotActive = errors.New("match is not active")
	ErrMatchFinished  = errors.New("match already finished")
	ErrNotYourTurn    = errors.New("not this player's turn")
	ErrOutOfBounds    = errors.New("cell out of bounds")
	ErrCellOccupied   = errors.New("cell already occupied")
	ErrBadHandIndex   = errors.New("hand index out of range")
	ErrUnknownCard    = errors.New("card not in catalog")
	ErrDuplicateCard  = errors.New("duplicate card across hands")
)

// NewMatch initializes a match from the two committed hands: empty board,
// first turn to slot A, scores at 5-5.
func NewMatch(handA, handB [HandSize]CardID) (*Match, error) {
	seen := make(map[CardID]bool, 2*HandSize)
	for _, hand := range [2][HandSize]CardID{handA, handB} {
		for _, id := range hand {
			if _, ok := CardByID(id); !ok {
				return nil, ErrUnknownCard
			}
			if seen[id] {
				return nil, ErrDuplicateCard
			}
			seen[id] = true
		}
	}

	m := &Match{
		Turn:   SlotA,
		Scores: [2]int{HandSize, HandSize},
		Status: StatusActive,
	}
	m.Hands[SlotA] = append([]CardID(nil), handA[:]...)
	m.Hands[SlotB] = append([]CardID(nil), handB[:]...)
	return m, nil
}

// Clone returns a deep copy of the match.
func (m *Match) Clone() *Match {
	next := *m
	next.Hands[SlotA] = append([]CardID(nil), m.Hands[SlotA]...)
	next.Hands[SlotB] = append([]CardID(nil), m.Hands[SlotB]...)
	return &next
}

// OccupiedCells returns the number of filled board cells.
func (m *Match) OccupiedCells() int {
	count := 0
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			if m.Board[r][c].Owner != OwnerNone {
				count++
			}
		}
	}
	return count
}

// OwnedCount returns the number of cards a slot controls: board cells owned
// plus cards still in hand. This is the quantity compared to decide the winner.
func (m *Match) OwnedCount(slot Slot) int {
	count := len(m.Hands[slot])
	owner := slot.Owner()
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			if m.Board[r][c].Owner == owner {
				count++
			}
		}
	}
	return count
}

// RemainingPool returns every card a slot controls at the end of a match:
// board-owned cards plus the unplayed hand. The settlement prize card must
// come from the loser's pool.
func (m *Match) RemainingPool(slot Slot) []CardID {
	pool := append([]CardID(nil), m.Hands[slot]...)
	owner := slot.Owner()
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			if m.Board[r][c].Owner == owner {
				pool = append(pool, m.Board[r][c].CardID)
			}
		}
	}
	return pool
}

// CapturePolicy decides which already-occupied cells flip to the placer when
// a card lands at (row, col). The board already contains the placed card when
// the policy runs. Kept pluggable so a chained-capture variant can be swapped
// in without touching PlaceCard.
type CapturePolicy func(b *Board, placed Card, placer Owner, row, col int) []CellRef

// OrthogonalCapture is the standard single-hop rule: for each of the four
// orthogonal neighbors holding an opposing card, the placed card's rank facing
// that neighbor is compared against the neighbor's facing rank. Strictly
// greater flips ownership; equal or lesser does nothing.
func OrthogonalCapture(b *Board, placed Card, placer Owner, row, col int) []CellRef {
	neighbors := []struct {
		dr, dc int
		mine   func(Ranks) int
		theirs func(Ranks) int
	}{
		{-1, 0, func(r Ranks) int { return r.Top }, func(r Ranks) int { return r.Bottom }},
		{0, 1, func(r Ranks) int { return r.Right }, func(r Ranks) int { return r.Left }},
		{1, 0, func(r Ranks) int { return r.Bottom }, func(r Ranks) int { return r.Top }},
		{0, -1, func(r Ranks) int { return r.Left }, func(r Ranks) int { return r.Right }},
	}

	var captured []CellRef
	for _, n := range neighbors {
		rr, cc := row+n.dr, col+n.dc
		if rr < 0 || rr >= BoardSize || cc < 0 || cc >= BoardSize {
			continue
		}
		cell := b[rr][cc]
		if cell.Owner == OwnerNone || cell.Owner == placer {
			continue
		}
		neighbor, ok := CardByID(cell.CardID)
		if !ok {
			continue
		}
		if n.mine(placed.Ranks) > n.theirs(neighbor.Ranks) {
			captured = append(captured, CellRef{Row: rr, Col: cc})
		}
	}
	return captured
}

// PlaceCard applies one placement with the standard capture rule.
func PlaceCard(m *Match, slot Slot, handIndex, row, col int) (*Match, []CellRef, error) {
	return PlaceCardWith(m, slot, handIndex, row, col, OrthogonalCapture)
}

// PlaceCardWith applies one placement with an explicit capture policy. It is
// a pure function: the input match is never mutated, and identical inputs
// always produce identical results.
func PlaceCardWith(m *Match, slot Slot, handIndex, row, col int, policy CapturePolicy) (*Match, []CellRef, error) {
	if m.Status == StatusFinished {
		return nil, nil, ErrMatchFinished
	}
	if m.Status != StatusActive {
		return nil, nil, ErrMatchNotActive
	}
	if slot != m.Turn {
		return nil, nil, ErrNotYourTurn
	}
	if row < 0 || row >= BoardSize || col < 0 || col >= BoardSize {
		return nil, nil, ErrOutOfBounds
	}
	if m.Board[row][col].Owner != OwnerNone {
		return nil, nil, ErrCellOccupied
	}
	if handIndex < 0 || handIndex >= len(m.Hands[slot]) {
		return nil, nil, ErrBadHandIndex
	}

	next := m.Clone()
	id := next.Hands[slot][handIndex]
	card, ok := CardByID(id)
	if !ok {
		return nil, nil, ErrUnknownCard
	}

	hand := next.Hands[slot]
	next.Hands[slot] = append(hand[:handIndex:handIndex], hand[handIndex+1:]...)
	next.Board[row][col] = Cell{CardID: id, Owner: slot.Owner()}

	captured := policy(&next.Board, card, slot.Owner(), row, col)
	for _, ref := range captured {
		next.Board[ref.Row][ref.Col].Owner = slot.Owner()
	}
	next.Scores[slot] += len(captured)
	next.Scores[slot.Opponent()] -= len(captured)
	next.Turn = slot.Opponent()

	if next.OccupiedCells() == BoardSize*BoardSize {
		next.Status = StatusFinished
		switch {
		case next.Scores[SlotA] > next.Scores[SlotB]:
			next.Winner = WinnerA
		case next.Scores[SlotB] > next.Scores[SlotA]:
			next.Winner = WinnerB
		default:
			next.Winner = WinnerDraw
		}
	}
	return next, captured, nil
}

package domain

import (
	"testing"
)

var (
	handA = [HandSize]CardID{1, 2, 3, 4, 5}
	handB = [HandSize]CardID{6, 7, 8, 9, 10}
)

func TestNewMatch(t *testing.T) {
	m, err := NewMatch(handA, handB)
	if err != nil {
		t.Fatalf("NewMatch() error = %v", err)
	}
	if m.Status != StatusActive {
		t.Errorf("status = %v, want %v", m.Status, StatusActive)
	}
	if m.Turn != SlotA {
		t.Errorf("first turn = %v, want slot A", m.Turn)
	}
	if m.Scores[SlotA] != 5 || m.Scores[SlotB] != 5 {
		t.Errorf("scores = %v, want 5-5", m.Scores)
	}
	if m.OccupiedCells() != 0 {
		t.Errorf("occupied cells = %d, want 0", m.OccupiedCells())
	}
}

func TestNewMatchRejectsBadHands(t *testing.T) {
	tests := []struct {
		name    string
		a, b    [HandSize]CardID
		wantErr error
	}{
		{
			name:    "unknown card",
			a:       [HandSize]CardID{1, 2, 3, 4, 99},
			b:       handB,
			wantErr: ErrUnknownCard,
		},
		{
			name:    "duplicate within hand",
			a:       [HandSize]CardID{1, 1, 3, 4, 5},
			b:       handB,
			wantErr: ErrDuplicateCard,
		},
		{
			name:    "duplicate across hands",
			a:       handA,
			b:       [HandSize]CardID{5, 7, 8, 9, 10},
			wantErr: ErrDuplicateCard,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMatch(tt.a, tt.b); err != tt.wantErr {
				t.Errorf("NewMatch() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPlaceCardValidation(t *testing.T) {
	tests := []struct {
		name      string
		slot      Slot
		handIndex int
		row, col  int
		wantErr   error
	}{
		{name: "wrong turn", slot: SlotB, handIndex: 0, row: 0, col: 0, wantErr: ErrNotYourTurn},
		{name: "row out of bounds", slot: SlotA, handIndex: 0, row: 3, col: 0, wantErr: ErrOutOfBounds},
		{name: "negative col", slot: SlotA, handIndex: 0, row: 0, col: -1, wantErr: ErrOutOfBounds},
		{name: "bad hand index", slot: SlotA, handIndex: 5, row: 0, col: 0, wantErr: ErrBadHandIndex},
		{name: "negative hand index", slot: SlotA, handIndex: -1, row: 0, col: 0, wantErr: ErrBadHandIndex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMatch(handA, handB)
			if err != nil {
				t.Fatal(err)
			}
			if _, _, err := PlaceCard(m, tt.slot, tt.handIndex, tt.row, tt.col); err != tt.wantErr {
				t.Errorf("PlaceCard() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPlaceCardOccupiedCell(t *testing.T) {
	m, err := NewMatch(handA, handB)
	if err != nil {
		t.Fatal(err)
	}
	m, _, err = PlaceCard(m, SlotA, 0, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := PlaceCard(m, SlotB, 0, 1, 1); err != ErrCellOccupied {
		t.Errorf("PlaceCard() error = %v, want %v", err, ErrCellOccupied)
	}
}

func TestPlaceCardIsPure(t *testing.T) {
	m, err := NewMatch(handA, handB)
	if err != nil {
		t.Fatal(err)
	}

	next1, cap1, err := PlaceCard(m, SlotA, 0, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	next2, cap2, err := PlaceCard(m, SlotA, 0, 0, 0)
	if err != nil {
		t.Fatal(err)
	}

	// Input untouched.
	if len(m.Hands[SlotA]) != 5 || m.Board[0][0].Owner != OwnerNone || m.Turn != SlotA {
		t.Errorf("input match was mutated: %+v", m)
	}
	// Identical inputs, identical outputs.
	if next1.Board != next2.Board || next1.Turn != next2.Turn || len(cap1) != len(cap2) {
		t.Errorf("identical inputs produced different results")
	}
	if len(next1.Hands[SlotA]) != 4 {
		t.Errorf("hand size after placement = %d, want 4", len(next1.Hands[SlotA]))
	}
}

func TestOrthogonalCaptureFlips(t *testing.T) {
	// Card 9 (right rank 6) placed left of opposing card 12 (left rank 2):
	// 6 > 2 flips the neighbor.
	m, err := NewMatch([HandSize]CardID{9, 1, 2, 3, 4}, [HandSize]CardID{12, 6, 7, 8, 10})
	if err != nil {
		t.Fatal(err)
	}
	m, _, err = PlaceCard(m, SlotA, 1, 2, 2) // card 1 parked out of the way
	if err != nil {
		t.Fatal(err)
	}
	m, _, err = PlaceCard(m, SlotB, 0, 1, 1) // card 12 at center
	if err != nil {
		t.Fatal(err)
	}
	m, captured, err := PlaceCard(m, SlotA, 0, 1, 0) // card 9 left of center
	if err != nil {
		t.Fatal(err)
	}

	if len(captured) != 1 || captured[0] != (CellRef{Row: 1, Col: 1}) {
		t.Fatalf("captured = %v, want [(1,1)]", captured)
	}
	if m.Board[1][1].Owner != OwnerA {
		t.Errorf("cell (1,1) owner = %v, want A", m.Board[1][1].Owner)
	}
	if m.Board[1][1].CardID != 12 {
		t.Errorf("flipped cell card = %v, want 12 (card never removed)", m.Board[1][1].CardID)
	}
	if m.Scores[SlotA] != 6 || m.Scores[SlotB] != 4 {
		t.Errorf("scores = %v, want 6-4", m.Scores)
	}
}

func TestEqualRanksDoNotCapture(t *testing.T) {
	// Card 7 (top rank 3) placed below opposing card 3 (bottom rank 3):
	// equal facing ranks, no flip.
	m, err := NewMatch([HandSize]CardID{3, 1, 2, 4, 5}, [HandSize]CardID{7, 6, 8, 9, 10})
	if err != nil {
		t.Fatal(err)
	}
	m, _, err = PlaceCard(m, SlotA, 0, 0, 0) // card 3
	if err != nil {
		t.Fatal(err)
	}
	m, captured, err := PlaceCard(m, SlotB, 0, 1, 0) // card 7 directly below
	if err != nil {
		t.Fatal(err)
	}

	if len(captured) != 0 {
		t.Fatalf("captured = %v, want none", captured)
	}
	if m.Board[0][0].Owner != OwnerA {
		t.Errorf("cell (0,0) owner = %v, want A", m.Board[0][0].Owner)
	}
	if m.Scores[SlotA] != 5 || m.Scores[SlotB] != 5 {
		t.Errorf("scores = %v, want 5-5", m.Scores)
	}
}

// fullGame drives the reference 9-move sequence used across the test suite.
func fullGame(t *testing.T) *Match {
	t.Helper()
	m, err := NewMatch(handA, handB)
	if err != nil {
		t.Fatal(err)
	}

	moves := []struct {
		slot      Slot
		handIndex int
		row, col  int
	}{
		{SlotA, 0, 0, 0}, // card 1
		{SlotB, 4, 1, 1}, // card 10, non-adjacent, no capture
		{SlotA, 0, 2, 2}, // card 2
		{SlotB, 0, 0, 2}, // card 6
		{SlotA, 0, 2, 0}, // card 3
		{SlotB, 0, 1, 0}, // card 7, flips (0,0) and (2,0)
		{SlotA, 0, 0, 1}, // card 4
		{SlotB, 0, 1, 2}, // card 8
		{SlotA, 0, 2, 1}, // card 5, flips (2,0) back
	}
	for i, mv := range moves {
		var err error
		m, _, err = PlaceCard(m, mv.slot, mv.handIndex, mv.row, mv.col)
		if err != nil {
			t.Fatalf("move %d: %v", i, err)
		}
	}
	return m
}

func TestFullGameOutcome(t *testing.T) {
	m := fullGame(t)

	if m.Status != StatusFinished {
		t.Fatalf("status = %v, want finished", m.Status)
	}
	if m.OccupiedCells() != 9 {
		t.Errorf("occupied cells = %d, want 9", m.OccupiedCells())
	}
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			if m.Board[r][c].CardID == 0 || m.Board[r][c].Owner == OwnerNone {
				t.Errorf("cell (%d,%d) not holding exactly one owned card", r, c)
			}
		}
	}
	if m.Winner != WinnerB {
		t.Errorf("winner = %v, want B", m.Winner)
	}
	if m.Scores[SlotA] != 4 || m.Scores[SlotB] != 6 {
		t.Errorf("scores = %v, want 4-6", m.Scores)
	}
	if got := m.OwnedCount(SlotA); got != m.Scores[SlotA] {
		t.Errorf("OwnedCount(A) = %d, disagrees with score %d", got, m.Scores[SlotA])
	}
	if got := m.OwnedCount(SlotB); got != m.Scores[SlotB] {
		t.Errorf("OwnedCount(B) = %d, disagrees with score %d", got, m.Scores[SlotB])
	}

	// One card remains unplayed across both hands.
	if got := len(m.Hands[SlotA]) + len(m.Hands[SlotB]); got != 1 {
		t.Errorf("unplayed cards = %d, want 1", got)
	}

	if _, _, err := PlaceCard(m, m.Turn, 0, 0, 0); err != ErrMatchFinished {
		t.Errorf("placement after finish: error = %v, want %v", err, ErrMatchFinished)
	}
}

func TestRemainingPool(t *testing.T) {
	m := fullGame(t)

	pool := m.RemainingPool(SlotA)
	if len(pool) != 4 {
		t.Fatalf("loser pool size = %d, want 4", len(pool))
	}
	want := map[CardID]bool{2: true, 3: true, 4: true, 5: true}
	for _, id := range pool {
		if !want[id] {
			t.Errorf("unexpected card %d in loser pool", id)
		}
	}
}

package nakama

import (
	"encoding/json"
	"testing"

	"github.com/heroiclabs/nakama-common/api"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestGameListKeepsOnlyOwnMatches(t *testing.T) {
	matches := []*api.Match{
		{MatchId: "m1", Size: 1, Label: &wrapperspb.StringValue{Value: `{"open":"T","game":"triad","phase":"waiting"}`}},
		{MatchId: "m2", Size: 1, Label: &wrapperspb.StringValue{Value: `{"game":"chess"}`}},
		{MatchId: "m3", Size: 1, Label: &wrapperspb.StringValue{Value: "not a label"}},
		{MatchId: "m4", Size: 1},
	}

	resp := gameList(matches)
	if len(resp.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(resp.Entries))
	}
	e := resp.Entries[0]
	if e.MatchID != "m1" {
		t.Errorf("match id = %q, want m1", e.MatchID)
	}
	if e.Phase != "waiting" {
		t.Errorf("phase = %q, want waiting", e.Phase)
	}
	if e.Size != 1 {
		t.Errorf("size = %d, want 1", e.Size)
	}
}

func TestGameListEmptyStaysAnArray(t *testing.T) {
	b, err := json.Marshal(gameList(nil))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"entries":[]}` {
		t.Errorf("payload = %s, want an empty entries array", b)
	}
}

package nakama

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// openMatchQuery selects authoritative matches still waiting for a second
// hand commitment.
const openMatchQuery = "+label.open:T label.game:triad label.phase:waiting"

// QuickMatchResponse is the payload returned to clients when requesting an
// open match.
type QuickMatchResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

// GameListEntry describes one joinable match.
type GameListEntry struct {
	MatchID string `json:"match_id"`
	Phase   string `json:"phase"`
	Size    int32  `json:"size"`
}

// GameListResponse is the snapshot returned by the list RPC.
type GameListResponse struct {
	Entries []GameListEntry `json:"entries"`
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcQuickMatch, rpcQuickMatch); err != nil {
		return err
	}
	if err := initializer.RegisterRpc(RpcCreateGame, rpcCreateGame); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcListGames, rpcListGames)
}

// rpcCreateGame always creates a fresh match, skipping the open-match search.
// Used for private games where the match id is shared out of band.
func rpcCreateGame(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	matchID, err := nk.MatchCreate(ctx, MatchNameTriad, map[string]interface{}{})
	if err != nil {
		logger.Error("MatchCreate error: %v", err)
		return "", err
	}

	resp := QuickMatchResponse{MatchID: matchID, IsNew: true}
	b, _ := json.Marshal(resp)
	return string(b), nil
}

// rpcListGames returns the open matches awaiting an opponent. Unlike
// quick_match it never creates anything on a miss.
func rpcListGames(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	limit := 100
	authoritative := true

	minSize := 0
	maxSize := 1

	matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, &maxSize, openMatchQuery)
	if err != nil {
		logger.Error("MatchList error: %v", err)
		return "", err
	}

	b, _ := json.Marshal(gameList(matches))
	return string(b), nil
}

// gameList maps listing results into the wire response. Entries whose label
// no longer parses as one of ours are skipped.
func gameList(matches []*api.Match) GameListResponse {
	resp := GameListResponse{Entries: []GameListEntry{}}
	for _, m := range matches {
		var label MatchLabel
		if err := json.Unmarshal([]byte(m.Label.GetValue()), &label); err != nil || label.Game != "triad" {
			continue
		}
		resp.Entries = append(resp.Entries, GameListEntry{
			MatchID: m.MatchId,
			Phase:   label.Phase,
			Size:    m.Size,
		})
	}
	return resp
}

func rpcQuickMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	limit := 10
	authoritative := true

	minSize := 0
	maxSize := 1 // ensure < 2 players

	matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, &maxSize, openMatchQuery)
	if err != nil {
		logger.Error("MatchList error: %v", err)
		return "", err
	}

	if len(matches) > 0 {
		resp := QuickMatchResponse{MatchID: matches[0].MatchId, IsNew: false}
		b, _ := json.Marshal(resp)
		return string(b), nil
	}

	// Create new match; slot assignment happens when the hand commitment
	// arrives (server-authoritative).
	matchID, err := nk.MatchCreate(ctx, MatchNameTriad, map[string]interface{}{})
	if err != nil {
		logger.Error("MatchCreate error: %v", err)
		return "", err
	}

	resp := QuickMatchResponse{MatchID: matchID, IsNew: true}
	b, _ := json.Marshal(resp)
	return string(b), nil
}

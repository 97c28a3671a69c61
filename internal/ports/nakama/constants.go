package nakama

const (
	// RpcQuickMatch is the Nakama RPC id clients call to find or create an open match.
	RpcQuickMatch = "quick_match"

	// RpcCreateGame is the Nakama RPC id for creating a private match directly.
	RpcCreateGame = "create_game"

	// RpcListGames is the Nakama RPC id returning open matches still waiting
	// for an opponent. Read-only: listing never creates a match.
	RpcListGames = "list_games"

	// MatchNameTriad is the authoritative match handler name registered with Nakama.
	MatchNameTriad = "triad_match"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpCommitHand        int64 = 1
	OpPlaceCard         int64 = 2
	OpSubmitHandProof   int64 = 3
	OpSubmitMoveProof   int64 = 4
	OpRequestSettlement int64 = 5
	OpStatus            int64 = 6

	// Server -> Client events
	OpGameCreated          int64 = 101
	OpGameJoined           int64 = 102
	OpGameStart            int64 = 103
	OpGameState            int64 = 104 // sent privately to the mover
	OpMoveApplied          int64 = 105
	OpGameOver             int64 = 106
	OpHandProofRelayed     int64 = 107
	OpMoveProofRelayed     int64 = 108
	OpSettlementReady      int64 = 109
	OpChainFault           int64 = 110
	OpOpponentDisconnected int64 = 111
	OpOpponentReconnected  int64 = 112
	OpStatusSnapshot       int64 = 113
	OpGameError            int64 = 120
)

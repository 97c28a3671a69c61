package nakama

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"strconv"

	"triad/internal/app"
	"triad/internal/config"
	"triad/internal/domain"
	"triad/internal/ports"
	"triad/internal/settle"

	"github.com/heroiclabs/nakama-common/runtime"
)

// MatchLabel is the indexed match listing document. Open is "T" while a
// second player can still commit, so quick_match can filter on it.
type MatchLabel struct {
	Open  string `json:"open"`
	Game  string `json:"game"`
	Phase string `json:"phase"`
}

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	GameID      string                      `json:"game_id"`
	Seats       [2]string                   `json:"seats"` // user IDs in commit order, empty string means unclaimed
	Tick        int64                       `json:"tick"`
	Presences   map[string]runtime.Presence `json:"-"` // userID -> presence for targeted messaging
	AbsentSince map[string]int64            `json:"-"` // userID -> tick the player dropped at
	GraceTicks  int64                       `json:"grace_ticks"`
	App         *app.Service                `json:"-"`
	Session     *app.Session                `json:"-"` // nil until the first hand commitment arrives
	Issuer      *settle.TicketIssuer        `json:"-"`
	Archive     ports.Archive               `json:"-"`
	Settlement  *SettlementReadyPayload     `json:"-"` // cached once assembled so re-requests are idempotent
}

func (ms *MatchState) seatCount() int {
	count := 0
	for _, seat := range ms.Seats {
		if seat != "" {
			count++
		}
	}
	return count
}

func (ms *MatchState) hasSeat(userID string) bool {
	for _, seat := range ms.Seats {
		if seat == userID {
			return true
		}
	}
	return false
}

// NewMatch is the factory function registered with Nakama.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return &matchHandler{}, nil
}

type matchHandler struct{}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	if err := config.LoadGameConfig("data/game_config.json"); err != nil {
		logger.Warn("MatchInit: Could not load game config: %v", err)
	}

	secret := config.GetTicketSecret()
	if secret == nil {
		// No deployment secret configured: tickets from this match are only
		// verifiable while the process lives.
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			logger.Error("MatchInit: Failed to generate ticket secret: %v", err)
			return nil, 0, ""
		}
		logger.Warn("MatchInit: No ticket secret configured, using an ephemeral one.")
	}
	issuer, err := settle.NewTicketIssuer(secret, config.GetTicketIssuer(), config.GetTicketTTL())
	if err != nil {
		logger.Error("MatchInit: Failed to build ticket issuer: %v", err)
		return nil, 0, ""
	}

	matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
	state := &MatchState{
		GameID:      matchID,
		Presences:   make(map[string]runtime.Presence),
		AbsentSince: make(map[string]int64),
		GraceTicks:  int64(config.GetDisconnectGrace().Seconds()),
		App:         app.NewService(nil),
		Issuer:      issuer,
		Archive:     NewStorageArchiveAdapter(nk),
	}

	if env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string); ok {
		if val, ok := env["triad_disconnect_grace_sec"]; ok {
			if i, err := strconv.Atoi(val); err == nil && i > 0 {
				state.GraceTicks = int64(i)
			}
		}
	}

	labelBytes, err := json.Marshal(&MatchLabel{Open: "T", Game: "triad", Phase: "waiting"})
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	tickRate := 1
	return state, tickRate, string(labelBytes)
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	// Committed players may always rejoin their own match.
	if matchState.hasSeat(presence.GetUserId()) {
		return matchState, true, ""
	}
	if matchState.seatCount() >= 2 {
		return matchState, false, "match full"
	}
	if matchState.Session != nil && matchState.Session.Tainted {
		return matchState, false, "match is tainted"
	}
	return matchState, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		matchState.Presences[userID] = p
		delete(matchState.AbsentSince, userID)

		// A returning player gets a reconnect snapshot; a fresh player holds
		// no seat until their hand commitment arrives.
		if matchState.Session != nil && matchState.hasSeat(userID) {
			for _, ev := range matchState.App.Reconnect(matchState.Session, userID) {
				mh.broadcastEvent(matchState, dispatcher, logger, ev)
			}
		}
	}

	return matchState
}

// MatchLeave records the player's absence. The session is retained for the
// configured grace period so a reconnecting player finds the full move log.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		delete(matchState.Presences, userID)

		if matchState.hasSeat(userID) {
			matchState.AbsentSince[userID] = tick
			if matchState.Session != nil {
				for _, ev := range matchState.App.Disconnect(matchState.Session, userID) {
					mh.broadcastEvent(matchState, dispatcher, logger, ev)
				}
			}
			logger.Debug("MatchLeave: Player %s dropped at tick %d.", userID, tick)
		}
	}

	// Nobody ever committed and nobody is connected: nothing to keep alive.
	if len(matchState.Presences) == 0 && matchState.Session == nil {
		logger.Info("MatchLeave: Terminating empty match.")
		return nil
	}

	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpCommitHand:
			mh.handleCommitHand(ctx, matchState, dispatcher, logger, msg)
		case OpPlaceCard:
			mh.handlePlaceCard(matchState, dispatcher, logger, msg)
		case OpSubmitHandProof:
			mh.handleSubmitHandProof(matchState, dispatcher, logger, msg)
		case OpSubmitMoveProof:
			mh.handleSubmitMoveProof(matchState, dispatcher, logger, msg)
		case OpRequestSettlement:
			mh.handleRequestSettlement(ctx, matchState, dispatcher, logger, msg)
		case OpStatus:
			mh.handleStatus(matchState, dispatcher, logger, msg)
		default:
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
		}
	}

	if mh.graceExpired(matchState) {
		logger.Info("MatchLoop: Disconnect grace period expired, closing match %s.", matchState.GameID)
		mh.archiveSession(ctx, matchState, logger)
		return nil
	}

	return matchState
}

// graceExpired reports whether any seated player has been absent longer than
// the grace period. A settled match is exempt: the bundle is already out.
func (mh *matchHandler) graceExpired(state *MatchState) bool {
	if state.Settlement != nil {
		return false
	}
	for _, since := range state.AbsentSince {
		if state.Tick-since > state.GraceTicks {
			return true
		}
	}
	return false
}

func (mh *matchHandler) handleCommitHand(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	request := &CommitHandRequest{}
	if err := json.Unmarshal(msg.GetData(), request); err != nil {
		logger.Warn("CommitHand: Invalid request from %s: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, 400, "malformed commit_hand payload")
		return
	}

	if state.Session == nil {
		sess, events, err := state.App.CreateGame(state.GameID, senderID, request.CardIDs, request.Blinding)
		if err != nil {
			logger.Warn("CommitHand: User %s failed to create game: %v", senderID, err)
			mh.sendError(state, dispatcher, logger, senderID, 400, err.Error())
			return
		}
		state.Session = sess
		state.Seats[0] = senderID
		for _, ev := range events {
			mh.broadcastEvent(state, dispatcher, logger, ev)
		}
		return
	}

	events, err := state.App.JoinGame(state.Session, senderID, request.CardIDs, request.Blinding)
	for _, ev := range events {
		mh.broadcastEvent(state, dispatcher, logger, ev)
	}
	if err != nil {
		logger.Warn("CommitHand: User %s failed to join game: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, 400, err.Error())
		return
	}
	state.Seats[1] = senderID
	mh.updateLabel(state, dispatcher, logger)
}

func (mh *matchHandler) handlePlaceCard(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	if state.Session == nil {
		mh.sendError(state, dispatcher, logger, senderID, 400, "no active game")
		return
	}

	request := &PlaceCardRequest{}
	if err := json.Unmarshal(msg.GetData(), request); err != nil {
		logger.Warn("PlaceCard: Invalid request from %s: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, 400, "malformed place_card payload")
		return
	}

	events, err := state.App.PlaceCard(state.Session, senderID, request.HandIndex, request.Row, request.Col, request.MoveNumber, request.EncryptedNullifier)
	// Chain faults come back as both an error and a broadcast event, so the
	// events are dispatched before the error is reported to the sender.
	for _, ev := range events {
		mh.broadcastEvent(state, dispatcher, logger, ev)
	}
	if err != nil {
		logger.Warn("PlaceCard: User %s move %d rejected: %v", senderID, request.MoveNumber, err)
		mh.sendError(state, dispatcher, logger, senderID, 400, err.Error())
		return
	}

	if state.Session.Match != nil && state.Session.Match.Status == domain.StatusFinished {
		mh.updateLabel(state, dispatcher, logger)
	}
}

func (mh *matchHandler) handleSubmitHandProof(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	if state.Session == nil {
		mh.sendError(state, dispatcher, logger, senderID, 400, "no active game")
		return
	}

	request := &SubmitHandProofRequest{}
	if err := json.Unmarshal(msg.GetData(), request); err != nil {
		logger.Warn("SubmitHandProof: Invalid request from %s: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, 400, "malformed hand proof payload")
		return
	}

	events, err := state.App.SubmitHandProof(state.Session, senderID, request.Proof)
	for _, ev := range events {
		mh.broadcastEvent(state, dispatcher, logger, ev)
	}
	if err != nil {
		logger.Warn("SubmitHandProof: User %s rejected: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, 422, err.Error())
	}
}

func (mh *matchHandler) handleSubmitMoveProof(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	if state.Session == nil {
		mh.sendError(state, dispatcher, logger, senderID, 400, "no active game")
		return
	}

	request := &SubmitMoveProofRequest{}
	if err := json.Unmarshal(msg.GetData(), request); err != nil {
		logger.Warn("SubmitMoveProof: Invalid request from %s: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, 400, "malformed move proof payload")
		return
	}

	events, err := state.App.SubmitMoveProof(state.Session, senderID, request.MoveIndex, request.Proof)
	for _, ev := range events {
		mh.broadcastEvent(state, dispatcher, logger, ev)
	}
	if err != nil {
		logger.Warn("SubmitMoveProof: User %s move %d rejected: %v", senderID, request.MoveIndex, err)
		mh.sendError(state, dispatcher, logger, senderID, 422, err.Error())
	}
}

func (mh *matchHandler) handleRequestSettlement(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	if state.Session == nil {
		mh.sendError(state, dispatcher, logger, senderID, 400, "no active game")
		return
	}

	// The bundle is assembled once; later requests replay the cached result.
	if state.Settlement != nil {
		mh.sendToUser(state, dispatcher, logger, senderID, OpSettlementReady, state.Settlement)
		return
	}

	request := &RequestSettlementRequest{}
	if err := json.Unmarshal(msg.GetData(), request); err != nil {
		logger.Warn("RequestSettlement: Invalid request from %s: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, 400, "malformed settlement payload")
		return
	}

	bundle, err := settle.TryAssemble(state.Session, request.PrizeCardID)
	if err != nil {
		logger.Info("RequestSettlement: Bundle for %s not ready: %v", state.GameID, err)
		mh.sendError(state, dispatcher, logger, senderID, 409, err.Error())
		return
	}

	digest, err := settle.BundleDigest(bundle)
	if err != nil {
		logger.Error("RequestSettlement: Failed to digest bundle: %v", err)
		mh.sendError(state, dispatcher, logger, senderID, 500, "settlement digest failed")
		return
	}
	ticket, err := state.Issuer.Issue(bundle)
	if err != nil {
		logger.Error("RequestSettlement: Failed to issue ticket: %v", err)
		mh.sendError(state, dispatcher, logger, senderID, 500, "settlement ticket failed")
		return
	}

	state.Settlement = &SettlementReadyPayload{
		GameID:      state.GameID,
		Ticket:      ticket,
		BundleSha:   digest,
		Winner:      bundle.Winner,
		PrizeCardID: bundle.PrizeCardID,
		Bundle:      bundle,
	}
	mh.archiveSession(ctx, state, logger)
	mh.updateLabel(state, dispatcher, logger)

	payload, err := json.Marshal(state.Settlement)
	if err != nil {
		logger.Error("RequestSettlement: Failed to marshal payload: %v", err)
		return
	}
	dispatcher.BroadcastMessage(OpSettlementReady, payload, nil, nil, true)
}

func (mh *matchHandler) handleStatus(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	snapshot := &StatusSnapshotPayload{GameID: state.GameID}
	if state.Session != nil {
		progress := state.App.Progress(state.Session)
		snapshot.Progress = progress.String()
		snapshot.Tainted = state.Session.Tainted
		if state.Session.Match != nil {
			view := app.NewStateView(state.Session.Match)
			snapshot.State = &view
		}
	}

	mh.sendToUser(state, dispatcher, logger, senderID, OpStatusSnapshot, snapshot)
}

// archiveSession persists whatever the session holds: the settlement bundle
// once assembled, otherwise a progress marker for abandoned matches.
func (mh *matchHandler) archiveSession(ctx context.Context, state *MatchState, logger runtime.Logger) {
	if state.Archive == nil || state.Session == nil {
		return
	}

	var payload []byte
	var err error
	if state.Settlement != nil {
		payload, err = json.Marshal(state.Settlement)
	} else {
		payload, err = json.Marshal(map[string]any{
			"game_id":  state.GameID,
			"progress": state.App.Progress(state.Session).String(),
			"tainted":  state.Session.Tainted,
		})
	}
	if err != nil {
		logger.Error("Archive: Failed to marshal session record: %v", err)
		return
	}
	if err := state.Archive.Store(ctx, state.GameID, payload); err != nil {
		logger.Error("Archive: Failed to store session record: %v", err)
	}
}

// broadcastEvent converts an app event into a dispatcher broadcast.
func (mh *matchHandler) broadcastEvent(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	opCode, ok := eventOpCodes[ev.Kind]
	if !ok {
		logger.Warn("Unknown event kind: %v", ev.Kind)
		return
	}

	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		logger.Error("Failed to marshal event %v: %v", ev.Kind, err)
		return
	}

	// Resolve intended recipients to live presences; default is broadcast.
	var recipients []runtime.Presence
	if len(ev.Recipients) > 0 {
		for _, uid := range ev.Recipients {
			if p, ok := state.Presences[uid]; ok {
				recipients = append(recipients, p)
			}
		}

		// Targeted events must not leak to everyone when the intended
		// recipient is offline; the reconnect snapshot covers the gap.
		if len(recipients) == 0 {
			return
		}
	}

	dispatcher.BroadcastMessage(opCode, payload, recipients, nil, true)
}

var eventOpCodes = map[app.EventKind]int64{
	app.EventGameCreated:          OpGameCreated,
	app.EventGameJoined:           OpGameJoined,
	app.EventGameStart:            OpGameStart,
	app.EventGameState:            OpGameState,
	app.EventMoveApplied:          OpMoveApplied,
	app.EventGameOver:             OpGameOver,
	app.EventHandProofRelayed:     OpHandProofRelayed,
	app.EventMoveProofRelayed:     OpMoveProofRelayed,
	app.EventChainFault:           OpChainFault,
	app.EventOpponentDisconnected: OpOpponentDisconnected,
	app.EventOpponentReconnected:  OpOpponentReconnected,
}

// sendToUser delivers a payload to a single connected user.
func (mh *matchHandler) sendToUser(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, opCode int64, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to marshal payload for opcode %d: %v", opCode, err)
		return
	}
	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send opcode %d to %s: presence not found", opCode, userID)
		return
	}
	dispatcher.BroadcastMessage(opCode, data, []runtime.Presence{presence}, nil, true)
}

// sendError sends a GameErrorPayload to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, code int, message string) {
	mh.sendToUser(state, dispatcher, logger, userID, OpGameError, &GameErrorPayload{Code: code, Message: message})
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label := &MatchLabel{Open: "T", Game: "triad", Phase: "waiting"}
	if state.Session != nil {
		label.Open = "F"
		label.Phase = string(state.Session.Status)
	}
	if state.Session != nil && state.seatCount() < 2 {
		label.Open = "T"
	}

	labelBytes, err := json.Marshal(label)
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(string(labelBytes)); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, reason int) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}
	logger.Debug("MatchTerminate: Match terminated for reason %d", reason)
	mh.archiveSession(ctx, matchState, logger)
	return matchState
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}

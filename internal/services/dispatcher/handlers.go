package dispatcher

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/mcoot/partygames/internal/model"
	"github.com/mcoot/partygames/internal/services/registry"
	"github.com/mcoot/partygames/internal/services/session"
)

func decode[T any](in model.Inbound) (T, error) {
	var p T
	if len(in.Payload) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(in.Payload, &p); err != nil {
		return p, model.ErrInvalidPayload
	}
	return p, nil
}

func (r *room) onCreated(e createdEvent) {
	release := r.bind(e.conn, e.host)
	r.reply(e.conn, model.EventRoomCreated, r.roomPayload(e.host))
	r.prefetch()
	release()
}

func (r *room) onAction(e actionEvent) {
	in := e.in
	switch in.Type {
	case model.ActionJoinRoom:
		r.handleJoin(e.conn, in)
		return
	case model.ActionAttach:
		r.handleAttach(e.conn, in)
		return
	case model.ActionCreateRoom:
		r.reject(e.conn, in.Type, model.ErrRoomExists)
		return
	}

	if !r.m.authenticated(e.conn, r.id, in.Identity) || !r.session.Has(in.Identity) {
		r.reject(e.conn, in.Type, model.ErrNotInRoom)
		return
	}

	var err error
	switch in.Type {
	case model.ActionLeaveRoom:
		r.removePlayer(in.Identity, "left")
	case model.ActionCloseRoom:
		err = r.handleClose(in)
	case model.ActionRequestState:
		r.reply(e.conn, model.EventState, r.roomPayload(in.Identity))
	case model.ActionStartGame:
		err = r.handleStart(e.conn, in)
	case model.ActionReady:
		err = r.handleReady(in)
	case model.ActionPassTurn:
		err = r.handlePass(in)
	case model.ActionNextRound:
		err = r.handleNextRound(in)
	case model.ActionEndGame:
		err = r.handleEndGame(in)
	case model.ActionPause:
		err = r.handlePause(in)
	case model.ActionResume:
		err = r.handleResume(in)
	case model.ActionCorrectGuess:
		err = r.handleCorrectGuess(in)
	case model.ActionGuess:
		err = r.handleGuess(e.conn, in)
	case model.ActionDrawStroke:
		err = r.handleStroke(in)
	case model.ActionClearCanvas:
		err = r.handleClearCanvas(in)
	case model.ActionSubmitAnswer:
		err = r.handleSubmitAnswer(e.conn, in)
	case model.ActionSubmitWords:
		err = r.handleSubmitWords(in)
	case model.ActionStopBus:
		err = r.handleStopBus(in)
	default:
		err = model.ErrInvalidAction
	}
	if err != nil {
		r.reject(e.conn, in.Type, err)
	}
}

// Room lifecycle

func (r *room) handleJoin(conn registry.Conn, in model.Inbound) {
	p, err := decode[model.JoinRoomPayload](in)
	if err != nil {
		r.reject(conn, in.Type, err)
		return
	}
	if r.session.Status() != model.StatusWaiting {
		r.reject(conn, in.Type, model.ErrGameAlreadyStarted)
		return
	}
	if _, err := r.session.AddPlayer(in.Identity, p.Avatar); err != nil {
		r.reject(conn, in.Type, err)
		return
	}

	release := r.bind(conn, in.Identity)
	r.reply(conn, model.EventJoined, r.roomPayload(in.Identity))
	r.broadcast(model.EventRosterUpdated, model.RosterPayload{
		Players: r.session.Players(),
		Host:    r.session.Host(),
	})
	r.logger.Info("player joined", slog.String("player", in.Identity))
	release()
}

// handleAttach binds a new connection to an identity already on the roster
func (r *room) handleAttach(conn registry.Conn, in model.Inbound) {
	if !r.session.Has(in.Identity) {
		r.reject(conn, in.Type, model.ErrNotInRoom)
		return
	}
	release := r.bind(conn, in.Identity)
	r.reply(conn, model.EventState, r.roomPayload(in.Identity))
	release()
}

func (r *room) handleClose(in model.Inbound) error {
	if !r.session.IsHost(in.Identity) {
		return model.ErrNotHost
	}
	r.close("closed by host")
	return nil
}

func (r *room) onDisconnect(e disconnectEvent) {
	remaining := r.m.registry.Unbind(r.id, e.identity, e.conn.ID())
	r.m.unbind(r.id, e.identity, e.conn)

	if remaining > 0 || !r.m.cfg.LeaveOnDisconnect || !r.session.Has(e.identity) {
		return
	}
	r.removePlayer(e.identity, "disconnected")
}

// removePlayer drops identity and settles host, turn and room lifetime
func (r *room) removePlayer(identity, reason string) {
	removal, err := r.session.RemovePlayer(identity)
	if err != nil {
		return
	}

	left := model.PlayerLeftPayload{Name: identity, Reason: reason, Players: r.session.Players()}
	conns := r.m.registry.RemoveIdentity(r.id, identity)
	r.m.unbind(r.id, identity, conns...)
	for _, c := range conns {
		r.reply(c, model.EventPlayerLeft, left)
	}
	r.logger.Info("player left",
		slog.String("player", identity),
		slog.String("reason", reason))

	if removal.Empty {
		r.close("room is empty")
		return
	}

	r.broadcast(model.EventPlayerLeft, left)
	if removal.HostChanged {
		r.broadcast(model.EventHostChanged, model.HostChangedPayload{
			OldHost: removal.OldHost,
			NewHost: removal.NewHost,
		})
	}

	if r.m.cfg.AutoCloseSolo && r.session.Len() == 1 && r.session.Status() != model.StatusWaiting {
		r.close("not enough players")
		return
	}

	if removal.TurnChanged {
		r.turnRestarted()
	}
	if q, ok := r.quiz(); ok && r.session.Status() == model.StatusRoundActive && !q.Closed() && q.AllAnswered(r.session) {
		r.armTurn(tagAdvance, r.m.cfg.RevealDelay)
	}
}

// Game flow

func (r *room) handleStart(conn registry.Conn, in model.Inbound) error {
	if !r.session.IsHost(in.Identity) {
		return model.ErrNotHost
	}
	if r.session.Status() != model.StatusWaiting {
		return model.ErrGameAlreadyStarted
	}
	if r.session.Len() < model.MinPlayers {
		return model.ErrNotEnoughPlayers
	}

	var item *model.Item
	if r.session.Variant().NeedsItem() {
		item = r.takeItem()
		if item == nil {
			// Start once content arrives
			r.need = needStart
			r.starter = conn
			r.requestItem()
			return nil
		}
	}
	r.startGame(conn, item)
	return nil
}

func (r *room) startGame(conn registry.Conn, item *model.Item) {
	if err := r.session.StartGame(item); err != nil {
		r.stash(item)
		if conn != nil {
			r.reject(conn, model.ActionStartGame, err)
		}
		return
	}

	r.broadcast(model.EventGameStarted, model.GameStartedPayload{
		GameType:    r.session.GameType(),
		Status:      r.session.Status(),
		CurrentTurn: r.session.CurrentTurn(),
		Scores:      r.session.Scores(),
		TeamScores:  r.session.TeamScores(),
	})
	r.beginRound()
	r.prefetch()
	r.logger.Info("game started", slog.Int("players", r.session.Len()))
}

func (r *room) handleReady(in model.Inbound) error {
	if err := r.session.Ready(in.Identity); err != nil {
		return err
	}

	limit := r.roundLimit()
	r.armTurn(tagRound, limit)
	r.armHints(1, 0)
	r.broadcast(model.EventRoundActive, model.RoundActivePayload{
		CurrentTurn: r.session.CurrentTurn(),
		Round:       r.session.Round(),
		Duration:    model.Seconds(limit),
		StartedAt:   *r.session.RoundStartedAt(),
	})
	return nil
}

func (r *room) handlePass(in model.Inbound) error {
	if !r.session.Variant().TurnBased() {
		return model.ErrInvalidAction
	}
	performer := r.session.CurrentTurn()
	if in.Identity != performer && !r.session.IsHost(in.Identity) {
		return model.ErrNotYourTurn
	}
	if st := r.session.Status(); st != model.StatusPlaying && st != model.StatusRoundActive {
		return model.ErrWrongGameStatus
	}

	r.broadcast(model.EventTurnPassed, model.TurnEndedPayload{
		Performer: performer,
		By:        in.Identity,
		Item:      fullView(r.session.Item()),
		Scores:    r.session.Scores(),
	})
	r.advanceTurn("passed")
	return nil
}

func (r *room) handleNextRound(in model.Inbound) error {
	if !r.session.IsHost(in.Identity) {
		return model.ErrNotHost
	}
	wr, ok := r.wordRace()
	if !ok {
		return model.ErrInvalidAction
	}
	if r.session.Status() != model.StatusScoring || !wr.Scored() {
		return model.ErrWrongGameStatus
	}
	if err := r.session.AdvanceRound(nil); err != nil {
		return err
	}
	r.beginRound()
	return nil
}

func (r *room) handleEndGame(in model.Inbound) error {
	if !r.session.IsHost(in.Identity) {
		return model.ErrNotHost
	}
	if r.session.Status() == model.StatusWaiting {
		return model.ErrWrongGameStatus
	}
	r.endGame()
	return nil
}

func (r *room) endGame() {
	if err := r.session.EndGame(); err != nil {
		return
	}
	r.m.scheduler.CleanupRoom(r.id)
	r.need = needNone
	r.starter = nil
	r.pausedTag = ""
	r.broadcast(model.EventGameEnded, model.GameEndedPayload{
		Scores:     r.session.Scores(),
		TeamScores: r.session.TeamScores(),
	})
	r.logger.Info("game ended")
}

func (r *room) handlePause(in model.Inbound) error {
	if !r.session.IsHost(in.Identity) {
		return model.ErrNotHost
	}
	fire, deadline, pending := r.m.scheduler.PendingTurn(r.id)
	if err := r.session.Pause(); err != nil {
		return err
	}

	r.pausedTag = ""
	r.pausedRemaining = 0
	if pending {
		r.pausedTag = fire.Tag
		if remaining := deadline.Sub(r.m.clock.Now()); remaining > 0 {
			r.pausedRemaining = model.Seconds(remaining)
		}
	}
	r.m.scheduler.CancelTurnTimer(r.id)
	r.m.scheduler.CancelHints(r.id)

	r.broadcast(model.EventGamePaused, model.PausePayload{
		Status:    r.session.Status(),
		Remaining: r.pausedRemaining,
	})
	return nil
}

func (r *room) handleResume(in model.Inbound) error {
	if !r.session.IsHost(in.Identity) {
		return model.ErrNotHost
	}
	if _, err := r.session.Resume(); err != nil {
		return err
	}

	if r.pausedTag != "" {
		r.armTurn(r.pausedTag, r.pausedRemaining.Duration())
	}
	if r.session.Variant().TurnBased() && r.session.Status() == model.StatusRoundActive {
		r.armHints(r.session.HintsRevealed()+1, r.session.Elapsed())
	}
	r.broadcast(model.EventGameResumed, model.PausePayload{
		Status:    r.session.Status(),
		Remaining: r.pausedRemaining,
	})
	r.pausedTag = ""
	r.pausedRemaining = 0
	return nil
}

// Turn-based guessing and drawing

func (r *room) handleCorrectGuess(in model.Inbound) error {
	if !r.session.Variant().TurnBased() {
		return model.ErrInvalidAction
	}
	p, err := decode[model.CorrectGuessPayload](in)
	if err != nil {
		return err
	}
	if in.Identity != r.session.CurrentTurn() && !r.session.IsHost(in.Identity) {
		return model.ErrNotYourTurn
	}
	if !r.session.Has(p.Guesser) {
		return model.ErrNotInRoom
	}

	award, err := r.session.ScoreSubmission(session.Submission{Player: p.Guesser})
	if err != nil {
		return err
	}
	r.solved(p.Guesser, award.Points)
	return nil
}

func (r *room) handleGuess(conn registry.Conn, in model.Inbound) error {
	if !r.session.Variant().TurnBased() {
		return model.ErrInvalidAction
	}
	p, err := decode[model.GuessPayload](in)
	if err != nil {
		return err
	}
	if strings.TrimSpace(p.Text) == "" {
		return model.ErrInvalidPayload
	}

	award, err := r.session.ScoreSubmission(session.Submission{Player: in.Identity, Answer: p.Text})
	if err != nil {
		return err
	}
	r.reply(conn, model.EventAnswerResult, model.AnswerResultPayload{Correct: award.Correct, Points: award.Points})
	if award.Correct {
		r.solved(in.Identity, award.Points)
	}
	return nil
}

func (r *room) solved(guesser string, points int) {
	r.m.scheduler.CancelHints(r.id)
	r.broadcast(model.EventScoreUpdate, model.ScoreUpdatePayload{
		Performer:  r.session.CurrentTurn(),
		Guesser:    guesser,
		Points:     points,
		Item:       fullView(r.session.Item()),
		Scores:     r.session.Scores(),
		TeamScores: r.session.TeamScores(),
	})
	r.advanceTurn("correct_guess")
}

func (r *room) handleStroke(in model.Inbound) error {
	t, ok := r.turns()
	if !ok {
		return model.ErrInvalidAction
	}
	p, err := decode[model.StrokePayload](in)
	if err != nil {
		return err
	}
	if err := t.AddStroke(r.session, in.Identity, p.Stroke); err != nil {
		return err
	}
	r.broadcast(model.EventStroke, p)
	return nil
}

func (r *room) handleClearCanvas(in model.Inbound) error {
	t, ok := r.turns()
	if !ok {
		return model.ErrInvalidAction
	}
	if err := t.ClearCanvas(r.session, in.Identity); err != nil {
		return err
	}
	r.broadcast(model.EventCanvasCleared, nil)
	return nil
}

// Simultaneous variants

func (r *room) handleSubmitAnswer(conn registry.Conn, in model.Inbound) error {
	q, ok := r.quiz()
	if !ok {
		return model.ErrInvalidAction
	}
	p, err := decode[model.SubmitAnswerPayload](in)
	if err != nil {
		return err
	}

	award, err := r.session.ScoreSubmission(session.Submission{Player: in.Identity, Answer: p.Answer})
	if err != nil {
		return err
	}
	r.reply(conn, model.EventAnswerResult, model.AnswerResultPayload{Correct: award.Correct, Points: award.Points})

	switch {
	case award.Correct:
		r.revealQuestion(q)
	case q.AllAnswered(r.session):
		r.armTurn(tagAdvance, r.m.cfg.RevealDelay)
	}
	return nil
}

func (r *room) handleSubmitWords(in model.Inbound) error {
	wr, ok := r.wordRace()
	if !ok {
		return model.ErrInvalidAction
	}
	p, err := decode[model.SubmitWordsPayload](in)
	if err != nil {
		return err
	}
	if _, err := r.session.ScoreSubmission(session.Submission{Player: in.Identity, Answers: p.Answers}); err != nil {
		return err
	}
	r.broadcast(model.EventWordsSubmitted, model.WordsSubmittedPayload{Submitted: wr.Submitted()})
	return nil
}

func (r *room) handleStopBus(in model.Inbound) error {
	wr, ok := r.wordRace()
	if !ok {
		return model.ErrInvalidAction
	}
	if err := wr.EndRound(r.session, in.Identity); err != nil {
		return err
	}
	r.m.scheduler.CancelTurnTimer(r.id)
	r.broadcast(model.EventBusStopped, model.BusStoppedPayload{StoppedBy: in.Identity})
	r.scoreRound(wr)
	return nil
}

// Variant access

func (r *room) turns() (*session.Turns, bool) {
	t, ok := r.session.Variant().(*session.Turns)
	return t, ok
}

func (r *room) quiz() (*session.Quiz, bool) {
	q, ok := r.session.Variant().(*session.Quiz)
	return q, ok
}

func (r *room) wordRace() (*session.WordRace, bool) {
	w, ok := r.session.Variant().(*session.WordRace)
	return w, ok
}

func fullView(item *model.Item) *model.ItemView {
	if item == nil {
		return nil
	}
	return item.FullView()
}

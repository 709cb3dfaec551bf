package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcoot/partygames/internal/model"
	"github.com/mcoot/partygames/internal/services/scheduler"
	"github.com/mcoot/partygames/internal/services/session"
)

// Rounds

// beginRound announces a round the session has just opened and arms its timer
func (r *room) beginRound() {
	switch {
	case r.session.Variant().TurnBased():
		r.armTurn(tagReady, r.m.cfg.TurnTimeout)
		r.deliverItem()
	case r.session.GameType() == model.GameTrivia:
		limit := r.questionLimit()
		r.armTurn(tagQuestion, limit)
		r.broadcast(model.EventQuestion, model.QuestionPayload{
			Round:    r.session.Round(),
			Question: r.session.Variant().VisibleContentFor(r.session, ""),
			Duration: model.Seconds(limit),
		})
	default:
		limit := r.busLimit()
		r.armTurn(tagBus, limit)
		r.broadcast(model.EventRoundActive, model.RoundActivePayload{
			Round:     r.session.Round(),
			Duration:  model.Seconds(limit),
			StartedAt: *r.session.RoundStartedAt(),
		})
		r.broadcast(model.EventState, r.roomPayload(""))
	}
}

// advanceTurn hands a turn-based game to the next performer
func (r *room) advanceTurn(reason string) {
	r.m.scheduler.CancelHints(r.id)
	item := r.takeItem()
	if err := r.session.AdvanceRound(item); err != nil {
		r.stash(item)
		r.logger.Error("failed to advance turn", slog.String("error", err.Error()))
		return
	}

	r.armTurn(tagReady, r.m.cfg.TurnTimeout)
	r.broadcast(model.EventTurnChanged, model.TurnChangedPayload{
		CurrentTurn: r.session.CurrentTurn(),
		Round:       r.session.Round(),
		Status:      r.session.Status(),
		Reason:      reason,
	})
	r.deliverItem()
	r.prefetch()
}

// turnRestarted follows a performer leaving mid-turn: the new holder starts
// again from the ready step with the same item
func (r *room) turnRestarted() {
	r.m.scheduler.CancelHints(r.id)
	if r.session.Status() == model.StatusPaused {
		r.pausedTag = tagReady
		r.pausedRemaining = model.Seconds(r.m.cfg.TurnTimeout)
	} else {
		r.armTurn(tagReady, r.m.cfg.TurnTimeout)
	}
	r.broadcast(model.EventTurnChanged, model.TurnChangedPayload{
		CurrentTurn: r.session.CurrentTurn(),
		Round:       r.session.Round(),
		Status:      r.session.Status(),
		Reason:      "player_left",
	})
	r.deliverItem()
}

// deliverItem sends the current item to the performer only, fetching one first if needed
func (r *room) deliverItem() {
	item := r.session.Item()
	if item == nil {
		r.need = needAssign
		r.requestItem()
		return
	}
	r.sendTo(r.session.CurrentTurn(), model.EventItemAssigned, model.ItemAssignedPayload{
		Round: r.session.Round(),
		Item:  item.FullView(),
	})
}

func (r *room) revealQuestion(q *session.Quiz) {
	r.broadcast(model.EventQuestionRevealed, model.QuestionRevealedPayload{
		Answer:     r.session.Item().Answer,
		Winner:     q.Winner(),
		Scores:     r.session.Scores(),
		TeamScores: r.session.TeamScores(),
	})
	r.armTurn(tagAdvance, r.m.cfg.RevealDelay)
}

func (r *room) advanceQuestion() {
	item := r.takeItem()
	if item == nil {
		r.need = needAdvance
		r.requestItem()
		return
	}
	r.nextQuestion(item)
}

func (r *room) nextQuestion(item *model.Item) {
	if err := r.session.AdvanceRound(item); err != nil {
		r.stash(item)
		r.logger.Error("failed to advance question", slog.String("error", err.Error()))
		return
	}
	r.beginRound()
	r.prefetch()
}

// Timers

func (r *room) fire(f scheduler.Fire) {
	r.post(timerEvent{fire: f})
}

func (r *room) armTurn(tag string, d time.Duration) {
	r.m.scheduler.StartTurnTimer(r.id, d, tag, r.fire)
}

// armHints schedules hints from number first onwards. elapsed is the round
// time already spent, so resumed rounds keep their original offsets.
func (r *room) armHints(first int, elapsed time.Duration) {
	offsets := r.m.cfg.HintOffsets
	if first < 1 || first > len(offsets) {
		r.m.scheduler.CancelHints(r.id)
		return
	}
	delays := make([]time.Duration, 0, len(offsets)-first+1)
	for _, offset := range offsets[first-1:] {
		delays = append(delays, max(offset-elapsed, 0))
	}
	r.m.scheduler.StartHintCycle(r.id, delays, first, r.fire)
}

// onTimer applies a fire only if it is still the armed instance and the
// round is still in the state it was armed for
func (r *room) onTimer(f scheduler.Fire) {
	if !r.m.scheduler.Consume(f) {
		return
	}

	if f.Kind == scheduler.KindHint {
		text, ok := r.session.RevealHint(f.Hint)
		if !ok {
			return
		}
		r.sendExcept(r.session.CurrentTurn(), model.EventHint, model.HintPayload{Number: f.Hint, Text: text})
		return
	}

	status := r.session.Status()
	switch f.Tag {
	case tagReady:
		if status == model.StatusPlaying {
			r.turnTimedOut(0)
		}
	case tagRound:
		if status == model.StatusRoundActive {
			r.turnTimedOut(r.m.cfg.TimeoutPenalty)
		}
	case tagQuestion:
		if q, ok := r.quiz(); ok && status == model.StatusRoundActive && q.Reveal() {
			r.revealQuestion(q)
		}
	case tagAdvance:
		if status == model.StatusRoundActive {
			r.advanceQuestion()
		}
	case tagBus:
		if wr, ok := r.wordRace(); ok && status == model.StatusRoundActive {
			if err := wr.EndRound(r.session, ""); err == nil {
				r.broadcast(model.EventBusStopped, model.BusStoppedPayload{})
				r.scoreRound(wr)
			}
		}
	}
}

func (r *room) turnTimedOut(penalty int) {
	performer := r.session.CurrentTurn()
	r.session.Penalize(performer, penalty)
	r.broadcast(model.EventTurnTimeout, model.TurnEndedPayload{
		Performer: performer,
		Item:      fullView(r.session.Item()),
		Penalty:   penalty,
		Scores:    r.session.Scores(),
	})
	r.advanceTurn("timeout")
}

// Content

// takeItem returns the next item for this room without blocking: custom
// items first, then the prefetched one
func (r *room) takeItem() *model.Item {
	if len(r.custom) > 0 {
		prompt := r.custom[0]
		r.custom = r.custom[1:]
		r.customN++
		return &model.Item{
			ID:        model.ItemID(fmt.Sprintf("custom-%d", r.customN)),
			GameType:  r.session.GameType(),
			Category:  "custom",
			Prompt:    prompt,
			Source:    "custom",
			CreatedAt: r.m.clock.Now(),
		}
	}
	item := r.buffer
	r.buffer = nil
	return item
}

func (r *room) stash(item *model.Item) {
	if item != nil && r.buffer == nil {
		r.buffer = item
	}
}

// prefetch keeps one item ready so turn changes do not wait on the source
func (r *room) prefetch() {
	if !r.session.Variant().NeedsItem() || len(r.custom) > 0 || r.buffer != nil {
		return
	}
	r.requestItem()
}

// requestItem fetches off the room goroutine; the result comes back as an itemEvent
func (r *room) requestItem() {
	if r.fetching {
		return
	}
	r.fetching = true

	gameType := r.session.GameType()
	category := r.session.Settings().Category
	go func() {
		ctx, cancel := context.WithTimeout(r.m.ctx, r.m.cfg.FetchTimeout)
		defer cancel()
		item, err := r.m.items.FetchNext(ctx, r.usage, gameType, category)
		if err == nil && item == nil {
			err = model.ErrContentUnavailable
		}
		r.post(itemEvent{item: item, err: err})
	}()
}

func (r *room) onItem(e itemEvent) {
	r.fetching = false
	need := r.need
	r.need = needNone

	if e.err != nil {
		r.logger.Warn("content unavailable", slog.String("error", e.err.Error()))
		r.contentFailed(need)
		return
	}

	switch need {
	case needStart:
		starter := r.starter
		r.starter = nil
		if r.session.Status() != model.StatusWaiting {
			r.stash(e.item)
			return
		}
		r.startGame(starter, e.item)
	case needAssign:
		if r.session.Variant().TurnBased() && r.session.Status() != model.StatusWaiting && r.session.Item() == nil {
			r.session.SetItem(e.item)
			r.deliverItem()
			r.prefetch()
			return
		}
		r.stash(e.item)
	case needAdvance:
		if _, ok := r.quiz(); ok && r.session.Status() == model.StatusRoundActive {
			r.nextQuestion(e.item)
			return
		}
		r.stash(e.item)
	default:
		r.stash(e.item)
	}
}

func (r *room) contentFailed(need itemNeed) {
	switch need {
	case needStart:
		if r.starter != nil {
			r.reject(r.starter, model.ActionStartGame, model.ErrContentUnavailable)
		}
		r.starter = nil
	case needAssign:
		// The ready timeout will skip this performer and try again
		if conn, ok := r.m.registry.Resolve(r.id, r.session.CurrentTurn()); ok {
			r.m.outbox.Reject(conn, model.ActionReady, model.ErrContentUnavailable)
		}
	case needAdvance:
		r.endGame()
	}
}

// Word race scoring

// scoreRound validates answers off the room goroutine, then scores
func (r *room) scoreRound(wr *session.WordRace) {
	pending := wr.PendingAnswers()
	if r.m.validator == nil || !r.session.Settings().ShouldValidateAnswers() || len(pending) == 0 {
		r.finishRound(wr, nil)
		return
	}

	round := r.session.Round()
	go func() {
		ctx, cancel := context.WithTimeout(r.m.ctx, r.m.cfg.FetchTimeout)
		defer cancel()
		invalid, err := r.m.validator.Validate(ctx, pending)
		r.post(validationEvent{round: round, invalid: invalid, err: err})
	}()
}

func (r *room) onValidation(e validationEvent) {
	wr, ok := r.wordRace()
	if !ok || r.session.Status() != model.StatusScoring || r.session.Round() != e.round || wr.Scored() {
		return
	}
	invalid := e.invalid
	if e.err != nil {
		r.logger.Warn("answer validation failed, accepting all answers", slog.String("error", e.err.Error()))
		invalid = nil
	}
	r.finishRound(wr, invalid)
}

func (r *room) finishRound(wr *session.WordRace, invalid map[string]map[string]string) {
	results, err := wr.ScoreRound(r.session, invalid)
	if err != nil {
		r.logger.Error("failed to score round", slog.String("error", err.Error()))
		return
	}
	r.broadcast(model.EventRoundResults, results)
}

// Limits

func (r *room) roundLimit() time.Duration {
	if d := r.session.Settings().TimeLimit.Duration(); d > 0 {
		return d
	}
	return r.m.cfg.RoundTimeLimit
}

func (r *room) questionLimit() time.Duration {
	if d := r.session.Settings().TimeLimit.Duration(); d > 0 {
		return d
	}
	return r.m.cfg.TriviaTimeLimit
}

func (r *room) busLimit() time.Duration {
	if d := r.session.Settings().TimeLimit.Duration(); d > 0 {
		return d
	}
	return r.m.cfg.BusTimeLimit
}

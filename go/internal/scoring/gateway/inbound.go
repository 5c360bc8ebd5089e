package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/iNESlab/golbang-live/go/internal/metrics"
	"github.com/iNESlab/golbang-live/go/internal/scorecache"
	"github.com/iNESlab/golbang-live/go/internal/scoring"
	"github.com/iNESlab/golbang-live/go/internal/store"
)

// handleClientMessage routes one inbound frame. Every failure is converted
// to an inline error reply on the same connection; nothing here tears the
// connection down.
func (cm *ConnectionManager) handleClientMessage(c *Connection, raw []byte) {
	msg, err := ParseClientMessage(raw)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			c.send(encodeErrorMessage(http.StatusBadRequest, verr.Reason))
			return
		}
		c.send(encodeErrorMessage(http.StatusBadRequest, "invalid message"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cm.config.RequestTimeout)
	defer cancel()

	switch msg.Action {
	case ActionGet:
		cm.handleGet(ctx, c)
	case ActionInput:
		cm.handleInput(ctx, c, msg.Input)
	}
}

// handleGet replies with the full current roster for the caller's group,
// or resyncs the event snapshot for viewers without a group scope.
func (cm *ConnectionManager) handleGet(ctx context.Context, c *Connection) {
	if c.GroupType == nil {
		if err := cm.app.BroadcastSnapshot(ctx, c.Event.ID); err != nil {
			c.send(inlineError(err))
		}
		return
	}

	roster, err := cm.app.GroupRoster(ctx, c.Event.ID, *c.GroupType)
	if err != nil {
		c.send(inlineError(err))
		return
	}
	data, err := encodeServerMessage(MessageTypeRoster, roster)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode roster")
		return
	}
	c.send(data)
}

func (cm *ConnectionManager) handleInput(ctx context.Context, c *Connection, input *InputScore) {
	// The submitting connection receives the resulting update through the
	// group broadcast like every other group viewer; event-wide viewers
	// catch up on the next snapshot.
	_, err := cm.app.SubmitScore(ctx, c.Event, input.ParticipantID, input.HoleNumber, input.Score)
	if err != nil {
		metrics.ScoreSubmitErrors.Inc()
		log.Warn().Err(err).
			Str("connection_id", c.ID).
			Str("event_id", c.Event.ID.String()).
			Str("participant_id", input.ParticipantID.String()).
			Msg("score submission failed")
		c.send(inlineError(err))
		return
	}
	metrics.ScoresSubmitted.Inc()
}

// inlineError maps the error taxonomy onto an inline reply: validation and
// range errors are 400, unknown participants/events 404, an unreachable
// cache 503. The connection always stays usable afterwards.
func inlineError(err error) []byte {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return encodeErrorMessage(http.StatusBadRequest, verr.Reason)
	case errors.Is(err, scoring.ErrHoleOutOfRange), errors.Is(err, scorecache.ErrInvalidScore):
		return encodeErrorMessage(http.StatusBadRequest, err.Error())
	case errors.Is(err, scorecache.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return encodeErrorMessage(http.StatusNotFound, err.Error())
	case errors.Is(err, scorecache.ErrCacheUnavailable):
		return encodeErrorMessage(http.StatusServiceUnavailable, "score cache unavailable, try again")
	default:
		return encodeErrorMessage(http.StatusInternalServerError, "internal error")
	}
}

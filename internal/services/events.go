package services

import (
	"context"
	"encoding/json"
	"errors"

	"dispatch-service/internal/models"
)

// HandleEvent decodes one inbound envelope and routes it. register and
// updateLocation complete before HandleEvent returns; sendAlert and
// respondToAlert run in the background so the channel keeps reading.
// Malformed payloads are answered with an error event.
func (s *Service) HandleEvent(ctx context.Context, handle string, env models.Envelope) {
	switch env.Event {
	case models.EventRegister:
		var req models.RegisterRequest
		if s.decode(handle, env, &req) {
			_ = s.OnRegister(ctx, handle, req)
		}
	case models.EventUpdateLocation:
		var req models.UpdateLocationRequest
		if !s.decode(handle, env, &req) {
			return
		}
		if err := s.OnUpdateLocation(ctx, handle, req); err != nil {
			s.replyError(handle, env.Event, err)
		}
	case models.EventSendAlert:
		var req models.SendAlertRequest
		if !s.decode(handle, env, &req) {
			return
		}
		s.background(func() {
			_, _ = s.SendAlert(s.ctx, handle, req)
		})
	case models.EventRespondToAlert:
		var req models.RespondToAlertRequest
		if !s.decode(handle, env, &req) {
			return
		}
		resp, err := newResponse(req)
		if err != nil {
			s.replyError(handle, env.Event, err)
			return
		}
		s.background(func() {
			s.RespondToAlert(s.ctx, resp)
		})
	default:
		s.replyError(handle, env.Event, invalid("unknown event %q", env.Event))
	}
}

func (s *Service) decode(handle string, env models.Envelope, v any) bool {
	if len(env.Data) == 0 {
		s.replyError(handle, env.Event, invalid("missing payload"))
		return false
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		s.replyError(handle, env.Event, invalid("malformed payload: %v", err))
		return false
	}
	return true
}

func (s *Service) replyError(handle, event string, err error) {
	if !errors.Is(err, ErrInvalidRequest) {
		s.logger.Errorf("Event %s on %s failed: %v", event, handle, err)
	} else {
		s.logger.Warnf("Event %s on %s rejected: %v", event, handle, err)
	}
	s.reply(handle, models.EventError, models.ErrorNotice{Event: event, Error: err.Error()})
}

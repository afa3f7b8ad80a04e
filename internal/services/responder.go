package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"dispatch-service/internal/directory"
	"dispatch-service/internal/models"
)

const responsePushType = "alert_response"

func newResponse(req models.RespondToAlertRequest) (models.AlertResponse, error) {
	resp := models.AlertResponse{
		AlertID:     strings.TrimSpace(req.AlertID),
		RecipientID: strings.TrimSpace(req.RecipientID),
		RequesterID: strings.TrimSpace(req.RequesterID),
	}
	switch {
	case resp.AlertID == "":
		return resp, invalid("alertId is required")
	case resp.RecipientID == "":
		return resp, invalid("recipientId is required")
	case resp.RequesterID == "":
		return resp, invalid("requesterId is required")
	case req.Accepted == nil:
		return resp, invalid("accepted is required")
	}
	resp.Accepted = *req.Accepted
	return resp, nil
}

// RespondToAlert records a recipient's response and routes it to the
// requester: on its live channel when connected, otherwise as a push. When the
// requester cannot be reached the outcome carries ErrRecipientUnreachable.
// Nothing is sent back to the responding recipient.
func (s *Service) RespondToAlert(ctx context.Context, resp models.AlertResponse) models.ResponseOutcome {
	if resp.RespondedAt.IsZero() {
		resp.RespondedAt = time.Now().UTC()
	}
	out := models.ResponseOutcome{
		AlertID:     resp.AlertID,
		RecipientID: resp.RecipientID,
		RequesterID: resp.RequesterID,
		Channel:     models.ChannelNone,
	}
	log := s.logger.WithFields(logrus.Fields{
		"alert_id":  resp.AlertID,
		"recipient": resp.RecipientID,
		"requester": resp.RequesterID,
		"accepted":  resp.Accepted,
	})

	cctx, cancel := s.callContext(ctx)
	err := s.directory.AppendResponse(cctx, resp)
	cancel()
	if err != nil {
		log.Errorf("Failed to record response: %v", err)
	} else {
		out.Recorded = true
	}

	defer func() { s.metrics.ObserveResponse(out.Channel) }()

	if requester, ok := s.registry.Get(resp.RequesterID); ok {
		err := s.sendLive(requester.ChannelHandle, models.EventAlertResponse, models.AlertResponseNotice{
			AlertID:     resp.AlertID,
			RecipientID: resp.RecipientID,
			Accepted:    resp.Accepted,
		})
		if err == nil {
			out.Channel = models.ChannelLive
			log.Info("Response delivered live")
			return out
		}
		log.Warnf("Live delivery of response failed, trying push: %v", err)
	}

	cctx, cancel = s.callContext(ctx)
	requester, err := s.directory.GetParty(cctx, resp.RequesterID)
	cancel()
	switch {
	case errors.Is(err, directory.ErrNotFound):
		out.Err = fmt.Errorf("%w: requester %s is unknown", ErrRecipientUnreachable, resp.RequesterID)
	case err != nil:
		out.Err = fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err)
	case requester.PushToken == "":
		out.Err = fmt.Errorf("%w: requester %s has no push token", ErrRecipientUnreachable, resp.RequesterID)
	}
	if out.Err != nil {
		log.Warnf("Response not delivered: %v", out.Err)
		return out
	}

	cctx, cancel = s.callContext(ctx)
	defer cancel()
	if err := s.push.Send(cctx, requester.PushToken, responseMessage(resp)); err != nil {
		out.Err = fmt.Errorf("%w: %w", ErrPushDeliveryFailed, err)
		log.Warnf("Response push failed: %v", out.Err)
		return out
	}
	out.Channel = models.ChannelPush
	log.Info("Response delivered by push")
	return out
}

func responseMessage(resp models.AlertResponse) models.PushMessage {
	verb, title := "declined", "Alert declined"
	if resp.Accepted {
		verb, title = "accepted", "Alert accepted"
	}
	return models.PushMessage{
		Title: title,
		Body:  fmt.Sprintf("A recipient has %s your alert", verb),
		Data: map[string]string{
			"alertId":     resp.AlertID,
			"recipientId": resp.RecipientID,
			"accepted":    strconv.FormatBool(resp.Accepted),
			"type":        responsePushType,
		},
	}
}

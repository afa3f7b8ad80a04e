package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"dispatch-service/internal/geo"
	"dispatch-service/internal/models"
)

const alertPushType = "alert"

type pushTarget struct {
	party    models.Party
	distance float64
}

// SendAlert dispatches one alert on both channels and reports the summary to
// handle as an alertSent event. Connected recipients get a newAlert on their
// live channel; offline recipients known to the directory get a push.
//
// An invalid request returns ErrInvalidRequest and is still answered with an
// unsuccessful alertSent. A directory failure skips the push batch only: the
// summary is complete for the live path and the error wraps
// ErrDirectoryUnavailable.
func (s *Service) SendAlert(ctx context.Context, handle string, req models.SendAlertRequest) (models.DispatchSummary, error) {
	start := time.Now()

	alert, err := newAlert(req)
	if err != nil {
		s.metrics.ObserveRejected()
		s.logger.Warnf("Rejected alert from %s: %v", req.RequesterID, err)
		s.reply(handle, models.EventAlertSent, models.AlertSent{Success: false, Error: err.Error()})
		return models.DispatchSummary{}, err
	}
	alert.ID = uuid.NewString()
	alert.CreatedAt = start.UTC()

	log := s.logger.WithFields(logrus.Fields{
		"alert_id":  alert.ID,
		"requester": alert.RequesterID,
		"category":  alert.Category,
		"radius_km": alert.RadiusKm,
	})
	log.Info("Dispatching alert")

	persisted := make(chan bool, 1)
	go func() {
		persisted <- s.persistAlert(ctx, alert, log)
	}()

	summary := models.DispatchSummary{AlertID: alert.ID}
	summary.Deliveries = append(summary.Deliveries, s.dispatchLive(alert, log)...)

	pushed, dirErr := s.dispatchPush(ctx, alert, log)
	if dirErr != nil {
		summary.DirectoryError = dirErr.Error()
		log.Errorf("Push fallback skipped: %v", dirErr)
	}
	summary.Deliveries = append(summary.Deliveries, pushed...)

	for _, d := range summary.Deliveries {
		switch {
		case !d.Delivered:
			summary.FailedCount++
		case d.Channel == models.ChannelLive:
			summary.LiveCount++
		case d.Channel == models.ChannelPush:
			summary.PushCount++
		}
	}
	summary.Total = summary.LiveCount + summary.PushCount
	summary.Persisted = <-persisted

	s.metrics.ObserveDispatch(summary, time.Since(start).Seconds())
	log.Infof("Alert dispatched: live=%d push=%d failed=%d", summary.LiveCount, summary.PushCount, summary.FailedCount)

	s.reply(handle, models.EventAlertSent, models.AlertSent{
		Success:           true,
		AlertID:           summary.AlertID,
		NotificationsSent: summary.Total,
		LiveCount:         summary.LiveCount,
		PushCount:         summary.PushCount,
		FailedCount:       summary.FailedCount,
		Error:             summary.DirectoryError,
	})
	return summary, dirErr
}

func newAlert(req models.SendAlertRequest) (models.Alert, error) {
	requester := strings.TrimSpace(req.RequesterID)
	category := strings.TrimSpace(req.Category)
	if requester == "" {
		return models.Alert{}, invalid("requesterId is required")
	}
	if category == "" {
		return models.Alert{}, invalid("category is required")
	}
	if req.Latitude == nil || req.Longitude == nil {
		return models.Alert{}, invalid("latitude and longitude are required")
	}
	loc := models.Location{Latitude: *req.Latitude, Longitude: *req.Longitude}
	if !geo.Valid(loc) {
		return models.Alert{}, invalid("location (%v, %v) is out of range", loc.Latitude, loc.Longitude)
	}
	if req.RadiusKm == nil || math.IsNaN(*req.RadiusKm) || math.IsInf(*req.RadiusKm, 0) || *req.RadiusKm <= 0 {
		return models.Alert{}, invalid("radiusKm must be a positive number")
	}
	return models.Alert{
		RequesterID: requester,
		Category:    category,
		Location:    loc,
		RadiusKm:    *req.RadiusKm,
		ZoneLabel:   req.Zone,
		Status:      models.AlertStatusActive,
	}, nil
}

func (s *Service) persistAlert(ctx context.Context, alert models.Alert, log *logrus.Entry) bool {
	cctx, cancel := s.callContext(ctx)
	defer cancel()
	if err := s.directory.AppendAlert(cctx, alert); err != nil {
		log.Errorf("Failed to persist alert: %v", fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err))
		return false
	}
	return true
}

// dispatchLive notifies connected recipients from a registry snapshot.
func (s *Service) dispatchLive(alert models.Alert, log *logrus.Entry) []models.Delivery {
	var deliveries []models.Delivery
	s.registry.ForEachRecipientOfCategory(alert.Category, func(p models.Party) {
		if p.Location == nil || !geo.Within(*p.Location, alert.Location, alert.RadiusKm) {
			return
		}
		distance := geo.DistanceKm(*p.Location, alert.Location)
		d := models.Delivery{RecipientID: p.ID, Channel: models.ChannelLive, DistanceKm: distance}
		err := s.sendLive(p.ChannelHandle, models.EventNewAlert, models.NewAlert{
			AlertID:     alert.ID,
			RequesterID: alert.RequesterID,
			Zone:        alert.ZoneLabel,
			Category:    alert.Category,
			DistanceKm:  roundKm(distance),
		})
		if err != nil {
			d.Error = err.Error()
			log.Warnf("Live delivery to %s failed: %v", p.ID, err)
		} else {
			d.Delivered = true
			log.Debugf("Live delivery to %s (%.2f km)", p.ID, distance)
		}
		deliveries = append(deliveries, d)
	})
	return deliveries
}

// dispatchPush notifies offline recipients known to the directory. Pushes run
// concurrently; a failed or slow push only affects its own recipient.
func (s *Service) dispatchPush(ctx context.Context, alert models.Alert, log *logrus.Entry) ([]models.Delivery, error) {
	qctx, cancel := s.callContext(ctx)
	parties, err := s.directory.QueryRecipientsByCategory(qctx, alert.Category)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err)
	}

	var targets []pushTarget
	for _, p := range parties {
		if !p.IsRecipientOf(alert.Category) || s.registry.Has(p.ID) {
			continue
		}
		if p.Location == nil || p.PushToken == "" {
			continue
		}
		if !geo.Within(*p.Location, alert.Location, alert.RadiusKm) {
			continue
		}
		targets = append(targets, pushTarget{party: p, distance: geo.DistanceKm(*p.Location, alert.Location)})
	}

	deliveries := make([]models.Delivery, len(targets))
	var g errgroup.Group
	limit := s.config.Dispatch.MaxConcurrentPushes
	if limit <= 0 {
		limit = -1
	}
	g.SetLimit(limit)
	for i, t := range targets {
		g.Go(func() error {
			deliveries[i] = s.pushAlert(ctx, alert, t, log)
			return nil
		})
	}
	_ = g.Wait()
	return deliveries, nil
}

func (s *Service) pushAlert(ctx context.Context, alert models.Alert, t pushTarget, log *logrus.Entry) models.Delivery {
	d := models.Delivery{RecipientID: t.party.ID, Channel: models.ChannelPush, DistanceKm: t.distance}
	distance := strconv.FormatFloat(roundKm(t.distance), 'f', 2, 64)
	msg := models.PushMessage{
		Title: "Urgent alert",
		Body:  fmt.Sprintf("A %s request is needed at %s (%s km from you)", alert.Category, zoneOrUnknown(alert.ZoneLabel), distance),
		Data: map[string]string{
			"alertId":     alert.ID,
			"requesterId": alert.RequesterID,
			"zone":        alert.ZoneLabel,
			"category":    alert.Category,
			"distance":    distance,
			"type":        alertPushType,
		},
	}

	cctx, cancel := s.callContext(ctx)
	defer cancel()
	if err := s.push.Send(cctx, t.party.PushToken, msg); err != nil {
		err = fmt.Errorf("%w: %w", ErrPushDeliveryFailed, err)
		d.Error = err.Error()
		log.Warnf("Push delivery to %s failed: %v", t.party.ID, err)
		return d
	}
	d.Delivered = true
	log.Debugf("Push delivery to %s (%s km)", t.party.ID, distance)
	return d
}

func (s *Service) sendLive(handle, event string, payload any) error {
	if s.transport == nil {
		return fmt.Errorf("no transport attached")
	}
	return s.transport.SendTo(handle, event, payload)
}

func roundKm(km float64) float64 {
	return math.Round(km*100) / 100
}

func zoneOrUnknown(zone string) string {
	if zone == "" {
		return "an unspecified location"
	}
	return zone
}

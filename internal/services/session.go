package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dispatch-service/internal/directory"
	"dispatch-service/internal/geo"
	"dispatch-service/internal/models"
)

// OnConnect is called when a live channel opens.
func (s *Service) OnConnect(handle string) {
	s.logger.Infof("Channel %s connected", handle)
}

// OnRegister binds a party to the channel handle and acknowledges with a
// registered event. Fields the payload omits (category, location, push token,
// name) are taken from the directory record, and only fields the payload
// supplied are written back. A directory failure during the lookup does not
// fail the registration; it is reported in the ack.
func (s *Service) OnRegister(ctx context.Context, handle string, req models.RegisterRequest) error {
	party, err := newParty(handle, req)
	if err != nil {
		s.reply(handle, models.EventRegistered, models.Registered{Success: false, Error: err.Error()})
		return err
	}

	update := models.PartyUpdate{
		Role:        models.Ptr(party.Role),
		Online:      models.Ptr(true),
		LastChannel: models.Ptr(handle),
	}
	if party.Name != "" {
		update.Name = models.Ptr(party.Name)
	}
	if party.Category != "" {
		update.Category = models.Ptr(party.Category)
	}
	if party.Location != nil {
		update.Location = models.Ptr(*party.Location)
	}
	if party.PushToken != "" {
		update.PushToken = models.Ptr(party.PushToken)
	}

	var lookupErr error
	cctx, cancel := s.callContext(ctx)
	known, err := s.directory.GetParty(cctx, party.ID)
	cancel()
	switch {
	case err == nil:
		fillFromDirectory(&party, known)
	case errors.Is(err, directory.ErrNotFound):
	default:
		lookupErr = fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err)
		s.logger.Warnf("Directory lookup for %s failed: %v", party.ID, lookupErr)
	}

	if prev := s.bind(handle, party.ID); prev != "" && prev != party.ID {
		s.release(ctx, prev, handle)
	}
	s.registry.Put(party)
	s.metrics.SetConnected(s.registry.Len())
	s.mirror(ctx, party.ID, update)

	s.logger.Infof("Party %s registered as %s on %s (category=%q, connected=%d)", party.ID, party.Role, handle, party.Category, s.registry.Len())
	ack := models.Registered{Success: true, Message: fmt.Sprintf("registered as %s", party.Role)}
	if lookupErr != nil {
		ack.Error = lookupErr.Error()
	}
	s.reply(handle, models.EventRegistered, ack)
	return nil
}

// fillFromDirectory completes the fields a register payload left empty with
// the stored record.
func fillFromDirectory(party *models.Party, known models.Party) {
	if party.PushToken == "" {
		party.PushToken = known.PushToken
	}
	if party.Name == "" {
		party.Name = known.Name
	}
	if party.Category == "" {
		party.Category = known.Category
	}
	if party.Location == nil && known.Location != nil {
		loc := *known.Location
		party.Location = &loc
	}
}

func newParty(handle string, req models.RegisterRequest) (models.Party, error) {
	id := strings.TrimSpace(req.UserID)
	if id == "" {
		return models.Party{}, invalid("userId is required")
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		return models.Party{}, invalid("%v", err)
	}
	party := models.Party{
		ID:            id,
		Name:          req.Name,
		Role:          role,
		Category:      strings.TrimSpace(req.Category),
		ChannelHandle: handle,
		PushToken:     strings.TrimSpace(req.PushToken),
		Online:        true,
	}
	if req.Latitude != nil && req.Longitude != nil {
		loc := models.Location{Latitude: *req.Latitude, Longitude: *req.Longitude}
		if !geo.Valid(loc) {
			return models.Party{}, invalid("location (%v, %v) is out of range", loc.Latitude, loc.Longitude)
		}
		party.Location = &loc
	}
	return party, nil
}

// OnUpdateLocation moves a connected party. Unknown parties are ignored. The
// directory copy is updated in the background.
func (s *Service) OnUpdateLocation(ctx context.Context, handle string, req models.UpdateLocationRequest) error {
	id := strings.TrimSpace(req.UserID)
	if id == "" {
		return invalid("userId is required")
	}
	if req.Latitude == nil || req.Longitude == nil {
		return invalid("latitude and longitude are required")
	}
	loc := models.Location{Latitude: *req.Latitude, Longitude: *req.Longitude}
	if !geo.Valid(loc) {
		return invalid("location (%v, %v) is out of range", loc.Latitude, loc.Longitude)
	}
	if !s.registry.UpdateLocation(id, loc.Latitude, loc.Longitude) {
		s.logger.Debugf("Location update for unregistered party %s ignored", id)
		return nil
	}
	s.logger.Debugf("Party %s moved to (%v, %v)", id, loc.Latitude, loc.Longitude)
	s.background(func() {
		s.mirror(context.WithoutCancel(ctx), id, models.PartyUpdate{Location: &loc})
	})
	return nil
}

// OnDisconnect releases whatever party was bound to handle.
func (s *Service) OnDisconnect(ctx context.Context, handle string) {
	s.sessionsMu.Lock()
	id, ok := s.sessions[handle]
	delete(s.sessions, handle)
	s.sessionsMu.Unlock()

	if !ok {
		s.logger.Infof("Channel %s disconnected", handle)
		return
	}
	s.release(ctx, id, handle)
}

// bind records that handle now speaks for id and returns the id it spoke for
// before, if any.
func (s *Service) bind(handle, id string) string {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	prev := s.sessions[handle]
	s.sessions[handle] = id
	return prev
}

// release removes id from the registry if it is still bound to handle. A newer
// session of the same party is left alone.
func (s *Service) release(ctx context.Context, id, handle string) {
	if !s.registry.RemoveIfHandle(id, handle) {
		s.logger.Infof("Party %s already moved off %s", id, handle)
		return
	}
	s.metrics.SetConnected(s.registry.Len())
	s.mirror(ctx, id, models.PartyUpdate{Online: models.Ptr(false)})
	s.logger.Infof("Party %s left (%d remaining)", id, s.registry.Len())
}

// mirror writes a best-effort partial update to the directory.
func (s *Service) mirror(ctx context.Context, id string, update models.PartyUpdate) {
	cctx, cancel := s.callContext(ctx)
	defer cancel()
	if err := s.directory.UpsertParty(cctx, id, update); err != nil {
		s.logger.Warnf("Failed to mirror party %s to directory: %v", id, err)
	}
}

package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatch-service/internal/directory"
	"dispatch-service/internal/models"
)

func TestRegisterWithoutPushToken(t *testing.T) {
	mem := directory.NewMemory()
	h := newHarness(t, mem, testConfig())
	h.register(t, "c1", recipient("R", 10, 10, ""))

	p, ok := h.reg.Get("R")
	require.True(t, ok)
	assert.Equal(t, "c1", p.ChannelHandle)
	assert.Empty(t, p.PushToken)

	acks := h.transport.to("c1", models.EventRegistered)
	require.Len(t, acks, 1)
	ack := acks[0].payload.(models.Registered)
	assert.True(t, ack.Success)
	assert.Empty(t, ack.Error)

	stored, err := mem.GetParty(context.Background(), "R")
	require.NoError(t, err)
	assert.True(t, stored.Online)
	assert.Equal(t, "c1", stored.ChannelHandle)
	assert.Equal(t, models.RoleRecipient, stored.Role)
}

func TestRegisterLooksUpPushToken(t *testing.T) {
	mem := directory.NewMemory()
	mem.Seed(models.Party{ID: "R", Name: "Rita", Role: models.RoleRecipient, Category: "O-", PushToken: "tokR"})
	h := newHarness(t, mem, testConfig())
	h.register(t, "c1", recipient("R", 10, 10, ""))

	p, ok := h.reg.Get("R")
	require.True(t, ok)
	assert.Equal(t, "tokR", p.PushToken)
	assert.Equal(t, "Rita", p.Name)
}

func TestRegisterSurvivesDirectoryFailure(t *testing.T) {
	dir := &hookDirectory{Directory: directory.NewMemory(), getErr: errors.New("unreachable")}
	h := newHarness(t, dir, testConfig())
	h.register(t, "c1", recipient("R", 10, 10, ""))

	assert.True(t, h.reg.Has("R"))
	acks := h.transport.to("c1", models.EventRegistered)
	require.Len(t, acks, 1)
	ack := acks[0].payload.(models.Registered)
	assert.True(t, ack.Success)
	assert.Contains(t, ack.Error, ErrDirectoryUnavailable.Error())
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	h := newHarness(t, directory.NewMemory(), testConfig())

	err := h.svc.OnRegister(context.Background(), "c1", models.RegisterRequest{Role: "recipient"})
	require.ErrorIs(t, err, ErrInvalidRequest)
	err = h.svc.OnRegister(context.Background(), "c1", models.RegisterRequest{UserID: "R", Role: "admin"})
	require.ErrorIs(t, err, ErrInvalidRequest)

	assert.Zero(t, h.reg.Len())
	acks := h.transport.to("c1", models.EventRegistered)
	require.Len(t, acks, 2)
	assert.False(t, acks[0].payload.(models.Registered).Success)
}

func TestDisconnectMarksOffline(t *testing.T) {
	mem := directory.NewMemory()
	h := newHarness(t, mem, testConfig())
	h.register(t, "c1", recipient("R", 10, 10, ""))

	h.svc.OnDisconnect(context.Background(), "c1")
	assert.False(t, h.reg.Has("R"))

	stored, err := mem.GetParty(context.Background(), "R")
	require.NoError(t, err)
	assert.False(t, stored.Online)

	// unknown handles are ignored
	h.svc.OnDisconnect(context.Background(), "c404")
}

func TestStaleDisconnectKeepsNewerSession(t *testing.T) {
	mem := directory.NewMemory()
	h := newHarness(t, mem, testConfig())
	h.register(t, "c1", recipient("R", 10, 10, ""))
	h.register(t, "c2", recipient("R", 10, 10, ""))

	h.svc.OnDisconnect(context.Background(), "c1")

	p, ok := h.reg.Get("R")
	require.True(t, ok)
	assert.Equal(t, "c2", p.ChannelHandle)
	stored, err := mem.GetParty(context.Background(), "R")
	require.NoError(t, err)
	assert.True(t, stored.Online)
}

func TestReRegisterOnSameHandleReleasesPreviousParty(t *testing.T) {
	h := newHarness(t, directory.NewMemory(), testConfig())
	h.register(t, "c1", recipient("R", 10, 10, ""))
	h.register(t, "c1", recipient("S", 10, 10, ""))

	assert.False(t, h.reg.Has("R"))
	assert.True(t, h.reg.Has("S"))
}

func TestUpdateLocation(t *testing.T) {
	mem := directory.NewMemory()
	h := newHarness(t, mem, testConfig())
	h.register(t, "c1", recipient("R", 10, 10, ""))

	err := h.svc.OnUpdateLocation(context.Background(), "c1", models.UpdateLocationRequest{UserID: "R", Latitude: models.Ptr(11.0), Longitude: models.Ptr(12.0)})
	require.NoError(t, err)
	h.svc.Wait()

	p, _ := h.reg.Get("R")
	assert.Equal(t, &models.Location{Latitude: 11, Longitude: 12}, p.Location)
	stored, err := mem.GetParty(context.Background(), "R")
	require.NoError(t, err)
	assert.Equal(t, &models.Location{Latitude: 11, Longitude: 12}, stored.Location)
}

func TestUpdateLocationForUnknownPartyIsNoop(t *testing.T) {
	mem := directory.NewMemory()
	h := newHarness(t, mem, testConfig())

	err := h.svc.OnUpdateLocation(context.Background(), "c1", models.UpdateLocationRequest{UserID: "ghost", Latitude: models.Ptr(1.0), Longitude: models.Ptr(1.0)})
	require.NoError(t, err)
	h.svc.Wait()

	_, err = mem.GetParty(context.Background(), "ghost")
	assert.ErrorIs(t, err, directory.ErrNotFound)
}

func TestUpdateLocationValidation(t *testing.T) {
	h := newHarness(t, directory.NewMemory(), testConfig())

	err := h.svc.OnUpdateLocation(context.Background(), "c1", models.UpdateLocationRequest{UserID: "R", Latitude: models.Ptr(100.0), Longitude: models.Ptr(1.0)})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	err = h.svc.OnUpdateLocation(context.Background(), "c1", models.UpdateLocationRequest{UserID: "R"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestRegisterWithRoleOnlyKeepsDirectoryProfile(t *testing.T) {
	mem := directory.NewMemory()
	mem.Seed(models.Party{ID: "R2", Name: "Rita", Role: models.RoleRecipient, Category: "O-", Location: &models.Location{Latitude: 10, Longitude: 10}, PushToken: "tok1"})
	h := newHarness(t, mem, testConfig())
	h.register(t, "c2", models.RegisterRequest{UserID: "R2", Role: "recipient"})

	p, ok := h.reg.Get("R2")
	require.True(t, ok)
	assert.Equal(t, "O-", p.Category)
	assert.Equal(t, &models.Location{Latitude: 10, Longitude: 10}, p.Location)
	assert.Equal(t, "tok1", p.PushToken)

	stored, err := mem.GetParty(context.Background(), "R2")
	require.NoError(t, err)
	assert.Equal(t, "O-", stored.Category)
	assert.Equal(t, "Rita", stored.Name)
	assert.Equal(t, &models.Location{Latitude: 10, Longitude: 10}, stored.Location)

	online, err := h.svc.SendAlert(context.Background(), "q1", alertRequest(5))
	require.NoError(t, err)
	assert.Equal(t, 1, online.LiveCount)
	assert.Equal(t, 0, online.PushCount)

	h.svc.OnDisconnect(context.Background(), "c2")

	offline, err := h.svc.SendAlert(context.Background(), "q1", alertRequest(5))
	require.NoError(t, err)
	assert.Equal(t, 0, offline.LiveCount)
	assert.Equal(t, 1, offline.PushCount)
	assert.Equal(t, []string{"tok1"}, h.push.tokens())
}

func TestRegisterPayloadOverridesDirectory(t *testing.T) {
	mem := directory.NewMemory()
	mem.Seed(models.Party{ID: "R", Role: models.RoleRecipient, Category: "A+", Location: &models.Location{Latitude: 1, Longitude: 1}, PushToken: "old"})
	h := newHarness(t, mem, testConfig())
	req := recipient("R", 10, 10, "new")
	req.Name = "Rafa"
	h.register(t, "c1", req)

	stored, err := mem.GetParty(context.Background(), "R")
	require.NoError(t, err)
	assert.Equal(t, "O-", stored.Category)
	assert.Equal(t, "new", stored.PushToken)
	assert.Equal(t, "Rafa", stored.Name)
	assert.Equal(t, &models.Location{Latitude: 10, Longitude: 10}, stored.Location)
}

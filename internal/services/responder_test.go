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

func response(accepted bool) models.AlertResponse {
	return models.AlertResponse{AlertID: "alert-1", RecipientID: "R", RequesterID: "Q", Accepted: accepted}
}

func TestResponseDeliveredLive(t *testing.T) {
	mem := directory.NewMemory()
	h := newHarness(t, mem, testConfig())
	h.register(t, "q1", models.RegisterRequest{UserID: "Q", Role: "requester"})

	out := h.svc.RespondToAlert(context.Background(), response(true))
	require.NoError(t, out.Err)
	assert.Equal(t, models.ChannelLive, out.Channel)
	assert.True(t, out.Recorded)

	got := h.transport.to("q1", models.EventAlertResponse)
	require.Len(t, got, 1)
	assert.Equal(t, models.AlertResponseNotice{AlertID: "alert-1", RecipientID: "R", Accepted: true}, got[0].payload)
	assert.Empty(t, h.push.tokens())

	recorded := mem.Responses()
	require.Len(t, recorded, 1)
	assert.False(t, recorded[0].RespondedAt.IsZero())
}

func TestResponsePushedToOfflineRequester(t *testing.T) {
	mem := directory.NewMemory()
	mem.Seed(models.Party{ID: "Q", Role: models.RoleRequester, PushToken: "tokQ"})
	h := newHarness(t, mem, testConfig())

	out := h.svc.RespondToAlert(context.Background(), response(true))
	require.NoError(t, out.Err)
	assert.Equal(t, models.ChannelPush, out.Channel)

	require.Equal(t, []string{"tokQ"}, h.push.tokens())
	msg := h.push.calls[0].msg
	assert.Equal(t, "true", msg.Data["accepted"])
	assert.Equal(t, "Alert accepted", msg.Title)
	assert.Contains(t, msg.Body, "accepted")
}

func TestDeclinedResponsePush(t *testing.T) {
	mem := directory.NewMemory()
	mem.Seed(models.Party{ID: "Q", Role: models.RoleRequester, PushToken: "tokQ"})
	h := newHarness(t, mem, testConfig())

	out := h.svc.RespondToAlert(context.Background(), response(false))
	require.NoError(t, out.Err)
	assert.Equal(t, "false", h.push.calls[0].msg.Data["accepted"])
	assert.Equal(t, "Alert declined", h.push.calls[0].msg.Title)
}

func TestResponseToRequesterWithoutToken(t *testing.T) {
	mem := directory.NewMemory()
	mem.Seed(models.Party{ID: "Q", Role: models.RoleRequester})
	h := newHarness(t, mem, testConfig())

	out := h.svc.RespondToAlert(context.Background(), response(true))
	assert.ErrorIs(t, out.Err, ErrRecipientUnreachable)
	assert.Equal(t, models.ChannelNone, out.Channel)
	assert.True(t, out.Recorded)
	assert.Empty(t, h.push.tokens())
	assert.Zero(t, h.transport.count())
}

func TestResponseToUnknownRequester(t *testing.T) {
	h := newHarness(t, directory.NewMemory(), testConfig())

	out := h.svc.RespondToAlert(context.Background(), response(true))
	assert.ErrorIs(t, out.Err, ErrRecipientUnreachable)
	assert.Empty(t, h.push.tokens())
}

func TestResponseDirectoryFailures(t *testing.T) {
	dir := &hookDirectory{
		Directory: directory.NewMemory(),
		getErr:    errors.New("timeout"),
		respErr:   errors.New("read only"),
	}
	h := newHarness(t, dir, testConfig())

	out := h.svc.RespondToAlert(context.Background(), response(true))
	assert.ErrorIs(t, out.Err, ErrDirectoryUnavailable)
	assert.False(t, out.Recorded)
	assert.Empty(t, h.push.tokens())
}

func TestResponseFallsBackToPushWhenLiveSendFails(t *testing.T) {
	mem := directory.NewMemory()
	h := newHarness(t, mem, testConfig())
	h.register(t, "q1", models.RegisterRequest{UserID: "Q", Role: "requester", PushToken: "tokQ"})
	h.transport.fail["q1"] = errors.New("unknown handle")

	out := h.svc.RespondToAlert(context.Background(), response(true))
	require.NoError(t, out.Err)
	assert.Equal(t, models.ChannelPush, out.Channel)
	assert.Equal(t, []string{"tokQ"}, h.push.tokens())
}

func TestNewResponseValidation(t *testing.T) {
	_, err := newResponse(models.RespondToAlertRequest{AlertID: "a", RecipientID: "r", RequesterID: "q"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = newResponse(models.RespondToAlertRequest{RecipientID: "r", RequesterID: "q", Accepted: models.Ptr(true)})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	resp, err := newResponse(models.RespondToAlertRequest{AlertID: "a", RecipientID: "r", RequesterID: "q", Accepted: models.Ptr(false)})
	require.NoError(t, err)
	assert.False(t, resp.Accepted)
	assert.Equal(t, "q", resp.RequesterID)
}

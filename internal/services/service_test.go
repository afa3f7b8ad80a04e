package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dispatch-service/internal/config"
	"dispatch-service/internal/directory"
	"dispatch-service/internal/logging"
	"dispatch-service/internal/models"
	"dispatch-service/internal/registry"
)

type sentEvent struct {
	handle  string
	event   string
	payload any
}

type fakeTransport struct {
	mu   sync.Mutex
	sent []sentEvent
	fail map[string]error
}

func (f *fakeTransport) SendTo(handle, event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[handle]; err != nil {
		return err
	}
	f.sent = append(f.sent, sentEvent{handle: handle, event: event, payload: payload})
	return nil
}

func (f *fakeTransport) to(handle, event string) []sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentEvent
	for _, e := range f.sent {
		if e.handle == handle && e.event == event {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type pushCall struct {
	token string
	msg   models.PushMessage
}

type fakePush struct {
	mu    sync.Mutex
	calls []pushCall
	errs  map[string]error
	delay map[string]time.Duration
}

func (f *fakePush) Send(ctx context.Context, token string, msg models.PushMessage) error {
	f.mu.Lock()
	f.calls = append(f.calls, pushCall{token: token, msg: msg})
	d := f.delay[token]
	err := f.errs[token]
	f.mu.Unlock()

	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakePush) tokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		out = append(out, c.token)
	}
	return out
}

// hookDirectory wraps a directory with injectable failures and a hook run in
// the middle of a category query.
type hookDirectory struct {
	directory.Directory
	onQuery   func()
	queryErr  error
	getErr    error
	appendErr error
	respErr   error
}

func (h *hookDirectory) QueryRecipientsByCategory(ctx context.Context, category string) ([]models.Party, error) {
	if h.onQuery != nil {
		h.onQuery()
	}
	if h.queryErr != nil {
		return nil, h.queryErr
	}
	return h.Directory.QueryRecipientsByCategory(ctx, category)
}

func (h *hookDirectory) GetParty(ctx context.Context, id string) (models.Party, error) {
	if h.getErr != nil {
		return models.Party{}, h.getErr
	}
	return h.Directory.GetParty(ctx, id)
}

func (h *hookDirectory) AppendAlert(ctx context.Context, alert models.Alert) error {
	if h.appendErr != nil {
		return h.appendErr
	}
	return h.Directory.AppendAlert(ctx, alert)
}

func (h *hookDirectory) AppendResponse(ctx context.Context, resp models.AlertResponse) error {
	if h.respErr != nil {
		return h.respErr
	}
	return h.Directory.AppendResponse(ctx, resp)
}

type harness struct {
	svc       *Service
	reg       *registry.Registry
	transport *fakeTransport
	push      *fakePush
}

func testConfig() config.Config {
	var cfg config.Config
	cfg.Dispatch.CallTimeout = time.Second
	cfg.Dispatch.MaxConcurrentPushes = 8
	cfg.Dispatch.QueueSize = 4
	cfg.Dispatch.MaxWorkers = 2
	return cfg
}

func newHarness(t *testing.T, dir directory.Directory, cfg config.Config) *harness {
	t.Helper()
	h := &harness{
		reg:       registry.New(4),
		transport: &fakeTransport{fail: map[string]error{}},
		push:      &fakePush{errs: map[string]error{}, delay: map[string]time.Duration{}},
	}
	h.svc = New(h.reg, dir, h.push, logging.NewNop(), nil, cfg)
	h.svc.SetTransport(h.transport)
	t.Cleanup(h.svc.Stop)
	return h
}

func (h *harness) register(t *testing.T, handle string, req models.RegisterRequest) {
	t.Helper()
	require.NoError(t, h.svc.OnRegister(context.Background(), handle, req))
}

func recipient(id string, lat, lon float64, token string) models.RegisterRequest {
	return models.RegisterRequest{
		UserID:    id,
		Role:      "recipient",
		Category:  "O-",
		Latitude:  models.Ptr(lat),
		Longitude: models.Ptr(lon),
		PushToken: token,
	}
}

func alertRequest(radius float64) models.SendAlertRequest {
	return models.SendAlertRequest{
		RequesterID: "Q",
		Zone:        "Central",
		Category:    "O-",
		RadiusKm:    models.Ptr(radius),
		Latitude:    models.Ptr(10.01),
		Longitude:   models.Ptr(10.01),
	}
}

func TestQueuedAlertIsDispatchedByWorkers(t *testing.T) {
	h := newHarness(t, directory.NewMemory(), testConfig())
	h.register(t, "q1", models.RegisterRequest{UserID: "Q", Role: "requester"})
	h.register(t, "c1", recipient("R", 10, 10, ""))

	var wg sync.WaitGroup
	h.svc.Start(&wg)

	require.NoError(t, h.svc.QueueAlert(alertRequest(5)))
	require.Eventually(t, func() bool {
		return len(h.transport.to("q1", models.EventAlertSent)) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, h.transport.to("c1", models.EventNewAlert), 1)

	h.svc.Stop()
	wg.Wait()
}

func TestQueueAlertWhenFull(t *testing.T) {
	cfg := testConfig()
	cfg.Dispatch.QueueSize = 1
	h := newHarness(t, directory.NewMemory(), cfg)

	require.NoError(t, h.svc.QueueAlert(alertRequest(5)))
	assert.ErrorIs(t, h.svc.QueueAlert(alertRequest(5)), ErrQueueFull)
}

package directory

import (
	"context"
	"sort"
	"sync"

	"dispatch-service/internal/models"
)

// Memory is an in-process Directory. It backs the memory driver and tests.
type Memory struct {
	mu        sync.RWMutex
	parties   map[string]models.Party
	alerts    []models.Alert
	responses []models.AlertResponse
}

func NewMemory() *Memory {
	return &Memory{parties: make(map[string]models.Party)}
}

// Seed stores p as-is, replacing any existing record.
func (m *Memory) Seed(p models.Party) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parties[p.ID] = copyParty(p)
}

func (m *Memory) GetParty(ctx context.Context, id string) (models.Party, error) {
	if err := ctx.Err(); err != nil {
		return models.Party{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.parties[id]
	if !ok {
		return models.Party{}, ErrNotFound
	}
	return copyParty(p), nil
}

func (m *Memory) QueryRecipientsByCategory(ctx context.Context, category string) ([]models.Party, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Party
	for _, p := range m.parties {
		if p.IsRecipientOf(category) {
			out = append(out, copyParty(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) UpsertParty(ctx context.Context, id string, fields models.PartyUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.parties[id]
	if !ok {
		p = models.Party{ID: id}
	}
	Apply(&p, fields)
	m.parties[id] = p
	return nil
}

func (m *Memory) AppendAlert(ctx context.Context, alert models.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.alerts = append(m.alerts, alert)
	m.mu.Unlock()
	return nil
}

func (m *Memory) AppendResponse(ctx context.Context, resp models.AlertResponse) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.responses = append(m.responses, resp)
	m.mu.Unlock()
	return nil
}

// Alerts returns a copy of the alert history.
func (m *Memory) Alerts() []models.Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Alert(nil), m.alerts...)
}

// Responses returns a copy of the response history.
func (m *Memory) Responses() []models.AlertResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.AlertResponse(nil), m.responses...)
}

func copyParty(p models.Party) models.Party {
	if p.Location != nil {
		loc := *p.Location
		p.Location = &loc
	}
	return p
}

// ResponsesForAlert lists the responses recorded for one alert, oldest first.
func (m *Memory) ResponsesForAlert(ctx context.Context, alertID string) ([]models.AlertResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.AlertResponse
	for _, r := range m.responses {
		if r.AlertID == alertID {
			out = append(out, r)
		}
	}
	return out, nil
}

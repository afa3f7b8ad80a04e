package services

import (
	"context"
	"sync"

	"dispatch-service/internal/config"
	"dispatch-service/internal/directory"
	"dispatch-service/internal/logging"
	"dispatch-service/internal/metrics"
	"dispatch-service/internal/models"
	"dispatch-service/internal/registry"
)

// Transport delivers named events to a live channel handle.
type Transport interface {
	SendTo(handle, event string, payload any) error
}

// PushGateway sends one push notification to a device token. One attempt, no
// retry.
type PushGateway interface {
	Send(ctx context.Context, token string, msg models.PushMessage) error
}

// Service owns alert dispatch, response routing and session lifecycle.
type Service struct {
	registry  *registry.Registry
	directory directory.Directory
	push      PushGateway
	transport Transport
	logger    *logging.Logger
	metrics   *metrics.Metrics
	config    config.Config

	tasks  chan models.SendAlertRequest
	ctx    context.Context
	cancel context.CancelFunc
	wg     *sync.WaitGroup

	// background work started off the event stream
	pending sync.WaitGroup

	sessionsMu sync.Mutex
	sessions   map[string]string // channel handle -> party id
}

// New constructs a Service. The transport is attached later with SetTransport
// since the transport itself needs the Service as its event handler.
func New(reg *registry.Registry, dir directory.Directory, push PushGateway, logger *logging.Logger, m *metrics.Metrics, cfg config.Config) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		registry:  reg,
		directory: dir,
		push:      push,
		logger:    logger,
		metrics:   m,
		config:    cfg,
		tasks:     make(chan models.SendAlertRequest, cfg.Dispatch.QueueSize),
		ctx:       ctx,
		cancel:    cancel,
		sessions:  make(map[string]string),
	}
}

// SetTransport attaches the live channel transport. Call before Start.
func (s *Service) SetTransport(t Transport) {
	s.transport = t
}

// Logger exposes the Service's logger
func (s *Service) Logger() *logging.Logger {
	return s.logger
}

// Registry exposes the connection registry for status reporting.
func (s *Service) Registry() *registry.Registry {
	return s.registry
}

// Start launches the worker pool
func (s *Service) Start(wg *sync.WaitGroup) {
	s.wg = wg
	for i := 0; i < s.config.Dispatch.MaxWorkers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

// Stop cancels the workers and waits for in-flight background work.
func (s *Service) Stop() {
	s.cancel()
	s.pending.Wait()
}

// Wait blocks until background work started by HandleEvent has finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

// QueueAlert enqueues an alert request for dispatch by the worker pool.
func (s *Service) QueueAlert(req models.SendAlertRequest) error {
	select {
	case s.tasks <- req:
		s.logger.Infof("Queued alert: requester=%s category=%s", req.RequesterID, req.Category)
		return nil
	default:
		s.logger.Errorf("Queue full, dropping alert: requester=%s", req.RequesterID)
		return ErrQueueFull
	}
}

// worker processes queued alerts until the context is cancelled
func (s *Service) worker(id int) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			s.logger.Infof("Worker %d stopped", id)
			return
		case req := <-s.tasks:
			s.handleQueued(req)
		}
	}
}

// handleQueued dispatches an alert that did not arrive on a live channel. The
// summary goes to the requester only if it is connected.
func (s *Service) handleQueued(req models.SendAlertRequest) {
	handle := ""
	if p, ok := s.registry.Get(req.RequesterID); ok {
		handle = p.ChannelHandle
	}
	summary, err := s.SendAlert(s.ctx, handle, req)
	if err != nil {
		s.logger.Warnf("Queued alert from %s: %v", req.RequesterID, err)
		return
	}
	s.logger.Infof("Queued alert %s dispatched: live=%d push=%d failed=%d", summary.AlertID, summary.LiveCount, summary.PushCount, summary.FailedCount)
}

func (s *Service) background(fn func()) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		fn()
	}()
}

// callContext bounds a single directory or push call.
func (s *Service) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.Dispatch.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.config.Dispatch.CallTimeout)
}

// reply sends an event to handle; a missing handle or transport is a no-op.
func (s *Service) reply(handle, event string, payload any) {
	if handle == "" || s.transport == nil {
		return
	}
	if err := s.transport.SendTo(handle, event, payload); err != nil {
		s.logger.Warnf("Failed to send %s to %s: %v", event, handle, err)
	}
}

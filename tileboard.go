// Package tileboard composes the sync hub, its HTTP surface, and session
// persistence into one server.
package tileboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"pkt.systems/pslog"

	"pkt.systems/tileboard/hub"
	"pkt.systems/tileboard/internal/auth"
	"pkt.systems/tileboard/internal/persist"
)

// Server runs the hub until stopped.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
}

// ServerConfig configures the compositor.
type ServerConfig struct {
	Addr    string
	BaseURL string

	SessionFile  string
	SaveDebounce time.Duration

	Language string

	TeacherPassword     string
	TeacherPasswordHash string
}

// New constructs a tileboard server. A previously persisted session is
// restored before the hub accepts connections.
func New(cfg ServerConfig, logger pslog.Logger) (Server, error) {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	if cfg.Addr == "" {
		return nil, errors.New("listen address is required")
	}

	var store *persist.Store
	code := ""
	if cfg.SessionFile != "" {
		var err error
		store, err = persist.NewStoreWithLogger(cfg.SessionFile, logger)
		if err != nil {
			return nil, err
		}
		rec, found, err := store.Load()
		switch {
		case err != nil:
			logger.Warn("session restore failed", "err", err)
		case found:
			code = rec.Code
			logger.Info("session restored", "bytes", len(code), "saved_at", rec.SavedAt)
		}
	}

	state := hub.NewDocumentState(code, cfg.Language)
	h := hub.New(state, store, cfg.SaveDebounce, logger)
	verifier := auth.NewVerifier(cfg.TeacherPassword, cfg.TeacherPasswordHash)

	return &compositeServer{
		cfg:     cfg,
		hub:     h,
		httpSrv: hub.NewServer(h, verifier, logger),
	}, nil
}

type compositeServer struct {
	cfg     ServerConfig
	hub     *hub.Hub
	httpSrv *hub.Server
	logger  pslog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	started bool
}

func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.errCh = make(chan error, 1)
	s.started = true
	s.logger = pslog.Ctx(s.ctx)
	s.mu.Unlock()

	log := s.logger
	log.Info("server start", "addr", s.cfg.Addr, "base_url", s.cfg.BaseURL, "session_file", s.cfg.SessionFile)

	go s.hub.Run(s.ctx)
	go func() {
		if err := hub.ListenAndServe(s.ctx, s.cfg.Addr, s.httpSrv.Handler()); err != nil {
			log.Error("http server failed", "err", err)
			s.errCh <- err
		}
	}()
	return nil
}

func (s *compositeServer) Wait() error {
	s.mu.Lock()
	ctx := s.ctx
	errCh := s.errCh
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			pslog.Ctx(ctx).Error("server stopped", "err", err)
			_ = s.Stop(context.Background())
			return err
		}
		return nil
	}
}

func (s *compositeServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	log := s.logger
	s.mu.Unlock()
	if !started {
		return nil
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log.Info("server stop requested")
	if cancel != nil {
		cancel()
	}
	if ctx == nil {
		log.Info("server stop completed")
		return nil
	}
	select {
	case <-ctx.Done():
		log.Warn("server stop timed out", "err", ctx.Err())
		return ctx.Err()
	case <-s.ctx.Done():
		log.Info("server stopped")
		return nil
	}
}

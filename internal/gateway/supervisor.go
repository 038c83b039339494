package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// ErrConnectionLost is surfaced once the reconnect budget is exhausted.
// The caller decides whether to start a fresh supervisor; nothing retries
// forever silently.
var ErrConnectionLost = errors.New("gateway connection lost: reconnect attempts exhausted")

// errServerReconnect is returned inside a session when the server asks
// the client to reconnect; the session stays resumable.
var errServerReconnect = errors.New("server requested reconnect")

// Status is the supervisor's protocol-level connection state.
type Status int32

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusReady    // fresh identify sent, awaiting READY
	StatusResuming // resume sent, awaiting RESUMED
	StatusConnected
)

// String returns a short name for the status.
func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusReady:
		return "ready"
	case StatusResuming:
		return "resuming"
	case StatusConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// SupervisorConfig configures the connection supervisor.
type SupervisorConfig struct {
	URL   string // Gateway URL
	Token string // Authentication token

	ReconnectBaseWait    time.Duration // First reconnect delay
	ReconnectMaxWait     time.Duration // Backoff cap
	MaxReconnectAttempts int           // Budget before ErrConnectionLost

	FrameBufferSize int // Dispatcher handoff channel capacity

	Conn ConnConfig // Per-connection settings; URL is filled in from above
}

// DefaultSupervisorConfig returns sensible defaults.
func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		ReconnectBaseWait:    1 * time.Second,
		ReconnectMaxWait:     60 * time.Second,
		MaxReconnectAttempts: 10,
		FrameBufferSize:      1024,
		Conn:                 DefaultConnConfig(),
	}
}

func (c *SupervisorConfig) applyDefaults() {
	def := DefaultSupervisorConfig()
	if c.ReconnectBaseWait == 0 {
		c.ReconnectBaseWait = def.ReconnectBaseWait
	}
	if c.ReconnectMaxWait == 0 {
		c.ReconnectMaxWait = def.ReconnectMaxWait
	}
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = def.MaxReconnectAttempts
	}
	if c.FrameBufferSize == 0 {
		c.FrameBufferSize = def.FrameBufferSize
	}
	c.Conn.applyDefaults()
}

// Supervisor owns the push-stream lifecycle: it dials, identifies or
// resumes, heartbeats, reconnects with bounded backoff, and forwards
// dispatch frames plus lifecycle pseudo-frames on a single ordered
// channel.
type Supervisor struct {
	cfg    SupervisorConfig
	logger *slog.Logger

	frames chan Frame
	fatal  chan error

	status atomic.Int32

	sessionMu sync.Mutex
	sessionID string
	lastSeq   atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSupervisor creates an unstarted supervisor. Zero config fields,
// including the embedded connection settings, fall back to
// DefaultSupervisorConfig values; callers only have to fill in URL and
// Token.
func NewSupervisor(cfg SupervisorConfig, logger *slog.Logger) *Supervisor {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	return &Supervisor{
		cfg:    cfg,
		logger: logger,
		frames: make(chan Frame, cfg.FrameBufferSize),
		fatal:  make(chan error, 1),
	}
}

// Start dials the gateway and begins supervising the session. The first
// dial failure is returned directly; later drops go through the
// reconnect path.
func (s *Supervisor) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	conn, err := s.dial()
	if err != nil {
		return err
	}

	s.wg.Add(1)
	go s.run(conn)

	return nil
}

// Stop tears the connection down and waits for the supervisor to finish.
func (s *Supervisor) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("gateway supervisor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Frames returns the ordered frame channel consumed by the dispatcher.
func (s *Supervisor) Frames() <-chan Frame {
	return s.frames
}

// Fatal returns the channel carrying ErrConnectionLost.
func (s *Supervisor) Fatal() <-chan error {
	return s.fatal
}

// Status returns the current lifecycle state.
func (s *Supervisor) Status() Status {
	return Status(s.status.Load())
}

// SessionID returns the current session's ID, empty before READY.
func (s *Supervisor) SessionID() string {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	return s.sessionID
}

func (s *Supervisor) setStatus(st Status) {
	s.status.Store(int32(st))
}

// dial opens a fresh socket and emits SocketOpened.
func (s *Supervisor) dial() (*Conn, error) {
	s.setStatus(StatusConnecting)

	cfg := s.cfg.Conn
	cfg.URL = s.cfg.URL

	conn := NewConn(cfg, s.logger)
	if err := conn.Connect(s.ctx); err != nil {
		s.setStatus(StatusDisconnected)
		return nil, err
	}

	s.emit(Frame{Name: FrameSocketOpened})
	return conn, nil
}

// run supervises sessions until shutdown or a fatal connection loss.
func (s *Supervisor) run(conn *Conn) {
	defer s.wg.Done()

	for {
		established, err := s.session(conn)
		conn.Close()
		s.emit(Frame{Name: FrameSocketClosed})

		if s.ctx.Err() != nil {
			s.setStatus(StatusDisconnected)
			return
		}

		s.logger.Warn("gateway session ended",
			"error", err,
			"established", established,
			"resumable", s.SessionID() != "",
		)

		next, ok := s.reconnect()
		if !ok {
			return
		}
		conn = next
	}
}

// reconnect retries the dial with exponential backoff. The attempt
// budget is per outage; it refills once a dial succeeds. Returns ok
// false when the budget is exhausted (fatal) or the supervisor is
// shutting down.
func (s *Supervisor) reconnect() (*Conn, bool) {
	wait := s.cfg.ReconnectBaseWait
	attempts := 0

	for {
		attempts++
		if attempts > s.cfg.MaxReconnectAttempts {
			s.setStatus(StatusDisconnected)
			s.emit(Frame{Name: FrameDisconnected})
			select {
			case s.fatal <- ErrConnectionLost:
			default:
			}
			return nil, false
		}

		select {
		case <-s.ctx.Done():
			s.setStatus(StatusDisconnected)
			return nil, false
		case <-time.After(wait):
		}

		s.logger.Info("attempting gateway reconnect", "attempt", attempts)

		conn, err := s.dial()
		if err == nil {
			return conn, true
		}

		s.logger.Warn("gateway reconnect failed", "attempt", attempts, "error", err)

		wait *= 2
		if wait > s.cfg.ReconnectMaxWait {
			wait = s.cfg.ReconnectMaxWait
		}
	}
}

// session drives one connection from Hello to its end. established
// reports whether the session ever reached Connected.
func (s *Supervisor) session(conn *Conn) (established bool, err error) {
	var heartbeat *time.Ticker
	var beat <-chan time.Time
	defer func() {
		if heartbeat != nil {
			heartbeat.Stop()
		}
	}()

	ackPending := false

	for {
		select {
		case <-s.ctx.Done():
			return established, s.ctx.Err()

		case err := <-conn.Errors():
			return established, err

		case <-beat:
			if ackPending {
				// Ack never arrived for the previous beat; the link is
				// dead even if TCP has not noticed.
				return established, ErrStaleSession
			}
			ackPending = true
			if err := s.sendHeartbeat(conn); err != nil {
				return established, err
			}

		case p := <-conn.Payloads():
			switch p.Op {
			case OpHello:
				var hello helloData
				if err := json.Unmarshal(p.D, &hello); err != nil {
					return established, err
				}
				interval := time.Duration(hello.HeartbeatInterval) * time.Millisecond
				if interval <= 0 {
					interval = 45 * time.Second
				}
				heartbeat = time.NewTicker(interval)
				beat = heartbeat.C

				if err := s.openSession(conn); err != nil {
					return established, err
				}

			case OpHeartbeat:
				// Server-requested beat, answered immediately.
				if err := s.sendHeartbeat(conn); err != nil {
					return established, err
				}

			case OpHeartbeatAck:
				ackPending = false

			case OpReconnect:
				return established, errServerReconnect

			case OpInvalidSession:
				s.sessionMu.Lock()
				s.sessionID = ""
				s.sessionMu.Unlock()
				s.lastSeq.Store(0)
				if err := s.openSession(conn); err != nil {
					return established, err
				}

			case OpDispatch:
				if p.S > 0 {
					s.lastSeq.Store(p.S)
				}
				switch p.T {
				case "READY":
					var ready readySession
					if err := json.Unmarshal(p.D, &ready); err == nil {
						s.sessionMu.Lock()
						s.sessionID = ready.SessionID
						s.sessionMu.Unlock()
					}
					s.setStatus(StatusConnected)
					established = true
				case "RESUMED":
					s.setStatus(StatusConnected)
					established = true
				}
				s.emit(Frame{Name: p.T, Data: p.D, Seq: p.S})
			}
		}
	}
}

// openSession identifies or resumes depending on saved session state.
func (s *Supervisor) openSession(conn *Conn) error {
	s.sessionMu.Lock()
	sessionID := s.sessionID
	s.sessionMu.Unlock()

	if sessionID != "" {
		s.setStatus(StatusResuming)
		data, err := json.Marshal(resumeData{
			Token:     s.cfg.Token,
			SessionID: sessionID,
			Seq:       s.lastSeq.Load(),
		})
		if err != nil {
			return err
		}
		return conn.Send(Payload{Op: OpResume, D: data})
	}

	s.setStatus(StatusReady)
	data, err := json.Marshal(identifyData{
		Token: s.cfg.Token,
		Properties: identifyProperties{
			OS:      runtime.GOOS,
			Browser: "concord",
			Device:  "concord",
		},
	})
	if err != nil {
		return err
	}
	return conn.Send(Payload{Op: OpIdentify, D: data})
}

// sendHeartbeat sends the last seen sequence as a heartbeat.
func (s *Supervisor) sendHeartbeat(conn *Conn) error {
	data, err := json.Marshal(s.lastSeq.Load())
	if err != nil {
		return err
	}
	return conn.Send(Payload{Op: OpHeartbeat, D: data})
}

// emit forwards one frame in order, giving up only on shutdown.
func (s *Supervisor) emit(f Frame) {
	select {
	case s.frames <- f:
	case <-s.ctx.Done():
	}
}

package framestream

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// A Server accepts connections and hands every received message to Handler.
type Server struct {
	Addr string
	// Config limits received messages. The zero value means DefaultConfig.
	Config  TransportConfig
	Handler Handler
}

// Handler is called once per received message. Returning an error closes
// the connection.
type Handler func(ctx context.Context, s *Session, m Message) error

// A Session stores the connection state of one peer.
type Session struct {
	ID         uuid.UUID
	LocalAddr  net.Addr
	RemoteAddr net.Addr

	// Transport can be used by the handler to reply.
	Transport *Transport
	Messages  int
}

func (s *Server) config() (TransportConfig, error) {
	if s.Config == (TransportConfig{}) {
		return DefaultConfig(), nil
	}
	return s.Config, s.Config.Validate()
}

// ListenAndServe listens on s.Addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if _, err := s.config(); err != nil {
		return err
	}
	l, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}

// Serve accepts incoming connections on the Listener l, creating a new
// goroutine for each. It returns when ctx is done or l is closed, after
// all connections have finished. An invalid Config is reported before any
// connection is accepted.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	cfg, err := s.config()
	if err != nil {
		l.Close()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		l.Close()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		c, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Warn().Str("component", "server").Err(err).Msg("accept failed")
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.serveConn(ctx, c, cfg)
		}()
	}
}

func (s *Server) serveConn(ctx context.Context, c net.Conn, cfg TransportConfig) {
	defer c.Close()

	session := &Session{
		ID:         uuid.New(),
		LocalAddr:  c.LocalAddr(),
		RemoteAddr: c.RemoteAddr(),
		Transport:  NewTransport(c, c, cfg),
	}
	logger := log.With().Str("component", "server").
		Str("session", session.ID.String()).
		Stringer("remote", session.RemoteAddr).
		Logger()
	logger.Debug().Msg("connection accepted")

	stop := context.AfterFunc(ctx, func() { c.Close() })
	defer stop()

	for {
		m, err := session.Transport.Recv()
		if errors.Is(err, ErrFrameTooBig) || errors.Is(err, ErrTooManyFrames) {
			logger.Warn().Err(err).Msg("message dropped")
			continue
		}
		if err != nil {
			if err != io.EOF && ctx.Err() == nil {
				logger.Warn().Err(err).Msg("receive failed")
			}
			break
		}
		session.Messages++

		if err := s.Handler(ctx, session, m); err != nil {
			logger.Warn().Err(err).Msg("handler failed")
			break
		}
	}
	logger.Debug().Int("messages", session.Messages).Msg("connection closed")
}

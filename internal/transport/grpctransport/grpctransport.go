// Package grpctransport implements transport.Session over a gRPC
// bidirectional stream. The offerer runs an ephemeral gRPC server; the offer
// descriptor carries its address, a session id and a random secret. The
// answerer dials back and proves it scanned the offer with an HS256 token
// signed by that secret; the same token travels back optically as the answer
// descriptor, so the offerer admits exactly the peer it scanned.
package grpctransport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/okatenko/beamlink/internal/common"
	"github.com/okatenko/beamlink/internal/logging"
	"github.com/okatenko/beamlink/internal/transport"
)

const (
	serviceName    = "beamlink.transport.v1.PeerChannel"
	connectMethod  = "/" + serviceName + "/Connect"
	eventBuffer    = 64
	finalizeWait   = 2 * time.Minute
	tokenLifetime  = 10 * time.Minute
	sessionKeySize = 32
)

var (
	ErrBadDescriptor = errors.New("grpctransport: bad session descriptor")
	ErrBadToken      = errors.New("grpctransport: invalid session token")
	ErrNoPeer        = errors.New("grpctransport: no peer connected")
	ErrNotOpen       = errors.New("grpctransport: channel not open")
	ErrClaimed       = errors.New("grpctransport: session already claimed")
)

const (
	frameHello = "hello"
	frameOpen  = "open"
	frameData  = "data"
	frameClose = "close"
)

// frame is the JSON payload inside each stream message.
type frame struct {
	Kind    string `json:"kind"`
	Token   string `json:"token,omitempty"`
	Payload []byte `json:"payload,omitempty"`
}

// offerDescriptor is the JSON form of the opaque offer string.
type offerDescriptor struct {
	Addr   string `json:"addr"`
	SID    string `json:"sid"`
	Secret string `json:"secret"`
}

// msgStream is the subset shared by grpc.ServerStream and grpc.ClientStream.
type msgStream interface {
	SendMsg(m any) error
	RecvMsg(m any) error
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*any)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{{
		StreamName:    "Connect",
		Handler:       connectHandler,
		ServerStreams: true,
		ClientStreams: true,
	}},
}

func connectHandler(srv any, stream grpc.ServerStream) error {
	return srv.(*Session).serveStream(stream)
}

// Session implements transport.Session. A session is single-use: one
// handshake, one channel.
type Session struct {
	host   string
	logger logging.Logger
	events chan transport.Event

	mu     sync.Mutex
	sendMu sync.Mutex

	sid    string
	secret []byte

	srv     *grpc.Server
	lis     net.Listener
	conn    *grpc.ClientConn
	stream  msgStream
	pending chan grpc.ServerStream
	done    chan struct{}
	cancel  context.CancelFunc

	open   bool
	closed bool
}

func NewSession(host string, logger logging.Logger) *Session {
	return &Session{
		host:   host,
		logger: logger.With("module", "grpc_transport"),
		events: make(chan transport.Event, eventBuffer),
		done:   make(chan struct{}),
	}
}

func (s *Session) CreateOffer(ctx context.Context) (string, error) {
	lis, err := net.Listen("tcp", net.JoinHostPort(s.host, "0"))
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.lis = lis
	s.sid = uuid.NewString()
	s.secret = common.GenerateRandByteArray(sessionKeySize)
	s.pending = make(chan grpc.ServerStream, 1)
	s.srv = grpc.NewServer()
	s.srv.RegisterService(&serviceDesc, s)
	s.mu.Unlock()

	go func() {
		if err := s.srv.Serve(lis); err != nil {
			s.logger.Debug(context.Background(), "transport server stopped", "error", err)
		}
	}()

	desc, err := json.Marshal(offerDescriptor{
		Addr:   lis.Addr().String(),
		SID:    s.sid,
		Secret: base64.StdEncoding.EncodeToString(s.secret),
	})
	if err != nil {
		return "", err
	}
	return string(desc), nil
}

// serveStream admits at most one dialing peer: the hello frame must carry a
// token signed with this session's secret.
func (s *Session) serveStream(stream grpc.ServerStream) error {
	var msg wrapperspb.BytesValue
	if err := stream.RecvMsg(&msg); err != nil {
		return err
	}

	var f frame
	if err := json.Unmarshal(msg.Value, &f); err != nil || f.Kind != frameHello {
		return ErrBadToken
	}
	if err := s.verifyToken(f.Token); err != nil {
		return err
	}

	select {
	case s.pending <- stream:
	default:
		return ErrClaimed
	}

	// hold the stream open until the session ends
	<-s.done
	return nil
}

func (s *Session) CreateAnswer(ctx context.Context, offer string) (string, error) {
	var od offerDescriptor
	if err := json.Unmarshal([]byte(offer), &od); err != nil || od.Addr == "" || od.SID == "" {
		return "", ErrBadDescriptor
	}
	secret, err := base64.StdEncoding.DecodeString(od.Secret)
	if err != nil || len(secret) != sessionKeySize {
		return "", ErrBadDescriptor
	}

	token, err := signToken(od.SID, secret)
	if err != nil {
		return "", err
	}

	conn, err := grpc.NewClient(od.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return "", err
	}

	// the stream must outlive this call; it is bound to the session, not to
	// the caller's context
	streamCtx, cancel := context.WithCancel(context.Background())

	stream, err := conn.NewStream(streamCtx, &serviceDesc.Streams[0], connectMethod)
	if err != nil {
		cancel()
		_ = conn.Close()
		return "", err
	}

	s.mu.Lock()
	s.sid = od.SID
	s.secret = secret
	s.conn = conn
	s.stream = stream
	s.cancel = cancel
	s.mu.Unlock()

	if err := s.sendFrame(frame{Kind: frameHello, Token: token}); err != nil {
		_ = s.Close()
		return "", err
	}

	go s.recvLoop(stream)
	return token, nil
}

func (s *Session) Finalize(ctx context.Context, answer string) error {
	if err := s.verifyToken(answer); err != nil {
		return err
	}

	s.mu.Lock()
	pending := s.pending
	s.mu.Unlock()
	if pending == nil {
		return ErrNoPeer
	}

	var stream grpc.ServerStream
	select {
	case stream = <-pending:
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(finalizeWait):
		return ErrNoPeer
	}

	s.mu.Lock()
	s.stream = stream
	s.open = true
	s.mu.Unlock()

	if err := s.sendFrame(frame{Kind: frameOpen}); err != nil {
		return err
	}

	go s.recvLoop(stream)
	s.emit(transport.Event{Kind: transport.EventStateChange, State: transport.StateOpen})
	return nil
}

func (s *Session) Send(ctx context.Context, payload []byte) error {
	s.mu.Lock()
	open, closed := s.open, s.closed
	s.mu.Unlock()
	if closed || !open {
		return ErrNotOpen
	}
	return s.sendFrame(frame{Kind: frameData, Payload: payload})
}

func (s *Session) Events() <-chan transport.Event {
	return s.events
}

func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.open = false
	stream := s.stream
	conn := s.conn
	srv := s.srv
	cancel := s.cancel
	s.mu.Unlock()

	if stream != nil {
		_ = s.sendFrame(frame{Kind: frameClose})
	}

	close(s.done)
	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
	if srv != nil {
		srv.Stop()
	}

	s.emit(transport.Event{Kind: transport.EventStateChange, State: transport.StateClosed})
	close(s.events)
	return nil
}

func (s *Session) recvLoop(stream msgStream) {
	for {
		var msg wrapperspb.BytesValue
		if err := stream.RecvMsg(&msg); err != nil {
			s.mu.Lock()
			closed := s.closed
			s.open = false
			s.mu.Unlock()
			if !closed {
				s.emit(transport.Event{Kind: transport.EventStateChange, State: transport.StateDisconnected})
			}
			return
		}

		var f frame
		if err := json.Unmarshal(msg.Value, &f); err != nil {
			s.logger.Warn(context.Background(), "dropping malformed frame", "error", err)
			continue
		}

		switch f.Kind {
		case frameOpen:
			s.mu.Lock()
			s.open = true
			s.mu.Unlock()
			s.emit(transport.Event{Kind: transport.EventStateChange, State: transport.StateOpen})
		case frameData:
			s.emit(transport.Event{Kind: transport.EventMessage, Data: f.Payload})
		case frameClose:
			s.mu.Lock()
			s.open = false
			closed := s.closed
			s.mu.Unlock()
			if !closed {
				s.emit(transport.Event{Kind: transport.EventStateChange, State: transport.StateDisconnected})
			}
			return
		}
	}
}

func (s *Session) sendFrame(f frame) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	s.mu.Lock()
	stream := s.stream
	s.mu.Unlock()
	if stream == nil {
		return ErrNotOpen
	}
	return stream.SendMsg(wrapperspb.Bytes(b))
}

// emit never blocks: a stuck consumer must not stall the peer, and racing a
// concurrent Close is tolerated.
func (s *Session) emit(ev transport.Event) {
	defer func() { _ = recover() }()
	select {
	case s.events <- ev:
	default:
	}
}

func (s *Session) verifyToken(tokenStr string) error {
	s.mu.Lock()
	secret, sid := s.secret, s.sid
	s.mu.Unlock()

	claims := &jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !tok.Valid || claims.Subject != sid {
		return ErrBadToken
	}
	return nil
}

func signToken(sid string, secret []byte) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   sid,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

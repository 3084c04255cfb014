// Package server seats remote players reached over TCP or WebSocket at a
// table, plays rounds with them and lets everybody else watch.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/minaorangina/maumau"
	"github.com/minaorangina/maumau/player"
	"github.com/minaorangina/maumau/protocol"
	"github.com/minaorangina/maumau/rules"
	"github.com/minaorangina/maumau/store"
)

const defaultScoresLimit = 10

var _ maumau.Events = (*Broadcaster)(nil)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ScoreBoard stores results and ranks players
type ScoreBoard interface {
	maumau.Scores
	Scores(ctx context.Context, limit int) ([]store.Score, error)
}

type Options struct {
	// Humans is the number of remote players a round waits for
	Humans    int
	AIPlayers []string
	// ReadTimeout bounds every answer of a seated player
	ReadTimeout time.Duration
	// HandshakeTimeout bounds the wait for JOIN or WATCH
	HandshakeTimeout time.Duration
}

// Server runs one table
type Server struct {
	opts    Options
	log     *zap.Logger
	scores  ScoreBoard
	session *maumau.Session
	bc      *Broadcaster
	lobby   *lobby
	round   int
}

// New constructs a server. scores and log may be nil.
func New(opts Options, game maumau.Options, ro rules.Options, scores ScoreBoard, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 30 * time.Second
	}

	bc := NewBroadcaster(log)
	var sc maumau.Scores
	if scores != nil {
		sc = scores
	}

	return &Server{
		opts:    opts,
		log:     log,
		scores:  scores,
		session: maumau.NewSession(game, rules.NewStdRuleSet(ro, bc), bc, sc, log),
		bc:      bc,
		lobby:   newLobby(),
	}
}

// Status returns a snapshot of the table
func (s *Server) Status() Status {
	st := s.bc.Status()
	st.Waiting = s.lobby.count()
	return st
}

// Run plays rounds until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	defer s.bc.Close()

	for {
		humans, err := s.gather(ctx)
		if err != nil {
			return err
		}

		s.play(ctx, humans)

		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// gather waits until enough humans joined
func (s *Server) gather(ctx context.Context) ([]*player.RemotePlayer, error) {
	s.bc.SetState("waiting")
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		seated, extra, ok := s.lobby.take(s.opts.Humans)
		if ok {
			for _, p := range extra {
				s.watch(p.ID(), p.Name(), p.Conn(), "the table is full, you are watching")
			}
			return seated, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.lobby.arrived:
		case <-ticker.C:
		}
	}
}

func (s *Server) play(ctx context.Context, humans []*player.RemotePlayer) {
	s.round++
	log := s.log.With(zap.Int("round", s.round))

	for _, h := range humans {
		if err := s.session.AddPlayer(h); err != nil {
			log.Warn("cannot seat player", zap.String("player", h.Name()), zap.Error(err))
			h.Close()
		}
	}
	for _, name := range s.opts.AIPlayers {
		if err := s.session.AddPlayer(player.NewAIPlayer(name)); err != nil {
			log.Warn("cannot seat AI player", zap.String("player", name), zap.Error(err))
		}
	}

	s.bc.Seat(s.round, s.session.Players())
	s.bc.SetState(maumau.Playing.String())
	log.Info("round starting", zap.Int("players", len(s.session.Players())))

	err := s.session.Distribute(ctx)
	if err == nil {
		err = s.session.Play(ctx)
	}
	if err != nil && ctx.Err() == nil {
		log.Error("round failed", zap.Error(err))
	}

	s.bc.SetState(maumau.Finished.String())
	if err := s.bc.GameOver(); err != nil {
		log.Debug("game over broadcast failed", zap.Error(err))
	}
	for _, h := range humans {
		h.Close()
	}

	s.session.Reset()
	s.lobby.reopen()
	log.Info("round over")
}

// Serve accepts line protocol connections until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		s.log.Debug("connection accepted", zap.String("remote", conn.RemoteAddr().String()))
		go s.handshake(ctx, newLineConn(newTCPTransport(conn)))
	}
}

// handshake reads JOIN or WATCH
func (s *Server) handshake(ctx context.Context, conn player.Conn) {
	log := s.log.With(zap.String("remote", conn.RemoteAddr()))

	line, err := conn.ReadLine(ctx, s.opts.HandshakeTimeout)
	if err != nil {
		log.Debug("no handshake", zap.Error(err))
		conn.Close()
		return
	}

	m, err := protocol.Parse(line)
	if err == nil && m.Cmd != protocol.Join && m.Cmd != protocol.Watch {
		err = protocol.ErrUnknownCommand
	}
	if err != nil {
		log.Info("bad handshake", zap.String("line", line), zap.Error(err))
		conn.WriteLine(protocol.NewText(protocol.Error, "expected JOIN <name> or WATCH").String())
		conn.Close()
		return
	}

	id := player.NewID()
	name, _ := m.Arg(0)
	if err := conn.WriteLine(protocol.New(protocol.Welcome, id).String()); err != nil {
		conn.Close()
		return
	}

	if m.Cmd == protocol.Watch {
		s.watch(id, name, conn, "")
		return
	}

	p := player.NewRemotePlayer(id, name, conn, s.opts.ReadTimeout)
	if !s.lobby.join(p) {
		s.watch(id, name, conn, "a round is in progress, you are watching")
		return
	}
	log.Info("player waiting", zap.String("player", name))
}

func (s *Server) watch(id, name string, conn player.Conn, msg string) {
	if msg != "" {
		if err := conn.WriteLine(protocol.NewText(protocol.Info, msg).String()); err != nil {
			conn.Close()
			return
		}
	}
	s.bc.AddWatcher(id, name, conn)
}

// Handler serves the status page and the WebSocket endpoint
func (s *Server) Handler() http.Handler {
	router := http.NewServeMux()

	router.Handle("/status", http.HandlerFunc(s.HandleStatus))
	router.Handle("/scores", http.HandlerFunc(s.HandleScores))
	router.Handle("/ws", http.HandlerFunc(s.HandleWS))

	stdlog := zap.NewStdLog(s.log)
	var h http.Handler = router
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(stdlog), handlers.PrintRecoveryStack(true))(h)
	h = handlers.CORS(handlers.AllowedOrigins([]string{"*"}), handlers.AllowedMethods([]string{http.MethodGet}))(h)
	return handlers.LoggingHandler(stdlog.Writer(), h)
}

// HandleStatus writes the table snapshot
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.Status())
}

// HandleScores writes the best players, ?limit=n
func (s *Server) HandleScores(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.scores == nil {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("scores are not kept"))
		return
	}

	limit := defaultScoresLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("bad limit"))
			return
		}
		limit = n
	}

	scores, err := s.scores.Scores(r.Context(), limit)
	if err != nil {
		s.log.Error("cannot read scores", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if scores == nil {
		scores = []store.Score{}
	}
	s.writeJSON(w, scores)
}

// HandleWS upgrades to a WebSocket speaking the line protocol
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	rawConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already replied
		s.log.Info("could not upgrade to websocket", zap.Error(err))
		return
	}

	// the request context ends with this handler
	go s.handshake(context.Background(), newLineConn(newWSTransport(rawConn)))
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	bytes, err := json.Marshal(v)
	if err != nil {
		s.log.Error("cannot encode response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Add("Content-Type", "application/json")
	w.Write(bytes)
}

// lobby collects the humans for the next round
type lobby struct {
	mu      sync.Mutex
	open    bool
	waiting []*player.RemotePlayer
	arrived chan struct{}
}

func newLobby() *lobby {
	return &lobby{open: true, arrived: make(chan struct{}, 1)}
}

// join queues p unless a round is running
func (l *lobby) join(p *player.RemotePlayer) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.open {
		return false
	}
	l.waiting = append(l.waiting, p)

	select {
	case l.arrived <- struct{}{}:
	default:
	}
	return true
}

// take closes the lobby once n live players wait and returns them. Anybody
// beyond n is returned as extra.
func (l *lobby) take(n int) (seated, extra []*player.RemotePlayer, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	alive := l.waiting[:0]
	for _, p := range l.waiting {
		if p.IsAlive() {
			alive = append(alive, p)
		} else {
			p.Close()
		}
	}
	l.waiting = alive

	if len(l.waiting) < n {
		return nil, nil, false
	}

	seated = append(seated, l.waiting[:n]...)
	extra = append(extra, l.waiting[n:]...)
	l.waiting = nil
	l.open = false
	return seated, extra, true
}

func (l *lobby) reopen() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.open = true
}

func (l *lobby) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.waiting)
}

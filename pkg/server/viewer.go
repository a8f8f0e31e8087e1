package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/matzehuels/macroviewer/pkg/dataset"
	"github.com/matzehuels/macroviewer/pkg/engine"
	"github.com/matzehuels/macroviewer/pkg/errors"
	"github.com/matzehuels/macroviewer/pkg/filter"
	"github.com/matzehuels/macroviewer/pkg/layout"
	"github.com/matzehuels/macroviewer/pkg/session"
)

const (
	sessionHeader = "X-Session-ID"
	sessionQuery  = "session"
	sessionCookie = "mv_session"
)

// viewer is one live session: a controller plus the sockets watching it.
type viewer struct {
	id  string
	srv *Server

	// mu guards ctrl and sess. Tick callbacks never take it.
	mu   sync.Mutex
	ctrl *engine.Controller
	sess *session.Session

	cmu      sync.Mutex
	clients  map[*client]struct{}
	lastSeen time.Time
}

func (s *Server) newViewer(d *dataset.Dataset, sess *session.Session) (*viewer, error) {
	v := &viewer{
		id:       sess.ID,
		srv:      s,
		sess:     sess,
		clients:  make(map[*client]struct{}),
		lastSeen: time.Now(),
	}
	ctrl, err := s.newController(d, v, sess.State)
	if err != nil {
		return nil, err
	}
	v.ctrl = ctrl
	return v, nil
}

func (s *Server) newController(d *dataset.Dataset, v *viewer, state filter.State) (*engine.Controller, error) {
	return engine.New(d, engine.Options{
		Viewport:     s.cfg.Viewport,
		SettleWindow: s.cfg.SettleWindow,
		TickInterval: s.cfg.TickInterval,
		Seed:         s.cfg.Seed,
		Logger:       s.logger.With("session", v.id),
		State:        &state,
		OnTick:       v.broadcastTick,
	})
}

// viewerFor resolves the session of r, resuming a stored state or starting
// from the default view, and echoes the id on w.
func (s *Server) viewerFor(w http.ResponseWriter, r *http.Request) (*viewer, error) {
	id := requestSessionID(r)
	if id == "" {
		id = session.GenerateID()
	} else if err := errors.ValidateSessionID(id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	v, ok := s.viewers[id]
	d := s.data
	s.mu.RUnlock()
	if ok {
		v.touch()
		setSessionID(w, id)
		return v, nil
	}

	sess, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.logger.Warn("session store read failed", "session", id, "err", err)
	}
	if sess == nil {
		sess = session.New(filter.Default(d), s.cfg.SessionTTL)
		sess.ID = id
	} else {
		sess.State = filter.Sanitize(d, sess.State)
		s.logger.Debug("session resumed", "session", id, "year", sess.State.Year)
	}

	created, err := s.newViewer(d, sess)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if v, ok = s.viewers[id]; !ok {
		s.viewers[id] = created
		v = created
	}
	s.mu.Unlock()
	if v != created {
		created.close()
	}
	v.touch()
	setSessionID(w, id)
	return v, nil
}

// endSession closes the live viewer of id and deletes its stored state.
func (s *Server) endSession(ctx context.Context, id string) error {
	s.mu.Lock()
	v, ok := s.viewers[id]
	delete(s.viewers, id)
	s.mu.Unlock()
	if ok {
		v.close()
	}
	return s.store.Delete(ctx, id)
}

func requestSessionID(r *http.Request) string {
	if id := r.Header.Get(sessionHeader); id != "" {
		return id
	}
	if id := r.URL.Query().Get(sessionQuery); id != "" {
		return id
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func setSessionID(w http.ResponseWriter, id string) {
	w.Header().Set(sessionHeader, id)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// dispatch applies a, persists the new state and pushes the frame to
// every socket of the session.
func (v *viewer) dispatch(ctx context.Context, a filter.Action) (engine.Frame, error) {
	v.mu.Lock()
	frame, err := v.ctrl.Dispatch(ctx, a)
	if err != nil {
		v.mu.Unlock()
		return engine.Frame{}, err
	}
	v.sess.Touch(frame.State, v.srv.cfg.SessionTTL)
	sess := *v.sess
	v.mu.Unlock()

	if !a.Kind.IsDrag() {
		if err := v.srv.store.Set(ctx, &sess); err != nil {
			v.srv.logger.Warn("session store write failed", "session", v.id, "err", err)
		}
	}
	v.touch()
	v.broadcast(message{Type: msgFrame, Frame: &frame})
	return frame, nil
}

// controller returns the current controller. Reload may replace it.
func (v *viewer) controller() *engine.Controller {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ctrl
}

// reload rebuilds the controller over d. Filter state is sanitized for d
// and nodes that survive keep their positions.
func (v *viewer) reload(ctx context.Context, d *dataset.Dataset) error {
	v.mu.Lock()
	old := v.ctrl
	prev := old.Frame()
	state := filter.Sanitize(d, old.State())
	ctrl, err := v.srv.newController(d, v, state)
	if err != nil {
		v.mu.Unlock()
		return err
	}
	old.Close()
	// New countries start where the fresh layout put them; reheat so
	// they settle among the restored ones.
	if moved := ctrl.Restore(prev.Positions); moved < len(ctrl.Driver().Positions()) {
		ctrl.Driver().Retune(nil)
	}
	v.ctrl = ctrl
	v.sess.Touch(state, v.srv.cfg.SessionTTL)
	sess := *v.sess
	frame := ctrl.Frame()
	v.mu.Unlock()

	if err := v.srv.store.Set(ctx, &sess); err != nil {
		v.srv.logger.Warn("session store write failed", "session", v.id, "err", err)
	}
	v.broadcast(message{Type: msgFrame, Frame: &frame})
	return nil
}

func (v *viewer) touch() {
	v.cmu.Lock()
	v.lastSeen = time.Now()
	v.cmu.Unlock()
}

func (v *viewer) idleSince(cutoff time.Time) bool {
	v.cmu.Lock()
	defer v.cmu.Unlock()
	return len(v.clients) == 0 && v.lastSeen.Before(cutoff)
}

func (v *viewer) attach(c *client) {
	v.cmu.Lock()
	v.clients[c] = struct{}{}
	v.lastSeen = time.Now()
	v.cmu.Unlock()
	if m := v.srv.metrics; m != nil {
		m.ActiveViewers.Inc()
	}
}

func (v *viewer) detach(c *client) {
	v.cmu.Lock()
	_, ok := v.clients[c]
	delete(v.clients, c)
	v.lastSeen = time.Now()
	v.cmu.Unlock()
	if !ok {
		return
	}
	c.close()
	if m := v.srv.metrics; m != nil {
		m.ActiveViewers.Dec()
	}
}

// broadcast queues m on every socket. Slow sockets drop the message.
func (v *viewer) broadcast(m message) {
	m.Session = v.id
	v.cmu.Lock()
	defer v.cmu.Unlock()
	for c := range v.clients {
		c.offer(m)
	}
}

func (v *viewer) broadcastTick(snap layout.Snapshot) {
	v.broadcast(message{Type: msgTick, Tick: &snap})
}

// close halts the layout and disconnects every socket.
func (v *viewer) close() {
	v.mu.Lock()
	v.ctrl.Close()
	v.mu.Unlock()

	v.cmu.Lock()
	clients := make([]*client, 0, len(v.clients))
	for c := range v.clients {
		clients = append(clients, c)
	}
	v.cmu.Unlock()
	for _, c := range clients {
		v.detach(c)
	}
}

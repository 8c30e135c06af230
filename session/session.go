// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Filipe Johansson

// Package session connects one open document to the relay.
//
// A Session owns the document buffer. Local edits made through Edit are sent
// to the room as SYNC events carrying the full text and saved to the store
// after a quiet period. Every SYNC event the relay delivers overwrites the
// buffer without moving the local cursor.
//
//	s, err := session.New("doc1", identity, docs,
//		session.WithURL("ws://localhost:8080/ws"),
//		session.WithRouter(router),
//	)
//	if err != nil {
//		return err
//	}
//	if err := s.Open(ctx); err != nil {
//		return err
//	}
//	defer s.Close(ctx)
//
//	s.Edit(func(b *editor.Buffer) {
//		b.ToggleInline(editor.Bold)
//	})
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/FilipeJohansson/mdcollab/editor"
	"github.com/FilipeJohansson/mdcollab/protocol"
	"github.com/FilipeJohansson/mdcollab/store"
)

// Identity provides the signed in user, if any.
type Identity interface {
	CurrentUser() (*protocol.User, bool)
}

type IdentityFunc func() (*protocol.User, bool)

func (f IdentityFunc) CurrentUser() (*protocol.User, bool) {
	return f()
}

// Router is the navigation of the host application.
type Router interface {
	Current() string
	Redirect(path, reason string)
}

// Hooks receive session updates. They run on the session's read goroutine,
// except OnSaveStatus which runs wherever the save happens. Nil hooks are
// skipped.
type Hooks struct {
	OnPresence   func(members []protocol.Member)
	OnNotice     func(msg string)
	OnQuery      func(members []protocol.Member)
	OnSaveStatus func(status SaveStatus, err error)
}

func (h Hooks) presence(m []protocol.Member) {
	if h.OnPresence != nil {
		h.OnPresence(m)
	}
}

func (h Hooks) notice(msg string) {
	if h.OnNotice != nil {
		h.OnNotice(msg)
	}
}

func (h Hooks) query(m []protocol.Member) {
	if h.OnQuery != nil {
		h.OnQuery(m)
	}
}

func (h Hooks) saveStatus(status SaveStatus, err error) {
	if h.OnSaveStatus != nil {
		h.OnSaveStatus(status, err)
	}
}

type Session struct {
	docID    string
	identity Identity
	docs     store.DocumentStore
	router   Router
	hooks    Hooks
	config   *Config
	dialer   *websocket.Dialer
	log      zerolog.Logger

	mu      sync.Mutex
	buf     *editor.Buffer
	user    protocol.User
	members []protocol.Member
	conn    *websocket.Conn
	unsent  bool // a local change could not be sent while disconnected
	opened  bool
	closed  bool

	saver  *debouncer
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(docID string, identity Identity, docs store.DocumentStore, options ...Option) (*Session, error) {
	if identity == nil {
		return nil, newInvalidOptionError("identity", identity)
	}
	if docs == nil {
		return nil, newInvalidOptionError("docs", docs)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		docID:    docID,
		identity: identity,
		docs:     docs,
		config:   DefaultConfig(),
		dialer:   websocket.DefaultDialer,
		log:      zerolog.Nop(),
		buf:      editor.NewBuffer(""),
		ctx:      ctx,
		cancel:   cancel,
	}

	for _, o := range options {
		if err := o(s); err != nil {
			cancel()
			return nil, err
		}
	}

	s.log = s.log.With().Str("doc", docID).Logger()
	s.saver = newDebouncer(ctx, s.config.SaveDelay, s.save)
	s.buf.OnChange(s.onChange)

	return s, nil
}

func (s *Session) DocID() string {
	return s.docID
}

// Open loads the document, connects to the relay and joins the room. When
// the relay cannot be reached within the configured attempts it redirects
// to the project list and returns ErrServiceUnavailable. A failed Open may be
// retried.
func (s *Session) Open(ctx context.Context) (err error) {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return ErrClosed
	case s.opened:
		s.mu.Unlock()
		return ErrAlreadyOpen
	}
	s.opened = true
	s.mu.Unlock()

	defer func() {
		if err != nil {
			s.mu.Lock()
			s.opened = false
			s.mu.Unlock()
		}
	}()

	user, ok := s.identity.CurrentUser()
	if !ok || user == nil {
		return ErrNoUser
	}

	text, err := s.docs.Load(ctx, s.docID)
	if err != nil {
		return newLoadDocumentError(s.docID, err)
	}

	s.mu.Lock()
	s.user = *user
	s.buf.SetValue(text)
	s.unsent = false
	s.mu.Unlock()

	conn, err := s.dial(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("relay unreachable")
		s.redirect(ReasonConnectionFailed)
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return ErrClosed
	}
	s.conn = conn
	if err := s.sendLocked(protocol.JoinRequest{RoomID: s.docID, User: s.user}); err != nil {
		s.log.Warn().Err(err).Msg("join not sent")
	}
	s.mu.Unlock()

	s.log.Info().Str("uid", user.UID).Msg("session opened")

	s.wg.Add(1)
	go s.readLoop(conn)

	return nil
}

// Close leaves the room, saves pending changes and disconnects. It must not
// be called from a hook.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true

	conn := s.conn
	if conn != nil {
		if err := s.sendLocked(protocol.LeaveRequest{RoomID: s.docID, UID: s.user.UID}); err != nil {
			s.log.Debug().Err(err).Msg("leave not sent")
		}
	}
	s.conn = nil
	s.mu.Unlock()

	s.saver.Flush(ctx)
	s.saver.Stop()
	s.cancel()

	if conn != nil {
		closeConn(conn, s.config.WriteTimeout)
	}

	s.wg.Wait()
	s.log.Info().Msg("session closed")

	return nil
}

// Edit runs fn against the document buffer. Changes fn makes are sent to
// the room and scheduled for saving.
func (s *Session) Edit(fn func(b *editor.Buffer)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	fn(s.buf)
	return nil
}

// RequestPresence asks the relay for the current member list. The answer
// arrives through Hooks.OnQuery.
func (s *Session) RequestPresence() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	return s.sendLocked(protocol.QueryRequest{RoomID: s.docID})
}

func (s *Session) Value() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Value()
}

func (s *Session) Selection() editor.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Selection()
}

func (s *Session) Members() []protocol.Member {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]protocol.Member, len(s.members))
	copy(out, s.members)
	return out
}

func (s *Session) SavePending() bool {
	return s.saver.Pending()
}

// onChange runs with s.mu held, from inside a buffer operation.
func (s *Session) onChange(c editor.Change) {
	if c.Origin == editor.OriginSetValue {
		return
	}

	err := s.sendLocked(protocol.SyncRequest{
		RoomID: s.docID,
		UID:    s.user.UID,
		Pos:    toWirePos(c.Cursor),
		Doc:    c.Text,
	})
	if err != nil {
		s.unsent = true
		s.log.Debug().Err(err).Msg("sync deferred")
	}

	s.saver.Trigger()
}

// handle applies one relay event. It returns false when the session must stop
// reading.
func (s *Session) handle(e protocol.Event) bool {
	switch ev := e.(type) {
	case protocol.JoinBroadcast:
		s.mu.Lock()
		s.members = ev.Members
		me := s.user.UID
		s.mu.Unlock()

		s.hooks.presence(ev.Members)
		if ev.JoiningUser.UID != me {
			s.hooks.notice(fmt.Sprintf("%s joined the project", displayName(ev.JoiningUser)))
		}

	case protocol.SyncBroadcast:
		s.mu.Lock()
		s.members = ev.Members
		// the relay's order decides the text, our own echoes included
		if ev.Doc != nil {
			s.applyRemoteLocked(*ev.Doc)
		}
		s.mu.Unlock()

		s.hooks.presence(ev.Members)

	case protocol.QueryResponse:
		s.mu.Lock()
		s.members = ev.Members
		s.mu.Unlock()

		s.hooks.query(ev.Members)

	case protocol.Full:
		s.log.Warn().Msg("room is full")
		return false

	default:
		s.log.Warn().Str("event", string(e.Kind())).Msg("unexpected event")
	}

	return true
}

// applyRemoteLocked replaces the text and puts the selection back where it
// was.
func (s *Session) applyRemoteLocked(doc string) {
	if doc == s.buf.Value() {
		return
	}
	sel := s.buf.Selection()
	s.buf.SetValue(doc)
	s.buf.SetSelection(sel.Anchor, sel.Head)
}

func (s *Session) save(ctx context.Context) {
	s.mu.Lock()
	text := s.buf.Value()
	s.mu.Unlock()

	s.hooks.saveStatus(Saving, nil)
	if err := s.docs.Save(ctx, s.docID, text); err != nil {
		s.log.Error().Err(err).Msg("save failed")
		s.hooks.saveStatus(SaveFailed, err)
		return
	}
	s.hooks.saveStatus(Saved, nil)
}

func (s *Session) redirect(reason string) {
	if s.router == nil || s.router.Current() == s.config.ProjectListPath {
		return
	}
	s.router.Redirect(s.config.ProjectListPath, reason)
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func toWirePos(p editor.Pos) protocol.Pos {
	return protocol.Pos{Line: p.Line, Ch: p.Ch}
}

func displayName(u protocol.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.UID
}

var errStopReading = errors.New("stop reading")

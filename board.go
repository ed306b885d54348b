// Pitchside Tactics Board
//
// A shared soccer tactics board. Every board lives in a Hub that owns a
// tactics.State and applies events to it from a single goroutine, then
// pushes the whole new state to every connected browser.
//
// Features:
// - WebSockets per board ID: /tactics/:boardid and /tactics/:boardid/ws
// - Browsers send raw pointer events; the hub translates them into board
//   transitions and owns every drag session
// - Drag sessions are keyed by connection, released on pointer-up, on
//   disconnect, or after --drag-timeout without input
// - Roster-full alerts are dismissed by a timer that feeds back into the hub
// - /tactics?template=<id> starts a new board from an examples template
// - Boards auto-reaped after configurable idle timeout
// - Random 8-char board IDs via crypto/rand, with server-side collision check
// - QR code share link, backed by go-qrcode

package main

import (
	"context"
	"crypto/rand"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/pitchside/tactics"
)

const (
	boardIDLength   = 8
	maxBoardMessage = 4096
)

// stateView is the wire form of a board.
type stateView struct {
	tactics.State
	Dragging []string `json:"dragging"`
}

// StateMessage carries the whole board after every change.
type StateMessage struct {
	Type    string    `json:"type"` // "state"
	Board   string    `json:"board"`
	Viewers int       `json:"viewers"`
	State   stateView `json:"state"`
}

// ErrorMessage is sent only to the client whose message was rejected.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

// BoardMessage is anything a browser may send. Pointer fields are only
// read for "pointer" messages.
type BoardMessage struct {
	Type string `json:"type"` // "pointer", "select_team", "formation", "remove", "remove_last", "rename", "clear"
	tactics.PointerEvent
	Team         tactics.Team `json:"team,omitempty"`          // select_team
	Formation    string       `json:"formation,omitempty"`     // formation
	PositionName string       `json:"position_name,omitempty"` // rename
}

// event maps a message onto a board transition. A nil event with a nil
// error means the message is valid but has no effect.
func (m BoardMessage) event(owner string) (tactics.Event, error) {
	switch m.Type {
	case "pointer":
		return tactics.Translate(owner, m.PointerEvent), nil
	case "select_team":
		if !m.Team.Valid() {
			return nil, fmt.Errorf("unknown team %q", m.Team)
		}
		return tactics.SelectTeam{Team: m.Team}, nil
	case "formation":
		if _, ok := tactics.Lookup(m.Formation); !ok {
			return nil, fmt.Errorf("unknown formation %q", m.Formation)
		}
		return tactics.Reset{Formation: m.Formation}, nil
	case "remove":
		return tactics.Remove{MarkerID: m.Target}, nil
	case "remove_last":
		return tactics.RemoveLast{}, nil
	case "rename":
		if !tactics.ValidRole(m.PositionName) {
			return nil, fmt.Errorf("unknown position %q", m.PositionName)
		}
		return tactics.Rename{MarkerID: m.Target, PositionName: m.PositionName}, nil
	case "clear":
		return tactics.Clear{}, nil
	}

	return nil, fmt.Errorf("unknown message type %q", m.Type)
}

type boardClient struct {
	conn  *websocket.Conn
	send  chan any
	owner string
}

type boardEvent struct {
	client *boardClient
	event  tactics.Event
	err    error
}

type Hub struct {
	id          string
	dragTimeout time.Duration
	clients     map[*boardClient]bool
	lastSeen    map[string]time.Time // owner -> last input; run goroutine only

	register chan *boardClient
	unreg    chan *boardClient
	events   chan boardEvent
	ticks    chan struct{}
	done     chan struct{}
	stop     sync.Once

	mu         sync.RWMutex
	state      tactics.State
	lastActive time.Time
}

func newHub(boardID, formation string, dragTimeout time.Duration) *Hub {
	return &Hub{
		id:          boardID,
		dragTimeout: dragTimeout,
		clients:     make(map[*boardClient]bool),
		lastSeen:    make(map[string]time.Time),
		register:    make(chan *boardClient),
		unreg:       make(chan *boardClient),
		events:      make(chan boardEvent),
		ticks:       make(chan struct{}),
		done:        make(chan struct{}),
		state:       tactics.NewState(formation),
		lastActive:  time.Now(),
	}
}

func (h *Hub) run(cfg *Config) {
	watchdog := time.NewTicker(max(h.dragTimeout/2, 10*time.Millisecond))
	defer watchdog.Stop()

	for {
		select {
		case <-h.done:
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return

		case c := <-h.register:
			h.clients[c] = true
			h.touch()
			h.broadcast()

		case c := <-h.unreg:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			delete(h.lastSeen, c.owner)
			h.touch()
			if !h.apply(cfg, tactics.EndDrag{Owner: c.owner}) {
				h.broadcast()
			}

		case be := <-h.events:
			if be.err != nil {
				h.reply(be.client, ErrorMessage{Type: "error", Message: be.err.Error()})
				continue
			}
			h.lastSeen[be.client.owner] = time.Now()
			h.apply(cfg, be.event)

		case <-h.ticks:
			h.apply(cfg, tactics.DismissAlert{})

		case now := <-watchdog.C:
			for _, owner := range h.staleOwners(now) {
				logf(cfg, "BOARD: Released abandoned drag by %s on %s", owner, h.id)
				h.apply(cfg, tactics.EndDrag{Owner: owner})
			}
		}
	}
}

func (h *Hub) touch() {
	h.mu.Lock()
	h.lastActive = time.Now()
	h.mu.Unlock()
}

// staleOwners lists owners holding a drag without recent input.
func (h *Hub) staleOwners(now time.Time) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var stale []string
	for owner := range h.state.Drags {
		if now.Sub(h.lastSeen[owner]) >= h.dragTimeout {
			stale = append(stale, owner)
		}
	}

	return stale
}

// apply runs ev through the reducer and broadcasts the result if anything
// changed. It reports whether a broadcast happened.
func (h *Hub) apply(cfg *Config, ev tactics.Event) bool {
	if ev == nil {
		return false
	}

	now := time.Now()

	h.mu.Lock()
	next, out := h.state.Apply(ev, now)
	h.state = next
	h.lastActive = now
	h.mu.Unlock()

	if out.Alert != nil {
		logf(cfg, "BOARD: %s on %s", out.Alert.Message, h.id)
		h.scheduleDismiss(out.Alert.Expires.Sub(now))
	}

	if !out.Changed {
		return false
	}

	h.broadcast()

	return true
}

func (h *Hub) scheduleDismiss(d time.Duration) {
	time.AfterFunc(d, func() {
		select {
		case h.ticks <- struct{}{}:
		case <-h.done:
		}
	})
}

func (h *Hub) snapshot() StateMessage {
	h.mu.RLock()
	st := h.state
	h.mu.RUnlock()

	return StateMessage{
		Type:    "state",
		Board:   h.id,
		Viewers: len(h.clients),
		State: stateView{
			State:    st,
			Dragging: st.Dragging(),
		},
	}
}

// broadcast must only be called from run.
func (h *Hub) broadcast() {
	msg := h.snapshot()

	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			delete(h.clients, client)
			close(client.send)
		}
	}
}

func (h *Hub) reply(c *boardClient, msg any) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

// current returns the board for read-only callers outside run.
func (h *Hub) current() stateView {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return stateView{State: h.state, Dragging: h.state.Dragging()}
}

func (h *Hub) idleSince() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.lastActive
}

// close stops run, which disconnects every client.
func (h *Hub) close() {
	h.stop.Do(func() { close(h.done) })
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// BoardManager holds a set of hubs keyed by board ID, so each
// /tactics/:boardid is its own isolated board.
type BoardManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	cfg         *Config
	idleTimeout time.Duration
}

func newBoardManager(ctx context.Context, cfg *Config) *BoardManager {
	bm := &BoardManager{
		hubs:        make(map[string]*Hub),
		cfg:         cfg,
		idleTimeout: cfg.sessionTimeout,
	}
	if bm.idleTimeout > 0 {
		go bm.reaperLoop(ctx)
	}
	return bm
}

func validBoardID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

func (bm *BoardManager) startLocked(boardID, formation string) *Hub {
	hub := newHub(boardID, formation, bm.cfg.dragTimeout)
	bm.hubs[boardID] = hub
	go hub.run(bm.cfg)
	return hub
}

// getHub returns the board, opening it with the default formation if needed.
func (bm *BoardManager) getHub(boardID string) *Hub {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	if hub, ok := bm.hubs[boardID]; ok {
		return hub
	}

	return bm.startLocked(boardID, tactics.DefaultFormation)
}

func (bm *BoardManager) lookup(boardID string) (*Hub, bool) {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	hub, ok := bm.hubs[boardID]
	return hub, ok
}

// create opens a board under a fresh crypto-random ID.
func (bm *BoardManager) create(formation string) *Hub {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	buf := make([]byte, boardIDLength)
	out := make([]byte, boardIDLength)

	for {
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		for i := range out {
			out[i] = letters[int(buf[i])%len(letters)]
		}
		id := string(out)

		bm.mu.Lock()
		if _, exists := bm.hubs[id]; !exists {
			hub := bm.startLocked(id, formation)
			bm.mu.Unlock()
			return hub
		}
		bm.mu.Unlock()
	}
}

// reap closes boards idle since before cutoff and returns how many.
func (bm *BoardManager) reap(cutoff time.Time) int {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	n := 0
	for id, hub := range bm.hubs {
		if hub.idleSince().Before(cutoff) {
			delete(bm.hubs, id)
			hub.close()
			n++
		}
	}

	return n
}

func (bm *BoardManager) reaperLoop(ctx context.Context) {
	ticker := time.NewTicker(bm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			bm.closeAll()
			return
		case now := <-ticker.C:
			if n := bm.reap(now.Add(-bm.idleTimeout)); n > 0 {
				logf(bm.cfg, "BOARD: Reaped %d idle board(s)", n)
			}
		}
	}
}

func (bm *BoardManager) closeAll() {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	for id, hub := range bm.hubs {
		delete(bm.hubs, id)
		hub.close()
	}
}

// WebSocket handler that picks the hub based on :boardid
func serveBoardWS(cfg *Config, bm *BoardManager, ident *Identity) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		boardID := ps.ByName("boardid")
		if !validBoardID(boardID) {
			http.Error(w, "invalid board id", http.StatusBadRequest)
			return
		}

		clientID, cookie, err := ident.resolve(r)
		if err != nil {
			http.Error(w, "unable to assign client id", http.StatusInternalServerError)
			return
		}

		header := http.Header{}
		if cookie != nil {
			header.Add("Set-Cookie", cookie.String())
		}

		hub := bm.getHub(boardID)

		conn, err := upgrader.Upgrade(w, r, header)
		if err != nil {
			logf(cfg, "BOARD: Upgrade failed for %s: %v", realIP(r), err)
			return
		}

		client := &boardClient{
			conn:  conn,
			send:  make(chan any, 16),
			owner: clientID + "/" + uuid.NewString(),
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			_ = conn.Close()
			return
		}

		logf(cfg, "BOARD: %s joined %s", realIP(r), boardID)

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *boardClient) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxBoardMessage)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		be := boardEvent{client: c}

		var msg BoardMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			be.err = errors.New("malformed message")
		} else {
			be.event, be.err = msg.event(c.owner)
		}

		if be.event == nil && be.err == nil {
			continue
		}

		select {
		case h.events <- be:
		case <-h.done:
			return
		}
	}
}

func (c *boardClient) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

//go:embed assets/tactics/index.html
var boardHTML []byte

//go:embed assets/tactics/app.css
var boardCSS []byte

//go:embed assets/tactics/app.js
var boardJS []byte

func serveBoardPage(cfg *Config, ident *Identity, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !validBoardID(ps.ByName("boardid")) {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		securityHeaders(cfg, w)

		_ = ident.clientID(w, r)

		if _, err := w.Write(boardHTML); err != nil {
			errs <- err
		}
	}
}

func serveBoardState(cfg *Config, bm *BoardManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		hub, ok := bm.lookup(ps.ByName("boardid"))
		if !ok {
			http.NotFound(w, r)
			return
		}

		securityHeaders(cfg, w)

		if err := writeJSON(w, http.StatusOK, hub.current()); err != nil {
			errs <- err
		}
	}
}

// redirectNewBoard handles GET /tactics by opening a new board, laid out
// from ?template= when it names a known template, and redirecting to it.
func redirectNewBoard(cfg *Config, path string, bm *BoardManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		formation := tactics.DefaultFormation
		if f, ok := tactics.TemplateFormation(r.URL.Query().Get("template")); ok {
			formation = f
		}

		hub := bm.create(formation)
		logf(cfg, "BOARD: Created board %s%s/%s (%s)", cfg.prefix, path, hub.id, formation)
		http.Redirect(w, r, cfg.prefix+path+"/"+hub.id, http.StatusTemporaryRedirect)
	}
}

// examplesResponse backs the examples gallery.
type examplesResponse struct {
	Formations []string           `json:"formations"`
	Roles      []string           `json:"roles"`
	Templates  []tactics.Template `json:"templates"`
}

func serveExamples(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		securityHeaders(cfg, w)

		err := writeJSON(w, http.StatusOK, examplesResponse{
			Formations: tactics.Formations(),
			Roles:      tactics.Roles(),
			Templates:  tactics.Templates(),
		})
		if err != nil {
			errs <- err
		}
	}
}

// registerBoard sets up routes so that:
//   - $path                  → redirects to a new random board (8-char ID)
//   - $path/:boardid         → HTML client
//   - $path/:boardid/ws      → WebSocket for that board
//   - $path/:boardid/state   → JSON snapshot of that board
//   - $path/:boardid/qr      → PNG QR code for that board URL
func registerBoard(cfg *Config, path string, mux *httprouter.Router, bm *BoardManager, ident *Identity, errs chan<- error) {
	mux.GET(cfg.prefix+path, redirectNewBoard(cfg, path, bm))
	mux.GET(cfg.prefix+path+"/:boardid", serveBoardPage(cfg, ident, errs))
	mux.GET(cfg.prefix+path+"/:boardid/ws", serveBoardWS(cfg, bm, ident))
	mux.GET(cfg.prefix+path+"/:boardid/state", serveBoardState(cfg, bm, errs))
	mux.GET(cfg.prefix+path+"/:boardid/qr", serveQR(cfg, "/qr", errs))

	mux.GET(cfg.prefix+"/examples", serveExamples(cfg, errs))

	mux.GET(cfg.prefix+"/assets/tactics/app.css", serveAsset(cfg, boardCSS, "text/css; charset=utf-8", errs))
	mux.GET(cfg.prefix+"/assets/tactics/app.js", serveAsset(cfg, boardJS, "text/javascript; charset=utf-8", errs))
	mux.GET(cfg.prefix+"/assets/tactics/field.svg", serveAsset(cfg, tactics.FieldSVG(), "image/svg+xml", errs))
	mux.GET(cfg.prefix+"/images/soccer_field.png", serveFieldImage(cfg, errs))
}

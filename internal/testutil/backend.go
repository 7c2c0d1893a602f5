package testutil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/traitquest/traitquest/internal/domain"
)

// Frame is one decoded {event, data} message received by the fake backend.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Backend is an in-process stand-in for the TraitQuest API: REST routes
// under /v1 and the quest WebSocket at /v1/quests/ws. Tokens are HS256 JWTs
// minted with MintToken.
type Backend struct {
	t      *testing.T
	server *httptest.Server
	secret []byte

	mu      sync.Mutex
	user    domain.User
	regions []domain.Region
	access  map[string]domain.AccessResult
	reports map[string]domain.QuestReport

	restQuestions []domain.Question
	restStep      int
	regionsDelay  time.Duration

	// RegionCalls counts GET /map/regions requests.
	RegionCalls atomic.Int32

	conns chan *QuestConn
	open  []*QuestConn
}

// Claims are the JWT claims the fake backend issues.
type Claims struct {
	jwt.RegisteredClaims
}

// NewBackend starts a fake backend that is shut down with the test.
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{
		t:      t,
		secret: []byte("test-secret"),
		user: domain.User{
			UserID:      "user-1",
			DisplayName: "Tester",
			Level:       1,
			Exp:         0,
		},
		access:  map[string]domain.AccessResult{},
		reports: map[string]domain.QuestReport{},
		conns:   make(chan *QuestConn, 8),
	}

	r := mux.NewRouter()
	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/auth/login", b.handleLogin).Methods(http.MethodPost)
	v1.HandleFunc("/auth/me", b.requireAuth(b.handleMe)).Methods(http.MethodGet)
	v1.HandleFunc("/map/regions", b.requireAuth(b.handleRegions)).Methods(http.MethodGet)
	v1.HandleFunc("/map/check-access", b.requireAuth(b.handleCheckAccess)).Methods(http.MethodGet)
	v1.HandleFunc("/quests/ws", b.handleQuestWS).Methods(http.MethodGet)
	v1.HandleFunc("/quests/report/{questType}", b.requireAuth(b.handleReport)).Methods(http.MethodGet)
	v1.HandleFunc("/quests/interact", b.requireAuth(b.handleInteract)).Methods(http.MethodPost)
	v1.HandleFunc("/quests/{questId}/start", b.requireAuth(b.handleStart)).Methods(http.MethodPost)

	b.server = httptest.NewServer(r)
	t.Cleanup(func() {
		b.mu.Lock()
		open := b.open
		b.mu.Unlock()
		// Hijacked connections outlive server.Close.
		for _, qc := range open {
			_ = qc.Close()
		}
		b.server.Close()
	})
	return b
}

// URL is the REST base URL, including the /v1 prefix.
func (b *Backend) URL() string {
	return b.server.URL + "/v1"
}

// WSURL is the quest WebSocket URL.
func (b *Backend) WSURL() string {
	return "ws" + strings.TrimPrefix(b.server.URL, "http") + "/v1/quests/ws"
}

// MintToken issues a signed token for subject that expires after ttl.
func (b *Backend) MintToken(subject string, ttl time.Duration) string {
	b.t.Helper()
	now := time.Now()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		b.t.Fatalf("minting token: %v", err)
	}
	return signed
}

// SetUser replaces the user returned by /auth/me and /auth/login.
func (b *Backend) SetUser(u domain.User) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.user = u
}

// SetRegions replaces the regions returned by /map/regions.
func (b *Backend) SetRegions(regions []domain.Region) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.regions = regions
}

// SetRegionsDelay holds GET /map/regions open for d before responding.
func (b *Backend) SetRegionsDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.regionsDelay = d
}

// SetAccess sets the /map/check-access answer for a region.
func (b *Backend) SetAccess(regionID string, res domain.AccessResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.access[regionID] = res
}

// SetReport stores the report served for questType. Quests without one
// answer 404, as for a player who never finished them.
func (b *Backend) SetReport(questType string, rep domain.QuestReport) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rep.QuestType = questType
	b.reports[questType] = rep
}

// SetRESTQuestions scripts the REST quest flow: start returns the first
// question, each interact the next, then isCompleted.
func (b *Backend) SetRESTQuestions(qs []domain.Question) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.restQuestions = qs
	b.restStep = 0
}

// AcceptQuest waits for the next quest WebSocket connection.
func (b *Backend) AcceptQuest(timeout time.Duration) *QuestConn {
	b.t.Helper()
	select {
	case c := <-b.conns:
		return c
	case <-time.After(timeout):
		b.t.Fatalf("no quest connection within %s", timeout)
		return nil
	}
}

func (b *Backend) validToken(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(tok *jwt.Token) (any, error) {
		return b.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (b *Backend) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "missing token"})
			return
		}
		if _, err := b.validToken(raw); err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "invalid token"})
			return
		}
		next(w, r)
	}
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Token == "" || body.Token == "bad" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "google token rejected"})
		return
	}
	b.mu.Lock()
	u := b.user
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, domain.LoginResponse{
		UserID:      u.UserID,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		Level:       u.Level,
		Exp:         u.Exp,
		AccessToken: b.MintToken(u.UserID, time.Hour),
	})
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.user)
}

func (b *Backend) handleRegions(w http.ResponseWriter, r *http.Request) {
	b.RegionCalls.Add(1)
	b.mu.Lock()
	delay := b.regionsDelay
	b.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"regions": b.regions})
}

func (b *Backend) handleCheckAccess(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("region_id")
	b.mu.Lock()
	res, ok := b.access[id]
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Region not found", "can_enter": false})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (b *Backend) handleReport(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	rep, ok := b.reports[mux.Vars(r)["questType"]]
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Quest report not found"})
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (b *Backend) handleStart(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.restStep = 0
	writeJSON(w, http.StatusOK, b.restResponse("rest-"+mux.Vars(r)["questId"]))
}

func (b *Backend) handleInteract(w http.ResponseWriter, r *http.Request) {
	var req domain.InteractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "bad request"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.restStep++
	writeJSON(w, http.StatusOK, b.restResponse(req.SessionID))
}

func (b *Backend) restResponse(sessionID string) domain.QuestResponse {
	if b.restStep >= len(b.restQuestions) {
		return domain.QuestResponse{SessionID: sessionID, Narrative: "The trial is complete.", IsCompleted: true}
	}
	q := b.restQuestions[b.restStep]
	return domain.QuestResponse{SessionID: sessionID, Narrative: "Step narrative", Question: &q}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (b *Backend) handleQuestWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	token := r.URL.Query().Get("token")
	if token == "" {
		token, _ = strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if sessionID == "" {
		http.Error(w, "missing sessionId", http.StatusBadRequest)
		return
	}
	if _, err := b.validToken(token); err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	qc := &QuestConn{
		SessionID:     sessionID,
		Token:         token,
		QueryHadToken: r.URL.Query().Get("token") != "",
		ws:            ws,
		frames:        make(chan Frame, 64),
		closed:        make(chan struct{}),
	}
	b.mu.Lock()
	b.open = append(b.open, qc)
	b.mu.Unlock()
	go qc.readLoop()
	b.conns <- qc
}

// QuestConn is the server side of one quest WebSocket.
type QuestConn struct {
	SessionID     string
	Token         string
	QueryHadToken bool

	ws      *websocket.Conn
	writeMu sync.Mutex
	frames  chan Frame
	closed  chan struct{}
	once    sync.Once
}

func (c *QuestConn) readLoop() {
	defer close(c.frames)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.markClosed()
			return
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		c.frames <- f
	}
}

func (c *QuestConn) markClosed() {
	c.once.Do(func() { close(c.closed) })
}

// Next waits for the next frame sent by the client.
func (c *QuestConn) Next(t *testing.T, timeout time.Duration) Frame {
	t.Helper()
	select {
	case f, ok := <-c.frames:
		if !ok {
			t.Fatalf("quest connection closed while waiting for a frame")
		}
		return f
	case <-time.After(timeout):
		t.Fatalf("no frame within %s", timeout)
		return Frame{}
	}
}

// Emit sends an {event, data} frame to the client.
func (c *QuestConn) Emit(event string, data any) error {
	payload, err := json.Marshal(map[string]any{"event": event, "data": data})
	if err != nil {
		return err
	}
	return c.EmitRaw(string(payload))
}

// EmitRaw sends msg verbatim, for malformed-frame tests.
func (c *QuestConn) EmitRaw(msg string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, []byte(msg))
}

// Close drops the connection from the server side.
func (c *QuestConn) Close() error {
	err := c.ws.Close()
	c.markClosed()
	return err
}

// WaitClosed waits until the client has closed the connection.
func (c *QuestConn) WaitClosed(timeout time.Duration) error {
	select {
	case <-c.closed:
		return nil
	case <-time.After(timeout):
		return errors.New("connection still open")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

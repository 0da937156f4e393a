// Package storefronttest provides an in-process fake of the storefront API
// for tests. It serves the same routes and payload shapes as the real
// backend over httptest, with hooks to inject failures and latency.
package storefronttest

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"shopassist/domain"
)

// Route names accepted by Fail, Garble, SetDelay, Hits and LastQuery.
const (
	RouteList         = "list"
	RouteSearch       = "search"
	RouteProduct      = "product"
	RouteCategories   = "categories"
	RouteBrands       = "brands"
	RouteChatMessage  = "chat_message"
	RouteChatReset    = "chat_reset"
	RouteChatHistory  = "chat_history"
	RouteChatSessions = "chat_sessions"
	RouteLogin        = "login"
	RouteRegister     = "register"
	RouteProfile      = "profile"
)

// Default per_page when the request omits it, as the backend does.
const defaultPerPage = 20

var signingKey = []byte("storefronttest-secret")

type session struct {
	info     domain.ChatSessionInfo
	messages []domain.ChatHistoryEntry
}

type account struct {
	user     domain.User
	password string
}

// Server is a fake storefront API.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	products  []domain.Product
	sessions  map[string]*session
	accounts  map[string]*account
	nextID    int
	failures  map[string]int
	garbled   map[string]bool
	delays    map[string]time.Duration
	hits      map[string]int
	lastQuery map[string]url.Values
	tokenTTL  time.Duration
}

// NewServer starts a fake API seeded with products. Call Close when done.
func NewServer(products []domain.Product) *Server {
	s := &Server{
		products:  append([]domain.Product(nil), products...),
		sessions:  make(map[string]*session),
		accounts:  make(map[string]*account),
		failures:  make(map[string]int),
		garbled:   make(map[string]bool),
		delays:    make(map[string]time.Duration),
		hits:      make(map[string]int),
		lastQuery: make(map[string]url.Values),
		tokenTTL:  time.Hour,
	}

	r := mux.NewRouter()
	r.Use(s.intercept)

	api := r.PathPrefix("/api").Subrouter()
	p := api.PathPrefix("/products").Subrouter()
	p.HandleFunc("/", s.handleList).Methods(http.MethodGet).Name(RouteList)
	p.HandleFunc("/search", s.handleSearch).Methods(http.MethodGet).Name(RouteSearch)
	p.HandleFunc("/categories", s.handleCategories).Methods(http.MethodGet).Name(RouteCategories)
	p.HandleFunc("/brands", s.handleBrands).Methods(http.MethodGet).Name(RouteBrands)
	p.HandleFunc("/{id:[0-9]+}", s.handleProduct).Methods(http.MethodGet).Name(RouteProduct)

	c := api.PathPrefix("/chat").Subrouter()
	c.HandleFunc("/message", s.handleChatMessage).Methods(http.MethodPost).Name(RouteChatMessage)
	c.HandleFunc("/reset/{sid}", s.handleChatReset).Methods(http.MethodPost).Name(RouteChatReset)
	c.HandleFunc("/history/{sid}", s.handleChatHistory).Methods(http.MethodGet).Name(RouteChatHistory)
	c.HandleFunc("/sessions", s.handleChatSessions).Methods(http.MethodGet).Name(RouteChatSessions)

	a := api.PathPrefix("/auth").Subrouter()
	a.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost).Name(RouteLogin)
	a.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost).Name(RouteRegister)
	a.HandleFunc("/profile", s.handleProfile).Methods(http.MethodGet).Name(RouteProfile)

	s.Server = httptest.NewServer(r)
	return s
}

// Fail makes every later request to route answer with status until cleared
// with status 0.
func (s *Server) Fail(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, route)
		return
	}
	s.failures[route] = status
}

// Garble makes route answer 200 with a body that is not the expected shape.
func (s *Server) Garble(route string, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.garbled[route] = on
}

// SetDelay holds every response on route for d.
func (s *Server) SetDelay(route string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[route] = d
}

// SetTokenTTL changes the lifetime of tokens issued by login/register.
func (s *Server) SetTokenTTL(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenTTL = d
}

// Hits reports how many requests reached route.
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// LastQuery returns the query string of the most recent request to route.
func (s *Server) LastQuery(route string) url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastQuery[route]
}

// SessionMessages returns how many messages the server holds for sid.
func (s *Server) SessionMessages(sid string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sid]; ok {
		return len(sess.messages)
	}
	return 0
}

func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := ""
		if route := mux.CurrentRoute(r); route != nil {
			name = route.GetName()
		}

		s.mu.Lock()
		s.hits[name]++
		s.lastQuery[name] = r.URL.Query()
		status := s.failures[name]
		garbled := s.garbled[name]
		delay := s.delays[name]
		s.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if status != 0 {
			writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
			return
		}
		if garbled {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"unexpected": true}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func intParam(q url.Values, key string, def int) int {
	if v, err := strconv.Atoi(q.Get(key)); err == nil {
		return v
	}
	return def
}

func floatParam(q url.Values, key string) *float64 {
	v, err := strconv.ParseFloat(q.Get(key), 64)
	if err != nil {
		return nil
	}
	return &v
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func (s *Server) filter(q url.Values, text string) []domain.Product {
	category := q.Get("category")
	brand := q.Get("brand")
	lo, hi := floatParam(q, "min_price"), floatParam(q, "max_price")

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if text != "" && !contains(p.Name, text) && !contains(p.Description, text) &&
			!contains(p.Category, text) && !contains(p.Brand, text) {
			continue
		}
		if category != "" && !contains(p.Category, category) {
			continue
		}
		if brand != "" && !contains(p.Brand, brand) {
			continue
		}
		if lo != nil && p.Price < *lo {
			continue
		}
		if hi != nil && p.Price > *hi {
			continue
		}
		out = append(out, p)
	}
	return out
}

func paginate(all []domain.Product, q url.Values) map[string]any {
	page := intParam(q, "page", 1)
	perPage := intParam(q, "per_page", defaultPerPage)
	if perPage < 1 {
		perPage = defaultPerPage
	}
	pages := int(math.Ceil(float64(len(all)) / float64(perPage)))

	items := []domain.Product{}
	start := (page - 1) * perPage
	if page >= 1 && start < len(all) {
		end := start + perPage
		if end > len(all) {
			end = len(all)
		}
		items = all[start:end]
	}
	return map[string]any{
		"products":     items,
		"total":        len(all),
		"pages":        pages,
		"current_page": page,
		"per_page":     perPage,
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, paginate(s.filter(q, ""), q))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	text := strings.TrimSpace(q.Get("q"))
	if text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Search query is required"})
		return
	}
	body := paginate(s.filter(q, text), q)
	body["query"] = text
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.ID == id {
			writeJSON(w, http.StatusOK, p)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Product not found"})
}

func (s *Server) distinct(field func(domain.Product) string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{})
	out := []string{}
	for _, p := range s.products {
		v := field(p)
		if _, ok := seen[v]; ok || v == "" {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": s.distinct(func(p domain.Product) string { return p.Category }),
	})
}

func (s *Server) handleBrands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"brands": s.distinct(func(p domain.Product) string { return p.Brand }),
	})
}

func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Message is required"})
		return
	}
	text := strings.TrimSpace(req.Message)
	if text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Message cannot be empty"})
		return
	}

	matches := s.filter(url.Values{}, text)
	kind, reply := domain.MessageText, fmt.Sprintf("I found %d products matching %q.", len(matches), text)
	if contains(text, "hello") || contains(text, "hi ") {
		kind, reply, matches = domain.MessageGreeting, "Hello! What are you shopping for today?", nil
	}
	if matches == nil {
		matches = []domain.Product{}
	}

	s.mu.Lock()
	sess, ok := s.sessions[req.SessionID]
	if !ok {
		s.nextID++
		sess = &session{info: domain.ChatSessionInfo{
			ID:        s.nextID,
			SessionID: req.SessionID,
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		}}
		s.sessions[req.SessionID] = sess
	}
	s.nextID++
	entry := domain.ChatHistoryEntry{
		ID:          s.nextID,
		SessionID:   sess.info.ID,
		Message:     text,
		Response:    reply,
		MessageType: kind,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	sess.messages = append(sess.messages, entry)
	sess.info.MessageCount = len(sess.messages)
	sess.info.UpdatedAt = entry.Timestamp
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"response":   reply,
		"type":       kind,
		"products":   matches,
		"session_id": req.SessionID,
		"message_id": entry.ID,
	})
}

func (s *Server) handleChatReset(w http.ResponseWriter, r *http.Request) {
	sid := mux.Vars(r)["sid"]
	s.mu.Lock()
	sess, ok := s.sessions[sid]
	if ok {
		sess.messages = nil
		sess.info.MessageCount = 0
	}
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Session not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":    "Chat session reset successfully",
		"session_id": sid,
	})
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	sid := mux.Vars(r)["sid"]
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sid]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Session not found"})
		return
	}
	msgs := append([]domain.ChatHistoryEntry{}, sess.messages...)
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":   sid,
		"messages":     msgs,
		"session_info": sess.info,
	})
}

func (s *Server) handleChatSessions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]domain.ChatSessionInfo, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.info)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt > out[j].UpdatedAt })
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

func (s *Server) issueToken(u domain.User) (string, error) {
	s.mu.Lock()
	ttl := s.tokenTTL
	s.mu.Unlock()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(u.ID),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
}

func (s *Server) respondWithToken(w http.ResponseWriter, status int, msg string, u domain.User) {
	token, err := s.issueToken(u)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, status, map[string]any{"message": msg, "access_token": token, "user": u})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Username and password are required"})
		return
	}
	s.mu.Lock()
	if _, exists := s.accounts[req.Username]; exists {
		s.mu.Unlock()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Username already exists"})
		return
	}
	s.nextID++
	u := domain.User{
		ID:        s.nextID,
		Username:  req.Username,
		Email:     req.Email,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	s.accounts[req.Username] = &account{user: u, password: req.Password}
	s.mu.Unlock()
	s.respondWithToken(w, http.StatusCreated, "User created successfully", u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	s.mu.Lock()
	acc, ok := s.accounts[req.Username]
	s.mu.Unlock()
	if !ok || acc.password != req.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		return
	}
	s.respondWithToken(w, http.StatusOK, "Login successful", acc.user)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) { return signingKey, nil })
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Missing or invalid token"})
		return
	}
	id, _ := strconv.Atoi(claims.Subject)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if acc.user.ID == id {
			writeJSON(w, http.StatusOK, map[string]any{"user": acc.user})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "User not found"})
}

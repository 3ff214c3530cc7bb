// SPDX-License-Identifier: MIT

package census

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// MockServer provides a configurable game-data API mock for testing.
type MockServer struct {
	*httptest.Server
	mu         sync.RWMutex
	characters map[string]mockCharacter // character_id → character
	metagame   map[string][2]string     // metagame_event_id → {name, description}
	worlds     map[string]string        // world_id → name
	failWith   int                      // when non-zero, every request returns this status
	requests   int
}

type mockCharacter struct {
	Name        string
	OutfitID    string
	OutfitName  string
	OutfitAlias string
}

// NewMockServer creates a game-data API mock with realistic default data.
func NewMockServer() *MockServer {
	mock := &MockServer{
		characters: make(map[string]mockCharacter),
		metagame:   make(map[string][2]string),
		worlds:     make(map[string]string),
	}
	mock.SetDefaultData()

	mock.Server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// SetDefaultData installs the default fixture data.
func (m *MockServer) SetDefaultData() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.characters = map[string]mockCharacter{
		"5428010618035323201": {Name: "Higby", OutfitID: "37509488620604883", OutfitName: "The Black Widow Company", OutfitAlias: "BWC"},
		"5428011263335537297": {Name: "Wrel", OutfitID: "37512110430163209", OutfitName: "Recursion", OutfitAlias: "RE"},
		"8276011263335530001": {Name: "Lonewolf", OutfitID: "", OutfitName: "", OutfitAlias: ""},
	}
	m.metagame = map[string][2]string{
		"159": {"Amerish Enlightenment", "Capture Amerish for the Vanu Sovereignty"},
		"160": {"Esamir Superiority", "Capture Esamir for the New Conglomerate"},
	}
	m.worlds = map[string]string{
		"1":  "Connery",
		"10": "Miller",
		"13": "Cobalt",
	}
}

// AddCharacter registers a character fixture.
func (m *MockServer) AddCharacter(id, name, outfitID, outfitName, outfitAlias string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.characters[id] = mockCharacter{Name: name, OutfitID: outfitID, OutfitName: outfitName, OutfitAlias: outfitAlias}
}

// FailWith makes every subsequent request return the given HTTP status.
// Zero restores normal behaviour.
func (m *MockServer) FailWith(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = status
}

// Requests returns the number of requests served.
func (m *MockServer) Requests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requests
}

func (m *MockServer) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.requests++
	fail := m.failWith
	m.mu.Unlock()

	if fail != 0 {
		http.Error(w, http.StatusText(fail), fail)
		return
	}

	// Path shape: /{serviceID}/get/{namespace}/{collection}/
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 4 || parts[1] != "get" {
		http.NotFound(w, r)
		return
	}
	collection := parts[3]

	switch collection {
	case "character":
		m.handleCharacter(w, r)
	case "metagame_event":
		m.handleMetagameEvent(w, r)
	case "world":
		m.handleWorld(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (m *MockServer) handleCharacter(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	ch, ok := m.characters[r.URL.Query().Get("character_id")]
	m.mu.RUnlock()

	if !ok {
		writeJSON(w, `{"character_list":[],"returned":0}`)
		return
	}

	outfit := "null"
	if ch.OutfitID != "" {
		outfit = fmt.Sprintf(`{"outfit_id":%q,"name":%q,"alias":%q}`, ch.OutfitID, ch.OutfitName, ch.OutfitAlias)
	}
	writeJSON(w, fmt.Sprintf(
		`{"character_list":[{"character_id":%q,"name":{"first":%q},"outfit":%s}],"returned":1}`,
		r.URL.Query().Get("character_id"), ch.Name, outfit))
}

func (m *MockServer) handleMetagameEvent(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("metagame_event_id")
	m.mu.RLock()
	me, ok := m.metagame[id]
	m.mu.RUnlock()

	if !ok {
		writeJSON(w, `{"metagame_event_list":[],"returned":0}`)
		return
	}
	writeJSON(w, fmt.Sprintf(
		`{"metagame_event_list":[{"metagame_event_id":%q,"name":{"en":%q},"description":{"en":%q}}],"returned":1}`,
		id, me[0], me[1]))
}

func (m *MockServer) handleWorld(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("world_id")
	m.mu.RLock()
	name, ok := m.worlds[id]
	m.mu.RUnlock()

	if !ok {
		writeJSON(w, `{"world_list":[],"returned":0}`)
		return
	}
	writeJSON(w, fmt.Sprintf(
		`{"world_list":[{"world_id":%q,"name":{"en":%q}}],"returned":1}`, id, name))
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

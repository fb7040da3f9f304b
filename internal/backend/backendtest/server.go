// Package backendtest provides an in-memory connector backend for tests.
package backendtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/deskindex/deskindex/internal/models"
)

// Call is one request received by the fake backend.
type Call struct {
	Method string
	Path   string
	Body   string
}

// Server is a fake backend implementing the endpoints used by the console.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	calls         []Call
	credentials   map[int]models.Credential
	connectors    map[int]models.Connector
	pairs         []*pair
	nextID        int
	failures      map[string]failure
	expectedToken string
	delay         time.Duration
	hold          *statusHold
}

type statusHold struct {
	taken   chan struct{}
	release chan struct{}
}

type pair struct {
	status models.ConnectorIndexingStatus
}

type failure struct {
	status int
	detail string
	times  int // <0 means forever
}

// NewServer starts a fake backend. Close it with Server.Close.
func NewServer() *Server {
	s := &Server{
		credentials: make(map[int]models.Credential),
		connectors:  make(map[int]models.Connector),
		failures:    make(map[string]failure),
		nextID:      1,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// RequireToken makes the fake reject requests without this bearer token.
func (s *Server) RequireToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expectedToken = token
}

// SetDelay makes every response wait for d first.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Fail makes the next times requests matching "METHOD /path" answer status.
// times < 0 fails forever.
func (s *Server) Fail(methodAndPath string, status int, detail string, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[methodAndPath] = failure{status: status, detail: detail, times: times}
}

// HoldStatusList makes the next indexing-status request read the current
// pairs and then wait for release before answering. taken is closed once the
// pairs have been read.
func (s *Server) HoldStatusList() (taken <-chan struct{}, release func()) {
	h := &statusHold{taken: make(chan struct{}), release: make(chan struct{})}
	s.mu.Lock()
	s.hold = h
	s.mu.Unlock()
	var once sync.Once
	return h.taken, func() { once.Do(func() { close(h.release) }) }
}

// Calls returns a copy of the received requests.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount counts received requests matching method and path.
func (s *Server) CallCount(method, path string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

// ResetCalls clears the request log.
func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// AddCredential seeds a credential.
func (s *Server) AddCredential(credentialJSON map[string]any) models.Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addCredential(credentialJSON, true)
}

// AddConnector seeds a connector linked to credentialID, with an indexing
// status row of the given state.
func (s *Server) AddConnector(base models.ConnectorBase, credentialID int, status models.IndexingStatus) models.Connector {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn := s.addConnector(base)
	s.link(conn.ID, credentialID, base.Name)
	s.pairs[len(s.pairs)-1].status.LastStatus = &status
	return s.connectors[conn.ID]
}

// SetDeletable overrides is_deletable on every pair of connectorID.
func (s *Server) SetDeletable(connectorID int, deletable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pairs {
		if p.status.Connector.ID == connectorID {
			p.status.IsDeletable = deletable
		}
	}
}

// Credentials returns the stored credentials ordered by id.
func (s *Server) Credentials() []models.Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credentialList()
}

// Connectors returns the stored connectors ordered by id.
func (s *Server) Connectors() []models.Connector {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int, 0, len(s.connectors))
	for id := range s.connectors {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]models.Connector, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.connectors[id])
	}
	return out
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.calls = append(s.calls, Call{Method: r.Method, Path: r.URL.Path, Body: string(body)})
	delay := s.delay
	token := s.expectedToken
	key := r.Method + " " + r.URL.Path
	f, failing := s.failures[key]
	if failing {
		if f.times > 0 {
			f.times--
			if f.times == 0 {
				delete(s.failures, key)
			} else {
				s.failures[key] = f
			}
		}
	}
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
		writeDetail(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	if failing {
		writeDetail(w, f.status, f.detail)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.route(w, r, body)
}

func (s *Server) route(w http.ResponseWriter, r *http.Request, body []byte) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	switch {
	case r.URL.Path == "/api/health" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})

	case r.URL.Path == "/api/manage/admin/connector/indexing-status" && r.Method == http.MethodGet:
		statuses := make([]models.ConnectorIndexingStatus, 0, len(s.pairs))
		for _, p := range s.pairs {
			st := p.status
			st.Connector = s.connectors[st.Connector.ID]
			st.Credential = s.credentials[st.Credential.ID]
			statuses = append(statuses, st)
		}
		if h := s.hold; h != nil {
			s.hold = nil
			close(h.taken)
			s.mu.Unlock()
			<-h.release
			s.mu.Lock()
		}
		writeJSON(w, http.StatusOK, statuses)

	case r.URL.Path == "/api/manage/credential" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, s.credentialList())

	case r.URL.Path == "/api/manage/credential" && r.Method == http.MethodPost:
		var in models.CredentialBase
		if err := json.Unmarshal(body, &in); err != nil || in.CredentialJSON == nil {
			writeDetail(w, http.StatusUnprocessableEntity, "credential_json is required")
			return
		}
		writeJSON(w, http.StatusOK, s.addCredential(in.CredentialJSON, in.AdminPublic))

	case len(parts) == 5 && parts[2] == "admin" && parts[3] == "credential" && r.Method == http.MethodDelete:
		id, err := strconv.Atoi(parts[4])
		if _, ok := s.credentials[id]; err != nil || !ok {
			writeDetail(w, http.StatusNotFound, "Credential not found")
			return
		}
		for _, p := range s.pairs {
			if p.status.Credential.ID == id {
				writeDetail(w, http.StatusBadRequest, "Credential is still linked to a connector")
				return
			}
		}
		delete(s.credentials, id)
		writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Credential %d deleted", id)})

	case r.URL.Path == "/api/manage/admin/connector" && r.Method == http.MethodPost:
		var in models.ConnectorBase
		if err := json.Unmarshal(body, &in); err != nil || in.Name == "" || in.Source == "" {
			writeDetail(w, http.StatusUnprocessableEntity, "name and source are required")
			return
		}
		writeJSON(w, http.StatusOK, s.addConnector(in))

	case len(parts) == 5 && parts[3] == "connector" && r.Method == http.MethodPatch:
		id, err := strconv.Atoi(parts[4])
		conn, ok := s.connectors[id]
		if err != nil || !ok {
			writeDetail(w, http.StatusNotFound, "Connector not found")
			return
		}
		var in models.ConnectorBase
		if err := json.Unmarshal(body, &in); err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
			return
		}
		conn.Name = in.Name
		conn.Source = in.Source
		conn.InputType = in.InputType
		conn.ConnectorSpecificConfig = in.ConnectorSpecificConfig
		conn.RefreshFreq = in.RefreshFreq
		conn.Disabled = in.Disabled
		conn.TimeUpdated = time.Now().UTC()
		s.connectors[id] = conn
		writeJSON(w, http.StatusOK, conn)

	case len(parts) == 6 && parts[2] == "connector" && parts[4] == "credential" && r.Method == http.MethodPut:
		connectorID, err1 := strconv.Atoi(parts[3])
		credentialID, err2 := strconv.Atoi(parts[5])
		_, okConn := s.connectors[connectorID]
		_, okCred := s.credentials[credentialID]
		if err1 != nil || err2 != nil || !okConn || !okCred {
			writeDetail(w, http.StatusNotFound, "Connector or credential not found")
			return
		}
		var in struct {
			Name string `json:"name"`
		}
		_ = json.Unmarshal(body, &in)
		s.link(connectorID, credentialID, in.Name)
		writeJSON(w, http.StatusOK, map[string]string{"message": "linked"})

	case r.URL.Path == "/api/manage/admin/deletion-attempt" && r.Method == http.MethodPost:
		var in struct {
			ConnectorID  int `json:"connector_id"`
			CredentialID int `json:"credential_id"`
		}
		if err := json.Unmarshal(body, &in); err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
			return
		}
		kept := s.pairs[:0]
		found := false
		for _, p := range s.pairs {
			if p.status.Connector.ID == in.ConnectorID && p.status.Credential.ID == in.CredentialID {
				found = true
				continue
			}
			kept = append(kept, p)
		}
		s.pairs = kept
		if !found {
			writeDetail(w, http.StatusNotFound, "Connector/credential pair not found")
			return
		}
		delete(s.connectors, in.ConnectorID)
		writeJSON(w, http.StatusOK, map[string]string{"message": "deletion scheduled"})

	default:
		writeDetail(w, http.StatusNotFound, "Not Found")
	}
}

func (s *Server) addCredential(credentialJSON map[string]any, public bool) models.Credential {
	now := time.Now().UTC()
	cred := models.Credential{
		ID:             s.nextID,
		CredentialJSON: credentialJSON,
		AdminPublic:    public,
		TimeCreated:    now,
		TimeUpdated:    now,
	}
	s.nextID++
	s.credentials[cred.ID] = cred
	return cred
}

func (s *Server) addConnector(base models.ConnectorBase) models.Connector {
	now := time.Now().UTC()
	conn := models.Connector{
		ID:                      s.nextID,
		Name:                    base.Name,
		Source:                  base.Source,
		InputType:               base.InputType,
		ConnectorSpecificConfig: base.ConnectorSpecificConfig,
		RefreshFreq:             base.RefreshFreq,
		Disabled:                base.Disabled,
		CredentialIDs:           []int{},
		TimeCreated:             now,
		TimeUpdated:             now,
	}
	s.nextID++
	s.connectors[conn.ID] = conn
	return conn
}

func (s *Server) link(connectorID, credentialID int, name string) {
	conn := s.connectors[connectorID]
	conn.CredentialIDs = append(conn.CredentialIDs, credentialID)
	s.connectors[connectorID] = conn

	pairName := name
	notStarted := models.IndexingStatusNotStarted
	s.pairs = append(s.pairs, &pair{status: models.ConnectorIndexingStatus{
		CCPairID:    s.nextID,
		Name:        &pairName,
		Connector:   models.Connector{ID: connectorID},
		Credential:  models.Credential{ID: credentialID},
		PublicDoc:   true,
		LastStatus:  &notStarted,
		IsDeletable: true,
	}})
	s.nextID++
}

func (s *Server) credentialList() []models.Credential {
	ids := make([]int, 0, len(s.credentials))
	for id := range s.credentials {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]models.Credential, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.credentials[id])
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

package fakeservers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gorilla/mux"
)

// GitProvider a fake git provider API which records created webhooks
type GitProvider struct {
	Server *httptest.Server

	// Hooks the created hooks indexed by owner/repo
	Hooks map[string][]map[string]interface{}

	// StatusOverrides forces a status code for the hooks of the given owner/repo
	StatusOverrides map[string]int

	lock     sync.Mutex
	router   *mux.Router
	requests []Request
}

// NewGitProvider starts a fake git provider. Call Close when finished
func NewGitProvider() *GitProvider {
	g := &GitProvider{
		Hooks:           map[string][]map[string]interface{}{},
		StatusOverrides: map[string]int{},
	}
	g.router = g.routes()
	g.Server = httptest.NewServer(http.HandlerFunc(g.handle))
	return g
}

// URL the base URL of the API
func (g *GitProvider) URL() string {
	return g.Server.URL
}

// Close stops the server
func (g *GitProvider) Close() {
	g.Server.Close()
}

// Requests returns the requests received so far
func (g *GitProvider) Requests() []Request {
	g.lock.Lock()
	defer g.lock.Unlock()
	return append([]Request{}, g.requests...)
}

// HooksFor returns the hooks created on the owner/repo
func (g *GitProvider) HooksFor(fullName string) []map[string]interface{} {
	g.lock.Lock()
	defer g.lock.Unlock()
	return append([]map[string]interface{}{}, g.Hooks[fullName]...)
}

func (g *GitProvider) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/repos/{owner}/{repo}/hooks", g.createHook).Methods(http.MethodPost)
	return r
}

func (g *GitProvider) handle(w http.ResponseWriter, r *http.Request) {
	data, _ := ioutil.ReadAll(r.Body)
	r.Body = ioutil.NopCloser(bytes.NewReader(data))

	g.lock.Lock()
	defer g.lock.Unlock()

	g.requests = append(g.requests, Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   string(data),
	})
	g.router.ServeHTTP(w, r)
}

func (g *GitProvider) createHook(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	fullName := vars["owner"] + "/" + vars["repo"]
	if status, ok := g.StatusOverrides[fullName]; ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprint(w, `{"message":"Validation Failed","errors":[{"resource":"Hook","code":"custom","message":"Hook already exists on this repository"}]}`)
		return
	}
	if r.Header.Get("Authorization") == "" {
		http.Error(w, `{"message":"Requires authentication"}`, http.StatusUnauthorized)
		return
	}

	data, _ := ioutil.ReadAll(r.Body)
	hook := map[string]interface{}{}
	err := json.Unmarshal(data, &hook)
	if err != nil {
		http.Error(w, `{"message":"Problems parsing JSON"}`, http.StatusBadRequest)
		return
	}
	g.Hooks[fullName] = append(g.Hooks[fullName], hook)
	hook["id"] = len(g.Hooks[fullName])

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(hook)
}

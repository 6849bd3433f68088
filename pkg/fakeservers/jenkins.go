package fakeservers

import (
	"bytes"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"

	"github.com/gorilla/mux"
)

// Request a request received by a fake server
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   string
}

// Jenkins a fake Jenkins server which keeps organisation job configurations in memory
type Jenkins struct {
	Server *httptest.Server

	// Jobs the config.xml of each job indexed by name
	Jobs map[string]string

	// Building the jobs which have a running build
	Building map[string]bool

	// StatusOverrides forces a status code for requests to the given path
	StatusOverrides map[string]int

	// RedirectOnce redirects the first request to each of these paths to the same path
	RedirectOnce map[string]bool

	lock       sync.Mutex
	router     *mux.Router
	requests   []Request
	redirected map[string]bool
}

// NewJenkins starts a fake Jenkins server. Call Close when finished
func NewJenkins() *Jenkins {
	j := &Jenkins{
		Jobs:            map[string]string{},
		Building:        map[string]bool{},
		StatusOverrides: map[string]int{},
		RedirectOnce:    map[string]bool{},
		redirected:      map[string]bool{},
	}
	j.router = j.routes()
	j.Server = httptest.NewServer(http.HandlerFunc(j.handle))
	return j
}

// URL the base URL of the server
func (j *Jenkins) URL() string {
	return j.Server.URL
}

// Close stops the server
func (j *Jenkins) Close() {
	j.Server.Close()
}

// Requests returns the requests received so far
func (j *Jenkins) Requests() []Request {
	j.lock.Lock()
	defer j.lock.Unlock()
	return append([]Request{}, j.requests...)
}

// Job returns the config.xml of the job and whether it exists
func (j *Jenkins) Job(name string) (string, bool) {
	j.lock.Lock()
	defer j.lock.Unlock()
	config, ok := j.Jobs[name]
	return config, ok
}

// RequestsTo returns the requests received for the method and path
func (j *Jenkins) RequestsTo(method, path string) []Request {
	var answer []Request
	for _, r := range j.Requests() {
		if r.Method == method && r.Path == path {
			answer = append(answer, r)
		}
	}
	return answer
}

func (j *Jenkins) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/createItem", j.createItem).Methods(http.MethodPost)
	r.PathPrefix("/credentials/store/system/domain/_/").Methods(http.MethodPost).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.HandleFunc("/job/{name}/config.xml", j.getConfig).Methods(http.MethodGet)
	r.HandleFunc("/job/{name}/config.xml", j.updateConfig).Methods(http.MethodPost)
	r.HandleFunc("/job/{name}/lastBuild/api/json", j.lastBuild).Methods(http.MethodGet)
	r.HandleFunc("/job/{name}/build", j.build).Methods(http.MethodPost)
	return r
}

func (j *Jenkins) handle(w http.ResponseWriter, r *http.Request) {
	data, _ := ioutil.ReadAll(r.Body)
	r.Body = ioutil.NopCloser(bytes.NewReader(data))

	j.lock.Lock()
	defer j.lock.Unlock()

	path := r.URL.Path
	j.requests = append(j.requests, Request{
		Method: r.Method,
		Path:   path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   string(data),
	})

	if status, ok := j.StatusOverrides[path]; ok {
		w.WriteHeader(status)
		return
	}
	if j.RedirectOnce[path] && !j.redirected[path] {
		j.redirected[path] = true
		w.Header().Set("Location", r.URL.String())
		w.WriteHeader(http.StatusFound)
		return
	}
	j.router.ServeHTTP(w, r)
}

func (j *Jenkins) createItem(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if _, exists := j.Jobs[name]; exists {
		http.Error(w, "A job already exists with the name "+name, http.StatusBadRequest)
		return
	}
	data, _ := ioutil.ReadAll(r.Body)
	j.Jobs[name] = string(data)
}

// job looks up the job named in the route, writing a 404 if it does not exist
func (j *Jenkins) job(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	name := mux.Vars(r)["name"]
	config, exists := j.Jobs[name]
	if !exists {
		http.NotFound(w, r)
	}
	return name, config, exists
}

func (j *Jenkins) getConfig(w http.ResponseWriter, r *http.Request) {
	_, config, ok := j.job(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write([]byte(config))
}

func (j *Jenkins) updateConfig(w http.ResponseWriter, r *http.Request) {
	name, _, ok := j.job(w, r)
	if !ok {
		return
	}
	data, _ := ioutil.ReadAll(r.Body)
	j.Jobs[name] = string(data)
}

func (j *Jenkins) lastBuild(w http.ResponseWriter, r *http.Request) {
	name, _, ok := j.job(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if j.Building[name] {
		_, _ = w.Write([]byte(`{"_class":"org.jenkinsci.plugins.workflow.job.WorkflowRun","building":true,"number":3}`))
		return
	}
	_, _ = w.Write([]byte(`{"_class":"org.jenkinsci.plugins.workflow.job.WorkflowRun","building":false,"number":2,"result":"SUCCESS"}`))
}

func (j *Jenkins) build(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := j.job(w, r); !ok {
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// Copyright 2024 The CAKE Scheduler Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS-IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Package httpapi exposes a statistics surface over HTTP: a gorilla/mux
// JSON API in front of an in-memory, LRU-bounded cache of recent
// simulation runs.
package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	log "github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hashicorp/golang-lru/simplelru"

	"github.com/ritzdacat/cakesched/simulate"
	"github.com/ritzdacat/cakesched/verify"
	"github.com/ritzdacat/cakesched/workload"
)

const (
	err400 = "bad request: %s"
	err404 = "run not found: %s"
	err500 = "internal error: %s"
)

// Server is the HTTP front end: a cache of recent simulation runs, served
// as JSON under /runs.
type Server struct {
	router *mux.Router
	runs   *runCache
}

// NewServer builds a Server whose run cache holds at most cacheSize
// recent simulation runs, evicting the oldest on overflow.
func NewServer(cacheSize int) (*Server, error) {
	cache, err := newRunCache(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("httpapi: building run cache: %w", err)
	}
	s := &Server{router: mux.NewRouter(), runs: cache}
	s.registerHandlers()
	return s, nil
}

// Handler returns the root http.Handler, suitable for http.ListenAndServe or
// an httptest.Server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) registerHandlers() {
	s.router.HandleFunc("/runs", s.handleCreateRun).Methods(http.MethodPost)
	s.router.HandleFunc("/runs/{id}", s.handleGetRun).Methods(http.MethodGet)
	s.router.HandleFunc("/runs/{id}/stats", s.handleGetStats).Methods(http.MethodGet)
	s.router.HandleFunc("/runs/{id}/verify", s.handleVerifyRun).Methods(http.MethodGet)
}

// handleCreateRun parses the request body as a workload.Scenario, runs the
// simulation to completion, caches the resulting trace, and responds with
// its run ID.
func (s *Server) handleCreateRun(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf(err400, err), http.StatusBadRequest)
		return
	}
	name := req.URL.Query().Get("name")
	if name == "" {
		name = uuid.New().String()
	}
	scn, err := workload.Parse(name, bytes.NewReader(body))
	if err != nil {
		http.Error(w, fmt.Sprintf(err400, err), http.StatusBadRequest)
		return
	}
	trace, err := simulate.Run(scn)
	if err != nil {
		http.Error(w, fmt.Sprintf(err500, err), http.StatusInternalServerError)
		return
	}
	id := uuid.New().String()
	evicted := s.runs.add(id, trace)
	if evicted {
		log.V(1).Infof("httpapi: run cache evicted its oldest entry admitting %s", id)
	}
	log.Infof("httpapi: created run %s (%s, %d dispatch events)", id, name, len(trace.Events))
	writeJSON(w, struct {
		RunID string `json:"run_id"`
	}{RunID: id})
}

func (s *Server) handleGetRun(w http.ResponseWriter, req *http.Request) {
	trace, ok := s.lookup(w, req)
	if !ok {
		return
	}
	writeJSON(w, trace)
}

func (s *Server) handleGetStats(w http.ResponseWriter, req *http.Request) {
	trace, ok := s.lookup(w, req)
	if !ok {
		return
	}
	writeJSON(w, trace.Stats)
}

func (s *Server) handleVerifyRun(w http.ResponseWriter, req *http.Request) {
	trace, ok := s.lookup(w, req)
	if !ok {
		return
	}
	results := verify.Report(trace, verify.AllChecks()...)
	writeJSON(w, results)
}

func (s *Server) lookup(w http.ResponseWriter, req *http.Request) (*simulate.Trace, bool) {
	id := mux.Vars(req)["id"]
	trace, ok := s.runs.get(id)
	if !ok {
		http.Error(w, fmt.Sprintf(err404, id), http.StatusNotFound)
		return nil, false
	}
	return trace, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("httpapi: encoding response: %v", err)
	}
}

// runCache wraps simplelru.LRU, keyed by run ID. simplelru.LRU is not
// safe for concurrent use (Get mutates its recency list and underlying
// map just like Add does), and net/http dispatches each request on its
// own goroutine, so every access is guarded by mu.
type runCache struct {
	mu  sync.Mutex
	lru *simplelru.LRU
}

func newRunCache(size int) (*runCache, error) {
	lru, err := simplelru.NewLRU(size, nil)
	if err != nil {
		return nil, err
	}
	return &runCache{lru: lru}, nil
}

func (c *runCache) add(id string, trace *simulate.Trace) (evicted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Add(id, trace)
}

func (c *runCache) get(id string) (*simulate.Trace, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lru.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*simulate.Trace), true
}

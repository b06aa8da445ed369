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
// Binary cakesimd loads a workload scenario, runs it through the
// discrete-event scheduler simulator, and prints a verify report of the
// resulting trace; without -scenario it serves the httpapi statistics
// surface instead.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	log "github.com/golang/glog"

	"github.com/ritzdacat/cakesched/httpapi"
	"github.com/ritzdacat/cakesched/simulate"
	"github.com/ritzdacat/cakesched/verify"
	"github.com/ritzdacat/cakesched/workload"
)

var (
	port      = flag.Int("port", 7402, "The cakesimd HTTP port.")
	cacheSize = flag.Int("cache_size", 25, "The maximum number of simulation runs to keep cached at once.")
	scenario  = flag.String("scenario", "", "Path to a workload scenario file. If set, cakesimd runs it once, prints a report, and exits without starting the HTTP server.")
	serve     = flag.Bool("serve", true, "Start the httpapi HTTP server. Ignored (treated false) when -scenario is set.")
)

func runOnce(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	scn, err := workload.Parse(path, f)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	trace, err := simulate.Run(scn)
	if err != nil {
		return fmt.Errorf("simulating %s: %w", path, err)
	}
	log.Infof("cakesimd: %s: %d CPUs, %d dispatch events, %d kicks",
		trace.Scenario, trace.NrCPUs, len(trace.Events), len(trace.Kicks))

	results := verify.Report(trace, verify.AllChecks()...)
	for _, r := range results {
		status := "PASS"
		if !r.Pass {
			status = "FAIL"
		}
		fmt.Printf("[%s] %s %s\n", status, r.Name, r.Detail)
	}
	if fails := verify.Failures(results); len(fails) > 0 {
		return fmt.Errorf("%d checks failed", len(fails))
	}
	return nil
}

func runServer() error {
	s, err := httpapi.NewServer(*cacheSize)
	if err != nil {
		return fmt.Errorf("starting httpapi server: %w", err)
	}
	addr := fmt.Sprintf(":%d", *port)
	log.Infof("cakesimd: listening on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func main() {
	flag.Parse()

	if *scenario != "" {
		if err := runOnce(*scenario); err != nil {
			log.Exit(err)
		}
		return
	}
	if !*serve {
		log.Exit("cakesimd: neither -scenario nor -serve given, nothing to do")
	}
	if err := runServer(); err != nil {
		log.Exit(err)
	}
}

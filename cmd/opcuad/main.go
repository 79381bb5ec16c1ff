/*
Copyright (c) The open62541-go Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// opcuad is the daemon entrypoint, a flag-based main: build a Config
// from flags and an optional dynamic config file, wire up logging and the
// metrics HTTP endpoint, then hand off to the Server's EventLoop until a
// signal asks it to stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/open62541-go/opcua-core/internal/config"
	"github.com/open62541-go/opcua-core/internal/corelog"
	"github.com/open62541-go/opcua-core/internal/stats"
	"github.com/open62541-go/opcua-core/securechannel"
	"github.com/open62541-go/opcua-core/server"
)

// emptyPolicyRegistry is the stand-in securechannel.Registry this daemon
// starts with: the protocol scopes cryptographic primitives out of this
// module, so a real deployment supplies its own Registry (certificate
// store, policy set) in place of this one before going to production.
type emptyPolicyRegistry struct{}

func (emptyPolicyRegistry) Lookup(string) (securechannel.SecurityPolicy, bool) { return nil, false }

func main() {
	dc := config.Default()
	c := &config.Config{DynamicConfig: dc}

	flag.StringVar(&c.ConfigFile, "config", "", "Path to a YAML file with dynamic settings")
	flag.StringVar(&c.EndpointURL, "endpoint", "opc.tcp://0.0.0.0:4840", "Endpoint URL to advertise")
	flag.StringVar(&c.ListenAddr, "listen", ":4840", "host:port to bind the OPC UA TCP listener on")
	flag.StringVar(&c.LogLevel, "loglevel", "info", "Set a log level. Can be: trace, debug, info, warning, error")
	flag.StringVar(&c.PidFile, "pidfile", "/var/run/opcuad.pid", "Pid file location")
	flag.IntVar(&c.MonitoringPort, "monitoringport", 9494, "Port to serve Prometheus metrics on")
	flag.IntVar(&c.EventLoopWorkers, "workers", 8, "Size of the offload worker pool backing the EventLoop")
	flag.Parse()

	backend := log.StandardLogger()
	if err := corelog.SetLevel(backend, c.LogLevel); err != nil {
		log.Fatalf("Unrecognized log level: %v", c.LogLevel)
	}
	clog := corelog.New(backend)

	if c.ConfigFile != "" {
		loaded, err := config.ReadDynamicConfig(c.ConfigFile)
		if err != nil {
			log.Fatalf("failed to load dynamic config %s: %v", c.ConfigFile, err)
		}
		c.DynamicConfig = *loaded
	}
	if err := c.DynamicConfig.Sanity(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	if err := writePidFile(c.PidFile); err != nil {
		log.Warningf("could not write pid file %s: %v", c.PidFile, err)
	}

	metrics := stats.New()
	go func() {
		addr := fmt.Sprintf(":%d", c.MonitoringPort)
		log.Infof("serving metrics on %s/metrics", addr)
		if err := metrics.Serve(context.Background(), addr); err != nil && err != http.ErrServerClosed {
			log.Warningf("metrics server exited: %v", err)
		}
	}()

	// Real deployments supply a NodeStore and a SecurityPolicy Registry
	// appropriate to their information model and certificate store; a daemon with neither
	// wired in yet still exercises the dispatch/session/subscription
	// layers against an empty address space.
	srv := server.New(*c, clog, metrics, nil, emptyPolicyRegistry{}, nil)

	ln, err := net.Listen("tcp", c.ListenAddr)
	if err != nil {
		log.Fatalf("failed to bind %s: %v", c.ListenAddr, err)
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				if err := srv.ServeConn(conn); err != nil {
					log.Debugf("connection ended: %v", err)
				}
			}()
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown requested")
		_ = ln.Close()
		if c.ShutdownDelay > 0 {
			log.Infof("draining connections for %s", c.ShutdownDelay)
			time.Sleep(c.ShutdownDelay)
		}
		srv.Shutdown()
		cancel()
	}()

	clog.Log(corelog.Info, corelog.CategoryEventLoop, "opcuad starting, endpoint=%s listen=%s", c.EndpointURL, c.ListenAddr)
	srv.Run(ctx)
}

func writePidFile(path string) error {
	if path == "" {
		return nil
	}
	return os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644)
}

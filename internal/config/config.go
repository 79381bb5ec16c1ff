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

// Package config implements the split static/dynamic server
// configuration: options needing a restart live in StaticConfig, options
// a running server can pick up live in DynamicConfig, loaded and
// rewritten with gopkg.in/yaml.v2.
package config

import (
	"errors"
	"os"
	"sync"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// dcMux guards concurrent ReadDynamicConfig/Write calls against a shared
// file path.
var dcMux = sync.Mutex{}

var errMaxSubscriptionsInvalid = errors.New("max subscriptions must be positive")
var errPublishingIntervalInvalid = errors.New("minimum publishing interval must be positive")
var errTimestampCheckInvalid = errors.New("verify request timestamp must be one of: default, warn, abort")

// TimestampCheck is the VerifyRequestTimestamp mode:
// Default ignores the RequestHeader timestamp, Warn logs a skewed one,
// Abort rejects the request outright.
type TimestampCheck string

// Timestamp check modes.
const (
	TimestampCheckDefault TimestampCheck = "default"
	TimestampCheckWarn    TimestampCheck = "warn"
	TimestampCheckAbort   TimestampCheck = "abort"
)

// StaticConfig holds options that require a server restart to change
//.
type StaticConfig struct {
	ConfigFile       string
	EndpointURL      string
	ListenAddr       string
	LogLevel         string
	MonitoringPort   int
	PidFile          string
	EventLoopWorkers int
	SecurityPolicies []string
}

// DynamicConfig holds options a running server can pick up without a
// restart: quotas, timeouts, the things an operator tunes
// live.
type DynamicConfig struct {
	MaxSessions             int
	MaxSubscriptionsPerSession int
	MinPublishingInterval   time.Duration
	MaxMonitoredItemsPerSub int
	MaxMonitoredItemsPerCall int
	MaxNodesPerRead         int
	MaxNodesPerWrite        int
	MaxNodesPerBrowse       int
	SessionTimeout          time.Duration
	MaxSecurityTokenLifetime time.Duration
	MaxChunkSize            int
	MaxMessageSize          int
	MaxChunkCount           int
	VerifyRequestTimestamp  TimestampCheck
	ShutdownDelay           time.Duration
}

// Config bundles both halves for the running server while keeping the
// read/write split for DynamicConfig alone.
type Config struct {
	StaticConfig
	DynamicConfig
}

// Sanity validates the dynamic portion's invariants.
func (dc *DynamicConfig) Sanity() error {
	if dc.MaxSubscriptionsPerSession <= 0 {
		return errMaxSubscriptionsInvalid
	}
	if dc.MinPublishingInterval <= 0 {
		return errPublishingIntervalInvalid
	}
	switch dc.VerifyRequestTimestamp {
	case "", TimestampCheckDefault, TimestampCheckWarn, TimestampCheckAbort:
	default:
		return errTimestampCheckInvalid
	}
	return nil
}

// ReadDynamicConfig loads a DynamicConfig from a YAML file at path,
// validating it before returning.
func ReadDynamicConfig(path string) (*DynamicConfig, error) {
	dcMux.Lock()
	defer dcMux.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dc := &DynamicConfig{}
	if err := yaml.Unmarshal(data, dc); err != nil {
		return nil, err
	}
	if err := dc.Sanity(); err != nil {
		return nil, err
	}
	return dc, nil
}

// Write persists dc as YAML to path, for operator tooling that edits
// config live and wants it durable across a restart too.
func (dc *DynamicConfig) Write(path string) error {
	dcMux.Lock()
	defer dcMux.Unlock()

	data, err := yaml.Marshal(dc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Default returns a DynamicConfig with conservative defaults (quota
// ceilings, minimum publishing interval) for when no config file is
// supplied.
func Default() DynamicConfig {
	return DynamicConfig{
		MaxSessions:                100,
		MaxSubscriptionsPerSession: 50,
		MinPublishingInterval:      100 * time.Millisecond,
		MaxMonitoredItemsPerSub:    1000,
		MaxMonitoredItemsPerCall:   1000,
		MaxNodesPerRead:            1000,
		MaxNodesPerWrite:           1000,
		MaxNodesPerBrowse:          1000,
		SessionTimeout:             60 * time.Second,
		MaxSecurityTokenLifetime:   10 * time.Minute,
		MaxChunkSize:               64 * 1024,
		MaxMessageSize:             16 * 1024 * 1024,
		MaxChunkCount:              4096,
		VerifyRequestTimestamp:     TimestampCheckDefault,
		ShutdownDelay:              time.Second,
	}
}

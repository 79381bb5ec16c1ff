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

package cmd

import (
	"bufio"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var metricsFilterFlag string

func init() {
	RootCmd.AddCommand(metricsCmd)
	metricsCmd.Flags().StringVarP(&metricsFilterFlag, "filter", "f", "opcua_", "Only print metric lines whose name has this prefix")
}

// fetchMetrics scrapes a running opcuad's /metrics endpoint as a raw
// Prometheus text-format pull.
func fetchMetrics(addr, filter string) error {
	url := addr
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	if !strings.HasSuffix(url, "/metrics") {
		url = strings.TrimRight(url, "/") + "/metrics"
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status from %s: %s", url, resp.Status)
	}
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if filter == "" || strings.HasPrefix(line, filter) {
			fmt.Println(line)
		}
	}
	return scanner.Err()
}

var metricsCmd = &cobra.Command{
	Use:   "metrics <host:port>",
	Short: "Scrape a running server's /metrics endpoint and print the counters this module exports",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ConfigureVerbosity()
		if err := fetchMetrics(args[0], metricsFilterFlag); err != nil {
			log.Fatal(err)
		}
	},
}

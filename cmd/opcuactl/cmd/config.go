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
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v2"

	"github.com/open62541-go/opcua-core/internal/config"
)

var configFileFlag string

func init() {
	RootCmd.AddCommand(configCmd)
	configCmd.Flags().StringVarP(&configFileFlag, "config", "c", "", "Path to a DynamicConfig YAML file; omitted prints the built-in defaults")
}

func runConfigShow(path string) error {
	dc := config.Default()
	if path != "" {
		loaded, err := config.ReadDynamicConfig(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		dc = *loaded
	}
	out, err := yaml.Marshal(dc)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective DynamicConfig (quotas, timeouts, chunk limits)",
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()
		if err := runConfigShow(configFileFlag); err != nil {
			log.Fatal(err)
		}
	},
}

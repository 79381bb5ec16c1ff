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

// opcuactl is a diagnostic CLI: a cobra command tree (opcuactl/cmd)
// covering this module's own layers - decoding a raw chunk stream,
// inspecting the effective config, and probing a running server's
// metrics endpoint.
package main

import "github.com/open62541-go/opcua-core/cmd/opcuactl/cmd"

func main() {
	cmd.Execute()
}

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

	"github.com/open62541-go/opcua-core/binary"
	"github.com/open62541-go/opcua-core/chunk"
)

func init() {
	RootCmd.AddCommand(decodeCmd)
}

func decodeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	ctx := binary.NewContext(nil)
	offset := 0
	index := 0
	for offset < len(data) {
		remaining := data[offset:]
		if len(remaining) < chunk.HeaderSize {
			return fmt.Errorf("trailing %d bytes too short for a chunk header", len(remaining))
		}
		d := binary.NewDecoder(remaining, ctx)
		h, err := chunk.DecodeHeader(d)
		if err != nil {
			return fmt.Errorf("chunk %d: %w", index, err)
		}
		if h.MessageSize < chunk.HeaderSize || int(h.MessageSize) > len(remaining) {
			return fmt.Errorf("chunk %d: message size %d out of range (have %d bytes)", index, h.MessageSize, len(remaining))
		}
		fmt.Printf("chunk %d: type=%s chunkType=%c channel=%d size=%d\n", index, h.MessageType, rune(h.ChunkType), h.ChannelID, h.MessageSize)
		offset += int(h.MessageSize)
		index++
	}
	return nil
}

var decodeCmd = &cobra.Command{
	Use:   "decode <file>",
	Short: "Decode a raw chunk stream and print each chunk's header",
	Long:  "Decode a raw chunk stream (as captured off the wire) and print the MessageType, ChunkType, ChannelID and MessageSize of each chunk it contains.",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ConfigureVerbosity()
		if err := decodeFile(args[0]); err != nil {
			log.Fatal(err)
		}
	},
}

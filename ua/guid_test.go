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

package ua

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGuid_StringParseRoundTrip(t *testing.T) {
	g := Guid{Data1: 0x12345678, Data2: 0x9ABC, Data3: 0xDEF0, Data4: [8]byte{1, 2, 3, 4, 5, 6, 7, 8}}

	got, ok := ParseGuid(g.String())
	require.True(t, ok)
	require.True(t, g.Equal(got))
}

func TestGuid_ParseGuidRejectsMalformed(t *testing.T) {
	_, ok := ParseGuid("not-a-guid")
	require.False(t, ok)

	_, ok = ParseGuid("12345678-9ABC-DEF0-0102-0304050607ZZ")
	require.False(t, ok)
}

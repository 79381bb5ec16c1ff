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

// ByteString is an OPC UA ByteString: a nil slice and a non-nil empty slice
// are wire-distinct (null vs. empty), so a ByteString
// carries that distinction the same way a Go []byte does - a nil ByteString
// round-trips to a null on the wire, a non-nil zero-length one to empty.
type ByteString []byte

// IsNull reports whether b is the wire-null ByteString.
func (b ByteString) IsNull() bool { return b == nil }

// String is an OPC UA String, with the same null-vs-empty distinction as
// ByteString. A Go string cannot represent "null" distinctly from "empty",
// so code that must preserve the distinction across a decode/encode
// round-trip uses NullableString instead.
type NullableString struct {
	Value string
	Null  bool
}

// QualifiedName pairs a namespace index with a name.
type QualifiedName struct {
	NamespaceIndex uint16
	Name           string
}

func (q QualifiedName) String() string {
	if q.NamespaceIndex == 0 {
		return q.Name
	}
	return string(rune(q.NamespaceIndex)) + ":" + q.Name
}

// LocalizedText carries an optional locale and an optional text, each
// with independent null-vs-present semantics selected by the wire's mask
// byte.
type LocalizedText struct {
	Locale      string
	Text        string
	HasLocale   bool
	HasText     bool
}

// NewLocalizedText builds a LocalizedText with both locale and text present.
func NewLocalizedText(locale, text string) LocalizedText {
	return LocalizedText{Locale: locale, Text: text, HasLocale: true, HasText: true}
}

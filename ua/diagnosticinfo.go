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

// DiagnosticInfoMask bits select which fields of a DiagnosticInfo are
// present, including whether InnerDiagnosticInfo recurses.
type DiagnosticInfoMask uint8

// Mask bits.
const (
	DiagMaskSymbolicID DiagnosticInfoMask = 1 << iota
	DiagMaskNamespaceURI
	DiagMaskLocalizedText
	DiagMaskLocale
	DiagMaskAdditionalInfo
	DiagMaskInnerStatusCode
	DiagMaskInnerDiagnosticInfo
)

// MaxDiagnosticInfoDepth bounds DiagnosticInfo recursion on decode: the
// codec caps recursion with DepthExceeded instead of trusting the host
// call stack on hostile input.
const MaxDiagnosticInfoDepth = 6

// DiagnosticInfo is a recursive diagnostic record: indices into
// the string/namespace tables plus an optional nested DiagnosticInfo.
// Depth is bounded on decode (see binary.Context.DecodeDiagnosticInfo) rather than
// here, since the struct itself has no inherent depth limit in memory.
type DiagnosticInfo struct {
	HasSymbolicID        bool
	SymbolicID           int32
	HasNamespaceURI      bool
	NamespaceURI         int32
	HasLocalizedText     bool
	LocalizedText        int32
	HasLocale            bool
	Locale               int32
	HasAdditionalInfo    bool
	AdditionalInfo       string
	HasInnerStatusCode   bool
	InnerStatusCode      StatusCode
	HasInnerDiagnosticInfo bool
	InnerDiagnosticInfo  *DiagnosticInfo
}

// Mask computes the wire presence mask for d.
func (d DiagnosticInfo) Mask() DiagnosticInfoMask {
	var m DiagnosticInfoMask
	if d.HasSymbolicID {
		m |= DiagMaskSymbolicID
	}
	if d.HasNamespaceURI {
		m |= DiagMaskNamespaceURI
	}
	if d.HasLocalizedText {
		m |= DiagMaskLocalizedText
	}
	if d.HasLocale {
		m |= DiagMaskLocale
	}
	if d.HasAdditionalInfo {
		m |= DiagMaskAdditionalInfo
	}
	if d.HasInnerStatusCode {
		m |= DiagMaskInnerStatusCode
	}
	if d.HasInnerDiagnosticInfo {
		m |= DiagMaskInnerDiagnosticInfo
	}
	return m
}

// Depth returns the nesting depth of d (1 for a leaf, more for each nested
// InnerDiagnosticInfo).
func (d *DiagnosticInfo) Depth() int {
	depth := 1
	for cur := d.InnerDiagnosticInfo; cur != nil; cur = cur.InnerDiagnosticInfo {
		depth++
	}
	return depth
}

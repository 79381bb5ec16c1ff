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

package binary

import (
	"github.com/open62541-go/opcua-core/internal/uaerrors"
	"github.com/open62541-go/opcua-core/ua"
)

// EncodeDiagnosticInfo writes v's mask byte and present fields, recursing
// into InnerDiagnosticInfo when set. depth is the nesting depth of v itself
// (0 at the top-level call) and is checked against
// ua.MaxDiagnosticInfoDepth before any recursive encode, matching the
// decode-side cap so a value this package decoded always re-encodes.
func (c *Context) EncodeDiagnosticInfo(e *Encoder, v ua.DiagnosticInfo, depth int) error {
	if depth > ua.MaxDiagnosticInfoDepth {
		return uaerrors.Wrap(uaerrors.DepthExceeded, "diagnostic info nesting exceeds max depth %d", ua.MaxDiagnosticInfoDepth)
	}
	mask := v.Mask()
	if err := e.Byte(byte(mask)); err != nil {
		return err
	}
	if v.HasSymbolicID {
		if err := e.Int32(v.SymbolicID); err != nil {
			return err
		}
	}
	if v.HasNamespaceURI {
		if err := e.Int32(v.NamespaceURI); err != nil {
			return err
		}
	}
	if v.HasLocalizedText {
		if err := e.Int32(v.LocalizedText); err != nil {
			return err
		}
	}
	if v.HasLocale {
		if err := e.Int32(v.Locale); err != nil {
			return err
		}
	}
	if v.HasAdditionalInfo {
		if err := e.String(v.AdditionalInfo, false); err != nil {
			return err
		}
	}
	if v.HasInnerStatusCode {
		if err := e.StatusCode(v.InnerStatusCode); err != nil {
			return err
		}
	}
	if v.HasInnerDiagnosticInfo {
		if v.InnerDiagnosticInfo == nil {
			return uaerrors.Wrap(uaerrors.TypeMismatch, "diagnostic info: inner diagnostic info marked present but nil")
		}
		if err := c.EncodeDiagnosticInfo(e, *v.InnerDiagnosticInfo, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// DecodeDiagnosticInfo reads a DiagnosticInfo, recursing into
// InnerDiagnosticInfo up to ua.MaxDiagnosticInfoDepth levels. depth is the
// nesting depth being decoded (0 at the top-level call); exceeding the cap
// returns DepthExceeded rather than recursing further, guarding against a
// hostile or malformed chain of inner diagnostics.
func (c *Context) DecodeDiagnosticInfo(d *Decoder, depth int) (ua.DiagnosticInfo, error) {
	if depth > ua.MaxDiagnosticInfoDepth {
		return ua.DiagnosticInfo{}, uaerrors.Wrap(uaerrors.DepthExceeded, "diagnostic info nesting exceeds max depth %d", ua.MaxDiagnosticInfoDepth)
	}
	maskByte, err := d.Byte()
	if err != nil {
		return ua.DiagnosticInfo{}, err
	}
	mask := ua.DiagnosticInfoMask(maskByte)
	var v ua.DiagnosticInfo

	if mask&ua.DiagMaskSymbolicID != 0 {
		v.HasSymbolicID = true
		v.SymbolicID, err = d.Int32()
		if err != nil {
			return ua.DiagnosticInfo{}, err
		}
	}
	if mask&ua.DiagMaskNamespaceURI != 0 {
		v.HasNamespaceURI = true
		v.NamespaceURI, err = d.Int32()
		if err != nil {
			return ua.DiagnosticInfo{}, err
		}
	}
	if mask&ua.DiagMaskLocalizedText != 0 {
		v.HasLocalizedText = true
		v.LocalizedText, err = d.Int32()
		if err != nil {
			return ua.DiagnosticInfo{}, err
		}
	}
	if mask&ua.DiagMaskLocale != 0 {
		v.HasLocale = true
		v.Locale, err = d.Int32()
		if err != nil {
			return ua.DiagnosticInfo{}, err
		}
	}
	if mask&ua.DiagMaskAdditionalInfo != 0 {
		v.HasAdditionalInfo = true
		v.AdditionalInfo, _, err = d.String()
		if err != nil {
			return ua.DiagnosticInfo{}, err
		}
	}
	if mask&ua.DiagMaskInnerStatusCode != 0 {
		v.HasInnerStatusCode = true
		v.InnerStatusCode, err = d.StatusCode()
		if err != nil {
			return ua.DiagnosticInfo{}, err
		}
	}
	if mask&ua.DiagMaskInnerDiagnosticInfo != 0 {
		v.HasInnerDiagnosticInfo = true
		inner, err := c.DecodeDiagnosticInfo(d, depth+1)
		if err != nil {
			return ua.DiagnosticInfo{}, err
		}
		v.InnerDiagnosticInfo = &inner
	}
	return v, nil
}

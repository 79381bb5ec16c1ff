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

// Package uaerrors defines the language-independent error kinds shared by
// every layer of the stack, plus helpers for wrapping them with context.
package uaerrors

import (
	"github.com/pkg/errors"
)

// Kind is a sentinel error identifying a class of failure. Layers wrap a
// Kind with errors.Wrap to add context without losing the ability to test
// for the underlying kind with errors.Is.
type Kind string

func (k Kind) Error() string { return string(k) }

// Transport errors.
const (
	ConnectionClosed   Kind = "connection closed"
	ConnectionRejected Kind = "connection rejected"
	Timeout            Kind = "timeout"
)

// Framing errors.
const (
	TCPEndpointURLInvalid Kind = "tcp endpoint url invalid"
	TCPMessageTypeInvalid Kind = "tcp message type invalid"
	TCPMessageTooLarge    Kind = "tcp message too large"
	ResponseTooLarge      Kind = "response too large"
	RequestTooLarge       Kind = "request too large"
	ChunkCountExceeded    Kind = "chunk count exceeded"
	MalformedChunk        Kind = "malformed chunk"
	UnknownChannel        Kind = "unknown channel"
)

// Security errors.
const (
	SecurityChecksFailed  Kind = "security checks failed"
	SecurityPolicyRejected Kind = "security policy rejected"
	CertificateUntrusted  Kind = "certificate untrusted"
	CertificateTimeInvalid Kind = "certificate time invalid"
	UserAccessDenied      Kind = "user access denied"
)

// Channel/Session errors.
const (
	SecureChannelIDInvalid  Kind = "secure channel id invalid"
	SequenceNumberInvalid   Kind = "sequence number invalid"
	SecureChannelTokenUnknown Kind = "secure channel token unknown"
	InvalidChannelState     Kind = "invalid channel state"
	SessionIDInvalid        Kind = "session id invalid"
	SessionClosed           Kind = "session closed"
	SessionNotActivated     Kind = "session not activated"
)

// Service errors.
const (
	NodeIDUnknown       Kind = "node id unknown"
	InvalidTimestamp    Kind = "invalid request timestamp"
	AttributeIDInvalid  Kind = "attribute id invalid"
	WriteNotSupported   Kind = "write not supported"
	NotReadable         Kind = "not readable"
	TypeMismatch        Kind = "type mismatch"
	OutOfRange          Kind = "out of range"
	TooManyOperations   Kind = "too many operations"
)

// Subscription errors.
const (
	SubscriptionIDInvalid Kind = "subscription id invalid"
	MessageNotAvailable   Kind = "message not available"
	NoSubscription        Kind = "no subscription"
	TooManyPublishRequests Kind = "too many publish requests"
)

// Resource errors.
const (
	OutOfMemory         Kind = "out of memory"
	ResourceUnavailable Kind = "resource unavailable"
)

// Decoder/codec errors (BinaryCodec).
const (
	TooShort              Kind = "too short"
	Overflow              Kind = "overflow"
	UnknownExtensionType  Kind = "unknown extension type"
	DepthExceeded         Kind = "depth exceeded"
	LengthExceedsContext  Kind = "length exceeds context"
	BufferTooSmall        Kind = "buffer too small"
)

// Wrap annotates a Kind with context, the way the rest of the stack wraps
// sentinel errors with github.com/pkg/errors.
func Wrap(kind Kind, format string, args ...interface{}) error {
	return errors.Wrapf(kind, format, args...)
}

// Is reports whether err (or any error it wraps) is kind.
func Is(err error, kind Kind) bool {
	return errors.Is(err, kind)
}

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

import "fmt"

// StatusCode is the 32-bit wire status code. The top two bits classify it
// as Good (00), Uncertain (01) or Bad (10/11); the severity is carried in
// the high byte and the remaining bits identify the specific code.
type StatusCode uint32

// Severity bits, Table 166.
const (
	SeverityGood      StatusCode = 0x00000000
	SeverityUncertain StatusCode = 0x40000000
	SeverityBad       StatusCode = 0x80000000
	severityMask      StatusCode = 0xC0000000
)

// Good and the per-layer Bad status codes named by the protocol. Values
// are placeholder-stable within this codebase (not the full OPC UA
// registry); every error kind in internal/uaerrors has exactly one
// corresponding StatusCode here.
const (
	Good StatusCode = SeverityGood

	BadConnectionClosed   StatusCode = SeverityBad | 0x0001
	BadConnectionRejected StatusCode = SeverityBad | 0x0002
	BadTimeout            StatusCode = SeverityBad | 0x0003

	BadTCPEndpointURLInvalid StatusCode = SeverityBad | 0x0010
	BadTCPMessageTypeInvalid StatusCode = SeverityBad | 0x0011
	BadTCPMessageTooLarge    StatusCode = SeverityBad | 0x0012
	BadResponseTooLarge      StatusCode = SeverityBad | 0x0013
	BadRequestTooLarge       StatusCode = SeverityBad | 0x0014
	BadInvalidTimestamp      StatusCode = SeverityBad | 0x0015

	BadSecurityChecksFailed   StatusCode = SeverityBad | 0x0020
	BadSecurityPolicyRejected StatusCode = SeverityBad | 0x0021
	BadCertificateUntrusted   StatusCode = SeverityBad | 0x0022
	BadCertificateTimeInvalid StatusCode = SeverityBad | 0x0023
	BadUserAccessDenied       StatusCode = SeverityBad | 0x0024
	BadSequenceNumberInvalid  StatusCode = SeverityBad | 0x0025
	BadSecureChannelTokenUnknown StatusCode = SeverityBad | 0x0026
	BadSecureChannelIDInvalid    StatusCode = SeverityBad | 0x0027

	BadSessionIDInvalid    StatusCode = SeverityBad | 0x0030
	BadSessionClosed       StatusCode = SeverityBad | 0x0031
	BadSessionNotActivated StatusCode = SeverityBad | 0x0032

	BadNodeIDUnknown      StatusCode = SeverityBad | 0x0040
	BadAttributeIDInvalid StatusCode = SeverityBad | 0x0041
	BadWriteNotSupported  StatusCode = SeverityBad | 0x0042
	BadNotReadable        StatusCode = SeverityBad | 0x0043
	BadTypeMismatch       StatusCode = SeverityBad | 0x0044
	BadOutOfRange         StatusCode = SeverityBad | 0x0045
	BadTooManyOperations  StatusCode = SeverityBad | 0x0046

	BadSubscriptionIDInvalid  StatusCode = SeverityBad | 0x0050
	BadMessageNotAvailable    StatusCode = SeverityBad | 0x0051
	BadNoSubscription         StatusCode = SeverityBad | 0x0052
	BadTooManyPublishRequests StatusCode = SeverityBad | 0x0053

	BadOutOfMemory         StatusCode = SeverityBad | 0x0060
	BadResourceUnavailable StatusCode = SeverityBad | 0x0061

	BadDecodingError StatusCode = SeverityBad | 0x0070
	BadEncodingError StatusCode = SeverityBad | 0x0071
)

// IsGood reports whether the status carries no error (severity bits 00).
func (s StatusCode) IsGood() bool { return s&severityMask == SeverityGood }

// IsBad reports whether the status carries the Bad severity.
func (s StatusCode) IsBad() bool { return s&severityMask == SeverityBad }

// IsUncertain reports whether the status carries the Uncertain severity.
func (s StatusCode) IsUncertain() bool { return s&severityMask == SeverityUncertain }

func (s StatusCode) String() string {
	switch s {
	case Good:
		return "Good"
	case BadConnectionClosed:
		return "BadConnectionClosed"
	case BadConnectionRejected:
		return "BadConnectionRejected"
	case BadTimeout:
		return "BadTimeout"
	case BadTCPEndpointURLInvalid:
		return "BadTcpEndpointUrlInvalid"
	case BadTCPMessageTypeInvalid:
		return "BadTcpMessageTypeInvalid"
	case BadTCPMessageTooLarge:
		return "BadTcpMessageTooLarge"
	case BadResponseTooLarge:
		return "BadResponseTooLarge"
	case BadRequestTooLarge:
		return "BadRequestTooLarge"
	case BadInvalidTimestamp:
		return "BadInvalidTimestamp"
	case BadSecurityChecksFailed:
		return "BadSecurityChecksFailed"
	case BadSecurityPolicyRejected:
		return "BadSecurityPolicyRejected"
	case BadCertificateUntrusted:
		return "BadCertificateUntrusted"
	case BadCertificateTimeInvalid:
		return "BadCertificateTimeInvalid"
	case BadUserAccessDenied:
		return "BadUserAccessDenied"
	case BadSequenceNumberInvalid:
		return "BadSequenceNumberInvalid"
	case BadSecureChannelTokenUnknown:
		return "BadSecureChannelTokenUnknown"
	case BadSecureChannelIDInvalid:
		return "BadSecureChannelIdInvalid"
	case BadSessionIDInvalid:
		return "BadSessionIdInvalid"
	case BadSessionClosed:
		return "BadSessionClosed"
	case BadSessionNotActivated:
		return "BadSessionNotActivated"
	case BadNodeIDUnknown:
		return "BadNodeIdUnknown"
	case BadAttributeIDInvalid:
		return "BadAttributeIdInvalid"
	case BadWriteNotSupported:
		return "BadWriteNotSupported"
	case BadNotReadable:
		return "BadNotReadable"
	case BadTypeMismatch:
		return "BadTypeMismatch"
	case BadOutOfRange:
		return "BadOutOfRange"
	case BadTooManyOperations:
		return "BadTooManyOperations"
	case BadSubscriptionIDInvalid:
		return "BadSubscriptionIdInvalid"
	case BadMessageNotAvailable:
		return "BadMessageNotAvailable"
	case BadNoSubscription:
		return "BadNoSubscription"
	case BadTooManyPublishRequests:
		return "BadTooManyPublishRequests"
	case BadOutOfMemory:
		return "BadOutOfMemory"
	case BadResourceUnavailable:
		return "BadResourceUnavailable"
	case BadDecodingError:
		return "BadDecodingError"
	case BadEncodingError:
		return "BadEncodingError"
	default:
		return fmt.Sprintf("StatusCode(0x%08X)", uint32(s))
	}
}

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

package chunk

import (
	"github.com/open62541-go/opcua-core/binary"
)

// AsymmetricSecurityHeader is carried by OPN chunks: the
// security policy to use for the rest of the channel's life, the sender's
// certificate, and the thumbprint of the certificate the sender expects the
// receiver to decrypt with.
type AsymmetricSecurityHeader struct {
	SecurityPolicyURI         string
	SenderCertificate         []byte
	ReceiverCertificateThumbprint []byte
}

// Encode writes h to e.
func (h AsymmetricSecurityHeader) Encode(e *binary.Encoder) error {
	if err := e.String(h.SecurityPolicyURI, false); err != nil {
		return err
	}
	if err := e.ByteString(h.SenderCertificate); err != nil {
		return err
	}
	return e.ByteString(h.ReceiverCertificateThumbprint)
}

// DecodeAsymmetricSecurityHeader reads an AsymmetricSecurityHeader from d.
func DecodeAsymmetricSecurityHeader(d *binary.Decoder) (AsymmetricSecurityHeader, error) {
	var h AsymmetricSecurityHeader
	var err error
	if h.SecurityPolicyURI, _, err = d.String(); err != nil {
		return AsymmetricSecurityHeader{}, err
	}
	if h.SenderCertificate, err = d.ByteString(); err != nil {
		return AsymmetricSecurityHeader{}, err
	}
	h.ReceiverCertificateThumbprint, err = d.ByteString()
	return h, err
}

// SymmetricSecurityHeader is carried by MSG/CLO chunks: just the token id
// identifying which of the channel's (at most two, during renewal) active
// key sets secures this chunk.
type SymmetricSecurityHeader struct {
	TokenID uint32
}

// Encode writes h to e.
func (h SymmetricSecurityHeader) Encode(e *binary.Encoder) error {
	return e.Uint32(h.TokenID)
}

// DecodeSymmetricSecurityHeader reads a SymmetricSecurityHeader from d.
func DecodeSymmetricSecurityHeader(d *binary.Decoder) (SymmetricSecurityHeader, error) {
	tokenID, err := d.Uint32()
	return SymmetricSecurityHeader{TokenID: tokenID}, err
}

// SequenceHeader is carried inside the encrypted region of a MSG/OPN/CLO
// chunk: securechannel decrypts the chunk body and
// decodes this before the rest of the payload.
type SequenceHeader struct {
	SequenceNumber uint32
	RequestID      uint32
}

// Encode writes h to e.
func (h SequenceHeader) Encode(e *binary.Encoder) error {
	if err := e.Uint32(h.SequenceNumber); err != nil {
		return err
	}
	return e.Uint32(h.RequestID)
}

// DecodeSequenceHeader reads a SequenceHeader from d.
func DecodeSequenceHeader(d *binary.Decoder) (SequenceHeader, error) {
	var h SequenceHeader
	var err error
	if h.SequenceNumber, err = d.Uint32(); err != nil {
		return SequenceHeader{}, err
	}
	h.RequestID, err = d.Uint32()
	return h, err
}

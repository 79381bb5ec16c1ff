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

package transport

import (
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/pkg/errors"
)

// EtherTypePubSub is the Ethertype OPC UA PubSub uses for raw Ethernet
// NetworkMessages.
const EtherTypePubSub = layers.EthernetType(0xb62c)

// SnapshotLen and RecvTimeout are the pcap.OpenLive capture parameters.
const (
	SnapshotLen = 2048
	RecvTimeout = 100 * time.Millisecond
)

// Ethernet sends and receives PubSub NetworkMessages framed directly at
// Ethernet layer 2, with an optional 802.1Q VLAN tag, for deployments with
// no IP stack in the publish path.
type Ethernet struct {
	handle  *pcap.Handle
	srcMAC  []byte
	dstMAC  []byte
	vlanID  uint16
	vlanPCP uint8
	useVLAN bool
}

// NewEthernet opens device for live capture/injection and returns a
// transport that frames NetworkMessages as src->dst Ethernet II frames
// under EtherTypePubSub.
func NewEthernet(device string, srcMAC, dstMAC []byte) (*Ethernet, error) {
	handle, err := pcap.OpenLive(device, SnapshotLen, true, RecvTimeout)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s for pubsub ethernet transport", device)
	}
	return &Ethernet{handle: handle, srcMAC: srcMAC, dstMAC: dstMAC}, nil
}

// WithVLAN tags every outgoing frame with an 802.1Q header carrying id and
// priority code point pcp.
func (e *Ethernet) WithVLAN(id uint16, pcp uint8) {
	e.useVLAN = true
	e.vlanID = id
	e.vlanPCP = pcp
}

// Publish frames buf as a NetworkMessage payload and writes it to the
// wire (implements pubsub.Publisher).
func (e *Ethernet) Publish(buf []byte) error {
	eth := &layers.Ethernet{
		SrcMAC:       e.srcMAC,
		DstMAC:       e.dstMAC,
		EthernetType: EtherTypePubSub,
	}
	serializeBuf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}

	var layerStack []gopacket.SerializableLayer
	if e.useVLAN {
		eth.EthernetType = layers.EthernetTypeDot1Q
		vlan := &layers.Dot1Q{
			VLANIdentifier: e.vlanID,
			Priority:       e.vlanPCP,
			Type:           EtherTypePubSub,
		}
		layerStack = append(layerStack, eth, vlan)
	} else {
		layerStack = append(layerStack, eth)
	}
	layerStack = append(layerStack, gopacket.Payload(buf))

	if err := gopacket.SerializeLayers(serializeBuf, opts, layerStack...); err != nil {
		return errors.Wrap(err, "serialize pubsub ethernet frame")
	}
	return e.handle.WritePacketData(serializeBuf.Bytes())
}

// Receive blocks for the next PubSub-tagged frame and returns its payload
// (the bytes after the Ethernet/VLAN headers), discarding anything else on
// the wire.
func (e *Ethernet) Receive() ([]byte, error) {
	for {
		data, _, err := e.handle.ReadPacketData()
		if err != nil {
			return nil, err
		}
		pkt := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.NoCopy)
		ethLayer := pkt.Layer(layers.LayerTypeEthernet)
		if ethLayer == nil {
			continue
		}
		eth, _ := ethLayer.(*layers.Ethernet)
		if eth.EthernetType == layers.EthernetTypeDot1Q {
			if vlanLayer := pkt.Layer(layers.LayerTypeDot1Q); vlanLayer != nil {
				vlan, _ := vlanLayer.(*layers.Dot1Q)
				if vlan.Type != EtherTypePubSub {
					continue
				}
				return vlan.LayerPayload(), nil
			}
			continue
		}
		if eth.EthernetType != EtherTypePubSub {
			continue
		}
		return eth.LayerPayload(), nil
	}
}

// Close releases the capture handle.
func (e *Ethernet) Close() {
	e.handle.Close()
}

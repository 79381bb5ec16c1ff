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

// Package transport implements PubSub's two wire transports: UDP multicast, and raw Ethernet/VLAN framing for deployments
// without an IP stack in the path. Both satisfy pubsub.Publisher on the
// send side and feed a pubsub.ReaderGroup on the receive side.
package transport

import (
	"net"

	"github.com/pkg/errors"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// UDPMulticast sends and receives PubSub NetworkMessages over a UDP
// multicast group, the default OPC UA PubSub transport, with the v4/v6
// packet-conn split done the way golang.org/x/net/ipv4 and
// golang.org/x/net/ipv6 both require.
type UDPMulticast struct {
	conn   *net.UDPConn
	pconn4 *ipv4.PacketConn
	pconn6 *ipv6.PacketConn
	addr   *net.UDPAddr
	iface  *net.Interface
	isV6   bool
}

// NewUDPMulticast joins group (e.g. "224.0.0.22:4840" or an IPv6
// equivalent) on iface and returns a transport ready to Publish and
// Receive. port 4840 is OPC UA's registered UDP port.
func NewUDPMulticast(group string, iface *net.Interface) (*UDPMulticast, error) {
	addr, err := net.ResolveUDPAddr("udp", group)
	if err != nil {
		return nil, errors.Wrap(err, "resolve multicast group")
	}
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: addr.Port})
	if err != nil {
		return nil, errors.Wrap(err, "listen udp")
	}

	m := &UDPMulticast{conn: conn, addr: addr, iface: iface, isV6: addr.IP.To4() == nil}
	if m.isV6 {
		m.pconn6 = ipv6.NewPacketConn(conn)
		if err := m.pconn6.JoinGroup(iface, &net.UDPAddr{IP: addr.IP}); err != nil {
			conn.Close()
			return nil, errors.Wrap(err, "join ipv6 multicast group")
		}
	} else {
		m.pconn4 = ipv4.NewPacketConn(conn)
		if err := m.pconn4.JoinGroup(iface, &net.UDPAddr{IP: addr.IP}); err != nil {
			conn.Close()
			return nil, errors.Wrap(err, "join ipv4 multicast group")
		}
	}
	return m, nil
}

// Publish sends buf to the joined multicast group (implements
// pubsub.Publisher).
func (m *UDPMulticast) Publish(buf []byte) error {
	_, err := m.conn.WriteToUDP(buf, m.addr)
	return err
}

// Receive blocks for the next datagram and returns its payload. Datagrams
// larger than len(buf) are truncated by the kernel, matching ordinary UDP
// semantics; callers should size buf to the deployment's configured
// MaxNetworkMessageSize.
func (m *UDPMulticast) Receive(buf []byte) (int, error) {
	n, _, err := m.conn.ReadFromUDP(buf)
	return n, err
}

// Close leaves the multicast group and releases the socket.
func (m *UDPMulticast) Close() error {
	if m.isV6 && m.pconn6 != nil {
		_ = m.pconn6.LeaveGroup(m.iface, &net.UDPAddr{IP: m.addr.IP})
	} else if m.pconn4 != nil {
		_ = m.pconn4.LeaveGroup(m.iface, &net.UDPAddr{IP: m.addr.IP})
	}
	return m.conn.Close()
}

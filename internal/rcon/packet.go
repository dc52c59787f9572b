// Package rcon speaks the Source RCON protocol used by Minecraft
// servers and maintains a self-healing command session over it.
package rcon

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Packet types. Request and auth-response share the value 2; they are
// distinguished by direction.
const (
	typeResponse int32 = 0
	typeCommand  int32 = 2
	typeAuthResp int32 = 2
	typeAuth     int32 = 3
)

// Packets longer than this are rejected rather than allocated; the
// protocol caps server responses at 4096 bytes of body.
const maxPacketSize = 8192

// writePacket frames and sends one packet:
//
//	int32 length (remainder of the packet)
//	int32 request id
//	int32 type
//	body bytes
//	two zero bytes
//
// All integers are little-endian.
func writePacket(w io.Writer, id, typ int32, body string) error {
	length := int32(4 + 4 + len(body) + 2)
	buf := make([]byte, 4+length)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(length))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(id))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(typ))
	copy(buf[12:], body)
	// trailing pair of NULs is already zeroed by make
	_, err := w.Write(buf)
	return err
}

func readPacket(r io.Reader) (id, typ int32, body string, err error) {
	var header [4]byte
	if _, err = io.ReadFull(r, header[:]); err != nil {
		return 0, 0, "", err
	}
	length := int32(binary.LittleEndian.Uint32(header[:]))
	if length < 10 || length > maxPacketSize {
		return 0, 0, "", fmt.Errorf("invalid packet length %d", length)
	}

	payload := make([]byte, length)
	if _, err = io.ReadFull(r, payload); err != nil {
		return 0, 0, "", err
	}

	id = int32(binary.LittleEndian.Uint32(payload[0:4]))
	typ = int32(binary.LittleEndian.Uint32(payload[4:8]))
	body = string(payload[8 : length-2])
	return id, typ, body, nil
}

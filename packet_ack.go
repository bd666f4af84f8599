package mqtt311

import (
	"errors"
	"io"
)

// ErrInvalidPacketID is returned when an identified packet carries id 0.
var ErrInvalidPacketID = errors.New("invalid packet identifier")

// ackPacket is the shared shape of the identifier-only acknowledgment packets
// (PUBACK, PUBREC, PUBREL, PUBCOMP, UNSUBACK). Their variable header is a
// single two byte packet identifier.
// MQTT 3.1.1 spec: Sections 3.4-3.7, 3.11
type ackPacket struct {
	PacketID uint16
}

// GetPacketID returns the packet identifier.
func (p *ackPacket) GetPacketID() uint16 {
	return p.PacketID
}

// SetPacketID sets the packet identifier.
func (p *ackPacket) SetPacketID(id uint16) {
	p.PacketID = id
}

// Validate validates the packet contents.
func (p *ackPacket) Validate() error {
	if p.PacketID == 0 {
		return ErrInvalidPacketID
	}
	return nil
}

// encodeAck encodes an acknowledgment packet with the given type and flags.
func (p *ackPacket) encodeAck(w io.Writer, packetType PacketType, flags byte) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	header := FixedHeader{
		PacketType:      packetType,
		Flags:           flags,
		RemainingLength: 2,
	}

	total, err := header.Encode(w)
	if err != nil {
		return total, err
	}

	n, err := encodeUint16(w, p.PacketID)
	return total + n, err
}

// decodeAck decodes an acknowledgment packet of the given type.
func (p *ackPacket) decodeAck(r io.Reader, header FixedHeader, packetType PacketType) (int, error) {
	if header.PacketType != packetType {
		return 0, ErrInvalidPacketType
	}

	id, n, err := decodeUint16(r)
	if err != nil {
		return n, err
	}
	if id == 0 {
		return n, ErrInvalidPacketID
	}

	p.PacketID = id
	return n, nil
}

// PubackPacket represents an MQTT PUBACK packet, the QoS 1 publish
// acknowledgment.
type PubackPacket struct {
	ackPacket
}

// Type returns the packet type.
func (p *PubackPacket) Type() PacketType { return PacketPUBACK }

// Encode writes the packet to the writer.
func (p *PubackPacket) Encode(w io.Writer) (int, error) {
	return p.encodeAck(w, PacketPUBACK, 0x00)
}

// Decode reads the packet from the reader.
func (p *PubackPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	return p.decodeAck(r, header, PacketPUBACK)
}

// PubrecPacket represents an MQTT PUBREC packet, the first acknowledgment of
// a QoS 2 publish.
type PubrecPacket struct {
	ackPacket
}

// Type returns the packet type.
func (p *PubrecPacket) Type() PacketType { return PacketPUBREC }

// Encode writes the packet to the writer.
func (p *PubrecPacket) Encode(w io.Writer) (int, error) {
	return p.encodeAck(w, PacketPUBREC, 0x00)
}

// Decode reads the packet from the reader.
func (p *PubrecPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	return p.decodeAck(r, header, PacketPUBREC)
}

// PubrelPacket represents an MQTT PUBREL packet, the release step of the
// QoS 2 handshake. Its fixed header flags must be 0x02.
type PubrelPacket struct {
	ackPacket
}

// Type returns the packet type.
func (p *PubrelPacket) Type() PacketType { return PacketPUBREL }

// Encode writes the packet to the writer.
func (p *PubrelPacket) Encode(w io.Writer) (int, error) {
	return p.encodeAck(w, PacketPUBREL, 0x02)
}

// Decode reads the packet from the reader.
func (p *PubrelPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	if header.Flags != 0x02 {
		return 0, ErrInvalidPacketFlags
	}
	return p.decodeAck(r, header, PacketPUBREL)
}

// PubcompPacket represents an MQTT PUBCOMP packet, the final acknowledgment
// of a QoS 2 publish.
type PubcompPacket struct {
	ackPacket
}

// Type returns the packet type.
func (p *PubcompPacket) Type() PacketType { return PacketPUBCOMP }

// Encode writes the packet to the writer.
func (p *PubcompPacket) Encode(w io.Writer) (int, error) {
	return p.encodeAck(w, PacketPUBCOMP, 0x00)
}

// Decode reads the packet from the reader.
func (p *PubcompPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	return p.decodeAck(r, header, PacketPUBCOMP)
}

// UnsubackPacket represents an MQTT UNSUBACK packet.
// MQTT 3.1.1 spec: Section 3.11
type UnsubackPacket struct {
	ackPacket
}

// Type returns the packet type.
func (p *UnsubackPacket) Type() PacketType { return PacketUNSUBACK }

// Encode writes the packet to the writer.
func (p *UnsubackPacket) Encode(w io.Writer) (int, error) {
	return p.encodeAck(w, PacketUNSUBACK, 0x00)
}

// Decode reads the packet from the reader.
func (p *UnsubackPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	return p.decodeAck(r, header, PacketUNSUBACK)
}

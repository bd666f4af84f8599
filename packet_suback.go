package mqtt311

import (
	"bytes"
	"io"
)

// SubackPacket represents an MQTT SUBACK packet.
// MQTT 3.1.1 spec: Section 3.9
type SubackPacket struct {
	PacketID uint16

	// ReturnCodes holds one granted QoS (0, 1, 2) or SubackFailure (0x80)
	// per requested subscription, in request order.
	ReturnCodes []byte
}

// Type returns the packet type.
func (p *SubackPacket) Type() PacketType { return PacketSUBACK }

// GetPacketID returns the packet identifier.
func (p *SubackPacket) GetPacketID() uint16 { return p.PacketID }

// SetPacketID sets the packet identifier.
func (p *SubackPacket) SetPacketID(id uint16) { p.PacketID = id }

// Encode writes the packet to the writer.
func (p *SubackPacket) Encode(w io.Writer) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	var buf bytes.Buffer

	if _, err := encodeUint16(&buf, p.PacketID); err != nil {
		return 0, err
	}
	buf.Write(p.ReturnCodes)

	header := FixedHeader{
		PacketType:      PacketSUBACK,
		Flags:           0x00,
		RemainingLength: uint32(buf.Len()),
	}

	total, err := header.Encode(w)
	if err != nil {
		return total, err
	}

	n, err := w.Write(buf.Bytes())
	return total + n, err
}

// Decode reads the packet from the reader.
func (p *SubackPacket) Decode(r io.Reader, header FixedHeader) (int, error) {
	if header.PacketType != PacketSUBACK {
		return 0, ErrInvalidPacketType
	}

	var totalRead int

	var n int
	var err error
	p.PacketID, n, err = decodeUint16(r)
	totalRead += n
	if err != nil {
		return totalRead, err
	}
	if p.PacketID == 0 {
		return totalRead, ErrInvalidPacketID
	}

	codeCount := int(header.RemainingLength) - totalRead
	if codeCount <= 0 {
		return totalRead, ErrProtocolViolation
	}

	p.ReturnCodes = make([]byte, codeCount)
	n, err = io.ReadFull(r, p.ReturnCodes)
	totalRead += n
	if err != nil {
		return totalRead, err
	}

	for _, code := range p.ReturnCodes {
		if code > 2 && code != SubackFailure {
			return totalRead, ErrProtocolViolation
		}
	}

	return totalRead, nil
}

// Validate validates the packet contents.
func (p *SubackPacket) Validate() error {
	if p.PacketID == 0 {
		return ErrInvalidPacketID
	}
	if len(p.ReturnCodes) == 0 {
		return ErrProtocolViolation
	}
	for _, code := range p.ReturnCodes {
		if code > 2 && code != SubackFailure {
			return ErrProtocolViolation
		}
	}
	return nil
}

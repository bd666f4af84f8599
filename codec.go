package mqtt311

import (
	"bytes"
	"errors"
	"io"
)

var (
	ErrPacketTooLarge    = errors.New("mqtt311: packet exceeds maximum size")
	ErrUnknownPacketType = errors.New("mqtt311: unknown packet type")
)

// Packet size limits for ReadPacket and WritePacket.
const (
	// MaxPacketSizeProtocol is the largest packet the wire format can
	// express: the maximum remaining length plus the fixed header.
	MaxPacketSizeProtocol uint32 = 268435455 + 5

	// MaxPacketSizeDefault is the default limit (4MB), matching common
	// broker defaults.
	MaxPacketSizeDefault uint32 = 4 * 1024 * 1024

	// MaxPacketSizeMinimal suits constrained devices (16KB).
	MaxPacketSizeMinimal uint32 = 16 * 1024
)

// ReadPacket reads a complete MQTT packet from the reader.
// If maxSize is greater than 0, packets larger than maxSize will return
// ErrPacketTooLarge.
func ReadPacket(r io.Reader, maxSize uint32) (Packet, int, error) {
	var header FixedHeader
	n, err := header.Decode(r)
	if err != nil {
		return nil, n, err
	}

	if err := header.ValidateFlags(); err != nil {
		return nil, n, err
	}

	if maxSize > 0 && header.RemainingLength > maxSize {
		return nil, n, ErrPacketTooLarge
	}

	// Read the full remainder before decoding so a short body is detected
	// as a framing error rather than a blocked read.
	remaining := make([]byte, header.RemainingLength)
	if header.RemainingLength > 0 {
		rn, err := io.ReadFull(r, remaining)
		n += rn
		if err != nil {
			return nil, n, err
		}
	}

	var packet Packet
	switch header.PacketType {
	case PacketCONNECT:
		packet = &ConnectPacket{}
	case PacketCONNACK:
		packet = &ConnackPacket{}
	case PacketPUBLISH:
		packet = &PublishPacket{}
	case PacketPUBACK:
		packet = &PubackPacket{}
	case PacketPUBREC:
		packet = &PubrecPacket{}
	case PacketPUBREL:
		packet = &PubrelPacket{}
	case PacketPUBCOMP:
		packet = &PubcompPacket{}
	case PacketSUBSCRIBE:
		packet = &SubscribePacket{}
	case PacketSUBACK:
		packet = &SubackPacket{}
	case PacketUNSUBSCRIBE:
		packet = &UnsubscribePacket{}
	case PacketUNSUBACK:
		packet = &UnsubackPacket{}
	case PacketPINGREQ:
		packet = &PingreqPacket{}
	case PacketPINGRESP:
		packet = &PingrespPacket{}
	case PacketDISCONNECT:
		packet = &DisconnectPacket{}
	default:
		return nil, n, ErrUnknownPacketType
	}

	if _, err := packet.Decode(bytes.NewReader(remaining), header); err != nil {
		return nil, n, err
	}

	return packet, n, nil
}

// WritePacket encodes and writes a packet to the writer.
// If maxSize is greater than 0, packets whose encoding exceeds maxSize will
// return ErrPacketTooLarge without writing anything.
func WritePacket(w io.Writer, pkt Packet, maxSize uint32) (int, error) {
	var buf bytes.Buffer
	n, err := pkt.Encode(&buf)
	if err != nil {
		return 0, err
	}

	if maxSize > 0 && uint32(n) > maxSize {
		return 0, ErrPacketTooLarge
	}

	return w.Write(buf.Bytes())
}

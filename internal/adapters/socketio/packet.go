package socketio

import (
	"bytes"
	"errors"
	"strconv"

	json "github.com/goccy/go-json"
)

// Engine.IO packet types.
const (
	engineOpen    byte = '0'
	engineClose   byte = '1'
	enginePing    byte = '2'
	enginePong    byte = '3'
	engineMessage byte = '4'
)

type PacketType byte

// Socket.IO packet types carried inside an Engine.IO message.
const (
	PacketConnect      PacketType = '0'
	PacketDisconnect   PacketType = '1'
	PacketEvent        PacketType = '2'
	PacketAck          PacketType = '3'
	PacketConnectError PacketType = '4'
)

var ErrBadPacket = errors.New("socketio: malformed packet")

type Packet struct {
	Type      PacketType
	Namespace string
	ID        *int
	Data      json.RawMessage
}

// Encode renders p as an Engine.IO message frame.
func Encode(p Packet) []byte {
	var b bytes.Buffer
	b.WriteByte(engineMessage)
	b.WriteByte(byte(p.Type))
	if p.Namespace != "" && p.Namespace != "/" {
		b.WriteString(p.Namespace)
		b.WriteByte(',')
	}
	if p.ID != nil {
		b.WriteString(strconv.Itoa(*p.ID))
	}
	b.Write(p.Data)
	return b.Bytes()
}

// Decode parses the Socket.IO part of an Engine.IO message frame
// (everything after the leading '4').
func Decode(frame []byte) (Packet, error) {
	if len(frame) < 2 || frame[0] != engineMessage {
		return Packet{}, ErrBadPacket
	}
	rest := frame[1:]
	p := Packet{Type: PacketType(rest[0]), Namespace: "/"}
	if p.Type < PacketConnect || p.Type > PacketConnectError {
		return Packet{}, ErrBadPacket
	}
	rest = rest[1:]

	if len(rest) > 0 && rest[0] == '/' {
		i := bytes.IndexByte(rest, ',')
		if i < 0 {
			p.Namespace = string(rest)
			return p, nil
		}
		p.Namespace = string(rest[:i])
		rest = rest[i+1:]
	}

	n := 0
	for n < len(rest) && rest[n] >= '0' && rest[n] <= '9' {
		n++
	}
	if n > 0 {
		id, err := strconv.Atoi(string(rest[:n]))
		if err != nil {
			return Packet{}, ErrBadPacket
		}
		p.ID = &id
		rest = rest[n:]
	}
	if len(rest) > 0 {
		p.Data = append(json.RawMessage(nil), rest...)
	}
	return p, nil
}

// EventPacket builds an EVENT packet for [name, payload].
func EventPacket(namespace, name string, payload any) (Packet, error) {
	data, err := json.Marshal([]any{name, payload})
	if err != nil {
		return Packet{}, err
	}
	return Packet{Type: PacketEvent, Namespace: namespace, Data: data}, nil
}

// Event splits an EVENT payload into its name and first argument.
func (p Packet) Event() (string, json.RawMessage, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(p.Data, &parts); err != nil {
		return "", nil, err
	}
	if len(parts) == 0 {
		return "", nil, ErrBadPacket
	}
	var name string
	if err := json.Unmarshal(parts[0], &name); err != nil {
		return "", nil, err
	}
	if len(parts) == 1 {
		return name, nil, nil
	}
	return name, parts[1], nil
}

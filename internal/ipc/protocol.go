package ipc

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Message types
const (
	TypeStatus  = "status"
	TypeBlock   = "block"
	TypePolicy  = "policy"
	TypeRelease = "release"
	TypeReply   = "reply"
	TypeError   = "error"
)

// maxMessageSize bounds a single frame
const maxMessageSize = 1 << 20

// Message is a request or reply on the control socket. On the wire it is a
// google.protobuf.Struct.
type Message struct {
	Type   string  `json:"type"`
	Error  string  `json:"error,omitempty"`
	Status *Status `json:"status,omitempty"`

	Blocked     *bool  `json:"blocked,omitempty"`
	FocusPolicy string `json:"focus_policy,omitempty"`
}

// NewStatusMessage creates a status query
func NewStatusMessage() *Message {
	return &Message{Type: TypeStatus}
}

// NewBlockMessage creates a request to suppress or restore key reporting
func NewBlockMessage(blocked bool) *Message {
	return &Message{Type: TypeBlock, Blocked: &blocked}
}

// NewPolicyMessage creates a request to change the focus-loss policy
func NewPolicyMessage(policy string) *Message {
	return &Message{Type: TypePolicy, FocusPolicy: policy}
}

// NewReleaseMessage creates a request to drop every pressed key, button and
// touch contact
func NewReleaseMessage() *Message {
	return &Message{Type: TypeRelease}
}

// NewReplyMessage wraps a status into a reply
func NewReplyMessage(st *Status) *Message {
	return &Message{Type: TypeReply, Status: st}
}

// NewErrorMessage creates an error reply
func NewErrorMessage(msg string) *Message {
	return &Message{Type: TypeError, Error: msg}
}

// ToStruct converts m to its protobuf form
func (m *Message) ToStruct() (*structpb.Struct, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return s, nil
}

// FromStruct converts a protobuf struct back into a Message
func FromStruct(s *structpb.Struct) (*Message, error) {
	data, err := protojson.Marshal(s)
	if err != nil {
		return nil, err
	}
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m.Type == "" {
		return nil, fmt.Errorf("message has no type")
	}
	return &m, nil
}

// readMessage reads one length-prefixed message
func readMessage(r io.Reader) (*Message, error) {
	// Read message length (4 bytes, big endian)
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, fmt.Errorf("failed to read message length: %w", err)
	}
	if length > maxMessageSize {
		return nil, fmt.Errorf("message too large: %d bytes", length)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("failed to read message data: %w", err)
	}

	s := &structpb.Struct{}
	if err := proto.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return FromStruct(s)
}

// writeMessage writes one length-prefixed message
func writeMessage(w io.Writer, msg *Message) error {
	s, err := msg.ToStruct()
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	data, err := proto.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := binary.Write(w, binary.BigEndian, uint32(len(data))); err != nil {
		return fmt.Errorf("failed to write message length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write message data: %w", err)
	}
	return nil
}

// Package messaging 提供消息系统的核心抽象：消息、处理器、总线与传输层
package messaging

import (
	stdjson "encoding/json"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// 元数据键
const (
	MetaRequestID = "request_id"
	MetaSource    = "source"
)

// IMessage 消息接口
type IMessage interface {
	GetID() string

	// GetType 消息类型，同时作为路由键（如 "pflanze.created"）
	GetType() string

	GetTimestamp() time.Time

	// GetPayload 已编码的 JSON 负载
	GetPayload() []byte

	GetMetadata() map[string]string
}

// Message 消息基础实现
type Message struct {
	ID        string             `json:"id"`
	Type      string             `json:"type"`
	Timestamp time.Time          `json:"timestamp"`
	Payload   stdjson.RawMessage `json:"payload,omitempty"`
	Metadata  map[string]string  `json:"metadata,omitempty"`
}

// NewMessage 创建新消息，payload 编码为 JSON
func NewMessage(messageType string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		ID:        uuid.NewString(),
		Type:      messageType,
		Timestamp: time.Now(),
		Payload:   data,
		Metadata:  make(map[string]string),
	}, nil
}

func (m *Message) GetID() string           { return m.ID }
func (m *Message) GetType() string         { return m.Type }
func (m *Message) GetTimestamp() time.Time { return m.Timestamp }
func (m *Message) GetPayload() []byte      { return m.Payload }

// GetMetadata 获取元数据（惰性初始化，可直接写入）
func (m *Message) GetMetadata() map[string]string {
	if m.Metadata == nil {
		m.Metadata = make(map[string]string)
	}
	return m.Metadata
}

// DecodePayload 将消息负载解码到 v
func DecodePayload(message IMessage, v any) error {
	return json.Unmarshal(message.GetPayload(), v)
}

// Encode 将消息编码为传输格式
func Encode(message IMessage) ([]byte, error) {
	ts := message.GetTimestamp()
	if ts.IsZero() {
		ts = time.Now()
	}
	return json.Marshal(&Message{
		ID:        message.GetID(),
		Type:      message.GetType(),
		Timestamp: ts,
		Payload:   message.GetPayload(),
		Metadata:  message.GetMetadata(),
	})
}

// Decode 从传输格式解码消息
func Decode(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m.Metadata == nil {
		m.Metadata = make(map[string]string)
	}
	return &m, nil
}

package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"installerhub/internal/domain/entity"
	"installerhub/pkg/errors"
	"installerhub/pkg/logger"
)

// Inbound frame types.
const (
	MessageTypePing        = "ping"
	MessageTypePong        = "pong"
	MessageTypeSendMessage = "send_message"
	MessageTypeMessageAck  = "message_ack"
	MessageTypeMarkRead    = "mark_read"
	MessageTypeReadAck     = "read_ack"
	MessageTypeError       = "error"
)

// InboundFrame is what clients write on the socket.
type InboundFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type SendMessageData struct {
	TempID         string `json:"temp_id"`
	ConversationID string `json:"conversation_id"`
	Body           string `json:"body" validate:"required"`
}

type MarkReadData struct {
	ConversationID string `json:"conversation_id" validate:"required"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Commands is the slice of the chat engine reachable over the socket.
type Commands interface {
	SendFromSocket(ctx context.Context, viewer entity.Participant, conversationID, tempID, body string) (*entity.Message, error)
	MarkAsRead(ctx context.Context, conversationID string, viewer entity.Participant) (int, error)
}

// Dispatcher turns inbound frames into engine calls and builds the reply
// frame for the calling client. Broadcasts still flow through the hub.
type Dispatcher struct {
	commands Commands
	validate *validator.Validate
}

func NewDispatcher(commands Commands) *Dispatcher {
	return &Dispatcher{
		commands: commands,
		validate: validator.New(),
	}
}

// Handle processes one raw frame from client and returns the encoded reply,
// or nil when no reply is due.
func (d *Dispatcher) Handle(ctx context.Context, client *Client, raw []byte) []byte {
	var frame InboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		logger.Warn("WebSocket: Invalid frame from %s: %v", client.Viewer.ID, err)
		return encode(MessageTypeError, ErrorData{Code: "BAD_REQUEST", Message: "Invalid message format"})
	}

	switch frame.Type {
	case MessageTypePing:
		return encode(MessageTypePong, map[string]string{"status": "alive"})

	case MessageTypeSendMessage:
		var data SendMessageData
		if err := d.decode(frame.Data, &data); err != nil {
			return encode(MessageTypeError, ErrorData{Code: "BAD_REQUEST", Message: "Message body is required"})
		}
		msg, err := d.commands.SendFromSocket(ctx, client.Viewer, data.ConversationID, data.TempID, data.Body)
		if err != nil {
			return encodeError(err)
		}
		return encode(MessageTypeMessageAck, map[string]interface{}{
			"temp_id": data.TempID,
			"message": msg,
		})

	case MessageTypeMarkRead:
		var data MarkReadData
		if err := d.decode(frame.Data, &data); err != nil {
			return encode(MessageTypeError, ErrorData{Code: "BAD_REQUEST", Message: "Conversation id is required"})
		}
		count, err := d.commands.MarkAsRead(ctx, data.ConversationID, client.Viewer)
		if err != nil {
			return encodeError(err)
		}
		return encode(MessageTypeReadAck, map[string]interface{}{
			"conversation_id": data.ConversationID,
			"count":           count,
		})

	default:
		logger.Debug("WebSocket: Unknown frame type '%s' from %s", frame.Type, client.Viewer.ID)
		return encode(MessageTypeError, ErrorData{Code: "BAD_REQUEST", Message: "Unknown message type"})
	}
}

func (d *Dispatcher) decode(raw json.RawMessage, into interface{}) error {
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, into); err != nil {
			return err
		}
	}
	return d.validate.Struct(into)
}

func encodeError(err error) []byte {
	if appErr, ok := errors.As(err); ok {
		return encode(MessageTypeError, ErrorData{Code: appErr.Code, Message: appErr.Message})
	}
	return encode(MessageTypeError, ErrorData{Code: "INTERNAL_ERROR", Message: "Internal server error"})
}

func encode(frameType string, data interface{}) []byte {
	payload, err := json.Marshal(Frame{
		Type:      frameType,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
	})
	if err != nil {
		logger.Error("WebSocket Error: Failed to encode %s frame: %v", frameType, err)
		return nil
	}
	return payload
}

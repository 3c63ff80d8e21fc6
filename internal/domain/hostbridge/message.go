package hostbridge

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// MessageType is the discriminator of the host message union
type MessageType string

const (
	TypeSetToken        MessageType = "SET_TOKEN"
	TypeSetContext      MessageType = "SET_CONTEXT"
	TypeTransactionHelp MessageType = "TRANSACTION_HELP"
	TypeTokenReceived   MessageType = "TOKEN_RECEIVED"
)

// ErrInvalidMessage is returned for anything outside the message union
var ErrInvalidMessage = errors.New("not a host message")

// Message is one of SetToken, SetContext, TransactionHelp or TokenReceived
type Message interface {
	MessageType() MessageType
	message()
}

// SetToken delivers the bearer token from the host
type SetToken struct {
	Token  string `json:"token"`
	UserID string `json:"userId,omitempty"`
}

// SetContext delivers contextual metadata from the host
type SetContext struct {
	Context map[string]any `json:"context"`
}

// TransactionHelp asks the assistant to help with a transaction
type TransactionHelp struct {
	TransactionID string `json:"transactionId"`
}

// TokenReceived acknowledges an accepted token to the host
type TokenReceived struct {
	Success bool `json:"success"`
}

func (SetToken) MessageType() MessageType        { return TypeSetToken }
func (SetContext) MessageType() MessageType      { return TypeSetContext }
func (TransactionHelp) MessageType() MessageType { return TypeTransactionHelp }
func (TokenReceived) MessageType() MessageType   { return TypeTokenReceived }

func (SetToken) message()        {}
func (SetContext) message()      {}
func (TransactionHelp) message() {}
func (TokenReceived) message()   {}

// IsValidMessage reports whether data has the shape of a host message
func IsValidMessage(data any) bool {
	_, err := ParseMessage(data)
	return err == nil
}

// ParseMessage checks the shape of data and returns the typed message.
// data is a decoded JSON object, or JSON bytes holding one.
func ParseMessage(data any) (Message, error) {
	obj, err := asObject(data)
	if err != nil {
		return nil, err
	}

	kind, _ := obj["type"].(string)
	switch MessageType(kind) {
	case TypeSetToken:
		token, ok := obj["token"].(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s token must be a string", ErrInvalidMessage, kind)
		}
		msg := SetToken{Token: token}
		if raw, present := obj["userId"]; present && raw != nil {
			userID, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s userId must be a string", ErrInvalidMessage, kind)
			}
			msg.UserID = userID
		}
		return msg, nil

	case TypeSetContext:
		ctx, ok := obj["context"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s context must be an object", ErrInvalidMessage, kind)
		}
		return SetContext{Context: ctx}, nil

	case TypeTransactionHelp:
		id, ok := obj["transactionId"].(string)
		if !ok || id == "" {
			return nil, fmt.Errorf("%w: %s transactionId must be a non-empty string", ErrInvalidMessage, kind)
		}
		return TransactionHelp{TransactionID: id}, nil

	case TypeTokenReceived:
		success, ok := obj["success"].(bool)
		if !ok {
			return nil, fmt.Errorf("%w: %s success must be a boolean", ErrInvalidMessage, kind)
		}
		return TokenReceived{Success: success}, nil

	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, kind)
	}
}

// Wire encodes msg in the postMessage format
func Wire(msg Message) map[string]any {
	out := map[string]any{"type": string(msg.MessageType())}
	switch m := msg.(type) {
	case SetToken:
		out["token"] = m.Token
		if m.UserID != "" {
			out["userId"] = m.UserID
		}
	case SetContext:
		out["context"] = m.Context
	case TransactionHelp:
		out["transactionId"] = m.TransactionID
	case TokenReceived:
		out["success"] = m.Success
	}
	return out
}

func asObject(data any) (map[string]any, error) {
	var raw []byte
	switch v := data.(type) {
	case map[string]any:
		return v, nil
	case []byte:
		raw = v
	case json.RawMessage:
		raw = v
	default:
		return nil, fmt.Errorf("%w: expected object, got %T", ErrInvalidMessage, data)
	}

	var obj map[string]any
	if err := sonic.ConfigStd.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, fmt.Errorf("%w: expected JSON object", ErrInvalidMessage)
	}
	return obj, nil
}

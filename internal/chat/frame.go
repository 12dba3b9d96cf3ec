package chat

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	FramePrivate      = "private"
	FrameGroupInvite  = "group_invite"
	FrameGroupMessage = "group_message"
)

var ErrMalformedFrame = errors.New("malformed frame")

var validate = validator.New()

// Frame is the decoded inbound payload: PrivateFrame, GroupInviteFrame, GroupMessageFrame
// or UnknownFrame.
type Frame interface {
	frameType() string
}

type PrivateFrame struct {
	ToUserID string `json:"toUserId" validate:"required"`
	Content  string `json:"content" validate:"required"`
}

type GroupInviteFrame struct {
	InvitedUserID string `json:"invitedUserId" validate:"required"`
	GroupID       string `json:"groupId" validate:"required"`
}

type GroupMessageFrame struct {
	GroupID string `json:"groupId" validate:"required"`
	Content string `json:"content" validate:"required"`
}

type UnknownFrame struct {
	RawType string
}

func (PrivateFrame) frameType() string      { return FramePrivate }
func (GroupInviteFrame) frameType() string  { return FrameGroupInvite }
func (GroupMessageFrame) frameType() string { return FrameGroupMessage }
func (f UnknownFrame) frameType() string    { return f.RawType }

// DecodeFrame parses raw once at the boundary. Unrecognized types are not an error:
// they come back as UnknownFrame.
func DecodeFrame(raw []byte) (Frame, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch envelope.Type {
	case FramePrivate:
		var f PrivateFrame
		return decodeInto(raw, &f)
	case FrameGroupInvite:
		var f GroupInviteFrame
		return decodeInto(raw, &f)
	case FrameGroupMessage:
		var f GroupMessageFrame
		return decodeInto(raw, &f)
	default:
		return UnknownFrame{RawType: envelope.Type}, nil
	}
}

func decodeInto[T Frame](raw []byte, f *T) (Frame, error) {
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if err := validate.Struct(f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return *f, nil
}

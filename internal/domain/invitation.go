package domain

import "time"

type GroupInvitation struct {
	GroupID   string    `json:"groupId"`
	InviterID string    `json:"inviterId"`
	InviteeID string    `json:"inviteeId"`
	CreatedAt time.Time `json:"createdAt"`
}

package chat

import (
	"context"
	"sort"
	"sync"
	"time"

	"portfolio_chat/internal/domain"
	"portfolio_chat/internal/repository"
)

// GroupTracker is the in-memory reverse index of online users to the groups they joined
// during this process lifetime. A user may belong to several groups at once.
type GroupTracker struct {
	mu          sync.RWMutex
	members     map[string]map[string]struct{}
	invitations repository.InvitationRepository
	now         func() time.Time
}

func NewGroupTracker(invitations repository.InvitationRepository) *GroupTracker {
	return &GroupTracker{
		members:     make(map[string]map[string]struct{}),
		invitations: invitations,
		now:         time.Now,
	}
}

// Invite records the invitation and associates both users with the group.
func (g *GroupTracker) Invite(ctx context.Context, inviterID, inviteeID, groupID string) error {
	invitation := &domain.GroupInvitation{
		GroupID:   groupID,
		InviterID: inviterID,
		InviteeID: inviteeID,
		CreatedAt: g.now().UTC(),
	}
	if err := g.invitations.Save(ctx, invitation); err != nil {
		return err
	}

	g.Join(inviterID, groupID)
	g.Join(inviteeID, groupID)
	return nil
}

func (g *GroupTracker) Join(userID, groupID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	groups, ok := g.members[userID]
	if !ok {
		groups = make(map[string]struct{})
		g.members[userID] = groups
	}
	groups[groupID] = struct{}{}
}

func (g *GroupTracker) MemberOf(userID string) []string {
	g.mu.RLock()
	groups := make([]string, 0, len(g.members[userID]))
	for id := range g.members[userID] {
		groups = append(groups, id)
	}
	g.mu.RUnlock()

	sort.Strings(groups)
	return groups
}

func (g *GroupTracker) IsMember(userID, groupID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, ok := g.members[userID][groupID]
	return ok
}

// MembersOf scans every tracked user; the index is bounded by the online population.
func (g *GroupTracker) MembersOf(groupID string) []string {
	g.mu.RLock()
	var users []string
	for userID, groups := range g.members {
		if _, ok := groups[groupID]; ok {
			users = append(users, userID)
		}
	}
	g.mu.RUnlock()

	sort.Strings(users)
	return users
}

func (g *GroupTracker) Drop(userID string) {
	g.mu.Lock()
	delete(g.members, userID)
	g.mu.Unlock()
}

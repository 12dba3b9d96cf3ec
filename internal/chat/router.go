package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"portfolio_chat/internal/domain"
	"portfolio_chat/internal/repository"
	apperrors "portfolio_chat/pkg/errors"
	"portfolio_chat/pkg/logger"
)

// Router dispatches inbound frames. It keeps no per-connection state: callers feed it the
// frames of one connection sequentially, frames of different connections concurrently.
type Router struct {
	registry *Registry
	groups   *GroupTracker
	chatIDs  *ChatIDResolver
	history  *History
	users    repository.UserRepository
	messages repository.MessageRepository
	observer Observer
	now      func() time.Time
	log      logger.Logger
}

func NewRouter(
	registry *Registry,
	groups *GroupTracker,
	chatIDs *ChatIDResolver,
	history *History,
	users repository.UserRepository,
	messages repository.MessageRepository,
	log logger.Logger,
) *Router {
	return &Router{
		registry: registry,
		groups:   groups,
		chatIDs:  chatIDs,
		history:  history,
		users:    users,
		messages: messages,
		observer: nopObserver{},
		now:      time.Now,
		log:      log,
	}
}

// Observe installs o for routing outcomes. Call before serving connections.
func (r *Router) Observe(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	r.observer = o
}

// Connect registers h for userID, replacing any previous handle, and acknowledges it.
func (r *Router) Connect(userID string, h Handle) {
	r.registry.Register(userID, h)
	r.send(userID, NewConnectedFrame(userID))
	r.log.Info("Chat connection registered", "user_id", userID)
}

// Disconnect drops the registration and the in-memory group memberships of userID when
// h is still the current handle. Durable chat ids stay on the user.
func (r *Router) Disconnect(userID string, h Handle) {
	if !r.registry.Unregister(userID, h) {
		return
	}
	r.groups.Drop(userID)
	r.log.Info("Chat connection unregistered", "user_id", userID)
}

// Handle processes one inbound frame from senderID. Failures never escape: they are
// logged and reported to the sender as an error frame.
func (r *Router) Handle(ctx context.Context, senderID string, raw []byte) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("Panic while handling frame", "user_id", senderID, "panic", fmt.Sprint(p))
			r.sendError(senderID, CodeInternalError, "")
		}
	}()

	frame, err := DecodeFrame(raw)
	if err != nil {
		r.log.Debug("Malformed frame", "user_id", senderID, "error", err)
		r.sendError(senderID, CodeMalformedFrame, err.Error())
		return
	}

	switch f := frame.(type) {
	case PrivateFrame:
		r.observer.FrameHandled(FramePrivate)
		err = r.handlePrivate(ctx, senderID, f)
	case GroupInviteFrame:
		r.observer.FrameHandled(FrameGroupInvite)
		err = r.handleGroupInvite(ctx, senderID, f)
	case GroupMessageFrame:
		r.observer.FrameHandled(FrameGroupMessage)
		err = r.handleGroupMessage(ctx, senderID, f)
	case UnknownFrame:
		r.log.Debug("Unknown frame type", "user_id", senderID, "type", f.RawType)
		r.sendError(senderID, CodeUnknownType, "")
		return
	}

	if err != nil {
		r.reportFailure(senderID, frame, err)
	}
}

func (r *Router) handlePrivate(ctx context.Context, senderID string, f PrivateFrame) error {
	if _, err := r.users.GetByID(ctx, f.ToUserID); err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return apperrors.ErrRecipientNotFound
		}
		return fmt.Errorf("load recipient: %w", err)
	}

	unlock := r.chatIDs.LockPair(senderID, f.ToUserID)
	defer unlock()

	chatID, err := r.chatIDs.resolve(ctx, senderID, f.ToUserID)
	if err != nil {
		return err
	}

	message := &domain.Message{
		Type:       domain.MessageKindPrivate,
		FromUserID: senderID,
		ToUserID:   f.ToUserID,
		ChatID:     chatID,
		Content:    f.Content,
	}
	if err := r.persist(ctx, message); err != nil {
		return err
	}

	if r.deliver(f.ToUserID, NewMessageFrame(message)) {
		r.observer.MessageStored(string(message.Type), true)
		return nil
	}
	r.observer.MessageStored(string(message.Type), false)

	// recipient offline: the message waits in the store
	r.send(senderID, NewMessageSentFrame(message))
	return nil
}

func (r *Router) handleGroupInvite(ctx context.Context, senderID string, f GroupInviteFrame) error {
	if _, online := r.registry.Lookup(f.InvitedUserID); !online {
		return apperrors.ErrInviteeOffline
	}

	unlock := r.history.LockChat(f.GroupID)
	defer unlock()

	if err := r.authorizeGroup(ctx, senderID, f.GroupID); err != nil {
		return err
	}

	// durable chat ids first: a failure here leaves no tracked membership or invitation
	for _, userID := range lo.Uniq([]string{senderID, f.InvitedUserID}) {
		if err := r.users.AddChatID(ctx, userID, f.GroupID); err != nil {
			return fmt.Errorf("attach group %s to user %s: %w", f.GroupID, userID, err)
		}
	}

	if err := r.groups.Invite(ctx, senderID, f.InvitedUserID, f.GroupID); err != nil {
		return fmt.Errorf("store invitation: %w", err)
	}

	r.send(f.InvitedUserID, GroupInviteNotice{Type: FrameGroupInvite, GroupID: f.GroupID, FromUserID: senderID})
	r.send(senderID, InviteSentFrame{Type: "invite_sent", GroupID: f.GroupID, InvitedUserID: f.InvitedUserID})
	return nil
}

func (r *Router) handleGroupMessage(ctx context.Context, senderID string, f GroupMessageFrame) error {
	message := &domain.Message{
		Type:       domain.MessageKindGroup,
		FromUserID: senderID,
		GroupID:    f.GroupID,
		ChatID:     f.GroupID,
		Content:    f.Content,
	}

	err := func() error {
		unlock := r.history.LockChat(f.GroupID)
		defer unlock()

		if err := r.authorizeGroup(ctx, senderID, f.GroupID); err != nil {
			return err
		}
		if err := r.users.AddChatID(ctx, senderID, f.GroupID); err != nil {
			return fmt.Errorf("attach group %s to sender: %w", f.GroupID, err)
		}
		return r.persistLocked(ctx, message)
	}()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(NewMessageFrame(message))
	if err != nil {
		return err
	}

	delivered := 0
	for _, memberID := range r.groups.MembersOf(f.GroupID) {
		if memberID == senderID {
			continue
		}
		if r.registry.Send(memberID, payload) {
			delivered++
		}
	}
	// canonical copy with the server assigned id and timestamp
	r.registry.Send(senderID, payload)
	r.observer.MessageStored(string(message.Type), delivered > 0)

	r.log.Debug("Group message fanned out", "group_id", f.GroupID, "message_id", message.ID, "delivered", delivered)
	return nil
}

// authorizeGroup admits userID to groupID when they are tracked in it, already hold it as
// a chat id, or the group is unclaimed: nobody tracked and nothing stored under it. The
// caller holds the group's chat lock.
func (r *Router) authorizeGroup(ctx context.Context, userID, groupID string) error {
	if r.groups.IsMember(userID, groupID) {
		return nil
	}

	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load sender: %w", err)
	}
	if user.HasChat(groupID) {
		return nil
	}

	if len(r.groups.MembersOf(groupID)) > 0 {
		return apperrors.ErrNotGroupMember
	}
	stored, err := r.messages.GetByChatID(ctx, groupID)
	if err != nil {
		return fmt.Errorf("load group messages: %w", err)
	}
	if len(stored) > 0 {
		return apperrors.ErrNotGroupMember
	}
	return nil
}

// persist stores message and records its creation under the chat lock.
func (r *Router) persist(ctx context.Context, message *domain.Message) error {
	unlock := r.history.LockChat(message.ChatID)
	defer unlock()

	return r.persistLocked(ctx, message)
}

func (r *Router) persistLocked(ctx context.Context, message *domain.Message) error {
	message.Timestamp = r.now().UTC()
	if err := r.messages.Create(ctx, message); err != nil {
		return fmt.Errorf("save message: %w", err)
	}

	if _, err := r.history.Record(ctx, message, domain.ActionCreated); err != nil {
		// the message itself is stored and will still be delivered
		r.log.Error("Failed to record message history", "error", err, "chat_id", message.ChatID, "message_id", message.ID)
	}
	return nil
}

func (r *Router) reportFailure(senderID string, frame Frame, err error) {
	switch {
	case errors.Is(err, apperrors.ErrRecipientNotFound):
		r.sendError(senderID, CodeRecipientNotFound, "")
	case errors.Is(err, apperrors.ErrInviteeOffline):
		r.sendError(senderID, CodeInviteeOffline, "")
	case errors.Is(err, apperrors.ErrNotGroupMember):
		r.sendError(senderID, CodeNotGroupMember, "")
	default:
		r.log.Error("Failed to handle frame", "error", err, "user_id", senderID, "type", frame.frameType())
		r.sendError(senderID, CodeInternalError, "")
	}
}

func (r *Router) deliver(userID string, frame any) bool {
	payload, err := json.Marshal(frame)
	if err != nil {
		r.log.Error("Failed to encode frame", "error", err)
		return false
	}
	return r.registry.Send(userID, payload)
}

func (r *Router) send(userID string, frame any) {
	if !r.deliver(userID, frame) {
		r.log.Debug("Frame not delivered", "user_id", userID)
	}
}

func (r *Router) sendError(userID, code, detail string) {
	r.observer.ErrorSent(code)
	r.send(userID, ErrorFrame{Error: code, Detail: detail})
}

// SendError lets the transport report its own failures (rate limiting) in the same shape.
func (r *Router) SendError(userID, code string) {
	r.sendError(userID, code, "")
}

package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"portfolio_chat/internal/domain"
	apperrors "portfolio_chat/pkg/errors"
)

// In-memory implementations back STORAGE_DRIVER=memory and the test suites.
// Every read returns a copy so callers never share state with the store.

type memoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{users: make(map[string]*domain.User)}
}

func (r *memoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return cloneUser(user), nil
}

func (r *memoryUserRepository) Save(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := r.users[user.ID]; ok {
		user.CreatedAt = existing.CreatedAt
	} else if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.users[user.ID] = cloneUser(user)
	return nil
}

func (r *memoryUserRepository) CreateIfAbsent(_ context.Context, user *domain.User) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; ok {
		return false, nil
	}
	now := time.Now().UTC()
	user.ChatIDs = []string{}
	user.CreatedAt, user.UpdatedAt = now, now
	r.users[user.ID] = cloneUser(user)
	return true, nil
}

func (r *memoryUserRepository) AddChatID(_ context.Context, userID, chatID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	if !user.HasChat(chatID) {
		user.ChatIDs = append(user.ChatIDs, chatID)
		user.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.ChatIDs = append([]string(nil), u.ChatIDs...)
	return &c
}

type memoryMessageRepository struct {
	mu       sync.RWMutex
	messages map[string]*domain.Message
	byChat   map[string][]string
}

func NewMemoryMessageRepository() MessageRepository {
	return &memoryMessageRepository{
		messages: make(map[string]*domain.Message),
		byChat:   make(map[string][]string),
	}
}

func (r *memoryMessageRepository) Create(_ context.Context, message *domain.Message) error {
	prepareMessage(message)

	r.mu.Lock()
	defer r.mu.Unlock()

	c := *message
	r.messages[message.ID] = &c
	r.byChat[message.ChatID] = append(r.byChat[message.ChatID], message.ID)
	return nil
}

func (r *memoryMessageRepository) GetByID(_ context.Context, id string) (*domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	message, ok := r.messages[id]
	if !ok {
		return nil, apperrors.ErrMessageNotFound
	}
	c := *message
	return &c, nil
}

func (r *memoryMessageRepository) GetByChatID(_ context.Context, chatID string) ([]*domain.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byChat[chatID]
	messages := make([]*domain.Message, 0, len(ids))
	for _, id := range ids {
		c := *r.messages[id]
		messages = append(messages, &c)
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
	return messages, nil
}

func (r *memoryMessageRepository) Update(_ context.Context, message *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.messages[message.ID]
	if !ok {
		return apperrors.ErrMessageNotFound
	}
	stored.Content = message.Content
	stored.EditedAt = message.EditedAt
	stored.DeletedAt = message.DeletedAt
	return nil
}

func (r *memoryMessageRepository) ListChatIDs(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chatIDs := make([]string, 0, len(r.byChat))
	for chatID := range r.byChat {
		chatIDs = append(chatIDs, chatID)
	}
	sort.Strings(chatIDs)
	return chatIDs, nil
}

type memoryHistoryRepository struct {
	mu        sync.RWMutex
	histories map[string]*domain.MessageHistory
}

func NewMemoryHistoryRepository() HistoryRepository {
	return &memoryHistoryRepository{histories: make(map[string]*domain.MessageHistory)}
}

func (r *memoryHistoryRepository) Get(_ context.Context, chatID string) (*domain.MessageHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	history, ok := r.histories[chatID]
	if !ok {
		return nil, apperrors.ErrChatNotFound
	}
	return cloneHistory(history), nil
}

func (r *memoryHistoryRepository) Exists(_ context.Context, chatID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.histories[chatID]
	return ok, nil
}

func (r *memoryHistoryRepository) Append(_ context.Context, message *domain.Message, action domain.HistoryAction, at time.Time) (domain.MessageVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	history, ok := r.histories[message.ChatID]
	if !ok {
		history = &domain.MessageHistory{ChatID: message.ChatID, CreatedAt: at.UTC()}
		r.histories[message.ChatID] = history
	}

	entry := history.Entry(message.ID)
	if entry == nil {
		entry = &domain.MessageEntry{MessageID: message.ID, FromUserID: message.FromUserID}
		history.Entries = append(history.Entries, entry)
	}

	return entry.Append(at, action, message.Content), nil
}

func (r *memoryHistoryRepository) CreateFromMessages(_ context.Context, chatID string, messages []*domain.Message) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.histories[chatID]; ok {
		return false, nil
	}

	history := &domain.MessageHistory{ChatID: chatID, CreatedAt: time.Now().UTC()}
	for _, m := range messages {
		entry := &domain.MessageEntry{MessageID: m.ID, FromUserID: m.FromUserID}
		entry.Append(m.Timestamp, domain.ActionCreated, m.Content)
		history.Entries = append(history.Entries, entry)
	}
	r.histories[chatID] = history
	return true, nil
}

func cloneHistory(h *domain.MessageHistory) *domain.MessageHistory {
	c := &domain.MessageHistory{ChatID: h.ChatID, CreatedAt: h.CreatedAt}
	for _, e := range h.Entries {
		entry := *e
		entry.Versions = append([]domain.MessageVersion(nil), e.Versions...)
		c.Entries = append(c.Entries, &entry)
	}
	return c
}

type memoryInvitationRepository struct {
	mu          sync.RWMutex
	invitations map[string][]*domain.GroupInvitation
}

func NewMemoryInvitationRepository() InvitationRepository {
	return &memoryInvitationRepository{invitations: make(map[string][]*domain.GroupInvitation)}
}

func (r *memoryInvitationRepository) Save(_ context.Context, invitation *domain.GroupInvitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := *invitation
	r.invitations[invitation.InviteeID] = append(r.invitations[invitation.InviteeID], &c)
	return nil
}

func (r *memoryInvitationRepository) ListByInvitee(_ context.Context, inviteeID string) ([]*domain.GroupInvitation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.invitations[inviteeID]
	invitations := make([]*domain.GroupInvitation, 0, len(stored))
	for _, inv := range stored {
		c := *inv
		invitations = append(invitations, &c)
	}
	return invitations, nil
}

type memoryRateLimitRepository struct {
	mu       sync.Mutex
	counters map[string]*windowCounter
	now      func() time.Time
}

type windowCounter struct {
	count   int64
	expires time.Time
}

func NewMemoryRateLimitRepository() RateLimitRepository {
	return &memoryRateLimitRepository{counters: make(map[string]*windowCounter), now: time.Now}
}

func (r *memoryRateLimitRepository) CheckLimit(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.live(key)
	if c == nil {
		return true, nil
	}
	return c.count < int64(limit), nil
}

func (r *memoryRateLimitRepository) Increment(_ context.Context, key string, window time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.live(key)
	if c == nil {
		c = &windowCounter{expires: r.now().Add(window)}
		r.counters[key] = c
	}
	c.count++
	return c.count, nil
}

func (r *memoryRateLimitRepository) live(key string) *windowCounter {
	c, ok := r.counters[key]
	if !ok {
		return nil
	}
	if !r.now().Before(c.expires) {
		delete(r.counters, key)
		return nil
	}
	return c
}

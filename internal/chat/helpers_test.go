package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"portfolio_chat/internal/domain"
	"portfolio_chat/internal/repository"
	"portfolio_chat/pkg/logger"
)

var errHandleClosed = errors.New("handle closed")

type fakeHandle struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func (h *fakeHandle) Send(payload []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errHandleClosed
	}
	h.frames = append(h.frames, append([]byte(nil), payload...))
	return nil
}

func (h *fakeHandle) Close() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
}

func (h *fakeHandle) decoded(t *testing.T) []map[string]any {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]map[string]any, 0, len(h.frames))
	for _, raw := range h.frames {
		var m map[string]any
		require.NoError(t, json.Unmarshal(raw, &m))
		out = append(out, m)
	}
	return out
}

// received skips the handshake acknowledgment.
func (h *fakeHandle) received(t *testing.T) []map[string]any {
	var out []map[string]any
	for _, f := range h.decoded(t) {
		if f["type"] == "connected" {
			continue
		}
		out = append(out, f)
	}
	return out
}

type fixture struct {
	router   *Router
	registry *Registry
	groups   *GroupTracker
	resolver *ChatIDResolver
	history  *History
	users    repository.UserRepository
	messages repository.MessageRepository
	histRepo repository.HistoryRepository
}

type fixtureOption func(*fixtureDeps)

type fixtureDeps struct {
	messages  repository.MessageRepository
	history   repository.HistoryRepository
	wrapUsers func(repository.UserRepository) repository.UserRepository
}

func withMessages(m repository.MessageRepository) fixtureOption {
	return func(d *fixtureDeps) { d.messages = m }
}

func withUsersWrapped(wrap func(repository.UserRepository) repository.UserRepository) fixtureOption {
	return func(d *fixtureDeps) { d.wrapUsers = wrap }
}

func withHistoryRepo(h repository.HistoryRepository) fixtureOption {
	return func(d *fixtureDeps) { d.history = h }
}

func newFixture(t *testing.T, userIDs []string, opts ...fixtureOption) *fixture {
	t.Helper()

	deps := &fixtureDeps{
		messages: repository.NewMemoryMessageRepository(),
		history:  repository.NewMemoryHistoryRepository(),
	}
	for _, opt := range opts {
		opt(deps)
	}

	log := logger.Nop()
	var users repository.UserRepository = repository.NewMemoryUserRepository()
	for _, id := range userIDs {
		require.NoError(t, users.Save(context.Background(), &domain.User{ID: id, DisplayName: id}))
	}
	if deps.wrapUsers != nil {
		users = deps.wrapUsers(users)
	}

	registry := NewRegistry()
	groups := NewGroupTracker(repository.NewMemoryInvitationRepository())
	resolver := NewChatIDResolver(users, deps.messages, log)
	history := NewHistory(deps.history, deps.messages, 2, log)
	router := NewRouter(registry, groups, resolver, history, users, deps.messages, log)
	router.now = steppingClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	return &fixture{
		router:   router,
		registry: registry,
		groups:   groups,
		resolver: resolver,
		history:  history,
		users:    users,
		messages: deps.messages,
		histRepo: deps.history,
	}
}

func (f *fixture) connect(userID string) *fakeHandle {
	h := &fakeHandle{}
	f.router.Connect(userID, h)
	return h
}

func (f *fixture) send(userID string, frame map[string]any) {
	raw, _ := json.Marshal(frame)
	f.router.Handle(context.Background(), userID, raw)
}

func (f *fixture) user(t *testing.T, id string) *domain.User {
	t.Helper()
	u, err := f.users.GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

// steppingClock returns a clock that advances one second per call.
func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}

type failingMessageRepository struct {
	repository.MessageRepository
	err error
}

func (r *failingMessageRepository) Create(context.Context, *domain.Message) error {
	return r.err
}

// failingUserRepository fails AddChatID for one user.
type failingUserRepository struct {
	repository.UserRepository
	userID string
	err    error
}

func (r *failingUserRepository) AddChatID(ctx context.Context, userID, chatID string) error {
	if userID == r.userID {
		return r.err
	}
	return r.UserRepository.AddChatID(ctx, userID, chatID)
}

type failingHistoryRepository struct {
	repository.HistoryRepository
	err error
}

func (r *failingHistoryRepository) Append(context.Context, *domain.Message, domain.HistoryAction, time.Time) (domain.MessageVersion, error) {
	return domain.MessageVersion{}, r.err
}

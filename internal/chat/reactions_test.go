package chat

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"community-chat-service/internal/mocks"
	"community-chat-service/internal/models"
)

// fakeReactionRepo keeps reaction sets in memory with the same toggle
// semantics as the SQL implementation.
type fakeReactionRepo struct {
	mu   sync.Mutex
	sets map[string]map[int]struct{}
}

func newFakeReactionRepo() *fakeReactionRepo {
	return &fakeReactionRepo{sets: map[string]map[int]struct{}{}}
}

func reactionKey(messageID int, emoji string) string {
	return fmt.Sprintf("%d:%s", messageID, emoji)
}

func (r *fakeReactionRepo) Toggle(_ context.Context, messageID int, userID int, emoji string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := reactionKey(messageID, emoji)
	if _, ok := r.sets[key]; !ok {
		r.sets[key] = map[int]struct{}{}
	}
	if _, ok := r.sets[key][userID]; ok {
		delete(r.sets[key], userID)
		return false, nil
	}
	r.sets[key][userID] = struct{}{}
	return true, nil
}

func (r *fakeReactionRepo) Group(_ context.Context, messageID int, emoji string) (models.ReactionGroup, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var users []int
	for userID := range r.sets[reactionKey(messageID, emoji)] {
		users = append(users, userID)
	}
	sort.Ints(users)
	return models.ReactionGroup{Emoji: emoji, Count: len(users), UserIDs: users}, nil
}

func (r *fakeReactionRepo) GroupsForMessages(context.Context, []int) (map[int][]models.ReactionGroup, error) {
	return map[int][]models.ReactionGroup{}, nil
}

func reactionsFixture(t *testing.T) (*Reactions, *fakeReactionRepo, *testSubscriber) {
	t.Helper()
	registry := NewRegistry()
	watcher := newTestSubscriber("watcher", 99)
	registry.Join(5, watcher)

	membersRepo := new(mocks.MembershipRepositoryMock)
	membersRepo.On("Membership", mock.Anything, 5, mock.Anything).
		Return(models.ChannelMember{Role: models.RoleMember}, nil)

	messageRepo := new(mocks.MessageRepositoryMock)
	messageRepo.On("GetMessage", mock.Anything, 9).
		Return(models.Message{ID: 9, ChannelID: 5, SenderID: 1}, nil)

	repo := newFakeReactionRepo()
	return NewReactions(registry, membersRepo, messageRepo, repo), repo, watcher
}

func TestReactionToggleAlternates(t *testing.T) {
	reactions, repo, _ := reactionsFixture(t)
	user := newTestSubscriber("a", 1)

	require.NoError(t, reactions.Toggle(context.Background(), user, 9, "👍"))
	group, err := repo.Group(context.Background(), 9, "👍")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, group.UserIDs)

	require.NoError(t, reactions.Toggle(context.Background(), user, 9, "👍"))
	group, err = repo.Group(context.Background(), 9, "👍")
	require.NoError(t, err)
	assert.Empty(t, group.UserIDs, "toggling twice returns to the original state")
}

func TestReactionConcurrentTogglesConverge(t *testing.T) {
	reactions, repo, _ := reactionsFixture(t)

	var wg sync.WaitGroup
	for _, userID := range []int{1, 2} {
		wg.Add(1)
		go func(userID int) {
			defer wg.Done()
			sub := newTestSubscriber(fmt.Sprintf("u%d", userID), userID)
			assert.NoError(t, reactions.Toggle(context.Background(), sub, 9, "👍"))
		}(userID)
	}
	wg.Wait()

	group, err := repo.Group(context.Background(), 9, "👍")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, group.UserIDs, "independent user entries never lose updates")
}

func TestReactionBroadcastsUpdatedGroup(t *testing.T) {
	reactions, _, watcher := reactionsFixture(t)

	require.NoError(t, reactions.Toggle(context.Background(), newTestSubscriber("a", 1), 9, "🎉"))

	events := watcher.EventsOfType(models.EventMessageUpdated)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].Patch)
	require.NotNil(t, events[0].Patch.Reaction)
	assert.Equal(t, "🎉", events[0].Patch.Reaction.Emoji)
	assert.Equal(t, []int{1}, events[0].Patch.Reaction.UserIDs)
	assert.Equal(t, 9, events[0].MessageID)
}

func TestReactionRejectsUnknownEmoji(t *testing.T) {
	reactions, _, watcher := reactionsFixture(t)

	err := reactions.Toggle(context.Background(), newTestSubscriber("a", 1), 9, "")
	require.Error(t, err)
	assert.Equal(t, CodeValidation, CodeOf(err))
	assert.Empty(t, watcher.Events())
}

func TestReactionRejectsOversizedEmoji(t *testing.T) {
	reactions, _, _ := reactionsFixture(t)

	err := reactions.Toggle(context.Background(), newTestSubscriber("a", 1), 9, "this is far too long to be an emoji name")
	require.Error(t, err)
	assert.Equal(t, CodeValidation, CodeOf(err))
}

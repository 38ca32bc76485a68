package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/zingsocial/social-core/internal/core/domain"
)

// memStore est un store en mémoire qui honore les mêmes contrats que le
// repo Postgres : toggles atomiques (mutex), compteurs dénormalisés
// maintenus incrémentalement, suppression explicite du set de likes.
type memStore struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	followers map[string]map[string]bool // uid -> set de ceux qui le suivent
	following map[string]map[string]bool // uid -> set de ceux qu'il suit
	posts     map[string]*domain.Post
	likes     map[string]map[string]bool // postID -> set des likers
	comments  []*domain.Comment

	failCreatePost bool
	failToggle     error
}

func newMemStore(uids ...string) *memStore {
	s := &memStore{
		users:     make(map[string]*domain.User),
		followers: make(map[string]map[string]bool),
		following: make(map[string]map[string]bool),
		posts:     make(map[string]*domain.Post),
		likes:     make(map[string]map[string]bool),
	}
	for _, uid := range uids {
		s.users[uid] = &domain.User{UID: uid, Username: "user_" + uid}
		s.followers[uid] = make(map[string]bool)
		s.following[uid] = make(map[string]bool)
	}
	return s
}

// --- UserRepository ---

func (s *memStore) GetByID(_ context.Context, uid string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[uid]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) GetMany(_ context.Context, uids []string) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.User, 0, len(uids))
	for _, uid := range uids {
		if u, ok := s.users[uid]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *memStore) UpdateProfile(_ context.Context, cmd domain.UpdateProfileCmd) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[cmd.UID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if cmd.Name != nil {
		u.Name = *cmd.Name
	}
	if cmd.Username != nil {
		u.Username = *cmd.Username
	}
	if cmd.Bio != nil {
		u.Bio = *cmd.Bio
	}
	if cmd.AvatarURL != nil {
		u.ProfilePicURL = *cmd.AvatarURL
	}
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memStore) UsernameTaken(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

// --- GraphRepository ---

func (s *memStore) ToggleFollow(_ context.Context, actorID, targetID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failToggle != nil {
		return false, s.failToggle
	}
	actor, okA := s.users[actorID]
	target, okT := s.users[targetID]
	if !okA || !okT {
		return false, domain.ErrUserNotFound
	}

	if s.followers[targetID][actorID] {
		delete(s.followers[targetID], actorID)
		delete(s.following[actorID], targetID)
		target.FollowersCount--
		actor.FollowingCount--
		return false, nil
	}
	s.followers[targetID][actorID] = true
	s.following[actorID][targetID] = true
	target.FollowersCount++
	actor.FollowingCount++
	return true, nil
}

func (s *memStore) ToggleLike(_ context.Context, actorID, postID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failToggle != nil {
		return false, s.failToggle
	}
	post, ok := s.posts[postID]
	if !ok {
		return false, domain.ErrPostNotFound
	}
	if s.likes[postID] == nil {
		s.likes[postID] = make(map[string]bool)
	}
	if s.likes[postID][actorID] {
		delete(s.likes[postID], actorID)
		post.LikeCount--
		return false, nil
	}
	s.likes[postID][actorID] = true
	post.LikeCount++
	return true, nil
}

func (s *memStore) IsFollowing(_ context.Context, actorID, targetID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.following[actorID][targetID], nil
}

func (s *memStore) FollowerIDs(_ context.Context, uid string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setToSlice(s.followers[uid]), nil
}

func (s *memStore) FollowingIDs(_ context.Context, uid string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setToSlice(s.following[uid]), nil
}

func (s *memStore) LikerIDs(_ context.Context, postID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setToSlice(s.likes[postID]), nil
}

func (s *memStore) LikedSet(_ context.Context, viewerID string, postIDs []string) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool)
	for _, id := range postIDs {
		if s.likes[id][viewerID] {
			out[id] = true
		}
	}
	return out, nil
}

// --- PostRepository ---

func (s *memStore) Create(_ context.Context, post *domain.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreatePost {
		return domain.ErrUnavailable
	}
	owner, ok := s.users[post.PostedBy]
	if !ok {
		return domain.ErrUserNotFound
	}
	cp := *post
	s.posts[post.ID] = &cp
	s.likes[post.ID] = make(map[string]bool)
	owner.PostCount++
	return nil
}

func (s *memStore) Delete(_ context.Context, post *domain.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[post.ID]; !ok {
		return domain.ErrPostNotFound
	}
	delete(s.posts, post.ID)
	delete(s.likes, post.ID)
	if owner, ok := s.users[post.PostedBy]; ok {
		owner.PostCount--
	}
	return nil
}

func (s *memStore) GetPostByID(_ context.Context, postID string) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[postID]
	if !ok {
		return nil, domain.ErrPostNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) ListByAuthor(ctx context.Context, authorID string, limit int, cursorTime time.Time) ([]*domain.Post, error) {
	return s.ListByAuthors(ctx, []string{authorID}, limit, cursorTime)
}

func (s *memStore) ListByAuthors(_ context.Context, authorIDs []string, limit int, cursorTime time.Time) ([]*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	authors := make(map[string]bool, len(authorIDs))
	for _, id := range authorIDs {
		authors[id] = true
	}
	var out []*domain.Post
	for _, p := range s.posts {
		if !authors[p.PostedBy] {
			continue
		}
		if !cursorTime.IsZero() && !p.CreatedAt.Before(cursorTime) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- CommentRepository ---

func (s *memStore) CreateComment(_ context.Context, c *domain.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[c.PostID]; !ok {
		return domain.ErrPostNotFound
	}
	cp := *c
	s.comments = append(s.comments, &cp)
	return nil
}

func (s *memStore) ListByPost(_ context.Context, postID string, limit int, cursorTime time.Time) ([]*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Comment
	for _, c := range s.comments {
		if c.PostID != postID {
			continue
		}
		if !cursorTime.IsZero() && !c.CreatedAt.Before(cursorTime) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func setToSlice(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// postRepoAdapter expose memStore sous le port PostRepository (le nom
// GetByID entre en collision avec celui de UserRepository).
type postRepoAdapter struct{ s *memStore }

func (a postRepoAdapter) Create(ctx context.Context, p *domain.Post) error { return a.s.Create(ctx, p) }
func (a postRepoAdapter) Delete(ctx context.Context, p *domain.Post) error { return a.s.Delete(ctx, p) }
func (a postRepoAdapter) GetByID(ctx context.Context, postID string) (*domain.Post, error) {
	return a.s.GetPostByID(ctx, postID)
}
func (a postRepoAdapter) ListByAuthor(ctx context.Context, authorID string, limit int, cursorTime time.Time) ([]*domain.Post, error) {
	return a.s.ListByAuthor(ctx, authorID, limit, cursorTime)
}
func (a postRepoAdapter) ListByAuthors(ctx context.Context, authorIDs []string, limit int, cursorTime time.Time) ([]*domain.Post, error) {
	return a.s.ListByAuthors(ctx, authorIDs, limit, cursorTime)
}

type commentRepoAdapter struct{ s *memStore }

func (a commentRepoAdapter) Create(ctx context.Context, c *domain.Comment) error {
	return a.s.CreateComment(ctx, c)
}
func (a commentRepoAdapter) ListByPost(ctx context.Context, postID string, limit int, cursorTime time.Time) ([]*domain.Comment, error) {
	return a.s.ListByPost(ctx, postID, limit, cursorTime)
}

// --- Blobs ---

type fakeBlobs struct {
	mu       sync.Mutex
	uploads  map[string]string // key -> url
	deleted  []string
	failUp   bool
	failDel  bool
	uploadID int
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{uploads: make(map[string]string)}
}

func (b *fakeBlobs) Upload(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failUp {
		return "", domain.ErrUnavailable
	}
	if r != nil {
		_, _ = io.Copy(io.Discard, r)
	}
	b.uploadID++
	url := fmt.Sprintf("https://blobs.test/%s?v=%d", key, b.uploadID)
	b.uploads[key] = url
	return url, nil
}

func (b *fakeBlobs) Delete(_ context.Context, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failDel {
		return domain.ErrUnavailable
	}
	b.deleted = append(b.deleted, url)
	return nil
}

// --- Publisher ---

type fakePublisher struct {
	mu      sync.Mutex
	follows int
	likes   int
	created int
	deleted int
	fail    bool
}

func (p *fakePublisher) PublishFollowToggled(context.Context, string, string, bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return domain.ErrUnavailable
	}
	p.follows++
	return nil
}

func (p *fakePublisher) PublishPostCreated(context.Context, *domain.Post) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return domain.ErrUnavailable
	}
	p.created++
	return nil
}

func (p *fakePublisher) PublishPostDeleted(context.Context, string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return domain.ErrUnavailable
	}
	p.deleted++
	return nil
}

func (p *fakePublisher) PublishPostLiked(context.Context, string, string, bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return domain.ErrUnavailable
	}
	p.likes++
	return nil
}

// --- Présence ---

type fakeEphemeral struct {
	mu         sync.Mutex
	online     map[string]*domain.Presence
	heartbeats map[string]int
	failSet    bool
}

func newFakeEphemeral() *fakeEphemeral {
	return &fakeEphemeral{
		online:     make(map[string]*domain.Presence),
		heartbeats: make(map[string]int),
	}
}

func (f *fakeEphemeral) SetOnline(_ context.Context, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet {
		return domain.ErrUnavailable
	}
	f.online[uid] = &domain.Presence{UID: uid, State: domain.PresenceOnline, LastChange: time.Now().UTC()}
	return nil
}

func (f *fakeEphemeral) Heartbeat(_ context.Context, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heartbeats[uid]++
	return nil
}

func (f *fakeEphemeral) SetOffline(_ context.Context, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.online, uid)
	return nil
}

func (f *fakeEphemeral) Get(_ context.Context, uid string) (*domain.Presence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.online[uid]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeEphemeral) isOnline(uid string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.online[uid]
	return ok
}

func (f *fakeEphemeral) beats(uid string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.heartbeats[uid]
}

type fakeDurable struct {
	mu     sync.Mutex
	states map[string]*domain.Presence
}

func newFakeDurable() *fakeDurable {
	return &fakeDurable{states: make(map[string]*domain.Presence)}
}

func (f *fakeDurable) Set(_ context.Context, uid string, state domain.PresenceState, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[uid] = &domain.Presence{UID: uid, State: state, LastChange: at}
	return nil
}

func (f *fakeDurable) Get(_ context.Context, uid string) (*domain.Presence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.states[uid]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeDurable) stateOf(uid string) domain.PresenceState {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.states[uid]
	if !ok {
		return ""
	}
	return p.State
}

// fakeFeed pilote la connectivité depuis les tests.
type fakeFeed struct{ ch chan domain.ConnectivityEvent }

func newFakeFeed() *fakeFeed {
	return &fakeFeed{ch: make(chan domain.ConnectivityEvent, 8)}
}

func (f *fakeFeed) Events() <-chan domain.ConnectivityEvent { return f.ch }

func (f *fakeFeed) emit(ev domain.ConnectivityEvent) { f.ch <- ev }

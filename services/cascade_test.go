package services

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/knowledgenexus/forum/models"
	"github.com/knowledgenexus/forum/store"
	"github.com/knowledgenexus/forum/store/storetest"
	"github.com/knowledgenexus/forum/utils"
)

type fixture struct {
	store   *store.GormStore
	courses *PostService
	replies *ReplyService
	a, b, c *Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := storetest.New(t)
	logger := zaptest.NewLogger(t)
	actor := func(u *models.User) *Actor { return &Actor{ID: u.ID, Username: u.Username, Role: u.Role} }
	return &fixture{
		store:   s,
		courses: NewPostService(s, models.KindCourse, logger),
		replies: NewReplyService(s, logger),
		a:       actor(storetest.MustUser(t, s, "alice", models.RoleRegular)),
		b:       actor(storetest.MustUser(t, s, "bob", models.RoleRegular)),
		c:       actor(storetest.MustUser(t, s, "carol", models.RoleAdmin)),
	}
}

func (f *fixture) user(t *testing.T, id string) *models.User {
	t.Helper()
	u, err := f.store.Users().Find(context.Background(), id)
	if err != nil {
		t.Fatalf("find user %s: %v", id, err)
	}
	return u
}

func (f *fixture) replyCount(t *testing.T) int64 {
	t.Helper()
	n, err := f.store.Replies().Count(context.Background())
	if err != nil {
		t.Fatalf("count replies: %v", err)
	}
	return n
}

func (f *fixture) course(t *testing.T, owner *Actor, title string) *models.Post {
	t.Helper()
	p, err := f.courses.Create(context.Background(), owner, PostInput{Title: title, Description: "about " + title})
	if err != nil {
		t.Fatalf("create course: %v", err)
	}
	return p
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func TestCreateAddsPostToCreator(t *testing.T) {
	f := newFixture(t)
	p := f.course(t, f.a, "Go basics")

	if p.Creator == nil || p.Creator.ID != f.a.ID {
		t.Fatalf("creator not expanded: %+v", p.Creator)
	}
	a := f.user(t, f.a.ID)
	if a.PostsCount != 1 || !contains(a.Posts, p.ID) {
		t.Fatalf("creator counters not updated: count=%d posts=%v", a.PostsCount, a.Posts)
	}
}

func TestCreateRequiresTitleAndDescription(t *testing.T) {
	f := newFixture(t)
	_, err := f.courses.Create(context.Background(), f.a, PostInput{Title: "  ", Description: "x"})
	if utils.KindOf(err) != utils.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if a := f.user(t, f.a.ID); a.PostsCount != 0 {
		t.Fatalf("counter moved on failed create: %d", a.PostsCount)
	}
}

// Alice owns a course with two replies; Bob may not delete it, the admin Carol may.
func TestDeletePostOwnershipScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.course(t, f.a, "Intro")
	own := f.course(t, f.c, "Admin notes")
	for _, actor := range []*Actor{f.b, f.a} {
		if _, err := f.replies.Create(ctx, actor, p.ID, "reply by "+actor.Username); err != nil {
			t.Fatalf("create reply: %v", err)
		}
	}

	err := f.courses.Delete(ctx, f.b, p.ID)
	if utils.KindOf(err) != utils.KindForbidden {
		t.Fatalf("bob: expected forbidden, got %v", err)
	}
	if _, err := f.courses.Find(ctx, p.ID); err != nil {
		t.Fatalf("post gone after forbidden delete: %v", err)
	}
	if n := f.replyCount(t); n != 2 {
		t.Fatalf("replies changed after forbidden delete: %d", n)
	}
	if a := f.user(t, f.a.ID); a.PostsCount != 1 {
		t.Fatalf("alice counter changed after forbidden delete: %d", a.PostsCount)
	}

	if err := f.courses.Delete(ctx, f.c, p.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if _, err := f.courses.Find(ctx, p.ID); utils.KindOf(err) != utils.KindNotFound {
		t.Fatalf("post still readable: %v", err)
	}
	if n := f.replyCount(t); n != 0 {
		t.Fatalf("orphaned replies: %d", n)
	}
	a := f.user(t, f.a.ID)
	if a.PostsCount != 0 || contains(a.Posts, p.ID) {
		t.Fatalf("alice counters not adjusted: count=%d posts=%v", a.PostsCount, a.Posts)
	}
	c := f.user(t, f.c.ID)
	if c.PostsCount != 1 || !contains(c.Posts, own.ID) {
		t.Fatalf("admin counters touched: count=%d posts=%v", c.PostsCount, c.Posts)
	}
}

func TestDeletePostByCreator(t *testing.T) {
	f := newFixture(t)
	p := f.course(t, f.a, "Mine")
	if err := f.courses.Delete(context.Background(), f.a, p.ID); err != nil {
		t.Fatalf("creator delete: %v", err)
	}
	if a := f.user(t, f.a.ID); a.PostsCount != 0 || len(a.Posts) != 0 {
		t.Fatalf("counters not adjusted: %+v", a)
	}
}

func TestDeleteMissingPostIsNotFound(t *testing.T) {
	f := newFixture(t)
	f.course(t, f.a, "Keep")
	err := f.courses.Delete(context.Background(), f.c, "no-such-id")
	if utils.KindOf(err) != utils.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if a := f.user(t, f.a.ID); a.PostsCount != 1 {
		t.Fatalf("counter changed: %d", a.PostsCount)
	}
}

func TestDeleteWrongKindIsNotFound(t *testing.T) {
	f := newFixture(t)
	p := f.course(t, f.a, "Course only")
	forums := NewPostService(f.store, models.KindForum, nil)
	if err := forums.Delete(context.Background(), f.a, p.ID); utils.KindOf(err) != utils.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteRequiresActor(t *testing.T) {
	f := newFixture(t)
	p := f.course(t, f.a, "Anon")
	if err := f.courses.Delete(context.Background(), nil, p.ID); utils.KindOf(err) != utils.KindUnauthenticated {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestRepeatedDeleteDoesNotDoubleDecrement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.course(t, f.a, "Once")
	f.course(t, f.a, "Twice")

	if err := f.courses.Delete(ctx, f.a, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := f.courses.Delete(ctx, f.a, p.ID); utils.KindOf(err) != utils.KindNotFound {
		t.Fatalf("second delete: expected not found, got %v", err)
	}

	counter := NewPostCounter(nil)
	if err := counter.Removed(ctx, f.store.Users(), f.a.ID, p.ID); err != nil {
		t.Fatalf("replayed decrement: %v", err)
	}
	if a := f.user(t, f.a.ID); a.PostsCount != 1 || len(a.Posts) != 1 {
		t.Fatalf("double decrement: count=%d posts=%v", a.PostsCount, a.Posts)
	}
}

func TestDeleteClampsCorruptCounter(t *testing.T) {
	f := newFixture(t)
	p := f.course(t, f.a, "Drifted")
	if err := f.store.DB().Model(&models.User{}).Where("id = ?", f.a.ID).Update("posts_count", 0).Error; err != nil {
		t.Fatalf("corrupt counter: %v", err)
	}
	if err := f.courses.Delete(context.Background(), f.a, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if a := f.user(t, f.a.ID); a.PostsCount != 0 {
		t.Fatalf("counter went below zero: %d", a.PostsCount)
	}
}

type failingDeleteStore struct{ store.Store }

func (f failingDeleteStore) Posts() store.PostStore { return failingPosts{f.Store.Posts()} }

func (f failingDeleteStore) WithTx(ctx context.Context, fn func(context.Context, store.Store) error) error {
	return f.Store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		return fn(ctx, failingDeleteStore{tx})
	})
}

type failingPosts struct{ store.PostStore }

func (failingPosts) Delete(context.Context, string, string) (bool, error) {
	return false, errors.New("disk full")
}

func TestDeleteFailureRollsBackCascade(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.course(t, f.a, "Sticky")
	if _, err := f.replies.Create(ctx, f.b, p.ID, "still here"); err != nil {
		t.Fatalf("create reply: %v", err)
	}

	cascade := NewCascadeCoordinator(failingDeleteStore{f.store}, nil, zaptest.NewLogger(t))
	err := cascade.DeletePost(ctx, f.a, models.KindCourse, p.ID)
	if utils.KindOf(err) != utils.KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}

	if _, err := f.courses.Find(ctx, p.ID); err != nil {
		t.Fatalf("post lost after failed cascade: %v", err)
	}
	if n := f.replyCount(t); n != 1 {
		t.Fatalf("replies not restored: %d", n)
	}
	if a := f.user(t, f.a.ID); a.PostsCount != 1 || !contains(a.Posts, p.ID) {
		t.Fatalf("counter not restored: count=%d posts=%v", a.PostsCount, a.Posts)
	}
}

type failingUsers struct {
	store.UserStore
	err error
}

func (f failingUsers) AdjustPostCount(context.Context, string, string, int) (store.Adjustment, error) {
	return store.Adjustment{}, f.err
}

// counterFailStore fails every posts-set update inside its transactions.
type counterFailStore struct {
	store.Store
	err error
}

func (s counterFailStore) Users() store.UserStore { return failingUsers{s.Store.Users(), s.err} }

func (s counterFailStore) WithTx(ctx context.Context, fn func(context.Context, store.Store) error) error {
	return s.Store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		return fn(ctx, counterFailStore{tx, s.err})
	})
}

func TestDeleteCounterDeadlineIsTimeout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.course(t, f.a, "Slow")

	cascade := NewCascadeCoordinator(counterFailStore{f.store, context.DeadlineExceeded}, nil, zaptest.NewLogger(t))
	err := cascade.DeletePost(ctx, f.a, models.KindCourse, p.ID)
	if utils.KindOf(err) != utils.KindTimeout {
		t.Fatalf("expected timeout, got %v", err)
	}
	if _, err := f.courses.Find(ctx, p.ID); err != nil {
		t.Fatalf("post lost after timed out cascade: %v", err)
	}
}

// detachedStore runs WithTx callbacks without a transaction, like MongoDB on a
// standalone server.
type detachedStore struct {
	*store.GormStore
	users store.UserStore
}

func (d detachedStore) Users() store.UserStore { return d.users }

func (d detachedStore) WithTx(ctx context.Context, fn func(context.Context, store.Store) error) error {
	return fn(ctx, d)
}

func TestCreateDiscardsPostWhenCounterFailsWithoutTransaction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := detachedStore{GormStore: f.store, users: failingUsers{f.store.Users(), errors.New("connection reset")}}
	courses := NewPostService(s, models.KindCourse, zaptest.NewLogger(t))

	_, err := courses.Create(ctx, f.a, PostInput{Title: "Lost", Description: "never listed"})
	if utils.KindOf(err) != utils.KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
	n, err := f.store.Posts().Count(ctx, models.KindCourse)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("post left without a creator entry: %d", n)
	}
}

func TestCreateRollsBackWhenCounterFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	courses := NewPostService(counterFailStore{f.store, errors.New("connection reset")}, models.KindCourse, nil)

	if _, err := courses.Create(ctx, f.a, PostInput{Title: "Lost", Description: "rolled back"}); err == nil {
		t.Fatal("expected an error")
	}
	if n, _ := f.store.Posts().Count(ctx, ""); n != 0 {
		t.Fatalf("post survived rollback: %d", n)
	}
}

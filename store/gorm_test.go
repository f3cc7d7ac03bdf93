package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/knowledgenexus/forum/models"
	"github.com/knowledgenexus/forum/store"
	"github.com/knowledgenexus/forum/store/storetest"
)

func newPost(kind, creatorID, title string, createdAt time.Time) *models.Post {
	return &models.Post{
		Kind:        kind,
		Title:       title,
		Description: title + " description",
		CreatorID:   creatorID,
		Tags:        []string{"go"},
		CreatedAt:   createdAt,
	}
}

func TestAdjustPostCountHasSetSemantics(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	u := storetest.MustUser(t, s, "alice", models.RoleRegular)

	adj, err := s.Users().AdjustPostCount(ctx, u.ID, "p1", 1)
	if err != nil || !adj.Changed {
		t.Fatalf("first add: adj=%+v err=%v", adj, err)
	}
	adj, err = s.Users().AdjustPostCount(ctx, u.ID, "p1", 1)
	if err != nil || adj.Changed {
		t.Fatalf("repeated add should be a no-op: adj=%+v err=%v", adj, err)
	}

	got, err := s.Users().Find(ctx, u.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.PostsCount != 1 || len(got.Posts) != 1 || got.Posts[0] != "p1" {
		t.Fatalf("after add: count=%d posts=%v", got.PostsCount, got.Posts)
	}

	adj, err = s.Users().AdjustPostCount(ctx, u.ID, "p1", -1)
	if err != nil || !adj.Changed || adj.Clamped {
		t.Fatalf("remove: adj=%+v err=%v", adj, err)
	}
	adj, err = s.Users().AdjustPostCount(ctx, u.ID, "p1", -1)
	if err != nil || adj.Changed {
		t.Fatalf("repeated remove should be a no-op: adj=%+v err=%v", adj, err)
	}

	got, _ = s.Users().Find(ctx, u.ID)
	if got.PostsCount != 0 || len(got.Posts) != 0 {
		t.Fatalf("after remove: count=%d posts=%v", got.PostsCount, got.Posts)
	}
}

func TestAdjustPostCountClampsAtZero(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	u := storetest.MustUser(t, s, "bob", models.RoleRegular)

	if _, err := s.Users().AdjustPostCount(ctx, u.ID, "p1", 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.DB().Model(&models.User{}).Where("id = ?", u.ID).Update("posts_count", 0).Error; err != nil {
		t.Fatalf("corrupt counter: %v", err)
	}

	adj, err := s.Users().AdjustPostCount(ctx, u.ID, "p1", -1)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !adj.Changed || !adj.Clamped {
		t.Fatalf("expected clamped removal, got %+v", adj)
	}
	got, _ := s.Users().Find(ctx, u.ID)
	if got.PostsCount != 0 {
		t.Fatalf("count went negative: %d", got.PostsCount)
	}
}

func TestAdjustPostCountRejectsBadDelta(t *testing.T) {
	s := storetest.New(t)
	if _, err := s.Users().AdjustPostCount(context.Background(), "u", "p", 2); err == nil {
		t.Fatal("expected an error for delta 2")
	}
}

func TestUserCreateDuplicateUsername(t *testing.T) {
	s := storetest.New(t)
	storetest.MustUser(t, s, "carol", models.RoleRegular)
	err := s.Users().Create(context.Background(), &models.User{Username: "carol"})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestListExpandedNewestFirstWithoutCredentials(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	u := &models.User{Username: "dave", PasswordHash: "not-a-real-hash"}
	if err := s.Users().Create(ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, title := range []string{"first", "second", "third"} {
		if err := s.Posts().Create(ctx, newPost(models.KindCourse, u.ID, title, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("create post: %v", err)
		}
	}
	if err := s.Posts().Create(ctx, newPost(models.KindForum, u.ID, "forum", base)); err != nil {
		t.Fatalf("create forum post: %v", err)
	}

	posts, err := s.Posts().ListExpanded(ctx, models.KindCourse)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("expected 3 course posts, got %d", len(posts))
	}
	for i, want := range []string{"third", "second", "first"} {
		if posts[i].Title != want {
			t.Fatalf("position %d: got %q want %q", i, posts[i].Title, want)
		}
		if posts[i].Creator == nil || posts[i].Creator.Username != "dave" {
			t.Fatalf("creator not expanded: %+v", posts[i].Creator)
		}
		if posts[i].Creator.PasswordHash != "" {
			t.Fatal("credential hash leaked into expanded creator")
		}
	}
}

func TestFindExpandedRepliesOldestFirst(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	u := storetest.MustUser(t, s, "erin", models.RoleRegular)
	post := newPost(models.KindForum, u.ID, "topic", time.Now())
	if err := s.Posts().Create(ctx, post); err != nil {
		t.Fatalf("create post: %v", err)
	}
	base := time.Now()
	for i, body := range []string{"one", "two"} {
		r := &models.Reply{PostID: post.ID, CreatorID: u.ID, Body: body, CreatedAt: base.Add(time.Duration(i) * time.Second)}
		if err := s.Replies().Create(ctx, r); err != nil {
			t.Fatalf("create reply: %v", err)
		}
	}

	got, err := s.Posts().FindExpanded(ctx, models.KindForum, post.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got.Replies) != 2 || got.Replies[0].Body != "one" || got.Replies[1].Body != "two" {
		t.Fatalf("unexpected replies: %+v", got.Replies)
	}
	if got.Replies[0].Creator == nil || got.Replies[0].Creator.Username != "erin" {
		t.Fatal("reply creator not expanded")
	}

	shallow, err := s.Posts().Find(ctx, "", post.ID)
	if err != nil {
		t.Fatalf("shallow find: %v", err)
	}
	if len(shallow.ReplyIDs) != 2 {
		t.Fatalf("expected 2 reply ids, got %v", shallow.ReplyIDs)
	}

	if _, err := s.Posts().FindExpanded(ctx, models.KindCourse, post.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("kind mismatch should be not found, got %v", err)
	}
}

func TestSetVoteTogglesBetweenSets(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	u := storetest.MustUser(t, s, "frank", models.RoleRegular)
	post := newPost(models.KindCourse, u.ID, "votes", time.Now())
	if err := s.Posts().Create(ctx, post); err != nil {
		t.Fatalf("create post: %v", err)
	}

	if err := s.Posts().SetVote(ctx, post.ID, u.ID, 1); err != nil {
		t.Fatalf("upvote: %v", err)
	}
	got, _ := s.Posts().Find(ctx, "", post.ID)
	if len(got.UpVotes) != 1 || len(got.DownVotes) != 0 {
		t.Fatalf("after upvote: up=%v down=%v", got.UpVotes, got.DownVotes)
	}

	if err := s.Posts().SetVote(ctx, post.ID, u.ID, -1); err != nil {
		t.Fatalf("downvote: %v", err)
	}
	got, _ = s.Posts().Find(ctx, "", post.ID)
	if len(got.UpVotes) != 0 || len(got.DownVotes) != 1 {
		t.Fatalf("after downvote: up=%v down=%v", got.UpVotes, got.DownVotes)
	}

	if err := s.Posts().SetVote(ctx, post.ID, u.ID, 0); err != nil {
		t.Fatalf("clear vote: %v", err)
	}
	got, _ = s.Posts().Find(ctx, "", post.ID)
	if len(got.UpVotes)+len(got.DownVotes) != 0 {
		t.Fatalf("vote not cleared: up=%v down=%v", got.UpVotes, got.DownVotes)
	}

	if err := s.Posts().SetVote(ctx, "missing", u.ID, 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateAppliesPatch(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	u := storetest.MustUser(t, s, "gina", models.RoleRegular)
	post := newPost(models.KindCourse, u.ID, "before", time.Now())
	if err := s.Posts().Create(ctx, post); err != nil {
		t.Fatalf("create post: %v", err)
	}

	title := "after"
	tags := []string{"a", "b"}
	if err := s.Posts().Update(ctx, models.KindCourse, post.ID, models.PostPatch{Title: &title, Tags: &tags}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := s.Posts().FindExpanded(ctx, models.KindCourse, post.ID)
	if got.Title != "after" || got.Description != "before description" {
		t.Fatalf("unexpected post after update: %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[1] != "b" {
		t.Fatalf("tags not updated: %v", got.Tags)
	}
	if got.CreatorID != u.ID {
		t.Fatal("creator changed on update")
	}

	err := s.Posts().Update(ctx, models.KindCourse, "missing", models.PostPatch{Title: &title})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteRemovesVotesAndIsRepeatable(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	u := storetest.MustUser(t, s, "hank", models.RoleRegular)
	post := newPost(models.KindCourse, u.ID, "gone", time.Now())
	if err := s.Posts().Create(ctx, post); err != nil {
		t.Fatalf("create post: %v", err)
	}
	if err := s.Posts().SetVote(ctx, post.ID, u.ID, 1); err != nil {
		t.Fatalf("vote: %v", err)
	}

	removed, err := s.Posts().Delete(ctx, models.KindCourse, post.ID)
	if err != nil || !removed {
		t.Fatalf("delete: removed=%v err=%v", removed, err)
	}
	removed, err = s.Posts().Delete(ctx, models.KindCourse, post.ID)
	if err != nil || removed {
		t.Fatalf("second delete: removed=%v err=%v", removed, err)
	}

	var votes int64
	s.DB().Model(&models.PostVote{}).Where("post_id = ?", post.ID).Count(&votes)
	if votes != 0 {
		t.Fatalf("votes left behind: %d", votes)
	}
}

func TestDeleteManySkipsAbsentReplies(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	u := storetest.MustUser(t, s, "iris", models.RoleRegular)
	r := &models.Reply{PostID: "p", CreatorID: u.ID, Body: "hi"}
	if err := s.Replies().Create(ctx, r); err != nil {
		t.Fatalf("create reply: %v", err)
	}

	n, err := s.Replies().DeleteMany(ctx, []string{r.ID, "never-existed"})
	if err != nil || n != 1 {
		t.Fatalf("delete many: n=%d err=%v", n, err)
	}
	n, err = s.Replies().DeleteMany(ctx, []string{r.ID})
	if err != nil || n != 0 {
		t.Fatalf("repeat delete many: n=%d err=%v", n, err)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	u := storetest.MustUser(t, s, "jack", models.RoleRegular)
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.Posts().Create(ctx, newPost(models.KindCourse, u.ID, "tx", time.Now())); err != nil {
			return err
		}
		if _, err := tx.Users().AdjustPostCount(ctx, u.ID, "tx-post", 1); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	n, _ := s.Posts().Count(ctx, "")
	if n != 0 {
		t.Fatalf("post survived rollback")
	}
	got, _ := s.Users().Find(ctx, u.ID)
	if got.PostsCount != 0 || len(got.Posts) != 0 {
		t.Fatalf("counter survived rollback: %+v", got)
	}
}

func TestReadsOfVotedPostLoadEveryVote(t *testing.T) {
	ctx := context.Background()
	s := storetest.New(t)
	owner := storetest.MustUser(t, s, "kate", models.RoleRegular)
	fan := storetest.MustUser(t, s, "liam", models.RoleRegular)
	critic := storetest.MustUser(t, s, "mona", models.RoleRegular)
	post := newPost(models.KindCourse, owner.ID, "popular", time.Now())
	if err := s.Posts().Create(ctx, post); err != nil {
		t.Fatalf("create post: %v", err)
	}
	votes := map[string]int{owner.ID: 1, fan.ID: 1, critic.ID: -1}
	for userID, value := range votes {
		if err := s.Posts().SetVote(ctx, post.ID, userID, value); err != nil {
			t.Fatalf("vote: %v", err)
		}
	}

	check := func(name string, p *models.Post) {
		t.Helper()
		if len(p.UpVotes) != 2 || len(p.DownVotes) != 1 || p.DownVotes[0] != critic.ID {
			t.Fatalf("%s: up=%v down=%v", name, p.UpVotes, p.DownVotes)
		}
	}

	shallow, err := s.Posts().Find(ctx, models.KindCourse, post.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	check("find", shallow)

	err = s.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		locked, err := tx.Posts().Find(ctx, models.KindCourse, post.ID)
		if err != nil {
			return err
		}
		check("locked find", locked)
		return nil
	})
	if err != nil {
		t.Fatalf("find in tx: %v", err)
	}

	expanded, err := s.Posts().FindExpanded(ctx, models.KindCourse, post.ID)
	if err != nil {
		t.Fatalf("find expanded: %v", err)
	}
	check("find expanded", expanded)

	listed, err := s.Posts().ListExpanded(ctx, models.KindCourse)
	if err != nil || len(listed) != 1 {
		t.Fatalf("list: n=%d err=%v", len(listed), err)
	}
	check("list", &listed[0])

	byCreator, err := s.Posts().ListByCreator(ctx, owner.ID)
	if err != nil || len(byCreator) != 1 {
		t.Fatalf("list by creator: n=%d err=%v", len(byCreator), err)
	}
	check("list by creator", &byCreator[0])
}

package identity

import (
	"context"
	"testing"
	"time"

	"kwlnk/cmd/internal/pgtest"
)

// Integration tests are opt-in and require KWLNK_DATABASE_URL.

func mustNewIdentityStore(t *testing.T) *PostgresStore {
	t.Helper()

	s, err := NewPostgresStore(pgtest.OpenPool(t))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestPostgresStore_Insert_ConflictOnID(t *testing.T) {
	t.Parallel()

	s := mustNewIdentityStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	a := Account{ID: "alice", PasswordHash: "h"}
	a.Stamp(time.Now().UTC(), BootstrapActor)
	if err := s.Insert(ctx, a); err != nil {
		t.Fatalf("insert: %v", err)
	}
	err := s.Insert(ctx, a)
	if !IsConflict(err) {
		t.Fatalf("expected conflict error, got: %v", err)
	}
}

func TestPostgresStore_GetUpdateDelete(t *testing.T) {
	t.Parallel()

	s := mustNewIdentityStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Microsecond)
	a := Account{ID: "bob", PasswordHash: "h"}
	a.Stamp(now, "alice")
	if err := s.Insert(ctx, a); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := s.Get(ctx, "bob")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CreatedBy != "alice" || !got.CreatedAt.Equal(now) {
		t.Fatalf("unexpected provenance: %+v", got.Provenance)
	}

	got.Disabled = true
	got.Touch(now.Add(time.Minute), "bob")
	if err := s.Update(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err = s.Get(ctx, "bob")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Disabled || got.UpdatedBy != "bob" {
		t.Fatalf("update not persisted: %+v", got)
	}

	if err := s.Delete(ctx, "bob"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "bob"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.Update(ctx, got); !IsNotFound(err) {
		t.Fatalf("expected not found on update, got %v", err)
	}
}

func TestPostgresStore_ListAndCount(t *testing.T) {
	t.Parallel()

	s := mustNewIdentityStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	for _, id := range []string{"c", "a", "b"} {
		a := Account{ID: id, PasswordHash: "h"}
		a.Stamp(time.Now().UTC(), BootstrapActor)
		if err := s.Insert(ctx, a); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	page, err := s.List(ctx, ListOptions{Offset: 1, Limit: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 1 || page[0].ID != "b" {
		t.Fatalf("unexpected page: %+v", page)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("count=%d want 3", n)
	}
}

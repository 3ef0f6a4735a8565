package querykey

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewStore(t *testing.T) {
	reg, err := NewStore(map[string]Schema{
		"users": {
			"all":    Null(),
			"detail": Dynamic1(func(id string) Def { return Literal(id) }),
		},
		"todos": nil,
	})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	if diff := cmp.Diff([]string{"todos", "users"}, reg.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}

	todos := reg.MustScope("todos")
	if todos.Len() != 0 {
		t.Errorf("todos.Len() = %d, want 0", todos.Len())
	}
	assertKey(t, todos.Def(), "todos")

	users := reg.MustScope("users")
	assertKey(t, users.MustLeaf("all").Key(), "users", "all")
	assertKey(t, users.MustOperation("detail").MustCall("u1").Key(), "users", "detail", "u1")
}

func TestNewStore_PropagatesErrors(t *testing.T) {
	_, err := NewStore(map[string]Schema{
		"users": {"_def": Null()},
	})
	if !errors.Is(err, ErrReservedName) {
		t.Errorf("NewStore() error = %v, want ErrReservedName", err)
	}
}

package querykey

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"
)

func assertKey(t *testing.T, got Key, want ...any) {
	t.Helper()
	if diff := cmp.Diff(NewKey(want...), got, keyComparer); diff != "" {
		t.Errorf("key mismatch (-want +got):\n%s\n  got: %s", diff, got)
	}
}

func fetchConst(v any) FetchFunc {
	return func(ctx context.Context, fc FetchContext) (any, error) {
		return v, nil
	}
}

func TestCompose_RootOnly(t *testing.T) {
	s, err := Compose("x", nil)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	assertKey(t, s.Def(), "x")
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
	if s.Name() != "x" {
		t.Errorf("Name() = %q, want x", s.Name())
	}
	if diff := cmp.Diff(map[string]Key{"_def": NewKey("x")}, s.Keys(), keyComparer); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
}

func TestCompose_EmptyRoot(t *testing.T) {
	for _, root := range []string{"", "   "} {
		if _, err := Compose(root, Schema{"a": Null()}); !errors.Is(err, ErrEmptyRoot) {
			t.Errorf("Compose(%q) error = %v, want ErrEmptyRoot", root, err)
		}
	}
}

func TestCompose_StaticNullLeaf(t *testing.T) {
	todos := MustCompose("todos", Schema{"done": Null()})

	leaf := todos.MustLeaf("done")
	assertKey(t, leaf.Key(), "todos", "done")
	if _, ok := leaf.Def(); ok {
		t.Error("null leaf should not carry a definition key")
	}
	if leaf.Kind() != KindEmpty {
		t.Errorf("Kind() = %v, want %v", leaf.Kind(), KindEmpty)
	}
}

func TestCompose_ZeroDefBehavesLikeNull(t *testing.T) {
	todos := MustCompose("todos", Schema{"done": {}})
	assertKey(t, todos.MustLeaf("done").Key(), "todos", "done")
}

func TestCompose_StaticTupleSpreads(t *testing.T) {
	todos := MustCompose("todos", Schema{"detail": Literal("id1")})

	leaf := todos.MustLeaf("detail")
	if leaf.Key().Len() != 3 {
		t.Fatalf("Key().Len() = %d, want 3", leaf.Key().Len())
	}
	assertKey(t, leaf.Key(), "todos", "detail", "id1")

	def, ok := leaf.Def()
	if !ok {
		t.Fatal("literal leaf should carry a definition key")
	}
	assertKey(t, def, "todos", "detail")
}

func TestCompose_EmptyLiteralKeepsDef(t *testing.T) {
	todos := MustCompose("todos", Schema{"all": Literal()})

	leaf := todos.MustLeaf("all")
	assertKey(t, leaf.Key(), "todos", "all")
	if _, ok := leaf.Def(); !ok {
		t.Error("empty literal should still carry a definition key")
	}
}

func TestCompose_StructuredLeaves(t *testing.T) {
	users := MustCompose("users", Schema{
		"me":      WithFetch(fetchConst("me")),
		"profile": WithFetch(fetchConst("profile"), "u1"),
		"detail": WithNested(Schema{
			"settings": Null(),
		}, "u2"),
		"admin": WithFetchAndNested(fetchConst("admin"), Schema{
			"roles": Literal("all"),
		}),
	})

	tests := []struct {
		name     string
		wantKey  []any
		wantDef  []any
		kind     Kind
		hasFetch bool
	}{
		{"me", []any{"users", "me"}, nil, KindWithFetch, true},
		{"profile", []any{"users", "profile", "u1"}, []any{"users", "profile"}, KindWithFetch, true},
		{"detail", []any{"users", "detail", "u2"}, []any{"users", "detail"}, KindWithNested, false},
		{"admin", []any{"users", "admin"}, nil, KindWithFetchAndNested, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leaf := users.MustLeaf(tt.name)
			assertKey(t, leaf.Key(), tt.wantKey...)

			def, ok := leaf.Def()
			if tt.wantDef == nil {
				if ok {
					t.Errorf("unexpected definition key %s", def)
				}
			} else {
				if !ok {
					t.Fatal("missing definition key")
				}
				assertKey(t, def, tt.wantDef...)
			}

			if leaf.Kind() != tt.kind {
				t.Errorf("Kind() = %v, want %v", leaf.Kind(), tt.kind)
			}
			if leaf.HasFetch() != tt.hasFetch {
				t.Errorf("HasFetch() = %v, want %v", leaf.HasFetch(), tt.hasFetch)
			}
		})
	}

	settings := users.MustLeaf("detail").Context().MustLeaf("settings")
	assertKey(t, settings.Key(), "users", "detail", "u2", "settings")

	roles := users.MustLeaf("admin").Context().MustLeaf("roles")
	assertKey(t, roles.Key(), "users", "admin", "roles", "all")
}

func TestCompose_FetchOptionsCarryKey(t *testing.T) {
	var seen Key
	users := MustCompose("users", Schema{
		"me": WithFetch(func(ctx context.Context, fc FetchContext) (any, error) {
			seen = fc.Key
			return "alice", nil
		}),
	})

	opts := users.MustLeaf("me").Options()
	got, err := opts.Execute(context.Background(), FetchContext{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got != "alice" {
		t.Errorf("Execute() = %v, want alice", got)
	}
	assertKey(t, seen, "users", "me")
}

func TestOptions_ExecuteWithoutFetch(t *testing.T) {
	users := MustCompose("users", Schema{"all": Null()})
	_, err := users.MustLeaf("all").Options().Execute(context.Background(), FetchContext{})
	if !errors.Is(err, ErrNoFetch) {
		t.Errorf("Execute() error = %v, want ErrNoFetch", err)
	}
}

func TestCompose_DynamicLeaf(t *testing.T) {
	todos := MustCompose("todos", Schema{
		"detail": Dynamic1(func(id string) Def { return Literal(id) }),
	})

	op := todos.MustOperation("detail")
	assertKey(t, op.Def(), "todos", "detail")

	leaf, err := op.Call("abc")
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	assertKey(t, leaf.Key(), "todos", "detail", "abc")
	if _, ok := leaf.Def(); ok {
		t.Error("call results should not carry a definition key")
	}

	// The definition key is independent of any call.
	assertKey(t, op.Def(), "todos", "detail")
}

func TestCompose_DynamicReturnShapes(t *testing.T) {
	users := MustCompose("users", Schema{
		"search": Dynamic2(func(q string, page int) Def {
			return Literal(q, map[string]any{"page": page})
		}),
		"nullKey": Dynamic(func(args ...any) Def { return WithFetch(fetchConst(args)) }),
		"zero":    Dynamic(func(args ...any) Def { return Def{} }),
		"byID": Dynamic1(func(id string) Def {
			return WithFetchAndNested(fetchConst(id), Schema{
				"avatar": Null(),
				"posts":  Dynamic1(func(n int) Def { return Literal(n) }),
			}, id)
		}),
	})

	search := users.MustOperation("search").MustCall("bob", 2)
	assertKey(t, search.Key(), "users", "search", "bob", map[string]any{"page": 2})

	nullKey := users.MustOperation("nullKey").MustCall()
	assertKey(t, nullKey.Key(), "users", "nullKey")
	if !nullKey.HasFetch() {
		t.Error("expected fetch function on dynamic result")
	}

	zero := users.MustOperation("zero").MustCall()
	assertKey(t, zero.Key(), "users", "zero")

	byID := users.MustOperation("byID").MustCall("u9")
	assertKey(t, byID.Key(), "users", "byID", "u9")
	assertKey(t, byID.Context().MustLeaf("avatar").Key(), "users", "byID", "u9", "avatar")

	posts := byID.Context().MustOperation("posts")
	assertKey(t, posts.Def(), "users", "byID", "u9", "posts")
	assertKey(t, posts.MustCall(3).Key(), "users", "byID", "u9", "posts", 3)
}

func TestCompose_NestedContextualScope(t *testing.T) {
	users := MustCompose("users", Schema{
		"detail": Dynamic1(func(id string) Def {
			return WithNested(Schema{"settings": Null()}, id)
		}),
	})

	leaf, err := users.MustOperation("detail").Call("u1")
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	ctx := leaf.Context()
	if ctx == nil {
		t.Fatal("expected contextual scope")
	}
	assertKey(t, ctx.Def(), "users", "detail", "u1")
	assertKey(t, ctx.MustLeaf("settings").Key(), "users", "detail", "u1", "settings")
}

func TestCompose_ReservedNames(t *testing.T) {
	tests := []struct {
		name     string
		schema   Schema
		wantName string
		wantPath string
	}{
		{
			name:     "def",
			schema:   Schema{"_def": Literal("override"), "prop": Null()},
			wantName: "_def",
			wantPath: "users",
		},
		{
			name:     "internal shape",
			schema:   Schema{"_myOwnKey": Literal("x"), "prop": Null()},
			wantName: "_myOwnKey",
			wantPath: "users",
		},
		{
			name: "nested",
			schema: Schema{
				"detail": WithNested(Schema{"_ctx": Null()}, "u1"),
			},
			wantName: "_ctx",
			wantPath: "users.detail._ctx",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Compose("users", tt.schema)
			if err == nil {
				t.Fatal("expected error")
			}
			if s != nil {
				t.Error("no scope should be returned on error")
			}
			if !errors.Is(err, ErrReservedName) {
				t.Errorf("error = %v, want ErrReservedName", err)
			}

			var rerr *ReservedNameError
			if !errors.As(err, &rerr) {
				t.Fatalf("expected *ReservedNameError, got %T", err)
			}
			if rerr.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", rerr.Name, tt.wantName)
			}
			if rerr.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", rerr.Path, tt.wantPath)
			}
		})
	}
}

func TestCompose_ReservedNameMessage(t *testing.T) {
	_, err := Compose("users", Schema{"_def": Null()})
	want := `querykey: "_def" in "users": keys that start with "_" are reserved for the key composer`
	if err == nil || err.Error() != want {
		t.Errorf("error = %v, want %s", err, want)
	}
}

func TestCompose_MustComposePanicsOnReservedName(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	MustCompose("users", Schema{"_def": Null()})
}

func TestCompose_CustomReservedPrefix(t *testing.T) {
	s, err := Compose("users", Schema{"_legacy": Null()}, WithReservedPrefix("$"))
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	assertKey(t, s.MustLeaf("_legacy").Key(), "users", "_legacy")

	if _, err := Compose("users", Schema{"$x": Null()}, WithReservedPrefix("$")); !errors.Is(err, ErrReservedName) {
		t.Errorf("error = %v, want ErrReservedName", err)
	}
}

func TestOperation_CallTimeErrors(t *testing.T) {
	users := MustCompose("users", Schema{
		"reserved": Dynamic(func(args ...any) Def {
			return WithNested(Schema{"_def": Null()})
		}),
		"nested": Dynamic(func(args ...any) Def {
			return Dynamic(func(args ...any) Def { return Null() })
		}),
		"typed": Dynamic1(func(id string) Def { return Literal(id) }),
		"pair": DynamicN(2, func(args ...any) Def { return Literal(args...) }),
		"badSegment": Dynamic(func(args ...any) Def {
			return Literal(make(chan int))
		}),
	})

	tests := []struct {
		name string
		op   string
		args []any
		want error
	}{
		{"reserved nested name", "reserved", nil, ErrReservedName},
		{"dynamic returning dynamic", "nested", nil, ErrNestedDynamic},
		{"wrong arity", "typed", []any{"a", "b"}, ErrArgs},
		{"wrong type", "typed", []any{42}, ErrArgs},
		{"nil for value type", "typed", []any{nil}, ErrArgs},
		{"fixed arity", "pair", []any{"a"}, ErrArgs},
		{"unencodable segment", "badSegment", nil, ErrInvalidSegment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leaf, err := users.MustOperation(tt.op).Call(tt.args...)
			if !errors.Is(err, tt.want) {
				t.Errorf("Call() error = %v, want %v", err, tt.want)
			}
			if leaf != nil {
				t.Error("no leaf should be returned on error")
			}
		})
	}
}

func TestCompose_InvalidStaticSegment(t *testing.T) {
	_, err := Compose("todos", Schema{"bad": Literal(func() {})})
	if !errors.Is(err, ErrInvalidSegment) {
		t.Errorf("error = %v, want ErrInvalidSegment", err)
	}
}

func TestCompose_PrefixInvariant(t *testing.T) {
	users := MustCompose("users", Schema{
		"all":    Null(),
		"list":   Literal(map[string]any{"active": true}),
		"me":     WithFetch(fetchConst(1), "current"),
		"detail": Dynamic1(func(id string) Def { return WithNested(Schema{"settings": Literal("v2")}, id) }),
		"admin": WithNested(Schema{
			"roles": Null(),
			"audit": WithNested(Schema{"day": Dynamic1(func(d string) Def { return Literal(d) })}, "2024"),
		}),
	})

	for path, k := range users.Keys() {
		if !k.HasPrefix(users.Def()) {
			t.Errorf("%s = %s does not start with %s", path, k, users.Def())
		}
	}

	err := users.Walk(func(path []string, e Entry) error {
		op, ok := e.(*Operation)
		if !ok {
			return nil
		}
		leaf, err := op.Call("arg")
		if err != nil {
			return err
		}
		if !leaf.Key().HasPrefix(op.Def()) || !leaf.Key().HasPrefix(users.Def()) {
			return fmt.Errorf("%v: %s breaks prefix invariant", path, leaf.Key())
		}
		if leaf.Context() != nil {
			for p, k := range leaf.Context().Keys() {
				if !k.HasPrefix(leaf.Key()) {
					return fmt.Errorf("%v/%s: %s not under %s", path, p, k, leaf.Key())
				}
			}
		}
		return nil
	})
	if err != nil {
		t.Error(err)
	}
}

func TestCompose_Keys(t *testing.T) {
	users := MustCompose("users", Schema{
		"all":    Null(),
		"detail": Dynamic1(func(id string) Def { return Literal(id) }),
		"admin":  WithNested(Schema{"roles": Null()}, "root"),
	})

	want := map[string]Key{
		"_def":             NewKey("users"),
		"all":              NewKey("users", "all"),
		"detail._def":      NewKey("users", "detail"),
		"admin":            NewKey("users", "admin", "root"),
		"admin._def":       NewKey("users", "admin"),
		"admin._ctx.roles": NewKey("users", "admin", "root", "roles"),
	}
	if diff := cmp.Diff(want, users.Keys(), keyComparer); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
}

func TestCompose_WalkOrder(t *testing.T) {
	users := MustCompose("users", Schema{
		"b": Null(),
		"a": WithNested(Schema{"z": Null(), "y": Null()}),
		"c": Dynamic(func(args ...any) Def { return Null() }),
	})

	var got []string
	_ = users.Walk(func(path []string, e Entry) error {
		got = append(got, fmt.Sprint(path))
		return nil
	})

	want := []string{"[a]", "[a y]", "[a z]", "[b]", "[c]"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Walk order mismatch (-want +got):\n%s", diff)
	}
}

func TestCompose_Idempotent(t *testing.T) {
	schema := Schema{
		"all":    Null(),
		"detail": Literal("id"),
		"nested": WithNested(Schema{"x": Null()}),
	}

	a := MustCompose("todos", schema)
	b := MustCompose("todos", schema)

	if a == b {
		t.Fatal("expected independently allocated scopes")
	}
	if a.MustLeaf("all") == b.MustLeaf("all") {
		t.Error("leaves should not be shared between compositions")
	}
	if a.MustLeaf("nested").Context() == b.MustLeaf("nested").Context() {
		t.Error("contextual scopes should not be shared between compositions")
	}
	if diff := cmp.Diff(a.Keys(), b.Keys(), keyComparer); diff != "" {
		t.Errorf("compositions differ (-a +b):\n%s", diff)
	}
}

func TestComposeMutations(t *testing.T) {
	var got any
	todos := MustComposeMutations("todos", Schema{
		"create": WithFetch(func(ctx context.Context, fc FetchContext) (any, error) {
			got = fc.Variables
			return nil, nil
		}),
		"remove": Dynamic1(func(id string) Def { return Literal(id) }),
	})

	if todos.Family() != FamilyMutation {
		t.Errorf("Family() = %v, want mutation", todos.Family())
	}
	assertKey(t, todos.MustLeaf("create").Key(), "todos", "create")
	assertKey(t, todos.MustOperation("remove").MustCall("t1").Key(), "todos", "remove", "t1")

	_, err := todos.MustLeaf("create").Options().Execute(context.Background(), FetchContext{Variables: "payload"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got != "payload" {
		t.Errorf("Variables = %v, want payload", got)
	}
}

func TestCompose_ConcurrentUse(t *testing.T) {
	todos := MustCompose("todos", Schema{
		"detail": Dynamic1(func(id int) Def { return WithNested(Schema{"comments": Null()}, id) }),
	})

	var g errgroup.Group
	for i := 0; i < 32; i++ {
		g.Go(func() error {
			leaf, err := todos.MustOperation("detail").Call(i)
			if err != nil {
				return err
			}
			want := NewKey("todos", "detail", i, "comments")
			if got := leaf.Context().MustLeaf("comments").Key(); !got.Equal(want) {
				return fmt.Errorf("got %s, want %s", got, want)
			}

			s, err := Compose(fmt.Sprintf("scope-%d", i), Schema{"a": Literal(i)})
			if err != nil {
				return err
			}
			if !s.MustLeaf("a").Key().Equal(NewKey(fmt.Sprintf("scope-%d", i), "a", i)) {
				return fmt.Errorf("scope-%d composed wrong key %s", i, s.MustLeaf("a").Key())
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Error(err)
	}
}

func TestScope_MustAccessorsPanic(t *testing.T) {
	s := MustCompose("users", Schema{"all": Null(), "detail": Dynamic(func(args ...any) Def { return Null() })})

	for _, fn := range []func(){
		func() { s.MustLeaf("detail") },
		func() { s.MustOperation("all") },
		func() { s.MustLeaf("missing") },
	} {
		func() {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			fn()
		}()
	}
}

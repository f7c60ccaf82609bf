package docstore

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Get(t *testing.T) {
	store := New(Seed()...)

	content, err := store.Get("report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "The report details the state of a 20m condenser tower.", content)

	_, err = store.Get("missing.doc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "missing.doc", nf.ID)
	assert.Equal(t, "doc with id missing.doc not found", err.Error())
}

func TestStore_Set(t *testing.T) {
	store := New(Seed()...)

	require.NoError(t, store.Set("spec.txt", "rewritten"))
	content, err := store.Get("spec.txt")
	require.NoError(t, err)
	assert.Equal(t, "rewritten", content)

	err = store.Set("new.md", "content")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 6, store.Len(), "set must not create identifiers")
}

func TestStore_Replace(t *testing.T) {
	tests := []struct {
		name    string
		content string
		old     string
		new     string
		want    string
	}{
		{
			name:    "single occurrence",
			content: "The plan outlines the steps for the project's implementation.",
			old:     "project's implementation",
			new:     "rollout",
			want:    "The plan outlines the steps for the rollout.",
		},
		{
			name:    "every occurrence",
			content: "a-b-a-b",
			old:     "a",
			new:     "x",
			want:    "x-b-x-b",
		},
		{
			name:    "non-overlapping left to right",
			content: "aaa",
			old:     "aa",
			new:     "b",
			want:    "ba",
		},
		{
			name:    "no occurrence is unchanged",
			content: "unchanged",
			old:     "missing",
			new:     "x",
			want:    "unchanged",
		},
		{
			name:    "literal not regex",
			content: "cost is $5.00 (approx)",
			old:     "$5.00 (approx)",
			new:     "$6",
			want:    "cost is $6",
		},
		{
			name:    "empty old is a no-op",
			content: "abc",
			old:     "",
			new:     "x",
			want:    "abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := New(Document{ID: "doc", Content: tt.content})

			got, changed, err := store.Replace("doc", tt.old, tt.new)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want != tt.content, changed)

			stored, err := store.Get("doc")
			require.NoError(t, err)
			assert.Equal(t, tt.want, stored)
		})
	}
}

func TestStore_Replace_Idempotent(t *testing.T) {
	store := New(Seed()...)

	first, changed, err := store.Replace("plan.md", "project's implementation", "rollout")
	require.NoError(t, err)
	assert.True(t, changed)

	second, changed, err := store.Replace("plan.md", "project's implementation", "rollout")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, first, second)
	assert.Equal(t, "The plan outlines the steps for the rollout.", second)
}

func TestStore_Replace_OnlyTouchesTarget(t *testing.T) {
	store := New(Seed()...)
	before := store.Snapshot()

	_, _, err := store.Replace("plan.md", "plan", "roadmap")
	require.NoError(t, err)

	after := store.Snapshot()
	for i := range before {
		if before[i].ID == "plan.md" {
			assert.NotEqual(t, before[i].Content, after[i].Content)
			continue
		}
		assert.Equal(t, before[i], after[i])
	}
}

func TestStore_Replace_Missing(t *testing.T) {
	store := New(Seed()...)

	_, _, err := store.Replace("missing.doc", "a", "b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_List(t *testing.T) {
	store := New(Seed()...)

	want := []string{"deposition.md", "report.pdf", "financials.docx", "outlook.pdf", "plan.md", "spec.txt"}
	assert.Equal(t, want, store.List())

	ids := store.List()
	ids[0] = "mutated"
	assert.Equal(t, want, store.List(), "List must return a copy")
}

func TestNew_DuplicateKeepsFirstPosition(t *testing.T) {
	store := New(
		Document{ID: "a", Content: "1"},
		Document{ID: "b", Content: "2"},
		Document{ID: "a", Content: "3"},
	)

	assert.Equal(t, []string{"a", "b"}, store.List())
	content, err := store.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "3", content)
}

func TestStore_ConcurrentReplace(t *testing.T) {
	store := New(Document{ID: "counter", Content: ""})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			content, _ := store.Get("counter")
			_ = content
			_, _, _ = store.Replace("counter", "x", "x")
		}()
	}
	wg.Wait()

	content, err := store.Get("counter")
	require.NoError(t, err)
	assert.Equal(t, "", content)
}

package criticalthread

import (
	"testing"
	"time"

	"pgregory.net/rapid"

	"discuss_go/internal/replytree"
	"discuss_go/models"
)

// TestResolvePicksMaxWeight: T с ответами C1 (0.05) и C2 (0.3) — критический C2.
func TestResolvePicksMaxWeight(t *testing.T) {
	got := Resolve([]Candidate{
		{CommentID: 11, Weight: 0.05, Separation: 1},
		{CommentID: 12, Weight: 0.3, Separation: 1},
	})
	if got == nil || *got != 12 {
		t.Fatalf("ожидался 12, получено %v", got)
	}
}

// TestResolveTieBreak проверяет порядок разрешения равных весов.
func TestResolveTieBreak(t *testing.T) {
	got := Resolve([]Candidate{
		{CommentID: 5, Weight: 0.2, Separation: 2},
		{CommentID: 9, Weight: 0.2, Separation: 1},
		{CommentID: 7, Weight: 0.2, Separation: 1},
	})
	if got == nil || *got != 7 {
		t.Fatalf("ожидался 7 (ближе и меньший id), получено %v", got)
	}
}

// TestResolveNoPositiveWeight: без положительных весов критического комментария нет.
func TestResolveNoPositiveWeight(t *testing.T) {
	if got := Resolve([]Candidate{{CommentID: 1, Weight: 0}, {CommentID: 2, Weight: -0.1}}); got != nil {
		t.Fatalf("ожидался nil, получено %d", *got)
	}
	if got := Resolve(nil); got != nil {
		t.Fatalf("ожидался nil для пустого списка, получено %d", *got)
	}
}

// TestResolveSkipsDeleted: удалённый пост не может быть критическим, выбор откатывается к следующему.
func TestResolveSkipsDeleted(t *testing.T) {
	got := Resolve([]Candidate{
		{CommentID: 11, Weight: 0.05, Separation: 1},
		{CommentID: 12, Weight: 0.3, Separation: 1, Deleted: true},
	})
	if got == nil || *got != 11 {
		t.Fatalf("ожидался 11, получено %v", got)
	}
}

// TestResolveDeterministic: результат не зависит от порядка кандидатов.
func TestResolveDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 12).Draw(t, "n")
		cands := make([]Candidate, n)
		for i := range cands {
			cands[i] = Candidate{
				CommentID:  int64(i + 1),
				Weight:     float64(rapid.IntRange(-1, 3).Draw(t, "w")) / 10,
				Separation: rapid.IntRange(1, 3).Draw(t, "sep"),
				Deleted:    rapid.Bool().Draw(t, "deleted"),
			}
		}
		want := Resolve(cands)

		perm := rapid.Permutation(cands).Draw(t, "perm")
		got := Resolve(perm)
		if (want == nil) != (got == nil) || (want != nil && *want != *got) {
			t.Fatalf("результат зависит от порядка: %v vs %v", want, got)
		}
		if want != nil {
			for _, c := range cands {
				if c.CommentID == *want && (c.Deleted || c.Weight <= 0) {
					t.Fatalf("выбран недопустимый кандидат %+v", c)
				}
			}
		}
	})
}

// TestCriticalCommentForTree проверяет выбор по дереву и отказ для чужого корня.
func TestCriticalCommentForTree(t *testing.T) {
	now := time.Now()
	root := int64(1)
	mid := int64(2)
	posts := []models.Post{
		{ID: 1, CreatedAt: now},
		{ID: 2, ParentID: &root, CreatedAt: now.Add(time.Second)},
		{ID: 3, ParentID: &mid, CreatedAt: now.Add(2 * time.Second)},
	}
	src := replytree.NewSource(posts, nil, []models.Effect{
		{PostID: 1, CommentID: 2, Weight: 0.1},
		{PostID: 1, CommentID: 3, Weight: 0.4},
		{PostID: 2, CommentID: 3, Weight: 0.9},
	})
	tree, err := replytree.Build(src, 1)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	got, err := CriticalCommentFor(1, tree)
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if got == nil || *got != 3 {
		t.Fatalf("ожидался 3, получено %v", got)
	}

	if _, err := CriticalCommentFor(2, tree); err != ErrForeignRoot {
		t.Fatalf("ожидалась ErrForeignRoot, получено %v", err)
	}
}

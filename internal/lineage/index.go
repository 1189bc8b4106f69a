// Package lineage держит в памяти отношение предок/потомок для снимка поддерева.
package lineage

import (
	"fmt"
	"sort"

	"discuss_go/models"
)

type pair struct {
	ancestor, descendant int64
}

// Index отвечает на запросы о потомках, пути к корню и расстоянии
// по рёбрам, прочитанным из таблицы lineage.
type Index struct {
	separation  map[pair]int
	descendants map[int64][]models.LineageEdge
	ancestors   map[int64][]models.LineageEdge
}

// New строит индекс. Рёбра копируются, исходный срез можно переиспользовать.
func New(edges []models.LineageEdge) *Index {
	ix := &Index{
		separation:  make(map[pair]int, len(edges)),
		descendants: make(map[int64][]models.LineageEdge),
		ancestors:   make(map[int64][]models.LineageEdge),
	}
	for _, e := range edges {
		ix.separation[pair{e.AncestorID, e.DescendantID}] = e.Separation
		ix.descendants[e.AncestorID] = append(ix.descendants[e.AncestorID], e)
		ix.ancestors[e.DescendantID] = append(ix.ancestors[e.DescendantID], e)
	}
	for _, list := range ix.descendants {
		sortEdges(list, func(e models.LineageEdge) int64 { return e.DescendantID })
	}
	for _, list := range ix.ancestors {
		sortEdges(list, func(e models.LineageEdge) int64 { return e.AncestorID })
	}
	return ix
}

func sortEdges(list []models.LineageEdge, id func(models.LineageEdge) int64) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Separation != list[j].Separation {
			return list[i].Separation < list[j].Separation
		}
		return id(list[i]) < id(list[j])
	})
}

// Descendants — все потомки поста, ближние первыми.
func (ix *Index) Descendants(postID int64) []int64 {
	edges := ix.descendants[postID]
	out := make([]int64, len(edges))
	for i, e := range edges {
		out[i] = e.DescendantID
	}
	return out
}

// DescendantEdges — рёбра от поста ко всем потомкам, ближние первыми.
func (ix *Index) DescendantEdges(postID int64) []models.LineageEdge {
	return ix.descendants[postID]
}

// PathToRoot — предки от родителя к корню. В снимке поддерева путь
// обрывается на корне снимка.
func (ix *Index) PathToRoot(postID int64) []int64 {
	edges := ix.ancestors[postID]
	out := make([]int64, len(edges))
	for i, e := range edges {
		out[i] = e.AncestorID
	}
	return out
}

// Separation возвращает расстояние; ok=false, если ancestorID не предок descendantID.
func (ix *Index) Separation(ancestorID, descendantID int64) (int, bool) {
	sep, ok := ix.separation[pair{ancestorID, descendantID}]
	return sep, ok
}

// Closure вычисляет ожидаемые рёбра по указателям на родителя.
// Родитель должен встречаться среди posts; посты вне набора считаются корнями.
func Closure(posts []models.Post) []models.LineageEdge {
	parent := make(map[int64]int64, len(posts))
	for _, p := range posts {
		if p.ParentID != nil {
			parent[p.ID] = *p.ParentID
		}
	}
	var edges []models.LineageEdge
	for _, p := range posts {
		sep := 1
		for cur, ok := parent[p.ID]; ok; cur, ok = parent[cur] {
			edges = append(edges, models.LineageEdge{AncestorID: cur, DescendantID: p.ID, Separation: sep})
			sep++
			if sep > len(posts)+1 {
				// цикл в parent_id; Verify сообщит о расхождении
				break
			}
		}
	}
	return edges
}

// Verify проверяет инвариант: для поста с цепочкой предков длины n в индексе
// ровно n рёбер, оканчивающихся в нём, с расстояниями 1..n вдоль этой цепочки.
func Verify(posts []models.Post, edges []models.LineageEdge) error {
	want := make(map[pair]int)
	for _, e := range Closure(posts) {
		want[pair{e.AncestorID, e.DescendantID}] = e.Separation
	}
	got := make(map[pair]int, len(edges))
	for _, e := range edges {
		k := pair{e.AncestorID, e.DescendantID}
		if _, dup := got[k]; dup {
			return fmt.Errorf("duplicate lineage edge %d->%d", e.AncestorID, e.DescendantID)
		}
		got[k] = e.Separation
	}
	for k, sep := range want {
		g, ok := got[k]
		if !ok {
			return fmt.Errorf("missing lineage edge %d->%d (separation %d)", k.ancestor, k.descendant, sep)
		}
		if g != sep {
			return fmt.Errorf("lineage edge %d->%d: separation %d, want %d", k.ancestor, k.descendant, g, sep)
		}
	}
	if len(got) != len(want) {
		for k := range got {
			if _, ok := want[k]; !ok {
				return fmt.Errorf("unexpected lineage edge %d->%d", k.ancestor, k.descendant)
			}
		}
	}
	return nil
}

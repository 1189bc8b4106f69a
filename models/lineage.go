package models

// LineageEdge связывает пост с каждым его предком.
// Separation = 1 для непосредственного родителя, далее растёт на единицу за уровень.
type LineageEdge struct {
	AncestorID   int64 `json:"ancestor_id"`
	DescendantID int64 `json:"descendant_id"`
	Separation   int   `json:"separation"`
}

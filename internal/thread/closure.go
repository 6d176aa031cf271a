package thread

import "ideon/internal/models"

// Closure returns the ids of rootID and every comment that reaches rootID
// through one or more parent hops. It expands the set until a full pass over
// the list adds nothing, so the order of the flat list does not matter.
func Closure(comments []models.Comment, rootID string) map[string]struct{} {
	closure := map[string]struct{}{rootID: {}}
	for {
		before := len(closure)
		for _, c := range comments {
			if c.ParentID == nil {
				continue
			}
			if _, ok := closure[*c.ParentID]; ok {
				closure[c.ID] = struct{}{}
			}
		}
		if len(closure) == before {
			return closure
		}
	}
}

// RemoveSubtree drops rootID and its descendants. It returns the remaining
// comments and the removed ids in their original order. An unknown rootID
// removes nothing.
func RemoveSubtree(comments []models.Comment, rootID string) ([]models.Comment, []string) {
	closure := Closure(comments, rootID)
	kept := make([]models.Comment, 0, len(comments))
	var removed []string
	for _, c := range comments {
		if _, ok := closure[c.ID]; ok {
			removed = append(removed, c.ID)
			continue
		}
		kept = append(kept, c)
	}
	return kept, removed
}

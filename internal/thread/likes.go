package thread

// ToggleMember adds userID to likedBy when absent and removes it otherwise.
// The input slice is never modified. It reports whether userID is a member
// after the toggle; callers set likes to len of the returned slice.
func ToggleMember(likedBy []string, userID string) ([]string, bool) {
	out := make([]string, 0, len(likedBy)+1)
	found := false
	for _, id := range likedBy {
		if id == userID {
			found = true
			continue
		}
		out = append(out, id)
	}
	if found {
		return out, false
	}
	return append(out, userID), true
}

// Dedupe removes repeated ids while keeping first occurrences in order.
func Dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

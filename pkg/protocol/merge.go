package protocol

import "slices"

// MergeMessages returns base plus every message of extra whose ID is not in base, ordered by CreatedAt.
// Messages with equal timestamps keep their relative order.
func MergeMessages(base, extra []Message) []Message {
	seen := make(map[string]struct{}, len(base))
	out := make([]Message, 0, len(base)+len(extra))
	for _, m := range base {
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	for _, m := range extra {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	slices.SortStableFunc(out, func(a, b Message) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}

// AppendMessage appends m unless a message with the same ID is already present.
func AppendMessage(list []Message, m Message) []Message {
	for _, x := range list {
		if x.ID == m.ID {
			return list
		}
	}
	return append(list, m)
}

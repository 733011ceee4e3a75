package corpus

import "sort"

// #region helpers

// TotalTextLength sums the body length of every note in code points.
func TotalTextLength(notes []Note) int {
	total := 0
	for _, n := range notes {
		total += n.TextLength()
	}
	return total
}

// CountWithImages returns how many notes carry at least one image.
func CountWithImages(notes []Note) int {
	count := 0
	for _, n := range notes {
		if len(n.Images) > 0 {
			count++
		}
	}
	return count
}

// SortByLikes returns a copy of notes ordered by likes, highest first.
// Ties keep their input order.
func SortByLikes(notes []Note) []Note {
	out := make([]Note, len(notes))
	copy(out, notes)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Likes > out[j].Likes
	})
	return out
}

// #endregion helpers

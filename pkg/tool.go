package pkg

// Truncate cut s to max runes and mark the cut with "..."; max <= 0 keeps s
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

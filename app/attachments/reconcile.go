package attachments

import "strings"

// Reconcile orders media references by the client supplied fragments.
//
// The candidate pool is existing followed by added. Each fragment moves the
// first remaining reference containing it to the output; references no
// fragment matched follow in pool order. Matching is by substring, so a short
// fragment can pick up an unintended reference.
func Reconcile(existing, added, order []string) []string {
	pool := make([]string, 0, len(existing)+len(added))
	pool = append(pool, existing...)
	pool = append(pool, added...)

	out := make([]string, 0, len(pool))
	for _, fragment := range order {
		fragment = strings.TrimSpace(fragment)
		if fragment == "" {
			continue
		}
		for i, ref := range pool {
			if strings.Contains(ref, fragment) {
				out = append(out, ref)
				pool = append(pool[:i], pool[i+1:]...)
				break
			}
		}
	}
	return append(out, pool...)
}

// ParseOrder splits the image_order form value.
func ParseOrder(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

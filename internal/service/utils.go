package service

import "strings"

// joinTags склеивает теги через запятую, пустые и повторяющиеся отбрасываются.
func joinTags(tags []string) string {
	seen := make(map[string]struct{}, len(tags))
	res := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		res = append(res, t)
	}
	return strings.Join(res, ",")
}

package dieselvk

import "strings"

const nul = "\x00"

// safeString returns s terminated with a NUL byte, as the C side expects.
func safeString(s string) string {
	if strings.HasSuffix(s, nul) {
		return s
	}
	return s + nul
}

func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = safeString(s)
	}
	return out
}

// checkExisting keeps the required names that actual contains. Both lists
// are compared without their NUL terminators; the result keeps required's
// spelling.
func checkExisting(actual, required []string) (existing []string, missing []string) {
	have := make(map[string]struct{}, len(actual))
	for _, name := range actual {
		have[strings.TrimSuffix(name, nul)] = struct{}{}
	}
	for _, name := range required {
		if _, ok := have[strings.TrimSuffix(name, nul)]; ok {
			existing = append(existing, name)
		} else {
			missing = append(missing, strings.TrimSuffix(name, nul))
		}
	}
	return existing, missing
}

package insight

import "strings"

// ResolveKey picks the credential for a request: an inline key wins over
// the stored one, which wins over the environment. Blank values are skipped.
func ResolveKey(inline, stored, env string) (string, error) {
	for _, k := range []string{inline, stored, env} {
		if k = strings.TrimSpace(k); k != "" {
			return k, nil
		}
	}
	return "", &Error{Kind: KindMissingKey, Message: "no API key configured"}
}

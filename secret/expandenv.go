package secret

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// ExpandEnvStrict expands $VAR and ${VAR} from the environment. A braced
// variable that is unset is an error; a bare $VAR expands to "". $$ is a
// literal dollar sign.
func ExpandEnvStrict(s string) (string, error) {
	if !strings.Contains(s, "$") {
		return s, nil
	}
	var missing []string
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '$' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		switch next := s[i+1]; {
		case next == '$':
			b.WriteByte('$')
			i++
		case next == '{':
			end := strings.IndexByte(s[i+2:], '}')
			if end < 0 {
				b.WriteString(s[i:])
				i = len(s)
				continue
			}
			name := s[i+2 : i+2+end]
			if v, ok := os.LookupEnv(name); ok && validEnvName(name) {
				b.WriteString(v)
			} else if validEnvName(name) {
				missing = append(missing, name)
			} else {
				b.WriteString(s[i : i+3+end])
			}
			i += 2 + end
		case isEnvStart(next):
			j := i + 1
			for j < len(s) && isEnvChar(s[j]) {
				j++
			}
			b.WriteString(os.Getenv(s[i+1 : j]))
			i = j - 1
		default:
			b.WriteByte('$')
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("secret: missing required environment variables: %s", strings.Join(compact(missing), ", "))
	}
	return b.String(), nil
}

func isEnvStart(c byte) bool {
	return c == '_' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z'
}

func isEnvChar(c byte) bool {
	return isEnvStart(c) || c >= '0' && c <= '9'
}

func validEnvName(name string) bool {
	if name == "" || !isEnvStart(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !isEnvChar(name[i]) {
			return false
		}
	}
	return true
}

func compact(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}

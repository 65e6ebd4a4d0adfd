// Package pathmap rewrites local mount paths into the share paths that
// readers of the search index can open.
package pathmap

import (
	"path/filepath"
	"sort"
	"strings"
)

type rule struct {
	local  string
	remote string
}

// Mapper replaces the longest matching local prefix with its remote root
type Mapper struct {
	rules []rule
}

// New builds a Mapper from local prefix → remote root pairs
func New(m map[string]string) *Mapper {
	rules := make([]rule, 0, len(m))
	for local, remote := range m {
		local = filepath.ToSlash(filepath.Clean(local))
		if local == "/" || local == "." {
			continue
		}
		rules = append(rules, rule{local: local, remote: strings.TrimRight(remote, "/")})
	}
	// Longest prefix first so /sign_original_files wins over /sign
	sort.Slice(rules, func(i, j int) bool {
		if len(rules[i].local) != len(rules[j].local) {
			return len(rules[i].local) > len(rules[j].local)
		}
		return rules[i].local < rules[j].local
	})
	return &Mapper{rules: rules}
}

// Normalize returns the share path for an absolute local path.
// Paths outside every configured prefix are returned cleaned but otherwise unchanged.
func (m *Mapper) Normalize(path string) string {
	p := filepath.ToSlash(filepath.Clean(path))
	if m == nil {
		return p
	}
	for _, r := range m.rules {
		if p == r.local {
			return r.remote
		}
		if strings.HasPrefix(p, r.local+"/") {
			return r.remote + p[len(r.local):]
		}
	}
	return p
}

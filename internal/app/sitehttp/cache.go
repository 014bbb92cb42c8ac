package sitehttp

import (
	"net/http"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/yourname/staticserve/internal/config"
)

const defaultCacheControl = "private,max-age=0"

type cacheRule struct {
	key   string
	value string
}

// cacheRules подбирает Cache-Control: сначала префиксы, затем суффиксы, затем
// glob-шаблоны; внутри группы ключи проверяются в лексикографическом порядке.
type cacheRules struct {
	prefixes []cacheRule
	suffixes []cacheRule
	patterns []cacheRule
}

func newCacheRules(c config.CacheControl) cacheRules {
	return cacheRules{
		prefixes: sortedRules(c.Prefixes),
		suffixes: sortedRules(c.Suffixes),
		patterns: sortedRules(c.Patterns),
	}
}

func sortedRules(m map[string]string) []cacheRule {
	rules := make([]cacheRule, 0, len(m))
	for k, v := range m {
		rules = append(rules, cacheRule{key: k, value: v})
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].key < rules[j].key })
	return rules
}

func (c cacheRules) lookup(path string) string {
	for _, r := range c.prefixes {
		if strings.HasPrefix(path, r.key) {
			return r.value
		}
	}
	for _, r := range c.suffixes {
		if strings.HasSuffix(path, r.key) {
			return r.value
		}
	}

	rel := strings.TrimPrefix(path, "/")
	for _, r := range c.patterns {
		// некорректный шаблон просто не совпадает
		if ok, _ := doublestar.Match(strings.TrimPrefix(r.key, "/"), rel); ok {
			return r.value
		}
	}

	return defaultCacheControl
}

func (s *Server) cacheControl(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", s.cache.lookup(r.URL.Path))
		next.ServeHTTP(w, r)
	})
}

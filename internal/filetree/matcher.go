package filetree

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/temirov/repopack/internal/utils"
)

const (
	// DefaultMatchCacheSize bounds the number of memoized glob evaluations.
	DefaultMatchCacheSize = 65536

	globMetaCharacters     = "*?[\\{"
	negationPatternPrefix  = "!"
	anchoredPatternPrefix  = "/"
	directoryPatternSuffix = "/"
	extensionPatternPrefix = "*."

	errorCreateMatchCacheFormat = "create match cache: %w"
)

type matchKey struct {
	pattern string
	subject string
}

// MatchCache memoizes glob evaluations per (pattern, subject) pair. It is safe
// for concurrent use and can be cleared between runs.
type MatchCache struct {
	entries *lru.Cache[matchKey, bool]
}

// NewMatchCache creates a cache holding at most size results.
func NewMatchCache(size int) (*MatchCache, error) {
	if size <= 0 {
		size = DefaultMatchCacheSize
	}
	entries, createError := lru.New[matchKey, bool](size)
	if createError != nil {
		return nil, fmt.Errorf(errorCreateMatchCacheFormat, createError)
	}
	return &MatchCache{entries: entries}, nil
}

// Match reports whether subject matches the glob pattern. Invalid patterns never match.
func (cache *MatchCache) Match(pattern string, subject string) bool {
	if cache == nil || cache.entries == nil {
		return evaluateGlob(pattern, subject)
	}
	key := matchKey{pattern: pattern, subject: subject}
	if matched, found := cache.entries.Get(key); found {
		return matched
	}
	matched := evaluateGlob(pattern, subject)
	cache.entries.Add(key, matched)
	return matched
}

// Len reports the number of memoized results.
func (cache *MatchCache) Len() int {
	if cache == nil || cache.entries == nil {
		return 0
	}
	return cache.entries.Len()
}

// Clear drops every memoized result.
func (cache *MatchCache) Clear() {
	if cache == nil || cache.entries == nil {
		return
	}
	cache.entries.Purge()
}

func evaluateGlob(pattern string, subject string) bool {
	matched, matchError := doublestar.Match(pattern, subject)
	return matchError == nil && matched
}

type globPattern struct {
	expression    string
	directoryOnly bool
	matchFullPath bool
}

// Matcher decides whether a relative path is ignored. Patterns are partitioned
// so that the cheapest checks run first: exact names, then extension rejects,
// then glob evaluation.
type Matcher struct {
	exactNames          map[string]struct{}
	exactDirectoryNames map[string]struct{}
	rejectedExtensions  map[string]struct{}
	globs               []globPattern
	cache               *MatchCache
}

// NewMatcher partitions patterns for matching. Patterns follow gitignore
// conventions: a trailing "/" restricts the pattern to directories, a leading
// "/" or an inner "/" matches against the path relative to the root, and any
// other pattern matches the entry name at every depth. Negated patterns are
// not supported and are skipped. cache may be nil.
func NewMatcher(patterns []string, cache *MatchCache) *Matcher {
	matcher := &Matcher{
		exactNames:          make(map[string]struct{}),
		exactDirectoryNames: make(map[string]struct{}),
		rejectedExtensions:  make(map[string]struct{}),
		cache:               cache,
	}
	for _, rawPattern := range patterns {
		matcher.add(rawPattern)
	}
	return matcher
}

func (matcher *Matcher) add(rawPattern string) {
	pattern := utils.NormalizeRelativePath(strings.TrimSpace(rawPattern))
	if pattern == "" || strings.HasPrefix(pattern, negationPatternPrefix) {
		return
	}
	directoryOnly := strings.HasSuffix(pattern, directoryPatternSuffix)
	pattern = strings.TrimSuffix(pattern, directoryPatternSuffix)
	anchored := strings.HasPrefix(pattern, anchoredPatternPrefix)
	pattern = strings.TrimPrefix(pattern, anchoredPatternPrefix)
	if pattern == "" {
		return
	}
	matchFullPath := anchored || strings.Contains(pattern, pathSeparator)
	hasMeta := strings.ContainsAny(pattern, globMetaCharacters)

	if !matchFullPath && !hasMeta {
		if directoryOnly {
			matcher.exactDirectoryNames[pattern] = struct{}{}
		} else {
			matcher.exactNames[pattern] = struct{}{}
		}
		return
	}
	if !matchFullPath && !directoryOnly && strings.HasPrefix(pattern, extensionPatternPrefix) {
		extension := strings.TrimPrefix(pattern, "*")
		if len(extension) > 1 && !strings.ContainsAny(extension[1:], globMetaCharacters+".") {
			matcher.rejectedExtensions[extension] = struct{}{}
			return
		}
	}
	matcher.globs = append(matcher.globs, globPattern{
		expression:    pattern,
		directoryOnly: directoryOnly,
		matchFullPath: matchFullPath,
	})
}

// Matches reports whether the entry at relativePath should be ignored.
func (matcher *Matcher) Matches(relativePath string, isDirectory bool) bool {
	if matcher == nil {
		return false
	}
	normalizedPath := utils.NormalizeRelativePath(relativePath)
	entryName := path.Base(normalizedPath)

	if _, found := matcher.exactNames[entryName]; found {
		return true
	}
	if isDirectory {
		if _, found := matcher.exactDirectoryNames[entryName]; found {
			return true
		}
	}
	if extension := path.Ext(entryName); extension != "" {
		if _, found := matcher.rejectedExtensions[extension]; found {
			return true
		}
	}
	for _, glob := range matcher.globs {
		if glob.directoryOnly && !isDirectory {
			continue
		}
		subject := entryName
		if glob.matchFullPath {
			subject = normalizedPath
		}
		if matcher.cache.Match(glob.expression, subject) {
			return true
		}
	}
	return false
}

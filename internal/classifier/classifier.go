package classifier

import (
	"html"
	"net/url"
	"regexp"
	"strings"
)

// Kind is the closed set of classification outcomes
type Kind string

const (
	KindAccessCode Kind = "access_code"
	KindHomeLink   Kind = "home_link"
	KindOther      Kind = "other"
)

// Qualifies reports whether a kind is an acceptable resolution result
func (k Kind) Qualifies() bool {
	return k == KindAccessCode || k == KindHomeLink
}

// Classification is the outcome for one message. URL is only set for
// link-based rules that matched an actual link.
type Classification struct {
	Kind Kind
	URL  *string
	Rule string // name of the rule that decided, "" when none matched
}

// Rule maps a message to a kind when either its link path pattern matches
// a provider link or one of its phrases appears in the text
type Rule struct {
	Name     string
	Kind     Kind
	LinkPath *regexp.Regexp // matched against path+query; nil disables link matching
	Phrases  []string       // lower-case
	WithURL  bool           // attach the matched link to the result
}

// Classifier evaluates an ordered rule table; the first matching rule wins
type Classifier struct {
	rules []Rule
	links *regexp.Regexp
}

// New creates a classifier. links extracts candidate provider links from
// the body.
func New(links *regexp.Regexp, rules []Rule) *Classifier {
	return &Classifier{rules: rules, links: links}
}

// Default returns the classifier for Netflix account messages
func Default() *Classifier {
	return New(netflixLink, netflixRules)
}

// Rules returns the rule table in evaluation order
func (c *Classifier) Rules() []Rule {
	return c.rules
}

// Classify maps subject and body to exactly one kind. It never fails:
// anything unrecognized is KindOther. A matching KindOther rule ends
// evaluation.
func (c *Classifier) Classify(subject, body string) Classification {
	text := strings.ToLower(subject + "\n" + body)
	links := c.extractLinks(body)

	for _, rule := range c.rules {
		if link, ok := matchLink(rule, links); ok {
			result := Classification{Kind: rule.Kind, Rule: rule.Name}
			if rule.WithURL {
				result.URL = &link
			}
			return result
		}
		if containsAny(text, rule.Phrases) {
			return Classification{Kind: rule.Kind, Rule: rule.Name}
		}
	}

	return Classification{Kind: KindOther}
}

// link is a provider link found in the body
type link struct {
	raw  string // as returned to callers, entities unescaped
	path string // path plus query, for rule matching
}

// extractLinks returns the parsable provider links in body order.
// Unparsable links are dropped.
func (c *Classifier) extractLinks(body string) []link {
	if c.links == nil {
		return nil
	}

	var links []link
	for _, match := range c.links.FindAllString(body, -1) {
		raw := html.UnescapeString(match)

		u, err := url.Parse(raw)
		if err != nil {
			continue
		}

		path := u.EscapedPath()
		if u.RawQuery != "" {
			path += "?" + u.RawQuery
		}
		links = append(links, link{raw: raw, path: path})
	}
	return links
}

func matchLink(rule Rule, links []link) (string, bool) {
	if rule.LinkPath == nil {
		return "", false
	}
	for _, l := range links {
		if rule.LinkPath.MatchString(l.path) {
			return l.raw, true
		}
	}
	return "", false
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

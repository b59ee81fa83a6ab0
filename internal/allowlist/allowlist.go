package allowlist

import (
	"strings"

	"github.com/vijay-prabhu/mailcode/internal/config"
)

// gmailDomains ignore dots in the local part and treat +tag as a sub-address
var gmailDomains = map[string]bool{
	"gmail.com":      true,
	"googlemail.com": true,
}

// Normalize lower-cases an address and strips its +tag. For Gmail
// addresses, dots in the local part are removed as Gmail does.
func Normalize(address string) string {
	address = strings.ToLower(strings.TrimSpace(address))

	at := strings.LastIndex(address, "@")
	if at <= 0 || at == len(address)-1 {
		return address
	}
	local, domain := address[:at], address[at+1:]

	if i := strings.Index(local, "+"); i != -1 {
		local = local[:i]
	}
	if gmailDomains[domain] {
		local = strings.ReplaceAll(local, ".", "")
	}

	return local + "@" + domain
}

// List is the set of aliases allowed to query the mailbox
type List struct {
	base  string
	extra map[string]bool
}

// New builds a list from configuration. Entries are normalized once.
func New(cfg config.AllowListConfig) *List {
	l := &List{extra: make(map[string]bool)}

	if strings.TrimSpace(cfg.Base) != "" {
		l.base = Normalize(cfg.Base)
	}
	for _, e := range cfg.Extra {
		if strings.TrimSpace(e) == "" {
			continue
		}
		l.extra[Normalize(e)] = true
	}

	return l
}

// Allowed reports whether alias may be resolved. base+anything aliases
// normalize to the base address itself; a different local part that merely
// starts with the base one is not allowed.
func (l *List) Allowed(alias string) bool {
	n := Normalize(alias)
	if !strings.Contains(n, "@") {
		return false
	}

	if l.base != "" && n == l.base {
		return true
	}
	if l.extra[n] {
		return true
	}

	return false
}

// Empty reports whether nothing is allowed
func (l *List) Empty() bool {
	return l.base == "" && len(l.extra) == 0
}

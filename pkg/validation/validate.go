package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/valyala/fastjson"
)

// Rules holds config-driven checks applied to inbound record bodies
// before they are persisted. Paths are dotted ("location.lat").
type Rules struct {
	Required []string
	Types    map[string]string // string|number|boolean|object|array
	MaxLen   map[string]int
	Enums    map[string][]string
}

var (
	rulesMu sync.RWMutex
	rules   Rules
)

// SetRules installs the global rule set.
func SetRules(r Rules) {
	rulesMu.Lock()
	defer rulesMu.Unlock()
	rules = r
}

var parserPool fastjson.ParserPool

// ValidateJSON applies the installed rules to a raw JSON document.
// A nil error means the document passed every configured check.
func ValidateJSON(raw []byte) error {
	rulesMu.RLock()
	r := rules
	rulesMu.RUnlock()

	p := parserPool.Get()
	defer parserPool.Put(p)
	v, err := p.ParseBytes(raw)
	if err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}

	var errs []string
	for _, path := range r.Required {
		if v.Get(splitPath(path)...) == nil {
			errs = append(errs, fmt.Sprintf("required path missing: %s", path))
		}
	}
	for path, want := range r.Types {
		fv := v.Get(splitPath(path)...)
		if fv == nil {
			continue
		}
		if !typeMatches(fv, want) {
			errs = append(errs, fmt.Sprintf("type mismatch at %s: expected %s", path, want))
		}
	}
	for path, max := range r.MaxLen {
		fv := v.Get(splitPath(path)...)
		if fv == nil {
			continue
		}
		switch fv.Type() {
		case fastjson.TypeString:
			if b, _ := fv.StringBytes(); len(b) > max {
				errs = append(errs, fmt.Sprintf("max length exceeded at %s: %d > %d", path, len(b), max))
			}
		case fastjson.TypeArray:
			if a, _ := fv.Array(); len(a) > max {
				errs = append(errs, fmt.Sprintf("max length exceeded at %s: %d > %d", path, len(a), max))
			}
		}
	}
	for path, vals := range r.Enums {
		fv := v.Get(splitPath(path)...)
		if fv == nil || fv.Type() != fastjson.TypeString {
			continue
		}
		b, _ := fv.StringBytes()
		if !contains(vals, string(b)) {
			errs = append(errs, fmt.Sprintf("invalid enum at %s", path))
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func splitPath(p string) []string {
	return strings.Split(p, ".")
}

func typeMatches(v *fastjson.Value, want string) bool {
	switch want {
	case "string":
		return v.Type() == fastjson.TypeString
	case "number":
		return v.Type() == fastjson.TypeNumber
	case "boolean":
		return v.Type() == fastjson.TypeTrue || v.Type() == fastjson.TypeFalse
	case "object":
		return v.Type() == fastjson.TypeObject
	case "array":
		return v.Type() == fastjson.TypeArray
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

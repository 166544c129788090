package expand

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/sourceplane/liteiac/internal/model"
)

// VarPrefix marks stack variables, which are substituted during normalization
// and never create dependencies
const VarPrefix = "var"

var referencePattern = regexp.MustCompile(`\$\{([A-Za-z0-9_-]+)\.([A-Za-z0-9_.-]+)\}`)

// Reference is a ${id.attr} expression found in resource config
type Reference struct {
	ID        string
	Attribute string
}

// FindReferences walks a config value and returns every resource reference,
// sorted and de-duplicated
func FindReferences(value interface{}) []Reference {
	seen := make(map[Reference]bool)
	walkStrings(value, func(s string) {
		for _, m := range referencePattern.FindAllStringSubmatch(s, -1) {
			if m[1] == VarPrefix {
				continue
			}
			seen[Reference{ID: m[1], Attribute: m[2]}] = true
		}
	})

	refs := make([]Reference, 0, len(seen))
	for ref := range seen {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].ID != refs[j].ID {
			return refs[i].ID < refs[j].ID
		}
		return refs[i].Attribute < refs[j].Attribute
	})
	return refs
}

// ReferencedIDs returns the ids referenced anywhere in config
func ReferencedIDs(config map[string]interface{}) []string {
	var ids []string
	for _, ref := range FindReferences(config) {
		ids = append(ids, ref.ID)
	}
	return model.SortedSet(ids)
}

// Interpolate returns a deep copy of config with every ${id.attr} replaced by
// the matching attribute of outputs[id]. A reference to an id or attribute
// that is not available is an error.
func Interpolate(config map[string]interface{}, outputs map[string]model.Output) (map[string]interface{}, error) {
	out, err := interpolateValue(config, func(s string) (string, error) {
		var firstErr error
		replaced := referencePattern.ReplaceAllStringFunc(s, func(expr string) string {
			m := referencePattern.FindStringSubmatch(expr)
			if m[1] == VarPrefix {
				return expr
			}
			output, ok := outputs[m[1]]
			if !ok {
				if firstErr == nil {
					firstErr = fmt.Errorf("reference %s: no output recorded for %q", expr, m[1])
				}
				return expr
			}
			v, ok := output.Attribute(m[2])
			if !ok {
				if firstErr == nil {
					firstErr = fmt.Errorf("reference %s: %q has no attribute %q", expr, m[1], m[2])
				}
				return expr
			}
			return v
		})
		return replaced, firstErr
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return map[string]interface{}{}, nil
	}
	return out.(map[string]interface{}), nil
}

// SubstituteVars replaces ${var.NAME} expressions using vars
func SubstituteVars(config map[string]interface{}, vars map[string]string) (map[string]interface{}, error) {
	out, err := interpolateValue(config, func(s string) (string, error) {
		var firstErr error
		replaced := referencePattern.ReplaceAllStringFunc(s, func(expr string) string {
			m := referencePattern.FindStringSubmatch(expr)
			if m[1] != VarPrefix {
				return expr
			}
			v, ok := vars[m[2]]
			if !ok {
				if firstErr == nil {
					firstErr = fmt.Errorf("undefined variable %q", m[2])
				}
				return expr
			}
			return v
		})
		return replaced, firstErr
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, nil
	}
	return out.(map[string]interface{}), nil
}

func interpolateValue(value interface{}, replace func(string) (string, error)) (interface{}, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return replace(v)
	case map[string]interface{}:
		if v == nil {
			return nil, nil
		}
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			replaced, err := interpolateValue(item, replace)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			out[key] = replaced
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			replaced, err := interpolateValue(item, replace)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = replaced
		}
		return out, nil
	case []string:
		out := make([]interface{}, len(v))
		for i, item := range v {
			replaced, err := replace(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = replaced
		}
		return out, nil
	case map[string]string:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			replaced, err := replace(item)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			out[key] = replaced
		}
		return out, nil
	default:
		return v, nil
	}
}

func walkStrings(value interface{}, fn func(string)) {
	switch v := value.(type) {
	case string:
		fn(v)
	case map[string]interface{}:
		for _, item := range v {
			walkStrings(item, fn)
		}
	case []interface{}:
		for _, item := range v {
			walkStrings(item, fn)
		}
	case []string:
		for _, item := range v {
			fn(item)
		}
	case map[string]string:
		for _, item := range v {
			fn(item)
		}
	}
}

package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Internal singleton instance to allow custom tag registration.
var defaultValidate = validator.New()

// GetValidator returns the shared go-playground validator used for format
// rules. Use it to register custom tags; a rule "sku_format" then resolves to
// the tag of the same name.
func GetValidator() *validator.Validate {
	return defaultValidate
}

// tagAliases maps rule names to go-playground tags where they differ.
var tagAliases = map[string]string{
	"alpha_num": "alphanum",
	"ip_v4":     "ipv4",
	"ip_v6":     "ipv6",
	"hex_color": "hexcolor",
	"lowercase": "lowercase",
	"uppercase": "uppercase",
}

// RuleValidator checks rule lists against map data. Keys use dot notation and
// "*" matches every element of an array or object ("items.*.name").
type RuleValidator struct {
	validate *validator.Validate
}

// New returns a RuleValidator backed by the shared go-playground validator.
func New() *RuleValidator {
	return &RuleValidator{validate: defaultValidate}
}

// NewWith returns a RuleValidator backed by v.
func NewWith(v *validator.Validate) *RuleValidator {
	return &RuleValidator{validate: v}
}

type rule struct {
	name string
	args []string
}

func parseRule(s string) rule {
	name, params, found := strings.Cut(s, ":")
	r := rule{name: strings.TrimSpace(name)}
	if found {
		if r.name == "regex" {
			r.args = []string{params}
		} else {
			r.args = strings.Split(params, ",")
		}
	}
	return r
}

type target struct {
	path    string
	value   any
	present bool
}

// Validate implements [Validator].
func (v *RuleValidator) Validate(data map[string]any, rules map[string][]string) Result {
	errs := Errors{}
	keys := make([]string, 0, len(rules))
	for k := range rules {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		parsed := make([]rule, 0, len(rules[key]))
		for _, r := range rules[key] {
			parsed = append(parsed, parseRule(r))
		}
		for _, t := range expand(data, strings.Split(key, "."), "") {
			v.check(errs, t, parsed)
		}
	}
	return errs
}

func (v *RuleValidator) check(errs Errors, t target, rules []rule) {
	has := func(name string) bool {
		return slices.ContainsFunc(rules, func(r rule) bool { return r.name == name })
	}

	if !t.present || isEmpty(t.value) {
		if has("required") {
			errs.add(t.path, fmt.Sprintf("The %s field is required.", t.path))
		}
		return
	}

	numeric := has("integer") || has("numeric")
	for _, r := range rules {
		switch r.name {
		case "required", "nullable", "sometimes", "":
			continue
		}
		if msg, ok := v.apply(r, t, numeric); !ok {
			errs.add(t.path, msg)
		}
	}
}

func (v *RuleValidator) apply(r rule, t target, numeric bool) (string, bool) {
	field, value := t.path, t.value
	switch r.name {
	case "string":
		_, ok := value.(string)
		return fmt.Sprintf("The %s field must be a string.", field), ok
	case "integer":
		return fmt.Sprintf("The %s field must be an integer.", field), isInteger(value)
	case "numeric":
		_, ok := toFloat(value)
		return fmt.Sprintf("The %s field must be a number.", field), ok
	case "boolean":
		return fmt.Sprintf("The %s field must be true or false.", field), isBoolean(value)
	case "array":
		return fmt.Sprintf("The %s field must be an array.", field), isArray(value)
	case "in":
		return fmt.Sprintf("The selected %s is invalid.", field), slices.Contains(r.args, fmt.Sprint(value))
	case "not_in":
		return fmt.Sprintf("The selected %s is invalid.", field), !slices.Contains(r.args, fmt.Sprint(value))
	case "min", "max", "size", "between":
		return sizeRule(r, field, value, numeric)
	case "regex":
		return regexRule(r, field, value)
	case "date":
		s, ok := value.(string)
		return fmt.Sprintf("The %s field must be a valid date.", field), ok && isDate(s)
	case "json":
		s, ok := value.(string)
		return fmt.Sprintf("The %s field must be a valid JSON string.", field), ok && json.Valid([]byte(s))
	default:
		return v.tagRule(r, field, value)
	}
}

// tagRule delegates a rule to the go-playground validator. Unknown tags and
// tags that do not apply to the value's type are reported as failures.
func (v *RuleValidator) tagRule(r rule, field string, value any) (msg string, ok bool) {
	tag := r.name
	if alias, found := tagAliases[tag]; found {
		tag = alias
	}
	if len(r.args) > 0 {
		tag += "=" + strings.Join(r.args, " ")
	}

	msg = fmt.Sprintf("The %s field failed the %s rule.", field, r.name)
	if r.name == "email" {
		msg = fmt.Sprintf("The %s field must be a valid email address.", field)
	}

	defer func() {
		if rec := recover(); rec != nil {
			ok = false
		}
	}()
	return msg, v.validate.Var(value, tag) == nil
}

func sizeRule(r rule, field string, value any, numeric bool) (string, bool) {
	size, unit, ok := sizeOf(value, numeric)
	if !ok {
		return fmt.Sprintf("The %s field has an unsupported type for %s.", field, r.name), false
	}

	bounds := make([]float64, 0, len(r.args))
	for _, a := range r.args {
		f, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
		if err != nil {
			return fmt.Sprintf("The %s rule has an invalid argument %q.", r.name, a), false
		}
		bounds = append(bounds, f)
	}

	need := 1
	if r.name == "between" {
		need = 2
	}
	if len(bounds) < need {
		return fmt.Sprintf("The %s rule requires %d argument(s).", r.name, need), false
	}

	suffix := map[string]string{"string": " characters", "array": " items"}[unit]
	switch r.name {
	case "min":
		return fmt.Sprintf("The %s field must be at least %s%s.", field, r.args[0], suffix), size >= bounds[0]
	case "max":
		return fmt.Sprintf("The %s field must not be greater than %s%s.", field, r.args[0], suffix), size <= bounds[0]
	case "size":
		return fmt.Sprintf("The %s field must be %s%s.", field, r.args[0], suffix), size == bounds[0]
	default:
		return fmt.Sprintf("The %s field must be between %s and %s%s.", field, r.args[0], r.args[1], suffix),
			size >= bounds[0] && size <= bounds[1]
	}
}

func regexRule(r rule, field string, value any) (string, bool) {
	msg := fmt.Sprintf("The %s field format is invalid.", field)
	s, ok := value.(string)
	if !ok || len(r.args) == 0 {
		return msg, false
	}
	pattern := r.args[0]
	// Accept delimited patterns such as /^[a-z]+$/.
	if len(pattern) >= 2 && pattern[0] == '/' && strings.LastIndex(pattern, "/") > 0 {
		pattern = pattern[1:strings.LastIndex(pattern, "/")]
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return msg, false
	}
	return msg, re.MatchString(s)
}

// expand resolves a dotted key against data, one target per matched element.
func expand(data any, segments []string, prefix string) []target {
	if len(segments) == 0 {
		return []target{{path: prefix, value: data, present: true}}
	}
	seg, rest := segments[0], segments[1:]

	if seg == "*" {
		var out []target
		switch d := data.(type) {
		case []any:
			for i, item := range d {
				out = append(out, expand(item, rest, join(prefix, strconv.Itoa(i)))...)
			}
		case map[string]any:
			keys := make([]string, 0, len(d))
			for k := range d {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				out = append(out, expand(d[k], rest, join(prefix, k))...)
			}
		}
		return out
	}

	// A wildcard below a missing node matches nothing.
	var missing []target
	if !slices.Contains(rest, "*") {
		missing = []target{{path: join(prefix, strings.Join(segments, "."))}}
	}
	switch d := data.(type) {
	case map[string]any:
		val, ok := d[seg]
		if !ok {
			return missing
		}
		return expand(val, rest, join(prefix, seg))
	case []any:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= len(d) {
			return missing
		}
		return expand(d[i], rest, join(prefix, seg))
	default:
		return missing
	}
}

func join(prefix, seg string) string {
	if prefix == "" {
		return seg
	}
	return prefix + "." + seg
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	}
	return false
}

func isInteger(v any) bool {
	switch val := v.(type) {
	case string:
		_, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		return err == nil
	case float64:
		return val == math.Trunc(val) && !math.IsInf(val, 0)
	case float32:
		return float64(val) == math.Trunc(float64(val))
	case json.Number:
		_, err := val.Int64()
		return err == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case bool, nil:
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func isBoolean(v any) bool {
	switch val := v.(type) {
	case bool:
		return true
	case string:
		switch val {
		case "true", "false", "1", "0":
			return true
		}
		return false
	}
	f, ok := toFloat(v)
	return ok && (f == 0 || f == 1)
}

func isArray(v any) bool {
	switch v.(type) {
	case []any, map[string]any:
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Slice || rv.Kind() == reflect.Map
}

func isDate(s string) bool {
	for _, layout := range []string{time.RFC3339, time.DateOnly, time.DateTime} {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// sizeOf returns the measured size of value and its unit: the numeric value
// for numeric fields, rune count for strings, length for arrays.
func sizeOf(value any, numeric bool) (float64, string, bool) {
	if numeric {
		if f, ok := toFloat(value); ok {
			return f, "numeric", true
		}
	}
	switch val := value.(type) {
	case string:
		return float64(utf8.RuneCountInString(val)), "string", true
	case []any:
		return float64(len(val)), "array", true
	case map[string]any:
		return float64(len(val)), "array", true
	}
	if f, ok := toFloat(value); ok {
		return f, "numeric", true
	}
	return 0, "", false
}

package middleware

import (
	"encoding/json"
	"fmt"
	"maps"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/iaconlabs/switchyard/definition"
	"github.com/iaconlabs/switchyard/httperr"
	"github.com/iaconlabs/switchyard/router"
	"github.com/iaconlabs/switchyard/validation"
)

// Hook tags fired by [Validation].
const (
	HookValidationRules   = "validation.rules"
	HookValidationBefore  = "validation.before"
	HookValidationAfter   = "validation.after"
	HookValidationSuccess = "validation.success"
	HookValidationFail    = "validation.fail"
)

const maxMultipartMemory = 32 << 20

// Validation gates a request on a flattened rule set. Failures never reach
// the next handler: JSON clients get a 400 response, other clients get an
// [*httperr.Error] for the host boundary to render.
type Validation struct {
	validator validation.Validator
	rules     map[string][]string
	params    []*definition.Param
	responses router.ResponseFactory
	hooks     router.Hooks
}

// ValidationOption configures a [Validation] middleware.
type ValidationOption func(*Validation)

// WithRules sets pre-built rules.
func WithRules(rules map[string][]string) ValidationOption {
	return func(m *Validation) {
		m.rules = maps.Clone(rules)
	}
}

// WithParams sets the rules from a parameter schema.
func WithParams(params ...*definition.Param) ValidationOption {
	return func(m *Validation) {
		m.params = params
		m.rules = Flatten(params, "")
	}
}

// WithResponseFactory sets the factory used for JSON failure responses.
func WithResponseFactory(f router.ResponseFactory) ValidationOption {
	return func(m *Validation) {
		m.responses = f
	}
}

// WithHooks sets the hook bus notified around validation.
func WithHooks(h router.Hooks) ValidationOption {
	return func(m *Validation) {
		m.hooks = h
	}
}

// NewValidation returns the middleware. A nil validator uses [validation.New].
func NewValidation(v validation.Validator, opts ...ValidationOption) *Validation {
	if v == nil {
		v = validation.New()
	}
	m := &Validation{validator: v, rules: map[string][]string{}, responses: router.DefaultResponses}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Rules returns a copy of the flattened rule set.
func (m *Validation) Rules() map[string][]string {
	return maps.Clone(m.rules)
}

// Flatten compiles a parameter tree into dotted rule keys. A param with a
// single inner param is a homogeneous array ("items.*"); with several inner
// params each child is keyed by name ("user.name").
func Flatten(params []*definition.Param, prefix string) map[string][]string {
	rules := map[string][]string{}
	for _, p := range params {
		flattenParam(rules, p, prefix+p.Name)
	}
	return rules
}

func flattenParam(rules map[string][]string, p *definition.Param, key string) {
	rules[key] = DeriveRules(p)
	switch len(p.Inner) {
	case 0:
	case 1:
		flattenParam(rules, p.Inner[0], key+".*")
	default:
		for _, in := range p.Inner {
			flattenParam(rules, in, key+"."+in.Name)
		}
	}
}

// DeriveRules returns the rule list of one param: the implicit type rule,
// the declared rules, then an "in:" rule for enums.
func DeriveRules(p *definition.Param) []string {
	var rules []string
	switch p.Type {
	case definition.Int:
		rules = append(rules, "integer")
	case definition.Number:
		rules = append(rules, "numeric")
	case definition.Boolean:
		rules = append(rules, "boolean")
	case definition.Array, definition.Object:
		rules = append(rules, "array")
	}
	rules = append(rules, p.Validation...)
	if len(p.Enum) > 0 {
		values := make([]string, len(p.Enum))
		for i, v := range p.Enum {
			values[i] = fmt.Sprint(v)
		}
		rules = append(rules, "in:"+strings.Join(values, ","))
	}
	return rules
}

// Process implements [router.Middleware].
func (m *Validation) Process(r *http.Request, next router.Handler) (*router.Response, error) {
	parsedForm := r.MultipartForm != nil
	data, r, err := m.collect(r)
	if !parsedForm && r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if err != nil {
		return nil, err
	}

	for _, p := range m.params {
		if _, ok := data[p.Name]; !ok && p.Default != nil {
			data[p.Name] = p.Default
		}
	}
	rules := m.rules
	if q, ok := router.Query(m.hooks, HookValidationRules, rules, r).(map[string][]string); ok {
		rules = q
	}
	coerce(data, "", rules)

	router.Call(m.hooks, HookValidationBefore, r, data, rules)
	res := m.validator.Validate(data, rules)
	router.Call(m.hooks, HookValidationAfter, r, res)

	if res.Fails() {
		router.Call(m.hooks, HookValidationFail, r, res.Errors())
		failure := httperr.ValidationFailed(res.Errors())
		if !wantsJSON(r) {
			return nil, failure
		}
		status, header, body := httperr.Format(failure, false)
		return m.responses.JSON(status, body, header)
	}

	router.Call(m.hooks, HookValidationSuccess, r, data)
	return next.Handle(router.WithValidated(r, data))
}

// collect merges query parameters over the parsed body.
func (m *Validation) collect(r *http.Request) (map[string]any, *http.Request, error) {
	data := map[string]any{}

	body, r, err := router.Body(r)
	if err != nil {
		return nil, r, httperr.BadRequest("Unable to read request body", err)
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case len(body) == 0:
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		var parsed any
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, r, httperr.BadRequest("Invalid JSON format", err)
		}
		obj, ok := parsed.(map[string]any)
		if !ok {
			return nil, r, httperr.BadRequest("JSON body must be an object", nil)
		}
		data = obj
	case mediaType == "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, r, httperr.BadRequest("Invalid form body", err)
		}
		mergeValues(data, values)
	case mediaType == "multipart/form-data":
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return nil, r, httperr.BadRequest("Invalid multipart body", err)
		}
		mergeValues(data, r.MultipartForm.Value)
	}

	query := map[string]any{}
	mergeValues(query, r.URL.Query())
	maps.Copy(data, query)
	return data, r, nil
}

// mergeValues decodes url values into data, expanding bracket keys such as
// "tags[]" and "user[name]" into nested arrays and objects.
func mergeValues(data map[string]any, values map[string][]string) {
	for key, vals := range values {
		base, path := splitBrackets(key)
		if len(path) == 0 {
			if len(vals) == 1 {
				data[base] = vals[0]
			} else {
				list := make([]any, len(vals))
				for i, v := range vals {
					list[i] = v
				}
				data[base] = list
			}
			continue
		}
		for _, v := range vals {
			data[base] = assign(data[base], path, v)
		}
	}
}

func assign(container any, path []string, value string) any {
	seg, rest := path[0], path[1:]
	if seg == "" {
		list, _ := container.([]any)
		if len(rest) == 0 {
			return append(list, value)
		}
		return append(list, assign(nil, rest, value))
	}
	obj, ok := container.(map[string]any)
	if !ok {
		obj = map[string]any{}
	}
	if len(rest) == 0 {
		obj[seg] = value
	} else {
		obj[seg] = assign(obj[seg], rest, value)
	}
	return obj
}

func splitBrackets(key string) (string, []string) {
	i := strings.IndexByte(key, '[')
	if i <= 0 || !strings.HasSuffix(key, "]") {
		return key, nil
	}
	inner := key[i+1 : len(key)-1]
	return key[:i], strings.Split(inner, "][")
}

// coerce converts "true", "false" and "null" strings for keys covered by rules.
func coerce(data map[string]any, prefix string, rules map[string][]string) {
	for k, v := range data {
		data[k] = coerceValue(v, join(prefix, k), rules)
	}
}

func coerceValue(v any, path string, rules map[string][]string) any {
	switch val := v.(type) {
	case string:
		if !ruled(path, rules) {
			return v
		}
		switch val {
		case "true":
			return true
		case "false":
			return false
		case "null":
			return nil
		}
		return v
	case map[string]any:
		coerce(val, path, rules)
		return val
	case []any:
		for i, item := range val {
			val[i] = coerceValue(item, join(path, fmt.Sprint(i)), rules)
		}
		return val
	default:
		return v
	}
}

func ruled(path string, rules map[string][]string) bool {
	if _, ok := rules[path]; ok {
		return true
	}
	segs := strings.Split(path, ".")
	for key := range rules {
		if !strings.Contains(key, "*") {
			continue
		}
		pattern := strings.Split(key, ".")
		if len(pattern) != len(segs) {
			continue
		}
		match := true
		for i := range pattern {
			if pattern[i] != "*" && pattern[i] != segs[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// wantsJSON reports whether the client expects a JSON response.
func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "/json") || strings.Contains(accept, "+json") {
		return true
	}
	return r.Header.Get("X-Requested-With") == "XMLHttpRequest"
}

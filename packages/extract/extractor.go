package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/hitscript/packages/response"
	"github.com/abdul-hamid-achik/hitscript/packages/vars"
	"github.com/tidwall/gjson"
)

// Source identifies where a rule reads its value from.
type Source int

const (
	SourceHeader Source = iota
	SourceBody
	SourceCookie
)

func (s Source) String() string {
	switch s {
	case SourceHeader:
		return "header"
	case SourceBody:
		return "body"
	case SourceCookie:
		return "cookie"
	default:
		return "unknown"
	}
}

// ParseSource converts a source name into a Source.
func ParseSource(name string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "header":
		return SourceHeader, nil
	case "body":
		return SourceBody, nil
	case "cookie":
		return SourceCookie, nil
	default:
		return 0, fmt.Errorf("unknown extraction source %q", name)
	}
}

// ValueType declares how an extracted value is converted before storage.
type ValueType int

const (
	TypeString ValueType = iota
	TypeNumber
	TypeBool
)

func (t ValueType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeBool:
		return "boolean"
	default:
		return "unknown"
	}
}

// ParseValueType converts a type name into a ValueType. An empty name means
// string passthrough.
func ParseValueType(name string) (ValueType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "string":
		return TypeString, nil
	case "number":
		return TypeNumber, nil
	case "bool", "boolean":
		return TypeBool, nil
	default:
		return 0, fmt.Errorf("unknown value type %q", name)
	}
}

// Rule derives one variable from a response.
type Rule struct {
	Name   string
	Source Source
	Path   string
	Regex  string
	Type   ValueType
	Target vars.Scope
}

// RuleError is a non-fatal failure of one rule. Extraction continues with
// the remaining rules.
type RuleError struct {
	Rule string
	Err  error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("extraction rule %q: %v", e.Rule, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

// Extractor applies rules against one response.
type Extractor struct {
	resp     *response.Response
	bodyJSON gjson.Result
}

func NewExtractor(resp *response.Response) *Extractor {
	return &Extractor{
		resp:     resp,
		bodyJSON: resp.JSON(),
	}
}

// Extract runs every rule, writing found values into store at each rule's
// target scope. It returns one error per failed rule; a rule that simply
// finds nothing neither writes nor errors.
func (e *Extractor) Extract(store *vars.Store, rules []Rule) []*RuleError {
	var errs []*RuleError

	for i := range rules {
		rule := &rules[i]
		value, found, err := e.locate(rule)
		if err != nil {
			errs = append(errs, &RuleError{Rule: rule.Name, Err: err})
			continue
		}
		if !found {
			continue
		}

		converted, err := convert(value, rule.Type)
		if err != nil {
			errs = append(errs, &RuleError{Rule: rule.Name, Err: err})
			continue
		}
		store.Set(rule.Target, rule.Name, converted)
	}
	return errs
}

func (e *Extractor) locate(rule *Rule) (string, bool, error) {
	switch rule.Source {
	case SourceHeader:
		v := e.resp.Header(rule.Path)
		return v, v != "", nil
	case SourceBody:
		return e.locateInBody(rule)
	case SourceCookie:
		return e.locateCookie(rule.Path)
	default:
		return "", false, fmt.Errorf("unknown source %d", rule.Source)
	}
}

func (e *Extractor) locateInBody(rule *Rule) (string, bool, error) {
	if e.bodyJSON.Exists() {
		if rule.Path == "" {
			return "", false, fmt.Errorf("body rule requires a path")
		}
		result := e.bodyJSON.Get(normalizePath(rule.Path))
		if !result.Exists() {
			return "", false, nil
		}
		return result.String(), true, nil
	}

	// Non-JSON body: fall back to the regex, first capture group if there
	// is one, whole match otherwise.
	if rule.Regex == "" {
		return "", false, nil
	}
	re, err := regexp.Compile(rule.Regex)
	if err != nil {
		return "", false, fmt.Errorf("invalid regex %q: %w", rule.Regex, err)
	}
	m := re.FindStringSubmatch(e.resp.BodyString())
	if m == nil {
		return "", false, nil
	}
	if len(m) > 1 {
		return m[1], true, nil
	}
	return m[0], true, nil
}

// locateCookie scans the Set-Cookie header for a "name=" entry and takes
// the value up to the next ";".
func (e *Extractor) locateCookie(name string) (string, bool, error) {
	if name == "" {
		return "", false, fmt.Errorf("cookie rule requires a cookie name")
	}
	header := e.resp.Header("Set-Cookie")
	if header == "" {
		return "", false, nil
	}

	prefix := name + "="
	for _, part := range strings.Split(header, ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, prefix) {
			return part[len(prefix):], true, nil
		}
	}
	return "", false, nil
}

var bracketPattern = regexp.MustCompile(`\[(\d+)\]`)

// normalizePath converts bracket notation to gjson dot notation, e.g.
// "items[0].id" -> "items.0.id".
func normalizePath(path string) string {
	out := bracketPattern.ReplaceAllString(path, ".$1")
	return strings.TrimPrefix(out, ".")
}

func convert(value string, t ValueType) (string, error) {
	switch t {
	case TypeString:
		return value, nil
	case TypeNumber:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return "", fmt.Errorf("value %q is not a number", value)
		}
		return strconv.FormatFloat(n, 'f', -1, 64), nil
	case TypeBool:
		return strconv.FormatBool(truthy(value)), nil
	default:
		return "", fmt.Errorf("unknown value type %d", t)
	}
}

func truthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "0", "false", "null", "undefined":
		return false
	default:
		return true
	}
}

// ExtractAll is a convenience wrapper building a one-shot extractor.
func ExtractAll(resp *response.Response, store *vars.Store, rules []Rule) []*RuleError {
	return NewExtractor(resp).Extract(store, rules)
}

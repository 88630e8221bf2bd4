package vars

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/rand"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DynamicFunc computes one dynamic variable. Values are computed on read and
// never stored in any scope.
type DynamicFunc func(args []string) string

// DynamicRegistry maps dynamic variable names to their generators. An
// unrecognized name resolves to "not found" rather than an error, so plain
// unresolved placeholders and dynamic lookups report the same way.
type DynamicRegistry struct {
	funcs map[string]DynamicFunc
}

func NewDynamicRegistry() *DynamicRegistry {
	r := &DynamicRegistry{funcs: make(map[string]DynamicFunc)}
	r.registerDefaults()
	return r
}

func (r *DynamicRegistry) registerDefaults() {
	r.funcs["timestamp"] = dynTimestamp
	r.funcs["timestampMs"] = dynTimestampMs
	r.funcs["datetime"] = dynDatetime
	r.funcs["date"] = dynDate
	r.funcs["time"] = dynTime
	r.funcs["uuid"] = dynUUID
	r.funcs["random"] = dynRandom
	r.funcs["randomint"] = dynRandomInt
	r.funcs["randomString"] = dynRandomString
	r.funcs["randomEmail"] = dynRandomEmail
	r.funcs["base64"] = dynBase64
	r.funcs["sha256"] = dynSHA256
	r.funcs["urlEncode"] = dynURLEncode
}

// Register adds or replaces a generator.
func (r *DynamicRegistry) Register(name string, fn DynamicFunc) {
	r.funcs[name] = fn
}

var dynamicCallPattern = regexp.MustCompile(`^(\w+)\((.*)\)$`)

// Resolve computes the dynamic value for expr. Both the bare form
// ("uuid") and the parameterized form ("random(1,10)") are accepted.
func (r *DynamicRegistry) Resolve(expr string) (string, bool) {
	if m := dynamicCallPattern.FindStringSubmatch(expr); m != nil {
		fn, ok := r.funcs[m[1]]
		if !ok {
			return "", false
		}
		var args []string
		if m[2] != "" {
			args = splitArgs(m[2])
		}
		return fn(args), true
	}

	fn, ok := r.funcs[expr]
	if !ok {
		return "", false
	}
	return fn(nil), true
}

func splitArgs(s string) []string {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := byte(0)

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case !inQuote && (ch == '"' || ch == '\''):
			inQuote = true
			quoteChar = ch
		case inQuote && ch == quoteChar:
			inQuote = false
			quoteChar = 0
		case !inQuote && ch == ',':
			args = append(args, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}
	if current.Len() > 0 {
		args = append(args, strings.TrimSpace(current.String()))
	}
	return args
}

func dynTimestamp(_ []string) string {
	return strconv.FormatInt(time.Now().Unix(), 10)
}

func dynTimestampMs(_ []string) string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

func dynDatetime(_ []string) string {
	return time.Now().UTC().Format(time.RFC3339)
}

func dynDate(args []string) string {
	format := "2006-01-02"
	if len(args) >= 1 && args[0] != "" {
		format = args[0]
	}
	return time.Now().UTC().Format(format)
}

func dynTime(_ []string) string {
	return time.Now().UTC().Format("15:04:05")
}

func dynUUID(_ []string) string {
	return uuid.New().String()
}

func dynRandom(args []string) string {
	min, max := 0, 1000
	if len(args) >= 2 {
		if v, err := strconv.Atoi(args[0]); err == nil {
			min = v
		}
		if v, err := strconv.Atoi(args[1]); err == nil {
			max = v
		}
	}
	if max < min {
		min, max = max, min
	}
	return strconv.Itoa(rand.Intn(max-min+1) + min)
}

func dynRandomInt(_ []string) string {
	return strconv.Itoa(rand.Int())
}

func dynRandomString(args []string) string {
	length := 16
	if len(args) >= 1 {
		if v, err := strconv.Atoi(args[0]); err == nil && v > 0 {
			length = v
		}
	}
	return randomString(length, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")
}

func dynRandomEmail(_ []string) string {
	user := randomString(8, "abcdefghijklmnopqrstuvwxyz")
	domain := randomString(6, "abcdefghijklmnopqrstuvwxyz")
	return fmt.Sprintf("%s@%s.com", user, domain)
}

func dynBase64(args []string) string {
	if len(args) < 1 {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(args[0]))
}

func dynSHA256(args []string) string {
	if len(args) < 1 {
		return ""
	}
	hash := sha256.Sum256([]byte(args[0]))
	return hex.EncodeToString(hash[:])
}

func dynURLEncode(args []string) string {
	if len(args) < 1 {
		return ""
	}
	return url.QueryEscape(args[0])
}

func randomString(length int, charset string) string {
	result := make([]byte, length)
	for i := range result {
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}

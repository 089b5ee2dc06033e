package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Sanitize drops operator keys ("$where") from query strings and JSON bodies, and
// dotted keys from bodies, then strips every HTML tag from the body's string values
// except passwords.
func Sanitize() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if query := r.URL.Query(); hasOperatorKeys(query) {
				for key := range query {
					if strings.HasPrefix(key, "$") {
						query.Del(key)
					}
				}

				r.URL.RawQuery = query.Encode()
			}

			if isJSONBody(r) {
				sanitizeBody(r)
			}

			next.ServeHTTP(w, r)
		})
	}
}

func sanitizeBody(r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	_ = r.Body.Close()

	if err != nil {
		r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(raw), errReader{err}))

		return
	}

	// Undecodable bodies go back untouched, the handler reports the failure.
	restore := func(body []byte) {
		r.Body = io.NopCloser(bytes.NewReader(body))
		r.ContentLength = int64(len(body))
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		restore(raw)

		return
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var payload any
	if err := decoder.Decode(&payload); err != nil {
		restore(raw)

		return
	}

	cleaned, err := json.Marshal(sanitizeValue(payload))
	if err != nil {
		restore(raw)

		return
	}

	restore(cleaned)
}

// passwordKeys hold secrets compared byte for byte, so their string values keep any markup.
var passwordKeys = map[string]struct{}{
	"password":        {},
	"passwordConfirm": {},
	"passwordCurrent": {},
}

func sanitizeValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, child := range v {
			if isOperatorKey(key) {
				delete(v, key)

				continue
			}

			if _, secret := passwordKeys[key]; secret {
				if _, ok := child.(string); ok {
					continue
				}
			}

			v[key] = sanitizeValue(child)
		}

		return v
	case []any:
		for i, child := range v {
			v[i] = sanitizeValue(child)
		}

		return v
	case string:
		return StripTags(v)
	default:
		return v
	}
}

// StripTags keeps the text of s and drops markup along with script and style contents.
func StripTags(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	var (
		out       strings.Builder
		tokenizer = html.NewTokenizer(strings.NewReader(s))
		skipDepth int
	)

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return out.String()
		case html.StartTagToken:
			if isRawTextTag(tokenizer) {
				skipDepth++
			}
		case html.EndTagToken:
			if isRawTextTag(tokenizer) && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				out.Write(tokenizer.Text())
			}
		default:
		}
	}
}

func isRawTextTag(tokenizer *html.Tokenizer) bool {
	name, _ := tokenizer.TagName()

	switch atom.Lookup(name) {
	case atom.Script, atom.Style, atom.Iframe, atom.Noscript:
		return true
	default:
		return false
	}
}

func isOperatorKey(key string) bool {
	return strings.HasPrefix(key, "$") || strings.Contains(key, ".")
}

func hasOperatorKeys(values map[string][]string) bool {
	for key := range values {
		if strings.HasPrefix(key, "$") {
			return true
		}
	}

	return false
}

func isJSONBody(r *http.Request) bool {
	if r.Body == nil || r.Body == http.NoBody {
		return false
	}

	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return false
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))

	return err == nil && mediaType == "application/json"
}

// errReader replays a read failure, such as an exceeded body limit, to the handler.
type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) {
	return 0, e.err
}

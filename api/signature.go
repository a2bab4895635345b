package api

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/julienschmidt/httprouter"
)

const signatureHeader = "X-Twilio-Signature"

// Signature computes the webhook signature: HMAC-SHA1 of the full request URL
// followed by every POST parameter name and value in name order, base64 encoded.
func Signature(authToken, fullURL string, params url.Values) string {
	var b strings.Builder
	b.WriteString(fullURL)

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range params[k] {
			b.WriteString(k)
			b.WriteString(v)
		}
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature rejects webhook requests whose signature does not match.
// It is a no-op unless validation is enabled and an auth token is configured.
func (s *Server) VerifySignature(h httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		if s.Config == nil || !s.Config.ValidateWebhooks || s.Config.AuthToken == "" {
			h(w, r, p)
			return
		}

		if err := r.ParseForm(); err != nil {
			s.Response(w, r, s.Error(http.StatusBadRequest, err.Error(), "VerifySignature", r.URL.Path), http.StatusBadRequest)
			return
		}

		expected := Signature(s.Config.AuthToken, s.requestURL(r), r.PostForm)
		got := r.Header.Get(signatureHeader)
		if got == "" || !hmac.Equal([]byte(got), []byte(expected)) {
			s.Response(w, r, s.Error(http.StatusForbidden, "Invalid webhook signature.", "VerifySignature", r.URL.Path), http.StatusForbidden)
			return
		}

		h(w, r, p)
	}
}

// requestURL reconstructs the URL the provider called. BASE_URL wins when set,
// since proxies commonly rewrite scheme and host.
func (s *Server) requestURL(r *http.Request) string {
	if s.Config != nil && s.Config.BaseURL != "" {
		return s.Config.BaseURL + r.URL.RequestURI()
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

// absoluteURL turns a route path into a URL the provider can call back.
// Without BASE_URL the path stays relative, which the provider resolves
// against the current request.
func (s *Server) absoluteURL(path string) string {
	if s.Config != nil && s.Config.BaseURL != "" {
		return s.Config.BaseURL + path
	}
	return path
}

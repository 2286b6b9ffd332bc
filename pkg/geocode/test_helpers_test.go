package geocode

import (
	"net/http"
	"net/url"
	"strings"
)

// newRewriteClient builds an HTTP client that reroutes requests aimed at a
// provider endpoint prefix (the Google geocode URL or the RapidAPI host) to
// an httptest server, so provider code runs offline against canned responses.
func newRewriteClient(serverURL, prefix string) *http.Client {
	return &http.Client{Transport: &rewriteTransport{server: serverURL, prefix: prefix}}
}

type rewriteTransport struct {
	server string
	prefix string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	full := req.URL.String()
	if !strings.HasPrefix(full, t.prefix) {
		return http.DefaultTransport.RoundTrip(req)
	}
	rewritten, err := url.Parse(t.server + strings.TrimPrefix(full, t.prefix))
	if err != nil {
		return nil, err
	}
	clone := req.Clone(req.Context())
	clone.URL = rewritten
	clone.Host = rewritten.Host
	return http.DefaultTransport.RoundTrip(clone)
}

package http

import "net/http"

type authTransport struct {
	header    string
	scheme    string
	token     string
	transport http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	reqCopy := req.Clone(req.Context())

	if t.token != "" {
		value := t.token
		if t.scheme != "" {
			value = t.scheme + " " + t.token
		}
		reqCopy.Header.Set(t.header, value)
	}

	return t.transport.RoundTrip(reqCopy)
}

// WithAuthToken sends the token as "Authorization: Bearer <token>".
func WithAuthToken(token string) HttpOpts {
	return WithAuthHeader("Authorization", "Bearer", token)
}

// WithAuthHeader sends the token in an arbitrary header, e.g. "Api-Key".
// An empty scheme sends the raw token.
func WithAuthHeader(header, scheme, token string) HttpOpts {
	return WithTransport(func(rt http.RoundTripper) http.RoundTripper {
		return &authTransport{
			header:    header,
			scheme:    scheme,
			token:     token,
			transport: rt,
		}
	})
}

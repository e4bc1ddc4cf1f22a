// Package gateway serves an http.Handler behind an API Gateway style proxy
// event, the shape function platforms hand to Go functions.
package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/okian/locapi/pkg/logger"
)

const headerRequestID = "X-Request-ID"

// Adapter converts proxy events into HTTP requests for a handler.
type Adapter struct {
	handler http.Handler
	logger  logger.Logger
}

// Option applies a configuration option to the Adapter.
type Option func(*Adapter)

// WithLogger sets a custom logger for the adapter.
func WithLogger(l logger.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// New wraps h. The returned adapter's Handle method can be passed to
// lambda.Start.
func New(h http.Handler, opts ...Option) *Adapter {
	a := &Adapter{handler: h, logger: logger.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handle serves one proxy event.
func (a *Adapter) Handle(ctx context.Context, ev events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	req, err := NewRequest(ctx, ev)
	if err != nil {
		a.logger.Error(ctx, "invalid proxy event", logger.Error(err))
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusBadRequest,
			Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
			Body:       `{"error":"invalid request"}`,
		}, nil
	}

	rec := newRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec.response(), nil
}

// NewRequest builds the *http.Request described by ev.
func NewRequest(ctx context.Context, ev events.APIGatewayProxyRequest) (*http.Request, error) {
	path := ev.Path
	if path == "" {
		path = "/"
	}
	u := &url.URL{Path: path, RawQuery: query(ev).Encode()}

	body := []byte(ev.Body)
	if ev.IsBase64Encoded && ev.Body != "" {
		decoded, err := base64.StdEncoding.DecodeString(ev.Body)
		if err != nil {
			return nil, fmt.Errorf("decode body: %w", err)
		}
		body = decoded
	}

	method := ev.HTTPMethod
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	for k, vs := range ev.MultiValueHeaders {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, v := range ev.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	if req.Header.Get(headerRequestID) == "" && ev.RequestContext.RequestID != "" {
		req.Header.Set(headerRequestID, ev.RequestContext.RequestID)
	}

	req.Host = req.Header.Get("Host")
	req.ContentLength = int64(len(body))
	req.RequestURI = u.RequestURI()
	if ip := ev.RequestContext.Identity.SourceIP; ip != "" {
		req.RemoteAddr = ip
	}
	return req, nil
}

func query(ev events.APIGatewayProxyRequest) url.Values {
	q := url.Values{}
	for k, vs := range ev.MultiValueQueryStringParameters {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	for k, v := range ev.QueryStringParameters {
		if _, ok := q[k]; !ok {
			q.Set(k, v)
		}
	}
	return q
}

// recorder captures a handler's response in memory.
type recorder struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newRecorder() *recorder {
	return &recorder{header: http.Header{}}
}

func (r *recorder) Header() http.Header { return r.header }

func (r *recorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
}

func (r *recorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.body.Write(b)
}

func (r *recorder) response() events.APIGatewayProxyResponse {
	status := r.status
	if status == 0 {
		status = http.StatusOK
	}
	res := events.APIGatewayProxyResponse{
		StatusCode:        status,
		Headers:           make(map[string]string, len(r.header)),
		MultiValueHeaders: make(map[string][]string, len(r.header)),
	}
	for k, vs := range r.header {
		if len(vs) == 0 {
			continue
		}
		res.Headers[k] = vs[0]
		res.MultiValueHeaders[k] = append([]string(nil), vs...)
	}
	if isText(r.header.Get("Content-Type")) {
		res.Body = r.body.String()
	} else {
		res.Body = base64.StdEncoding.EncodeToString(r.body.Bytes())
		res.IsBase64Encoded = true
	}
	return res
}

func isText(contentType string) bool {
	ct := strings.ToLower(contentType)
	if ct == "" {
		return true
	}
	for _, t := range []string{"text/", "json", "xml", "javascript", "yaml", "x-www-form-urlencoded"} {
		if strings.Contains(ct, t) {
			return true
		}
	}
	return false
}

package data

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"GuardLane/internal/conf"
	"GuardLane/internal/model"
	pkglog "GuardLane/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"golang.org/x/net/proxy"
)

// defaultUserAgent identifies the transport when the upstream section does
// not configure one.
const defaultUserAgent = "GuardLane/1.0"

// HTTPTransport implements biz.Transport over a pooled net/http client.
// Following Kratos v2 DDD architecture, interface is defined in biz layer.
//
// One transport instance owns one connection pool. Per-attempt deadlines are
// applied through the request context, so keep-alive connections stay shared
// across attempts and targets.
type HTTPTransport struct {
	client    *http.Client
	userAgent string
	logger    *pkglog.LogHelper
}

// NewHTTPTransport creates the shared HTTP transport.
// Supports SOCKS5 and HTTP/HTTPS proxies via the upstream configuration.
func NewHTTPTransport(c *conf.Bootstrap, logger log.Logger) (*HTTPTransport, error) {
	helper := pkglog.NewLogHelper(logger)

	proxyURL := ""
	userAgent := defaultUserAgent
	if c != nil && c.Client != nil && c.Client.Upstream != nil {
		proxyURL = c.Client.Upstream.ProxyURL
		if c.Client.Upstream.UserAgent != "" {
			userAgent = c.Client.Upstream.UserAgent
		}
	}

	transport, err := newPooledTransport(proxyURL)
	if err != nil {
		return nil, err
	}

	if proxyURL != "" {
		helper.Startup("upstream proxy configured", "proxy_url", pkglog.MaskProxyPassword(proxyURL))
	}

	return &HTTPTransport{
		client: &http.Client{
			Transport: transport,
			// Per-attempt deadlines come from the request context, a client
			// level timeout would fight them
			Timeout: 0,
		},
		userAgent: userAgent,
		logger:    helper,
	}, nil
}

// newPooledTransport builds the pooled http.Transport, routed through a
// proxy when one is configured.
func newPooledTransport(proxyURL string) (*http.Transport, error) {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	if proxyURL == "" {
		return transport, nil
	}

	parsedProxy, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL: %w", err)
	}

	switch parsedProxy.Scheme {
	case "socks5", "socks5h":
		var auth *proxy.Auth
		if parsedProxy.User != nil {
			password, _ := parsedProxy.User.Password()
			auth = &proxy.Auth{
				User:     parsedProxy.User.Username(),
				Password: password,
			}
		}

		dialer, err := proxy.SOCKS5("tcp", parsedProxy.Host, auth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}

		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		}
	case "http", "https":
		transport.Proxy = http.ProxyURL(parsedProxy)
	default:
		return nil, fmt.Errorf("unsupported proxy scheme: %s", parsedProxy.Scheme)
	}

	return transport, nil
}

// Send performs one transport attempt with a hard per-attempt deadline.
// Non-2xx statuses are responses, not errors; only transport-level failures
// surface as errors.
func (t *HTTPTransport) Send(ctx context.Context, req *model.Request, deadline time.Duration) (*model.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("request is nil")
	}

	attemptCtx := ctx
	if deadline > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	for k, v := range req.Header {
		httpReq.Header.Set(k, v)
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", t.userAgent)
	}
	if httpReq.Header.Get("X-Request-Id") == "" {
		if requestID := pkglog.GetRequestID(ctx); requestID != "" {
			httpReq.Header.Set("X-Request-Id", requestID)
		}
	}
	// A fresh attempt id per send keeps retried attempts distinguishable
	// in upstream access logs
	httpReq.Header.Set("X-Attempt-Id", uuid.NewString())

	start := time.Now()
	httpResp, err := t.client.Do(httpReq)
	durationMs := time.Since(start).Milliseconds()
	if err != nil {
		t.logger.Transport("attempt failed",
			"method", req.Method,
			"url", req.URL,
			"duration_ms", durationMs,
			"error", err)
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	header := make(map[string]string, len(httpResp.Header))
	for k := range httpResp.Header {
		header[k] = httpResp.Header.Get(k)
	}

	t.logger.RequestWithContext(ctx, req.Method, req.URL, httpResp.StatusCode, durationMs)

	return &model.Response{
		StatusCode: httpResp.StatusCode,
		Header:     header,
		Body:       respBody,
	}, nil
}

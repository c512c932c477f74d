package proxy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/labstack/echo/v4"
	f "github.com/soffa-projects/jobrpc/core"
	"github.com/soffa-projects/jobrpc/h"
	"github.com/soffa-projects/jobrpc/log"
)

const codeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"

// nonJSON stands in for a body that is not JSON.
var nonJSON = map[string]any{"_binary_or_non_json": true}

var hopByHopHeaders = map[string]bool{
	"connection":          true,
	"keep-alive":          true,
	"proxy-authenticate":  true,
	"proxy-authorization": true,
	"proxy-connection":    true,
	"te":                  true,
	"trailer":             true,
	"transfer-encoding":   true,
	"upgrade":             true,
}

// exchange is what one relayed request produced.
type exchange struct {
	status int
	header http.Header
	body   []byte
	err    error
}

func (s *Server) relayUpstream(c echo.Context) error {
	target := *s.upstream
	target.Path = h.JoinPath(s.upstream.Path, c.Request().URL.Path)
	target.RawPath = ""
	return s.relay(c, &target)
}

// relayDynamic forwards /t/{port}/rest to http://<dynamic host>:{port}/rest.
func (s *Server) relayDynamic(c echo.Context) error {
	port, err := strconv.Atoi(c.Param("port"))
	if err != nil || port < 1 || port > 65535 {
		start := s.now()
		body, _ := io.ReadAll(c.Request().Body)
		msg := fmt.Sprintf("invalid target port %q", c.Param("port"))
		res := errorBody("BAD_TARGET", msg)
		return s.finish(c, start, body, exchange{
			status: http.StatusBadRequest,
			header: jsonHeader(),
			body:   res,
			err:    errors.New(msg),
		})
	}
	target := url.URL{
		Scheme: "http",
		Host:   fmt.Sprintf("%s:%d", s.cfg.DynamicHost, port),
		Path:   "/" + strings.TrimPrefix(c.Param("*"), "/"),
	}
	return s.relay(c, &target)
}

func (s *Server) relay(c echo.Context, target *url.URL) error {
	start := s.now()
	req := c.Request()
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("failed to read request body: %v", err))
	}
	target.RawQuery = req.URL.RawQuery
	return s.finish(c, start, body, s.forward(c, target, body))
}

func (s *Server) forward(c echo.Context, target *url.URL, body []byte) exchange {
	in := c.Request()
	// the body is relayed byte for byte, so resty must not decode it
	r := s.client.R().SetContext(in.Context()).SetDoNotParseResponse(true)
	r.Header = upstreamHeaders(in.Header)
	if len(body) > 0 {
		r.SetBody(body)
	}

	res, err := r.Execute(in.Method, target.String())
	var respBody []byte
	if err == nil {
		respBody, err = readRaw(res)
	}
	if err != nil {
		msg := fmt.Sprintf("upstream %s unreachable: %v", target.Host, err)
		log.Warn("%s %s: %s", in.Method, in.URL.RequestURI(), msg)
		return exchange{
			status: http.StatusBadGateway,
			header: jsonHeader(),
			body:   errorBody(codeUpstreamUnavailable, msg),
			err:    err,
		}
	}
	return exchange{
		status: res.StatusCode(),
		header: downstreamHeaders(res.Header()),
		body:   respBody,
	}
}

// readRaw reads the body as the upstream sent it, still encoded.
func readRaw(res *resty.Response) ([]byte, error) {
	raw := res.RawBody()
	if raw == nil {
		return nil, nil
	}
	defer raw.Close()
	body, err := io.ReadAll(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream body: %w", err)
	}
	return body, nil
}

// finish records the exchange, then answers the client. A failed audit
// write never changes the answer.
func (s *Server) finish(c echo.Context, start time.Time, reqBody []byte, ex exchange) error {
	req := c.Request()
	record := f.AuditRecord{
		Timestamp: start,
		Method:    req.Method,
		Path:      req.URL.RequestURI(),
		Request:   capture(reqBody),
		Response:  capture(decoded(ex.body, ex.header.Get(echo.HeaderContentEncoding))),
		Status:    ex.status,
		LatencyMs: s.now().Sub(start).Milliseconds(),
	}
	if ex.err != nil {
		record.Error = h.StrPtr(ex.err.Error())
	}
	if err := s.sink.Append(record); err != nil {
		n := s.auditFailures.Add(1)
		log.With(map[string]any{
			"path":     record.Path,
			"failures": n,
		}).Errorf("failed to write audit record: %v", err)
	}

	out := c.Response()
	for key, values := range ex.header {
		for _, value := range values {
			out.Header().Add(key, value)
		}
	}
	out.WriteHeader(ex.status)
	if len(ex.body) == 0 || !bodyAllowed(ex.status) {
		return nil
	}
	_, err := out.Write(ex.body)
	return err
}

func errorBody(code string, msg string) []byte {
	raw, _ := json.Marshal(map[string]any{"ok": false, "code": code, "msg": msg})
	return raw
}

// decoded returns a plain copy of a compressed body for the audit record.
// Unknown encodings and corrupt bodies come back as they are.
func decoded(body []byte, encoding string) []byte {
	if len(body) == 0 {
		return body
	}
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return body
		}
		defer zr.Close()
		if plain, err := io.ReadAll(zr); err == nil {
			return plain
		}
	case "zstd":
		zr, err := zstd.NewReader(bytes.NewReader(body))
		if err != nil {
			return body
		}
		defer zr.Close()
		if plain, err := io.ReadAll(zr); err == nil {
			return plain
		}
	}
	return body
}

// capture is the audit form of a body: its JSON as is, nil when empty, or
// a marker when it is not JSON.
func capture(body []byte) any {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if !json.Valid(body) {
		return nonJSON
	}
	return json.RawMessage(body)
}

func upstreamHeaders(in http.Header) http.Header {
	out := make(http.Header, len(in))
	for key, values := range in {
		switch {
		case isHopByHopHeader(key),
			strings.EqualFold(key, "Host"),
			strings.EqualFold(key, "Content-Length"):
			continue
		}
		out[key] = append([]string(nil), values...)
	}
	return out
}

func downstreamHeaders(in http.Header) http.Header {
	out := make(http.Header, len(in))
	for key, values := range in {
		// the body is written whole, the server recomputes its length
		if isHopByHopHeader(key) || strings.EqualFold(key, "Content-Length") {
			continue
		}
		out[key] = append([]string(nil), values...)
	}
	return out
}

func isHopByHopHeader(name string) bool {
	return hopByHopHeaders[strings.ToLower(name)]
}

func jsonHeader() http.Header {
	return http.Header{echo.HeaderContentType: []string{echo.MIMEApplicationJSON}}
}

func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status < 200:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}

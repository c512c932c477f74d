package rpc

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/soffa-projects/jobrpc/log"
)

const (
	DefaultConnectTimeout = 3 * time.Second
	DefaultReadTimeout    = 120 * time.Second
)

type TransportConfig struct {
	BaseURL        string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// Transport is the single HTTP client a Client uses for every call, so all
// polls of one command share pooled keep-alive connections.
type Transport struct {
	client *resty.Client
}

type response struct {
	Status int
	Body   []byte
	Header http.Header
}

func NewTransport(cfg TransportConfig) *Transport {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	dialer := &net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetLogger(log.Logger()).
		SetTransport(&http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			ResponseHeaderTimeout: cfg.ReadTimeout,
			MaxIdleConns:          16,
			MaxIdleConnsPerHost:   4,
			IdleConnTimeout:       90 * time.Second,
		}).
		SetHeader("Content-Type", "application/json; charset=utf-8").
		SetHeader("Accept-Charset", "utf-8").
		SetHeader("Accept", "application/json")
	return &Transport{client: client}
}

func (t *Transport) post(ctx context.Context, path string, query map[string]string, body any) (*response, error) {
	res, err := t.client.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetBody(body).
		Post(path)
	return wrap(res, err)
}

func (t *Transport) get(ctx context.Context, path string, headers map[string]string) (*response, error) {
	res, err := t.client.R().
		SetContext(ctx).
		SetHeaders(headers).
		Get(path)
	return wrap(res, err)
}

func wrap(res *resty.Response, err error) (*response, error) {
	if err != nil {
		return nil, err
	}
	return &response{
		Status: res.StatusCode(),
		Body:   res.Body(),
		Header: res.Header(),
	}, nil
}

package test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/soffa-projects/jobrpc/h"
)

type RestClient struct {
	client *resty.Client
	assert Assertions
}

type HttpRes struct {
	resp   *resty.Response
	err    error
	assert Assertions
}

type HttpReq struct {
	Body    any
	RawBody []byte
	Headers map[string]string
	Query   map[string]string
}

func NewRestClient(t *testing.T, baseUrl string) *RestClient {
	r := resty.New()
	r.SetRedirectPolicy(resty.NoRedirectPolicy())
	r.SetBaseURL(baseUrl)
	return &RestClient{client: r, assert: NewAssertions(t)}
}

func (c *RestClient) Get(path string, opts ...HttpReq) HttpRes {
	return c.invoke(http.MethodGet, path, opts...)
}

func (c *RestClient) Post(path string, opts ...HttpReq) HttpRes {
	return c.invoke(http.MethodPost, path, opts...)
}

func (c *RestClient) invoke(method string, path string, opts ...HttpReq) HttpRes {
	q := c.client.R()
	for _, opt := range opts {
		if opt.RawBody != nil {
			q = q.SetBody(opt.RawBody)
		} else if opt.Body != nil {
			q = q.SetBody(opt.Body)
		}
		for key, value := range opt.Headers {
			q = q.SetHeader(key, value)
		}
		if opt.Query != nil {
			q = q.SetQueryParams(opt.Query)
		}
	}
	resp, err := q.Execute(method, path)
	c.assert.Nil(err, "request %s %s failed", method, path)
	return HttpRes{
		resp:   resp,
		err:    err,
		assert: c.assert,
	}
}

func (r HttpRes) IsOk() HttpRes {
	r.assert.Equals(r.resp.StatusCode(), http.StatusOK)
	return r
}

func (r HttpRes) Is(status int) HttpRes {
	r.assert.Equals(r.resp.StatusCode(), status)
	return r
}

func (r HttpRes) IsBadRequest() HttpRes {
	r.assert.Equals(r.resp.StatusCode(), http.StatusBadRequest)
	return r
}

func (r HttpRes) Status() int {
	return r.resp.StatusCode()
}

func (r HttpRes) Result() []byte {
	return r.resp.Body()
}

func (r HttpRes) Header(name string) string {
	return r.resp.Header().Get(name)
}

func (r HttpRes) JSONValue() h.JsonValue {
	return h.NewJsonBytes(r.Result())
}

func (r HttpRes) JSON() *JsonMatcher {
	result := r.Result()
	r.assert.NotNil(result)
	var data any
	err := json.Unmarshal(result, &data)
	r.assert.Nil(err, "failed to unmarshal json")
	return &JsonMatcher{assert: r.assert, value: string(result)}
}

type JsonMatcher struct {
	assert Assertions
	value  string
}

func (j JsonMatcher) Match(pattern string) JsonMatcher {
	j.assert.MatchJson(j.value, pattern)
	return j
}

func (j JsonMatcher) MatchShape(pattern string) JsonMatcher {
	j.assert.MatchShape(j.value, pattern)
	return j
}

func (j JsonMatcher) Value() h.JsonValue {
	return h.NewJsonValue(j.value)
}

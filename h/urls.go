package h

import (
	"net/url"
	"strconv"
	"strings"
)

type Url struct {
	Scheme   string
	Path     string
	Url      string
	Host     string
	User     string
	Password string
	query    map[string]string
}

func ParseUrl(input string) (Url, error) {
	u, err := url.Parse(input)
	if err != nil {
		return Url{}, err
	}
	queryParams := make(map[string]string)
	for key, values := range u.Query() {
		if len(values) > 0 {
			queryParams[key] = values[0]
		}
	}
	password, _ := u.User.Password()
	return Url{
		Scheme:   u.Scheme,
		Path:     u.Path,
		Url:      input,
		Host:     u.Host,
		User:     u.User.Username(),
		Password: password,
		query:    queryParams,
	}, nil
}

func (u Url) HasQueryParam(key string) bool {
	_, ok := u.query[key]
	return ok
}

func (u Url) Query(key string) string {
	return u.query[key]
}

// Database returns the numeric database index from the path ("/2") or the
// "db" query parameter, in that order. It defaults to 0.
func (u Url) Database() (int, error) {
	raw := strings.TrimPrefix(u.Path, "/")
	if raw == "" {
		raw = u.Query("db")
	}
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// JoinPath appends path to the base URL path with exactly one slash between them.
func JoinPath(base string, path string) string {
	aslash := strings.HasSuffix(base, "/")
	bslash := strings.HasPrefix(path, "/")
	switch {
	case aslash && bslash:
		return base + path[1:]
	case !aslash && !bslash:
		return base + "/" + path
	}
	return base + path
}

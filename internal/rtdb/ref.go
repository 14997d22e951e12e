package rtdb

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/i474232898/forecast-crud/internal/session"
)

// OwnerSuffix is appended to the resource name to form the per-user
// partition, e.g. "WeatherForecastOwner/<uid>".
const OwnerSuffix = "Owner"

var ErrEmptyKey = errors.New("rtdb: empty record key")

// Ref addresses one user's collection of a resource in the database.
type Ref struct {
	BaseURL  string
	Resource string
	Session  session.Session
}

// NewRef validates its inputs and returns a Ref.
func NewRef(baseURL, resource string, s session.Session) (Ref, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Ref{}, fmt.Errorf("rtdb: invalid base url %q", baseURL)
	}
	if resource == "" {
		return Ref{}, errors.New("rtdb: empty resource name")
	}
	if err := s.Validate(); err != nil {
		return Ref{}, err
	}
	return Ref{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Resource: resource,
		Session:  s,
	}, nil
}

// CollectionPath is the path of the user's collection without the ".json"
// suffix or query string.
func (r Ref) CollectionPath() string {
	return "/" + url.PathEscape(r.Resource+OwnerSuffix) + "/" + url.PathEscape(r.Session.UserID)
}

// CollectionURL addresses every record the user owns:
// {base}/{resource}Owner/{uid}.json?auth={token}
func (r Ref) CollectionURL() string {
	return r.BaseURL + r.CollectionPath() + ".json?" + r.authQuery()
}

// ItemURL addresses a single record by key:
// {base}/{resource}Owner/{uid}/{key}.json?auth={token}
func (r Ref) ItemURL(key string) (string, error) {
	if key == "" {
		return "", ErrEmptyKey
	}
	return r.BaseURL + r.CollectionPath() + "/" + url.PathEscape(key) + ".json?" + r.authQuery(), nil
}

func (r Ref) authQuery() string {
	return url.Values{"auth": {r.Session.Token}}.Encode()
}

package geocode

import (
	"context"
	"strconv"
	"strings"
	"sync"
)

// Static answers from fixed tables and records every call. It backs tests and
// offline development; unknown input is ErrNotFound.
type Static struct {
	mu       sync.Mutex
	places   map[string]Place
	reverse  map[string]Place
	failures map[string]error
	calls    []Call
}

type Call struct {
	Mode      string
	Query     string
	Requester string
}

func NewStatic() *Static {
	return &Static{
		places:   map[string]Place{},
		reverse:  map[string]Place{},
		failures: map[string]error{},
	}
}

func coordKey(lat, lng float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
}

func (s *Static) AddPlace(query string, place Place) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.places[strings.TrimSpace(query)] = place
	return s
}

func (s *Static) AddReverse(lat, lng float64, place Place) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reverse[coordKey(lat, lng)] = place
	return s
}

// Fail makes a forward query return err.
func (s *Static) Fail(query string, err error) *Static {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[strings.TrimSpace(query)] = err
	return s
}

func (s *Static) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

func (s *Static) Forward(ctx context.Context, query string, requester string) (Place, error) {
	if err := ctx.Err(); err != nil {
		return Place{}, providerError("%v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	query = strings.TrimSpace(query)
	s.calls = append(s.calls, Call{Mode: "forward", Query: query, Requester: requesterOrDefault(requester)})
	if err, ok := s.failures[query]; ok {
		return Place{}, err
	}
	place, ok := s.places[query]
	if !ok {
		return Place{}, ErrNotFound
	}
	return place, nil
}

func (s *Static) Reverse(ctx context.Context, lat, lng float64, requester string) (Place, error) {
	if err := ctx.Err(); err != nil {
		return Place{}, providerError("%v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := coordKey(lat, lng)
	s.calls = append(s.calls, Call{Mode: "reverse", Query: key, Requester: requesterOrDefault(requester)})
	place, ok := s.reverse[key]
	if !ok {
		return Place{}, ErrNotFound
	}
	return place, nil
}

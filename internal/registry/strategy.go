package registry

import (
	"context"
	"strings"
)

// Status is the result of one resolution attempt
type Status int

const (
	// StatusNotFound means the registry answered but had no matching entity,
	// or no strategy applied to the query
	StatusNotFound Status = iota
	// StatusFound means a record was obtained
	StatusFound
	// StatusFailed means the lookup broke (network, status, body); the
	// pipeline treats it like StatusNotFound
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusFailed:
		return "failed"
	default:
		return "not_found"
	}
}

// MarshalText renders the status by name
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Query carries the candidates taken from the document
type Query struct {
	Identifier string
	Name       string
}

// Outcome is what a strategy produced
type Outcome struct {
	Status   Status
	Strategy string
	Record   Record
	Err      error
}

// Strategy is one step of the resolution chain
type Strategy interface {
	Name() string
	Applies(q Query) bool
	Resolve(ctx context.Context, q Query) Outcome
}

// IDLookuper fetches a record by organisation number
type IDLookuper interface {
	LookupByID(ctx context.Context, identifier string) (Record, error)
}

// NameSearcher fetches the first record of a name search
type NameSearcher interface {
	SearchByName(ctx context.Context, name string) (Record, error)
}

// Strategy names
const (
	StrategyByIdentifier = "by_identifier"
	StrategyByName       = "by_name"
)

type identifierStrategy struct {
	client IDLookuper
}

// ByIdentifier resolves through the lookup endpoint. Identifier matches are
// unambiguous and treated as authoritative.
func ByIdentifier(client IDLookuper) Strategy {
	return identifierStrategy{client: client}
}

func (s identifierStrategy) Name() string { return StrategyByIdentifier }

func (s identifierStrategy) Applies(q Query) bool {
	return NormalizeIdentifier(q.Identifier) != ""
}

func (s identifierStrategy) Resolve(ctx context.Context, q Query) Outcome {
	rec, err := s.client.LookupByID(ctx, q.Identifier)
	return toOutcome(s.Name(), rec, err)
}

type nameStrategy struct {
	client NameSearcher
}

// ByName resolves through the search endpoint, first hit wins
func ByName(client NameSearcher) Strategy {
	return nameStrategy{client: client}
}

func (s nameStrategy) Name() string { return StrategyByName }

func (s nameStrategy) Applies(q Query) bool {
	return strings.TrimSpace(q.Name) != ""
}

func (s nameStrategy) Resolve(ctx context.Context, q Query) Outcome {
	rec, err := s.client.SearchByName(ctx, q.Name)
	return toOutcome(s.Name(), rec, err)
}

func toOutcome(strategy string, rec Record, err error) Outcome {
	switch {
	case err == nil && len(rec) > 0:
		return Outcome{Status: StatusFound, Strategy: strategy, Record: rec}
	case err == nil, IsNotFound(err):
		return Outcome{Status: StatusNotFound, Strategy: strategy, Err: err}
	default:
		return Outcome{Status: StatusFailed, Strategy: strategy, Err: err}
	}
}

// DefaultStrategies is identifier first, then name
func DefaultStrategies(c *Client) []Strategy {
	return []Strategy{ByIdentifier(c), ByName(c)}
}

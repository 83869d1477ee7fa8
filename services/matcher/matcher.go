// Package matcher resolves a visitor's name and email to their active
// certificates using forgiving, OR-combined string heuristics.
package matcher

import (
	"certhub/models"
	"certhub/repository"
	"context"
	"log"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrEmptyQuery   = errors.New("name and email are required")
	ErrSearchFailed = errors.New("search failed")
)

// MatchKind names the strongest name heuristic a result satisfied.
type MatchKind string

const (
	MatchNormalized MatchKind = "normalized"
	MatchSubstring  MatchKind = "substring"
	MatchPhonetic   MatchKind = "phonetic"
)

// Store is the read side of the certificate store the matcher needs.
type Store interface {
	Find(ctx context.Context, f repository.CertificateFilter) ([]models.Certificate, error)
}

type Options struct {
	// Phonetic enables the Soundex tier of name matching.
	Phonetic bool
}

type Result struct {
	Certificate models.Certificate
	Match       MatchKind
}

type Matcher struct {
	store Store
	opts  Options
}

func New(store Store, opts Options) *Matcher {
	return &Matcher{store: store, opts: opts}
}

// Normalize strips spaces and periods and lower-cases the rest.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ".", "")
	return strings.ToLower(s)
}

// NameMatches reports whether candidate satisfies any name heuristic for query.
func (m *Matcher) NameMatches(candidate, query string) (MatchKind, bool) {
	if q := Normalize(query); q != "" && strings.Contains(Normalize(candidate), q) {
		return MatchNormalized, true
	}
	if strings.Contains(strings.ToLower(candidate), strings.ToLower(query)) {
		return MatchSubstring, true
	}
	if m.opts.Phonetic {
		if key := Soundex(query); key != "" && key == Soundex(candidate) {
			return MatchPhonetic, true
		}
	}
	return "", false
}

// EmailMatches is normalized equality or a case-insensitive substring.
func EmailMatches(candidate, query string) bool {
	if Normalize(candidate) == Normalize(query) {
		return true
	}
	return strings.Contains(strings.ToLower(candidate), strings.ToLower(query))
}

// Search returns active certificates matching both name and email, newest
// first. Blank inputs are rejected before the store is touched.
func (m *Matcher) Search(ctx context.Context, name, email string) ([]Result, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" {
		return nil, ErrEmptyQuery
	}

	// The store narrows by status and a superset of the email rule; the
	// predicates below decide.
	candidates, err := m.store.Find(ctx, repository.CertificateFilter{
		Status: models.CertificateActive,
		Email: &repository.EmailPrefilter{
			Normalized: Normalize(email),
			Lowered:    strings.ToLower(email),
		},
	})
	if err != nil {
		log.Printf("[VERIFY] store lookup failed: %v", err)
		return nil, errors.Wrap(ErrSearchFailed, err.Error())
	}

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		if c.Status != models.CertificateActive || !EmailMatches(c.Email, email) {
			continue
		}
		if kind, ok := m.NameMatches(c.Name, name); ok {
			results = append(results, Result{Certificate: c, Match: kind})
		}
	}
	return results, nil
}

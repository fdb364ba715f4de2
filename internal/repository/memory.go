package repository

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"PropRecon/internal/domain/models"
	"PropRecon/internal/domain/repository"
	"PropRecon/pkg/util"
)

// In-memory implementations of the repository interfaces. They back the
// "memory" storage mode (yaml fixture files, demos) and the test suites.

// MemoryObservedListings serves a fixed observed snapshot.
type MemoryObservedListings struct {
	Listings []models.ObservedListing
}

func NewMemoryObservedListings(listings []models.ObservedListing) *MemoryObservedListings {
	return &MemoryObservedListings{Listings: listings}
}

func (m *MemoryObservedListings) List(context.Context) ([]models.ObservedListing, error) {
	return m.Listings, nil
}

// MemoryCanonicalListings serves a fixed canonical snapshot.
type MemoryCanonicalListings struct {
	Listings []models.CanonicalListing
}

func NewMemoryCanonicalListings(listings []models.CanonicalListing) *MemoryCanonicalListings {
	return &MemoryCanonicalListings{Listings: listings}
}

func (m *MemoryCanonicalListings) List(context.Context) ([]models.CanonicalListing, error) {
	return m.Listings, nil
}

type observedDoc struct {
	ID              string   `yaml:"id"`
	Title           string   `yaml:"title"`
	Address         string   `yaml:"address"`
	Price           *float64 `yaml:"price"`
	CreatedAt       string   `yaml:"created_at"`
	ConfidenceScore float64  `yaml:"confidence_score"`
	Source          struct {
		Name      string `yaml:"name"`
		TrustTier string `yaml:"trust_tier"`
	} `yaml:"source"`
}

type canonicalDoc struct {
	ID      string  `yaml:"id"`
	Title   string  `yaml:"title"`
	Address string  `yaml:"address"`
	City    string  `yaml:"city"`
	Price   float64 `yaml:"price"`
}

// LoadObservedFile reads an observed snapshot from a yaml fixture file.
func LoadObservedFile(path string) (*MemoryObservedListings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read observed fixture: %w", err)
	}
	var docs []observedDoc
	if err := yaml.Unmarshal(b, &docs); err != nil {
		return nil, fmt.Errorf("parse observed fixture: %w", err)
	}
	listings := make([]models.ObservedListing, 0, len(docs))
	for _, d := range docs {
		o := models.ObservedListing{
			ID:              d.ID,
			Title:           d.Title,
			Address:         d.Address,
			Price:           d.Price,
			ConfidenceScore: d.ConfidenceScore,
		}
		o.Source.Name = d.Source.Name
		o.Source.TrustTier = d.Source.TrustTier
		if d.CreatedAt != "" {
			t, ok := util.ParseTime(d.CreatedAt)
			if !ok {
				return nil, fmt.Errorf("observed fixture %s: bad created_at %q", d.ID, d.CreatedAt)
			}
			o.CreatedAt = t
		}
		listings = append(listings, o)
	}
	return NewMemoryObservedListings(listings), nil
}

// LoadCanonicalFile reads a canonical snapshot from a yaml fixture file.
func LoadCanonicalFile(path string) (*MemoryCanonicalListings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read canonical fixture: %w", err)
	}
	var docs []canonicalDoc
	if err := yaml.Unmarshal(b, &docs); err != nil {
		return nil, fmt.Errorf("parse canonical fixture: %w", err)
	}
	listings := make([]models.CanonicalListing, 0, len(docs))
	for _, d := range docs {
		listings = append(listings, models.CanonicalListing(d))
	}
	return NewMemoryCanonicalListings(listings), nil
}

// MemorySignalStore mirrors the SQLite store's semantics for tests.
type MemorySignalStore struct {
	mu      sync.Mutex
	signals []models.Signal
}

func NewMemorySignalStore() *MemorySignalStore {
	return &MemorySignalStore{}
}

func (m *MemorySignalStore) Init(context.Context) error { return nil }

func (m *MemorySignalStore) Reconcile(_ context.Context, signals []models.Signal) (models.ReconcileStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stats models.ReconcileStats
	existing := make(map[string]int, len(m.signals))
	for i, s := range m.signals {
		existing[s.Fingerprint()] = i
	}

	produced := make(map[string]struct{}, len(signals))
	var next []models.Signal
	// retained rows first, in their original order
	for _, s := range m.signals {
		keep := false
		for _, sig := range signals {
			if sig.Fingerprint() == s.Fingerprint() {
				keep = true
				break
			}
		}
		if keep {
			next = append(next, s)
			stats.Retained++
		} else {
			stats.Retired++
		}
	}
	for _, sig := range signals {
		fp := sig.Fingerprint()
		if _, dup := produced[fp]; dup {
			continue
		}
		produced[fp] = struct{}{}
		if _, ok := existing[fp]; ok {
			continue
		}
		sig.Status = models.StatusOpen
		next = append(next, sig)
		stats.Inserted++
	}
	m.signals = next
	return stats, nil
}

func (m *MemorySignalStore) ReplaceAll(_ context.Context, signals []models.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]struct{}, len(signals))
	next := make([]models.Signal, 0, len(signals))
	for _, sig := range signals {
		fp := sig.Fingerprint()
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		sig.Status = models.StatusOpen
		next = append(next, sig)
	}
	m.signals = next
	return nil
}

func (m *MemorySignalStore) List(_ context.Context, f repository.SignalFilter) ([]models.Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Signal
	for _, s := range m.signals {
		if f.Type != "" && s.Type != f.Type {
			continue
		}
		if f.Severity != "" && s.Severity != f.Severity {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		out = append(out, s)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (m *MemorySignalStore) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.signals), nil
}

func (m *MemorySignalStore) CountByType(context.Context) (map[models.SignalType]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[models.SignalType]int)
	for _, s := range m.signals {
		counts[s.Type]++
	}
	return counts, nil
}

func (m *MemorySignalStore) UpdateStatus(_ context.Context, id string, status models.SignalStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.signals {
		if s.ID != id {
			continue
		}
		if !s.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s -> %s", repository.ErrIllegalTransition, s.Status, status)
		}
		m.signals[i].Status = status
		return nil
	}
	return fmt.Errorf("signal %s: %w", id, repository.ErrSignalNotFound)
}

func (m *MemorySignalStore) Close() error { return nil }

// NopPublisher drops signals; used when Kafka is disabled and in tests.
type NopPublisher struct {
	mu        sync.Mutex
	Published []models.Signal
}

func NewNopPublisher() *NopPublisher {
	return &NopPublisher{}
}

func (p *NopPublisher) PublishSignals(_ context.Context, signals []models.Signal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Published = append(p.Published, signals...)
	return nil
}

func (p *NopPublisher) Close() error { return nil }

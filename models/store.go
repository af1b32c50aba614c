package models

import (
	"errors"
	"sort"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/closing_backend/utils"
)

// Store holds all workflow state for the session, keyed by entry id.
// State is volatile on purpose: it is rebuilt per session (seed data at
// startup), there is no durability contract.
//
// Every per-entry collection is initialized explicitly in AddAsset, never
// lazily on first read, so read paths can not mutate the maps. Writers
// serialize through the per-entry lock (WithEntry); the store-level lock
// only guards the maps themselves.
type Store struct {
	mu       sync.RWMutex
	assets   map[string]*Asset
	checks   map[string][]*QualityCheck
	uploads  map[string][]*Upload
	threads  map[string][]*Thread
	findings map[string]*Findings
	entryMu  map[string]*sync.Mutex
	order    []string
}

func NewStore() *Store {
	return &Store{
		assets:   map[string]*Asset{},
		checks:   map[string][]*QualityCheck{},
		uploads:  map[string][]*Upload{},
		threads:  map[string][]*Thread{},
		findings: map[string]*Findings{},
		entryMu:  map[string]*sync.Mutex{},
	}
}

// AddAsset registers the entry and initializes all of its collections.
func (s *Store) AddAsset(a *Asset, checks []*QualityCheck, uploads []*Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.assets[a.ID]; exists {
		return errors.New("asset id already exists")
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	s.assets[a.ID] = a
	s.checks[a.ID] = append([]*QualityCheck{}, checks...)
	s.uploads[a.ID] = append([]*Upload{}, uploads...)
	s.threads[a.ID] = []*Thread{}
	s.findings[a.ID] = &Findings{AssetId: a.ID, Status: FindingsStatusNotStarted}
	s.entryMu[a.ID] = &sync.Mutex{}
	s.order = append(s.order, a.ID)
	return nil
}

// WithEntry runs fn while holding the entry's write lock. All mutations
// of an entry's workflow state, checks, uploads, threads and findings go
// through here, which gives the "one active mutation per target"
// guarantee without a global lock.
func (s *Store) WithEntry(assetId string, fn func() error) error {
	s.mu.RLock()
	em, ok := s.entryMu[assetId]
	s.mu.RUnlock()
	if !ok {
		return utils.ErrorRecordNotFound
	}
	em.Lock()
	defer em.Unlock()
	return fn()
}

func (s *Store) Asset(assetId string) (*Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets[assetId]
	if !ok {
		return nil, utils.ErrorRecordNotFound
	}
	return a, nil
}

// StatusRef snapshots the entry's status triplet under the entry lock.
// Read paths must use this instead of reading Asset fields directly:
// validation resolution and the EBS settle timer mutate them from
// background goroutines.
func (s *Store) StatusRef(assetId string) (StatusRef, error) {
	var ref StatusRef
	err := s.WithEntry(assetId, func() error {
		a, err := s.Asset(assetId)
		if err != nil {
			return err
		}
		ref = a.StatusRef()
		return nil
	})
	return ref, err
}

// ListByPeriod returns entries for the period (all when period is empty)
// in insertion order.
func (s *Store) ListByPeriod(period string) []*Asset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Asset, 0, len(s.order))
	for _, id := range s.order {
		a := s.assets[id]
		if period == "" || a.Period == period {
			out = append(out, a)
		}
	}
	return out
}

func (s *Store) Periods() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]bool{}
	var out []string
	for _, a := range s.assets {
		if !seen[a.Period] {
			seen[a.Period] = true
			out = append(out, a.Period)
		}
	}
	sort.Strings(out)
	return out
}

func (s *Store) Checks(assetId string) ([]*QualityCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cs, ok := s.checks[assetId]
	if !ok {
		return nil, utils.ErrorRecordNotFound
	}
	return cs, nil
}

func (s *Store) Check(assetId, checkId string) (*QualityCheck, error) {
	cs, err := s.Checks(assetId)
	if err != nil {
		return nil, err
	}
	for _, c := range cs {
		if c.ID == checkId {
			return c, nil
		}
	}
	return nil, utils.ErrorRecordNotFound
}

// AppendCheck must be called under WithEntry.
func (s *Store) AppendCheck(assetId string, c *QualityCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.checks[assetId]; !ok {
		return utils.ErrorRecordNotFound
	}
	s.checks[assetId] = append(s.checks[assetId], c)
	return nil
}

func (s *Store) Uploads(assetId string) ([]*Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	us, ok := s.uploads[assetId]
	if !ok {
		return nil, utils.ErrorRecordNotFound
	}
	return us, nil
}

func (s *Store) Upload(assetId, uploadId string) (*Upload, error) {
	us, err := s.Uploads(assetId)
	if err != nil {
		return nil, err
	}
	for _, u := range us {
		if u.ID == uploadId {
			return u, nil
		}
	}
	return nil, utils.ErrorRecordNotFound
}

func (s *Store) Threads(assetId string) ([]*Thread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ts, ok := s.threads[assetId]
	if !ok {
		return nil, utils.ErrorRecordNotFound
	}
	return ts, nil
}

func (s *Store) Thread(assetId, threadId string) (*Thread, error) {
	ts, err := s.Threads(assetId)
	if err != nil {
		return nil, err
	}
	for _, t := range ts {
		if t.ID == threadId {
			return t, nil
		}
	}
	return nil, utils.ErrorRecordNotFound
}

// AppendThread must be called under WithEntry.
func (s *Store) AppendThread(assetId string, t *Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[assetId]; !ok {
		return utils.ErrorRecordNotFound
	}
	s.threads[assetId] = append(s.threads[assetId], t)
	return nil
}

func (s *Store) Findings(assetId string) (*Findings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.findings[assetId]
	if !ok {
		return nil, utils.ErrorRecordNotFound
	}
	return f, nil
}

// Touch bumps the entry's UpdatedAt. Call under WithEntry.
func (s *Store) Touch(assetId string) {
	if a, err := s.Asset(assetId); err == nil {
		a.UpdatedAt = time.Now().UTC()
	}
}

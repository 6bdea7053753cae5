package features

import (
	"sync"
	"time"

	"github.com/macedonia-transparency/procurement-pipeline/internal/logging"
)

var profileLog = logging.For("features.entity_profile")

// EntityProfile caches one procuring entity's running award history so
// the relationship and historical feature families don't re-query the
// store for every tender processed in a batch. It holds the same
// counters Peer carries, refreshed incrementally as tenders are
// scored.
type EntityProfile struct {
	ProcuringEntityID     int64
	PastWinnersByBidder   map[int64]int
	PastAwardsTotal       int
	PastCancelCount       int
	LastUpdated           int64
}

func newEntityProfile(id int64) *EntityProfile {
	return &EntityProfile{ProcuringEntityID: id, PastWinnersByBidder: map[int64]int{}}
}

// Record folds one scored tender's outcome into the profile: a winner
// bidder's win count and, if the tender was cancelled, the cancel
// counter.
func (p *EntityProfile) Record(winnerBidderID int64, cancelled bool) {
	if winnerBidderID != 0 {
		p.PastWinnersByBidder[winnerBidderID]++
		p.PastAwardsTotal++
	}
	if cancelled {
		p.PastCancelCount++
	}
	p.LastUpdated = time.Now().Unix()
}

// EntityProfileManagerOptions configures the manager's eviction
// policy, mirroring the teacher's SiteContextManagerOptions shape.
type EntityProfileManagerOptions struct {
	MaxProfiles     int
	CleanupInterval time.Duration
}

// DefaultEntityProfileManagerOptions matches the teacher's defaults:
// a generous cap and a periodic sweep rather than per-access TTL
// checks, since a single analyzer run processes a bounded dataset.
func DefaultEntityProfileManagerOptions() EntityProfileManagerOptions {
	return EntityProfileManagerOptions{
		MaxProfiles:     500,
		CleanupInterval: 15 * time.Minute,
	}
}

// EntityProfileManager is a thread-safe, size-bounded cache of
// EntityProfile keyed by procuring entity id, adapted from the teacher
// repo's SiteContextManager (which cached per-host security-context
// state the same way, evicting the least-recently-active entry once
// the map grew past its cap). The cap and periodic-cleanup-goroutine
// shape is unchanged; the cached value's fields are a procurement
// award history rather than an HTTP site context.
type EntityProfileManager struct {
	mu            sync.RWMutex
	profiles      map[int64]*EntityProfile
	maxProfiles   int
	cleanupTicker *time.Ticker
	stopCh        chan struct{}
}

func NewEntityProfileManager(opts EntityProfileManagerOptions) *EntityProfileManager {
	if opts.MaxProfiles <= 0 {
		opts = DefaultEntityProfileManagerOptions()
	}
	m := &EntityProfileManager{
		profiles:    map[int64]*EntityProfile{},
		maxProfiles: opts.MaxProfiles,
		stopCh:      make(chan struct{}),
	}
	if opts.CleanupInterval > 0 {
		m.startCleanup(opts.CleanupInterval)
	}
	return m
}

func (m *EntityProfileManager) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	m.cleanupTicker = ticker
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.evictIfOverCap()
			case <-m.stopCh:
				return
			}
		}
	}()
}

// Stop halts the cleanup goroutine; safe to call once.
func (m *EntityProfileManager) Stop() {
	if m.cleanupTicker != nil {
		close(m.stopCh)
		m.cleanupTicker.Stop()
		m.cleanupTicker = nil
	}
}

// GetOrCreate returns entityID's profile, creating an empty one (and
// evicting the least-recently-updated profile first, if at capacity)
// if none exists yet.
func (m *EntityProfileManager) GetOrCreate(entityID int64) *EntityProfile {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.profiles[entityID]; ok {
		return p
	}
	if len(m.profiles) >= m.maxProfiles {
		m.evictOldestLocked()
	}
	p := newEntityProfile(entityID)
	m.profiles[entityID] = p
	return p
}

// ToPeer projects a profile's counters into the Peer shape
// internal/features.Compute consumes; sharedAddressPairs and
// cpvPeerValues come from a separate store query since they are not
// per-entity accumulations.
func (m *EntityProfileManager) ToPeer(entityID int64, cpvPeerValues []float64, sharedAddressPairs int, pastSpecTexts []string) Peer {
	m.mu.RLock()
	p, ok := m.profiles[entityID]
	m.mu.RUnlock()
	if !ok {
		return Peer{CPVPeerAwardedValues: cpvPeerValues, SharedAddressBidderPairs: sharedAddressPairs, PastSpecTexts: pastSpecTexts}
	}
	return Peer{
		CPVPeerAwardedValues:      cpvPeerValues,
		EntityPastWinnersByBidder: p.PastWinnersByBidder,
		EntityPastAwardsTotal:     p.PastAwardsTotal,
		EntityPastCancelCount:     p.PastCancelCount,
		SharedAddressBidderPairs:  sharedAddressPairs,
		PastSpecTexts:             pastSpecTexts,
	}
}

func (m *EntityProfileManager) evictIfOverCap() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.profiles) > m.maxProfiles {
		m.evictOldestLocked()
	}
}

func (m *EntityProfileManager) evictOldestLocked() {
	var oldestID int64
	var oldestTime int64 = time.Now().Unix() + 1
	for id, p := range m.profiles {
		if p.LastUpdated < oldestTime {
			oldestTime = p.LastUpdated
			oldestID = id
		}
	}
	if oldestID != 0 || len(m.profiles) > 0 {
		delete(m.profiles, oldestID)
		profileLog.WithFields(logging.Fields{"procuring_entity_id": oldestID}).Debug("evicted entity profile at capacity")
	}
}

package ai

import (
	"sort"
	"sync"
	"time"
)

type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

const (
	degradedAfter = 2
	downAfter     = 5
)

type ProviderReport struct {
	Provider     string `json:"provider"`
	Status       Status `json:"status"`
	FailureCount int    `json:"failureCount"`
	SuccessCount int    `json:"successCount"`
}

type providerHealth struct {
	successCount int
	failureCount int
	status       Status
}

// HealthMonitor tracks consecutive failures per provider. It is safe for
// concurrent use; state lives only in memory.
type HealthMonitor struct {
	mu        sync.Mutex
	providers map[string]*providerHealth
}

func NewHealthMonitor() *HealthMonitor {
	return &HealthMonitor{providers: map[string]*providerHealth{}}
}

func (m *HealthMonitor) entry(provider string) *providerHealth {
	h, ok := m.providers[provider]
	if !ok {
		h = &providerHealth{status: StatusHealthy}
		m.providers[provider] = h
	}
	return h
}

// Track makes provider appear in Report with zero counts before its first
// call completes.
func (m *HealthMonitor) Track(provider string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entry(provider)
}

func (m *HealthMonitor) RecordSuccess(provider string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.entry(provider)
	h.successCount++
	h.failureCount = 0
	h.status = statusFor(h.failureCount)
	return h.status
}

func (m *HealthMonitor) RecordFailure(provider string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.entry(provider)
	h.failureCount++
	h.status = statusFor(h.failureCount)
	return h.status
}

func (m *HealthMonitor) Status(provider string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.providers[provider]; ok {
		return h.status
	}
	return StatusHealthy
}

func (m *HealthMonitor) FailureCount(provider string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.providers[provider]; ok {
		return h.failureCount
	}
	return 0
}

// Report returns a snapshot of every provider seen so far, sorted by name.
func (m *HealthMonitor) Report() []ProviderReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ProviderReport, 0, len(m.providers))
	for name, h := range m.providers {
		out = append(out, ProviderReport{
			Provider:     name,
			Status:       h.status,
			FailureCount: h.failureCount,
			SuccessCount: h.successCount,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out
}

func statusFor(failures int) Status {
	switch {
	case failures > downAfter:
		return StatusDown
	case failures > degradedAfter:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}

// Breaker is a time-boxed manual cutoff, independent of HealthMonitor.
type Breaker struct {
	mu            sync.Mutex
	disabledUntil time.Time
	now           func() time.Time
}

func NewBreaker() *Breaker {
	return &Breaker{now: time.Now}
}

func (b *Breaker) clock() time.Time {
	if b.now == nil {
		return time.Now()
	}
	return b.now()
}

func (b *Breaker) IsAvailable() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clock().After(b.disabledUntil)
}

// Disable marks the provider unavailable for d from now.
func (b *Breaker) Disable(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disabledUntil = b.clock().Add(d)
}

// DisableMinutes is Disable expressed in whole minutes.
func (b *Breaker) DisableMinutes(minutes int) {
	b.Disable(time.Duration(minutes) * time.Minute)
}

func (b *Breaker) Enable() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disabledUntil = time.Time{}
}

func (b *Breaker) DisabledUntil() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disabledUntil
}

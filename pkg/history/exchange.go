package history

import (
	"sync"
	"time"
)

// Exchange is one recorded translation.
type Exchange struct {
	ID             int64     `json:"id"`
	SourceText     string    `json:"src"`
	TargetLanguage string    `json:"target"`
	TranslatedText string    `json:"translated"`
	CreatedAt      time.Time `json:"at"`
}

// IDGen hands out exchange IDs from wall-clock milliseconds, bumping past
// the last issued value so IDs stay unique and increasing.
type IDGen struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

func NewIDGen() *IDGen {
	return &IDGen{now: time.Now}
}

// Next returns a fresh ID together with the time it was derived from.
func (g *IDGen) Next() (int64, time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	at := g.now()
	id := at.UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id, at
}

// Observe makes later IDs sort after id.
func (g *IDGen) Observe(id int64) {
	g.mu.Lock()
	if id > g.last {
		g.last = id
	}
	g.mu.Unlock()
}

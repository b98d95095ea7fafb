package identity

import "time"

// Provenance records who created and last touched a record, and when.
// Actor fields hold an account id; they are informational and not enforced
// as references.
type Provenance struct {
	CreatedAt time.Time
	CreatedBy string
	UpdatedAt time.Time
	UpdatedBy string
}

// Stamp initializes all four fields for a newly created record.
func (p *Provenance) Stamp(now time.Time, actor string) {
	p.CreatedAt = now
	p.CreatedBy = actor
	p.UpdatedAt = now
	p.UpdatedBy = actor
}

// Touch records a mutation.
func (p *Provenance) Touch(now time.Time, actor string) {
	p.UpdatedAt = now
	p.UpdatedBy = actor
}

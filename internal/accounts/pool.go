// Package accounts holds the credential pool and its rotation cursor.
package accounts

import (
	"errors"

	"go.uber.org/zap"
)

// ErrNotConfigured is returned when the pool holds no credentials.
var ErrNotConfigured = errors.New("no accounts configured")

// Credential is one login identity. Uniqueness is by email.
type Credential struct {
	Email  string
	Secret string
}

// Pool is an ordered credential collection with a circular rotation cursor.
// It is not safe for concurrent use; the run orchestrator owns it exclusively.
type Pool struct {
	records      []Credential
	current      int
	linksChecked int
	logger       *zap.Logger
}

func NewPool(logger *zap.Logger) *Pool {
	return &Pool{logger: logger}
}

// SetPrimary installs the primary credential at index 0, removing any prior
// record with the same email, and resets the cursor. Empty fields fail.
func (p *Pool) SetPrimary(email, secret string) bool {
	if email == "" || secret == "" {
		p.logger.Error("primary email or password cannot be empty")
		return false
	}
	kept := make([]Credential, 0, len(p.records)+1)
	kept = append(kept, Credential{Email: email, Secret: secret})
	for _, rec := range p.records {
		if rec.Email != email {
			kept = append(kept, rec)
		}
	}
	p.records = kept
	p.current = 0
	p.logger.Info("primary credentials set", zap.String("email", email))
	return true
}

// AddAdditional appends a secondary credential. Duplicates and empty fields
// are no-ops with a warning.
func (p *Pool) AddAdditional(email, secret string) {
	if email == "" || secret == "" {
		p.logger.Warn("additional account email or password cannot be empty")
		return
	}
	if len(p.records) > 0 && p.records[0].Email == email {
		p.logger.Warn("account already set as primary, not adding", zap.String("email", email))
		return
	}
	for _, rec := range p.records {
		if rec.Email == email {
			p.logger.Warn("account already in pool, not re-adding", zap.String("email", email))
			return
		}
	}
	p.records = append(p.records, Credential{Email: email, Secret: secret})
	p.logger.Info("added additional account", zap.String("email", email))
}

// Current returns the credential under the cursor.
func (p *Pool) Current() (Credential, error) {
	if len(p.records) == 0 {
		return Credential{}, ErrNotConfigured
	}
	return p.records[p.current], nil
}

// RotateNext advances the cursor circularly and resets the per-account link
// count. Rotation is meaningless with one account and reports failure.
func (p *Pool) RotateNext() bool {
	if len(p.records) <= 1 {
		p.logger.Info("only one account configured, no rotation possible")
		return false
	}
	p.current = (p.current + 1) % len(p.records)
	p.linksChecked = 0
	return true
}

func (p *Pool) Size() int         { return len(p.records) }
func (p *Pool) CurrentIndex() int { return p.current }
func (p *Pool) LinksChecked() int { return p.linksChecked }

// MarkChecked records one processed link against the current account.
func (p *Pool) MarkChecked() { p.linksChecked++ }

// ResetChecked zeroes the per-account link count without rotating.
func (p *Pool) ResetChecked() { p.linksChecked = 0 }

// Package repository is the persistence gateway for assessment records.
package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/okian/dons/internal/domain/model"
)

// Store provides read/write access to stored assessments. Identifiers are
// opaque strings produced by an IDCodec.
type Store interface {
	// Create persists a. The ID field of a is ignored. A record whose
	// SubmissionID is already stored is not written again: the existing id
	// is returned with created=false.
	Create(ctx context.Context, a model.Assessment) (id string, created bool, err error)

	// GetByID returns the stored assessment. It returns ErrInvalidID for a
	// malformed identifier and ErrNotFound when nothing is stored under it.
	GetByID(ctx context.Context, id string) (model.Assessment, error)

	// List returns at most limit assessments, newest first.
	List(ctx context.Context, limit int) ([]model.Assessment, error)

	// Count returns the number of stored assessments.
	Count(ctx context.Context) (int, error)

	Close() error
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func emailValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// NormalizeEmail trims and lower-cases addr. An empty or syntactically
// invalid address normalizes to "" so that writes never fail on it.
func NormalizeEmail(addr string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if addr == "" {
		return ""
	}
	if err := emailValidator().Var(addr, "email"); err != nil {
		return ""
	}
	return addr
}

func prepare(a model.Assessment) (model.Assessment, error) {
	a.SubmissionID = strings.TrimSpace(a.SubmissionID)
	if a.SubmissionID == "" {
		return a, ErrInvalidInput
	}
	a.Participant.Email = NormalizeEmail(a.Participant.Email)
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

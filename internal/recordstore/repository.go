package recordstore

import (
	"context"

	"github.com/vbonduro/canary/internal/domain"
	"github.com/vbonduro/canary/internal/kv"
)

// Slot ties a record type to its storage key and seed data.
type Slot[T any] struct {
	Key  string
	Seed func() []T
}

var (
	MembersSlot   = Slot[domain.Member]{Key: "canary_members", Seed: SeedMembers}
	GallerySlot   = Slot[domain.GalleryItem]{Key: "canary_gallery", Seed: SeedGallery}
	InquiriesSlot = Slot[domain.Inquiry]{Key: "canary_inquiries", Seed: func() []domain.Inquiry { return []domain.Inquiry{} }}
)

// Repository is the typed view of one slot.
type Repository[T any] struct {
	storage kv.Storage
	slot    Slot[T]
}

func NewRepository[T any](storage kv.Storage, slot Slot[T]) *Repository[T] {
	return &Repository[T]{storage: storage, slot: slot}
}

func (r *Repository[T]) Key() string { return r.slot.Key }

// Get loads the collection, seeding the slot on first use.
func (r *Repository[T]) Get(ctx context.Context) ([]T, error) {
	return Ensure(ctx, r.storage, r.slot.Key, r.slot.Seed())
}

func (r *Repository[T]) ReplaceAll(ctx context.Context, records []T) error {
	return Save(ctx, r.storage, r.slot.Key, records)
}

// Reset overwrites the slot with fresh seed data and returns it.
func (r *Repository[T]) Reset(ctx context.Context) ([]T, error) {
	seed := r.slot.Seed()
	if err := Save(ctx, r.storage, r.slot.Key, seed); err != nil {
		return nil, err
	}
	return clone(seed), nil
}

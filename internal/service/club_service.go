package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vbonduro/canary/internal/domain"
	"github.com/vbonduro/canary/internal/photostore"
)

// repository is the subset of recordstore.Repository that ClubService requires.
type repository[T any] interface {
	Get(ctx context.Context) ([]T, error)
	ReplaceAll(ctx context.Context, records []T) error
	Reset(ctx context.Context) ([]T, error)
}

// inquiryNotifier is satisfied by notify.InquiryNotifier.
type inquiryNotifier interface {
	Notify(ctx context.Context, inq domain.Inquiry) error
}

// ClubService runs every read-modify-write cycle against the three
// collections. Each mutation loads the whole collection, changes it in
// memory and writes the whole collection back.
type ClubService struct {
	members   repository[domain.Member]
	gallery   repository[domain.GalleryItem]
	inquiries repository[domain.Inquiry]
	images    photostore.Publisher
	notifier  inquiryNotifier
	logger    *slog.Logger

	// One lock per collection; writers from other processes are not covered.
	membersMu   sync.Mutex
	galleryMu   sync.Mutex
	inquiriesMu sync.Mutex

	ids idClock
	now func() time.Time
}

func NewClubService(
	members repository[domain.Member],
	gallery repository[domain.GalleryItem],
	inquiries repository[domain.Inquiry],
	images photostore.Publisher,
	notifier inquiryNotifier,
	logger *slog.Logger,
) *ClubService {
	return &ClubService{
		members:   members,
		gallery:   gallery,
		inquiries: inquiries,
		images:    images,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

// Members

// ListMembers returns the roster sorted by jersey number, restricted to one
// position unless position is empty or domain.AllPositions.
func (s *ClubService) ListMembers(ctx context.Context, position string) ([]domain.Member, error) {
	members, err := s.members.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}
	if position != "" && position != domain.AllPositions {
		members = slices.DeleteFunc(members, func(m domain.Member) bool { return m.Position != position })
	}
	slices.SortStableFunc(members, func(a, b domain.Member) int { return cmp.Compare(a.Number, b.Number) })
	return members, nil
}

// MemberPositions lists the distinct positions on the roster in roster order.
func (s *ClubService) MemberPositions(ctx context.Context) ([]string, error) {
	members, err := s.ListMembers(ctx, "")
	if err != nil {
		return nil, err
	}
	var positions []string
	for _, m := range members {
		if m.Position != "" && !slices.Contains(positions, m.Position) {
			positions = append(positions, m.Position)
		}
	}
	return positions, nil
}

// GetMember returns nil when no member has id.
func (s *ClubService) GetMember(ctx context.Context, id int64) (*domain.Member, error) {
	members, err := s.members.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}
	if i := slices.IndexFunc(members, func(m domain.Member) bool { return m.ID == id }); i >= 0 {
		return &members[i], nil
	}
	return nil, nil
}

// SaveMember validates in and either appends a new member or overwrites the
// one named by target. An edit whose id has disappeared is appended with
// that id.
func (s *ClubService) SaveMember(ctx context.Context, target domain.EditTarget, in domain.MemberInput) (domain.Member, error) {
	number, err := strconv.Atoi(strings.TrimSpace(in.Number))
	if err != nil || number <= 0 {
		number = 0
	}
	member := domain.Member{
		Number:   number,
		Name:     strings.TrimSpace(in.Name),
		Position: strings.TrimSpace(in.Position),
		Handed:   strings.TrimSpace(in.Handed),
		Comment:  strings.TrimSpace(in.Comment),
		PhotoURL: strings.TrimSpace(in.PhotoURL),
	}
	if member.Number == 0 || member.Name == "" {
		return domain.Member{}, domain.ErrMemberNumberAndNameRequired
	}

	s.membersMu.Lock()
	defer s.membersMu.Unlock()

	members, err := s.members.Get(ctx)
	if err != nil {
		return domain.Member{}, fmt.Errorf("failed to load members: %w", err)
	}
	member.ID = resolveID(s, target, members, memberID)
	members = upsert(members, member, memberID)

	if err := s.members.ReplaceAll(ctx, members); err != nil {
		return domain.Member{}, fmt.Errorf("failed to save members: %w", err)
	}
	s.logger.Info("member saved", "id", member.ID, "number", member.Number, "editing", isEditing(target))
	return member, nil
}

// DeleteMember reports whether a member was removed. A missing id writes nothing.
func (s *ClubService) DeleteMember(ctx context.Context, id int64) (bool, error) {
	s.membersMu.Lock()
	defer s.membersMu.Unlock()

	members, err := s.members.Get(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load members: %w", err)
	}
	members, _, ok := remove(members, id, memberID)
	if !ok {
		return false, nil
	}
	if err := s.members.ReplaceAll(ctx, members); err != nil {
		return false, fmt.Errorf("failed to save members: %w", err)
	}
	s.logger.Info("member deleted", "id", id)
	return true, nil
}

func (s *ClubService) ResetMembers(ctx context.Context) ([]domain.Member, error) {
	s.membersMu.Lock()
	defer s.membersMu.Unlock()

	members, err := s.members.Reset(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reset members: %w", err)
	}
	s.logger.Info("members reset to seed", "count", len(members))
	return members, nil
}

// Gallery

func (s *ClubService) ListGallery(ctx context.Context) ([]domain.GalleryItem, error) {
	items, err := s.gallery.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load gallery: %w", err)
	}
	return items, nil
}

// GetGalleryItem returns nil when no item has id.
func (s *ClubService) GetGalleryItem(ctx context.Context, id int64) (*domain.GalleryItem, error) {
	items, err := s.ListGallery(ctx)
	if err != nil {
		return nil, err
	}
	if i := slices.IndexFunc(items, func(g domain.GalleryItem) bool { return g.ID == id }); i >= 0 {
		return &items[i], nil
	}
	return nil, nil
}

// SaveGalleryItem stores an uploaded image through the publisher when one
// is given, otherwise uses the trimmed URL. An edit with neither keeps the
// item's current image.
func (s *ClubService) SaveGalleryItem(ctx context.Context, target domain.EditTarget, in domain.GalleryInput) (domain.GalleryItem, error) {
	imageURL := strings.TrimSpace(in.ImageURL)
	uploaded := len(in.Upload) > 0
	if !uploaded && imageURL == "" && !isEditing(target) {
		return domain.GalleryItem{}, domain.ErrGalleryImageRequired
	}

	s.galleryMu.Lock()
	defer s.galleryMu.Unlock()

	items, err := s.gallery.Get(ctx)
	if err != nil {
		return domain.GalleryItem{}, fmt.Errorf("failed to load gallery: %w", err)
	}

	id := resolveID(s, target, items, galleryID)
	var previous string
	if i := slices.IndexFunc(items, func(g domain.GalleryItem) bool { return g.ID == id }); i >= 0 {
		previous = items[i].ImageURL
	}
	if !uploaded && imageURL == "" {
		if previous == "" {
			return domain.GalleryItem{}, domain.ErrGalleryImageRequired
		}
		imageURL = previous
	}

	if uploaded {
		imageURL, err = s.images.Publish(ctx, in.UploadMIME, in.Upload)
		if err != nil {
			return domain.GalleryItem{}, fmt.Errorf("failed to store upload: %w", err)
		}
	}

	item := domain.GalleryItem{
		ID:       id,
		ImageURL: imageURL,
		Caption:  strings.TrimSpace(in.Caption),
	}
	items = upsert(items, item, galleryID)

	if err := s.gallery.ReplaceAll(ctx, items); err != nil {
		if uploaded {
			s.releaseImage(ctx, imageURL, nil)
		}
		return domain.GalleryItem{}, fmt.Errorf("failed to save gallery: %w", err)
	}
	if previous != "" && previous != imageURL {
		s.releaseImage(ctx, previous, items)
	}
	s.logger.Info("gallery item saved", "id", item.ID, "uploaded", uploaded, "editing", isEditing(target))
	return item, nil
}

// DeleteGalleryItem reports whether an item was removed. A missing id writes nothing.
func (s *ClubService) DeleteGalleryItem(ctx context.Context, id int64) (bool, error) {
	s.galleryMu.Lock()
	defer s.galleryMu.Unlock()

	items, err := s.gallery.Get(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load gallery: %w", err)
	}
	items, removed, ok := remove(items, id, galleryID)
	if !ok {
		return false, nil
	}
	if err := s.gallery.ReplaceAll(ctx, items); err != nil {
		return false, fmt.Errorf("failed to save gallery: %w", err)
	}
	s.releaseImage(ctx, removed.ImageURL, items)
	s.logger.Info("gallery item deleted", "id", id)
	return true, nil
}

func (s *ClubService) ResetGallery(ctx context.Context) ([]domain.GalleryItem, error) {
	s.galleryMu.Lock()
	defer s.galleryMu.Unlock()

	old, err := s.gallery.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load gallery: %w", err)
	}
	items, err := s.gallery.Reset(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reset gallery: %w", err)
	}
	for _, g := range old {
		s.releaseImage(ctx, g.ImageURL, items)
	}
	s.logger.Info("gallery reset to seed", "count", len(items))
	return items, nil
}

// releaseImage frees imageURL unless a remaining gallery item or any member
// photo still points at it. Callers hold galleryMu.
func (s *ClubService) releaseImage(ctx context.Context, imageURL string, remaining []domain.GalleryItem) {
	if slices.ContainsFunc(remaining, func(g domain.GalleryItem) bool { return g.ImageURL == imageURL }) {
		return
	}
	members, err := s.members.Get(ctx)
	if err != nil {
		s.logger.Error("kept gallery image, member photos unreadable", "image_url", imageURL, "error", err)
		return
	}
	if slices.ContainsFunc(members, func(m domain.Member) bool { return m.PhotoURL == imageURL }) {
		return
	}
	if err := s.images.Release(ctx, imageURL); err != nil {
		s.logger.Error("failed to release gallery image", "image_url", imageURL, "error", err)
	}
}

// Inquiries

// SubmitInquiry appends a contact-form submission stamped with the current
// local time. Notification failures are logged and do not fail the call.
func (s *ClubService) SubmitInquiry(ctx context.Context, in domain.InquiryInput) (domain.Inquiry, error) {
	inq := domain.Inquiry{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.TrimSpace(in.Email),
		Message: strings.TrimSpace(in.Message),
	}
	if inq.Name == "" || inq.Email == "" || inq.Message == "" {
		return domain.Inquiry{}, domain.ErrInquiryFieldsRequired
	}

	s.inquiriesMu.Lock()
	inquiries, err := s.inquiries.Get(ctx)
	if err != nil {
		s.inquiriesMu.Unlock()
		return domain.Inquiry{}, fmt.Errorf("failed to load inquiries: %w", err)
	}
	now := s.now()
	inq.ID = s.ids.next(now, func(id int64) bool {
		return slices.ContainsFunc(inquiries, func(q domain.Inquiry) bool { return q.ID == id })
	})
	inq.SubmittedAt = now.Format(domain.TimestampLayout)
	inquiries = append(inquiries, inq)
	err = s.inquiries.ReplaceAll(ctx, inquiries)
	s.inquiriesMu.Unlock()
	if err != nil {
		return domain.Inquiry{}, fmt.Errorf("failed to save inquiries: %w", err)
	}
	s.logger.Info("inquiry received", "id", inq.ID)

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, inq); err != nil {
			s.logger.Error("inquiry notification failed", "id", inq.ID, "error", err)
		}
	}
	return inq, nil
}

// ListInquiries returns inquiries oldest first.
func (s *ClubService) ListInquiries(ctx context.Context) ([]domain.Inquiry, error) {
	inquiries, err := s.inquiries.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load inquiries: %w", err)
	}
	slices.SortStableFunc(inquiries, func(a, b domain.Inquiry) int { return strings.Compare(a.SubmittedAt, b.SubmittedAt) })
	return inquiries, nil
}

// DeleteInquiry reports whether an inquiry was removed. A missing id writes nothing.
func (s *ClubService) DeleteInquiry(ctx context.Context, id int64) (bool, error) {
	s.inquiriesMu.Lock()
	defer s.inquiriesMu.Unlock()

	inquiries, err := s.inquiries.Get(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load inquiries: %w", err)
	}
	inquiries, _, ok := remove(inquiries, id, inquiryID)
	if !ok {
		return false, nil
	}
	if err := s.inquiries.ReplaceAll(ctx, inquiries); err != nil {
		return false, fmt.Errorf("failed to save inquiries: %w", err)
	}
	s.logger.Info("inquiry deleted", "id", id)
	return true, nil
}

// resolveID keeps the edited record's id, or mints a fresh one not present
// in records.
func resolveID[T any](s *ClubService, target domain.EditTarget, records []T, idOf func(T) int64) int64 {
	if id, ok := target.ID(); ok {
		return id
	}
	return s.ids.next(s.now(), func(id int64) bool {
		return slices.ContainsFunc(records, func(r T) bool { return idOf(r) == id })
	})
}

func isEditing(target domain.EditTarget) bool {
	_, ok := target.ID()
	return ok
}

func memberID(m domain.Member) int64       { return m.ID }
func galleryID(g domain.GalleryItem) int64 { return g.ID }
func inquiryID(q domain.Inquiry) int64     { return q.ID }

// upsert replaces the record with rec's id in place, or appends rec.
func upsert[T any](records []T, rec T, idOf func(T) int64) []T {
	id := idOf(rec)
	if i := slices.IndexFunc(records, func(r T) bool { return idOf(r) == id }); i >= 0 {
		records[i] = rec
		return records
	}
	return append(records, rec)
}

// remove splices out the record with id, returning it and true if found.
func remove[T any](records []T, id int64, idOf func(T) int64) ([]T, T, bool) {
	i := slices.IndexFunc(records, func(r T) bool { return idOf(r) == id })
	if i < 0 {
		var zero T
		return records, zero, false
	}
	removed := records[i]
	return slices.Delete(records, i, i+1), removed, true
}

// idClock mints millisecond timestamps that never repeat within a process.
type idClock struct {
	mu   sync.Mutex
	last int64
}

func (c *idClock) next(now time.Time, taken func(int64) bool) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := max(now.UnixMilli(), c.last+1)
	for taken(id) {
		id++
	}
	c.last = id
	return id
}

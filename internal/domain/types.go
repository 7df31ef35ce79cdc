package domain

import "errors"

// AllPositions is the roster filter value that disables position filtering.
const AllPositions = "全て"

// Validation failures. The service returns these before anything is written.
var (
	ErrMemberNumberAndNameRequired = errors.New("number and name are required")
	ErrGalleryImageRequired        = errors.New("image URL or file is required")
	ErrInquiryFieldsRequired       = errors.New("name, email and message are required")
)

// Member is one player on the roster. JSON field names are the persisted
// format and must not change.
type Member struct {
	ID       int64  `json:"id"`
	Number   int    `json:"number"`
	Name     string `json:"name"`
	Position string `json:"position"`
	Handed   string `json:"handed"`
	Comment  string `json:"comment"`
	PhotoURL string `json:"photoUrl"`
}

type GalleryItem struct {
	ID       int64  `json:"id"`
	ImageURL string `json:"imageUrl"`
	Caption  string `json:"caption"`
}

// Inquiry is a contact-form submission. Inquiries are append-and-delete only.
type Inquiry struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Message     string `json:"message"`
	SubmittedAt string `json:"submittedAt"`
}

// TimestampLayout formats Inquiry.SubmittedAt as YYYY-MM-DD HH:mm.
const TimestampLayout = "2006-01-02 15:04"

// EditTarget says whether a form submission creates a new record or
// overwrites the record with a known id.
type EditTarget struct {
	id      int64
	editing bool
}

func Creating() EditTarget { return EditTarget{} }

func Editing(id int64) EditTarget { return EditTarget{id: id, editing: true} }

// ID returns the record being edited and true, or 0 and false when creating.
func (t EditTarget) ID() (int64, bool) { return t.id, t.editing }

// MemberInput holds raw form values for a member, before trimming and
// type coercion.
type MemberInput struct {
	Number   string
	Name     string
	Position string
	Handed   string
	Comment  string
	PhotoURL string
}

// GalleryInput carries either an uploaded image or a URL. An upload wins
// when both are present.
type GalleryInput struct {
	ImageURL   string
	Caption    string
	Upload     []byte
	UploadMIME string
}

type InquiryInput struct {
	Name    string
	Email   string
	Message string
}

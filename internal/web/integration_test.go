package web_test

import (
	"bytes"
	"cmp"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vbonduro/canary/internal/auth"
	"github.com/vbonduro/canary/internal/db"
	"github.com/vbonduro/canary/internal/domain"
	"github.com/vbonduro/canary/internal/photostore"
	"github.com/vbonduro/canary/internal/photostore/local"
	"github.com/vbonduro/canary/internal/recordstore"
	"github.com/vbonduro/canary/internal/service"
	"github.com/vbonduro/canary/internal/store"
	"github.com/vbonduro/canary/internal/web"
	"github.com/vbonduro/canary/internal/web/templates"
)

const (
	adminUser     = "admin"
	adminPassword = "correct horse"
)

// minimalJPEG is 512 bytes with the JPEG magic bytes header followed by zeros.
// http.DetectContentType identifies JPEG from the leading 0xFF 0xD8 bytes.
var minimalJPEG = func() []byte {
	b := make([]byte, 512)
	b[0] = 0xFF
	b[1] = 0xD8
	b[2] = 0xFF
	b[3] = 0xE0
	return b
}()

type fixture struct {
	srv    *httptest.Server
	client *http.Client
	svc    *service.ClubService
}

// newTestServer sets up a real web.Server backed by in-memory SQLite and a
// temp-dir photo store. The client keeps cookies and does not follow redirects.
func newTestServer(t *testing.T, opts web.Options) *fixture {
	t.Helper()
	return newFixture(t, opts, func(photos *local.Store) photostore.Publisher {
		return photostore.StorePublisher{Store: photos, URLPrefix: "/photos/"}
	})
}

// newInlineTestServer stores gallery uploads as data URIs, the default backend.
func newInlineTestServer(t *testing.T) *fixture {
	t.Helper()
	return newFixture(t, web.Options{}, func(*local.Store) photostore.Publisher {
		return photostore.InlinePublisher{}
	})
}

func newFixture(t *testing.T, opts web.Options, publisher func(*local.Store) photostore.Publisher) *fixture {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	database, err := db.OpenForTesting()
	require.NoError(t, err)
	slots := store.NewSlotStore(database)

	photos, err := local.New(t.TempDir())
	require.NoError(t, err)

	svc := service.NewClubService(
		recordstore.NewRepository(slots, recordstore.MembersSlot),
		recordstore.NewRepository(slots, recordstore.GallerySlot),
		recordstore.NewRepository(slots, recordstore.InquiriesSlot),
		publisher(photos),
		nil,
		slog.Default(),
	)

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	require.NoError(t, err)
	authn, err := auth.NewAuthenticator(adminUser, hash)
	require.NoError(t, err)

	srv := httptest.NewServer(web.NewServer(svc, templates.FS, photos, authn, auth.NewSessions(), opts, slog.Default()))
	t.Cleanup(func() {
		srv.Close()
		_ = database.Close()
	})

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &fixture{srv: srv, client: client, svc: svc}
}

func (f *fixture) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := f.client.Get(f.srv.URL + path)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (f *fixture) postForm(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := f.client.PostForm(f.srv.URL+path, form)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	resp, _ := f.postForm(t, "/admin/login", url.Values{"user": {adminUser}, "password": {adminPassword}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

// buildMultipartBody creates a multipart/form-data body with text fields and
// an optional "image" file.
func buildMultipartBody(t *testing.T, fields map[string]string, imageData []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if imageData != nil {
		fw, err := w.CreateFormFile("image", "photo.jpg")
		require.NoError(t, err)
		_, err = fw.Write(imageData)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func (f *fixture) postGallery(t *testing.T, fields map[string]string, imageData []byte) (*http.Response, string) {
	t.Helper()
	body, contentType := buildMultipartBody(t, fields, imageData)
	resp, err := f.client.Post(f.srv.URL+"/admin/gallery", contentType, body)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func TestIntegration_HomeShowsGalleryAndContactForm(t *testing.T) {
	f := newTestServer(t, web.Options{})

	resp, body := f.get(t, "/")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Contains(t, body, "バッティング練習")
	assert.Contains(t, body, "視察風景")
	assert.Contains(t, body, `action="/contact"`)
}

func TestIntegration_UnknownPathIs404(t *testing.T) {
	f := newTestServer(t, web.Options{})

	resp, _ := f.get(t, "/nope")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIntegration_ContactAppendsInquiry(t *testing.T) {
	f := newTestServer(t, web.Options{})

	resp, _ := f.postForm(t, "/contact", url.Values{
		"name":    {"山田"},
		"email":   {"yamada@example.com"},
		"message": {"体験参加できますか？"},
	})

	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/?sent=1#contact", resp.Header.Get("Location"))

	inquiries, err := f.svc.ListInquiries(context.Background())
	require.NoError(t, err)
	require.Len(t, inquiries, 1)
	assert.Equal(t, "山田", inquiries[0].Name)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2} \d{2}:\d{2}$`, inquiries[0].SubmittedAt)

	_, body := f.get(t, "/?sent=1")
	assert.Contains(t, body, "送信しました")
}

func TestIntegration_ContactRejectsMissingFields(t *testing.T) {
	f := newTestServer(t, web.Options{})

	resp, body := f.postForm(t, "/contact", url.Values{
		"name":    {"山田"},
		"email":   {"yamada@example.com"},
		"message": {"   "},
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, domain.ErrInquiryFieldsRequired.Error())

	inquiries, err := f.svc.ListInquiries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, inquiries)
}

func TestIntegration_MembersFilteredAndSorted(t *testing.T) {
	f := newTestServer(t, web.Options{})

	resp, body := f.get(t, "/members?position="+url.QueryEscape("内野手"))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, body, "五十嵐")
	assert.NotContains(t, body, "荒木")

	order := []string{"岩崎", "馬場", "井戸本　麻美", "宮城"}
	last := -1
	for _, name := range order {
		i := strings.Index(body, name)
		require.GreaterOrEqual(t, i, 0, "missing %s", name)
		assert.Greater(t, i, last, "%s out of order", name)
		last = i
	}
}

func TestIntegration_MembersAllPositions(t *testing.T) {
	f := newTestServer(t, web.Options{})

	_, body := f.get(t, "/members")

	// #9 sorts before #10 and #30 regardless of stored order.
	i9 := strings.Index(body, "井戸本　たけし")
	i10 := strings.Index(body, "宮城")
	i30 := strings.Index(body, "高橋")
	require.True(t, i9 >= 0 && i10 >= 0 && i30 >= 0)
	assert.Less(t, i9, i10)
	assert.Less(t, i10, i30)
}

func TestIntegration_AdminRequiresLogin(t *testing.T) {
	f := newTestServer(t, web.Options{})

	resp, body := f.get(t, "/admin")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `action="/admin/login"`)
	assert.NotContains(t, body, "/admin/members/reset")

	resp, _ = f.postForm(t, "/admin/members", url.Values{"number": {"99"}, "name": {"侵入者"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = f.postForm(t, "/admin/members/1/delete", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	members, err := f.svc.ListMembers(context.Background(), domain.AllPositions)
	require.NoError(t, err)
	assert.Len(t, members, 10)
}

func TestIntegration_LoginRejectsBadPassword(t *testing.T) {
	f := newTestServer(t, web.Options{})

	resp, body := f.postForm(t, "/admin/login", url.Values{"user": {adminUser}, "password": {"wrong"}})

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "IDまたはパスワードが違います")

	_, body = f.get(t, "/admin")
	assert.Contains(t, body, `action="/admin/login"`)
}

func TestIntegration_LoginAndLogout(t *testing.T) {
	f := newTestServer(t, web.Options{})
	f.login(t)

	_, body := f.get(t, "/admin")
	assert.Contains(t, body, "/admin/members/reset")
	assert.Contains(t, body, "五十嵐")

	resp, _ := f.postForm(t, "/admin/logout", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body = f.get(t, "/admin")
	assert.Contains(t, body, `action="/admin/login"`)
}

func TestIntegration_MemberCreateEditDeleteReset(t *testing.T) {
	f := newTestServer(t, web.Options{})
	f.login(t)
	ctx := context.Background()

	resp, _ := f.postForm(t, "/admin/members", url.Values{
		"number":   {"11"},
		"name":     {"新人　太郎"},
		"position": {"捕手"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	members, err := f.svc.ListMembers(ctx, "捕手")
	require.NoError(t, err)
	require.Len(t, members, 2)
	rookie := members[1]
	assert.Equal(t, 11, rookie.Number)

	_, body := f.get(t, "/admin?edit_member="+itoa(rookie.ID))
	assert.Contains(t, body, "メンバー編集")
	assert.Contains(t, body, `value="新人　太郎"`)

	resp, _ = f.postForm(t, "/admin/members", url.Values{
		"id":       {itoa(rookie.ID)},
		"number":   {"12"},
		"name":     {"新人　太郎"},
		"position": {"捕手"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	got, err := f.svc.GetMember(ctx, rookie.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 12, got.Number)

	resp, _ = f.postForm(t, "/admin/members/"+itoa(rookie.ID)+"/delete", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	got, err = f.svc.GetMember(ctx, rookie.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	resp, _ = f.postForm(t, "/admin/members/1/delete", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	resp, _ = f.postForm(t, "/admin/members/reset", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	members, err = f.svc.ListMembers(ctx, domain.AllPositions)
	require.NoError(t, err)
	assert.Equal(t, recordstore.SeedMembers(), sortedByID(members))
}

func TestIntegration_MemberValidation(t *testing.T) {
	f := newTestServer(t, web.Options{})
	f.login(t)

	resp, body := f.postForm(t, "/admin/members", url.Values{"number": {"abc"}, "name": {"名無し"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, domain.ErrMemberNumberAndNameRequired.Error())

	resp, _ = f.postForm(t, "/admin/members", url.Values{"id": {"x"}, "number": {"5"}, "name": {"a"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	members, err := f.svc.ListMembers(context.Background(), domain.AllPositions)
	require.NoError(t, err)
	assert.Len(t, members, 10)
}

func TestIntegration_GalleryUploadServedFromPhotos(t *testing.T) {
	f := newTestServer(t, web.Options{})
	f.login(t)

	resp, _ := f.postGallery(t, map[string]string{"caption": "試合後", "imageUrl": "https://example.com/ignored.jpg"}, minimalJPEG)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	items, err := f.svc.ListGallery(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 5)
	added := items[4]
	assert.Equal(t, "試合後", added.Caption)
	require.True(t, strings.HasPrefix(added.ImageURL, "/photos/"), added.ImageURL)

	resp, body := f.get(t, added.ImageURL)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	assert.Equal(t, minimalJPEG, []byte(body))

	resp, _ = f.postForm(t, "/admin/gallery/"+itoa(added.ID)+"/delete", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = f.get(t, added.ImageURL)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIntegration_GalleryByURLAndEdit(t *testing.T) {
	f := newTestServer(t, web.Options{})
	f.login(t)
	ctx := context.Background()

	resp, _ := f.postGallery(t, map[string]string{"id": "2", "imageUrl": "https://example.com/mental.jpg", "caption": "メンタル"}, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	got, err := f.svc.GetGalleryItem(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "https://example.com/mental.jpg", got.ImageURL)
	assert.Equal(t, "メンタル", got.Caption)

	resp, _ = f.postForm(t, "/admin/gallery/reset", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	items, err := f.svc.ListGallery(ctx)
	require.NoError(t, err)
	assert.Equal(t, recordstore.SeedGallery(), items)
}

func TestIntegration_EditLargeInlineUploadKeepsImage(t *testing.T) {
	f := newInlineTestServer(t)
	f.login(t)
	ctx := context.Background()

	large := make([]byte, 9<<20)
	copy(large, minimalJPEG)
	resp, _ := f.postGallery(t, map[string]string{"caption": "大会"}, large)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	items, err := f.svc.ListGallery(ctx)
	require.NoError(t, err)
	require.Len(t, items, 5)
	added := items[4]
	require.True(t, strings.HasPrefix(added.ImageURL, "data:image/jpeg;base64,"))

	_, body := f.get(t, "/admin?edit_gallery="+itoa(added.ID))
	assert.Contains(t, body, `name="imageUrl" value=""`)
	assert.Less(t, strings.Count(body, added.ImageURL[:64]), 2, "data URI echoed into the edit form")

	resp, body = f.postGallery(t, map[string]string{"id": itoa(added.ID), "imageUrl": "", "caption": "renamed"}, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode, body)

	got, err := f.svc.GetGalleryItem(ctx, added.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "renamed", got.Caption)
	assert.Equal(t, added.ImageURL, got.ImageURL)
}

func TestIntegration_SharedPhotoSurvivesDelete(t *testing.T) {
	f := newTestServer(t, web.Options{})
	f.login(t)
	ctx := context.Background()

	resp, _ := f.postGallery(t, map[string]string{"caption": "A"}, minimalJPEG)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	items, err := f.svc.ListGallery(ctx)
	require.NoError(t, err)
	first := items[4]

	resp, _ = f.postGallery(t, map[string]string{"caption": "B", "imageUrl": first.ImageURL}, nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = f.postForm(t, "/admin/gallery/"+itoa(first.ID)+"/delete", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = f.get(t, first.ImageURL)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIntegration_AdminMemberTableShowsCommentAndPhoto(t *testing.T) {
	f := newTestServer(t, web.Options{})
	f.login(t)

	_, body := f.get(t, "/admin")

	assert.Contains(t, body, "媚びぬ！退かぬ！省みぬ！")
	assert.Contains(t, body, `src="https://www1833.github.io/Team-Canary4/images/araki.jpg"`)
}

func TestIntegration_GalleryRejectsBadUpload(t *testing.T) {
	f := newTestServer(t, web.Options{})
	f.login(t)

	resp, _ := f.postGallery(t, map[string]string{"caption": "pdf"}, []byte("%PDF-1.4 not an image"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := f.postGallery(t, map[string]string{"caption": "nothing"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, domain.ErrGalleryImageRequired.Error())

	items, err := f.svc.ListGallery(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 4)
}

func TestIntegration_AdminInquiriesTruncatedAndDeletable(t *testing.T) {
	f := newTestServer(t, web.Options{})
	ctx := context.Background()

	long := strings.Repeat("あ", 45)
	inq, err := f.svc.SubmitInquiry(ctx, domain.InquiryInput{Name: "佐藤", Email: "sato@example.com", Message: long})
	require.NoError(t, err)

	f.login(t)
	_, body := f.get(t, "/admin")
	assert.Contains(t, body, strings.Repeat("あ", 40)+"…")
	assert.Contains(t, body, "sato@example.com")

	resp, _ := f.postForm(t, "/admin/inquiries/"+itoa(inq.ID)+"/delete", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	inquiries, err := f.svc.ListInquiries(ctx)
	require.NoError(t, err)
	assert.Empty(t, inquiries)
}

func TestIntegration_PhotoNotFound(t *testing.T) {
	f := newTestServer(t, web.Options{})

	resp, _ := f.get(t, "/photos/gallery_missing.jpg")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

var csrfField = regexp.MustCompile(`name="gorilla.csrf.Token" value="([^"]+)"`)

func TestIntegration_CSRFProtectsForms(t *testing.T) {
	f := newTestServer(t, web.Options{CSRFKey: bytes.Repeat([]byte{7}, 32)})

	resp, _ := f.postForm(t, "/contact", url.Values{
		"name": {"山田"}, "email": {"yamada@example.com"}, "message": {"こんにちは"},
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, body := f.get(t, "/")
	m := csrfField.FindStringSubmatch(body)
	require.Len(t, m, 2, "page should embed a csrf field")

	resp, _ = f.postForm(t, "/contact", url.Values{
		"gorilla.csrf.Token": {m[1]},
		"name":               {"山田"},
		"email":              {"yamada@example.com"},
		"message":            {"こんにちは"},
	})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	inquiries, err := f.svc.ListInquiries(context.Background())
	require.NoError(t, err)
	assert.Len(t, inquiries, 1)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func sortedByID(members []domain.Member) []domain.Member {
	out := slices.Clone(members)
	slices.SortFunc(out, func(a, b domain.Member) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

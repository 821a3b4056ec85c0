// admin_crud_test.go covers the admin console handlers: List, New, Create,
// Edit, Update, Toggle and Delete, including the upload path.
package handlers

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"

	"estrategas/internal/access"
	"estrategas/internal/models"
	"estrategas/internal/store"
)

// adminRequest builds a urlencoded request carrying an admin gate.
func (e *testEnv) adminRequest(t *testing.T, method, target string, form url.Values) *http.Request {
	t.Helper()
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	return withGate(req, e.gate(t, models.RoleAdmin))
}

type filePart struct {
	name string
	data []byte
}

// multipartRequest builds a multipart form with the given fields and files
// under "files".
func (e *testEnv) multipartRequest(t *testing.T, target string, form url.Values, files ...filePart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, vs := range form {
		for _, v := range vs {
			if err := mw.WriteField(k, v); err != nil {
				t.Fatalf("WriteField: %v", err)
			}
		}
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile("files", f.name)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := fw.Write(f.data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return withGate(req, e.gate(t, models.RoleAdmin))
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 3))); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func (e *testEnv) onlyPost(t *testing.T) models.Post {
	t.Helper()
	posts, err := e.Posts.List(context.Background(), store.PostQuery{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("posts: got %d, want 1", len(posts))
	}
	return posts[0]
}

// --------------------------------------------------------------------------
// List
// --------------------------------------------------------------------------

func TestAdminList_ShowsDrafts(t *testing.T) {
	env := newTestEnv(t)
	env.Posts.Seed(models.Post{Title: "Borrador táctico", Content: "x"})
	env.Posts.Seed(models.Post{Title: "Publicado táctico", Content: "x", Published: true})

	rec := httptest.NewRecorder()
	env.Admin.List(rec, env.adminRequest(t, http.MethodGet, "/admin", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	for _, want := range []string{"Borrador táctico", "Publicado táctico", ">Borrador<", ">Publicado<"} {
		if !strings.Contains(body, want) {
			t.Errorf("admin list missing %q", want)
		}
	}
}

// TestAdminList_MemberDenied verifies that a member reaching the handler is
// sent home with the access-denied notice.
func TestAdminList_MemberDenied(t *testing.T) {
	env := newTestEnv(t)

	req := withGate(httptest.NewRequest(http.MethodGet, "/admin", nil), env.gate(t, models.RoleMember))
	rec := httptest.NewRecorder()
	env.Admin.List(rec, req)

	assertRedirect(t, rec, "/")
	env.assertFlash(t, rec, "Acceso denegado")
}

func TestAdminList_AnonymousToAuth(t *testing.T) {
	env := newTestEnv(t)

	req := withGate(httptest.NewRequest(http.MethodGet, "/admin", nil), access.NewGate())
	rec := httptest.NewRecorder()
	env.Admin.List(rec, req)

	assertRedirect(t, rec, "/auth")
}

func TestAdminList_BackendFailure(t *testing.T) {
	env := newTestEnv(t)
	env.Posts.Err = errors.New("sin conexión")

	rec := httptest.NewRecorder()
	env.Admin.List(rec, env.adminRequest(t, http.MethodGet, "/admin", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	if !strings.Contains(rec.Body.String(), "sin conexión") {
		t.Error("backend message should be shown")
	}
}

// --------------------------------------------------------------------------
// New / Create
// --------------------------------------------------------------------------

func TestAdminNew_RendersForm(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.Admin.New(rec, env.adminRequest(t, http.MethodGet, "/admin/posts/new", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Nuevo artículo") || !strings.Contains(body, "Táctica") {
		t.Error("form should show its title and the section selector")
	}
	if strings.Contains(body, "<no value>") {
		t.Error("form rendered a missing value")
	}
}

func TestAdminCreate_Valid(t *testing.T) {
	env := newTestEnv(t)
	env.PageCache.Set(context.Background(), "/", []byte("viejo"))

	rec := httptest.NewRecorder()
	env.Admin.Create(rec, env.adminRequest(t, http.MethodPost, "/admin/posts", url.Values{
		"title":      {"  La presión alta  "},
		"content":    {"## Idea\n\nRobar arriba."},
		"images":     {"https://cdn.example.com/a.jpg\n\n https://cdn.example.com/b.jpg "},
		"section_id": {env.Section.ID.String()},
		"published":  {"true"},
	}))

	assertRedirect(t, rec, "/admin")
	env.assertFlash(t, rec, "Artículo creado")

	p := env.onlyPost(t)
	if p.Title != "La presión alta" {
		t.Errorf("Title: got %q, want %q", p.Title, "La presión alta")
	}
	if !p.Published {
		t.Error("post should be published")
	}
	if p.SectionID == nil || *p.SectionID != env.Section.ID {
		t.Errorf("SectionID: got %v, want %v", p.SectionID, env.Section.ID)
	}
	if len(p.Images) != 2 || p.Images[1] != "https://cdn.example.com/b.jpg" {
		t.Errorf("Images: got %v", p.Images)
	}
	if p.Excerpt == "" {
		t.Error("excerpt should be derived from the content")
	}
	if _, ok := env.PageCache.Get(context.Background(), "/"); ok {
		t.Error("page cache should be cleared after a write")
	}
}

func TestAdminCreate_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{"missing title", url.Values{"title": {" "}, "content": {"x"}}, "El título es obligatorio"},
		{"missing content", url.Values{"title": {"T"}, "content": {""}}, "El contenido es obligatorio"},
		{"bad image url", url.Values{"title": {"T"}, "content": {"x"}, "images": {"ftp://a"}}, "Las imágenes deben ser URLs"},
		{"bad section", url.Values{"title": {"T"}, "content": {"x"}, "section_id": {"nope"}}, "Sección no válida"},
		{"title too long", url.Values{"title": {strings.Repeat("a", maxTitleLen+1)}, "content": {"x"}}, "El título es demasiado largo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			env.Admin.Create(rec, env.adminRequest(t, http.MethodPost, "/admin/posts", tt.form))

			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("status: got %d, want %d", rec.Code, http.StatusUnprocessableEntity)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("response missing %q", tt.want)
			}
		})
	}
	if env.Posts.Calls.Load() != 0 {
		t.Error("invalid forms must not reach the store")
	}
}

// TestAdminCreate_ValidationBeforeUpload verifies that an invalid form with
// a file attached stores nothing in the bucket.
func TestAdminCreate_ValidationBeforeUpload(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.Admin.Create(rec, env.multipartRequest(t, "/admin/posts",
		url.Values{"title": {""}, "content": {"x"}},
		filePart{"foto.png", pngBytes(t)},
	))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	if env.Bucket.Len() != 0 {
		t.Errorf("bucket objects: got %d, want 0", env.Bucket.Len())
	}
}

// TestAdminCreate_WithUpload verifies that uploaded images are appended
// after the URLs typed in the form.
func TestAdminCreate_WithUpload(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.Admin.Create(rec, env.multipartRequest(t, "/admin/posts",
		url.Values{"title": {"Con foto"}, "content": {"x"}, "images": {"https://cdn.example.com/a.jpg"}},
		filePart{"Pizarra Táctica.png", pngBytes(t)},
	))

	assertRedirect(t, rec, "/admin")
	p := env.onlyPost(t)
	if len(p.Images) != 2 {
		t.Fatalf("Images: got %v, want 2 entries", p.Images)
	}
	if p.Images[0] != "https://cdn.example.com/a.jpg" {
		t.Errorf("Images[0]: got %q", p.Images[0])
	}
	if !strings.HasPrefix(p.Images[1], "https://cdn.test/uploads/") || !strings.HasSuffix(p.Images[1], "-pizarra-tactica.png") {
		t.Errorf("Images[1]: got %q", p.Images[1])
	}
	if env.Bucket.Len() != 1 {
		t.Errorf("bucket objects: got %d, want 1", env.Bucket.Len())
	}
}

func TestAdminCreate_RejectsNonImage(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.Admin.Create(rec, env.multipartRequest(t, "/admin/posts",
		url.Values{"title": {"T"}, "content": {"x"}},
		filePart{"notas.txt", []byte("no soy una imagen")},
	))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	if !strings.Contains(rec.Body.String(), "notas.txt: formato no soportado") {
		t.Error("file error should name the file")
	}
	if env.Posts.Calls.Load() != 0 {
		t.Error("a failed upload must not create the post")
	}
}

func TestAdminCreate_BackendFailure(t *testing.T) {
	env := newTestEnv(t)
	env.Posts.Err = errors.New("disco lleno")

	rec := httptest.NewRecorder()
	env.Admin.Create(rec, env.adminRequest(t, http.MethodPost, "/admin/posts", url.Values{
		"title": {"T"}, "content": {"x"},
	}))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "disco lleno") || !strings.Contains(body, `value="T"`) {
		t.Error("form should be re-rendered with the backend message")
	}
}

// --------------------------------------------------------------------------
// Edit / Update
// --------------------------------------------------------------------------

func TestAdminEdit(t *testing.T) {
	env := newTestEnv(t)
	post := env.Posts.Seed(models.Post{Title: "Editable", Content: "x", SectionID: &env.Section.ID})

	tests := []struct {
		name   string
		id     string
		status int
	}{
		{"existing", post.ID.String(), http.StatusOK},
		{"unknown", uuid.NewString(), http.StatusNotFound},
		{"malformed", "abc", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withURLParam(env.adminRequest(t, http.MethodGet, "/admin/posts/"+tt.id, nil), "id", tt.id)
			rec := httptest.NewRecorder()
			env.Admin.Edit(rec, req)

			if rec.Code != tt.status {
				t.Errorf("status: got %d, want %d", rec.Code, tt.status)
			}
			if tt.status == http.StatusOK {
				body := rec.Body.String()
				if !strings.Contains(body, `value="Editable"`) || !strings.Contains(body, "Editar artículo") {
					t.Error("edit form should be prefilled")
				}
				if !strings.Contains(body, "selected") {
					t.Error("current section should be selected")
				}
			}
		})
	}
}

func TestAdminUpdate(t *testing.T) {
	env := newTestEnv(t)
	post := env.Posts.Seed(models.Post{
		Title: "Antes", Content: "x", SectionID: &env.Section.ID,
		Images: models.ImageList{"https://cdn.example.com/viejo.jpg"},
	})

	req := withURLParam(env.adminRequest(t, http.MethodPost, "/admin/posts/"+post.ID.String(), url.Values{
		"title":   {"Después"},
		"content": {"nuevo"},
		"images":  {""},
	}), "id", post.ID.String())
	rec := httptest.NewRecorder()
	env.Admin.Update(rec, req)

	assertRedirect(t, rec, "/admin")
	env.assertFlash(t, rec, "Artículo actualizado")

	p := env.onlyPost(t)
	if p.Title != "Después" || p.Content != "nuevo" {
		t.Errorf("got %q/%q, want Después/nuevo", p.Title, p.Content)
	}
	if p.SectionID != nil {
		t.Errorf("SectionID: got %v, want nil", p.SectionID)
	}
	if len(p.Images) != 0 {
		t.Errorf("Images: got %v, want empty", p.Images)
	}
}

func TestAdminUpdate_Unknown(t *testing.T) {
	env := newTestEnv(t)
	id := uuid.NewString()

	req := withURLParam(env.adminRequest(t, http.MethodPost, "/admin/posts/"+id, url.Values{
		"title": {"T"}, "content": {"x"},
	}), "id", id)
	rec := httptest.NewRecorder()
	env.Admin.Update(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusNotFound)
	}
}

// --------------------------------------------------------------------------
// Toggle / Delete
// --------------------------------------------------------------------------

func TestAdminToggle(t *testing.T) {
	env := newTestEnv(t)
	post := env.Posts.Seed(models.Post{Title: "Borrador", Content: "x"})

	tests := []struct {
		current string
		want    bool
		flash   string
	}{
		{"false", true, "Artículo publicado"},
		{"true", false, "Artículo despublicado"},
	}

	for _, tt := range tests {
		req := withURLParam(env.adminRequest(t, http.MethodPost, "/admin/posts/"+post.ID.String()+"/toggle", url.Values{
			"published": {tt.current},
		}), "id", post.ID.String())
		rec := httptest.NewRecorder()
		env.Admin.Toggle(rec, req)

		assertRedirect(t, rec, "/admin")
		env.assertFlash(t, rec, tt.flash)
		if got := env.onlyPost(t).Published; got != tt.want {
			t.Errorf("after toggle from %s: Published = %v, want %v", tt.current, got, tt.want)
		}
	}
}

func TestAdminDelete(t *testing.T) {
	env := newTestEnv(t)
	post := env.Posts.Seed(models.Post{Title: "Efímero", Content: "x"})

	req := withURLParam(env.adminRequest(t, http.MethodPost, "/admin/posts/"+post.ID.String()+"/delete", nil), "id", post.ID.String())
	rec := httptest.NewRecorder()
	env.Admin.Delete(rec, req)

	assertRedirect(t, rec, "/admin")
	env.assertFlash(t, rec, "Artículo eliminado")
	if got, _ := env.Posts.FindByID(context.Background(), post.ID); got != nil {
		t.Error("post should be deleted")
	}

	again := httptest.NewRecorder()
	env.Admin.Delete(again, withURLParam(env.adminRequest(t, http.MethodPost, "/", nil), "id", post.ID.String()))
	if again.Code != http.StatusNotFound {
		t.Errorf("second delete status: got %d, want %d", again.Code, http.StatusNotFound)
	}
}

// TestAdminDelete_SignedOutGate verifies that a gate signed out after the
// route check cannot write.
func TestAdminDelete_SignedOutGate(t *testing.T) {
	env := newTestEnv(t)
	post := env.Posts.Seed(models.Post{Title: "Protegido", Content: "x"})

	g := env.gate(t, models.RoleAdmin)
	g.SignedOut()
	req := withURLParam(withGate(httptest.NewRequest(http.MethodPost, "/", nil), g), "id", post.ID.String())
	rec := httptest.NewRecorder()
	env.Admin.Delete(rec, req)

	assertRedirect(t, rec, "/auth")
	if got, _ := env.Posts.FindByID(context.Background(), post.ID); got == nil {
		t.Error("post must survive")
	}
}

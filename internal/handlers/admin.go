// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"estrategas/internal/access"
	"estrategas/internal/cache"
	"estrategas/internal/content"
	"estrategas/internal/imaging"
	"estrategas/internal/middleware"
	"estrategas/internal/models"
	"estrategas/internal/render"
	"estrategas/internal/session"
	"estrategas/internal/upload"
)

// maxFormMemory is how much of a multipart form is kept in memory before
// spilling file parts to disk.
const maxFormMemory = 32 << 20

// Admin groups the admin console handlers. Routes are mounted behind
// middleware.RequireAdmin; each handler still goes through the gated
// content repository.
type Admin struct {
	renderer  *render.Renderer
	sessions  *session.Store
	content   *content.Repository
	uploads   *upload.Pipeline
	pageCache *cache.PageCache
}

// NewAdmin creates a new Admin handler group. pageCache may be nil.
func NewAdmin(renderer *render.Renderer, sessions *session.Store, repo *content.Repository, uploads *upload.Pipeline, pageCache *cache.PageCache) *Admin {
	return &Admin{
		renderer:  renderer,
		sessions:  sessions,
		content:   repo,
		uploads:   uploads,
		pageCache: pageCache,
	}
}

// postForm mirrors the admin post form. Images holds one URL per line.
type postForm struct {
	Title     string
	Content   string
	Excerpt   string
	Images    string
	SectionID string
	Published bool
}

func formFromPost(p *models.Post) postForm {
	f := postForm{
		Title:     p.Title,
		Content:   p.Content,
		Excerpt:   p.Excerpt,
		Images:    strings.Join(p.Images, "\n"),
		Published: p.Published,
	}
	if p.SectionID != nil {
		f.SectionID = p.SectionID.String()
	}
	return f
}

func readPostForm(r *http.Request) postForm {
	return postForm{
		Title:     strings.TrimSpace(r.FormValue("title")),
		Content:   r.FormValue("content"),
		Excerpt:   strings.TrimSpace(r.FormValue("excerpt")),
		Images:    r.FormValue("images"),
		SectionID: strings.TrimSpace(r.FormValue("section_id")),
		Published: r.FormValue("published") == "true",
	}
}

// imageURLs splits the textarea into trimmed, non-empty lines.
func (f postForm) imageURLs() []string {
	urls := []string{}
	for _, line := range strings.Split(f.Images, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			urls = append(urls, line)
		}
	}
	return urls
}

// fields converts the form into content.Fields and runs every check that
// needs no network round-trip.
func (f postForm) fields(create bool) (content.Fields, map[string]string) {
	images := f.imageURLs()
	fields := content.Fields{
		Title:     &f.Title,
		Content:   &f.Content,
		Excerpt:   &f.Excerpt,
		Images:    images,
		Published: &f.Published,
	}

	errs := validatePostLengths(f, images)
	if f.SectionID == "" {
		fields.ClearSection = true
	} else if id, err := uuid.Parse(f.SectionID); err == nil {
		fields.SectionID = &id
	} else {
		errs["section_id"] = "Sección no válida"
	}

	var verr *content.ValidationError
	if err := content.Validate(fields, create); errors.As(err, &verr) {
		for k, v := range verr.Fields {
			if _, ok := errs[k]; !ok {
				errs[k] = v
			}
		}
	}
	return fields, errs
}

// repo returns the gated admin repository. On denial it redirects home
// with the access-denied notice and returns nil.
func (a *Admin) repo(w http.ResponseWriter, r *http.Request) *content.AdminRepository {
	repo, err := a.content.Admin(middleware.GateFromCtx(r.Context()))
	if err != nil {
		a.deny(w, r, err)
		return nil
	}
	return repo
}

func (a *Admin) deny(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, access.ErrUnauthenticated) {
		http.Redirect(w, r, "/auth", http.StatusSeeOther)
		return
	}
	redirectWithFlash(w, r, a.sessions, "/", accessDenied)
}

// stale reports whether the identity changed since ticket was taken; the
// fetched data is then discarded and the visitor sent to sign in.
func (a *Admin) stale(w http.ResponseWriter, r *http.Request, ticket access.Ticket) bool {
	if middleware.GateFromCtx(r.Context()).Valid(ticket) {
		return false
	}
	http.Redirect(w, r, "/auth", http.StatusSeeOther)
	return true
}

// List renders every post regardless of publish state.
func (a *Admin) List(w http.ResponseWriter, r *http.Request) {
	repo := a.repo(w, r)
	if repo == nil {
		return
	}
	ticket := middleware.GateFromCtx(r.Context()).Ticket()

	posts, err := repo.List(r.Context(), content.Query{})
	if a.stale(w, r, ticket) {
		return
	}
	if errors.Is(err, content.ErrForbidden) {
		a.deny(w, r, err)
		return
	}

	status := http.StatusOK
	flashes := popFlashes(r, a.sessions)
	if err != nil {
		slog.Error("admin list posts failed", "error", err)
		status = http.StatusServiceUnavailable
		flashes = append(flashes, backendFlash("Error al cargar los artículos", err))
	}

	a.renderer.Status(w, r, status, "admin_list", &render.PageData{
		Title:   "Administración",
		Nav:     "admin",
		Flashes: flashes,
		Data:    map[string]any{"Posts": posts},
	})
}

// New renders an empty post form.
func (a *Admin) New(w http.ResponseWriter, r *http.Request) {
	repo := a.repo(w, r)
	if repo == nil {
		return
	}
	a.form(w, r, repo, http.StatusOK, nil, postForm{}, nil, nil)
}

// Create validates the form, uploads attached images and stores the post.
func (a *Admin) Create(w http.ResponseWriter, r *http.Request) {
	repo := a.repo(w, r)
	if repo == nil {
		return
	}
	if err := parseForm(r); err != nil {
		a.form(w, r, repo, http.StatusBadRequest, nil, postForm{}, map[string]string{"files": formErrorMessage(err)}, nil)
		return
	}

	form := readPostForm(r)
	fields, errs := form.fields(true)
	if len(errs) > 0 {
		a.form(w, r, repo, http.StatusUnprocessableEntity, nil, form, errs, nil)
		return
	}

	if !a.attachUploads(w, r, repo, nil, form, &fields) {
		return
	}

	post, err := repo.Create(r.Context(), fields)
	if err != nil {
		a.writeFailed(w, r, repo, nil, form, err, "No se pudo crear el artículo")
		return
	}

	slog.Info("post created", "id", post.ID, "published", post.Published)
	a.invalidate(r)
	redirectWithFlash(w, r, a.sessions, "/admin", session.Flash{Kind: flashSuccess, Title: "Artículo creado", Message: post.Title})
}

// Edit renders the form for an existing post.
func (a *Admin) Edit(w http.ResponseWriter, r *http.Request) {
	repo := a.repo(w, r)
	if repo == nil {
		return
	}
	id, ok := a.postID(w, r)
	if !ok {
		return
	}
	ticket := middleware.GateFromCtx(r.Context()).Ticket()

	post, err := repo.Find(r.Context(), id)
	if a.stale(w, r, ticket) {
		return
	}
	switch {
	case errors.Is(err, content.ErrNotFound):
		a.notFound(w, r)
		return
	case errors.Is(err, content.ErrForbidden):
		a.deny(w, r, err)
		return
	case err != nil:
		slog.Error("admin find post failed", "error", err, "id", id)
		redirectWithFlash(w, r, a.sessions, "/admin", backendFlash("Error al cargar el artículo", err))
		return
	}

	a.form(w, r, repo, http.StatusOK, &post.ID, formFromPost(post), nil, nil)
}

// Update applies the form to an existing post. The image list is replaced
// by the URLs in the form followed by any newly uploaded files.
func (a *Admin) Update(w http.ResponseWriter, r *http.Request) {
	repo := a.repo(w, r)
	if repo == nil {
		return
	}
	id, ok := a.postID(w, r)
	if !ok {
		return
	}
	if err := parseForm(r); err != nil {
		a.form(w, r, repo, http.StatusBadRequest, &id, postForm{}, map[string]string{"files": formErrorMessage(err)}, nil)
		return
	}

	form := readPostForm(r)
	fields, errs := form.fields(false)
	if len(errs) > 0 {
		a.form(w, r, repo, http.StatusUnprocessableEntity, &id, form, errs, nil)
		return
	}

	if !a.attachUploads(w, r, repo, &id, form, &fields) {
		return
	}

	post, err := repo.Update(r.Context(), id, fields)
	if errors.Is(err, content.ErrNotFound) {
		a.notFound(w, r)
		return
	}
	if err != nil {
		a.writeFailed(w, r, repo, &id, form, err, "No se pudo guardar el artículo")
		return
	}

	slog.Info("post updated", "id", post.ID, "published", post.Published)
	a.invalidate(r)
	redirectWithFlash(w, r, a.sessions, "/admin", session.Flash{Kind: flashSuccess, Title: "Artículo actualizado", Message: post.Title})
}

// Toggle flips the publish state. The form posts the state the admin saw;
// the new state is its negation.
func (a *Admin) Toggle(w http.ResponseWriter, r *http.Request) {
	repo := a.repo(w, r)
	if repo == nil {
		return
	}
	id, ok := a.postID(w, r)
	if !ok {
		return
	}
	current := r.FormValue("published") == "true"

	published, err := repo.TogglePublished(r.Context(), id, current)
	switch {
	case errors.Is(err, content.ErrNotFound):
		a.notFound(w, r)
		return
	case errors.Is(err, content.ErrForbidden):
		a.deny(w, r, err)
		return
	case err != nil:
		slog.Error("toggle published failed", "error", err, "id", id)
		redirectWithFlash(w, r, a.sessions, "/admin", backendFlash("No se pudo cambiar el estado", err))
		return
	}

	slog.Info("post publish state changed", "id", id, "published", published)
	a.invalidate(r)
	title := "Artículo despublicado"
	if published {
		title = "Artículo publicado"
	}
	redirectWithFlash(w, r, a.sessions, "/admin", session.Flash{Kind: flashSuccess, Title: title})
}

// Delete removes a post.
func (a *Admin) Delete(w http.ResponseWriter, r *http.Request) {
	repo := a.repo(w, r)
	if repo == nil {
		return
	}
	id, ok := a.postID(w, r)
	if !ok {
		return
	}

	err := repo.Delete(r.Context(), id)
	switch {
	case errors.Is(err, content.ErrNotFound):
		a.notFound(w, r)
		return
	case errors.Is(err, content.ErrForbidden):
		a.deny(w, r, err)
		return
	case err != nil:
		slog.Error("delete post failed", "error", err, "id", id)
		redirectWithFlash(w, r, a.sessions, "/admin", backendFlash("No se pudo eliminar el artículo", err))
		return
	}

	slog.Info("post deleted", "id", id)
	a.invalidate(r)
	redirectWithFlash(w, r, a.sessions, "/admin", session.Flash{Kind: flashSuccess, Title: "Artículo eliminado"})
}

// attachUploads stores the request's image files and appends their URLs
// to fields.Images in submission order. On failure it renders the form
// and returns false; already stored files are left in the bucket.
func (a *Admin) attachUploads(w http.ResponseWriter, r *http.Request, repo *content.AdminRepository, id *uuid.UUID, form postForm, fields *content.Fields) bool {
	files := uploadedFiles(r)
	if len(files) == 0 {
		return true
	}

	urls, err := a.uploads.Upload(r.Context(), files)
	if err == nil {
		fields.Images = append(fields.Images, urls...)
		return true
	}

	var batch *upload.BatchError
	if errors.As(err, &batch) {
		if msg, ok := uploadMessage(batch.Err); ok {
			a.form(w, r, repo, http.StatusUnprocessableEntity, id, form,
				map[string]string{"files": fmt.Sprintf("%s: %s", batch.Name, msg)}, nil)
			return false
		}
	}

	slog.Error("image upload failed", "error", err)
	a.form(w, r, repo, http.StatusBadGateway, id, form, nil, []session.Flash{{
		Kind:    flashError,
		Title:   "Error al subir las imágenes",
		Message: err.Error(),
	}})
	return false
}

// writeFailed re-renders the form after a failed Create or Update.
func (a *Admin) writeFailed(w http.ResponseWriter, r *http.Request, repo *content.AdminRepository, id *uuid.UUID, form postForm, err error, title string) {
	var verr *content.ValidationError
	switch {
	case errors.As(err, &verr):
		a.form(w, r, repo, http.StatusUnprocessableEntity, id, form, verr.Fields, nil)
	case errors.Is(err, content.ErrForbidden):
		a.deny(w, r, err)
	default:
		slog.Error("post write failed", "error", err)
		a.form(w, r, repo, http.StatusServiceUnavailable, id, form, nil, []session.Flash{backendFlash(title, err)})
	}
}

// form renders the post form. Sections are fetched for the selector; a
// failure there leaves the selector empty rather than hiding the form.
func (a *Admin) form(w http.ResponseWriter, r *http.Request, repo *content.AdminRepository, status int, id *uuid.UUID, form postForm, errs map[string]string, flashes []session.Flash) {
	sections, err := repo.Sections(r.Context())
	if err != nil {
		slog.Warn("list sections for form failed", "error", err)
		sections = nil
	}
	if errs == nil {
		errs = map[string]string{}
	}

	title := "Nuevo artículo"
	data := map[string]any{
		"Form":     form,
		"Sections": sections,
		"Errors":   errs,
	}
	if id != nil {
		title = "Editar artículo"
		data["ID"] = *id
	}

	a.renderer.Status(w, r, status, "admin_form", &render.PageData{
		Title:   title,
		Nav:     "admin",
		Flashes: append(popFlashes(r, a.sessions), flashes...),
		Data:    data,
	})
}

func (a *Admin) postID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		a.notFound(w, r)
		return uuid.Nil, false
	}
	return id, true
}

func (a *Admin) notFound(w http.ResponseWriter, r *http.Request) {
	a.renderer.Status(w, r, http.StatusNotFound, "not_found", &render.PageData{
		Title: "Artículo no encontrado",
		Nav:   "admin",
		Data:  map[string]any{"Message": "El artículo no existe o fue eliminado."},
	})
}

// invalidate clears the public page cache after a write.
func (a *Admin) invalidate(r *http.Request) {
	if a.pageCache != nil {
		a.pageCache.InvalidateAll(r.Context())
	}
}

// parseForm accepts both multipart (with files) and urlencoded bodies.
func parseForm(r *http.Request) error {
	err := r.ParseMultipartForm(maxFormMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	return err
}

func formErrorMessage(err error) string {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return "El formulario supera el tamaño máximo permitido"
	}
	return "No se pudo leer el formulario"
}

// uploadedFiles collects the non-empty "files" parts in form order.
func uploadedFiles(r *http.Request) []upload.File {
	if r.MultipartForm == nil {
		return nil
	}
	var files []upload.File
	for _, fh := range r.MultipartForm.File["files"] {
		if fh.Filename == "" && fh.Size == 0 {
			continue // browsers send an empty part when nothing was chosen
		}
		files = append(files, upload.File{
			Name: fh.Filename,
			Size: fh.Size,
			Open: openPart(fh),
		})
	}
	return files
}

func openPart(fh *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return fh.Open()
	}
}

// uploadMessage maps user-fixable upload failures to form messages.
func uploadMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, upload.ErrEmpty):
		return "el archivo está vacío", true
	case errors.Is(err, upload.ErrTooLarge):
		return "el archivo supera el tamaño máximo", true
	case errors.Is(err, imaging.ErrUnsupported):
		return "formato no soportado (usa JPEG, PNG, GIF o WebP)", true
	case errors.Is(err, imaging.ErrTooManyPixels):
		return "la imagen es demasiado grande", true
	default:
		return "", false
	}
}

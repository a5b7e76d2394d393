package intake

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/SAIASHISH-sys/shaastrahack/internal/response"
	"github.com/SAIASHISH-sys/shaastrahack/internal/storage"
)

const (
	// FieldName is the multipart field that carries the file.
	FieldName = "file"

	// UploadsPrefix is the path under which stored objects are served.
	UploadsPrefix = "/uploads"

	// multipartOverhead is the slack allowed on top of the file ceiling for
	// boundaries, part headers and small text fields.
	multipartOverhead int64 = 1 << 20
)

// Handler holds HTTP handlers for upload and retrieval.
type Handler struct {
	svc     *Service
	baseURL string
	log     zerolog.Logger
}

// NewHandler creates a new intake Handler. baseURL is the public origin used
// to build fileUrl and must not end with a slash.
func NewHandler(svc *Service, baseURL string, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, baseURL: baseURL, log: logger}
}

// Routes mounts the intake endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/upload", h.Upload)
	r.Get(UploadsPrefix+"/{name}", h.Serve)
	r.Head(UploadsPrefix+"/{name}", h.Serve)
}

type uploadResponse struct {
	FileURL  string `json:"fileUrl"  example:"http://localhost:5000/uploads/1700000000000-My-Report.PDF"`
	Filename string `json:"filename" example:"1700000000000-My-Report.PDF"`
}

// Upload godoc
//
//	@Summary		Upload a file
//	@Description	Accepts exactly one file under the "file" field and stores it under a timestamped, sanitized name.
//	@Tags			uploads
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"File to upload"
//	@Success		200		{object}	uploadResponse
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		500		{object}	response.ErrorBody
//	@Router			/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.svc.MaxFileSize()+multipartOverhead)

	obj, err := h.receive(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.OK(w, uploadResponse{
		FileURL:  h.baseURL + UploadsPrefix + "/" + obj.StoredName,
		Filename: obj.StoredName,
	})
}

// receive walks the multipart body. Text fields are skipped; one file part
// under FieldName is stored, anything else aborts the request.
func (h *Handler) receive(r *http.Request) (*StoredObject, error) {
	mr, err := r.MultipartReader()
	if errors.Is(err, http.ErrNotMultipart) {
		return nil, ErrNoFile
	}
	if err != nil {
		return nil, malformed(err)
	}

	var stored *StoredObject
	abort := func(err error) (*StoredObject, error) {
		if stored != nil {
			h.svc.Discard(context.WithoutCancel(r.Context()), stored.StoredName)
		}
		return nil, err
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if isTooLarge(err) {
				return abort(ErrFileTooLarge)
			}
			return abort(malformed(err))
		}

		if part.FileName() == "" {
			_ = part.Close()
			continue
		}
		if part.FormName() != FieldName || stored != nil {
			_ = part.Close()
			return abort(ErrUnexpectedField)
		}

		obj, err := h.svc.Accept(r.Context(), part.FileName(), part.Header.Get("Content-Type"), part)
		_ = part.Close()
		if err != nil {
			return abort(classify(err))
		}
		stored = obj
	}

	if stored == nil {
		return nil, ErrNoFile
	}
	return stored, nil
}

// Serve godoc
//
//	@Summary		Download a stored file
//	@Description	Returns the stored bytes unchanged; the content type is inferred from the extension.
//	@Tags			uploads
//	@Produce		octet-stream
//	@Param			name	path		string	true	"Stored name"
//	@Success		200		{file}		binary
//	@Failure		404		{object}	response.ErrorBody
//	@Router			/uploads/{name} [get]
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	obj, err := h.svc.Open(r.Context(), name)
	if errors.Is(err, storage.ErrNotFound) {
		response.NotFound(w, "File not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("name", name).Str("request_id", chiMiddleware.GetReqID(r.Context())).Msg("open stored file")
		response.InternalError(w, "")
		return
	}
	defer obj.Body.Close()

	if mime.TypeByExtension(filepath.Ext(obj.Name)) == "" && obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, obj.Name, obj.ModTime, obj.Body)
}

// Health godoc
//
//	@Summary	Health check
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Failure	503	{object}	response.ErrorBody
//	@Router		/health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ping(r.Context()); err != nil {
		h.log.Warn().Err(err).Msg("health: storage unreachable")
		response.ServiceUnavailable(w, "storage unavailable")
		return
	}
	response.OK(w, map[string]string{"status": "ok"})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := Resolve(err)
	ev := h.log.Debug()
	if status >= http.StatusInternalServerError {
		ev = h.log.Error()
	}
	ev.Err(err).
		Int("status", status).
		Str("request_id", chiMiddleware.GetReqID(r.Context())).
		Msg("upload rejected")
	response.Error(w, status, msg)
}

// classify turns transport-level read failures into intake errors.
func classify(err error) error {
	var ie *Error
	switch {
	case errors.As(err, &ie):
		return ie
	case isTooLarge(err):
		return ErrFileTooLarge
	case errors.Is(err, io.ErrUnexpectedEOF):
		return malformed(err)
	}
	return err
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

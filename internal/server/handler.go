package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/ivlev/keyringframes/internal/compositor"
	"github.com/ivlev/keyringframes/internal/storage"
)

const qrSize = 256

// Generator produces a frame sequence from an encoded photo.
type Generator interface {
	GenerateFromReader(ctx context.Context, r io.Reader) (compositor.Sequence, error)
}

// Handler exposes the stored frame sequence to the display host and accepts
// new photos.
type Handler struct {
	gen       Generator
	store     storage.Store
	log       *log.Logger
	metrics   *Metrics
	fps       int
	publicURL string
	maxUpload int64

	// one generation at a time; the store swap is atomic, this keeps CPU bounded
	genMu sync.Mutex
}

type HandlerOptions struct {
	FPS           int
	PublicURL     string
	MaxUploadSize int64
}

// NewHandler returns a Handler. Metrics may be nil to disable recording.
func NewHandler(gen Generator, store storage.Store, l *log.Logger, m *Metrics, opts HandlerOptions) *Handler {
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = 32 << 20
	}
	return &Handler{
		gen:       gen,
		store:     store,
		log:       l,
		metrics:   m,
		fps:       opts.FPS,
		publicURL: strings.TrimRight(opts.PublicURL, "/"),
		maxUpload: opts.MaxUploadSize,
	}
}

type framesResponse struct {
	storage.Manifest
	FPS    int      `json:"fps"`
	Frames []string `json:"frames"`
}

func (h *Handler) framesResponse(m storage.Manifest) framesResponse {
	urls := make([]string, m.Count)
	for i := range urls {
		urls[i] = fmt.Sprintf("/frames/%d.png", i)
	}
	return framesResponse{Manifest: m, FPS: h.fps, Frames: urls}
}

// Generate handles POST /frames. The photo is the "photo" form file of a
// multipart body, or the raw request body.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	body, closeBody, err := photoBody(r)
	if err != nil {
		h.log.Debug("invalid upload", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer closeBody()

	h.genMu.Lock()
	start := time.Now()
	seq, err := h.gen.GenerateFromReader(r.Context(), body)
	h.genMu.Unlock()
	if err != nil {
		h.generationFailed(w, err)
		return
	}

	m, err := h.store.SaveAll(r.Context(), seq)
	if err != nil {
		h.log.Error("store frames failed", "error", err)
		if h.metrics != nil {
			h.metrics.IncGenerationFailure("store")
		}
		http.Error(w, "could not store frames", http.StatusInternalServerError)
		return
	}

	elapsed := time.Since(start)
	if h.metrics != nil {
		h.metrics.ObserveGeneration(elapsed)
	}
	h.log.Info("frames generated", "generation", m.Generation, "count", m.Count, "duration", elapsed.Round(time.Millisecond))

	writeJSON(w, http.StatusCreated, h.framesResponse(m))
}

func photoBody(r *http.Request) (io.Reader, func(), error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.Body, func() {}, nil
	}
	f, _, err := r.FormFile("photo")
	if err != nil {
		return nil, nil, fmt.Errorf("photo field: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func (h *Handler) generationFailed(w http.ResponseWriter, err error) {
	kind := compositor.KindOf(err)
	if h.metrics != nil {
		h.metrics.IncGenerationFailure(kind.String())
	}

	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		http.Error(w, "photo too large", http.StatusRequestEntityTooLarge)
	case kind == compositor.KindDecode || kind == compositor.KindGeometry:
		h.log.Warn("photo rejected", "error", err)
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		h.log.Error("generation failed", "kind", kind, "error", err)
		http.Error(w, "generation failed", http.StatusInternalServerError)
	}
}

// Manifest handles GET /frames.
func (h *Handler) Manifest(w http.ResponseWriter, r *http.Request) {
	m, err := h.store.Manifest(r.Context())
	if errors.Is(err, storage.ErrNoFrames) {
		http.Error(w, "no frames", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("read manifest failed", "error", err)
		http.Error(w, "could not read manifest", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, h.framesResponse(m))
}

// Frame handles GET /frames/{index}.png.
func (h *Handler) Frame(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		http.Error(w, "bad frame index", http.StatusBadRequest)
		return
	}

	data, err := h.store.Load(r.Context(), index)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "frame not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("load frame failed", "index", index, "error", err)
		http.Error(w, "could not load frame", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
	if h.metrics != nil {
		h.metrics.IncFramesServed()
	}
}

// Delete handles DELETE /frames.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteAll(r.Context()); err != nil {
		h.log.Error("delete frames failed", "error", err)
		http.Error(w, "could not delete frames", http.StatusInternalServerError)
		return
	}
	h.log.Info("frames deleted")
	w.WriteHeader(http.StatusNoContent)
}

// Pair handles GET /pair.png: a QR code of the manifest URL for the display host.
func (h *Handler) Pair(w http.ResponseWriter, r *http.Request) {
	png, err := qrcode.Encode(h.publicURL+"/frames", qrcode.Medium, qrSize)
	if err != nil {
		h.log.Error("qr encode failed", "error", err)
		http.Error(w, "could not encode qr", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

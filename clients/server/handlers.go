package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/xob0t/covercard/pkg/delivery"
	"github.com/xob0t/covercard/pkg/filter"
	"github.com/xob0t/covercard/pkg/generator"
	"github.com/xob0t/covercard/pkg/template"
)

// ── Helpers ──

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// ── Health ──

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"delivery":  s.sender != nil,
		"scheduler": s.sched.Stats(),
	})
}

// ── Editing inputs ──

// handleImage accepts a multipart "file" field or a raw image body.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	name := "upload"
	var data []byte
	var err error
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, header, ferr := r.FormFile("file")
		if ferr != nil {
			writeErr(w, http.StatusBadRequest, "no file")
			return
		}
		defer file.Close()
		name = header.Filename
		data, err = io.ReadAll(file)
	} else {
		data, err = io.ReadAll(r.Body)
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeErr(w, http.StatusRequestEntityTooLarge, "image too large")
			return
		}
		writeErr(w, http.StatusBadRequest, "read upload: "+err.Error())
		return
	}

	src, err := template.DecodeSource(name, bytes.NewReader(data))
	if err != nil {
		writeErr(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	a := s.assets.add(name, data, http.DetectContentType(data))
	src.ID = a.ID
	s.sched.ImageSelected(src)
	writeSelected(w, a, src)
}

func writeSelected(w http.ResponseWriter, a *asset, src *template.SourceImage) {
	b := src.Image.Bounds()
	writeJSON(w, http.StatusAccepted, map[string]any{
		"id":     a.ID,
		"name":   a.Name,
		"width":  b.Dx(),
		"height": b.Dy(),
		"url":    "/api/assets/" + a.ID,
	})
}

type textRequest struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json body")
		return
	}
	s.sched.TextChanged(req.Title, req.Artist)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

type blurRequest struct {
	Blur *int `json:"blur"`
}

func (s *Server) handleBlur(w http.ResponseWriter, r *http.Request) {
	var req blurRequest
	if err := decodeJSON(r, &req); err != nil || req.Blur == nil {
		writeErr(w, http.StatusBadRequest, "blur is required")
		return
	}
	if *req.Blur < 0 || *req.Blur > filter.MaxStrength {
		writeErr(w, http.StatusBadRequest, "blur must be between 0 and "+strconv.Itoa(filter.MaxStrength))
		return
	}
	s.sched.BlurChanged(*req.Blur)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	req := s.sched.Request()
	resp := map[string]any{
		"source_id": req.SourceID,
		"title":     req.Title,
		"artist":    req.Artist,
		"blur":      req.Blur,
	}
	if res, ok := s.sched.Latest(); ok {
		resp["generation"] = res.Generation
		if res.Err != nil {
			resp["error"] = res.Err.Error()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ── Preview ──

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	s.writePreview(w, false)
}

func (s *Server) handlePreviewPlain(w http.ResponseWriter, r *http.Request) {
	s.writePreview(w, true)
}

func (s *Server) writePreview(w http.ResponseWriter, plain bool) {
	res, ok := s.sched.Latest()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if res.Err != nil {
		http.Error(w, res.Err.Error(), http.StatusConflict)
		return
	}
	img := res.Composition.Cover
	if plain {
		img = res.Composition.Plain
	}

	var buf bytes.Buffer
	if err := generator.Encode(&buf, ".png", img); err != nil {
		http.Error(w, "encode PNG: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Render-Generation", strconv.FormatUint(res.Generation, 10))
	_, _ = w.Write(buf.Bytes())
}

// ── Asset serving ──

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	a, ok := s.assets.get(chi.URLParam(r, "assetId"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", a.Mime)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{
		"filename": filepath.Base(a.Name),
	}))
	_, _ = w.Write(a.Data)
}

// handleSelectAsset makes a previously uploaded photo the source again.
func (s *Server) handleSelectAsset(w http.ResponseWriter, r *http.Request) {
	a, ok := s.assets.get(chi.URLParam(r, "assetId"))
	if !ok {
		writeErr(w, http.StatusNotFound, "unknown asset")
		return
	}
	src, err := template.DecodeSource(a.ID, bytes.NewReader(a.Data))
	if err != nil {
		writeErr(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.sched.ImageSelected(src)
	writeSelected(w, a, src)
}

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.assets.listAll())
}

// ── Delivery ──

func (s *Server) handleGetRecipient(w http.ResponseWriter, r *http.Request) {
	addr := ""
	if s.recipients != nil {
		addr = s.recipients.Recipient()
	}
	writeJSON(w, http.StatusOK, map[string]string{"to_email": addr})
}

type sendRequest struct {
	Recipient string `json:"recipient"`
	Remember  bool   `json:"remember"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if s.sender == nil {
		writeErr(w, http.StatusServiceUnavailable, "delivery is not configured")
		return
	}
	var req sendRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeErr(w, http.StatusBadRequest, "invalid json body")
		return
	}
	recipient := strings.TrimSpace(req.Recipient)
	if recipient == "" && s.recipients != nil {
		recipient = s.recipients.Recipient()
	}
	if recipient == "" {
		writeErr(w, http.StatusBadRequest, "recipient is required")
		return
	}

	res, ok := s.sched.Latest()
	if !ok || res.Err != nil || res.Composition.Cover == nil {
		writeErr(w, http.StatusConflict, "no rendered cover to send")
		return
	}

	job := delivery.NewJob(recipient, res.Composition.Cover, res.Composition.Plain)
	logger := s.logger.With(slog.String("job_id", job.ID.String()))
	remember := req.Remember && s.recipients != nil
	st := s.jobs.track(job, s.sender.Start(s.baseCtx, job), func(last delivery.Progress) {
		if last.State != delivery.StateDone {
			return
		}
		if remember {
			if err := s.recipients.SaveRecipient(recipient); err != nil {
				logger.Warn("remember recipient failed", slog.String("error", err.Error()))
			}
		}
	})

	writeJSON(w, http.StatusAccepted, map[string]any{"job": st})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "jobId"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid job id")
		return
	}
	st, ok := s.jobs.get(id)
	if !ok {
		writeErr(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job": st})
}

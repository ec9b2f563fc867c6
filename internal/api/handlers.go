package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	qerrors "github.com/FocuswithJustin/JuniperQuran/core/errors"
	"github.com/FocuswithJustin/JuniperQuran/core/quran"
	"github.com/FocuswithJustin/JuniperQuran/internal/logging"
	"github.com/FocuswithJustin/JuniperQuran/internal/server"
)

// Version is reported by /health and the CLI.
var Version = "0.1.0"

// maxChunkLimit bounds the limit query parameter.
const maxChunkLimit = 100_000

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *APIMeta    `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	Total     int    `json:"total,omitempty"`
	Timestamp string `json:"timestamp"`
}

// SurahInfo summarizes a surah.
type SurahInfo struct {
	Number int    `json:"number"`
	NameAr string `json:"name_ar"`
	NameEn string `json:"name_en"`
	Ayat   int    `json:"ayat"`
}

// PageRef points at one page image.
type PageRef struct {
	Page  int    `json:"page"`
	Image string `json:"image"`
}

// SurahDetail is a surah with its pages grouped for delivery.
type SurahDetail struct {
	SurahInfo
	Pages   []int       `json:"pages"`
	Batches [][]PageRef `json:"batches"`
}

// SurahText is a surah rendered as bounded chunks.
type SurahText struct {
	Surah  int      `json:"surah"`
	Limit  int      `json:"limit"`
	Chunks []string `json:"chunks"`
}

// AyahInfo describes one ayah.
type AyahInfo struct {
	Surah       int      `json:"surah"`
	Number      int      `json:"number"`
	ID          int      `json:"id"`
	Juz         int      `json:"juz"`
	Page        int      `json:"page"`
	LineStart   int      `json:"line_start"`
	LineEnd     int      `json:"line_end"`
	SurahNameAr string   `json:"surah_name_ar"`
	SurahNameEn string   `json:"surah_name_en"`
	Text        string   `json:"text"`
	TextImlaei  string   `json:"text_imlaei"`
	Formatted   string   `json:"formatted"`
	Tafseer     []string `json:"tafseer_languages"`
}

// TafseerInfo is the commentary for one ayah in one language.
type TafseerInfo struct {
	Surah    int    `json:"surah"`
	Ayah     int    `json:"ayah"`
	Language string `json:"language"`
	Text     string `json:"text"`
}

// HealthInfo is the health check response.
type HealthInfo struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	CorpusID string `json:"corpus_id"`
	LoadedAt string `json:"loaded_at"`
	Surahs   int    `json:"surahs"`
	Ayat     int    `json:"ayat"`
}

var startTime = time.Now()

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}
	if r.URL.Path != "/" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
		return
	}

	respond(w, http.StatusOK, map[string]interface{}{
		"name":    "Juniper Quran API",
		"version": Version,
		"endpoints": []string{
			"GET /health",
			"GET /metrics",
			"GET /surahs",
			"GET /surahs/{name}",
			"GET /surahs/{name}/text?limit=",
			"GET /surahs/{name}/ayat/{number}",
			"GET /surahs/{name}/ayat/{number}/tafseer?lang=",
			"GET /pages/{number}",
			"WS /ws/surahs/{name}/text?limit=",
			"WS /ws/events",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	c := s.Corpus()
	respond(w, http.StatusOK, HealthInfo{
		Status:   "healthy",
		Version:  Version,
		Uptime:   time.Since(startTime).Round(time.Second).String(),
		CorpusID: c.ID,
		LoadedAt: c.LoadedAt.UTC().Format(time.RFC3339),
		Surahs:   len(c.Surahs()),
		Ayat:     c.Len(),
	})
}

func (s *Server) handleSurahs(w http.ResponseWriter, r *http.Request) {
	surahs := s.Corpus().Surahs()
	infos := make([]SurahInfo, 0, len(surahs))
	for _, sr := range surahs {
		infos = append(infos, surahInfo(sr))
	}

	respondList(w, infos, len(infos))
}

func (s *Server) handleSurah(w http.ResponseWriter, r *http.Request) {
	sr, err := s.surahFromPath(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	pages := sr.Pages()
	refs := make([]PageRef, 0, len(pages))
	for _, p := range pages {
		refs = append(refs, PageRef{Page: p, Image: fmt.Sprintf("/pages/%d", p)})
	}

	respond(w, http.StatusOK, SurahDetail{
		SurahInfo: surahInfo(sr),
		Pages:     pages,
		Batches:   quran.Batches(refs, s.cfg.PageBatch),
	})
}

func (s *Server) handleSurahText(w http.ResponseWriter, r *http.Request) {
	sr, err := s.surahFromPath(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	limit, err := s.limitParam(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	chunks := s.surahText(sr, limit)
	respondList(w, SurahText{Surah: sr.Number, Limit: limit, Chunks: chunks}, len(chunks))
}

func (s *Server) handleAyah(w http.ResponseWriter, r *http.Request) {
	a, err := s.ayahFromPath(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respond(w, http.StatusOK, AyahInfo{
		Surah:       a.Surah,
		Number:      a.Number,
		ID:          a.ID,
		Juz:         a.Juz,
		Page:        a.Page,
		LineStart:   a.LineStart,
		LineEnd:     a.LineEnd,
		SurahNameAr: a.SurahNameAr,
		SurahNameEn: a.SurahNameEn,
		Text:        a.Text,
		TextImlaei:  a.TextImlaei,
		Formatted:   quran.FormatVerse(a),
		Tafseer:     a.Languages(),
	})
}

func (s *Server) handleTafseer(w http.ResponseWriter, r *http.Request) {
	a, err := s.ayahFromPath(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	lang := server.SanitizeName(r.URL.Query().Get("lang"))
	if lang == "" {
		lang = s.cfg.TafseerLanguage
	}
	text, ok := a.Tafseer(lang)
	if !ok {
		respondErr(w, r, qerrors.NewNotFound("tafseer", fmt.Sprintf("%s (%s)", a.Key(), lang)))
		return
	}

	respond(w, http.StatusOK, TafseerInfo{Surah: a.Surah, Ayah: a.Number, Language: lang, Text: text})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if s.images == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Page images are not configured")
		return
	}
	page, err := intParam(r.PathValue("number"), "page")
	if err != nil {
		respondErr(w, r, err)
		return
	}

	img, err := s.images.Open(page)
	if err != nil {
		var nf *qerrors.PageImageNotFoundError
		if errors.As(err, &nf) {
			// the resolved path stays in the log, not the response
			logging.WarnContext(r.Context(), "page_image_missing", "page", nf.Page, "path", nf.Path, "error", nf.Err)
			respondError(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("Image for page %d not found", page))
			return
		}
		respondErr(w, r, err)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(img.Data))
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(img.Data)
}

// surahFromPath resolves the {name} path value, which may be a surah
// number, an English name or an Arabic name with or without harakat.
func (s *Server) surahFromPath(r *http.Request) (*quran.Surah, error) {
	name := server.SanitizeName(r.PathValue("name"))
	ref, err := quran.ParseRef(name)
	if err != nil {
		return nil, err
	}
	if ref.Ayah != 0 {
		return nil, qerrors.NewValidation("name", "expected a surah, got an ayah reference")
	}
	sr, _, ok := s.Corpus().Resolve(ref)
	if !ok {
		return nil, qerrors.NewNotFound("surah", name)
	}
	return sr, nil
}

func (s *Server) ayahFromPath(r *http.Request) (quran.Ayah, error) {
	sr, err := s.surahFromPath(r)
	if err != nil {
		return quran.Ayah{}, err
	}
	number, err := intParam(r.PathValue("number"), "ayah")
	if err != nil {
		return quran.Ayah{}, err
	}
	a, ok := sr.Ayah(number)
	if !ok {
		return quran.Ayah{}, qerrors.NewNotFound("ayah", fmt.Sprintf("%d:%d", sr.Number, number))
	}
	return a, nil
}

func (s *Server) limitParam(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return s.cfg.ChunkLimit, nil
	}
	limit, err := intParam(v, "limit")
	if err != nil {
		return 0, err
	}
	if limit < 1 || limit > maxChunkLimit {
		return 0, &qerrors.ValidationError{Field: "limit", Value: v, Message: fmt.Sprintf("must be between 1 and %d", maxChunkLimit)}
	}
	return limit, nil
}

func intParam(v, field string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, &qerrors.ValidationError{Field: field, Value: v, Message: "not a non-negative integer"}
	}
	return n, nil
}

func surahInfo(sr *quran.Surah) SurahInfo {
	return SurahInfo{Number: sr.Number, NameAr: sr.NameAr, NameEn: sr.NameEn, Ayat: sr.Len()}
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	response := APIResponse{
		Success: true,
		Data:    data,
		Meta: &APIMeta{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

func respondList(w http.ResponseWriter, data interface{}, total int) {
	response := APIResponse{
		Success: true,
		Data:    data,
		Meta: &APIMeta{
			Total:     total,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	response := APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		Meta: &APIMeta{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// respondErr maps an error onto a status code. Lookup misses and missing
// page images are 404s, bad input is a 400 and anything else is logged
// and reported as a 500.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, qerrors.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, qerrors.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	default:
		logging.ErrorContext(r.Context(), "request_failed", "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/raine/stockmeta/internal/account"
	"github.com/raine/stockmeta/internal/batch"
	"github.com/raine/stockmeta/internal/export"
	"github.com/raine/stockmeta/internal/imaging"
	"github.com/raine/stockmeta/internal/llm"
	"github.com/raine/stockmeta/internal/session"
	"github.com/raine/stockmeta/internal/stock"
	"github.com/rs/zerolog/log"
)

// maxExportBody bounds the JSON accepted by /api/export.
const maxExportBody = 8 << 20

type handler struct {
	deps Deps
	now  func() time.Time
}

func newHandler(deps Deps) *handler {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &handler{deps: deps, now: now}
}

type processSVGRequest struct {
	SVGContent string       `json:"svgContent"`
	Query      string       `json:"query"`
	Mode       string       `json:"mode"`
	Platform   string       `json:"platform"`
	Targets    *llm.Targets `json:"targets,omitempty"`
}

type usageResponse struct {
	InputTokens  int64   `json:"inputTokens"`
	OutputTokens int64   `json:"outputTokens"`
	TotalTokens  int64   `json:"totalTokens"`
	CostUSD      float64 `json:"costUsd"`
}

type processSVGResponse struct {
	*stock.Result
	Usage            usageResponse `json:"usage"`
	CreditsRemaining *int          `json:"creditsRemaining,omitempty"`
}

func (h *handler) processSVG(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, batch.MaxImageSize*2)

	var req processSVGRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.SVGContent) == "" {
		writeError(w, http.StatusBadRequest, "svgContent is required")
		return
	}
	if err := batch.Validate("image/svg+xml", int64(len(req.SVGContent))); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}

	mode, err := stock.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	platform, err := stock.ParsePlatform(req.Platform)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	targets := h.deps.Targets
	if req.Targets != nil {
		targets = *req.Targets
	}

	png, err := imaging.RasterizeSVG([]byte(req.SVGContent))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "failed to render svg")
		return
	}

	ctx := r.Context()
	var profile *account.UserProfile
	user := userFromContext(ctx)
	if user != nil && h.deps.Credits != nil {
		profile, err = h.deps.Credits.Consume(ctx, user.ID)
		if err != nil {
			writeCreditError(w, err)
			return
		}
	}

	res, err := h.deps.Analyzer.Analyze(ctx, llm.Request{
		Data:        png,
		MIMEType:    "image/png",
		Platform:    platform,
		Mode:        mode,
		Targets:     targets,
		Instruction: req.Query,
	})
	if err != nil {
		log.Error().Err(err).Str("platform", string(platform)).Msg("svg analysis failed")
		if profile != nil {
			// A client disconnect cancels ctx; refund regardless.
			if rerr := h.deps.Credits.Refund(context.WithoutCancel(ctx), user.ID); rerr != nil {
				log.Warn().Err(rerr).Str("userId", user.ID).Msg("failed to refund credit")
			}
		}
		writeError(w, http.StatusBadGateway, "analysis failed")
		return
	}

	resp := processSVGResponse{
		Result: res.Result,
		Usage: usageResponse{
			InputTokens:  res.Usage.InputTokens,
			OutputTokens: res.Usage.OutputTokens,
			TotalTokens:  res.Usage.TotalTokens,
			CostUSD:      res.Usage.CostUSD,
		},
	}
	if profile != nil {
		remaining := profile.Remaining(h.now())
		resp.CreditsRemaining = &remaining
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeCreditError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, account.ErrNoCredits):
		writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, account.ErrSubscriptionExpired):
		writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, account.ErrProfileNotFound):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		log.Error().Err(err).Msg("credit check failed")
		writeError(w, http.StatusInternalServerError, "credit check failed")
	}
}

type sessionRequest struct {
	SessionID       string     `json:"sessionId"`
	Platform        string     `json:"platform"`
	ImagesProcessed int        `json:"imagesProcessed"`
	StartedAt       *time.Time `json:"startedAt,omitempty"`
	Ended           bool       `json:"ended"`
}

type sessionResponse struct {
	SessionID string `json:"sessionId"`
	Warning   string `json:"warning,omitempty"`
}

// upsertSession records a client's session. Storage failures are returned
// as a warning with a 200 so the client keeps working.
func (h *handler) upsertSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ImagesProcessed < 0 {
		writeError(w, http.StatusBadRequest, "imagesProcessed must not be negative")
		return
	}

	now := h.now().UTC()
	rec := &session.Record{
		SessionID:       req.SessionID,
		Platform:        req.Platform,
		ImagesProcessed: req.ImagesProcessed,
		StartedAt:       now,
		LastSeen:        now,
		AccessToken:     tokenFromContext(r.Context()),
	}
	if rec.SessionID == "" {
		rec.SessionID = uuid.NewString()
	}
	if req.StartedAt != nil {
		rec.StartedAt = req.StartedAt.UTC()
	}
	if user := userFromContext(r.Context()); user != nil {
		rec.UserID = user.ID
	}
	if req.Ended {
		rec.EndedAt = &now
	}

	resp := sessionResponse{SessionID: rec.SessionID}
	if h.deps.Sessions != nil {
		if err := h.deps.Sessions.UpsertSession(r.Context(), rec); err != nil {
			log.Warn().Err(err).Str("sessionId", rec.SessionID).Msg("failed to record session")
			resp.Warning = "session could not be saved"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type exportRequest struct {
	Platform string        `json:"platform"`
	Images   []exportImage `json:"images"`
}

type exportImage struct {
	Name     string        `json:"name"`
	MIMEType string        `json:"mimeType"`
	Result   *stock.Result `json:"result"`
}

// exportCSV renders posted results as a download. Entries without a result
// are skipped, like unfinished images in the batch view.
func (h *handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxExportBody)

	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	platform, err := stock.ParsePlatform(req.Platform)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	images := make([]*stock.Image, 0, len(req.Images))
	for _, in := range req.Images {
		if in.Result == nil || in.Name == "" {
			continue
		}
		mimeType := in.MIMEType
		if mimeType == "" {
			mimeType = imaging.DetectMIME(in.Name, nil)
		}
		images = append(images, &stock.Image{
			Name:     in.Name,
			MIMEType: mimeType,
			Status:   stock.StatusComplete,
			Result:   in.Result,
		})
	}

	now := h.now()
	body := stock.FormatCSV(platform, images)

	if h.deps.Sink != nil {
		location, err := export.CSV(r.Context(), h.deps.Sink, platform, images, now)
		if err != nil {
			log.Warn().Err(err).Msg("failed to archive export")
		} else {
			w.Header().Set("X-Export-Location", location)
		}
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", stock.ExportFilename(platform, now)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(body)); err != nil {
		log.Warn().Err(err).Msg("failed to write export")
	}
}

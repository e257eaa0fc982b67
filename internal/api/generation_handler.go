package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/vidspark/vidspark/internal/generation"
	"github.com/vidspark/vidspark/internal/ledger"
	"github.com/vidspark/vidspark/internal/user"
)

// Generator is the generation workflow boundary. Satisfied by
// *generation.Service.
type Generator interface {
	Stylize(ctx context.Context, req generation.StylizeRequest) (*generation.Prediction, error)
	SubmitVideo(ctx context.Context, userID string, req generation.VideoRequest) (*generation.Prediction, error)
	Status(ctx context.Context, predictionID string) (*generation.Prediction, error)
}

type GenerationHandler struct {
	generator Generator
	log       *logrus.Logger
}

func NewGenerationHandler(generator Generator, log *logrus.Logger) *GenerationHandler {
	return &GenerationHandler{generator: generator, log: log}
}

func (h *GenerationHandler) Stylize(w http.ResponseWriter, r *http.Request) {
	var req generation.StylizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.log, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ImageURL == "" {
		writeError(w, h.log, http.StatusBadRequest, "image_url is required")
		return
	}

	prediction, err := h.generator.Stylize(r.Context(), req)
	if err != nil {
		h.log.WithError(err).Error("Stylization failed")
		writeError(w, h.log, http.StatusBadGateway, "Failed to stylize image")
		return
	}
	writeJSON(w, h.log, prediction)
}

func (h *GenerationHandler) SubmitVideo(w http.ResponseWriter, r *http.Request) {
	account, ok := user.GetAccountFromContext(r.Context())
	if !ok {
		writeError(w, h.log, http.StatusBadRequest, "Account not found")
		return
	}

	var req generation.VideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.log, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Prompt == "" || req.ImageURL == "" {
		writeError(w, h.log, http.StatusBadRequest, "prompt and image_url are required")
		return
	}

	prediction, err := h.generator.SubmitVideo(r.Context(), account.ID, req)
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientCredits) {
			writeError(w, h.log, http.StatusPaymentRequired, "Not enough credits")
			return
		}
		h.log.WithError(err).WithField("user_id", account.ID).Error("Video submission failed")
		writeError(w, h.log, http.StatusBadGateway, "Failed to generate video")
		return
	}
	writeJSON(w, h.log, prediction)
}

func (h *GenerationHandler) Status(w http.ResponseWriter, r *http.Request) {
	predictionID := mux.Vars(r)["predictionID"]
	if predictionID == "" {
		writeError(w, h.log, http.StatusBadRequest, "prediction id is required")
		return
	}

	prediction, err := h.generator.Status(r.Context(), predictionID)
	if err != nil {
		h.log.WithError(err).WithField("prediction_id", predictionID).Error("Failed to check prediction status")
		writeError(w, h.log, http.StatusBadGateway, "Failed to check status")
		return
	}
	writeJSON(w, h.log, prediction)
}

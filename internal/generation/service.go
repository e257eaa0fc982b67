package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/vidspark/vidspark/internal/metrics"
)

// videoCreditCost is the debit per submitted video job.
const videoCreditCost = 1

var ErrStylizeFailed = errors.New("stylization failed")

// Submitter is the inference API boundary. Satisfied by *Client; tests
// substitute a stub.
type Submitter interface {
	CreatePrediction(ctx context.Context, model string, input map[string]any) (*Prediction, error)
	GetPrediction(ctx context.Context, id string) (*Prediction, error)
	WaitForPrediction(ctx context.Context, prediction *Prediction) (*Prediction, error)
}

// CreditLedger is the slice of the ledger the workflow needs.
type CreditLedger interface {
	ReserveCredit(ctx context.Context, userID string, amount int64) error
	RefundCredit(ctx context.Context, userID string, amount int64) error
}

type StylizeRequest struct {
	ImageURL    string `json:"image_url"`
	AspectRatio string `json:"aspect_ratio"`
}

type VideoRequest struct {
	Prompt      string `json:"prompt"`
	ImageURL    string `json:"image_url"`
	Duration    string `json:"duration"`
	AspectRatio string `json:"aspect_ratio"`
	Loop        bool   `json:"loop"`
}

type Service struct {
	submitter Submitter
	ledger    CreditLedger
	log       *logrus.Logger
	metrics   *metrics.Metrics
}

func NewService(submitter Submitter, ledger CreditLedger, log *logrus.Logger, m *metrics.Metrics) *Service {
	return &Service{
		submitter: submitter,
		ledger:    ledger,
		log:       log,
		metrics:   m,
	}
}

// Stylize runs the image model to completion. Stylization is free, so
// no reservation happens here.
func (s *Service) Stylize(ctx context.Context, req StylizeRequest) (*Prediction, error) {
	aspectRatio := req.AspectRatio
	if aspectRatio == "" {
		aspectRatio = "1:1"
	}

	input := map[string]any{
		"prompt":                stylizePrompt,
		"aspect_ratio":          aspectRatio,
		"image_prompt":          req.ImageURL,
		"image_prompt_strength": 0.96,
		"output_format":         "jpg",
	}

	prediction, err := s.submitter.CreatePrediction(ctx, stylizeModel, input)
	if err != nil {
		return nil, err
	}

	prediction, err = s.submitter.WaitForPrediction(ctx, prediction)
	if err != nil {
		return nil, err
	}
	if prediction.Status == "failed" {
		return nil, fmt.Errorf("%w: %s", ErrStylizeFailed, prediction.Error)
	}
	return prediction, nil
}

// SubmitVideo reserves a credit, then forwards the job to the inference
// API. A failed submission refunds the reservation; a failed refund is
// logged and counted, the balance stays short.
func (s *Service) SubmitVideo(ctx context.Context, userID string, req VideoRequest) (*Prediction, error) {
	if err := s.ledger.ReserveCredit(ctx, userID, videoCreditCost); err != nil {
		return nil, err
	}

	input := map[string]any{
		"prompt":          req.Prompt,
		"start_image_url": req.ImageURL,
		"duration":        req.Duration,
		"aspect_ratio":    req.AspectRatio,
		"loop":            req.Loop,
	}

	prediction, err := s.submitter.CreatePrediction(ctx, videoModel, input)
	if err != nil {
		if refundErr := s.ledger.RefundCredit(ctx, userID, videoCreditCost); refundErr != nil {
			s.metrics.RefundsFailed.Inc()
			s.log.WithError(refundErr).WithFields(logrus.Fields{
				"user_id": userID,
				"credits": videoCreditCost,
			}).Error("Failed to refund credit after submission failure")
		}
		return nil, err
	}

	return prediction, nil
}

// Status polls a submitted job.
func (s *Service) Status(ctx context.Context, predictionID string) (*Prediction, error) {
	return s.submitter.GetPrediction(ctx, predictionID)
}

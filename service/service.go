package service

import (
	"context"
	"fmt"
	"time"

	"farmpulse-service/history"
	"farmpulse-service/image"
	"farmpulse-service/llm"
	"farmpulse-service/metrics"
	"farmpulse-service/models"
	"farmpulse-service/parser"

	"github.com/apex/log"
)

// Store is the durable scan-history collaborator.
type Store interface {
	SaveScan(ctx context.Context, record *models.HistoryRecord) error
	ListScans(ctx context.Context, userID string) ([]models.HistoryRecord, error)
}

// AnalyzeOutcome carries exactly one of a parsed diagnosis or a soft parse
// failure. Both are successful call outcomes from the caller's point of view.
type AnalyzeOutcome struct {
	Result  *models.DiagnosisResult
	Failure *models.DiagnosisFailure
}

// Service runs the diagnosis pipeline: normalize, infer, parse, record.
// Collaborators are injected; store may be nil when no durable history is
// configured.
type Service struct {
	llm    llm.Client
	store  Store
	mirror *history.Mirror
}

// New creates the diagnosis service.
func New(llmClient llm.Client, store Store, mirror *history.Mirror) *Service {
	return &Service{
		llm:    llmClient,
		store:  store,
		mirror: mirror,
	}
}

// Analyze runs one image through the pipeline for the given caller
// identity. Model output that cannot be parsed is a soft outcome: it is
// returned (and recorded) rather than escalated. Only an undecodable image
// or an unreachable inference collaborator produce an error.
func (s *Service) Analyze(ctx context.Context, userID string, upload []byte) (*AnalyzeOutcome, error) {
	start := time.Now()

	normalized, err := image.Normalize(upload)
	if err != nil {
		metrics.AnalyzeTotal.WithLabelValues("invalid_image").Inc()
		return nil, err
	}

	raw, err := s.llm.AnalyzeImage(ctx, normalized)
	if err != nil {
		metrics.AnalyzeTotal.WithLabelValues("inference_error").Inc()
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	outcome := &AnalyzeOutcome{}
	result, parseErr := parser.ParseDiagnosis(raw)
	if parseErr != nil {
		log.Warnf("Model output not parseable, returning raw response: %v", parseErr)
		outcome.Failure = models.NewDiagnosisFailure(raw)
	} else {
		outcome.Result = result
	}

	s.record(ctx, userID, outcome)

	label := outcomeLabel(outcome)
	metrics.AnalyzeTotal.WithLabelValues(label).Inc()
	metrics.AnalyzeDurationSeconds.WithLabelValues(label).Observe(time.Since(start).Seconds())

	return outcome, nil
}

// record attempts the durable write and the mirror write independently.
// A durable write failure is logged and swallowed; it must never mask the
// diagnosis already computed.
func (s *Service) record(ctx context.Context, userID string, outcome *AnalyzeOutcome) {
	record := s.buildRecord(userID, outcome)

	if s.store != nil {
		if err := s.store.SaveScan(ctx, &record); err != nil {
			metrics.HistoryWriteErrorTotal.Inc()
			log.Errorf("Failed to save scan history for user %s: %v", userID, err)
		}
	}

	s.mirror.Append(record)
}

func (s *Service) buildRecord(userID string, outcome *AnalyzeOutcome) models.HistoryRecord {
	record := models.HistoryRecord{
		UserID:   userID,
		ScanType: s.llm.SourceName(),
	}

	if outcome.Failure != nil {
		record.ParseFailed = true
		record.Timestamp = outcome.Failure.Timestamp
		return record
	}

	result := outcome.Result
	record.DiseaseDetected = result.DiseaseDetected
	record.DiseaseName = result.DiseaseName
	record.Confidence = result.Confidence
	record.CropType = result.CropType
	record.ProbableCause = result.ProbableCause
	record.Description = result.Description
	record.Solution = result.Solution
	record.Severity = result.Severity
	record.Timestamp = result.Timestamp
	return record
}

// History lists the caller's scans from the durable store, most recent
// first. When the store is missing or unreachable it falls back to the
// process-lifetime mirror, which is NOT filtered by identity: every
// mirrored record is returned regardless of user. That cross-user
// exposure is inherited behavior; the loud log line below is deliberate.
func (s *Service) History(ctx context.Context, userID string) ([]models.HistoryRecord, error) {
	if s.store != nil {
		records, err := s.store.ListScans(ctx, userID)
		if err == nil {
			return records, nil
		}
		log.Errorf("Durable history unavailable for user %s: %v", userID, err)
	}

	metrics.MirrorFallbackTotal.Inc()
	log.Warnf("Serving history for user %s from the in-memory mirror; mirror entries are not identity-filtered", userID)
	return s.mirror.All(), nil
}

func outcomeLabel(outcome *AnalyzeOutcome) string {
	if outcome.Failure != nil {
		return "parse_failed"
	}
	if outcome.Result.DiseaseDetected != nil && *outcome.Result.DiseaseDetected {
		return "diseased"
	}
	return "healthy"
}

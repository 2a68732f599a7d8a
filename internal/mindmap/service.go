package mindmap

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/mindmap-service/internal/auth"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/clinical"
	"github.com/WailSalutem-Health-Care/mindmap-service/internal/messaging"
)

var tracer = otel.Tracer("github.com/WailSalutem-Health-Care/mindmap-service/mindmap")

// Source supplies the normalized records a mind map is built from.
type Source interface {
	GetPatient(ctx context.Context, patientID string) (*clinical.Patient, error)
	ListPrescriptions(ctx context.Context, patientID string) ([]clinical.Prescription, error)
}

// MetricsRecorder receives build outcomes.
type MetricsRecorder interface {
	RecordMindMapBuild(ctx context.Context, outcome string, nodes int)
	RecordUpstreamFailure(ctx context.Context, operation string)
}

// Outcome describes how a mind map was produced.
type Outcome string

const (
	OutcomeBuilt    Outcome = "built"
	OutcomeFallback Outcome = "fallback"
)

// Service fetches records and builds mind maps. A failed fetch never reaches
// the caller: it yields the empty graph instead.
type Service struct {
	source    Source
	publisher messaging.PublisherInterface
	metrics   MetricsRecorder
	logger    *zap.Logger
}

// NewService wires a Service. publisher and metrics may be nil.
func NewService(source Source, publisher messaging.PublisherInterface, metrics MetricsRecorder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		source:    source,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.Named("mindmap"),
	}
}

// Generate returns the mind map for patientID.
func (s *Service) Generate(ctx context.Context, patientID string) (*Graph, Outcome) {
	ctx, span := tracer.Start(ctx, "mindmap.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("patient.id", patientID))

	patient, rxs, err := s.fetch(ctx, patientID)
	if err != nil {
		s.logger.Warn("serving empty mind map",
			zap.String("patient_id", patientID),
			zap.Error(err),
		)
		span.SetStatus(codes.Error, "fetch failed")
		span.RecordError(err)

		g := Empty()
		s.record(ctx, OutcomeFallback, g)
		s.publish(ctx, messaging.EventMindMapFallback, messaging.MindMapFallbackEvent{
			BaseEvent: messaging.NewBaseEvent(messaging.EventMindMapFallback),
			Data: messaging.MindMapFallbackData{
				PatientID:   patientID,
				RequestedBy: requester(ctx),
				Reason:      err.Error(),
				OccurredAt:  time.Now().UTC(),
			},
		})
		return g, OutcomeFallback
	}

	g := Build(*patient, rxs)

	span.SetAttributes(
		attribute.Int("mindmap.conditions", len(g.Conditions)),
		attribute.Int("mindmap.encounters", len(g.Encounters)),
		attribute.Int("mindmap.medications", len(g.Medications)),
		attribute.Int("mindmap.alerts", len(g.Alerts)),
	)
	span.SetStatus(codes.Ok, "mind map built")

	s.record(ctx, OutcomeBuilt, g)
	s.publish(ctx, messaging.EventMindMapGenerated, messaging.MindMapGeneratedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventMindMapGenerated),
		Data: messaging.MindMapGeneratedData{
			PatientID:      patientID,
			OrganizationID: organization(ctx),
			RequestedBy:    requester(ctx),
			Conditions:     len(g.Conditions),
			Encounters:     len(g.Encounters),
			Medications:    len(g.Medications),
			Alerts:         len(g.Alerts),
			GeneratedAt:    time.Now().UTC(),
		},
	})

	s.logger.Debug("mind map built",
		zap.String("patient_id", patientID),
		zap.Int("nodes", g.NodeCount()),
		zap.Int("edges", len(g.Edges)),
	)
	return g, OutcomeBuilt
}

func (s *Service) fetch(ctx context.Context, patientID string) (*clinical.Patient, []clinical.Prescription, error) {
	patient, err := s.source.GetPatient(ctx, patientID)
	if err != nil {
		s.upstreamFailure(ctx, "get_patient")
		return nil, nil, fmt.Errorf("failed to get patient: %w", err)
	}
	if patient == nil {
		s.upstreamFailure(ctx, "get_patient")
		return nil, nil, fmt.Errorf("failed to get patient: empty response")
	}

	rxs, err := s.source.ListPrescriptions(ctx, patientID)
	if err != nil {
		s.upstreamFailure(ctx, "list_prescriptions")
		return nil, nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	return patient, rxs, nil
}

func (s *Service) upstreamFailure(ctx context.Context, operation string) {
	if s.metrics != nil {
		s.metrics.RecordUpstreamFailure(ctx, operation)
	}
}

func (s *Service) record(ctx context.Context, outcome Outcome, g *Graph) {
	if s.metrics != nil {
		s.metrics.RecordMindMapBuild(ctx, string(outcome), g.NodeCount())
	}
}

func (s *Service) publish(ctx context.Context, routingKey string, event interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, routingKey, event); err != nil {
		s.logger.Warn("failed to publish event", zap.String("routing_key", routingKey), zap.Error(err))
	}
}

func requester(ctx context.Context) string {
	if pr, ok := auth.FromContext(ctx); ok {
		return pr.UserID
	}
	return ""
}

func organization(ctx context.Context) string {
	if pr, ok := auth.FromContext(ctx); ok {
		return pr.OrgID
	}
	return ""
}

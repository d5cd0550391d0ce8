package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/pflow/internal/status"
)

// Span attribute keys.
const (
	AttrRunID      = "pflow.run.id"
	AttrEventIndex = "pflow.event.index"
	AttrEventHits  = "pflow.event.calo_hits"
	AttrEventTrack = "pflow.event.tracks"

	AttrAlgorithmType  = "pflow.algorithm.type"
	AttrAlgorithmName  = "pflow.algorithm.name"
	AttrAlgorithmScope = "pflow.algorithm.scope"
	AttrAlgorithmDepth = "pflow.algorithm.depth"
	AttrCompletion     = "pflow.algorithm.completion"
	AttrPendingObjects = "pflow.algorithm.pending_objects"

	AttrListName  = "pflow.list.name"
	AttrListCount = "pflow.list.objects"

	AttrReclusterChi = "pflow.recluster.chi"

	AttrErrorCode    = "error.code"
	AttrErrorMessage = "error.message"
)

// Span names.
const (
	SpanEvent            = "event.process"
	SpanPrefixAlgorithm  = "algorithm."
	EventListSaved       = "list.saved"
	EventScopeSuspended  = "scope.suspended"
	EventReclusterChosen = "recluster.chosen"
)

// StartEvent opens the span covering one event.
func StartEvent(ctx context.Context, tracer trace.Tracer, runID string, index, hits, tracks int) (context.Context, trace.Span) {
	return tracer.Start(ctx, SpanEvent, trace.WithAttributes(
		attribute.String(AttrRunID, runID),
		attribute.Int(AttrEventIndex, index),
		attribute.Int(AttrEventHits, hits),
		attribute.Int(AttrEventTrack, tracks),
	))
}

// StartAlgorithm opens the span covering one algorithm run.
func StartAlgorithm(ctx context.Context, tracer trace.Tracer, algoType, name, scope string, depth int) (context.Context, trace.Span) {
	return tracer.Start(ctx, SpanPrefixAlgorithm+algoType, trace.WithAttributes(
		attribute.String(AttrAlgorithmType, algoType),
		attribute.String(AttrAlgorithmName, name),
		attribute.String(AttrAlgorithmScope, scope),
		attribute.Int(AttrAlgorithmDepth, depth),
	))
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		RecordError(span, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// RecordError marks span failed and attaches the result code of err.
func RecordError(span trace.Span, err error) {
	code := status.CodeOf(err)
	span.RecordError(err)
	span.SetAttributes(
		attribute.String(AttrErrorCode, code.String()),
		attribute.String(AttrErrorMessage, err.Error()),
	)
	span.SetStatus(codes.Error, err.Error())
}

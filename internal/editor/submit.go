package editor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"fibermap/editor-go/internal/backend"
	"fibermap/editor-go/internal/geo"
	"fibermap/editor-go/internal/network"
	"fibermap/editor-go/internal/observability"
)

// SubmitOptions describes what the current draft may be saved as.
type SubmitOptions struct {
	Kinds          []network.Kind `json:"kinds"`
	CoreColors     []string       `json:"core_colors"`
	CoreCounts     []int          `json:"core_counts"`
	SplitterRatios []int          `json:"splitter_ratios"`
	OltTypes       []string       `json:"olt_types"`
	Length         float64        `json:"length"`
}

// Snapshot copies the session's selection and measures the draft.
func (w *Workflow) Snapshot(s *Session) Snapshot {
	snap := s.Selection.Snapshot()
	snap.Length = w.geometry.Length(snap.Coordinates)
	return snap
}

// SelectParent makes the collected element id the session's branch point.
func (w *Workflow) SelectParent(s *Session, id string, point *geo.Coordinate) error {
	e, ok := w.collection.Get(id)
	if !ok {
		err := newError(ErrorNotFound, "element_not_found", "element not found", nil)
		s.Notices.Error(err.Message)
		return err
	}
	s.Selection.SelectParent(e, point)
	return nil
}

func (w *Workflow) SubmitOptions(s *Session) SubmitOptions {
	snap := w.Snapshot(s)
	opts := SubmitOptions{
		Kinds:          network.SubmittableKinds(w.latest(snap.Parent), len(snap.Coordinates)),
		CoreColors:     []string{},
		CoreCounts:     slices.Clone(network.CoreCounts),
		SplitterRatios: slices.Clone(network.SplitterRatios),
		OltTypes:       slices.Clone(network.OltTypes),
		Length:         snap.Length,
	}
	if opts.Kinds == nil {
		opts.Kinds = []network.Kind{}
	}
	if p := w.latest(snap.Parent); p != nil {
		opts.CoreColors = p.UnusedCoreColors()
	}
	return opts
}

// latest prefers the collection's copy of parent so core usage reflects the
// last refresh rather than the moment it was selected.
func (w *Workflow) latest(parent *network.Element) *network.Element {
	if parent == nil {
		return nil
	}
	if e, ok := w.collection.Get(parent.ID); ok {
		return &e
	}
	return parent
}

// Submit saves the session's draft as a new element of kind and clears the
// selection on success.
func (w *Workflow) Submit(ctx context.Context, s *Session, kind network.Kind, form network.Form) (saved network.Element, err error) {
	ctx, span := observability.StartSpan(ctx, "submit",
		attribute.String("kind", string(kind)),
		attribute.String("session_id", s.ID),
	)
	defer func() {
		w.metrics.IncSubmission(string(kind), outcome(err))
		if err != nil {
			s.Notices.Error(UserMessage(err))
		}
		observability.EndSpan(span, err)
	}()

	snap := w.Snapshot(s)
	if snap.Parent == nil && len(snap.Coordinates) < 2 {
		return network.Element{}, ErrNothingToSubmit
	}

	payload, err := network.BuildPayload(kind, form, network.Draft{
		Parent:      w.latest(snap.Parent),
		Coordinates: snap.Coordinates,
		Length:      snap.Length,
	})
	if err != nil {
		return network.Element{}, newError(ErrorValidation, "invalid_form", formMessage(err), err)
	}

	start := time.Now()
	saved, err = w.backend.CreateElement(ctx, payload)
	if err != nil {
		return network.Element{}, backendError(err, "failed to save "+string(kind)+" connection")
	}
	if saved.Kind == "" {
		saved.Kind = kind
	}
	if len(saved.Coordinates) == 0 {
		saved.Coordinates = payload.Coordinates
	}

	if kind == network.KindPointToPoint {
		w.collection.Add(saved)
	} else if rerr := w.collection.Refresh(ctx); rerr != nil {
		w.log.Warn().Err(rerr).Str("kind", string(kind)).Msg("refresh after submit failed")
	}

	if !s.Selection.resetAt(snap.Generation) {
		w.log.Debug().Str("session_id", s.ID).Msg("selection changed during submit; keeping the newer draft")
	}
	s.Notices.Success(fmt.Sprintf("Successfully added new %s connection", kind))

	span.SetAttributes(attribute.String("element_id", saved.ID))
	w.log.Info().
		Str("session_id", s.ID).
		Str("kind", string(kind)).
		Str("element_id", saved.ID).
		Float64("length_m", payload.Length).
		Dur("duration", time.Since(start)).
		Msg("element submitted")
	return saved, nil
}

// Delete removes an element from the backend and reloads the collection.
func (w *Workflow) Delete(ctx context.Context, kind network.Kind, id string) error {
	if id == "" {
		return newError(ErrorValidation, "invalid_id", "element id is required", nil)
	}
	if err := w.backend.DeleteElement(ctx, kind, id); err != nil {
		return backendError(err, "failed to delete "+string(kind)+" connection")
	}
	w.log.Info().Str("kind", string(kind)).Str("element_id", id).Msg("element deleted")
	if err := w.collection.Refresh(ctx); err != nil {
		w.log.Warn().Err(err).Msg("refresh after delete failed")
	}
	return nil
}

func formMessage(err error) string {
	return strings.TrimPrefix(err.Error(), network.ErrInvalidForm.Error()+": ")
}

func backendError(err error, fallback string) error {
	var apiErr *backend.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500:
		msg := apiErr.Message
		if msg == "" {
			msg = fallback
		}
		return newError(ErrorValidation, "rejected", msg, err)
	case errors.Is(err, backend.ErrNotFound):
		return newError(ErrorNotFound, "not_found", "element not found", err)
	default:
		return newError(ErrorTransport, "transport_error", fallback, err)
	}
}

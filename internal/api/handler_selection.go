package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"waypointd/internal/registry"
	"waypointd/internal/session"
)

type ResolveSelectionInput struct {
	Token  uuid.UUID `path:"token" doc:"Session token from a needs_selection response"`
	UserID string    `header:"X-User-ID" doc:"Acting user; must match the session owner"`
	Body   struct {
		ChosenID *uuid.UUID `json:"chosen_id,omitempty" doc:"ID of the chosen candidate" required:"false"`
		Cancel   bool       `json:"cancel,omitempty" doc:"Discard the pending action instead of choosing" required:"false"`
	}
}

type ResolveSelectionResponse struct {
	Outcome string          `json:"outcome" enum:"deleted,updated,cancelled" doc:"What happened to the pending action"`
	Record  *RecordResponse `json:"record,omitempty" doc:"The affected record"`
	Deleted int64           `json:"deleted,omitempty" doc:"Records removed, for delete actions"`
}

type ResolveSelectionOutput struct {
	Body ResolveSelectionResponse
}

// SelectionHandler resolves pending disambiguation sessions.
type SelectionHandler struct {
	registry *registry.Registry
	logger   *slog.Logger
}

func NewSelectionHandler(reg *registry.Registry, logger *slog.Logger) *SelectionHandler {
	return &SelectionHandler{registry: reg, logger: logger}
}

func registerSelectionRoutes(api huma.API, h *SelectionHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "resolve-selection",
		Method:      http.MethodPost,
		Path:        "/v1/selections/{token}",
		Summary:     "Answer a pending disambiguation",
		Description: "Applies the deferred action to the chosen candidate, or cancels it. Sessions expire on their own if never answered.",
		Tags:        []string{"selections"},
	}, h.Resolve)
}

func (h *SelectionHandler) Resolve(ctx context.Context, input *ResolveSelectionInput) (*ResolveSelectionOutput, error) {
	if input.UserID == "" {
		return nil, huma.Error400BadRequest("X-User-ID header is required")
	}

	if input.Body.Cancel {
		if err := h.registry.CancelSelection(input.Token, input.UserID); err != nil {
			return nil, mapSessionError(err)
		}
		return &ResolveSelectionOutput{Body: ResolveSelectionResponse{Outcome: "cancelled"}}, nil
	}

	if input.Body.ChosenID == nil {
		return nil, huma.Error400BadRequest("either chosen_id or cancel must be provided")
	}

	res, err := h.registry.ResolveSelection(ctx, input.Token, input.UserID, *input.Body.ChosenID)
	if err != nil {
		if errors.Is(err, registry.ErrDuplicateName) {
			return nil, huma.Error409Conflict("a coordinate with that name already exists")
		}
		if sessErr := mapSessionError(err); sessErr != err {
			return nil, sessErr
		}
		h.logger.Error("failed to resolve selection", "token", input.Token, "error", err)
		return nil, huma.Error500InternalServerError("failed to resolve selection")
	}

	resp := ResolveSelectionResponse{Deleted: res.Deleted}
	rec := toRecordResponse(res.Record)
	resp.Record = &rec
	if res.Action == session.ActionDelete {
		resp.Outcome = "deleted"
	} else {
		resp.Outcome = "updated"
	}
	return &ResolveSelectionOutput{Body: resp}, nil
}

// mapSessionError returns an HTTP error for session-level failures, or the
// input error unchanged when it is not one.
func mapSessionError(err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return huma.Error404NotFound("no pending selection for that token")
	case errors.Is(err, session.ErrChoiceNotOffered):
		return huma.Error400BadRequest("chosen record was not among the offered candidates")
	default:
		return err
	}
}

package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"waypointd/internal/coordinate"
	"waypointd/internal/registry"
	"waypointd/internal/storage"
)

// --- Huma input/output types ---

type PositionBody struct {
	X int `json:"x" doc:"East/west block position"`
	Y int `json:"y" doc:"Vertical block position"`
	Z int `json:"z" doc:"North/south block position"`
}

type AuthorBody struct {
	ID        string `json:"id" doc:"Chat-platform user ID" minLength:"1"`
	Name      string `json:"name" doc:"Display name" minLength:"1"`
	AvatarURL string `json:"avatar_url,omitempty" doc:"Avatar image URL" required:"false"`
}

type RecordResponse struct {
	ID        uuid.UUID    `json:"id" doc:"Record ID"`
	GuildID   string       `json:"guild_id" doc:"Owning guild"`
	Name      string       `json:"name" doc:"Coordinate name"`
	Position  PositionBody `json:"position" doc:"Block position"`
	Dimension string       `json:"dimension" doc:"World dimension"`
	Author    AuthorBody   `json:"author" doc:"Who recorded it"`
	CreatedAt time.Time    `json:"created_at" doc:"Creation timestamp"`
}

type ChoiceResponse struct {
	ID    uuid.UUID `json:"id" doc:"Candidate record ID"`
	Label string    `json:"label" doc:"Human-readable candidate description"`
}

type SelectionResponse struct {
	Token     uuid.UUID        `json:"token" doc:"Session token for resolving the selection"`
	ExpiresAt time.Time        `json:"expires_at" doc:"When the session times out"`
	Choices   []ChoiceResponse `json:"choices" doc:"Candidate records, pick exactly one"`
}

type CreateCoordinateInput struct {
	GuildID string `path:"guild_id" doc:"Guild ID" minLength:"1"`
	Body    struct {
		Name      string       `json:"name" doc:"Coordinate name" minLength:"1" maxLength:"100"`
		Position  PositionBody `json:"position" doc:"Block position"`
		Dimension string       `json:"dimension" doc:"World dimension" minLength:"1"`
		Author    AuthorBody   `json:"author" doc:"Who is recording it"`
	}
}

type CreateCoordinateResponse struct {
	Outcome string           `json:"outcome" enum:"created,conflict" doc:"Whether the record was inserted"`
	Record  *RecordResponse  `json:"record,omitempty" doc:"The stored record, when created"`
	Matches []RecordResponse `json:"matches,omitempty" doc:"Records already holding the name, on conflict"`
}

type CreateCoordinateOutput struct {
	Status int
	Body   CreateCoordinateResponse
}

type FindCoordinateInput struct {
	GuildID string `path:"guild_id" doc:"Guild ID" minLength:"1"`
	Name    string `path:"name" doc:"Coordinate name"`
}

type RecordsOutput struct {
	Body struct {
		Records []RecordResponse `json:"records" doc:"Matching records"`
	}
}

type ListCoordinatesInput struct {
	GuildID string `path:"guild_id" doc:"Guild ID" minLength:"1"`
}

type RenameCoordinateInput struct {
	GuildID string `path:"guild_id" doc:"Guild ID" minLength:"1"`
	Name    string `path:"name" doc:"Current coordinate name"`
	UserID  string `header:"X-User-ID" doc:"Acting user, owns any disambiguation session"`
	Body    struct {
		NewName string `json:"new_name" doc:"Replacement name" minLength:"1" maxLength:"100"`
	}
}

type UpdateCoordinateResponse struct {
	Outcome   string             `json:"outcome" enum:"updated,needs_selection" doc:"Whether the update applied directly"`
	Record    *RecordResponse    `json:"record,omitempty" doc:"The updated record"`
	Selection *SelectionResponse `json:"selection,omitempty" doc:"Pending selection, when several records matched"`
}

type UpdateCoordinateOutput struct {
	Status int
	Body   UpdateCoordinateResponse
}

type OverwriteCoordinateInput struct {
	GuildID string `path:"guild_id" doc:"Guild ID" minLength:"1"`
	Name    string `path:"name" doc:"Coordinate name"`
	UserID  string `header:"X-User-ID" doc:"Acting user, owns any disambiguation session"`
	Body    struct {
		Position  PositionBody `json:"position" doc:"Replacement block position"`
		Dimension string       `json:"dimension" doc:"Replacement dimension" minLength:"1"`
	}
}

type DeleteCoordinateInput struct {
	GuildID string `path:"guild_id" doc:"Guild ID" minLength:"1"`
	Name    string `path:"name" doc:"Coordinate name"`
	UserID  string `header:"X-User-ID" doc:"Acting user, owns any disambiguation session"`
}

type DeleteCoordinateResponse struct {
	Outcome   string             `json:"outcome" enum:"deleted,needs_selection" doc:"Whether the delete applied directly"`
	Deleted   int64              `json:"deleted" doc:"Number of records removed"`
	Selection *SelectionResponse `json:"selection,omitempty" doc:"Pending selection, when several records matched"`
}

type DeleteCoordinateOutput struct {
	Status int
	Body   DeleteCoordinateResponse
}

type ClearGuildInput struct {
	GuildID string `path:"guild_id" doc:"Guild ID" minLength:"1"`
}

type ClearGuildOutput struct {
	Body struct {
		Deleted int64 `json:"deleted" doc:"Number of records removed"`
	}
}

// --- Handler ---

// CoordinateHandler exposes the registry's coordinate operations.
type CoordinateHandler struct {
	registry *registry.Registry
	logger   *slog.Logger
}

func NewCoordinateHandler(reg *registry.Registry, logger *slog.Logger) *CoordinateHandler {
	return &CoordinateHandler{registry: reg, logger: logger}
}

func registerCoordinateRoutes(api huma.API, h *CoordinateHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-coordinate",
		Method:        http.MethodPost,
		Path:          "/v1/guilds/{guild_id}/coordinates",
		Summary:       "Record a coordinate",
		Description:   "Creates a named coordinate. A name already in use is reported as a conflict with the existing records; nothing is overwritten.",
		Tags:          []string{"coordinates"},
		DefaultStatus: http.StatusCreated,
	}, h.Create)

	huma.Register(api, huma.Operation{
		OperationID: "list-coordinates",
		Method:      http.MethodGet,
		Path:        "/v1/guilds/{guild_id}/coordinates",
		Summary:     "List a guild's coordinates",
		Description: "Returns all coordinates in a stable order (creation time, then ID) so callers can paginate consistently.",
		Tags:        []string{"coordinates"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "find-coordinate",
		Method:      http.MethodGet,
		Path:        "/v1/guilds/{guild_id}/coordinates/{name}",
		Summary:     "Find coordinates by name",
		Tags:        []string{"coordinates"},
	}, h.Find)

	huma.Register(api, huma.Operation{
		OperationID: "rename-coordinate",
		Method:      http.MethodPatch,
		Path:        "/v1/guilds/{guild_id}/coordinates/{name}",
		Summary:     "Rename a coordinate",
		Tags:        []string{"coordinates"},
	}, h.Rename)

	huma.Register(api, huma.Operation{
		OperationID: "overwrite-coordinate",
		Method:      http.MethodPut,
		Path:        "/v1/guilds/{guild_id}/coordinates/{name}",
		Summary:     "Overwrite a coordinate's position",
		Description: "Replaces position and dimension in place; ID, name, and creation time are preserved.",
		Tags:        []string{"coordinates"},
	}, h.Overwrite)

	huma.Register(api, huma.Operation{
		OperationID: "delete-coordinate",
		Method:      http.MethodDelete,
		Path:        "/v1/guilds/{guild_id}/coordinates/{name}",
		Summary:     "Delete a coordinate",
		Tags:        []string{"coordinates"},
	}, h.Delete)

	huma.Register(api, huma.Operation{
		OperationID: "clear-guild-coordinates",
		Method:      http.MethodDelete,
		Path:        "/v1/guilds/{guild_id}/coordinates",
		Summary:     "Delete all of a guild's coordinates",
		Tags:        []string{"coordinates"},
	}, h.Clear)
}

func (h *CoordinateHandler) Create(ctx context.Context, input *CreateCoordinateInput) (*CreateCoordinateOutput, error) {
	res, err := h.registry.Create(ctx, registry.CreateRequest{
		GuildID:   input.GuildID,
		Name:      input.Body.Name,
		Position:  coordinate.Position(input.Body.Position),
		Dimension: input.Body.Dimension,
		Author: coordinate.Author{
			ID:        input.Body.Author.ID,
			Name:      input.Body.Author.Name,
			AvatarURL: input.Body.Author.AvatarURL,
		},
	})
	if err != nil {
		if errors.Is(err, coordinate.ErrInvalid) {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		h.logger.Error("failed to create coordinate", "guild_id", input.GuildID, "error", err)
		return nil, huma.Error500InternalServerError("failed to create coordinate")
	}

	if !res.Created() {
		return &CreateCoordinateOutput{
			Status: http.StatusConflict,
			Body: CreateCoordinateResponse{
				Outcome: "conflict",
				Matches: toRecordResponses(res.Conflict),
			},
		}, nil
	}

	rec := toRecordResponse(res.Record)
	return &CreateCoordinateOutput{
		Status: http.StatusCreated,
		Body:   CreateCoordinateResponse{Outcome: "created", Record: &rec},
	}, nil
}

func (h *CoordinateHandler) Find(ctx context.Context, input *FindCoordinateInput) (*RecordsOutput, error) {
	recs, err := h.registry.Find(ctx, input.GuildID, input.Name)
	if err != nil {
		h.logger.Error("failed to find coordinate", "guild_id", input.GuildID, "name", input.Name, "error", err)
		return nil, huma.Error500InternalServerError("failed to find coordinate")
	}

	out := &RecordsOutput{}
	out.Body.Records = toRecordResponses(recs)
	return out, nil
}

func (h *CoordinateHandler) List(ctx context.Context, input *ListCoordinatesInput) (*RecordsOutput, error) {
	recs, err := h.registry.List(ctx, input.GuildID)
	if err != nil {
		h.logger.Error("failed to list coordinates", "guild_id", input.GuildID, "error", err)
		return nil, huma.Error500InternalServerError("failed to list coordinates")
	}

	out := &RecordsOutput{}
	out.Body.Records = toRecordResponses(recs)
	return out, nil
}

func (h *CoordinateHandler) Rename(ctx context.Context, input *RenameCoordinateInput) (*UpdateCoordinateOutput, error) {
	if input.UserID == "" {
		return nil, huma.Error400BadRequest("X-User-ID header is required")
	}

	res, err := h.registry.Rename(ctx, input.GuildID, input.UserID, input.Name, input.Body.NewName)
	if err != nil {
		return nil, h.mapUpdateError(err, "rename", input.GuildID, input.Name)
	}
	return updateOutput(res), nil
}

func (h *CoordinateHandler) Overwrite(ctx context.Context, input *OverwriteCoordinateInput) (*UpdateCoordinateOutput, error) {
	if input.UserID == "" {
		return nil, huma.Error400BadRequest("X-User-ID header is required")
	}

	res, err := h.registry.Overwrite(ctx, input.GuildID, input.UserID, input.Name,
		coordinate.Position(input.Body.Position), input.Body.Dimension)
	if err != nil {
		return nil, h.mapUpdateError(err, "overwrite", input.GuildID, input.Name)
	}
	return updateOutput(res), nil
}

func (h *CoordinateHandler) Delete(ctx context.Context, input *DeleteCoordinateInput) (*DeleteCoordinateOutput, error) {
	if input.UserID == "" {
		return nil, huma.Error400BadRequest("X-User-ID header is required")
	}

	res, err := h.registry.Delete(ctx, input.GuildID, input.UserID, input.Name)
	if err != nil {
		return nil, h.mapUpdateError(err, "delete", input.GuildID, input.Name)
	}

	if res.Selection != nil {
		sel := toSelectionResponse(*res.Selection)
		return &DeleteCoordinateOutput{
			Status: http.StatusMultipleChoices,
			Body:   DeleteCoordinateResponse{Outcome: "needs_selection", Selection: &sel},
		}, nil
	}
	return &DeleteCoordinateOutput{
		Status: http.StatusOK,
		Body:   DeleteCoordinateResponse{Outcome: "deleted", Deleted: res.Deleted},
	}, nil
}

func (h *CoordinateHandler) Clear(ctx context.Context, input *ClearGuildInput) (*ClearGuildOutput, error) {
	n, err := h.registry.ClearGuild(ctx, input.GuildID)
	if err != nil {
		h.logger.Error("failed to clear guild", "guild_id", input.GuildID, "error", err)
		return nil, huma.Error500InternalServerError("failed to clear guild coordinates")
	}

	out := &ClearGuildOutput{}
	out.Body.Deleted = n
	return out, nil
}

// mapUpdateError translates registry errors for rename/overwrite/delete into
// HTTP errors, logging only genuine upstream failures.
func (h *CoordinateHandler) mapUpdateError(err error, op, guildID, name string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return huma.Error404NotFound("no coordinate with that name")
	case errors.Is(err, registry.ErrDuplicateName):
		return huma.Error409Conflict("a coordinate with that name already exists")
	case errors.Is(err, coordinate.ErrInvalid):
		return huma.Error422UnprocessableEntity(err.Error())
	default:
		h.logger.Error("failed to "+op+" coordinate", "guild_id", guildID, "name", name, "error", err)
		return huma.Error500InternalServerError("failed to " + op + " coordinate")
	}
}

func updateOutput(res registry.UpdateResult) *UpdateCoordinateOutput {
	if res.Selection != nil {
		sel := toSelectionResponse(*res.Selection)
		return &UpdateCoordinateOutput{
			Status: http.StatusMultipleChoices,
			Body:   UpdateCoordinateResponse{Outcome: "needs_selection", Selection: &sel},
		}
	}
	rec := toRecordResponse(res.Record)
	return &UpdateCoordinateOutput{
		Status: http.StatusOK,
		Body:   UpdateCoordinateResponse{Outcome: "updated", Record: &rec},
	}
}

func toRecordResponse(rec coordinate.Record) RecordResponse {
	return RecordResponse{
		ID:        rec.ID,
		GuildID:   rec.GuildID,
		Name:      rec.Name,
		Position:  PositionBody(rec.Position),
		Dimension: rec.Dimension,
		Author: AuthorBody{
			ID:        rec.Author.ID,
			Name:      rec.Author.Name,
			AvatarURL: rec.Author.AvatarURL,
		},
		CreatedAt: rec.CreatedAt,
	}
}

func toRecordResponses(recs []coordinate.Record) []RecordResponse {
	out := make([]RecordResponse, len(recs))
	for i, rec := range recs {
		out[i] = toRecordResponse(rec)
	}
	return out
}

func toSelectionResponse(sel registry.Selection) SelectionResponse {
	choices := make([]ChoiceResponse, len(sel.Candidates))
	for i, rec := range sel.Candidates {
		choices[i] = ChoiceResponse{ID: rec.ID, Label: rec.Label()}
	}
	return SelectionResponse{Token: sel.Token, ExpiresAt: sel.ExpiresAt, Choices: choices}
}

// Package api exposes HTTP handlers for the training service.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/richi-sixt/calisthenics-progression/internal/auth"
	"github.com/richi-sixt/calisthenics-progression/internal/domain"
)

// Services bundles the domain services the handlers dispatch to.
type Services struct {
	Users    *domain.UserService
	Social   *domain.SocialService
	Catalog  *domain.CatalogService
	Workouts *domain.WorkoutService
	Feed     *domain.FeedService
	Messages *domain.MessageService
}

// Handler coordinates HTTP requests with the domain services.
type Handler struct {
	services Services
	pageSize int
	logger   *zap.Logger
}

// NewHandler builds a Handler. pageSize is the default page size for listings.
func NewHandler(services Services, pageSize int, logger *zap.Logger) *Handler {
	return &Handler{services: services, pageSize: pageSize, logger: logger}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/workouts", h.workouts)
	mux.HandleFunc("/v1/workouts/", h.workoutByID)
	mux.HandleFunc("/v1/exercises", h.exercises)
	mux.HandleFunc("/v1/exercises/", h.exerciseSubtree)
	mux.HandleFunc("/v1/users/", h.userSubtree)
	mux.HandleFunc("/v1/messages", h.messages)
	mux.HandleFunc("/v1/messages/read", h.markMessagesRead)
	mux.HandleFunc("/v1/notifications", h.notifications)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) workouts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createWorkout(w, r)
	case http.MethodGet:
		h.listWorkouts(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) workoutByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/workouts/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getWorkout(w, r, id)
	case http.MethodDelete:
		h.deleteWorkout(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) createWorkout(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.authorize(w, r, auth.ScopeTrainingWrite)
	if !ok {
		return
	}

	var req CreateWorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	plans := make([]domain.ExercisePlan, 0, len(req.Exercises))
	for _, exercise := range req.Exercises {
		plans = append(plans, domain.ExercisePlan{
			DefinitionID: exercise.DefinitionID,
			SetValues:    exercise.Sets,
		})
	}

	workout, err := h.services.Workouts.Add(r.Context(), domain.AddWorkoutInput{
		OwnerID:   claims.Subject,
		Title:     req.Title,
		StartedAt: req.StartedAt,
		Exercises: plans,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	view := toWorkoutView(*workout)
	view.Owner = claims.Username
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) listWorkouts(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.authorize(w, r, auth.ScopeTrainingRead)
	if !ok {
		return
	}

	page := h.pageFrom(r)
	scope := r.URL.Query().Get("scope")
	if scope == "" {
		scope = "followed"
	}

	var workouts []domain.Workout
	var err error
	switch scope {
	case "mine":
		workouts, err = h.services.Workouts.ListByOwner(r.Context(), claims.Subject, page)
	case "followed":
		workouts, err = h.services.Social.FollowedWorkouts(r.Context(), claims.Subject, page)
	case "explore":
		workouts, err = h.services.Workouts.Explore(r.Context(), claims.Subject, page)
	default:
		writeError(w, http.StatusBadRequest, "validation_failed", "scope must be mine, followed, or explore")
		return
	}
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, WorkoutListResponse{
		Items: toWorkoutViews(workouts),
		Page:  page.Number,
	})
}

func (h *Handler) getWorkout(w http.ResponseWriter, r *http.Request, id string) {
	_, ok := h.authorize(w, r, auth.ScopeTrainingRead)
	if !ok {
		return
	}

	workout, err := h.services.Workouts.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkoutView(*workout))
}

func (h *Handler) deleteWorkout(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := h.authorize(w, r, auth.ScopeTrainingWrite)
	if !ok {
		return
	}

	if err := h.services.Workouts.Delete(r.Context(), claims.Subject, id); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) exercises(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createDefinition(w, r)
	case http.MethodGet:
		h.listDefinitions(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) exerciseSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/exercises/")
	parts := strings.Split(rest, "/")

	switch {
	case len(parts) == 1 && parts[0] == "selection":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
			return
		}
		h.definitionSelection(w, r)
	case len(parts) == 1 && parts[0] != "":
		h.definitionByID(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "copy":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
			return
		}
		h.copyDefinition(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "archive":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
			return
		}
		h.archiveDefinition(w, r, parts[0])
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
	}
}

func (h *Handler) definitionByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		h.getDefinition(w, r, id)
	case http.MethodPut:
		h.updateDefinition(w, r, id)
	case http.MethodDelete:
		h.deleteDefinition(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) createDefinition(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.authorize(w, r, auth.ScopeTrainingWrite)
	if !ok {
		return
	}

	var req CreateDefinitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	def, err := h.services.Catalog.CreateDefinition(r.Context(), claims.Subject, domain.DefinitionInput{
		Title:        req.Title,
		CountingType: domain.CountingType(req.CountingType),
		Description:  req.Description,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	view := toDefinitionView(*def)
	view.Owner = claims.Username
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) listDefinitions(w http.ResponseWriter, r *http.Request) {
	_, ok := h.authorize(w, r, auth.ScopeTrainingRead)
	if !ok {
		return
	}

	page := h.pageFrom(r)
	defs, err := h.services.Catalog.ListAll(r.Context(), page)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DefinitionListResponse{
		Items: toDefinitionViews(defs),
		Page:  page.Number,
	})
}

func (h *Handler) definitionSelection(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.authorize(w, r, auth.ScopeTrainingRead)
	if !ok {
		return
	}

	mineOnly := r.URL.Query().Get("scope") == "mine"
	catalog, err := h.services.Catalog.ListForUser(r.Context(), claims.Subject, mineOnly)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	resp := SelectionResponse{
		Mine:   toDefinitionViews(catalog.Mine),
		Others: make([]DefinitionGroupView, 0, len(catalog.Others)),
	}
	for _, group := range catalog.Others {
		resp.Others = append(resp.Others, DefinitionGroupView{
			Owner:       group.Owner,
			Definitions: toDefinitionViews(group.Definitions),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getDefinition(w http.ResponseWriter, r *http.Request, id string) {
	_, ok := h.authorize(w, r, auth.ScopeTrainingRead)
	if !ok {
		return
	}

	def, err := h.services.Catalog.GetDefinition(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDefinitionView(*def))
}

func (h *Handler) updateDefinition(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := h.authorize(w, r, auth.ScopeTrainingWrite)
	if !ok {
		return
	}

	var req UpdateDefinitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	def, err := h.services.Catalog.UpdateDefinition(r.Context(), claims.Subject, id, domain.UpdateDefinitionInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDefinitionView(*def))
}

func (h *Handler) archiveDefinition(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := h.authorize(w, r, auth.ScopeTrainingWrite)
	if !ok {
		return
	}

	archived := true
	var req ArchiveDefinitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if req.Archived != nil {
		archived = *req.Archived
	}

	def, err := h.services.Catalog.SetArchived(r.Context(), claims.Subject, id, archived)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDefinitionView(*def))
}

func (h *Handler) copyDefinition(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := h.authorize(w, r, auth.ScopeTrainingWrite)
	if !ok {
		return
	}

	def, err := h.services.Catalog.CopyDefinition(r.Context(), claims.Subject, id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	view := toDefinitionView(*def)
	view.Owner = claims.Username
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) deleteDefinition(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := h.authorize(w, r, auth.ScopeTrainingWrite)
	if !ok {
		return
	}

	if err := h.services.Catalog.DeleteDefinition(r.Context(), claims.Subject, id); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) userSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/users/")
	parts := strings.Split(rest, "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
			return
		}
		h.profile(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "follow":
		h.follow(w, r, parts[0])
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
	}
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request, username string) {
	claims, ok := h.authorize(w, r, auth.ScopeTrainingRead)
	if !ok {
		return
	}

	user, err := h.services.Users.GetByUsername(r.Context(), username)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	following, err := h.services.Social.IsFollowing(r.Context(), claims.Subject, user.ID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	page := h.pageFrom(r)
	workouts, err := h.services.Workouts.ListByOwner(r.Context(), user.ID, page)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ProfileResponse{
		Username:    user.Username,
		LastSeen:    user.LastSeen,
		IsFollowing: following,
		Workouts:    toWorkoutViews(workouts),
		Page:        page.Number,
	})
}

func (h *Handler) follow(w http.ResponseWriter, r *http.Request, username string) {
	claims, ok := h.authorize(w, r, auth.ScopeTrainingWrite)
	if !ok {
		return
	}

	var err error
	switch r.Method {
	case http.MethodPost:
		err = h.services.Social.Follow(r.Context(), claims.Subject, username)
	case http.MethodDelete:
		err = h.services.Social.Unfollow(r.Context(), claims.Subject, username)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) messages(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.sendMessage(w, r)
	case http.MethodGet:
		h.inbox(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.authorize(w, r, auth.ScopeTrainingWrite)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	message, err := h.services.Messages.Send(r.Context(), claims.Subject, req.Recipient, req.Body)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	view := toMessageView(*message)
	view.Sender = claims.Username
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) inbox(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.authorize(w, r, auth.ScopeTrainingRead)
	if !ok {
		return
	}

	page := h.pageFrom(r)
	messages, err := h.services.Messages.Inbox(r.Context(), claims.Subject, page)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	unread, err := h.services.Messages.UnreadCount(r.Context(), claims.Subject)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, InboxResponse{
		Items:       toMessageViews(messages),
		UnreadCount: unread,
		Page:        page.Number,
	})
}

func (h *Handler) markMessagesRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := h.authorize(w, r, auth.ScopeTrainingWrite)
	if !ok {
		return
	}

	if err := h.services.Messages.MarkRead(r.Context(), claims.Subject); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) notifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := h.authorize(w, r, auth.ScopeTrainingRead)
	if !ok {
		return
	}

	var since int64
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "validation_failed", "invalid since parameter")
			return
		}
		since = parsed
	}

	notifications, err := h.services.Feed.Since(r.Context(), claims.Subject, since)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toNotificationViews(notifications))
}

// authorize extracts claims and enforces the scope. Holding the write scope
// implies read access.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, scope string) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}

	allowed := claims.HasScope(scope)
	if !allowed && scope == auth.ScopeTrainingRead {
		allowed = claims.HasScope(auth.ScopeTrainingWrite)
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "forbidden", "scope "+scope+" required")
		return nil, false
	}
	return claims, true
}

func (h *Handler) pageFrom(r *http.Request) domain.Page {
	number := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			number = parsed
		}
	}
	return domain.NewPage(number, h.pageSize)
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var workoutErr *domain.WorkoutValidationError
	switch {
	case errors.As(err, &workoutErr):
		writeJSON(w, http.StatusBadRequest, WorkoutValidationPayload{
			Type:     "validation_failed",
			Detail:   workoutErr.Detail,
			Exercise: workoutErr.Exercise,
			Set:      workoutErr.Set,
		})
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, domain.ErrDuplicateTitle):
		writeError(w, http.StatusConflict, "duplicate_title", err.Error())
	case errors.Is(err, domain.ErrSelfCopy):
		writeError(w, http.StatusConflict, "self_copy", err.Error())
	case errors.Is(err, domain.ErrSelfFollow):
		writeError(w, http.StatusConflict, "self_follow", err.Error())
	case errors.Is(err, domain.ErrDefinitionInUse):
		writeError(w, http.StatusConflict, "definition_in_use", err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

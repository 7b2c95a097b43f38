package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"fitLadderAPI/middleware"
	"fitLadderAPI/services"
)

type LadderHandler struct {
	ladderService     *services.LadderService
	submissionService *services.SubmissionService
	userService       *services.UserService
}

func NewLadderHandler(ladderService *services.LadderService, submissionService *services.SubmissionService, userService *services.UserService) *LadderHandler {
	return &LadderHandler{
		ladderService:     ladderService,
		submissionService: submissionService,
		userService:       userService,
	}
}

func ladderParams(r *http.Request) (services.LadderParams, error) {
	q := r.URL.Query()
	params := services.LadderParams{
		Division: q.Get("division"),
		Project:  q.Get("project"),
		Tab:      q.Get("tab"),
		AgeGroup: q.Get("ageGroup"),
		Gender:   q.Get("gender"),
		Age:      q.Get("age"),
		Height:   q.Get("height"),
		Weight:   q.Get("weight"),
		Job:      q.Get("job"),
		Mode:     q.Get("mode"),
		Page:     1,
	}
	if p := q.Get("page"); p != "" {
		page, err := strconv.Atoi(p)
		if err != nil || page < 1 {
			return params, errors.New("page must be a positive integer")
		}
		params.Page = page
	}
	switch params.Tab {
	case "", services.TabTotal, services.TabWeekly, services.TabVerified:
	default:
		return params, errors.New("tab must be one of total, weekly, verified")
	}
	switch params.Mode {
	case "", services.ModePage, services.ModeContext:
	default:
		return params, errors.New("mode must be page or context")
	}
	return params, nil
}

func (h *LadderHandler) GetLadder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	params, err := ladderParams(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.ladderService.Load(ctx, clerkID, params)
	h.respondWithView(w, clerkID, view, err)
}

func (h *LadderHandler) RefreshLadder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	view, err := h.ladderService.Refresh(ctx, clerkID)
	h.respondWithView(w, clerkID, view, err)
}

func (h *LadderHandler) respondWithView(w http.ResponseWriter, clerkID string, view *services.LadderView, err error) {
	switch {
	case err == nil:
		respondWithJSON(w, http.StatusOK, view)
	case errors.Is(err, services.ErrSuperseded), errors.Is(err, services.ErrViewClosed):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrFetchFailed):
		log.Printf("Ladder Handler: fetch failed for %s: %v", clerkID, err)
		if view != nil {
			w.Header().Set("X-Ladder-Stale", "true")
			respondWithJSON(w, http.StatusOK, view)
			return
		}
		respondWithError(w, http.StatusServiceUnavailable, "Ladder is temporarily unavailable")
	default:
		log.Printf("Ladder Handler: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to load ladder")
	}
}

func (h *LadderHandler) CloseView(w http.ResponseWriter, r *http.Request) {
	clerkID, ok := middleware.GetClerkID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	h.ladderService.Close(clerkID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *LadderHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	if loc := requestLocation(r); loc != nil {
		if err := h.userService.SetTimezone(ctx, clerkID, loc); err != nil {
			log.Printf("Submit Handler: failed to set timezone for %s: %v", clerkID, err)
		}
	}

	outcome, err := h.submissionService.Submit(ctx, clerkID)
	if err != nil {
		log.Printf("Submit Handler: submission failed for %s: %v", clerkID, err)
		if errors.Is(err, services.ErrSubmissionWrite) {
			respondWithError(w, http.StatusBadGateway, "Failed to save your score, please try again")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to submit score")
		return
	}

	switch {
	case outcome.Accepted:
		respondWithJSON(w, http.StatusOK, outcome)
	case !outcome.Eligible:
		respondWithJSON(w, http.StatusUnprocessableEntity, outcome)
	default:
		respondWithJSON(w, http.StatusTooManyRequests, outcome)
	}
}

func (h *LadderHandler) SubmissionStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	if loc := requestLocation(r); loc != nil {
		if err := h.userService.SetTimezone(ctx, clerkID, loc); err != nil {
			log.Printf("SubmissionStatus Handler: failed to set timezone for %s: %v", clerkID, err)
		}
	}

	status, err := h.submissionService.Status(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, status)
}

// requestLocation reads the caller's IANA zone from X-Timezone.
func requestLocation(r *http.Request) *time.Location {
	name := r.Header.Get("X-Timezone")
	if name == "" {
		return nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("Ignoring invalid X-Timezone %q: %v", name, err)
		return nil
	}
	return loc
}

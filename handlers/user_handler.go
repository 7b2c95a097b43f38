package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"fitLadderAPI/internal/user"
	"fitLadderAPI/middleware"
	"fitLadderAPI/services"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	profile, err := h.userService.GetProfile(ctx, clerkID)
	if err != nil {
		log.Printf("GetProfile Handler: %v", err)
		respondWithError(w, http.StatusServiceUnavailable, "Profile is temporarily unavailable")
		return
	}

	respondWithJSON(w, http.StatusOK, profile)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req user.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if loc := requestLocation(r); loc != nil {
		if err := h.userService.SetTimezone(ctx, clerkID, loc); err != nil {
			log.Printf("UpdateProfile Handler: failed to set timezone for %s: %v", clerkID, err)
		}
	}

	profile, err := h.userService.UpdateProfile(ctx, clerkID, &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidProfile) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("UpdateProfile Handler: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	respondWithJSON(w, http.StatusOK, profile)
}

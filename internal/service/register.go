package service

import (
	"net/http"

	"github.com/TooLazyToCreate/counseling-service/internal/model"
)

type registerResponse struct {
	Message string           `json:"message"`
	User    model.PublicUser `json:"user"`
}

func (service *AuthService) HandleRegister(w http.ResponseWriter, req *http.Request) {
	var payload RegisterRequest
	if err := decodeJSON(w, req, &payload); err != nil {
		writeError(service.logger, w, req, err)
		return
	}

	user, err := service.Register(req.Context(), payload)
	if err != nil {
		writeError(service.logger, w, req, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		Message: "User registered successfully",
		User:    user.Public(),
	})
}

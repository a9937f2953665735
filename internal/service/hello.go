package service

import (
	"net/http"

	"github.com/TooLazyToCreate/counseling-service/internal/model"
)

type helloUser struct {
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

type helloResponse struct {
	Message string    `json:"message"`
	User    helloUser `json:"user"`
}

// HandleHello must be mounted behind RequireUser.
func (service *AuthService) HandleHello(w http.ResponseWriter, req *http.Request) {
	user, ok := UserFromContext(req.Context())
	if !ok {
		writeError(service.logger, w, req, ErrMissingToken)
		return
	}
	writeJSON(w, http.StatusOK, helloResponse{
		Message: "Hello, " + user.FullName + "!",
		User:    helloUser{Email: user.Email, Role: user.Role},
	})
}

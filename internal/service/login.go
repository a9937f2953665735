package service

import "net/http"

func (service *AuthService) HandleLogin(w http.ResponseWriter, req *http.Request) {
	var payload LoginRequest
	if err := decodeJSON(w, req, &payload); err != nil {
		writeError(service.logger, w, req, err)
		return
	}

	result, err := service.Login(req.Context(), payload)
	if err != nil {
		writeError(service.logger, w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

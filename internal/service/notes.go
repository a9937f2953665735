package service

import (
	"net/http"
	"strconv"

	"github.com/TooLazyToCreate/counseling-service/internal/model"
	"github.com/go-chi/chi/v5"
)

const NoteIDParam = "noteID"

/* All note handlers expect RequireUser in front of them */

func (service *NoteService) HandleCreate(w http.ResponseWriter, req *http.Request) {
	author, ok := UserFromContext(req.Context())
	if !ok {
		writeError(service.logger, w, req, ErrMissingToken)
		return
	}
	var payload NoteCreateRequest
	if err := decodeJSON(w, req, &payload); err != nil {
		writeError(service.logger, w, req, err)
		return
	}

	view, err := service.Create(req.Context(), author, payload)
	if err != nil {
		writeError(service.logger, w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (service *NoteService) HandleList(w http.ResponseWriter, req *http.Request) {
	reader, ok := UserFromContext(req.Context())
	if !ok {
		writeError(service.logger, w, req, ErrMissingToken)
		return
	}
	filter, err := noteFilterFromQuery(req)
	if err != nil {
		writeError(service.logger, w, req, err)
		return
	}

	views, err := service.List(req.Context(), reader, filter)
	if err != nil {
		writeError(service.logger, w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (service *NoteService) HandleGet(w http.ResponseWriter, req *http.Request) {
	reader, ok := UserFromContext(req.Context())
	if !ok {
		writeError(service.logger, w, req, ErrMissingToken)
		return
	}
	id, err := noteIDFromPath(req)
	if err != nil {
		writeError(service.logger, w, req, err)
		return
	}

	view, err := service.Get(req.Context(), reader, id)
	if err != nil {
		writeError(service.logger, w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (service *NoteService) HandleUpdate(w http.ResponseWriter, req *http.Request) {
	author, ok := UserFromContext(req.Context())
	if !ok {
		writeError(service.logger, w, req, ErrMissingToken)
		return
	}
	id, err := noteIDFromPath(req)
	if err != nil {
		writeError(service.logger, w, req, err)
		return
	}
	var payload NoteUpdateRequest
	if err = decodeJSON(w, req, &payload); err != nil {
		writeError(service.logger, w, req, err)
		return
	}

	view, err := service.Update(req.Context(), author, id, payload)
	if err != nil {
		writeError(service.logger, w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (service *NoteService) HandleDelete(w http.ResponseWriter, req *http.Request) {
	author, ok := UserFromContext(req.Context())
	if !ok {
		writeError(service.logger, w, req, ErrMissingToken)
		return
	}
	id, err := noteIDFromPath(req)
	if err != nil {
		writeError(service.logger, w, req, err)
		return
	}

	if err = service.Delete(req.Context(), author, id); err != nil {
		writeError(service.logger, w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Clinical note deleted successfully"})
}

func noteIDFromPath(req *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(req, NoteIDParam), 10, 64)
	if err != nil || id <= 0 {
		return 0, &ValidationError{Field: "note_id", Reason: "value is not a valid integer"}
	}
	return id, nil
}

/* patient_id=0 means no patient filter. Out-of-range limit and offset
 * are clamped by NoteService.List. */
func noteFilterFromQuery(req *http.Request) (model.NoteFilter, error) {
	query := req.URL.Query()
	filter := model.NoteFilter{
		Search: query.Get("search"),
		Limit:  DefaultNoteLimit,
	}

	if raw := query.Get("patient_id"); raw != "" {
		patientID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, &ValidationError{Field: "patient_id", Reason: "value is not a valid integer"}
		}
		if patientID != 0 {
			filter.PatientID = &patientID
		}
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return filter, &ValidationError{Field: "limit", Reason: "value is not a valid integer"}
		}
		filter.Limit = limit
	}
	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			return filter, &ValidationError{Field: "offset", Reason: "value is not a valid integer"}
		}
		filter.Offset = offset
	}
	return filter, nil
}

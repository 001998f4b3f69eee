package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
)

type errorResponse struct {
	Message string `json:"message"`
}

type validationErrorResponse struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

func writeJSON(w http.ResponseWriter, payload any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, errorResponse{Message: message}, code)
}

func writeValidationError(w http.ResponseWriter, err error) {
	res := validationErrorResponse{
		Message: "invalid request",
		Fields:  make(map[string]string),
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fieldErr := range ve {
			res.Fields[fieldErr.Field()] = fieldErr.Tag()
		}
	}
	writeJSON(w, res, http.StatusBadRequest)
}

package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-crm/internal/usecase"
)

const (
	maxBodyBytes = 1 << 20
	maxOffset    = math.MaxInt32
)

type successResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type errorBody struct {
	Code    string                    `json:"code"`
	Message string                    `json:"message"`
	Details []usecase.ValidationError `json:"details,omitempty"`
}

type errorResponse struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, successResponse{Success: true, Data: data})
}

func writeErrorResponse(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

// writeError maps usecase errors onto HTTP. Technical details are logged,
// never sent to the client.
func writeError(w http.ResponseWriter, log *zap.Logger, r *http.Request, err error) {
	var de *usecase.DomainError
	if errors.As(err, &de) {
		status := http.StatusBadRequest
		switch de.Code {
		case usecase.CodeNotFound:
			status = http.StatusNotFound
		case usecase.CodeConflict, usecase.CodeInvalidTransition, usecase.CodeArchived:
			status = http.StatusConflict
		case usecase.CodeValidation:
			status = http.StatusUnprocessableEntity
		}
		writeJSON(w, status, errorResponse{Error: errorBody{Code: de.Code, Message: de.Message, Details: de.Details}})
		return
	}

	code := usecase.CodeInternal
	var te *usecase.TechnicalError
	if errors.As(err, &te) {
		code = te.Code
	}
	log.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeErrorResponse(w, http.StatusInternalServerError, code, "internal server error")
}

// decodeJSON reads a JSON body into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "request body is required")
			return false
		}
		writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON", "invalid JSON: "+err.Error())
		return false
	}
	return true
}

func identity(r *http.Request) usecase.Identity {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		return usecase.Identity{}
	}
	return usecase.Identity{UserID: p.UserID, Email: p.Email, Name: p.Name}
}

func userID(r *http.Request) string {
	return identity(r).UserID
}

// queryList reads a multi-valued parameter given either repeated
// (?stage=A&stage=B) or comma separated (?stage=A,B).
func queryList(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.URL.Query()[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func queryInt(r *http.Request, key string) (int, bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, &usecase.DomainError{Code: usecase.CodeBadRequest, Message: key + " must be an integer"}
	}
	return n, true, nil
}

func queryBool(r *http.Request, key string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return b
}

// pagination resolves page/pageSize or limit/offset into limit and offset.
// offset wins when both styles are given; def is the caller's default size.
func pagination(r *http.Request, def int) (int, int, error) {
	limit, hasLimit, err := queryInt(r, "limit")
	if err != nil {
		return 0, 0, err
	}
	if !hasLimit {
		if limit, hasLimit, err = queryInt(r, "pageSize"); err != nil {
			return 0, 0, err
		}
	}
	if hasLimit && limit < 1 {
		return 0, 0, &usecase.DomainError{Code: usecase.CodeBadRequest, Message: "page size must be positive"}
	}
	if !hasLimit {
		limit = def
	}
	page := usecase.ResolvePage(limit, 0, def)

	offset, hasOffset, err := queryInt(r, "offset")
	if err != nil {
		return 0, 0, err
	}
	if hasOffset {
		if offset < 0 {
			return 0, 0, &usecase.DomainError{Code: usecase.CodeBadRequest, Message: "offset must not be negative"}
		}
		if offset > maxOffset {
			return 0, 0, &usecase.DomainError{Code: usecase.CodeBadRequest, Message: "offset is too large"}
		}
		return page.Limit, offset, nil
	}

	n, hasPage, err := queryInt(r, "page")
	if err != nil {
		return 0, 0, err
	}
	if hasPage {
		if n < 1 {
			return 0, 0, &usecase.DomainError{Code: usecase.CodeBadRequest, Message: "page must be at least 1"}
		}
		if n-1 > maxOffset/page.Limit {
			return 0, 0, &usecase.DomainError{Code: usecase.CodeBadRequest, Message: "page is too large"}
		}
		return page.Limit, (n - 1) * page.Limit, nil
	}
	return page.Limit, 0, nil
}

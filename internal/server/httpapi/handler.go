// Package httpapi serves the account operations over HTTP/JSON.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/dmitrijs2005/accountkeeper/internal/server/validation"
)

// Route paths.
const (
	RouteRegister = "/user/registerUser"
	RouteSignIn   = "/user/signIn"
	RouteFetch    = "/user/fetchUser"
	RouteUpdate   = "/user/updateUser"
)

// User-facing messages.
const (
	MsgRegistered        = "User registered successfully!"
	MsgLoggedIn          = "Logged in successfully"
	MsgFetched           = "User details fetched successfully!!"
	MsgUpdated           = "User details updated successfully!!"
	MsgUserNotFound      = "Unable to find the user with the given email-address!!"
	MsgBadCredentials    = "Unable to login with the given credentials!!"
	MsgLoginAgain        = "Please login again!!"
	MsgAlreadyRegistered = "User with the given email-address already exists!!"
	MsgMalformed         = "Request body should be a valid JSON object"
	MsgTooLarge          = "Request body is too large"
	MsgInternal          = "Something went wrong!!"
)

// AccountService is the set of account operations the handler exposes.
type AccountService interface {
	Register(ctx context.Context, p validation.Payload) error
	SignIn(ctx context.Context, p validation.Payload) (string, error)
	Fetch(ctx context.Context, p validation.Payload) (*models.PublicAccount, error)
	Update(ctx context.Context, p validation.Payload) error
}

type Handler struct {
	accounts AccountService
	logger   logging.Logger
}

func NewHandler(s AccountService, l logging.Logger) *Handler {
	return &Handler{accounts: s, logger: l.With("module", "httpapi")}
}

// Register adds the account routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST "+RouteRegister, h.registerUser)
	mux.HandleFunc("POST "+RouteSignIn, h.signIn)
	mux.HandleFunc("GET "+RouteFetch, h.fetchUser)
	mux.HandleFunc("PUT "+RouteUpdate, h.updateUser)
}

func (h *Handler) registerUser(w http.ResponseWriter, r *http.Request) {
	p, err := decodePayload(w, r)
	if err != nil {
		writeBodyError(w, err)
		return
	}

	if err := h.accounts.Register(r.Context(), p); err != nil {
		h.writeServiceError(r.Context(), w, RouteRegister, err)
		return
	}
	writeSuccess(w, MsgRegistered, nil)
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	p, err := decodePayload(w, r)
	if err != nil {
		writeBodyError(w, err)
		return
	}

	token, err := h.accounts.SignIn(r.Context(), p)
	if err != nil {
		h.writeServiceError(r.Context(), w, RouteSignIn, err)
		return
	}
	writeSuccess(w, MsgLoggedIn, token)
}

// fetchUser reads token and emailAddress from the body, falling back to
// the query string when the body carries neither.
func (h *Handler) fetchUser(w http.ResponseWriter, r *http.Request) {
	p, err := decodePayload(w, r)
	if err != nil {
		writeBodyError(w, err)
		return
	}
	if p.EmailAddress == nil && p.Token == nil {
		q := r.URL.Query()
		p = payloadFromValues(q.Get, q.Has)
	}

	account, err := h.accounts.Fetch(r.Context(), p)
	if err != nil {
		h.writeServiceError(r.Context(), w, RouteFetch, err)
		return
	}
	writeSuccess(w, MsgFetched, account)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	p, err := decodePayload(w, r)
	if err != nil {
		writeBodyError(w, err)
		return
	}

	if err := h.accounts.Update(r.Context(), p); err != nil {
		h.writeServiceError(r.Context(), w, RouteUpdate, err)
		return
	}
	writeSuccess(w, MsgUpdated, nil)
}

// writeServiceError writes exactly one response for err.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, route string, err error) {
	var verr *validation.Error

	switch {
	case errors.As(err, &verr):
		writeValidation(w, verr.Messages)
	case errors.Is(err, common.ErrorSessionExpired):
		writeError(w, http.StatusInternalServerError, MsgLoginAgain)
	case errors.Is(err, common.ErrorNotFound) && route == RouteSignIn:
		writeError(w, http.StatusNotFound, MsgUserNotFound)
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusInternalServerError, MsgUserNotFound)
	case errors.Is(err, common.ErrorInvalidCredentials):
		writeError(w, http.StatusBadRequest, MsgBadCredentials)
	case errors.Is(err, common.ErrorAlreadyExists):
		writeError(w, http.StatusInternalServerError, MsgAlreadyRegistered)
	default:
		h.logger.Error(ctx, "request failed", "route", route, "error", err)
		writeError(w, http.StatusInternalServerError, MsgInternal)
	}
}

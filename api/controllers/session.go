package controllers

import (
	"errors"
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/identity"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const signInFailedMessage = "Login failed. Please try again."

type sessionResponse struct {
	User     *identity.User `json:"user"`
	SignedIn bool           `json:"signedIn"`
	Loading  bool           `json:"loading"`
}

type signInRequest struct {
	IDToken   string `json:"idToken" validate:"required_without=ErrorCode"`
	ErrorCode string `json:"errorCode"`
}

// SessionCurrent reports who is signed in on the calling device.
func SessionCurrent(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dev, ok := requireDevice(w, r, logg)
		if !ok {
			return
		}
		user := dev.Identity.Current()
		responses.WriteSuccess(w, sessionResponse{
			User:     user,
			SignedIn: user != nil,
			Loading:  dev.Identity.Loading(),
		})
	}
}

// SessionSignIn exchanges the client's sign-in outcome for a device session.
// A dismissed popup is not an error.
func SessionSignIn(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dev, ok := requireDevice(w, r, logg)
		if !ok {
			return
		}

		var payload signInRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := dev.Identity.SignIn(r.Context(), identity.Credential{
			IDToken:   payload.IDToken,
			ErrorCode: payload.ErrorCode,
		})
		switch {
		case errors.Is(err, identity.ErrConfiguration):
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "identity provider is not configured"))
			return
		case err != nil:
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, signInFailedMessage))
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// SessionSignOut ends the device session. The cart falls back to the device's local cart.
func SessionSignOut(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dev, ok := requireDevice(w, r, logg)
		if !ok {
			return
		}
		if err := dev.Identity.SignOut(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign out failed"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "signed_out"})
	}
}

package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/internal/identity"
	"github.com/angelmondragon/storefront-backend/internal/storefront"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func requireDevice(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (*storefront.Device, bool) {
	dev := middleware.DeviceFromContext(r.Context())
	if dev == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "device context missing"))
		return nil, false
	}
	return dev, true
}

func requireUser(w http.ResponseWriter, r *http.Request, logg *logger.Logger, action string) (*storefront.Device, *identity.User, bool) {
	dev, ok := requireDevice(w, r, logg)
	if !ok {
		return nil, nil, false
	}
	user := dev.Identity.Current()
	if user == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to "+action))
		return nil, nil, false
	}
	return dev, user, true
}

package controllers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/internal/tracking"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func TrackingLookup(carrier tracking.Carrier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		number := tracking.NormalizeNumber(chi.URLParam(r, "trackingNumber"))
		if number == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "tracking number required"))
			return
		}

		timeline, err := carrier.Track(r.Context(), number)
		if err != nil {
			if errors.Is(err, tracking.ErrNotFound) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "Tracking number not found. Please check and try again."))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "track shipment"))
			return
		}
		responses.WriteSuccess(w, tracking.Normalize(timeline))
	}
}

package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func SearchHistoryList(history SearchHistory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dev, ok := requireDevice(w, r, logg)
		if !ok {
			return
		}
		recent, err := history.SearchHistory(r.Context(), dev.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load search history"))
			return
		}
		responses.WriteSuccess(w, map[string][]string{"history": recent})
	}
}

func SearchHistoryClear(history SearchHistory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dev, ok := requireDevice(w, r, logg)
		if !ok {
			return
		}
		if err := history.ClearSearchHistory(r.Context(), dev.ID); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear search history"))
			return
		}
		responses.WriteSuccess(w, map[string][]string{"history": {}})
	}
}

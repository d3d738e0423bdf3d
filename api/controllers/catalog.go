package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const maxSearchQueryLength = 100

// ProductCatalog is the read side of the product catalog.
type ProductCatalog interface {
	Get(id string) (*catalog.Product, error)
	Related(id string) ([]catalog.Product, error)
	Categories() []string
	List(input catalog.ListInput) catalog.ListResult
	Search(input catalog.SearchInput) []catalog.Product
}

// SearchHistory is the per-device list of recent queries.
type SearchHistory interface {
	SearchHistory(ctx context.Context, deviceID string) ([]string, error)
	RecordSearch(ctx context.Context, deviceID, query string) ([]string, error)
	ClearSearchHistory(ctx context.Context, deviceID string) error
}

var (
	listSorts = map[string]bool{
		catalog.SortRelevance: true,
		catalog.SortPriceLow:  true,
		catalog.SortPriceHigh: true,
		catalog.SortNewest:    true,
		catalog.SortDiscount:  true,
	}
	searchSorts = map[string]bool{
		catalog.SortRelevance: true,
		catalog.SortPriceLow:  true,
		catalog.SortPriceHigh: true,
		catalog.SortName:      true,
	}
)

type productDetailResponse struct {
	Product catalog.Product   `json:"product"`
	Related []catalog.Product `json:"related"`
}

type searchResponse struct {
	Query   string            `json:"query"`
	Results []catalog.Product `json:"results"`
	Count   int               `json:"count"`
	History []string          `json:"history,omitempty"`
}

func ProductsList(products ProductCatalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category, sortBy, err := categoryAndSort(r, listSorts)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := validators.ParseQueryInt(r, "page", 1, 1, 10000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products.List(catalog.ListInput{Category: category, Sort: sortBy, Page: page}))
	}
}

// ProductsSearch runs a catalog search. Callers that send X-Device-Id get the
// query recorded in their search history.
func ProductsSearch(products ProductCatalog, history SearchHistory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		query := validators.SanitizeString(r.URL.Query().Get("q"), maxSearchQueryLength)
		category, sortBy, err := categoryAndSort(r, searchSorts)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		minPrice, err := validators.ParseOptionalQueryInt64(r, "min_price", 0)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		maxPrice, err := validators.ParseOptionalQueryInt64(r, "max_price", 0)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if minPrice != nil && maxPrice != nil && *minPrice > *maxPrice {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "min_price must not exceed max_price"))
			return
		}

		results := products.Search(catalog.SearchInput{
			Query:    query,
			Category: category,
			MinPrice: minPrice,
			MaxPrice: maxPrice,
			Sort:     sortBy,
		})
		resp := searchResponse{Query: query, Results: results, Count: len(results)}

		if deviceID := middleware.RequestDeviceID(r); deviceID != "" && query != "" && history != nil {
			recent, err := history.RecordSearch(ctx, deviceID, query)
			if err != nil {
				if logg != nil {
					logCtx := logg.WithField(logg.WithDeviceID(ctx, deviceID), "error", err.Error())
					logg.Warn(logCtx, "catalog.search_history_write_failed")
				}
			} else {
				resp.History = recent
			}
		}

		responses.WriteSuccess(w, resp)
	}
}

func ProductDetail(products ProductCatalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "productId")
		product, err := products.Get(id)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
				return
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		related, err := products.Related(product.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, productDetailResponse{Product: *product, Related: related})
	}
}

func Categories(products ProductCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string][]string{"categories": products.Categories()})
	}
}

func categoryAndSort(r *http.Request, allowed map[string]bool) (string, string, error) {
	query := r.URL.Query()
	category := strings.TrimSpace(query.Get("category"))
	if category == "" {
		category = catalog.CategoryAll
	}
	sortBy := strings.TrimSpace(query.Get("sort"))
	if sortBy == "" {
		sortBy = catalog.SortRelevance
	}
	if !allowed[sortBy] {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "unsupported sort order").
			WithDetails(map[string]any{"field": "sort", "value": sortBy})
	}
	return category, sortBy, nil
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/internal/storefront"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	DeviceIDHeader    = "X-Device-Id"
	maxDeviceIDLength = 64
)

type deviceResolver interface {
	Get(ctx context.Context, deviceID string) (*storefront.Device, error)
}

// Device resolves X-Device-Id into the device's identity and cart containers.
// A missing header mints a new id, which is echoed back so the client can keep it.
func Device(devices deviceResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			deviceID := strings.TrimSpace(r.Header.Get(DeviceIDHeader))
			if deviceID == "" {
				deviceID = uuid.NewString()
			} else if !validDeviceID(deviceID) {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid X-Device-Id header"))
				return
			}
			w.Header().Set(DeviceIDHeader, deviceID)

			if logg != nil {
				ctx = logg.WithDeviceID(ctx, deviceID)
			}

			dev, err := devices.Get(ctx, deviceID)
			if err != nil {
				code := pkgerrors.CodeInternal
				if errors.Is(err, storefront.ErrClosed) {
					code = pkgerrors.CodeDependency
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(code, err, "resolve device"))
				return
			}

			select {
			case <-dev.Identity.Ready():
			case <-ctx.Done():
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "identity not ready"))
				return
			}

			ctx = WithDevice(ctx, dev)
			if user := dev.Identity.Current(); user != nil {
				ctx = WithUserID(ctx, user.ID)
				if logg != nil {
					ctx = logg.WithUserID(ctx, user.ID)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestDeviceID returns the caller's device id on routes that do not
// require one, or "" when the header is absent or malformed.
func RequestDeviceID(r *http.Request) string {
	if id := DeviceIDFromContext(r.Context()); id != "" {
		return id
	}
	id := strings.TrimSpace(r.Header.Get(DeviceIDHeader))
	if !validDeviceID(id) {
		return ""
	}
	return id
}

func validDeviceID(id string) bool {
	if id == "" || len(id) > maxDeviceIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

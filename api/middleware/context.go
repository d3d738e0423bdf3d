package middleware

import (
	"context"

	"github.com/angelmondragon/storefront-backend/internal/storefront"
)

type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxDeviceID contextKey = "device_id"
	ctxDevice   contextKey = "device"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func DeviceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxDeviceID).(string); ok {
		return v
	}
	return ""
}

// DeviceFromContext returns the containers resolved by the Device middleware.
func DeviceFromContext(ctx context.Context) *storefront.Device {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxDevice).(*storefront.Device); ok {
		return v
	}
	return nil
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithDevice injects the device and its id for downstream handlers.
func WithDevice(ctx context.Context, dev *storefront.Device) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if dev == nil {
		return ctx
	}
	ctx = context.WithValue(ctx, ctxDeviceID, dev.ID)
	return context.WithValue(ctx, ctxDevice, dev)
}

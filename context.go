package authcore

import "context"

type contextKey uint8

const (
	ctxKeyClientIP contextKey = iota
	ctxKeyDevice
)

// WithClientIP attaches the caller's IP address to ctx for the default
// device locator.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyClientIP, ip)
}

// WithDevice attaches a device label to ctx for the default device locator.
func WithDevice(ctx context.Context, device string) context.Context {
	return context.WithValue(ctx, ctxKeyDevice, device)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ip, _ := ctx.Value(ctxKeyClientIP).(string)
	return ip
}

func deviceFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	device, _ := ctx.Value(ctxKeyDevice).(string)
	return device
}

// contextLocator is the fallback DeviceLocator used when the host wires no
// locator of its own. It reads what WithClientIP/WithDevice attached and
// reports unknown locations without failing the sign-in.
type contextLocator struct{}

func (contextLocator) CurrentDevice(ctx context.Context) string {
	if device := deviceFromContext(ctx); device != "" {
		return device
	}
	return "unknown"
}

func (contextLocator) CurrentIP(ctx context.Context) string {
	return clientIPFromContext(ctx)
}

func (contextLocator) LocationForIP(context.Context, string) (string, string) {
	return "", ""
}

package page

import "context"

// Driver manages browser pages. The actual automation engine (element
// location, input synthesis, rendering) lives behind this port and is
// supplied by the embedding application.
type Driver interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is the capability surface the recorder consumes. Refs are opaque
// element handles minted by the driver (typically snapshot node ids).
type Page interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, ref string) error
	Fill(ctx context.Context, ref, value string) error
	SelectOption(ctx context.Context, ref string, values []string) error
	PressKey(ctx context.Context, key string) error
	Hover(ctx context.Context, ref string) error
	Drag(ctx context.Context, fromRef, toRef string) error
	Upload(ctx context.Context, ref string, paths []string) error
	Scroll(ctx context.Context, deltaX, deltaY int) error
	Screenshot(ctx context.Context) ([]byte, error)
	Snapshot(ctx context.Context) (string, error)
	URL() string
	Title() string
	BringToFront(ctx context.Context) error
	Close() error
}

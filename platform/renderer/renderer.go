// Package renderer abstracts the headless-browser screenshot service used to
// produce the invitation preview image.
package renderer

// Service renders the page at the given URL into a JPEG of the invitation
// frame, waiting for fonts and images to settle.
type Service interface {
	Render(url string) ([]byte, error)
}

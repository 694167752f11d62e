//go:build !dlib

package recognition

// NewDlib always fails in builds without dlib support.
func NewDlib(modelsDir string) (Recognizer, error) {
	_ = modelsDir
	return nil, ErrDlibUnavailable
}

package compositor

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
)

// Sequence holds the PNG bytes of every frame, indexed by frame number.
type Sequence [][]byte

func (s Sequence) Len() int {
	return len(s)
}

func (s Sequence) Frame(i int) []byte {
	return s[i]
}

// Images decodes every frame back into an image.
func (s Sequence) Images() ([]image.Image, error) {
	imgs := make([]image.Image, len(s))
	for i, b := range s {
		img, err := png.Decode(bytes.NewReader(b))
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		imgs[i] = img
	}
	return imgs, nil
}

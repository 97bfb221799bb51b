package cv

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/ayusman/touchless/internal/capture"
)

var _ capture.Encoder = EncodeJPEG

// ToMat converts a frame into an OpenCV Mat. The caller must close it.
func ToMat(f *capture.Frame) (gocv.Mat, error) {
	if !f.Valid() {
		return gocv.NewMat(), fmt.Errorf("invalid frame %dx%dx%d", f.Width, f.Height, f.Channels)
	}

	var typ gocv.MatType
	switch f.Channels {
	case 1:
		typ = gocv.MatTypeCV8UC1
	case 3:
		typ = gocv.MatTypeCV8UC3
	case 4:
		typ = gocv.MatTypeCV8UC4
	default:
		return gocv.NewMat(), fmt.Errorf("unsupported channel count %d", f.Channels)
	}

	return gocv.NewMatFromBytes(f.Height, f.Width, typ, f.Pix)
}

// EncodeJPEG encodes a frame as JPEG.
func EncodeJPEG(f *capture.Frame) ([]byte, error) {
	mat, err := ToMat(f)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

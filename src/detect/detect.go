// Package detect locates the text sub-region of a captured screenshot so
// OCR runs on a tight crop instead of the whole capture.
package detect

import (
	"image"

	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

const (
	mserMargin    = 10
	contourMargin = 5
	minBoxWidth   = 50
	minBoxHeight  = 20
)

// TextRegion returns the bounding box of the detected text area, or nil
// when neither detection stage finds anything (callers then use the full
// image). Stage one is MSER blob detection; stage two is Canny edges with
// a morphological close and external contours.
func TextRegion(img image.Image) *image.Rectangle {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		zap.S().Warnf("Text region detection skipped, image conversion failed: %v", err)
		return nil
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorRGBToGray)

	bounds := img.Bounds()

	if r := mserRegion(gray, bounds); r != nil {
		zap.S().Debugf("MSER detected text region: %v", *r)
		return r
	}
	if r := contourRegion(gray, bounds); r != nil {
		zap.S().Debugf("Contour detection found text region: %v", *r)
		return r
	}

	zap.S().Debug("No text region detected, using full capture")
	return nil
}

func mserRegion(gray gocv.Mat, bounds image.Rectangle) *image.Rectangle {
	mser := gocv.NewMSER()
	defer mser.Close()

	_, boxes := mser.DetectRegions(gray)
	if len(boxes) == 0 {
		return nil
	}

	union := boxes[0]
	for _, b := range boxes[1:] {
		union = union.Union(b)
	}
	r := pad(union, mserMargin, bounds)
	return &r
}

func contourRegion(gray gocv.Mat, bounds image.Rectangle) *image.Rectangle {
	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, 50, 150)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
	defer kernel.Close()
	gocv.MorphologyEx(edges, &edges, gocv.MorphClose, kernel)

	contours := gocv.FindContours(edges, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()
	if contours.Size() == 0 {
		return nil
	}

	largestIdx := 0
	largestArea := 0.0
	for i := 0; i < contours.Size(); i++ {
		if area := gocv.ContourArea(contours.At(i)); area > largestArea {
			largestArea = area
			largestIdx = i
		}
	}

	box := gocv.BoundingRect(contours.At(largestIdx))
	if box.Dx() <= minBoxWidth || box.Dy() <= minBoxHeight {
		return nil
	}
	r := pad(box, contourMargin, bounds)
	return &r
}

func pad(r image.Rectangle, margin int, bounds image.Rectangle) image.Rectangle {
	padded := image.Rect(r.Min.X-margin, r.Min.Y-margin, r.Max.X+margin, r.Max.Y+margin)
	// Detection runs on an origin-normalized copy of the capture.
	return padded.Intersect(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
}

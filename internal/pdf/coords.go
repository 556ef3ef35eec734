package pdf

// FlipY converts a y coordinate from the stored top-left-origin convention
// into PDF user space, whose origin is the bottom-left corner of the page.
// y is the distance from the top of the page to the top edge of the box;
// the result is the distance from the bottom of the page to the bottom edge
// of the box. A sign error here places the signature visibly wrong rather
// than crashing, hence the fixed-pair tests.
func FlipY(pageHeight, y, height float64) float64 {
	return pageHeight - y - height
}

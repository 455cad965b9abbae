// Package transform holds the arithmetic of a reframe run: target dimensions
// for partial width/height requests, the canvas that encloses a rotated image
// together with the affine that draws it, and the decision whether a file is
// already in its requested state.
//
// Everything here is pure; callers supply decoded dimensions and get values
// back, no pixels are touched.
package transform

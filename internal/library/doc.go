// Package library is the file-backed config store for stories and video
// configs.
//
// Each record is one JSON file in its directory; the file name (minus the
// .json extension) is the record name. Records are written atomically.
// Resolve turns a story plus a video config into a render.Job, which is the
// only thing the render controller ever sees.
package library

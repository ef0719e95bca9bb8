// Package media holds source classification, PCM audio containers, and the
// ffmpeg normalization step shared by the fetch pipeline and fingerprinting.
package media

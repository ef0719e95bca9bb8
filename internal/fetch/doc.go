// Package fetch acquires remote audio over HTTP or via yt-dlp, normalizes it
// to canonical mono PCM, and enforces size and duration ceilings.
package fetch

// Package media defines the media kinds ("lots") shared by catalog providers,
// the matcher, and cached search results.
package media

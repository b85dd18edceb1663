package photos

import (
	"fmt"
	"net/url"
)

const (
	// DefaultBaseURL is the base URL of the remote library API
	DefaultBaseURL = "https://photoslibrary.googleapis.com"

	// MediaItemsEndpoint lists the user's library page by page
	MediaItemsEndpoint = "/v1/mediaItems"

	// MediaItemsSearchEndpoint searches media items scoped to an album
	MediaItemsSearchEndpoint = "/v1/mediaItems:search"

	// AlbumsEndpoint lists the user's albums page by page
	AlbumsEndpoint = "/v1/albums"

	// MaxPageSize is the largest page the listing endpoints accept
	MaxPageSize = 100
)

// ListMediaItemsURL constructs the URL for one page of the library listing
func ListMediaItemsURL(baseURL string, pageSize int, pageToken string) string {
	params := url.Values{}
	params.Set("pageSize", fmt.Sprintf("%d", clampPageSize(pageSize)))
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}
	return fmt.Sprintf("%s%s?%s", baseURL, MediaItemsEndpoint, params.Encode())
}

// ListAlbumsURL constructs the URL for one page of the albums listing
func ListAlbumsURL(baseURL string, pageSize int, pageToken string) string {
	params := url.Values{}
	params.Set("pageSize", fmt.Sprintf("%d", clampPageSize(pageSize)))
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}
	return fmt.Sprintf("%s%s?%s", baseURL, AlbumsEndpoint, params.Encode())
}

// SearchMediaItemsURL constructs the URL of the in-album search call;
// the album id and page token travel in the request body
func SearchMediaItemsURL(baseURL string) string {
	return baseURL + MediaItemsSearchEndpoint
}

// DownloadURL builds the byte-source URL for a full media item. The "=d"
// suffix requests original bytes; videos need the "=dv" variant.
func DownloadURL(baseURL string, isVideo bool) string {
	if isVideo {
		return baseURL + "=dv"
	}
	return baseURL + "=d"
}

// ThumbnailURL builds the byte-source URL for a bounded thumbnail.
// Thumbnails are always static images; for videos the "-no" suffix
// suppresses the play-button overlay baked into the default rendition.
func ThumbnailURL(baseURL string, width, height int, isVideo bool) string {
	u := fmt.Sprintf("%s=w%d-h%d", baseURL, width, height)
	if isVideo {
		u += "-no"
	}
	return u
}

func clampPageSize(pageSize int) int {
	if pageSize <= 0 {
		return 1
	}
	if pageSize > MaxPageSize {
		return MaxPageSize
	}
	return pageSize
}

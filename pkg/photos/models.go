package photos

// MediaItem represents a single remote media item (photo or video)
type MediaItem struct {
	ID            string        `json:"id"`
	ProductURL    string        `json:"productUrl"`
	BaseURL       string        `json:"baseUrl"`
	MimeType      string        `json:"mimeType"`
	Filename      string        `json:"filename"`
	MediaMetadata MediaMetadata `json:"mediaMetadata"`
}

// MediaMetadata carries the metadata block of a media item. Width and
// height are transmitted as decimal strings by the remote API.
type MediaMetadata struct {
	CreationTime string         `json:"creationTime"`
	Width        string         `json:"width"`
	Height       string         `json:"height"`
	Photo        *PhotoMetadata `json:"photo,omitempty"`
	Video        *VideoMetadata `json:"video,omitempty"`
}

// PhotoMetadata is present for photo items
type PhotoMetadata struct {
	CameraMake      string  `json:"cameraMake"`
	CameraModel     string  `json:"cameraModel"`
	FocalLength     float64 `json:"focalLength"`
	ApertureFNumber float64 `json:"apertureFNumber"`
	ISOEquivalent   int     `json:"isoEquivalent"`
}

// VideoMetadata is present for video items; Status is "READY" once the
// remote side has finished processing the upload
type VideoMetadata struct {
	FPS    float64 `json:"fps"`
	Status string  `json:"status"`
}

// VideoReady is the processing status a video must reach before its
// bytes can be fetched
const VideoReady = "READY"

// Album represents a remote album
type Album struct {
	ID                    string `json:"id"`
	Title                 string `json:"title"`
	ProductURL            string `json:"productUrl"`
	CoverPhotoMediaItemID string `json:"coverPhotoMediaItemId"`
	MediaItemsCount       string `json:"mediaItemsCount"`
}

// MediaItemsResponse is the response shape shared by the library listing
// and the in-album search. A nil MediaItems slice means the collection
// field was absent from the response, which callers treat as invalid.
type MediaItemsResponse struct {
	MediaItems    []MediaItem `json:"mediaItems"`
	NextPageToken string      `json:"nextPageToken"`
}

// AlbumsResponse is the response shape of the albums listing
type AlbumsResponse struct {
	Albums        []Album `json:"albums"`
	NextPageToken string  `json:"nextPageToken"`
}

// searchRequest is the body of the in-album search call
type searchRequest struct {
	AlbumID   string `json:"albumId"`
	PageSize  int    `json:"pageSize"`
	PageToken string `json:"pageToken,omitempty"`
}

// IsVideo reports whether the item is a video based on its mime type
func (m *MediaItem) IsVideo() bool {
	return mimePrefix(m.MimeType) == "video"
}

// Type returns the item's coarse type ("image" or "video"), the part of
// the mime type before the slash
func (m *MediaItem) Type() string {
	return mimePrefix(m.MimeType)
}

func mimePrefix(mimeType string) string {
	for i := 0; i < len(mimeType); i++ {
		if mimeType[i] == '/' {
			return mimeType[:i]
		}
	}
	return mimeType
}

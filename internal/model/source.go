package model

// MediaSource is where the bytes of a media item come from:
// either a BufferSource received with the request or a RemoteSource to download.
type MediaSource interface {
	isMediaSource()
}

type BufferSource struct {
	Data     []byte
	MimeType string
	Filename string
}

type RemoteSource struct {
	URL string
}

func (BufferSource) isMediaSource() {}
func (RemoteSource) isMediaSource() {}

// MediaSpec is one item of a submitted batch.
type MediaSpec struct {
	Kind          MediaKind
	Source        MediaSource
	OrderPosition int
	Description   *string
}

// ResolvedMedia is a source normalised to bytes ready for upload.
type ResolvedMedia struct {
	Data     []byte
	MimeType string
	Filename string
}

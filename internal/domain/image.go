package domain

// GenerateRequest is the input to an image generation upstream.
type GenerateRequest struct {
	Prompt string
	Model  string
	Size   string
	Style  string
}

// GeneratedImage is one result returned by an image upstream: either a URL
// to fetch or inline bytes.
type GeneratedImage struct {
	URL           string
	Data          []byte
	RevisedPrompt string
}

// StoredImage is an image persisted in owned storage.
type StoredImage struct {
	URL         string `json:"url"`
	StoragePath string `json:"storagePath"`
}

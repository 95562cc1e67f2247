package imaging

import "encoding/base64"

// Format enum, nilainya sama dengan nama dari image.Decode
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// AllowedExtensions is the upload allow-list, without the leading dot.
var AllowedExtensions = []string{"png", "jpg", "jpeg"}

// UploadedImage is a validated, decoded upload. It lives for one request.
type UploadedImage struct {
	Filename string
	Format   Format
	Data     []byte
	Width    int
	Height   int
}

func (u *UploadedImage) MIMEType() string {
	return "image/" + string(u.Format)
}

// DataURL encodes the raw upload bytes as a base64 data URL.
func (u *UploadedImage) DataURL() string {
	return "data:" + u.MIMEType() + ";base64," + base64.StdEncoding.EncodeToString(u.Data)
}

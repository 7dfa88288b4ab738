package provider

type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

type Image struct {
	MimeType   string
	Base64Data string
}

func (i Image) DataURI() string {
	return "data:" + i.MimeType + ";base64," + i.Base64Data
}

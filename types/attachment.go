package types

var DENIED_EXTENSIONS = map[string]string{"ade": "ade", "adp": "adp", "apk": "apk", "appx": "appx", "appxbundle": "appxbundle", "bat": "bat", "cab": "cab", "chm": "chm", "cmd": "cmd", "com": "com", "cpl": "cpl", "dll": "dll", "dmg": "dmg", "ex": "ex", "ex_": "ex_", "exe": "exe", "hta": "hta", "ins": "ins", "isp": "isp", "iso": "iso", "jar": "jar", "js": "js", "jse": "jse", "lib": "lib", "lnk": "lnk", "mde": "mde", "msc": "msc", "msi": "msi", "msix": "msix", "msixbundle": "msixbundle", "msp": "msp", "mst": "mst", "nsh": "nsh", "pif": "pif", "ps1": "ps1", "scr": "scr", "sct": "sct", "shb": "shb", "sys": "sys", "vb": "vb", "vbe": "vbe", "vbs": "vbs", "vxd": "vxd", "wsc": "wsc", "wsf": "wsf", "wsh": "wsh"}

// Attachment is the binary blob supplied with a message (not persisted as is)
type Attachment struct {
	Filename string `json:"filename"`
	Content  []byte `json:"content"`
}

// AttachmentRef points to an uploaded attachment. Immutable once created.
type AttachmentRef struct {
	StoragePath  string `json:"storagePath"`    // s3://bucket/key
	OriginalName string `json:"originalName"`   // filename as supplied by the sender
	MimeType     string `json:"mimeType"`       // detected content type
	Size         int64  `json:"size,omitempty"` // bytes
}

// AttachmentConstraints bound what the uploader accepts
type AttachmentConstraints struct {
	MaxSize      int64
	AllowedTypes []string // mime types, prefixes ending with "/" match a whole family (e.g. image/)
}

package static

import "path"

// extension -> content type, extensions are matched case-sensitively
var contentTypes = map[string]string{
	".html": "text/html",
	".txt":  "text/plain",
	".png":  "image/png",
	".gif":  "image/gif",
	".jpg":  "image/jpg",
	".css":  "text/css",
	".js":   "application/javascript",
}

// ContentTypeFromName infers the content type from the file extension.
// Unknown extensions are returned as is (".foo" -> ".foo"), no extension gives "".
func ContentTypeFromName(name string) string {
	ext := path.Ext(name)
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return ext
}

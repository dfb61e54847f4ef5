// Package media provides embedded metadata tools for images and videos.
//
// Tools:
//   - read-metadata: all tags of a file
//   - write-metadata: set tags; replacing a value needs overwrite=true and confirmation
//   - delete-metadata: remove tags after confirmation
//   - extract-thumbnail, extract-preview: save an embedded image atomically
//
// Paths are authorized by the same Authorizer as the filesystem tools. The Engine
// interface does the format work; ExifTool is the default engine.
package media

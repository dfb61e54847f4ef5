// Package filesystem provides policy-checked file system operations.
//
// This package is organized into specialized modules:
//   - files: move, copy, delete, rename
//   - links: hard links and symbolic links
//   - metadata: stat, chmod and directory size
//   - directory: list, create and delete directories
//   - batch: multi-item move, copy and delete with per-item error capture
//   - atomic: temp-file-and-rename writes used by every copy
//
// All operations:
//   - Authorize every path argument before touching the disk
//   - Default to overwrite=false and createDirs=true
//   - Return *fserrors.Error values with a closed set of kinds
//   - Route force-mode deletes through the confirmation guard
//
// Tool wiring lives in OperationsOps, DirectoryOps and BatchOps; Provider exposes
// them to the service registry.
//
// Example Usage:
//
//	ops := filesystem.NewOps(authorizer, guard, logger)
//	res, err := ops.Move(ctx, "/work/a.txt", "/work/sub/a.txt", filesystem.DefaultOptions())
package filesystem

package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/fsguard/internal/shared/fserrors"
)

// BatchOperationResult aggregates a batch. Every input produces exactly one entry in
// Results or Errors.
type BatchOperationResult struct {
	Operation    string   `json:"operation"`
	Results      []string `json:"results"`
	Errors       []string `json:"errors"`
	TotalCount   int      `json:"totalCount"`
	SuccessCount int      `json:"successCount"`
	ErrorCount   int      `json:"errorCount"`
}

func newBatchResult(operation string) *BatchOperationResult {
	return &BatchOperationResult{Operation: operation, Results: []string{}, Errors: []string{}}
}

func (b *BatchOperationResult) succeed(msg string) {
	b.Results = append(b.Results, msg)
	b.SuccessCount++
	b.TotalCount++
}

func (b *BatchOperationResult) fail(msg string) {
	b.Errors = append(b.Errors, msg)
	b.ErrorCount++
	b.TotalCount++
}

// Report renders the batch as a human-readable summary.
func (b *BatchOperationResult) Report() string {
	var sb strings.Builder
	marker := "✅"
	switch {
	case b.ErrorCount > 0 && b.SuccessCount == 0:
		marker = "❌"
	case b.ErrorCount > 0:
		marker = "⚠️"
	}
	fmt.Fprintf(&sb, "%s Batch %s: %d/%d succeeded, %d failed", marker, b.Operation, b.SuccessCount, b.TotalCount, b.ErrorCount)
	if len(b.Results) > 0 {
		fmt.Fprintf(&sb, "\n\nSucceeded (%d):", len(b.Results))
		for _, r := range b.Results {
			sb.WriteString("\n  ✓ " + r)
		}
	}
	if len(b.Errors) > 0 {
		fmt.Fprintf(&sb, "\n\nFailed (%d):", len(b.Errors))
		for _, e := range b.Errors {
			sb.WriteString("\n  ✗ " + e)
		}
	}
	return sb.String()
}

type transferFunc func(ctx context.Context, source, destination string, opts Options) (*OperationResult, error)

// BatchMove moves each source into the destination directory.
func (ops *FilesystemOps) BatchMove(ctx context.Context, sources []string, destination string, opts Options) (*BatchOperationResult, error) {
	return ops.batchTransfer(ctx, "move", sources, destination, opts, ops.Move)
}

// BatchCopy copies each source into the destination directory.
func (ops *FilesystemOps) BatchCopy(ctx context.Context, sources []string, destination string, opts Options) (*BatchOperationResult, error) {
	return ops.batchTransfer(ctx, "copy", sources, destination, opts, ops.Copy)
}

// batchTransfer validates the destination directory once, then runs op per item.
// An item failure is recorded and the batch moves on.
func (ops *FilesystemOps) batchTransfer(ctx context.Context, name string, sources []string, destination string, opts Options, op transferFunc) (*BatchOperationResult, error) {
	dst, err := ops.prepareBatchDestination(destination, opts.CreateDirs)
	if err != nil {
		return nil, err
	}

	result := newBatchResult(name)
	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			result.fail(fmt.Sprintf("%s: cancelled: %v", source, err))
			continue
		}
		target := filepath.Join(dst, filepath.Base(filepath.Clean(source)))
		if _, err := op(ctx, source, target, opts); err != nil {
			result.fail(err.Error())
			continue
		}
		result.succeed(source + " -> " + target)
	}

	ops.logBatch(result)
	return result, nil
}

func (ops *FilesystemOps) prepareBatchDestination(destination string, createDirs bool) (string, error) {
	dst, err := ops.Auth.Authorize(destination)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(dst)
	switch {
	case err == nil:
		if !info.IsDir() {
			return "", fserrors.New(fserrors.KindInvalidOperation, "destination is not a directory: "+dst).WithPath(dst)
		}
		return dst, nil
	case os.IsNotExist(err):
		if !createDirs {
			return "", fserrors.New(fserrors.KindFileNotFound,
				"destination directory does not exist: "+dst+" (set createDirs=true to create it)").WithPath(dst)
		}
		if err := os.MkdirAll(dst, 0o755); err != nil {
			return "", fserrors.FromOS("create directory", dst, err)
		}
		return dst, nil
	default:
		return "", fserrors.FromOS("stat", dst, err)
	}
}

// BatchDelete deletes files and empty directories. Before anything is removed the
// whole batch is scanned: one sensitive or read-only entry without force rejects the
// batch. With force, confirmation is requested once for the batch.
func (ops *FilesystemOps) BatchDelete(ctx context.Context, paths []string, force bool) (*BatchOperationResult, error) {
	var risky, authorized []string
	for _, p := range paths {
		target, err := ops.Auth.AuthorizeNoFollow(p)
		if err != nil {
			continue // reported per item below
		}
		authorized = append(authorized, target)
		if s := ops.Classifier.Classify(target); s.Risky() {
			risky = append(risky, fmt.Sprintf("%s (%s)", target, s.Reason))
		}
	}
	if len(risky) > 0 && !force {
		return nil, fserrors.Newf(fserrors.KindPermissionDenied,
			"batch contains sensitive or read-only files, set force=true to delete them: %s", strings.Join(risky, ", ")).
			WithDetail("sensitive", risky)
	}
	if force && len(authorized) > 0 {
		desc := fmt.Sprintf("force delete of %d item(s)", len(authorized))
		if err := ops.Guard.AuthorizeForce(ctx, desc, authorized); err != nil {
			return nil, err
		}
	}

	result := newBatchResult("delete")
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			result.fail(fmt.Sprintf("%s: cancelled: %v", p, err))
			continue
		}
		target, err := ops.deleteEntry(p)
		if err != nil {
			result.fail(err.Error())
			continue
		}
		result.succeed("deleted: " + target)
	}

	ops.logBatch(result)
	return result, nil
}

// deleteEntry removes a file, link or empty directory without further checks.
func (ops *FilesystemOps) deleteEntry(path string) (string, error) {
	target, err := ops.Auth.AuthorizeNoFollow(path)
	if err != nil {
		return "", err
	}
	info, err := lstat(target)
	if err != nil {
		return "", err
	}
	if info == nil {
		return "", fserrors.New(fserrors.KindFileNotFound, "file not found: "+target).WithPath(target)
	}
	if info.IsDir() && ops.Policy().IsAllowedRoot(target) {
		return "", fserrors.New(fserrors.KindPermissionDenied, "cannot delete an allowed root directory: "+target).WithPath(target)
	}
	if err := os.Remove(target); err != nil {
		return "", fserrors.FromOS("delete", target, err)
	}
	return target, nil
}

func (ops *FilesystemOps) logBatch(r *BatchOperationResult) {
	ops.Logger.Info("Batch completed",
		zap.String("operation", r.Operation),
		zap.Int("total", r.TotalCount),
		zap.Int("succeeded", r.SuccessCount),
		zap.Int("failed", r.ErrorCount),
	)
	if ops.OnBatch != nil {
		ops.OnBatch(r.Operation, r.SuccessCount, r.ErrorCount)
	}
}

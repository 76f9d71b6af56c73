package directory

import (
	"context"
	"strings"

	"github.com/garyjia/personal-ledger/internal/application/port"
	"go.uber.org/zap"
)

// StaticDirectory is an approver directory backed by the configured admin list
type StaticDirectory struct {
	approvers []string
	index     map[string]struct{}
}

var _ port.ApproverDirectory = (*StaticDirectory)(nil)

// NewStaticDirectory creates a directory from ids. Blank and duplicate ids are skipped.
func NewStaticDirectory(ids []string, logger *zap.Logger) *StaticDirectory {
	d := &StaticDirectory{index: make(map[string]struct{}, len(ids))}
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, dup := d.index[id]; dup {
			continue
		}
		d.index[id] = struct{}{}
		d.approvers = append(d.approvers, id)
	}
	logger.Info("Approver directory loaded", zap.Int("approvers", len(d.approvers)))
	return d
}

// ListApprovers returns approver ids in configuration order
func (d *StaticDirectory) ListApprovers(_ context.Context) ([]string, error) {
	out := make([]string, len(d.approvers))
	copy(out, d.approvers)
	return out, nil
}

// IsApprover reports whether userID holds the approver capability
func (d *StaticDirectory) IsApprover(_ context.Context, userID string) (bool, error) {
	_, ok := d.index[userID]
	return ok, nil
}

package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/personal-ledger/internal/domain/entity"
)

// Column codecs shared by the repositories. Times are written in UTC so the
// text comparisons SQLite performs on DATETIME columns stay chronological.

func utc(t time.Time) time.Time {
	return t.UTC()
}

func nullTimeArg(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func nullInt64Arg(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func nullStringArg(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func encodeAttachments(attachments []entity.AttachmentMeta) (string, error) {
	if attachments == nil {
		attachments = []entity.AttachmentMeta{}
	}
	data, err := json.Marshal(attachments)
	if err != nil {
		return "", fmt.Errorf("failed to encode attachments: %w", err)
	}
	return string(data), nil
}

func decodeAttachments(raw string) ([]entity.AttachmentMeta, error) {
	attachments := []entity.AttachmentMeta{}
	if raw == "" {
		return attachments, nil
	}
	if err := json.Unmarshal([]byte(raw), &attachments); err != nil {
		return nil, fmt.Errorf("failed to decode attachments: %w", err)
	}
	return attachments, nil
}

// placeholders returns "?, ?, ?" for n arguments
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/readstatus/domain/entity"
	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/readstatus/domain/repository"

	"github.com/pkg/errors"
)

const basePath = "/api/document-read-status"

type readStatusAPIImpl struct {
	c *Client
}

func NewReadStatusAPI(c *Client) repository.ReadStatusAPI {
	return &readStatusAPIImpl{c: c}
}

func docPath(t entity.DocumentType, documentID int64, action string) string {
	return fmt.Sprintf("%s/%s/%d/%s", basePath, url.PathEscape(string(t)), documentID, action)
}

func typePath(t entity.DocumentType, action string) string {
	return fmt.Sprintf("%s/%s/%s", basePath, url.PathEscape(string(t)), action)
}

func (a *readStatusAPIImpl) MarkAsRead(ctx context.Context, documentID int64, t entity.DocumentType) error {
	return a.c.Post(ctx, docPath(t, documentID, "read"), nil, nil)
}

func (a *readStatusAPIImpl) MarkAsUnread(ctx context.Context, documentID int64, t entity.DocumentType) error {
	return a.c.Post(ctx, docPath(t, documentID, "unread"), nil, nil)
}

func (a *readStatusAPIImpl) IsRead(ctx context.Context, documentID int64, t entity.DocumentType) (bool, error) {
	var isRead bool
	if err := a.c.Get(ctx, docPath(t, documentID, "is-read"), &isRead); err != nil {
		return false, err
	}
	return isRead, nil
}

func (a *readStatusAPIImpl) BatchStatus(ctx context.Context, documentIDs []int64, t entity.DocumentType) (map[int64]bool, error) {
	var raw map[string]bool
	if err := a.c.Post(ctx, typePath(t, "batch-status"), documentIDs, &raw); err != nil {
		return nil, err
	}
	out := make(map[int64]bool, len(raw))
	for k, v := range raw {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "batch status: bad document id %q", k)
		}
		out[id] = v
	}
	return out, nil
}

func (a *readStatusAPIImpl) UnreadCount(ctx context.Context, t entity.DocumentType) (int, error) {
	var n int
	if err := a.c.Get(ctx, typePath(t, "unread-count"), &n); err != nil {
		return 0, err
	}
	return n, nil
}

func (a *readStatusAPIImpl) UnreadIDs(ctx context.Context, t entity.DocumentType) ([]int64, error) {
	var ids []int64
	if err := a.c.Get(ctx, typePath(t, "unread-ids"), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (a *readStatusAPIImpl) Readers(ctx context.Context, documentID int64, t entity.DocumentType) ([]entity.Reader, error) {
	var readers []entity.Reader
	if err := a.c.Get(ctx, docPath(t, documentID, "readers"), &readers); err != nil {
		return nil, err
	}
	return readers, nil
}

func (a *readStatusAPIImpl) Statistics(ctx context.Context, documentID int64, t entity.DocumentType) (*entity.Statistics, error) {
	var st entity.Statistics
	if err := a.c.Get(ctx, docPath(t, documentID, "statistics"), &st); err != nil {
		return nil, err
	}
	return &st, nil
}

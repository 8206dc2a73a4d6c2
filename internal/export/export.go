// Package export snapshots the account directory to object storage as
// JSON Lines, one public account view per line.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jjudge-oj/accountsvc/internal/storage"
	"github.com/jjudge-oj/accountsvc/types"
)

const (
	ContentType = "application/x-ndjson"
	// MetadataCount is the object metadata key holding the number of accounts.
	MetadataCount = "account-count"

	defaultPageSize = 500
)

// AccountLister pages through stored accounts.
type AccountLister interface {
	List(ctx context.Context, offset, limit int) ([]types.Account, int, error)
}

// Result describes a finished export.
type Result struct {
	Bucket string
	Key    string
	Count  int
	Bytes  int64
}

type Exporter struct {
	accounts AccountLister
	store    storage.ObjectStorage
	pageSize int
	now      func() time.Time
}

func New(accounts AccountLister, store storage.ObjectStorage) *Exporter {
	return &Exporter{
		accounts: accounts,
		store:    store,
		pageSize: defaultPageSize,
		now:      time.Now,
	}
}

// DefaultKey names an export after the UTC time it was taken.
func DefaultKey(at time.Time) string {
	return "accounts/" + at.UTC().Format("20060102T150405Z") + ".jsonl"
}

// Export writes every account to key, or to DefaultKey when key is empty.
// Accounts created while the export runs may or may not be included.
func (e *Exporter) Export(ctx context.Context, key string) (Result, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		key = DefaultKey(e.now())
	}

	if err := e.store.EnsureBucket(ctx); err != nil {
		return Result{}, fmt.Errorf("ensure bucket %s: %w", e.store.Bucket(), err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	count := 0
	for offset := 0; ; offset += e.pageSize {
		page, total, err := e.accounts.List(ctx, offset, e.pageSize)
		if err != nil {
			return Result{}, fmt.Errorf("list accounts: %w", err)
		}
		for _, account := range page {
			if err := enc.Encode(account.View()); err != nil {
				return Result{}, err
			}
		}
		count += len(page)
		if len(page) < e.pageSize || offset+len(page) >= total {
			break
		}
	}

	size := int64(buf.Len())
	opts := storage.PutOptions{
		ContentType: ContentType,
		Metadata:    map[string]string{MetadataCount: strconv.Itoa(count)},
	}
	if err := e.store.Put(ctx, key, &buf, size, opts); err != nil {
		return Result{}, fmt.Errorf("upload %s: %w", key, err)
	}

	return Result{
		Bucket: e.store.Bucket(),
		Key:    key,
		Count:  count,
		Bytes:  size,
	}, nil
}

// Load reads back an export written by Export.
func (e *Exporter) Load(ctx context.Context, key string) ([]types.AccountView, error) {
	r, err := e.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	defer r.Close()

	var views []types.AccountView
	dec := json.NewDecoder(r)
	for {
		var view types.AccountView
		err := dec.Decode(&view)
		if errors.Is(err, io.EOF) {
			return views, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", key, err)
		}
		views = append(views, view)
	}
}

package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/Phambanam99/qlvb-thanh-sub003/internal/modules/readstatus/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T, h http.HandlerFunc) *readStatusAPIImpl {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL+"/", 0, func() string { return "tok" })
	return NewReadStatusAPI(c).(*readStatusAPIImpl)
}

func TestMarkAsReadSendsBearer(t *testing.T) {
	seen := make(chan *http.Request, 1)
	a := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		seen <- r
		_, _ = w.Write([]byte(`{"message":"ok","data":null}`))
	})

	require.NoError(t, a.MarkAsRead(context.Background(), 5, entity.IncomingInternal))
	r := <-seen
	assert.Equal(t, "/api/document-read-status/INCOMING_INTERNAL/5/read", r.URL.Path)
	assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
	assert.Equal(t, http.MethodPost, r.Method)
}

func TestIsReadUnwrapsBothShapes(t *testing.T) {
	var wrapped atomic.Bool
	wrapped.Store(true)
	a := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if wrapped.Load() {
			_, _ = w.Write([]byte(`{"message":"ok","data":true}`))
			return
		}
		_, _ = w.Write([]byte(`true`))
	})

	v, err := a.IsRead(context.Background(), 1, entity.OutgoingExternal)
	require.NoError(t, err)
	assert.True(t, v)

	wrapped.Store(false)
	v, err = a.IsRead(context.Background(), 1, entity.OutgoingExternal)
	require.NoError(t, err)
	assert.True(t, v)
}

func TestBatchStatus(t *testing.T) {
	a := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var ids []int64
		assert.NoError(t, json.Unmarshal(body, &ids))
		assert.Equal(t, []int64{1, 2}, ids)
		assert.Equal(t, "/api/document-read-status/INCOMING_EXTERNAL/batch-status", r.URL.Path)
		_, _ = w.Write([]byte(`{"message":"ok","data":{"1":true,"2":false}}`))
	})

	got, err := a.BatchStatus(context.Background(), []int64{1, 2}, entity.IncomingExternal)
	require.NoError(t, err)
	assert.Equal(t, map[int64]bool{1: true, 2: false}, got)
}

func TestStatusError(t *testing.T) {
	a := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"Không có quyền"}`))
	})

	err := a.MarkAsUnread(context.Background(), 9, entity.OutgoingInternal)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
	assert.Equal(t, "Không có quyền", se.Message)
}

func TestStatisticsBareObject(t *testing.T) {
	a := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"totalReaders":4,"readCount":3,"unreadCount":1,"readPercentage":75}`))
	})

	st, err := a.Statistics(context.Background(), 3, entity.IncomingInternal)
	require.NoError(t, err)
	assert.Equal(t, 4, st.TotalReaders)
	assert.InDelta(t, 75.0, st.ReadPercentage, 0.001)
}

func TestUnreadCountAndIDs(t *testing.T) {
	a := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/document-read-status/INCOMING_INTERNAL/unread-count":
			_, _ = w.Write([]byte(`{"message":"ok","data":3}`))
		case "/api/document-read-status/INCOMING_INTERNAL/unread-ids":
			_, _ = w.Write([]byte(`[4,5,6]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	n, err := a.UnreadCount(context.Background(), entity.IncomingInternal)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	ids, err := a.UnreadIDs(context.Background(), entity.IncomingInternal)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 5, 6}, ids)
}

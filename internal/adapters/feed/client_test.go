package feed

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func serve(t *testing.T, handler fasthttp.RequestHandler) *Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	c, err := NewClient("http://feed.local/api/properties",
		WithDialer(func(addr string) (net.Conn, error) { return ln.Dial() }),
		WithTimeout(2*time.Second),
	)
	require.NoError(t, err)
	return c
}

func TestFetchRecords_DecodesLegacyRows(t *testing.T) {
	var gotLimit, gotPath string
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		gotPath = string(ctx.Path())
		gotLimit = string(ctx.QueryArgs().Peek("limit"))
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`[
			{"id":"1","title":"Casa","price":450000,"latitude":-23.55,"longitude":-46.63,"images":["/a.jpg"]},
			{"id":"2","title":"Apto","price":300000,"latitude":"-23.56","longitude":"-46.64","images":"[\"/b.jpg\"]"},
			{"id":"3","title":"Lote","price":90000,"latitude":null,"longitude":"abc","images":"https://x/y.jpg"}
		]`)
	})

	records, err := c.FetchRecords(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "/api/properties", gotPath)
	assert.Equal(t, "50", gotLimit)

	pos, ok := records[1].Position()
	require.True(t, ok)
	assert.InDelta(t, -23.56, pos.Lat, 1e-9)
	assert.Equal(t, []string{"/b.jpg"}, []string(records[1].Images))

	_, ok = records[2].Position()
	assert.False(t, ok)
	assert.Equal(t, "/placeholder-house.jpg", records[2].FirstImage())
}

func TestFetchRecords_HTTPError(t *testing.T) {
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
	})

	_, err := c.FetchRecords(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 503")
}

func TestFetchRecords_MalformedBody(t *testing.T) {
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString(`{"not":"an array"}`)
	})

	_, err := c.FetchRecords(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode feed")
}

func TestFetchRecords_ContextDeadline(t *testing.T) {
	c := serve(t, func(ctx *fasthttp.RequestCtx) {
		time.Sleep(300 * time.Millisecond)
		ctx.SetBodyString(`[]`)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.FetchRecords(ctx, 10)
	assert.Error(t, err)
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	_, err := NewClient("ftp://feed.local/x")
	assert.Error(t, err)
	_, err = NewClient("://bad")
	assert.Error(t, err)
}

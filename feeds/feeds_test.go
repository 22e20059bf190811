package feeds_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paragondesignz/spachat/assistant"
	"github.com/paragondesignz/spachat/feeds"
)

const productFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Products</title>
  <entry>
    <title>Cedar Hot Tub</title>
    <updated>2026-02-01T09:00:00+13:00</updated>
    <link rel="alternate" href="https://shop.example.com/products/cedar-hot-tub"/>
    <summary type="html">&lt;p&gt;Hand-built &amp;amp; insulated.&lt;/p&gt;&lt;script&gt;alert(1)&lt;/script&gt;</summary>
  </entry>
  <entry>
    <title>Sauna Kit</title>
    <updated>2026-02-02T09:00:00+13:00</updated>
    <link rel="alternate" href="https://shop.example.com/products/sauna-kit"/>
    <summary type="html">&lt;p&gt;Two person kit.&lt;/p&gt;</summary>
  </entry>
</feed>`

type recordingAssistant struct {
	files      []assistant.File
	uploaded   map[string][]byte
	deletedIDs []string
}

func (r *recordingAssistant) UploadFile(_ context.Context, name string, content []byte, _ string) (*assistant.File, error) {
	if r.uploaded == nil {
		r.uploaded = map[string][]byte{}
	}
	r.uploaded[name] = content
	return &assistant.File{ID: "new-1", Name: name, Status: "Processing"}, nil
}

func (r *recordingAssistant) ListFiles(context.Context) ([]assistant.File, error) {
	return r.files, nil
}

func (r *recordingAssistant) DeleteFile(_ context.Context, fileID string) error {
	r.deletedIDs = append(r.deletedIDs, fileID)
	return nil
}

func TestSyncProducts(t *testing.T) {
	shop := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/collections/all.atom", r.URL.Path)
		w.Header().Set("Content-Type", "application/atom+xml")
		w.Write([]byte(productFeed))
	}))
	defer shop.Close()

	fake := &recordingAssistant{
		files: []assistant.File{
			{ID: "stale-1", Name: feeds.ProductsFileName},
			{ID: "other", Name: "unrelated.txt"},
		},
	}
	syncer := feeds.NewSyncer(shop.URL, fake, nil)

	res, err := syncer.SyncProducts(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Entries)
	assert.Equal(t, "new-1", res.FileID)
	assert.Equal(t, []string{"stale-1"}, fake.deletedIDs, "only the stale copy is replaced")

	doc := string(fake.uploaded[feeds.ProductsFileName])
	assert.Contains(t, doc, "## Cedar Hot Tub")
	assert.Contains(t, doc, "https://shop.example.com/products/sauna-kit")
	assert.Contains(t, doc, "Hand-built & insulated.")
	assert.NotContains(t, doc, "<p>")
	assert.NotContains(t, doc, "alert(1)")
}

func TestSyncBlogEmptyFeed(t *testing.T) {
	shop := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/blogs/news.atom", r.URL.Path)
		w.Write([]byte(`<?xml version="1.0"?><feed xmlns="http://www.w3.org/2005/Atom"><title>Blog</title></feed>`))
	}))
	defer shop.Close()

	syncer := feeds.NewSyncer(shop.URL, &recordingAssistant{}, nil)

	_, err := syncer.SyncBlog(t.Context(), "")
	assert.Error(t, err)
}

func TestSyncProductsUpstreamError(t *testing.T) {
	shop := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer shop.Close()

	syncer := feeds.NewSyncer(shop.URL, &recordingAssistant{}, nil)

	_, err := syncer.SyncProducts(t.Context())
	assert.ErrorContains(t, err, "status 502")
}

func TestStripHTML(t *testing.T) {
	in := `<style>.x{color:red}</style><h1>Hi</h1><p>One&nbsp;two</p><p>Three</p>`
	out := feeds.StripHTML(in)
	assert.Equal(t, "Hi One two\nThree", out)
}
